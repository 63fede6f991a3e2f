package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/reduc/agenda/cmd/agendactl/cmd/directory"
	"github.com/reduc/agenda/cmd/agendactl/cmd/jobs"
	"github.com/reduc/agenda/cmd/agendactl/cmd/roles"
	"github.com/reduc/agenda/cmd/agendactl/cmd/users"
	"github.com/reduc/agenda/internal/app"
)

var cfg *app.Config

var rootCmd = &cobra.Command{
	Use:   "agendactl",
	Short: "Operator tooling for the agenda auth service",
	Long: `agendactl manages role assignments, user activation, directory lookups,
schema migrations and background jobs against the same database, directory
and Redis the server uses.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = app.ReadConfig()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(roles.RolesCmd)
	rootCmd.AddCommand(users.UsersCmd)
	rootCmd.AddCommand(directory.DirectoryCmd)
	rootCmd.AddCommand(jobs.JobsCmd)
}

// Execute runs the root command
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
