package users

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/reduc/agenda/cmd/agendactl/cmd/cmdutil"
	"github.com/reduc/agenda/internal/shared"
	"github.com/reduc/agenda/internal/users"
)

var activateCmd = &cobra.Command{
	Use:   "activate [email]",
	Short: "Re-enable a user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(cmd, func(svc Admin) error {
			return runSetActive(cmd.Context(), svc, cmd.OutOrStdout(), args[0], true)
		})
	},
}

var deactivateCmd = &cobra.Command{
	Use:   "deactivate [email]",
	Short: "Disable a user; their tokens stop working on the next request",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(cmd, func(svc Admin) error {
			return runSetActive(cmd.Context(), svc, cmd.OutOrStdout(), args[0], false)
		})
	},
}

func withService(cmd *cobra.Command, fn func(Admin) error) error {
	bundle, err := cmdutil.OpenDatabase(cmd.Context())
	if err != nil {
		return err
	}
	defer bundle.Close()
	return fn(users.NewService(users.NewRepository(bundle.Pool), bundle.Logger))
}

func runSetActive(ctx context.Context, admin Admin, out io.Writer, email string, active bool) error {
	var (
		user users.User
		err  error
	)
	if active {
		user, err = admin.Activate(ctx, nil, email)
	} else {
		user, err = admin.Deactivate(ctx, nil, email)
	}
	if errors.Is(err, shared.ErrNotFound) {
		return fmt.Errorf("user '%s' not found", email)
	}
	if err != nil {
		return fmt.Errorf("failed to update user '%s': %w", email, err)
	}
	state := "deactivated"
	if user.IsActive {
		state = "activated"
	}
	_, err = fmt.Fprintf(out, "%s %s\n", user.Email, state)
	return err
}
