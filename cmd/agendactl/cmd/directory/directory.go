package directory

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/reduc/agenda/cmd/agendactl/cmd/cmdutil"
	"github.com/reduc/agenda/internal/directory"
)

var searchLimit int

// DirectoryCmd is the parent command for directory lookups
var DirectoryCmd = &cobra.Command{
	Use:   "directory",
	Short: "Query the LDAP directory with the service account",
}

// Client is the subset of directory.Authenticator the commands use.
type Client interface {
	Lookup(ctx context.Context, username string) (directory.Identity, error)
	Search(ctx context.Context, term string, limit int) ([]directory.Identity, error)
	Probe(ctx context.Context) error
}

var lookupCmd = &cobra.Command{
	Use:   "lookup [username]",
	Short: "Show one directory entry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := cmdutil.NewDirectory()
		if err != nil {
			return err
		}
		return runLookup(cmd.Context(), client, cmd.OutOrStdout(), args[0])
	},
}

var searchCmd = &cobra.Command{
	Use:   "search [term]",
	Short: "Search entries by username or name",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := cmdutil.NewDirectory()
		if err != nil {
			return err
		}
		return runSearch(cmd.Context(), client, cmd.OutOrStdout(), args[0], searchLimit)
	},
}

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Bind with the service account and report",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := cmdutil.NewDirectory()
		if err != nil {
			return err
		}
		return runProbe(cmd.Context(), client, cmd.OutOrStdout())
	},
}

func init() {
	DirectoryCmd.AddCommand(lookupCmd)
	DirectoryCmd.AddCommand(searchCmd)
	searchCmd.Flags().IntVar(&searchLimit, "limit", 20, "Maximum entries to return")
	DirectoryCmd.AddCommand(probeCmd)
}

func runLookup(ctx context.Context, client Client, out io.Writer, username string) error {
	identity, err := client.Lookup(ctx, username)
	if err != nil {
		return fmt.Errorf("lookup '%s': %w", username, err)
	}
	w := cmdutil.NewTable(out)
	fmt.Fprintf(w, "DN\t%s\n", identity.DN)
	fmt.Fprintf(w, "USERNAME\t%s\n", identity.Username)
	fmt.Fprintf(w, "NAME\t%s\n", identity.DisplayName)
	fmt.Fprintf(w, "EMAIL\t%s\n", orDash(identity.Email))
	fmt.Fprintf(w, "DEPARTMENT\t%s\n", orDash(identity.Department))
	fmt.Fprintf(w, "TITLE\t%s\n", orDash(identity.Title))
	return w.Flush()
}

func runSearch(ctx context.Context, client Client, out io.Writer, term string, limit int) error {
	entries, err := client.Search(ctx, term, limit)
	if err != nil {
		return fmt.Errorf("search '%s': %w", term, err)
	}
	w := cmdutil.NewTable(out)
	fmt.Fprintln(w, "USERNAME\tNAME\tEMAIL")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\t%s\n", e.Username, e.DisplayName, orDash(e.Email))
	}
	return w.Flush()
}

func runProbe(ctx context.Context, client Client, out io.Writer) error {
	if err := client.Probe(ctx); err != nil {
		return fmt.Errorf("directory unreachable: %w", err)
	}
	_, err := fmt.Fprintln(out, "directory ok")
	return err
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
