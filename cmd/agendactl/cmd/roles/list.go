package roles

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/reduc/agenda/cmd/agendactl/cmd/cmdutil"
	"github.com/reduc/agenda/internal/rbac"
)

var listCmd = &cobra.Command{
	Use:   "list [email]",
	Short: "Show explicit grants and effective roles for a user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		bundle, err := cmdutil.OpenDatabase(cmd.Context())
		if err != nil {
			return err
		}
		defer bundle.Close()

		resolver := rbac.NewResolver(rbac.NewRepository(bundle.Pool))
		return runList(cmd.Context(), resolver, cmd.OutOrStdout(), args[0])
	},
}

func runList(ctx context.Context, admin Admin, out io.Writer, email string) error {
	assignments, err := admin.ListAssignments(ctx, email)
	if err != nil {
		return fmt.Errorf("failed to list assignments for '%s': %w", email, err)
	}
	set, err := admin.EffectiveRoles(ctx, email)
	if err != nil {
		return fmt.Errorf("failed to resolve roles for '%s': %w", email, err)
	}

	w := cmdutil.NewTable(out)
	fmt.Fprintln(w, "ROLE\tKIND\tGRANTED_AT")
	for _, a := range assignments {
		fmt.Fprintf(w, "%s\tbase\t%s\n", a.Role, a.CreatedAt.UTC().Format(time.RFC3339))
	}
	for _, role := range set.CalculatedRoles {
		fmt.Fprintf(w, "%s\tcalculated\t-\n", role)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	_, err = fmt.Fprintf(out, "effective: %s\n", joinRoles(set.EffectiveRoles))
	return err
}

func joinRoles(roles []rbac.Role) string {
	names := make([]string, len(roles))
	for i, r := range roles {
		names[i] = string(r)
	}
	return strings.Join(names, ", ")
}
