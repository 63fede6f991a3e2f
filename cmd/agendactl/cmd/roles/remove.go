package roles

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/reduc/agenda/cmd/agendactl/cmd/cmdutil"
	"github.com/reduc/agenda/internal/rbac"
)

var removeCmd = &cobra.Command{
	Use:   "remove [email]",
	Short: "Revoke base roles from a user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(rolesInput) == 0 {
			return fmt.Errorf("at least one role must be specified using --role")
		}
		roles, err := parseRoles(rolesInput)
		if err != nil {
			return err
		}

		bundle, err := cmdutil.OpenDatabase(cmd.Context())
		if err != nil {
			return err
		}
		defer bundle.Close()

		resolver := rbac.NewResolver(rbac.NewRepository(bundle.Pool))
		return runRemove(cmd.Context(), resolver, cmd.OutOrStdout(), args[0], roles)
	},
}

func runRemove(ctx context.Context, admin Admin, out io.Writer, email string, roles []rbac.Role) error {
	for _, role := range roles {
		err := admin.RemoveRole(ctx, email, role)
		switch {
		case errors.Is(err, rbac.ErrNotAssigned):
			fmt.Fprintf(out, "%s does not hold %s\n", email, role)
		case err != nil:
			return fmt.Errorf("failed to remove %s from '%s': %w", role, email, err)
		default:
			fmt.Fprintf(out, "removed %s from %s\n", role, email)
		}
	}
	return nil
}
