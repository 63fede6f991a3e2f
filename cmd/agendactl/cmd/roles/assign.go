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

var assignCmd = &cobra.Command{
	Use:   "assign [email]",
	Short: "Grant base roles to a user",
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
		return runAssign(cmd.Context(), resolver, cmd.OutOrStdout(), args[0], roles)
	},
}

func runAssign(ctx context.Context, admin Admin, out io.Writer, email string, roles []rbac.Role) error {
	for _, role := range roles {
		err := admin.AssignRole(ctx, email, role)
		switch {
		case errors.Is(err, rbac.ErrAlreadyAssigned):
			fmt.Fprintf(out, "%s already holds %s\n", email, role)
		case err != nil:
			return fmt.Errorf("failed to assign %s to '%s': %w", role, email, err)
		default:
			fmt.Fprintf(out, "assigned %s to %s\n", role, email)
		}
	}
	return nil
}
