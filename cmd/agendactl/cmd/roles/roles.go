package roles

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/reduc/agenda/internal/rbac"
)

var rolesInput []string

// RolesCmd is the parent command for role assignment operations
var RolesCmd = &cobra.Command{
	Use:   "roles",
	Short: "Manage base role assignments",
	Long:  `Commands for inspecting and changing base role grants directly from the server.`,
}

// Admin is the subset of rbac.Resolver the commands use.
type Admin interface {
	ListAssignments(ctx context.Context, email string) ([]rbac.Assignment, error)
	EffectiveRoles(ctx context.Context, email string) (rbac.EffectiveRoleSet, error)
	AssignRole(ctx context.Context, email string, role rbac.Role) error
	RemoveRole(ctx context.Context, email string, role rbac.Role) error
}

func init() {
	RolesCmd.AddCommand(listCmd)
	RolesCmd.AddCommand(assignCmd)
	assignCmd.Flags().StringSliceVar(&rolesInput, "role", []string{}, "Role(s) to assign")
	RolesCmd.AddCommand(removeCmd)
	removeCmd.Flags().StringSliceVar(&rolesInput, "role", []string{}, "Role(s) to remove")
}

func parseRoles(input []string) ([]rbac.Role, error) {
	out := make([]rbac.Role, 0, len(input))
	for _, raw := range input {
		role, err := rbac.ParseRole(raw)
		if err != nil {
			return nil, err
		}
		if !role.IsBase() {
			return nil, &notAssignableError{role: role}
		}
		out = append(out, role)
	}
	return out, nil
}

type notAssignableError struct {
	role rbac.Role
}

func (e *notAssignableError) Error() string {
	return "role " + string(e.role) + " is calculated and cannot be assigned"
}

func (e *notAssignableError) Unwrap() error {
	return rbac.ErrInvalidRole
}
