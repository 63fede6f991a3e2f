package users

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/reduc/agenda/internal/shared"
	"github.com/reduc/agenda/internal/users"
)

var (
	listQuery   string
	listActive  string
	listPage    int
	listPerPage int
)

// UsersCmd is the parent command for local user operations
var UsersCmd = &cobra.Command{
	Use:   "users",
	Short: "Manage local user records",
	Long:  `Commands for listing users mirrored from the directory and toggling their active flag.`,
}

// Admin is the subset of users.Service the commands use.
type Admin interface {
	ListUsers(ctx context.Context, filter users.ListFilter) (users.Page, error)
	Activate(ctx context.Context, actor *shared.Principal, email string) (users.User, error)
	Deactivate(ctx context.Context, actor *shared.Principal, email string) (users.User, error)
}

func init() {
	UsersCmd.AddCommand(listCmd)
	listCmd.Flags().StringVarP(&listQuery, "query", "q", "", "Match email or name")
	listCmd.Flags().StringVar(&listActive, "active", "", "Filter by active flag (true or false)")
	listCmd.Flags().IntVar(&listPage, "page", 1, "Page number")
	listCmd.Flags().IntVar(&listPerPage, "per-page", 20, "Rows per page")
	UsersCmd.AddCommand(activateCmd)
	UsersCmd.AddCommand(deactivateCmd)
}
