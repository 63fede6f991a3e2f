package users

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/reduc/agenda/cmd/agendactl/cmd/cmdutil"
	"github.com/reduc/agenda/internal/users"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List local users",
	RunE: func(cmd *cobra.Command, args []string) error {
		filter, err := buildFilter(listQuery, listActive, listPage, listPerPage)
		if err != nil {
			return err
		}

		bundle, err := cmdutil.OpenDatabase(cmd.Context())
		if err != nil {
			return err
		}
		defer bundle.Close()

		svc := users.NewService(users.NewRepository(bundle.Pool), bundle.Logger)
		return runList(cmd.Context(), svc, cmd.OutOrStdout(), filter)
	},
}

func buildFilter(query, active string, page, perPage int) (users.ListFilter, error) {
	filter := users.ListFilter{Query: query, Page: page, PerPage: perPage}
	if active != "" {
		v, err := strconv.ParseBool(active)
		if err != nil {
			return users.ListFilter{}, fmt.Errorf("invalid --active value %q", active)
		}
		filter.Active = &v
	}
	return filter, nil
}

func runList(ctx context.Context, admin Admin, out io.Writer, filter users.ListFilter) error {
	page, err := admin.ListUsers(ctx, filter)
	if err != nil {
		return fmt.Errorf("failed to list users: %w", err)
	}

	w := cmdutil.NewTable(out)
	fmt.Fprintln(w, "EMAIL\tNAME\tACTIVE\tLAST_LOGIN")
	for _, u := range page.Users {
		lastLogin := "-"
		if !u.LastLoginAt.IsZero() {
			lastLogin = u.LastLoginAt.UTC().Format(time.RFC3339)
		}
		fmt.Fprintf(w, "%s\t%s\t%t\t%s\n", u.Email, u.Name, u.IsActive, lastLogin)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	_, err = fmt.Fprintf(out, "page %d of %d (%d users)\n", page.Paging.Page, page.Paging.TotalPages, page.Paging.Total)
	return err
}
