package cmdutil

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"text/tabwriter"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/reduc/agenda/internal/app"
	"github.com/reduc/agenda/internal/directory"
	"github.com/reduc/agenda/internal/platform/db"
)

// Bundle carries the configuration and connections a command opened.
type Bundle struct {
	Config *app.Config
	Logger *slog.Logger
	Pool   *pgxpool.Pool
}

// Close releases the underlying database connection.
func (b *Bundle) Close() {
	if b == nil || b.Pool == nil {
		return
	}
	b.Pool.Close()
}

// LoadConfig reads the environment the way the server does, minus the token
// secret checks.
func LoadConfig() (*app.Config, error) {
	cfg, err := app.ReadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// OpenDatabase loads configuration and connects to postgres.
func OpenDatabase(ctx context.Context) (*Bundle, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, err
	}
	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return &Bundle{Config: cfg, Logger: app.NewLogger(cfg), Pool: pool}, nil
}

// NewDirectory builds a directory client from the environment.
func NewDirectory() (*directory.Authenticator, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, err
	}
	dcfg := cfg.DirectoryConfig()
	return directory.NewAuthenticator(dcfg, directory.NewDialer(dcfg), app.NewLogger(cfg)), nil
}

// NewTable returns a tabwriter configured for command output.
func NewTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
}
