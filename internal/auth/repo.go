package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/reduc/agenda/internal/shared"
)

// Repository defines persistence operations for the auth module.
type Repository interface {
	FindByID(ctx context.Context, id string) (User, error)
	FindByEmail(ctx context.Context, email string) (User, error)
	UpsertFromDirectory(ctx context.Context, email, name string, at time.Time) (User, error)
}

const userColumns = `id::text, email, name, active, COALESCE(last_login_at, created_at), created_at, updated_at`

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// FindByID fetches a user by primary key.
func (r *PGRepository) FindByID(ctx context.Context, id string) (User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return User{}, ErrUserNotFound
	}
	return r.scanOne(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

// FindByEmail fetches a user by normalized email.
func (r *PGRepository) FindByEmail(ctx context.Context, email string) (User, error) {
	return r.scanOne(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, shared.NormalizeEmail(email)))
}

// UpsertFromDirectory creates the user on first login or refreshes name,
// active flag and last login on later ones.
func (r *PGRepository) UpsertFromDirectory(ctx context.Context, email, name string, at time.Time) (User, error) {
	email = shared.NormalizeEmail(email)
	if email == "" {
		return User{}, errors.New("auth: upsert requires an email")
	}
	row := r.pool.QueryRow(ctx, `
INSERT INTO users (id, email, name, active, last_login_at, created_at, updated_at)
VALUES ($1, $2, $3, TRUE, $4, $4, $4)
ON CONFLICT (email) DO UPDATE
SET name = EXCLUDED.name,
    active = TRUE,
    last_login_at = EXCLUDED.last_login_at,
    updated_at = EXCLUDED.updated_at
RETURNING `+userColumns, uuid.NewString(), email, name, at.UTC())
	user, err := r.scanOne(row)
	if err != nil {
		return User{}, fmt.Errorf("auth: upsert user: %w", err)
	}
	return user, nil
}

func (r *PGRepository) scanOne(row pgx.Row) (User, error) {
	var u User
	if err := row.Scan(&u.ID, &u.Email, &u.Name, &u.Active, &u.LastLoginAt, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrUserNotFound
		}
		return User{}, err
	}
	return u, nil
}

var _ Repository = (*PGRepository)(nil)
