package rbac

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

var membershipQueries = map[Relation]string{
	RelationAreaDirectivos:    `SELECT EXISTS (SELECT 1 FROM area_directivos WHERE lower(email) = $1)`,
	RelationAreaAlmaceneros:   `SELECT EXISTS (SELECT 1 FROM area_almaceneros WHERE lower(email) = $1)`,
	RelationLocalResponsables: `SELECT EXISTS (SELECT 1 FROM local_responsables WHERE lower(email) = $1)`,
	RelationMedioResponsables: `SELECT EXISTS (SELECT 1 FROM medio_responsables WHERE lower(email) = $1)`,
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// UserExists reports whether a local user row exists for email.
func (r *PGRepository) UserExists(ctx context.Context, email string) (bool, error) {
	var ok bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE email = $1)`, email).Scan(&ok)
	return ok, err
}

// ListAssignments returns grants in insertion order.
func (r *PGRepository) ListAssignments(ctx context.Context, email string) ([]Assignment, error) {
	rows, err := r.pool.Query(ctx, `SELECT email, role, created_at FROM user_roles WHERE email = $1 ORDER BY created_at, id`, email)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Assignment
	for rows.Next() {
		var a Assignment
		var role string
		if err := rows.Scan(&a.Email, &role, &a.CreatedAt); err != nil {
			return nil, err
		}
		a.Role = Role(role)
		out = append(out, a)
	}
	return out, rows.Err()
}

// IsMember checks one organizational relation.
func (r *PGRepository) IsMember(ctx context.Context, relation Relation, email string) (bool, error) {
	query, ok := membershipQueries[relation]
	if !ok {
		return false, fmt.Errorf("rbac: unknown relation %q", relation)
	}
	var member bool
	if err := r.pool.QueryRow(ctx, query, email).Scan(&member); err != nil {
		return false, err
	}
	return member, nil
}

// InsertAssignment creates a grant.
func (r *PGRepository) InsertAssignment(ctx context.Context, email string, role Role) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO user_roles (email, role) VALUES ($1, $2)`, email, string(role))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrAlreadyAssigned
		}
		return err
	}
	return nil
}

// DeleteAssignment removes a grant and reports whether one existed.
func (r *PGRepository) DeleteAssignment(ctx context.Context, email string, role Role) (bool, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM user_roles WHERE email = $1 AND role = $2`, email, string(role))
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

var _ Repository = (*PGRepository)(nil)
