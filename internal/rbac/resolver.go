package rbac

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/reduc/agenda/internal/shared"
)

// Repository exposes the reads and writes the resolver needs.
type Repository interface {
	UserExists(ctx context.Context, email string) (bool, error)
	ListAssignments(ctx context.Context, email string) ([]Assignment, error)
	IsMember(ctx context.Context, relation Relation, email string) (bool, error)
	InsertAssignment(ctx context.Context, email string, role Role) error
	DeleteAssignment(ctx context.Context, email string, role Role) (bool, error)
}

// Resolver computes effective roles. Nothing is cached; every call reads
// current relational state.
type Resolver struct {
	repo Repository
	now  func() time.Time
}

// NewResolver constructs a Resolver.
func NewResolver(repo Repository) *Resolver {
	return &Resolver{repo: repo, now: time.Now}
}

// EffectiveRoles returns the role set for email.
func (r *Resolver) EffectiveRoles(ctx context.Context, email string) (EffectiveRoleSet, error) {
	email = shared.NormalizeEmail(email)
	if err := r.ensureUser(ctx, email); err != nil {
		return EffectiveRoleSet{}, err
	}

	var assignments []Assignment
	memberships := make([]bool, len(calculatedRules))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		assignments, err = r.repo.ListAssignments(gctx, email)
		if err != nil {
			return fmt.Errorf("rbac: list assignments: %w", err)
		}
		return nil
	})
	for i, rule := range calculatedRules {
		g.Go(func() error {
			ok, err := r.repo.IsMember(gctx, rule.relation, email)
			if err != nil {
				return fmt.Errorf("rbac: membership %s: %w", rule.relation, err)
			}
			memberships[i] = ok
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return EffectiveRoleSet{}, err
	}

	base := make([]Role, 0, len(assignments))
	for _, a := range assignments {
		base = append(base, a.Role)
	}
	calculated := make([]Role, 0, len(calculatedRules))
	for i, rule := range calculatedRules {
		if memberships[i] {
			calculated = append(calculated, rule.role)
		}
	}
	return EffectiveRoleSet{
		Email:           email,
		BaseRoles:       base,
		CalculatedRoles: calculated,
		EffectiveRoles:  Merge(base, calculated),
		ComputedAt:      r.now().UTC(),
	}, nil
}

// HasRole checks role against the effective set.
func (r *Resolver) HasRole(ctx context.Context, email string, role Role) (bool, error) {
	set, err := r.EffectiveRoles(ctx, email)
	if err != nil {
		return false, err
	}
	return set.Has(role), nil
}

// HasBaseRole checks explicit assignments only.
func (r *Resolver) HasBaseRole(ctx context.Context, email string, role Role) (bool, error) {
	email = shared.NormalizeEmail(email)
	if err := r.ensureUser(ctx, email); err != nil {
		return false, err
	}
	assignments, err := r.repo.ListAssignments(ctx, email)
	if err != nil {
		return false, fmt.Errorf("rbac: list assignments: %w", err)
	}
	for _, a := range assignments {
		if a.Role == role {
			return true, nil
		}
	}
	return false, nil
}

// ListAssignments returns the explicit grants for email.
func (r *Resolver) ListAssignments(ctx context.Context, email string) ([]Assignment, error) {
	email = shared.NormalizeEmail(email)
	if err := r.ensureUser(ctx, email); err != nil {
		return nil, err
	}
	return r.repo.ListAssignments(ctx, email)
}

// AssignRole grants a base role. Administrative use only.
func (r *Resolver) AssignRole(ctx context.Context, email string, role Role) error {
	if !role.IsBase() {
		return fmt.Errorf("%w: %s is not assignable", ErrInvalidRole, role)
	}
	email = shared.NormalizeEmail(email)
	if err := r.ensureUser(ctx, email); err != nil {
		return err
	}
	return r.repo.InsertAssignment(ctx, email, role)
}

// RemoveRole revokes a base role. Administrative use only.
func (r *Resolver) RemoveRole(ctx context.Context, email string, role Role) error {
	if !role.IsBase() {
		return fmt.Errorf("%w: %s is not assignable", ErrInvalidRole, role)
	}
	email = shared.NormalizeEmail(email)
	removed, err := r.repo.DeleteAssignment(ctx, email, role)
	if err != nil {
		return err
	}
	if !removed {
		return ErrNotAssigned
	}
	return nil
}

func (r *Resolver) ensureUser(ctx context.Context, email string) error {
	ok, err := r.repo.UserExists(ctx, email)
	if err != nil {
		return fmt.Errorf("rbac: lookup user: %w", err)
	}
	if !ok {
		return ErrUserNotFound
	}
	return nil
}
