package users

import (
	"context"
	"log/slog"

	"github.com/reduc/agenda/internal/shared"
)

const (
	defaultPerPage = 20
	maxPerPage     = 100
)

// RepositoryPort defines data access methods for users.
type RepositoryPort interface {
	ListUsers(ctx context.Context, filter ListFilter, offset, limit int) ([]User, int, error)
	SetActive(ctx context.Context, email string, active bool) (User, error)
}

// Service handles user business logic.
type Service struct {
	repo   RepositoryPort
	logger *slog.Logger
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, logger: logger}
}

// ListUsers returns one page of users.
func (s *Service) ListUsers(ctx context.Context, filter ListFilter) (Page, error) {
	if filter.PerPage <= 0 {
		filter.PerPage = defaultPerPage
	}
	if filter.PerPage > maxPerPage {
		filter.PerPage = maxPerPage
	}
	if filter.Page <= 0 {
		filter.Page = 1
	}
	offset := (filter.Page - 1) * filter.PerPage
	users, total, err := s.repo.ListUsers(ctx, filter, offset, filter.PerPage)
	if err != nil {
		return Page{}, err
	}
	return Page{Users: users, Paging: shared.NewPagination(filter.Page, filter.PerPage, total)}, nil
}

// Activate re-enables an account.
func (s *Service) Activate(ctx context.Context, actor *shared.Principal, email string) (User, error) {
	return s.setActive(ctx, actor, email, true)
}

// Deactivate disables an account. Existing tokens stop working on the next
// guarded request.
func (s *Service) Deactivate(ctx context.Context, actor *shared.Principal, email string) (User, error) {
	email = shared.NormalizeEmail(email)
	if actor != nil && shared.NormalizeEmail(actor.Email) == email {
		return User{}, ErrSelfDeactivation
	}
	return s.setActive(ctx, actor, email, false)
}

func (s *Service) setActive(ctx context.Context, actor *shared.Principal, email string, active bool) (User, error) {
	user, err := s.repo.SetActive(ctx, shared.NormalizeEmail(email), active)
	if err != nil {
		return User{}, err
	}
	attrs := []any{slog.String("email", user.Email), slog.Bool("active", active)}
	if actor != nil {
		attrs = append(attrs, slog.String("actor", actor.Email))
	}
	s.logger.Info("user activation changed", attrs...)
	return user, nil
}
