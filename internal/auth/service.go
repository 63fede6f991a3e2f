package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/reduc/agenda/internal/audit"
	"github.com/reduc/agenda/internal/directory"
	"github.com/reduc/agenda/internal/rbac"
	"github.com/reduc/agenda/internal/shared"
)

// DirectoryAuthenticator verifies credentials against the directory.
type DirectoryAuthenticator interface {
	Authenticate(ctx context.Context, username, password string) (directory.Identity, error)
}

// RoleResolver yields the effective roles for a user.
type RoleResolver interface {
	EffectiveRoles(ctx context.Context, email string) (rbac.EffectiveRoleSet, error)
}

// Observer receives login and refresh outcomes.
type Observer interface {
	ObserveLogin(outcome string)
	ObserveRefresh(outcome string)
}

// Dependencies groups the collaborators of Service.
type Dependencies struct {
	Directory DirectoryAuthenticator
	Users     Repository
	Roles     RoleResolver
	Tokens    *TokenIssuer
	Audit     audit.Recorder
	// Ledger enforces single-use refresh tokens when set.
	Ledger   RefreshLedger
	Observer Observer
	Logger   *slog.Logger
}

// Service wraps authentication business rules.
type Service struct {
	directory DirectoryAuthenticator
	users     Repository
	roles     RoleResolver
	tokens    *TokenIssuer
	audit     audit.Recorder
	ledger    RefreshLedger
	observer  Observer
	logger    *slog.Logger
	now       func() time.Time
}

// NewService constructs a new Service.
func NewService(deps Dependencies) *Service {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		directory: deps.Directory,
		users:     deps.Users,
		roles:     deps.Roles,
		tokens:    deps.Tokens,
		audit:     deps.Audit,
		ledger:    deps.Ledger,
		observer:  deps.Observer,
		logger:    logger,
		now:       time.Now,
	}
}

// Login authenticates against the directory, syncs the local user, resolves
// roles and mints a token pair. Failures are *Failure values.
func (s *Service) Login(ctx context.Context, creds Credentials, clientIP string) (LoginResult, error) {
	identity, err := s.directory.Authenticate(ctx, creds.Username, creds.Password)
	if err != nil {
		reason, state := classifyDirectory(err)
		return LoginResult{}, s.failLogin(ctx, creds.Username, clientIP, "", reason, state, err)
	}
	if identity.Email == "" {
		return LoginResult{}, s.failLogin(ctx, creds.Username, clientIP, "", ReasonSync, StateUserVerified,
			errors.New("directory entry has no mail attribute"))
	}

	user, err := s.users.UpsertFromDirectory(ctx, identity.Email, displayName(identity), s.now())
	if err != nil {
		return LoginResult{}, s.failLogin(ctx, creds.Username, clientIP, "", ReasonSync, StateUserVerified, err)
	}

	roles, err := s.roles.EffectiveRoles(ctx, user.Email)
	if err != nil {
		return LoginResult{}, s.failLogin(ctx, creds.Username, clientIP, user.ID, ReasonInternal, StateLocalSynced, err)
	}

	pair, err := s.tokens.IssuePair(user.ID, user.Email, roles.Strings())
	if err != nil {
		return LoginResult{}, s.failLogin(ctx, creds.Username, clientIP, user.ID, ReasonInternal, StateRolesResolved, err)
	}

	s.record(ctx, audit.Entry{
		ActorID:     user.ID,
		ActorEmail:  user.Email,
		Action:      audit.ActionLogin,
		EntityID:    user.ID,
		Description: fmt.Sprintf("LDAP login for %s from %s", creds.Username, clientIP),
		ClientIP:    clientIP,
	})
	s.observeLogin("success")
	s.logger.Info("login succeeded", slog.String("user_id", user.ID), slog.String("username", creds.Username))

	return LoginResult{Profile: profileOf(user, roles), Tokens: pair}, nil
}

// Logout records the logout and, when single-use refresh is enabled,
// spends the presented refresh token so it cannot be replayed.
func (s *Service) Logout(ctx context.Context, principal *shared.Principal, refreshToken, clientIP string) error {
	if principal == nil {
		return ErrUnauthorized
	}
	if s.ledger != nil && refreshToken != "" {
		if claims, err := s.tokens.Verify(refreshToken, TokenRefresh); err == nil && claims.Subject == principal.UserID {
			if err := s.ledger.Consume(ctx, claims.TokenID, claims.ExpiresAt.Time); err != nil && !errors.Is(err, ErrTokenReused) {
				s.logger.Warn("spend refresh token on logout", slog.Any("error", err))
			}
		}
	}
	s.record(ctx, audit.Entry{
		ActorID:     principal.UserID,
		ActorEmail:  principal.Email,
		Action:      audit.ActionLogout,
		EntityID:    principal.UserID,
		Description: fmt.Sprintf("LDAP logout for %s from %s", principal.Email, clientIP),
		ClientIP:    clientIP,
	})
	return nil
}

// RefreshResult is returned by a successful refresh.
type RefreshResult struct {
	Profile Profile
	Tokens  TokenPair
}

// RefreshSession verifies a refresh token and rotates the pair. Every
// failure matches ErrUnauthorized.
func (s *Service) RefreshSession(ctx context.Context, refreshToken string) (RefreshResult, error) {
	result, err := s.refresh(ctx, refreshToken)
	if err != nil {
		s.observeRefresh(refreshOutcome(err))
		s.logger.Info("refresh rejected", slog.Any("reason", err))
		return RefreshResult{}, fmt.Errorf("%w: %w", ErrUnauthorized, err)
	}
	s.observeRefresh("success")
	return result, nil
}

func (s *Service) refresh(ctx context.Context, refreshToken string) (RefreshResult, error) {
	claims, err := s.tokens.Verify(refreshToken, TokenRefresh)
	if err != nil {
		return RefreshResult{}, err
	}
	user, err := s.activeUser(ctx, claims.Subject)
	if err != nil {
		return RefreshResult{}, err
	}
	if s.ledger != nil {
		if err := s.ledger.Consume(ctx, claims.TokenID, claims.ExpiresAt.Time); err != nil {
			return RefreshResult{}, err
		}
	}
	roles, err := s.roles.EffectiveRoles(ctx, user.Email)
	if err != nil {
		return RefreshResult{}, err
	}
	pair, err := s.tokens.IssuePair(user.ID, user.Email, roles.Strings())
	if err != nil {
		return RefreshResult{}, err
	}
	return RefreshResult{Profile: profileOf(user, roles), Tokens: pair}, nil
}

// Profile reloads the user and recomputes roles.
func (s *Service) Profile(ctx context.Context, userID string) (Profile, error) {
	user, err := s.activeUser(ctx, userID)
	if err != nil {
		return Profile{}, err
	}
	roles, err := s.roles.EffectiveRoles(ctx, user.Email)
	if err != nil {
		return Profile{}, fmt.Errorf("%w: %w", ErrInternal, err)
	}
	return profileOf(user, roles), nil
}

// ValidateTokenPayload re-checks that the token subject still exists and
// is active. A token stays cryptographically valid after deactivation, so
// this runs on every guarded request.
func (s *Service) ValidateTokenPayload(ctx context.Context, claims *Claims) (*shared.Principal, error) {
	if claims == nil || claims.Type != TokenAccess {
		return nil, ErrTokenTypeMismatch
	}
	user, err := s.activeUser(ctx, claims.Subject)
	if err != nil {
		return nil, err
	}
	return &shared.Principal{
		UserID: user.ID,
		Email:  user.Email,
		Name:   user.Name,
		Roles:  append([]string(nil), claims.Roles...),
	}, nil
}

func (s *Service) activeUser(ctx context.Context, userID string) (User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return User{}, ErrUserNotFound
		}
		return User{}, fmt.Errorf("%w: load user: %w", ErrInternal, err)
	}
	if !user.Active {
		return User{}, ErrUserInactive
	}
	return user, nil
}

func (s *Service) failLogin(ctx context.Context, username, clientIP, userID string, reason Reason, state LoginState, cause error) error {
	failure := &Failure{Reason: reason, State: state, Err: cause}
	s.record(ctx, audit.Entry{
		ActorID:     userID,
		Action:      audit.ActionLoginFailed,
		EntityID:    userID,
		Description: fmt.Sprintf("LDAP login failed for %s from %s: %s", username, clientIP, reason),
		ClientIP:    clientIP,
	})
	s.observeLogin(string(reason))
	level := slog.LevelInfo
	if failure.class() == ErrInternal {
		level = slog.LevelError
	}
	s.logger.Log(ctx, level, "login failed",
		slog.String("username", username),
		slog.String("reason", string(reason)),
		slog.String("state", string(state)),
		slog.Any("error", cause),
	)
	return failure
}

// record writes the audit entry and swallows any error.
func (s *Service) record(ctx context.Context, entry audit.Entry) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, entry); err != nil {
		s.logger.Warn("audit record", slog.String("action", string(entry.Action)), slog.Any("error", err))
	}
}

func (s *Service) observeLogin(outcome string) {
	if s.observer != nil {
		s.observer.ObserveLogin(outcome)
	}
}

func (s *Service) observeRefresh(outcome string) {
	if s.observer != nil {
		s.observer.ObserveRefresh(outcome)
	}
}

func classifyDirectory(err error) (Reason, LoginState) {
	switch {
	case errors.Is(err, directory.ErrUserNotFound):
		return ReasonUserNotFound, StateServiceBound
	case errors.Is(err, directory.ErrInvalidCredentials):
		return ReasonInvalidCredentials, StateUserFound
	default:
		return ReasonConnection, StateInit
	}
}

func refreshOutcome(err error) string {
	switch {
	case errors.Is(err, ErrTokenExpired):
		return "expired"
	case errors.Is(err, ErrTokenTypeMismatch):
		return "type_mismatch"
	case errors.Is(err, ErrTokenReused):
		return "reused"
	case errors.Is(err, ErrUserInactive), errors.Is(err, ErrUserNotFound):
		return "inactive"
	case errors.Is(err, ErrTokenMalformed):
		return "malformed"
	default:
		return "error"
	}
}

func displayName(identity directory.Identity) string {
	if identity.DisplayName != "" {
		return identity.DisplayName
	}
	return identity.Username
}

func profileOf(user User, roles rbac.EffectiveRoleSet) Profile {
	return Profile{ID: user.ID, Name: user.Name, Email: user.Email, Roles: roles.Strings()}
}
