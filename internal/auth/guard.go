package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"

	"github.com/reduc/agenda/internal/audit"
	"github.com/reduc/agenda/internal/platform/httpx"
	"github.com/reduc/agenda/internal/shared"
)

// PayloadValidator checks verified claims against the current user state.
type PayloadValidator interface {
	ValidateTokenPayload(ctx context.Context, claims *Claims) (*shared.Principal, error)
}

// Guard authenticates requests from the access-token cookie. Every
// rejection renders the same 401 body.
type Guard struct {
	tokens    *TokenIssuer
	validator PayloadValidator
	cookies   *CookieManager
	audit     audit.Recorder
	logger    *slog.Logger
}

// NewGuard constructs a Guard.
func NewGuard(tokens *TokenIssuer, validator PayloadValidator, cookies *CookieManager, recorder audit.Recorder, logger *slog.Logger) *Guard {
	if logger == nil {
		logger = slog.Default()
	}
	return &Guard{tokens: tokens, validator: validator, cookies: cookies, audit: recorder, logger: logger}
}

// Authenticate is the middleware that attaches the principal to the context.
func (g *Guard) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal, err := g.principal(r)
		if err != nil {
			g.reject(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(shared.ContextWithPrincipal(r.Context(), principal)))
	})
}

func (g *Guard) principal(r *http.Request) (*shared.Principal, error) {
	raw := g.cookies.AccessToken(r)
	if raw == "" {
		return nil, errMissingToken
	}
	claims, err := g.tokens.Verify(raw, TokenAccess)
	if err != nil {
		return nil, err
	}
	return g.validator.ValidateTokenPayload(r.Context(), claims)
}

var errMissingToken = errors.New("auth: no access token")

func (g *Guard) reject(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, ErrInternal) {
		g.logger.Error("guard", slog.Any("error", err))
		httpx.Fail(w, http.StatusInternalServerError, httpx.MessageInternal)
		return
	}
	action := audit.ActionUnauthorizedAccess
	if errors.Is(err, ErrTokenExpired) {
		action = audit.ActionTokenExpired
	}
	if !errors.Is(err, errMissingToken) && g.audit != nil {
		ip := ClientIP(r)
		if recErr := g.audit.Record(r.Context(), audit.Entry{
			Action:      action,
			Description: fmt.Sprintf("%s %s rejected: %v", r.Method, r.URL.Path, err),
			ClientIP:    ip,
		}); recErr != nil {
			g.logger.Warn("audit record", slog.Any("error", recErr))
		}
	}
	g.logger.Debug("request rejected", slog.String("path", r.URL.Path), slog.Any("reason", err))
	httpx.Fail(w, http.StatusUnauthorized, httpx.MessageUnauthorized)
}

// ClientIP returns the request's remote host. RealIP middleware has already
// rewritten RemoteAddr when a proxy header is trusted.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
