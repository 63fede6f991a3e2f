package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"

	"github.com/reduc/agenda/internal/platform/httpx"
	"github.com/reduc/agenda/internal/shared"
)

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger     *slog.Logger
	service    *Service
	guard      *Guard
	cookies    *CookieManager
	validator  *httpx.Validator
	loginLimit int
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, guard *Guard, cookies *CookieManager, loginLimit int) *Handler {
	if loginLimit <= 0 {
		loginLimit = 10
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:     logger,
		service:    service,
		guard:      guard,
		cookies:    cookies,
		validator:  httpx.NewValidator(),
		loginLimit: loginLimit,
	}
}

// MountRoutes registers auth routes on provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.With(httprate.LimitByIP(h.loginLimit, time.Minute)).Post("/login", h.login)
	r.Post("/refresh", h.refresh)
	r.Group(func(r chi.Router) {
		r.Use(h.guard.Authenticate)
		r.Post("/logout", h.logout)
		r.Get("/profile", h.profile)
		r.Get("/me", h.profile)
	})
}

type loginResponse struct {
	Success     bool    `json:"success"`
	Message     string  `json:"message"`
	User        Profile `json:"user"`
	AccessToken string  `json:"accessToken"`
}

type refreshResponse struct {
	Success     bool   `json:"success"`
	Message     string `json:"message"`
	AccessToken string `json:"accessToken"`
}

type profileResponse struct {
	Success bool    `json:"success"`
	User    Profile `json:"user"`
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var creds Credentials
	if err := httpx.DecodeJSON(w, r, &creds); err != nil {
		httpx.Fail(w, http.StatusBadRequest, httpx.MessageInvalidBody)
		return
	}
	if err := h.validator.Check(creds); err != nil {
		httpx.RespondError(w, err)
		return
	}

	result, err := h.service.Login(r.Context(), creds, ClientIP(r))
	if err != nil {
		if errors.Is(err, ErrUnauthorized) {
			httpx.Fail(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		httpx.Fail(w, http.StatusInternalServerError, httpx.MessageInternal)
		return
	}

	h.cookies.SetTokens(w, result.Tokens)
	httpx.JSON(w, http.StatusOK, loginResponse{
		Success:     true,
		Message:     "login successful",
		User:        result.Profile,
		AccessToken: result.Tokens.AccessToken,
	})
}

func (h *Handler) refresh(w http.ResponseWriter, r *http.Request) {
	token := h.cookies.RefreshToken(r)
	if token == "" {
		httpx.Fail(w, http.StatusUnauthorized, httpx.MessageUnauthorized)
		return
	}
	result, err := h.service.RefreshSession(r.Context(), token)
	if err != nil {
		h.cookies.Clear(w)
		httpx.Fail(w, http.StatusUnauthorized, httpx.MessageUnauthorized)
		return
	}
	h.cookies.SetTokens(w, result.Tokens)
	httpx.JSON(w, http.StatusOK, refreshResponse{
		Success:     true,
		Message:     "session refreshed",
		AccessToken: result.Tokens.AccessToken,
	})
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	principal := shared.PrincipalFromContext(r.Context())
	if err := h.service.Logout(r.Context(), principal, h.cookies.RefreshToken(r), ClientIP(r)); err != nil {
		httpx.Fail(w, http.StatusUnauthorized, httpx.MessageUnauthorized)
		return
	}
	h.cookies.Clear(w)
	httpx.JSON(w, http.StatusOK, httpx.Envelope{Success: true, Message: "logout successful"})
}

func (h *Handler) profile(w http.ResponseWriter, r *http.Request) {
	principal := shared.PrincipalFromContext(r.Context())
	if principal == nil {
		httpx.Fail(w, http.StatusUnauthorized, httpx.MessageUnauthorized)
		return
	}
	profile, err := h.service.Profile(r.Context(), principal.UserID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) || errors.Is(err, ErrUserInactive) {
			httpx.Fail(w, http.StatusUnauthorized, httpx.MessageUnauthorized)
			return
		}
		h.logger.Error("load profile", slog.Any("error", err))
		httpx.Fail(w, http.StatusInternalServerError, httpx.MessageInternal)
		return
	}
	httpx.JSON(w, http.StatusOK, profileResponse{Success: true, User: profile})
}
