package users

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/reduc/agenda/internal/platform/httpx"
	"github.com/reduc/agenda/internal/rbac"
	"github.com/reduc/agenda/internal/shared"
)

// Handler manages user management endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, rbac: rbac}
}

// MountRoutes registers user routes. All of them require ADMINISTRADOR.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(rbac.RoleAdministrador))
		r.Get("/", h.listUsers)
		r.Post("/{email}/activate", h.activate)
		r.Post("/{email}/deactivate", h.deactivate)
	})
}

type listResponse struct {
	Success bool `json:"success"`
	Page
}

type userResponse struct {
	Success bool `json:"success"`
	Data    User `json:"data"`
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	filter, fields := parseListFilter(r)
	if len(fields) > 0 {
		httpx.RespondError(w, &httpx.ValidationError{Fields: fields})
		return
	}
	page, err := h.service.ListUsers(r.Context(), filter)
	if err != nil {
		h.logger.Error("list users failed", slog.Any("error", err))
		httpx.Fail(w, http.StatusInternalServerError, httpx.MessageInternal)
		return
	}
	httpx.JSON(w, http.StatusOK, listResponse{Success: true, Page: page})
}

func (h *Handler) activate(w http.ResponseWriter, r *http.Request) {
	user, err := h.service.Activate(r.Context(), shared.PrincipalFromContext(r.Context()), chi.URLParam(r, "email"))
	h.respondUser(w, user, err)
}

func (h *Handler) deactivate(w http.ResponseWriter, r *http.Request) {
	user, err := h.service.Deactivate(r.Context(), shared.PrincipalFromContext(r.Context()), chi.URLParam(r, "email"))
	h.respondUser(w, user, err)
}

func (h *Handler) respondUser(w http.ResponseWriter, user User, err error) {
	switch {
	case err == nil:
		httpx.JSON(w, http.StatusOK, userResponse{Success: true, Data: user})
	case errors.Is(err, shared.ErrNotFound):
		httpx.Fail(w, http.StatusNotFound, "user not found")
	case errors.Is(err, ErrSelfDeactivation):
		httpx.Fail(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error("update user", slog.Any("error", err))
		httpx.Fail(w, http.StatusInternalServerError, httpx.MessageInternal)
	}
}

func parseListFilter(r *http.Request) (ListFilter, httpx.FieldErrors) {
	q := r.URL.Query()
	filter := ListFilter{Query: q.Get("q")}
	fields := httpx.FieldErrors{}
	if raw := q.Get("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			fields.Add("page", "must be a positive integer")
		}
		filter.Page = n
	}
	if raw := q.Get("perPage"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			fields.Add("perPage", "must be a positive integer")
		}
		filter.PerPage = n
	}
	if raw := q.Get("active"); raw != "" {
		b, err := strconv.ParseBool(raw)
		if err != nil {
			fields.Add("active", "must be true or false")
		} else {
			filter.Active = &b
		}
	}
	return filter, fields
}
