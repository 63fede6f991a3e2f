package directoryhttp

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/reduc/agenda/internal/directory"
	"github.com/reduc/agenda/internal/platform/httpx"
	"github.com/reduc/agenda/internal/rbac"
)

// Directory is the read side of the directory used by administrators.
type Directory interface {
	Lookup(ctx context.Context, username string) (directory.Identity, error)
	Search(ctx context.Context, term string, limit int) ([]directory.Identity, error)
}

// Handler exposes directory search to administrators.
type Handler struct {
	logger    *slog.Logger
	directory Directory
	rbac      rbac.Middleware
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, dir Directory, rbac rbac.Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, directory: dir, rbac: rbac}
}

// MountRoutes registers directory routes. Callers must mount it behind the
// access-token guard.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(rbac.RoleAdministrador))
		r.Get("/users", h.search)
		r.Get("/users/{username}", h.lookup)
	})
}

type searchResponse struct {
	Success bool                 `json:"success"`
	Data    []directory.Identity `json:"data"`
}

type lookupResponse struct {
	Success bool               `json:"success"`
	Data    directory.Identity `json:"data"`
}

func (h *Handler) search(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			fields := httpx.FieldErrors{}
			fields.Add("limit", "must be a positive integer")
			httpx.RespondError(w, &httpx.ValidationError{Fields: fields})
			return
		}
		limit = n
	}
	identities, err := h.directory.Search(r.Context(), r.URL.Query().Get("q"), limit)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, searchResponse{Success: true, Data: identities})
}

func (h *Handler) lookup(w http.ResponseWriter, r *http.Request) {
	identity, err := h.directory.Lookup(r.Context(), chi.URLParam(r, "username"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, lookupResponse{Success: true, Data: identity})
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, directory.ErrUserNotFound):
		httpx.Fail(w, http.StatusNotFound, "directory entry not found")
	case errors.Is(err, directory.ErrConnection):
		h.logger.Error("directory unavailable", slog.Any("error", err))
		httpx.Fail(w, http.StatusBadGateway, "directory unavailable")
	default:
		h.logger.Error("directory request", slog.Any("error", err))
		httpx.Fail(w, http.StatusInternalServerError, httpx.MessageInternal)
	}
}
