package rbac

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/reduc/agenda/internal/platform/httpx"
	"github.com/reduc/agenda/internal/shared"
)

// Handler exposes role lookups and administrative grants.
type Handler struct {
	logger    *slog.Logger
	resolver  *Resolver
	rbac      Middleware
	validator *httpx.Validator
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, resolver *Resolver, rbac Middleware) *Handler {
	return &Handler{logger: logger, resolver: resolver, rbac: rbac, validator: httpx.NewValidator()}
}

// MountRoutes registers role routes. Callers must mount it behind the
// access-token guard.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/roles/{email}", h.effectiveRoles)
	r.Post("/verify-role", h.verifyRole)
	r.Post("/verify-base-role", h.verifyBaseRole)
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(RoleAdministrador))
		r.Get("/roles/{email}/assignments", h.listAssignments)
		r.Post("/roles", h.assignRole)
		r.Delete("/roles", h.removeRole)
	})
}

type roleRequest struct {
	Email string `json:"email" validate:"required,email,max=254"`
	Role  string `json:"role" validate:"required,max=64"`
}

type rolesResponse struct {
	Success bool             `json:"success"`
	Data    EffectiveRoleSet `json:"data"`
}

type verifyResponse struct {
	Success bool `json:"success"`
	HasRole bool `json:"hasRole"`
}

type assignmentsResponse struct {
	Success bool         `json:"success"`
	Data    []Assignment `json:"data"`
}

func (h *Handler) effectiveRoles(w http.ResponseWriter, r *http.Request) {
	email := shared.NormalizeEmail(chi.URLParam(r, "email"))
	if !h.canInspect(r, email) {
		httpx.Fail(w, http.StatusForbidden, httpx.MessageForbidden)
		return
	}
	set, err := h.resolver.EffectiveRoles(r.Context(), email)
	if err != nil {
		h.respondError(w, "effective roles", err)
		return
	}
	httpx.JSON(w, http.StatusOK, rolesResponse{Success: true, Data: set})
}

func (h *Handler) verifyRole(w http.ResponseWriter, r *http.Request) {
	req, role, ok := h.decodeRoleRequest(w, r)
	if !ok {
		return
	}
	if !h.canInspect(r, req.Email) {
		httpx.Fail(w, http.StatusForbidden, httpx.MessageForbidden)
		return
	}
	has, err := h.resolver.HasRole(r.Context(), req.Email, role)
	if err != nil {
		h.respondError(w, "verify role", err)
		return
	}
	httpx.JSON(w, http.StatusOK, verifyResponse{Success: true, HasRole: has})
}

func (h *Handler) verifyBaseRole(w http.ResponseWriter, r *http.Request) {
	req, role, ok := h.decodeRoleRequest(w, r)
	if !ok {
		return
	}
	if !h.canInspect(r, req.Email) {
		httpx.Fail(w, http.StatusForbidden, httpx.MessageForbidden)
		return
	}
	has, err := h.resolver.HasBaseRole(r.Context(), req.Email, role)
	if err != nil {
		h.respondError(w, "verify base role", err)
		return
	}
	httpx.JSON(w, http.StatusOK, verifyResponse{Success: true, HasRole: has})
}

func (h *Handler) listAssignments(w http.ResponseWriter, r *http.Request) {
	assignments, err := h.resolver.ListAssignments(r.Context(), chi.URLParam(r, "email"))
	if err != nil {
		h.respondError(w, "list assignments", err)
		return
	}
	if assignments == nil {
		assignments = []Assignment{}
	}
	httpx.JSON(w, http.StatusOK, assignmentsResponse{Success: true, Data: assignments})
}

func (h *Handler) assignRole(w http.ResponseWriter, r *http.Request) {
	req, role, ok := h.decodeRoleRequest(w, r)
	if !ok {
		return
	}
	if err := h.resolver.AssignRole(r.Context(), req.Email, role); err != nil {
		h.respondError(w, "assign role", err)
		return
	}
	h.logger.Info("role assigned", slog.String("email", req.Email), slog.String("role", string(role)), slog.String("by", actor(r)))
	httpx.JSON(w, http.StatusCreated, httpx.Envelope{Success: true, Message: "role assigned"})
}

func (h *Handler) removeRole(w http.ResponseWriter, r *http.Request) {
	req, role, ok := h.decodeRoleRequest(w, r)
	if !ok {
		return
	}
	if err := h.resolver.RemoveRole(r.Context(), req.Email, role); err != nil {
		h.respondError(w, "remove role", err)
		return
	}
	h.logger.Info("role removed", slog.String("email", req.Email), slog.String("role", string(role)), slog.String("by", actor(r)))
	httpx.JSON(w, http.StatusOK, httpx.Envelope{Success: true, Message: "role removed"})
}

func (h *Handler) decodeRoleRequest(w http.ResponseWriter, r *http.Request) (roleRequest, Role, bool) {
	var req roleRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, httpx.MessageInvalidBody)
		return req, "", false
	}
	if err := h.validator.Check(req); err != nil {
		httpx.RespondError(w, err)
		return req, "", false
	}
	role, err := ParseRole(req.Role)
	if err != nil {
		httpx.RespondError(w, &httpx.ValidationError{Fields: httpx.FieldErrors{"role": {"unknown role"}}})
		return req, "", false
	}
	req.Email = shared.NormalizeEmail(req.Email)
	return req, role, true
}

// canInspect allows users to query themselves; anyone else needs ADMINISTRADOR.
func (h *Handler) canInspect(r *http.Request, email string) bool {
	principal := shared.PrincipalFromContext(r.Context())
	if principal == nil {
		return false
	}
	if shared.NormalizeEmail(principal.Email) == email {
		return true
	}
	set, err := h.resolver.EffectiveRoles(r.Context(), principal.Email)
	if err != nil {
		h.logger.Warn("resolve caller roles", slog.Any("error", err))
		return false
	}
	return set.Has(RoleAdministrador)
}

func (h *Handler) respondError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrUserNotFound):
		httpx.Fail(w, http.StatusNotFound, "user not found")
	case errors.Is(err, ErrInvalidRole):
		httpx.RespondError(w, &httpx.ValidationError{Fields: httpx.FieldErrors{"role": {"role is not assignable"}}})
	case errors.Is(err, ErrAlreadyAssigned):
		httpx.Fail(w, http.StatusConflict, "role already assigned")
	case errors.Is(err, ErrNotAssigned):
		httpx.Fail(w, http.StatusNotFound, "role not assigned")
	default:
		h.logger.Error(op, slog.Any("error", err))
		httpx.Fail(w, http.StatusInternalServerError, httpx.MessageInternal)
	}
}

func actor(r *http.Request) string {
	if p := shared.PrincipalFromContext(r.Context()); p != nil {
		return p.Email
	}
	return ""
}
