package audithttp

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/reduc/agenda/internal/audit"
	"github.com/reduc/agenda/internal/platform/httpx"
	"github.com/reduc/agenda/internal/rbac"
)

const (
	defaultDateRange  = 7 * 24 * time.Hour
	maxDateRangeHours = 24 * 90
	dateLayout        = "2006-01-02"
)

// TimelineService defines the business contract for timeline data.
type TimelineService interface {
	Timeline(ctx context.Context, filters audit.TimelineFilters) (audit.Result, error)
	Export(ctx context.Context, filters audit.TimelineFilters) ([]audit.Entry, error)
}

// Handler serves the auth audit timeline to administrators.
type Handler struct {
	logger  *slog.Logger
	service TimelineService
	rbac    rbac.Middleware
	now     func() time.Time
}

// NewHandler creates a new audit handler.
func NewHandler(logger *slog.Logger, service TimelineService, rbac rbac.Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, rbac: rbac, now: time.Now}
}

type timelineResponse struct {
	Success bool         `json:"success"`
	Data    audit.Result `json:"data"`
}

func (h *Handler) handleTimeline(w http.ResponseWriter, r *http.Request) {
	filters, err := h.parseFilters(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	result, err := h.service.Timeline(r.Context(), filters)
	if err != nil {
		h.handleServerError(w, "audit timeline", err)
		return
	}
	httpx.JSON(w, http.StatusOK, timelineResponse{Success: true, Data: result})
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	filters, err := h.parseFilters(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	rows, err := h.service.Export(r.Context(), filters)
	if err != nil {
		h.handleServerError(w, "audit export", err)
		return
	}
	body, err := audit.WriteCSV(rows)
	if err != nil {
		h.handleServerError(w, "audit csv", err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", "attachment; filename=\"auth-audit.csv\"")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		h.logger.Warn("write csv", slog.Any("error", err))
	}
}

func (h *Handler) parseFilters(r *http.Request) (audit.TimelineFilters, error) {
	q := r.URL.Query()
	fields := httpx.FieldErrors{}

	now := h.now().UTC()
	toTime := now.Truncate(24 * time.Hour).Add(24 * time.Hour)
	if v := strings.TrimSpace(q.Get("to")); v != "" {
		parsed, err := time.Parse(dateLayout, v)
		if err != nil {
			fields.Add("to", "must be a date in YYYY-MM-DD format")
		}
		toTime = parsed.Add(24 * time.Hour)
	}
	fromTime := toTime.Add(-defaultDateRange)
	if v := strings.TrimSpace(q.Get("from")); v != "" {
		parsed, err := time.Parse(dateLayout, v)
		if err != nil {
			fields.Add("from", "must be a date in YYYY-MM-DD format")
		}
		fromTime = parsed
	}
	if len(fields) == 0 {
		if !fromTime.Before(toTime) {
			fields.Add("range", "from must not be after to")
		} else if toTime.Sub(fromTime) > maxDateRangeHours*time.Hour {
			fields.Add("range", "range must not exceed 90 days")
		}
	}

	page := positiveInt(q.Get("page"), 1, "page", fields)
	pageSize := positiveInt(q.Get("page_size"), 0, "page_size", fields)

	action := strings.ToUpper(strings.TrimSpace(q.Get("action")))
	if action != "" && !knownAction(audit.Action(action)) {
		fields.Add("action", "unknown action")
	}

	if len(fields) > 0 {
		return audit.TimelineFilters{}, &httpx.ValidationError{Fields: fields}
	}
	return audit.TimelineFilters{
		From:     fromTime,
		To:       toTime,
		Actor:    strings.TrimSpace(q.Get("actor")),
		Action:   action,
		Page:     page,
		PageSize: pageSize,
	}, nil
}

func positiveInt(raw string, fallback int, field string, fields httpx.FieldErrors) int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		fields.Add(field, "must be a positive integer")
		return fallback
	}
	return v
}

func knownAction(a audit.Action) bool {
	switch a {
	case audit.ActionLogin, audit.ActionLoginFailed, audit.ActionLogout, audit.ActionTokenExpired, audit.ActionUnauthorizedAccess:
		return true
	}
	return false
}

func (h *Handler) handleServerError(w http.ResponseWriter, message string, err error) {
	if errors.Is(err, context.Canceled) {
		return
	}
	h.logger.Error(message, slog.Any("error", err))
	httpx.Fail(w, http.StatusInternalServerError, httpx.MessageInternal)
}
