package httpx

import (
	"errors"
	"net/http"
)

// Sentinel errors for domain layer.
var (
	ErrNotFound     = errors.New("resource not found")
	ErrDuplicate    = errors.New("duplicate entry")
	ErrValidation   = errors.New("validation failed")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")
)

// Messages rendered to clients. Internal causes are never echoed.
const (
	MessageUnauthorized = "access not authorized"
	MessageForbidden    = "insufficient role"
	MessageInternal     = "internal server error"
	MessageInvalidBody  = "invalid request body"
)

// RespondError maps domain errors to HTTP responses.
func RespondError(w http.ResponseWriter, err error) {
	var fields *ValidationError
	switch {
	case errors.As(err, &fields):
		JSON(w, http.StatusBadRequest, Envelope{Success: false, Message: ErrValidation.Error(), Errors: fields.Fields})
	case errors.Is(err, ErrNotFound):
		Fail(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrDuplicate):
		Fail(w, http.StatusConflict, err.Error())
	case errors.Is(err, ErrValidation):
		Fail(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrForbidden):
		Fail(w, http.StatusForbidden, MessageForbidden)
	case errors.Is(err, ErrUnauthorized):
		Fail(w, http.StatusUnauthorized, MessageUnauthorized)
	default:
		Fail(w, http.StatusInternalServerError, MessageInternal)
	}
}
