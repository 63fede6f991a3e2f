package httpx

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sampleRequest struct {
	Username string `json:"username" validate:"required,min=3,max=50,username"`
	Password string `json:"password" validate:"required,max=200"`
}

func TestValidatorReportsJSONFieldNames(t *testing.T) {
	v := NewValidator()

	err := v.Check(sampleRequest{Username: "a!"})
	require.Error(t, err)

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.True(t, errors.Is(err, ErrValidation))
	assert.Contains(t, verr.Fields, "username")
	assert.Contains(t, verr.Fields, "password")
	assert.Equal(t, []string{"must be at least 3 characters"}, verr.Fields["username"])
}

func TestValidatorAcceptsValidInput(t *testing.T) {
	v := NewValidator()
	assert.NoError(t, v.Check(sampleRequest{Username: "j.perez-2", Password: "x"}))
}

func TestRespondErrorRendersFieldErrors(t *testing.T) {
	rr := httptest.NewRecorder()
	RespondError(rr, &ValidationError{Fields: FieldErrors{"username": {"is required"}}})

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.True(t, strings.Contains(rr.Body.String(), `"username":["is required"]`))
	assert.True(t, strings.Contains(rr.Body.String(), `"success":false`))
}

func TestRespondErrorHidesInternalCause(t *testing.T) {
	rr := httptest.NewRecorder()
	RespondError(rr, errors.New("pq: relation users does not exist"))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.NotContains(t, rr.Body.String(), "relation")
}

func TestDecodeJSONRejectsUnknownFields(t *testing.T) {
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"username":"abc","extra":1}`))
	var body sampleRequest
	assert.Error(t, DecodeJSON(rr, req, &body))
}
