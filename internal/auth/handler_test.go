package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reduc/agenda/internal/audit"
)

type harness struct {
	*fixture
	router http.Handler
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	f := newFixture(t)
	cookies := NewCookieManager(CookieConfig{
		Secure:     true,
		AccessTTL:  f.tokens.AccessTTL(),
		RefreshTTL: f.tokens.RefreshTTL(),
	})
	guard := NewGuard(f.tokens, f.service, cookies, f.audit, nil)
	handler := NewHandler(nil, f.service, guard, cookies, 100)
	r := chi.NewRouter()
	r.Route("/auth", handler.MountRoutes)
	return &harness{fixture: f, router: r}
}

func (h *harness) do(method, path, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	return rec
}

func findCookie(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func (h *harness) login(t *testing.T) (*http.Cookie, *http.Cookie) {
	t.Helper()
	rec := h.do(http.MethodPost, "/auth/login", `{"username":"rector","password":"s3cret"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	access, refresh := findCookie(rec, AccessCookieName), findCookie(rec, RefreshCookieName)
	require.NotNil(t, access)
	require.NotNil(t, refresh)
	return access, refresh
}

func TestLoginEndpointSetsCookies(t *testing.T) {
	h := newHarness(t)
	rec := h.do(http.MethodPost, "/auth/login", `{"username":"rector","password":"s3cret"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode(t, rec)
	assert.Equal(t, true, body["success"])
	assert.NotEmpty(t, body["accessToken"])
	user := body["user"].(map[string]any)
	assert.Equal(t, "rector@uni.edu", user["email"])
	assert.Equal(t, []any{"USUARIO", "RECTOR", "DIRECTIVO"}, user["roles"])

	refresh := findCookie(rec, RefreshCookieName)
	require.NotNil(t, refresh)
	assert.True(t, refresh.HttpOnly)
	assert.True(t, refresh.Secure)
	assert.Equal(t, http.SameSiteStrictMode, refresh.SameSite)
	assert.Equal(t, "/auth", refresh.Path)
	assert.Equal(t, int((7 * 24 * time.Hour).Seconds()), refresh.MaxAge)

	access := findCookie(rec, AccessCookieName)
	require.NotNil(t, access)
	assert.Equal(t, "/", access.Path)
	assert.Equal(t, 900, access.MaxAge)
	assert.Equal(t, body["accessToken"], access.Value)
}

func TestLoginEndpointUniformUnauthorized(t *testing.T) {
	h := newHarness(t)
	ghost := h.do(http.MethodPost, "/auth/login", `{"username":"ghost","password":"x"}`)
	wrong := h.do(http.MethodPost, "/auth/login", `{"username":"rector","password":"x"}`)

	assert.Equal(t, http.StatusUnauthorized, ghost.Code)
	assert.Equal(t, http.StatusUnauthorized, wrong.Code)
	assert.JSONEq(t, ghost.Body.String(), wrong.Body.String())
	assert.Nil(t, findCookie(ghost, RefreshCookieName))
}

func TestLoginEndpointValidation(t *testing.T) {
	h := newHarness(t)
	rec := h.do(http.MethodPost, "/auth/login", `{"username":"ab","password":""}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	body := decode(t, rec)
	errs := body["errors"].(map[string]any)
	assert.Contains(t, errs, "username")
	assert.Contains(t, errs, "password")
	assert.Zero(t, h.dir.calls)

	rec = h.do(http.MethodPost, "/auth/login", `{"username":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLoginEndpointDirectoryOutage(t *testing.T) {
	h := newHarness(t)
	h.dir.err = errBoom
	rec := h.do(http.MethodPost, "/auth/login", `{"username":"rector","password":"s3cret"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestProfileAndMe(t *testing.T) {
	h := newHarness(t)
	access, _ := h.login(t)

	for _, path := range []string{"/auth/profile", "/auth/me"} {
		rec := h.do(http.MethodGet, path, "", access)
		require.Equal(t, http.StatusOK, rec.Code, path)
		user := decode(t, rec)["user"].(map[string]any)
		assert.Equal(t, "Ana Rector", user["name"])
	}
}

func TestGuardRejectsUniformly(t *testing.T) {
	h := newHarness(t)
	access, refresh := h.login(t)

	missing := h.do(http.MethodGet, "/auth/me", "")
	garbage := h.do(http.MethodGet, "/auth/me", "", &http.Cookie{Name: AccessCookieName, Value: "garbage"})
	wrongType := h.do(http.MethodGet, "/auth/me", "", &http.Cookie{Name: AccessCookieName, Value: refresh.Value})

	h.tokens.now = func() time.Time { return testNow.Add(time.Hour) }
	expired := h.do(http.MethodGet, "/auth/me", "", access)

	for _, rec := range []*httptest.ResponseRecorder{missing, garbage, wrongType, expired} {
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "access not authorized", decode(t, rec)["message"])
	}

	assert.Equal(t, []audit.Action{
		audit.ActionLogin,
		audit.ActionUnauthorizedAccess,
		audit.ActionUnauthorizedAccess,
		audit.ActionTokenExpired,
	}, h.audit.actions())
}

func TestGuardRejectsInactiveUser(t *testing.T) {
	h := newHarness(t)
	access, _ := h.login(t)

	var userID string
	for id := range h.users.byID {
		userID = id
	}
	h.users.setActive(userID, false)

	rec := h.do(http.MethodGet, "/auth/me", "", access)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "access not authorized", decode(t, rec)["message"])
}

func TestRefreshEndpointRotatesCookies(t *testing.T) {
	h := newHarness(t)
	_, refresh := h.login(t)

	rec := h.do(http.MethodPost, "/auth/refresh", "", refresh)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.NotEmpty(t, body["accessToken"])

	rotated := findCookie(rec, RefreshCookieName)
	require.NotNil(t, rotated)
	assert.NotEqual(t, refresh.Value, rotated.Value)
	assert.NotNil(t, findCookie(rec, AccessCookieName))
}

func TestRefreshEndpointRejects(t *testing.T) {
	h := newHarness(t)
	access, _ := h.login(t)

	rec := h.do(http.MethodPost, "/auth/refresh", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = h.do(http.MethodPost, "/auth/refresh", "", &http.Cookie{Name: RefreshCookieName, Value: access.Value})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	cleared := findCookie(rec, RefreshCookieName)
	require.NotNil(t, cleared)
	assert.Equal(t, -1, cleared.MaxAge)
}

func TestLogoutClearsCookies(t *testing.T) {
	h := newHarness(t)
	access, refresh := h.login(t)

	rec := h.do(http.MethodPost, "/auth/logout", "", access, refresh)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decode(t, rec)["success"])

	for _, name := range []string{AccessCookieName, RefreshCookieName} {
		c := findCookie(rec, name)
		require.NotNil(t, c, name)
		assert.Equal(t, -1, c.MaxAge)
		assert.Empty(t, c.Value)
	}
	assert.Contains(t, h.audit.actions(), audit.ActionLogout)

	rec = h.do(http.MethodPost, "/auth/logout", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "203.0.113.9:5123"
	assert.Equal(t, "203.0.113.9", ClientIP(req))

	req.RemoteAddr = "203.0.113.9"
	assert.Equal(t, "203.0.113.9", ClientIP(req))
}
