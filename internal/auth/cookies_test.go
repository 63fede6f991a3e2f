package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCookieManagerDefaultsAndReads(t *testing.T) {
	m := NewCookieManager(CookieConfig{Domain: "agenda.uni.edu", AccessTTL: time.Minute, RefreshTTL: time.Hour})
	rec := httptest.NewRecorder()
	m.SetTokens(rec, TokenPair{AccessToken: "a", RefreshToken: "r"})

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 2)
	assert.Equal(t, "/", cookies[0].Path)
	assert.Equal(t, "/auth", cookies[1].Path)
	assert.Equal(t, "agenda.uni.edu", cookies[1].Domain)
	assert.False(t, cookies[1].Secure)
	assert.Equal(t, 3600, cookies[1].MaxAge)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Empty(t, m.AccessToken(req))
	for _, c := range cookies {
		req.AddCookie(c)
	}
	assert.Equal(t, "a", m.AccessToken(req))
	assert.Equal(t, "r", m.RefreshToken(req))
}
