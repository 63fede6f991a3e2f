package auth

import (
	"net/http"
	"time"
)

// Cookie names.
const (
	AccessCookieName  = "access_token"
	RefreshCookieName = "refresh_token"
)

// CookieConfig controls cookie attributes.
type CookieConfig struct {
	Secure      bool
	Domain      string
	AccessPath  string
	RefreshPath string
	AccessTTL   time.Duration
	RefreshTTL  time.Duration
}

// CookieManager writes and reads the token cookies.
type CookieManager struct {
	cfg CookieConfig
}

// NewCookieManager applies path defaults.
func NewCookieManager(cfg CookieConfig) *CookieManager {
	if cfg.AccessPath == "" {
		cfg.AccessPath = "/"
	}
	if cfg.RefreshPath == "" {
		cfg.RefreshPath = "/auth"
	}
	return &CookieManager{cfg: cfg}
}

// SetTokens writes both cookies for a freshly issued pair.
func (m *CookieManager) SetTokens(w http.ResponseWriter, pair TokenPair) {
	http.SetCookie(w, m.cookie(AccessCookieName, pair.AccessToken, m.cfg.AccessPath, m.cfg.AccessTTL))
	http.SetCookie(w, m.cookie(RefreshCookieName, pair.RefreshToken, m.cfg.RefreshPath, m.cfg.RefreshTTL))
}

// Clear expires both cookies.
func (m *CookieManager) Clear(w http.ResponseWriter) {
	access := m.cookie(AccessCookieName, "", m.cfg.AccessPath, 0)
	access.MaxAge = -1
	access.Expires = time.Unix(0, 0)
	refresh := m.cookie(RefreshCookieName, "", m.cfg.RefreshPath, 0)
	refresh.MaxAge = -1
	refresh.Expires = time.Unix(0, 0)
	http.SetCookie(w, access)
	http.SetCookie(w, refresh)
}

// AccessToken returns the access cookie value, or "".
func (m *CookieManager) AccessToken(r *http.Request) string {
	return cookieValue(r, AccessCookieName)
}

// RefreshToken returns the refresh cookie value, or "".
func (m *CookieManager) RefreshToken(r *http.Request) string {
	return cookieValue(r, RefreshCookieName)
}

func (m *CookieManager) cookie(name, value, path string, ttl time.Duration) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     path,
		Domain:   m.cfg.Domain,
		MaxAge:   int(ttl / time.Second),
		HttpOnly: true,
		Secure:   m.cfg.Secure,
		SameSite: http.SameSiteStrictMode,
	}
}

func cookieValue(r *http.Request, name string) string {
	c, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return c.Value
}
