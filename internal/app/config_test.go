package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("JWT_ACCESS_SECRET", "access")
	t.Setenv("JWT_REFRESH_SECRET", "refresh")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, 15*time.Minute, cfg.JWTAccessTTL)
	assert.Equal(t, 168*time.Hour, cfg.JWTRefreshTTL)
	assert.Equal(t, "(sAMAccountName={{username}})", cfg.LDAPSearchFilter)
	assert.Equal(t, "/auth", cfg.CookieRefreshPath)
	assert.False(t, cfg.RefreshSingleUse)
	assert.True(t, cfg.AuditAsync)
	assert.False(t, cfg.SecureCookies())
}

func TestLoadConfigRejectsSharedSecret(t *testing.T) {
	t.Setenv("JWT_ACCESS_SECRET", "same")
	t.Setenv("JWT_REFRESH_SECRET", "same")

	_, err := LoadConfig()
	assert.Error(t, err)
}

func TestValidateProductionSecretLength(t *testing.T) {
	cfg := &Config{AppEnv: "production", JWTAccessSecret: "short", JWTRefreshSecret: "also-short"}
	assert.Error(t, cfg.Validate())

	cfg.JWTAccessSecret = "0123456789abcdef0123456789abcdef"
	cfg.JWTRefreshSecret = "fedcba9876543210fedcba9876543210"
	assert.NoError(t, cfg.Validate())
	assert.True(t, cfg.SecureCookies())
}

func TestSecureCookiesOverride(t *testing.T) {
	off := false
	cfg := &Config{AppEnv: "production", CookieSecure: &off}
	assert.False(t, cfg.SecureCookies())
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, "DEBUG", parseLevel(&Config{LogLevel: "debug"}).String())
	assert.Equal(t, "INFO", parseLevel(&Config{LogLevel: "nonsense"}).String())
	assert.Equal(t, "INFO", parseLevel(nil).String())
}

func TestReadConfigSkipsSecretChecks(t *testing.T) {
	t.Setenv("JWT_ACCESS_SECRET", "")
	t.Setenv("JWT_REFRESH_SECRET", "")

	cfg, err := ReadConfig()
	require.NoError(t, err)
	assert.Equal(t, "ldap://127.0.0.1:389", cfg.DirectoryConfig().URL)

	_, err = LoadConfig()
	assert.Error(t, err)
}

func TestCookieConfigFollowsTokenTTL(t *testing.T) {
	cfg := &Config{JWTAccessTTL: time.Minute, JWTRefreshTTL: time.Hour, CookieRefreshPath: "/auth"}
	cookies := cfg.CookieConfig()
	assert.Equal(t, time.Minute, cookies.AccessTTL)
	assert.Equal(t, time.Hour, cookies.RefreshTTL)
	assert.Equal(t, "/auth", cookies.RefreshPath)
}
