package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)

func newTestIssuer(t *testing.T) *TokenIssuer {
	t.Helper()
	issuer, err := NewTokenIssuer(TokenConfig{
		AccessSecret:  []byte("access-secret-for-tests"),
		RefreshSecret: []byte("refresh-secret-for-tests"),
		Issuer:        "agenda",
	})
	require.NoError(t, err)
	issuer.now = func() time.Time { return testNow }
	return issuer
}

func TestNewTokenIssuerRejectsBadSecrets(t *testing.T) {
	_, err := NewTokenIssuer(TokenConfig{AccessSecret: []byte("a")})
	assert.Error(t, err)

	_, err = NewTokenIssuer(TokenConfig{AccessSecret: []byte("same"), RefreshSecret: []byte("same")})
	assert.Error(t, err)
}

func TestNewTokenIssuerDefaultsTTL(t *testing.T) {
	issuer := newTestIssuer(t)
	assert.Equal(t, 15*time.Minute, issuer.AccessTTL())
	assert.Equal(t, 7*24*time.Hour, issuer.RefreshTTL())
}

func TestAccessTokenRoundTrip(t *testing.T) {
	issuer := newTestIssuer(t)

	token, exp, err := issuer.IssueAccessToken("user-1", "rector@uni.edu", []string{"USUARIO", "RECTOR"})
	require.NoError(t, err)
	assert.Equal(t, testNow.Add(15*time.Minute), exp)

	claims, err := issuer.Verify(token, TokenAccess)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject)
	assert.Equal(t, "rector@uni.edu", claims.Email)
	assert.Equal(t, []string{"USUARIO", "RECTOR"}, claims.Roles)
	assert.Equal(t, TokenAccess, claims.Type)
	assert.Empty(t, claims.TokenID)
}

func TestRefreshTokenCarriesUniqueTokenID(t *testing.T) {
	issuer := newTestIssuer(t)

	first, firstClaims, err := issuer.IssueRefreshToken("user-1")
	require.NoError(t, err)
	second, secondClaims, err := issuer.IssueRefreshToken("user-1")
	require.NoError(t, err)

	assert.NotEmpty(t, firstClaims.TokenID)
	assert.NotEqual(t, firstClaims.TokenID, secondClaims.TokenID)
	assert.NotEqual(t, first, second)
	assert.Equal(t, testNow.Add(7*24*time.Hour), firstClaims.ExpiresAt.Time)

	claims, err := issuer.Verify(first, TokenRefresh)
	require.NoError(t, err)
	assert.Equal(t, firstClaims.TokenID, claims.TokenID)
	assert.Equal(t, TokenRefresh, claims.Type)
}

func TestTokensAreNotInterchangeable(t *testing.T) {
	issuer := newTestIssuer(t)
	pair, err := issuer.IssuePair("user-1", "a@uni.edu", []string{"USUARIO"})
	require.NoError(t, err)

	_, err = issuer.Verify(pair.RefreshToken, TokenAccess)
	assert.ErrorIs(t, err, ErrTokenTypeMismatch)

	_, err = issuer.Verify(pair.AccessToken, TokenRefresh)
	assert.ErrorIs(t, err, ErrTokenTypeMismatch)
}

func TestVerifyRejectsTypeClaimSignedWithWrongContext(t *testing.T) {
	issuer := newTestIssuer(t)
	claims := Claims{Type: TokenRefresh, TokenID: "x"}
	claims.RegisteredClaims = issuer.registered("user-1", "x", testNow, time.Minute)
	token, err := issuer.sign(claims, issuer.cfg.AccessSecret)
	require.NoError(t, err)

	_, err = issuer.Verify(token, TokenAccess)
	assert.ErrorIs(t, err, ErrTokenTypeMismatch)
}

func TestVerifyExpired(t *testing.T) {
	issuer := newTestIssuer(t)
	token, _, err := issuer.IssueAccessToken("user-1", "a@uni.edu", nil)
	require.NoError(t, err)

	issuer.now = func() time.Time { return testNow.Add(16 * time.Minute) }
	_, err = issuer.Verify(token, TokenAccess)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestVerifyMalformed(t *testing.T) {
	issuer := newTestIssuer(t)

	_, err := issuer.Verify("", TokenAccess)
	assert.ErrorIs(t, err, ErrTokenMalformed)

	_, err = issuer.Verify("not.a.jwt", TokenAccess)
	assert.ErrorIs(t, err, ErrTokenMalformed)

	token, _, err := issuer.IssueAccessToken("user-1", "a@uni.edu", nil)
	require.NoError(t, err)
	parts := strings.Split(token, ".")
	tampered := parts[0] + "." + parts[1] + ".c2lnbmF0dXJl"
	_, err = issuer.Verify(tampered, TokenAccess)
	assert.ErrorIs(t, err, ErrTokenMalformed)
}

func TestVerifyRejectsOtherAlgorithms(t *testing.T) {
	issuer := newTestIssuer(t)
	claims := Claims{Type: TokenAccess}
	claims.RegisteredClaims = issuer.registered("user-1", "id", testNow, time.Minute)
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString(issuer.cfg.AccessSecret)
	require.NoError(t, err)

	_, err = issuer.Verify(token, TokenAccess)
	assert.ErrorIs(t, err, ErrTokenMalformed)
}

func TestVerifyRequiresSubject(t *testing.T) {
	issuer := newTestIssuer(t)
	token, _, err := issuer.IssueAccessToken("", "a@uni.edu", nil)
	require.NoError(t, err)

	_, err = issuer.Verify(token, TokenAccess)
	assert.ErrorIs(t, err, ErrTokenMalformed)
}
