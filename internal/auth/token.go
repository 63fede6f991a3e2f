package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/reduc/agenda/internal/ids"
)

var (
	// ErrTokenExpired is returned for tokens past their expiry.
	ErrTokenExpired = errors.New("auth: token expired")
	// ErrTokenMalformed covers bad encoding, bad signatures and missing claims.
	ErrTokenMalformed = errors.New("auth: token malformed")
	// ErrTokenTypeMismatch is returned when the type claim differs from the verifying context.
	ErrTokenTypeMismatch = errors.New("auth: token type mismatch")
)

// TokenType separates access and refresh tokens.
type TokenType string

// Token types.
const (
	TokenAccess  TokenType = "access"
	TokenRefresh TokenType = "refresh"
)

// Claims is the JWT payload for both token types.
type Claims struct {
	Email   string    `json:"email,omitempty"`
	Roles   []string  `json:"roles,omitempty"`
	Type    TokenType `json:"type"`
	TokenID string    `json:"tokenId,omitempty"`
	jwt.RegisteredClaims
}

// TokenConfig configures signing.
type TokenConfig struct {
	AccessSecret  []byte
	RefreshSecret []byte
	Issuer        string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
}

// TokenIssuer mints and verifies HS256 tokens. Access and refresh tokens
// use distinct secrets.
type TokenIssuer struct {
	cfg   TokenConfig
	now   func() time.Time
	newID func() string
}

// NewTokenIssuer validates cfg and returns an issuer.
func NewTokenIssuer(cfg TokenConfig) (*TokenIssuer, error) {
	if len(cfg.AccessSecret) == 0 || len(cfg.RefreshSecret) == 0 {
		return nil, errors.New("auth: access and refresh secrets are required")
	}
	if string(cfg.AccessSecret) == string(cfg.RefreshSecret) {
		return nil, errors.New("auth: access and refresh secrets must differ")
	}
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = 15 * time.Minute
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = 7 * 24 * time.Hour
	}
	return &TokenIssuer{cfg: cfg, now: time.Now, newID: ids.New}, nil
}

// AccessTTL returns the configured access token lifetime.
func (i *TokenIssuer) AccessTTL() time.Duration { return i.cfg.AccessTTL }

// RefreshTTL returns the configured refresh token lifetime.
func (i *TokenIssuer) RefreshTTL() time.Duration { return i.cfg.RefreshTTL }

// IssueAccessToken signs a short-lived access token.
func (i *TokenIssuer) IssueAccessToken(userID, email string, roles []string) (string, time.Time, error) {
	now := i.now()
	claims := Claims{
		Email: email,
		Roles: append([]string(nil), roles...),
		Type:  TokenAccess,
	}
	claims.RegisteredClaims = i.registered(userID, i.newID(), now, i.cfg.AccessTTL)
	signed, err := i.sign(claims, i.cfg.AccessSecret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, claims.ExpiresAt.Time, nil
}

// IssueRefreshToken signs a refresh token carrying a fresh tokenId.
func (i *TokenIssuer) IssueRefreshToken(userID string) (string, *Claims, error) {
	now := i.now()
	tokenID := i.newID()
	claims := &Claims{Type: TokenRefresh, TokenID: tokenID}
	claims.RegisteredClaims = i.registered(userID, tokenID, now, i.cfg.RefreshTTL)
	signed, err := i.sign(claims, i.cfg.RefreshSecret)
	if err != nil {
		return "", nil, err
	}
	return signed, claims, nil
}

// IssuePair mints an access and refresh token for the same subject.
func (i *TokenIssuer) IssuePair(userID, email string, roles []string) (TokenPair, error) {
	access, accessExp, err := i.IssueAccessToken(userID, email, roles)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, refreshClaims, err := i.IssueRefreshToken(userID)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{
		AccessToken:      access,
		AccessExpiresAt:  accessExp,
		RefreshToken:     refresh,
		RefreshExpiresAt: refreshClaims.ExpiresAt.Time,
	}, nil
}

// Verify parses token and checks it was issued as the expected type.
func (i *TokenIssuer) Verify(token string, expected TokenType) (*Claims, error) {
	if token == "" {
		return nil, ErrTokenMalformed
	}
	secret, err := i.secretFor(expected)
	if err != nil {
		return nil, err
	}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(i.now),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
	}
	if i.cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(i.cfg.Issuer))
	}
	claims := &Claims{}
	_, err = jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return secret, nil
	}, opts...)
	if err != nil {
		return nil, i.classify(token, expected, err)
	}
	if claims.Type != expected {
		return nil, ErrTokenTypeMismatch
	}
	if claims.Subject == "" || (expected == TokenRefresh && claims.TokenID == "") {
		return nil, ErrTokenMalformed
	}
	return claims, nil
}

// classify maps parser errors. A signature failure on a well-formed token
// of the other type is reported as a type mismatch.
func (i *TokenIssuer) classify(token string, expected TokenType, err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		peek := &Claims{}
		if _, _, perr := jwt.NewParser().ParseUnverified(token, peek); perr == nil && peek.Type != "" && peek.Type != expected {
			return ErrTokenTypeMismatch
		}
		return fmt.Errorf("%w: %w", ErrTokenMalformed, err)
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrTokenExpired
	default:
		return fmt.Errorf("%w: %w", ErrTokenMalformed, err)
	}
}

func (i *TokenIssuer) secretFor(t TokenType) ([]byte, error) {
	switch t {
	case TokenAccess:
		return i.cfg.AccessSecret, nil
	case TokenRefresh:
		return i.cfg.RefreshSecret, nil
	default:
		return nil, fmt.Errorf("auth: unknown token type %q", t)
	}
}

func (i *TokenIssuer) registered(subject, id string, now time.Time, ttl time.Duration) jwt.RegisteredClaims {
	return jwt.RegisteredClaims{
		Subject:   subject,
		Issuer:    i.cfg.Issuer,
		ID:        id,
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
}

func (i *TokenIssuer) sign(claims jwt.Claims, secret []byte) (string, error) {
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("auth: sign token: %w", err)
	}
	return signed, nil
}
