package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"talkline/internal/config"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenRevoked = errors.New("token revoked")
)

// clockSkew is tolerated on exp, nbf and iat.
const clockSkew = 30 * time.Second

// Manager issues and checks HS256 token pairs.
type Manager struct {
	secret     []byte
	issuer     string
	audience   string
	accessTTL  time.Duration
	refreshTTL time.Duration

	revocations RevocationStore
}

func NewManager(cfg config.AuthConfig) (*Manager, error) {
	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}
	return &Manager{
		secret:     []byte(cfg.JWTSecret),
		issuer:     cfg.JWTIssuer,
		audience:   cfg.JWTAudience,
		accessTTL:  cfg.AccessTokenTTL,
		refreshTTL: cfg.RefreshTokenTTL,
	}, nil
}

// WithRevocations makes Authenticate reject tokens issued before an account-wide revocation.
func (m *Manager) WithRevocations(store RevocationStore) *Manager {
	m.revocations = store
	return m
}

// RefreshTTL is the longest lifetime of any token this manager issues.
func (m *Manager) RefreshTTL() time.Duration { return m.refreshTTL }

type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// IssuePair signs a fresh access/refresh pair. Only the access token
// carries the role.
func (m *Manager) IssuePair(now time.Time, accountID, role string) (TokenPair, error) {
	if accountID == "" {
		return TokenPair{}, errors.New("account id is required")
	}
	access, err := m.sign(m.claimsFor(now, TokenTypeAccess, accountID, role, m.accessTTL))
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := m.sign(m.claimsFor(now, TokenTypeRefresh, accountID, "", m.refreshTTL))
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// Verify checks signature, time claims and shape against now. It does not
// consult revocations. Every failure wraps ErrInvalidToken.
func (m *Manager) Verify(tokenString string, expected TokenType, now time.Time) (Claims, error) {
	var claims Claims
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	if _, err := parser.ParseWithClaims(tokenString, &claims, func(*jwt.Token) (any, error) {
		return m.secret, nil
	}); err != nil {
		return Claims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if err := m.validator(now).Validate(claims.RegisteredClaims); err != nil {
		return Claims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	switch {
	case claims.TokenType != expected:
		return Claims{}, fmt.Errorf("%w: want %s token, got %q", ErrInvalidToken, expected, claims.TokenType)
	case claims.AccountID == "":
		return Claims{}, fmt.Errorf("%w: account_id missing", ErrInvalidToken)
	case claims.IssuedAt == nil:
		return Claims{}, fmt.Errorf("%w: iat missing", ErrInvalidToken)
	case expected == TokenTypeAccess && claims.Role == "":
		return Claims{}, fmt.Errorf("%w: role missing in access token", ErrInvalidToken)
	}
	return claims, nil
}

// Authenticate is Verify plus the revocation check.
// Tokens issued at or before the account's last revocation are rejected.
func (m *Manager) Authenticate(ctx context.Context, tokenString string, expected TokenType, now time.Time) (Claims, error) {
	claims, err := m.Verify(tokenString, expected, now)
	if err != nil || m.revocations == nil {
		return claims, err
	}

	revokedAt, ok, err := m.revocations.RevokedAt(ctx, claims.AccountID)
	if err != nil {
		return Claims{}, fmt.Errorf("revocation lookup: %w", err)
	}
	if ok && !claims.IssuedAt.Time.After(revokedAt) {
		return Claims{}, ErrTokenRevoked
	}
	return claims, nil
}

func (m *Manager) validator(now time.Time) *jwt.Validator {
	opts := []jwt.ParserOption{
		jwt.WithTimeFunc(func() time.Time { return now }),
		jwt.WithLeeway(clockSkew),
		jwt.WithIssuedAt(),
		jwt.WithExpirationRequired(),
	}
	if m.issuer != "" {
		opts = append(opts, jwt.WithIssuer(m.issuer))
	}
	if m.audience != "" {
		opts = append(opts, jwt.WithAudience(m.audience))
	}
	return jwt.NewValidator(opts...)
}

func (m *Manager) claimsFor(now time.Time, typ TokenType, accountID, role string, ttl time.Duration) Claims {
	var aud jwt.ClaimStrings
	if m.audience != "" {
		aud = jwt.ClaimStrings{m.audience}
	}
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    m.issuer,
			Subject:   accountID,
			Audience:  aud,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		AccountID: accountID,
		Role:      role,
		TokenType: typ,
	}
}

func (m *Manager) sign(c Claims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(m.secret)
}
