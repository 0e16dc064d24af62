package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"talkline/internal/config"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	m, err := NewManager(config.AuthConfig{
		JWTSecret:       "secret",
		JWTIssuer:       "issuer",
		JWTAudience:     "aud",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: 24 * time.Hour,
	})
	if err != nil {
		t.Fatalf("manager: %v", err)
	}
	return m
}

func TestIssueAndVerifyAccessToken(t *testing.T) {
	m := newTestManager(t)

	now := time.Unix(1700000000, 0).UTC()
	pair, err := m.IssuePair(now, "acct-1", "talker")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatalf("expected token strings")
	}

	claims, err := m.Verify(pair.AccessToken, TokenTypeAccess, now.Add(1*time.Minute))
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.AccountID != "acct-1" || claims.Role != "talker" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestVerifyRejectsWrongTokenType(t *testing.T) {
	m, _ := NewManager(config.AuthConfig{JWTSecret: "secret", AccessTokenTTL: time.Minute, RefreshTokenTTL: time.Hour})
	p, err := m.IssuePair(time.Now(), "a", "r")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := m.Verify(p.RefreshToken, TokenTypeAccess, time.Now()); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for type mismatch, got %v", err)
	}
}

func TestVerifyRejectsForeignIssuer(t *testing.T) {
	m := newTestManager(t)
	foreign, _ := NewManager(config.AuthConfig{JWTSecret: "secret", JWTIssuer: "elsewhere", JWTAudience: "aud", AccessTokenTTL: time.Minute, RefreshTokenTTL: time.Hour})
	now := time.Unix(1700000000, 0).UTC()
	p, err := foreign.IssuePair(now, "a", "talker")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := m.Verify(p.AccessToken, TokenTypeAccess, now); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for foreign issuer, got %v", err)
	}
}

func TestVerifyRejectsExpired(t *testing.T) {
	m := newTestManager(t)
	now := time.Unix(1700000000, 0).UTC()
	p, err := m.IssuePair(now, "a", "talker")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := m.Verify(p.AccessToken, TokenTypeAccess, now.Add(time.Hour)); err == nil {
		t.Fatalf("expected expiry error")
	}
}

func TestAuthenticate_RejectsTokensIssuedBeforeRevocation(t *testing.T) {
	store := NewMemoryRevocations()
	m := newTestManager(t).WithRevocations(store)
	ctx := context.Background()

	now := time.Unix(1700000000, 0).UTC()
	old, err := m.IssuePair(now, "acct-1", "talker")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	other, err := m.IssuePair(now, "acct-2", "talker")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	r := NewRevoker(store)
	r.clock = func() time.Time { return now.Add(10 * time.Second) }
	if err := r.RevokeAll(ctx, "acct-1"); err != nil {
		t.Fatalf("revoke: %v", err)
	}

	at := now.Add(20 * time.Second)
	if _, err := m.Authenticate(ctx, old.AccessToken, TokenTypeAccess, at); !errors.Is(err, ErrTokenRevoked) {
		t.Fatalf("expected ErrTokenRevoked for access token, got %v", err)
	}
	if _, err := m.Authenticate(ctx, old.RefreshToken, TokenTypeRefresh, at); !errors.Is(err, ErrTokenRevoked) {
		t.Fatalf("expected ErrTokenRevoked for refresh token, got %v", err)
	}
	if _, err := m.Authenticate(ctx, other.AccessToken, TokenTypeAccess, at); err != nil {
		t.Fatalf("other account should be unaffected, got %v", err)
	}

	fresh, err := m.IssuePair(now.Add(15*time.Second), "acct-1", "talker")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := m.Authenticate(ctx, fresh.AccessToken, TokenTypeAccess, at); err != nil {
		t.Fatalf("token issued after revocation should pass, got %v", err)
	}
	if store.Calls("acct-1") != 1 {
		t.Fatalf("expected one revocation, got %d", store.Calls("acct-1"))
	}
}

func TestRevoker_RequiresStore(t *testing.T) {
	r := NewRevoker(nil)
	if err := r.RevokeAll(context.Background(), "acct-1"); err == nil {
		t.Fatalf("expected error without a store")
	}
}
