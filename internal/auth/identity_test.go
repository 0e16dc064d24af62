package auth

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	testIssuer   = "https://id.example.test"
	testClientID = "talkline-api"
)

func signIDToken(t *testing.T, key *rsa.PrivateKey, claims jwt.MapClaims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(key)
	if err != nil {
		t.Fatalf("sign id token: %v", err)
	}
	return tok
}

func TestOIDCVerifier(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("rsa key: %v", err)
	}
	other, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("rsa key: %v", err)
	}
	now := time.Now()
	v := NewStaticOIDCVerifier(testIssuer, testClientID, nil, &key.PublicKey)
	ctx := context.Background()

	claims := func(extra jwt.MapClaims) jwt.MapClaims {
		c := jwt.MapClaims{
			"iss": testIssuer,
			"sub": "talker-1",
			"aud": testClientID,
			"iat": now.Unix(),
			"exp": now.Add(5 * time.Minute).Unix(),
		}
		for k, val := range extra {
			c[k] = val
		}
		return c
	}

	aid, err := v.VerifyIdentity(ctx, signIDToken(t, key, claims(nil)))
	if err != nil || aid != "talker-1" {
		t.Fatalf("expected talker-1, got %q %v", aid, err)
	}

	aid, err = v.VerifyIdentity(ctx, signIDToken(t, key, claims(jwt.MapClaims{"account_id": "listener-9"})))
	if err != nil || aid != "listener-9" {
		t.Fatalf("expected account_id claim to win, got %q %v", aid, err)
	}

	rejected := map[string]string{
		"foreign key":    signIDToken(t, other, claims(nil)),
		"wrong audience": signIDToken(t, key, claims(jwt.MapClaims{"aud": "someone-else"})),
		"wrong issuer":   signIDToken(t, key, claims(jwt.MapClaims{"iss": "https://evil.test"})),
		"expired":        signIDToken(t, key, claims(jwt.MapClaims{"exp": now.Add(-time.Minute).Unix()})),
		"garbage":        "not-a-jwt",
	}
	for name, raw := range rejected {
		if _, err := v.VerifyIdentity(ctx, raw); !errors.Is(err, ErrInvalidIdentity) {
			t.Fatalf("%s: expected ErrInvalidIdentity, got %v", name, err)
		}
	}
}
