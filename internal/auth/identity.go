package auth

import (
	"context"
	"crypto"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
)

var ErrInvalidIdentity = errors.New("invalid identity assertion")

// IdentityVerifier turns a credential issued by the identity provider in
// front of talkline into an account id.
type IdentityVerifier interface {
	VerifyIdentity(ctx context.Context, rawIDToken string) (string, error)
}

// OIDCVerifier checks OpenID Connect ID tokens: signature, issuer, audience
// and expiry. The account id is the token's account_id claim when present,
// else its subject.
type OIDCVerifier struct {
	verifier *oidc.IDTokenVerifier
}

// NewOIDCVerifier discovers the provider's signing keys from issuer.
func NewOIDCVerifier(ctx context.Context, issuer, clientID string) (*OIDCVerifier, error) {
	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("oidc discovery %s: %w", issuer, err)
	}
	return &OIDCVerifier{verifier: provider.Verifier(&oidc.Config{ClientID: clientID})}, nil
}

// NewStaticOIDCVerifier verifies against a fixed key set instead of discovery.
// now may be nil.
func NewStaticOIDCVerifier(issuer, clientID string, now func() time.Time, keys ...crypto.PublicKey) *OIDCVerifier {
	cfg := &oidc.Config{ClientID: clientID, Now: now}
	return &OIDCVerifier{verifier: oidc.NewVerifier(issuer, &oidc.StaticKeySet{PublicKeys: keys}, cfg)}
}

func (v *OIDCVerifier) VerifyIdentity(ctx context.Context, rawIDToken string) (string, error) {
	tok, err := v.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidIdentity, err)
	}
	var extra struct {
		AccountID string `json:"account_id"`
	}
	if err := tok.Claims(&extra); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidIdentity, err)
	}
	aid := strings.TrimSpace(extra.AccountID)
	if aid == "" {
		aid = tok.Subject
	}
	if aid == "" {
		return "", fmt.Errorf("%w: no subject", ErrInvalidIdentity)
	}
	return aid, nil
}
