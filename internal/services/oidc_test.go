package services

import (
	"context"
	"errors"
	"net/url"
	"testing"

	"github.com/HammerMeetNail/dailydoodle/internal/testutil"
)

func newTestOIDCProvider(t *testing.T) (*OIDCProvider, *testutil.OIDCServer) {
	t.Helper()
	issuer := testutil.NewOIDCServer(t, "doodle-client")
	provider, err := NewOIDCProvider(context.Background(), OIDCProviderConfig{
		Provider:     ProviderGoogle,
		ClientID:     "doodle-client",
		ClientSecret: "secret",
		RedirectURL:  "http://localhost:8080/api/auth/google/callback",
		IssuerURL:    issuer.URL,
		HTTPClient:   issuer.Client(),
	})
	if err != nil {
		t.Fatalf("NewOIDCProvider: %v", err)
	}
	return provider, issuer
}

func TestNewOIDCProvider_Validation(t *testing.T) {
	tests := []struct {
		name string
		cfg  OIDCProviderConfig
	}{
		{"missing provider", OIDCProviderConfig{ClientID: "a", ClientSecret: "b", RedirectURL: "c", IssuerURL: "d"}},
		{"missing secret", OIDCProviderConfig{Provider: ProviderGoogle, ClientID: "a", RedirectURL: "c", IssuerURL: "d"}},
		{"missing issuer", OIDCProviderConfig{Provider: ProviderGoogle, ClientID: "a", ClientSecret: "b", RedirectURL: "c"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewOIDCProvider(context.Background(), tt.cfg); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestOIDCProvider_AuthCodeURL(t *testing.T) {
	provider, issuer := newTestOIDCProvider(t)

	raw := provider.AuthCodeURL("state-1", "nonce-1")
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	q := u.Query()
	if u.Scheme+"://"+u.Host+u.Path != issuer.URL+"/authorize" {
		t.Fatalf("unexpected endpoint %s", raw)
	}
	if q.Get("state") != "state-1" || q.Get("nonce") != "nonce-1" || q.Get("client_id") != "doodle-client" {
		t.Fatalf("unexpected query %v", q)
	}
	if q.Get("scope") != "openid email profile" {
		t.Fatalf("expected default scopes, got %q", q.Get("scope"))
	}
}

func TestOIDCProvider_ExchangeAndVerify(t *testing.T) {
	provider, issuer := newTestOIDCProvider(t)
	code := issuer.IssueCode(t, testutil.OIDCUser{
		Subject:       "sub-123",
		Email:         "Ada@Example.com",
		EmailVerified: true,
		Name:          " Ada ",
	}, "nonce-1")

	claims, err := provider.ExchangeAndVerify(context.Background(), code, "nonce-1")
	if err != nil {
		t.Fatalf("ExchangeAndVerify: %v", err)
	}
	want := IdentityClaims{
		Provider:      ProviderGoogle,
		Subject:       "sub-123",
		Email:         "ada@example.com",
		EmailVerified: true,
		Name:          "Ada",
	}
	if claims != want {
		t.Fatalf("expected %+v, got %+v", want, claims)
	}
}

func TestOIDCProvider_NonceMismatch(t *testing.T) {
	provider, issuer := newTestOIDCProvider(t)
	code := issuer.IssueCode(t, testutil.OIDCUser{Subject: "s", Email: "a@example.com"}, "nonce-1")

	_, err := provider.ExchangeAndVerify(context.Background(), code, "other")
	if !errors.Is(err, ErrNonceMismatch) {
		t.Fatalf("expected ErrNonceMismatch, got %v", err)
	}
}

func TestOIDCProvider_UnknownCode(t *testing.T) {
	provider, _ := newTestOIDCProvider(t)

	if _, err := provider.ExchangeAndVerify(context.Background(), "bogus", "nonce"); err == nil {
		t.Fatal("expected exchange error")
	}
}
