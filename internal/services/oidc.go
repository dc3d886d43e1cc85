package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
)

type Provider string

const (
	ProviderGoogle Provider = "google"
)

var (
	ErrMissingIDToken = errors.New("missing id_token in oauth response")
	ErrNonceMismatch  = errors.New("id token nonce mismatch")
)

const oidcHTTPTimeout = 10 * time.Second

// IdentityClaims is what a provider vouches for after sign-in.
type IdentityClaims struct {
	Provider      Provider
	Subject       string
	Email         string
	EmailVerified bool
	Name          string
}

// OAuthProvider is one external sign-in provider.
type OAuthProvider interface {
	Provider() Provider
	AuthCodeURL(state, nonce string) string
	ExchangeAndVerify(ctx context.Context, code, nonce string) (IdentityClaims, error)
}

type OIDCProviderConfig struct {
	Provider     Provider
	ClientID     string
	ClientSecret string
	RedirectURL  string
	IssuerURL    string
	Scopes       []string
	// HTTPClient is used for discovery, key fetches and code exchange.
	HTTPClient *http.Client
}

func (c OIDCProviderConfig) validate() error {
	switch {
	case c.Provider == "":
		return errors.New("provider is required")
	case strings.TrimSpace(c.ClientID) == "" || strings.TrimSpace(c.ClientSecret) == "":
		return errors.New("client id and secret are required")
	case strings.TrimSpace(c.RedirectURL) == "" || strings.TrimSpace(c.IssuerURL) == "":
		return errors.New("redirect url and issuer url are required")
	}
	return nil
}

// OIDCProvider signs users in through an OpenID Connect issuer such as Google.
type OIDCProvider struct {
	provider    Provider
	client      *http.Client
	verifier    *oidc.IDTokenVerifier
	oauthConfig oauth2.Config
}

func NewOIDCProvider(ctx context.Context, cfg OIDCProviderConfig) (*OIDCProvider, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: oidcHTTPTimeout}
	}
	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = []string{oidc.ScopeOpenID, "email", "profile"}
	}

	// The key set keeps the client context for later JWKS refreshes, so it
	// must outlive the caller's ctx.
	discovered, err := oidc.NewProvider(oidc.ClientContext(context.WithoutCancel(ctx), client), cfg.IssuerURL)
	if err != nil {
		return nil, fmt.Errorf("discovering oidc provider: %w", err)
	}

	return &OIDCProvider{
		provider: cfg.Provider,
		client:   client,
		verifier: discovered.Verifier(&oidc.Config{ClientID: cfg.ClientID}),
		oauthConfig: oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     discovered.Endpoint(),
			Scopes:       scopes,
		},
	}, nil
}

func (p *OIDCProvider) Provider() Provider {
	return p.provider
}

func (p *OIDCProvider) AuthCodeURL(state, nonce string) string {
	return p.oauthConfig.AuthCodeURL(state, oidc.Nonce(nonce))
}

// ExchangeAndVerify trades the callback code for tokens and returns the
// verified id_token claims. The nonce must match the one sent in AuthCodeURL.
func (p *OIDCProvider) ExchangeAndVerify(ctx context.Context, code, nonce string) (IdentityClaims, error) {
	ctx = oidc.ClientContext(ctx, p.client)

	token, err := p.oauthConfig.Exchange(ctx, code)
	if err != nil {
		return IdentityClaims{}, fmt.Errorf("exchanging oauth code: %w", err)
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return IdentityClaims{}, ErrMissingIDToken
	}

	idToken, err := p.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return IdentityClaims{}, fmt.Errorf("verifying id token: %w", err)
	}
	if idToken.Nonce != nonce {
		return IdentityClaims{}, ErrNonceMismatch
	}

	var claims struct {
		Email         string `json:"email"`
		EmailVerified bool   `json:"email_verified"`
		Name          string `json:"name"`
		GivenName     string `json:"given_name"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return IdentityClaims{}, fmt.Errorf("parsing id token claims: %w", err)
	}

	name := strings.TrimSpace(claims.Name)
	if name == "" {
		name = strings.TrimSpace(claims.GivenName)
	}
	return IdentityClaims{
		Provider:      p.provider,
		Subject:       idToken.Subject,
		Email:         normalizeEmail(claims.Email),
		EmailVerified: claims.EmailVerified,
		Name:          name,
	}, nil
}
