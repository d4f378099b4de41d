package oauth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
	ggoogle "golang.org/x/oauth2/google"

	"github.com/tazhibayda/todo-service/internal/domain"
)

const GoogleCertsURL = "https://www.googleapis.com/oauth2/v3/certs"

var googleIssuers = []string{"https://accounts.google.com", "accounts.google.com"}

type GoogleConfig struct {
	ClientID     string
	ClientSecret string // only needed for the authorization-code flow
	RedirectURI  string

	// overridable in tests
	CertsURL   string
	Endpoint   oauth2.Endpoint
	HTTPClient *http.Client
}

type GoogleOAuth struct {
	cfg    *oauth2.Config
	keys   *KeySet
	client *http.Client
}

func NewGoogle(c GoogleConfig) *GoogleOAuth {
	if c.CertsURL == "" {
		c.CertsURL = GoogleCertsURL
	}
	if c.Endpoint.TokenURL == "" {
		c.Endpoint = ggoogle.Endpoint
	}
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &GoogleOAuth{
		cfg: &oauth2.Config{
			ClientID:     c.ClientID,
			ClientSecret: c.ClientSecret,
			RedirectURL:  c.RedirectURI,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     c.Endpoint,
		},
		keys:   NewKeySet(c.CertsURL, time.Hour, c.HTTPClient),
		client: c.HTTPClient,
	}
}

func (g *GoogleOAuth) Name() domain.AuthOrigin { return domain.OriginGoogle }

type googleClaims struct {
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
	jwt.RegisteredClaims
}

// ResolveIdentity accepts either the ID token handed to the browser by Google
// Identity Services (the usual case) or an authorization code, which is
// exchanged for tokens first.
func (g *GoogleOAuth) ResolveIdentity(ctx context.Context, credential string) (*Identity, error) {
	credential = strings.TrimSpace(credential)
	if credential == "" {
		return nil, errors.New("no credential provided")
	}
	if strings.Count(credential, ".") != 2 {
		idToken, err := g.exchange(ctx, credential)
		if err != nil {
			return nil, err
		}
		credential = idToken
	}
	return g.VerifyIDToken(ctx, credential)
}

func (g *GoogleOAuth) exchange(ctx context.Context, code string) (string, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, g.client)
	tok, err := g.cfg.Exchange(ctx, code)
	if err != nil {
		return "", fmt.Errorf("google exchange: %w", err)
	}
	raw, ok := tok.Extra("id_token").(string)
	if !ok || raw == "" {
		return "", errors.New("no id_token")
	}
	return raw, nil
}

// VerifyIDToken checks signature, issuer, audience (our client id) and expiry.
func (g *GoogleOAuth) VerifyIDToken(ctx context.Context, raw string) (*Identity, error) {
	var claims googleClaims
	err := g.keys.Verify(ctx, raw, &claims, jwt.WithAudience(g.cfg.ClientID))
	if err != nil {
		return nil, fmt.Errorf("verify id_token: %w", err)
	}
	if !issuedByGoogle(claims.Issuer) {
		return nil, errors.New("bad iss")
	}
	if claims.Email == "" || claims.Subject == "" {
		return nil, errors.New("missing email/sub")
	}
	return &Identity{
		Provider: domain.OriginGoogle,
		Subject:  claims.Subject,
		Email:    claims.Email,
		Name:     claims.Name,
		Picture:  claims.Picture,
	}, nil
}

func issuedByGoogle(iss string) bool {
	for _, want := range googleIssuers {
		if iss == want {
			return true
		}
	}
	return false
}
