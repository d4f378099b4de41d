package oauth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/facebook"

	"github.com/tazhibayda/todo-service/internal/domain"
)

const facebookGraph = "https://graph.facebook.com"

type FacebookConfig struct {
	AppID       string
	AppSecret   string
	RedirectURI string // must equal the one the browser used

	Endpoint   oauth2.Endpoint
	GraphURL   string
	HTTPClient *http.Client
}

type FacebookOAuth struct {
	cfg    *oauth2.Config
	graph  string
	client *http.Client
}

func NewFacebook(c FacebookConfig) *FacebookOAuth {
	if c.Endpoint.TokenURL == "" {
		c.Endpoint = facebook.Endpoint
	}
	if c.GraphURL == "" {
		c.GraphURL = facebookGraph
	}
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &FacebookOAuth{
		cfg: &oauth2.Config{
			ClientID:     c.AppID,
			ClientSecret: c.AppSecret,
			RedirectURL:  c.RedirectURI,
			Scopes:       []string{"email", "public_profile"},
			Endpoint:     c.Endpoint,
		},
		graph:  strings.TrimRight(c.GraphURL, "/"),
		client: c.HTTPClient,
	}
}

func (f *FacebookOAuth) Name() domain.AuthOrigin { return domain.OriginFacebook }

type facebookProfile struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

func (f *FacebookOAuth) ResolveIdentity(ctx context.Context, code string) (*Identity, error) {
	if strings.TrimSpace(code) == "" {
		return nil, errors.New("no code provided")
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, f.client)
	tok, err := f.cfg.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("facebook exchange: %w", err)
	}

	q := url.Values{"fields": {"id,name,email"}, "access_token": {tok.AccessToken}}
	var p facebookProfile
	if err := getJSON(ctx, f.client, f.graph+"/me?"+q.Encode(), "", &p); err != nil {
		return nil, err
	}
	if p.ID == "" {
		return nil, errors.New("facebook: empty profile id")
	}
	return &Identity{
		Provider: domain.OriginFacebook,
		Subject:  p.ID,
		Email:    p.Email,
		Name:     p.Name,
	}, nil
}
