package oauth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"

	"github.com/tazhibayda/todo-service/internal/domain"
)

const githubAPI = "https://api.github.com"

type GitHubConfig struct {
	ClientID     string
	ClientSecret string

	Endpoint   oauth2.Endpoint
	APIBaseURL string
	HTTPClient *http.Client
}

type GitHubOAuth struct {
	cfg    *oauth2.Config
	api    string
	client *http.Client
}

func NewGitHub(c GitHubConfig) *GitHubOAuth {
	if c.Endpoint.TokenURL == "" {
		c.Endpoint = github.Endpoint
	}
	if c.APIBaseURL == "" {
		c.APIBaseURL = githubAPI
	}
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &GitHubOAuth{
		cfg: &oauth2.Config{
			ClientID:     c.ClientID,
			ClientSecret: c.ClientSecret,
			Scopes:       []string{"read:user", "user:email"},
			Endpoint:     c.Endpoint,
		},
		api:    strings.TrimRight(c.APIBaseURL, "/"),
		client: c.HTTPClient,
	}
}

func (g *GitHubOAuth) Name() domain.AuthOrigin { return domain.OriginGitHub }

type githubUser struct {
	ID     int64  `json:"id"`
	Login  string `json:"login"`
	Name   string `json:"name"`
	Avatar string `json:"avatar_url"`
}

type githubEmail struct {
	Email    string `json:"email"`
	Primary  bool   `json:"primary"`
	Verified bool   `json:"verified"`
}

// ResolveIdentity exchanges the code, then reads the profile and the email
// list. Only a primary and verified address is trusted; users hiding their
// email come back without one and are matched by GitHub id.
func (g *GitHubOAuth) ResolveIdentity(ctx context.Context, code string) (*Identity, error) {
	if strings.TrimSpace(code) == "" {
		return nil, errors.New("no code provided")
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, g.client)
	tok, err := g.cfg.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("github exchange: %w", err)
	}

	var u githubUser
	if err := getJSON(ctx, g.client, g.api+"/user", tok.AccessToken, &u); err != nil {
		return nil, err
	}
	if u.ID == 0 {
		return nil, errors.New("github: empty user id")
	}
	var emails []githubEmail
	if err := getJSON(ctx, g.client, g.api+"/user/emails", tok.AccessToken, &emails); err != nil {
		return nil, err
	}

	name := u.Name
	if name == "" {
		name = u.Login
	}
	return &Identity{
		Provider: domain.OriginGitHub,
		Subject:  strconv.FormatInt(u.ID, 10),
		Email:    primaryVerified(emails),
		Name:     name,
		Picture:  u.Avatar,
	}, nil
}

func primaryVerified(emails []githubEmail) string {
	for _, e := range emails {
		if e.Primary && e.Verified {
			return e.Email
		}
	}
	return ""
}
