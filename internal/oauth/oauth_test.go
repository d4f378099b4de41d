package oauth

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/tazhibayda/todo-service/internal/domain"
	"github.com/tazhibayda/todo-service/internal/security"
)

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

type googleFake struct {
	key *rsa.PrivateKey
	srv *httptest.Server
}

func newGoogleFake(t *testing.T) *googleFake {
	t.Helper()
	k, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	f := &googleFake{key: k}

	mux := http.NewServeMux()
	mux.HandleFunc("/certs", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, security.JWKSet{Keys: []security.JWK{security.NewJWK("g1", &k.PublicKey)}})
	})
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		if r.Form.Get("code") != "auth-code" {
			http.Error(w, `{"error":"invalid_grant"}`, http.StatusBadRequest)
			return
		}
		writeJSON(w, map[string]any{
			"access_token": "ya29", "token_type": "Bearer", "expires_in": 3600,
			"id_token": f.sign(t, "client-1", time.Hour),
		})
	})
	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)
	return f
}

func (f *googleFake) sign(t *testing.T, aud string, ttl time.Duration) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.MapClaims{
		"iss":   "https://accounts.google.com",
		"aud":   aud,
		"sub":   "g-123",
		"email": "ann@example.com",
		"name":  "Ann",
		"exp":   time.Now().Add(ttl).Unix(),
		"iat":   time.Now().Unix(),
	})
	tok.Header["kid"] = "g1"
	s, err := tok.SignedString(f.key)
	require.NoError(t, err)
	return s
}

func (f *googleFake) provider() *GoogleOAuth {
	return NewGoogle(GoogleConfig{
		ClientID:     "client-1",
		ClientSecret: "secret",
		CertsURL:     f.srv.URL + "/certs",
		Endpoint:     oauth2.Endpoint{TokenURL: f.srv.URL + "/token", AuthStyle: oauth2.AuthStyleInParams},
	})
}

func TestGoogle_IDTokenCredential(t *testing.T) {
	f := newGoogleFake(t)
	p := f.provider()

	id, err := p.ResolveIdentity(context.Background(), f.sign(t, "client-1", time.Hour))
	require.NoError(t, err)
	assert.Equal(t, domain.OriginGoogle, id.Provider)
	assert.Equal(t, "g-123", id.Subject)
	assert.Equal(t, "ann@example.com", id.Email)
	assert.Equal(t, "Ann", id.Name)
}

func TestGoogle_RejectsForeignAudience(t *testing.T) {
	f := newGoogleFake(t)
	_, err := f.provider().ResolveIdentity(context.Background(), f.sign(t, "someone-else", time.Hour))
	assert.Error(t, err)
}

func TestGoogle_RejectsExpired(t *testing.T) {
	f := newGoogleFake(t)
	_, err := f.provider().ResolveIdentity(context.Background(), f.sign(t, "client-1", -time.Minute))
	assert.Error(t, err)
}

func TestGoogle_AuthorizationCode(t *testing.T) {
	f := newGoogleFake(t)
	id, err := f.provider().ResolveIdentity(context.Background(), "auth-code")
	require.NoError(t, err)
	assert.Equal(t, "ann@example.com", id.Email)

	_, err = f.provider().ResolveIdentity(context.Background(), "bad-code")
	assert.Error(t, err)
}

func newGitHubFake(t *testing.T, emails []githubEmail) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/login/oauth/access_token", func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		if r.Form.Get("code") != "gh-code" {
			writeJSON(w, map[string]string{"error": "bad_verification_code"})
			return
		}
		writeJSON(w, map[string]string{"access_token": "gho_1", "token_type": "bearer"})
	})
	mux.HandleFunc("/user", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer gho_1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		writeJSON(w, githubUser{ID: 99, Login: "octo"})
	})
	mux.HandleFunc("/user/emails", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, emails)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func githubProvider(srv *httptest.Server) *GitHubOAuth {
	return NewGitHub(GitHubConfig{
		ClientID:     "gh",
		ClientSecret: "sec",
		Endpoint:     oauth2.Endpoint{TokenURL: srv.URL + "/login/oauth/access_token", AuthStyle: oauth2.AuthStyleInParams},
		APIBaseURL:   srv.URL,
	})
}

func TestGitHub_PrimaryVerifiedEmail(t *testing.T) {
	srv := newGitHubFake(t, []githubEmail{
		{Email: "old@example.com", Primary: false, Verified: true},
		{Email: "octo@example.com", Primary: true, Verified: true},
	})
	id, err := githubProvider(srv).ResolveIdentity(context.Background(), "gh-code")
	require.NoError(t, err)
	assert.Equal(t, "99", id.Subject)
	assert.Equal(t, "octo@example.com", id.Email)
	assert.Equal(t, "octo", id.Name, "login is used when name is empty")
}

func TestGitHub_UnverifiedPrimaryIsIgnored(t *testing.T) {
	srv := newGitHubFake(t, []githubEmail{{Email: "octo@example.com", Primary: true, Verified: false}})
	id, err := githubProvider(srv).ResolveIdentity(context.Background(), "gh-code")
	require.NoError(t, err)
	assert.Empty(t, id.Email)
}

func TestGitHub_BadCode(t *testing.T) {
	srv := newGitHubFake(t, nil)
	_, err := githubProvider(srv).ResolveIdentity(context.Background(), "nope")
	assert.Error(t, err)

	_, err = githubProvider(srv).ResolveIdentity(context.Background(), " ")
	assert.Error(t, err)
}

func TestFacebook_Profile(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/access_token", func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		assert.Equal(t, "http://localhost:5173/facebook-callback", r.Form.Get("redirect_uri"))
		writeJSON(w, map[string]any{"access_token": "EAAB", "token_type": "bearer", "expires_in": 5000})
	})
	mux.HandleFunc("/me", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "EAAB", r.URL.Query().Get("access_token"))
		assert.Equal(t, "id,name,email", r.URL.Query().Get("fields"))
		writeJSON(w, facebookProfile{ID: "fb-7", Name: "Fay", Email: "fay@example.com"})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	p := NewFacebook(FacebookConfig{
		AppID:       "app",
		AppSecret:   "sec",
		RedirectURI: "http://localhost:5173/facebook-callback",
		Endpoint:    oauth2.Endpoint{TokenURL: srv.URL + "/oauth/access_token", AuthStyle: oauth2.AuthStyleInParams},
		GraphURL:    srv.URL,
	})
	id, err := p.ResolveIdentity(context.Background(), "fb-code")
	require.NoError(t, err)
	assert.Equal(t, domain.OriginFacebook, id.Provider)
	assert.Equal(t, "fb-7", id.Subject)
	assert.Equal(t, "fay@example.com", id.Email)
}
