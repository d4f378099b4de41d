package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/tazhibayda/todo-service/internal/domain"
)

// Identity is what every provider resolves an authorization code or
// credential to.
type Identity struct {
	Provider domain.AuthOrigin
	Subject  string // provider user id
	Email    string // empty when the provider does not disclose one
	Name     string
	Picture  string
}

// IdentityProvider is the only thing the authentication service knows about
// Google, GitHub and Facebook.
type IdentityProvider interface {
	Name() domain.AuthOrigin
	ResolveIdentity(ctx context.Context, codeOrCredential string) (*Identity, error)
}

func getJSON(ctx context.Context, client *http.Client, url, bearer string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", url, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read %s: %w", url, err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: status %d: %s", url, resp.StatusCode, string(body))
	}
	return json.Unmarshal(body, out)
}
