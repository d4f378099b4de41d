package oauth

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/tazhibayda/todo-service/internal/security"
)

// KeySet is a TTL cache over a remote JWKS document (Google's signing certs).
type KeySet struct {
	URL string
	TTL time.Duration

	mu    sync.RWMutex
	keys  map[string]*rsa.PublicKey
	expAt time.Time

	http *http.Client
}

func NewKeySet(url string, ttl time.Duration, client *http.Client) *KeySet {
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	return &KeySet{
		URL:  url,
		TTL:  ttl,
		keys: make(map[string]*rsa.PublicKey),
		http: client,
	}
}

func (f *KeySet) refresh(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.URL, nil)
	if err != nil {
		return err
	}
	resp, err := f.http.Do(req)
	if err != nil {
		return fmt.Errorf("fetch jwks: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetch jwks: status %d", resp.StatusCode)
	}

	var doc security.JWKSet
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return fmt.Errorf("decode jwks: %w", err)
	}
	tmp := make(map[string]*rsa.PublicKey, len(doc.Keys))
	for _, k := range doc.Keys {
		pk, err := k.RSAPublicKey()
		if err != nil {
			continue
		}
		tmp[k.Kid] = pk
	}
	f.mu.Lock()
	f.keys = tmp
	f.expAt = time.Now().Add(f.TTL)
	f.mu.Unlock()
	return nil
}

func (f *KeySet) getKey(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	f.mu.RLock()
	if pk, ok := f.keys[kid]; ok && time.Now().Before(f.expAt) {
		f.mu.RUnlock()
		return pk, nil
	}
	f.mu.RUnlock()

	// unknown kid or stale cache: Google rotates keys, fetch again
	if err := f.refresh(ctx); err != nil {
		return nil, err
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	if pk, ok := f.keys[kid]; ok {
		return pk, nil
	}
	return nil, errors.New("kid not found in JWKS")
}

// Verify checks the RS256 signature and standard time claims of tokenStr
// and decodes its claims into claims.
func (f *KeySet) Verify(ctx context.Context, tokenStr string, claims jwt.Claims, opts ...jwt.ParserOption) error {
	opts = append(opts, jwt.WithValidMethods([]string{"RS256"}), jwt.WithExpirationRequired())
	_, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, errors.New("no kid")
		}
		return f.getKey(ctx, kid)
	}, opts...)
	return err
}
