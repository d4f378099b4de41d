package security

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultTTL is the lifetime of a session token.
const DefaultTTL = 7 * 24 * time.Hour

type Claims struct {
	UID   int64  `json:"uid"`
	Email string `json:"email"`
	jwt.RegisteredClaims
}

func newClaims(uid int64, email string, now time.Time, ttl time.Duration) Claims {
	return Claims{
		UID: uid, Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Subject:   strconv.FormatInt(uid, 10),
		},
	}
}

func MakeAccess(secret string, uid int64, email string, ttl time.Duration) (string, error) {
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, newClaims(uid, email, time.Now(), ttl))
	return t.SignedString([]byte(secret))
}

func MakeAccessRS256(km *KeyManager, uid int64, email string, ttl time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, newClaims(uid, email, time.Now(), ttl))
	token.Header["kid"] = km.Active.Kid
	return token.SignedString(km.Active.Private)
}

// Tokens issues and verifies session tokens. With a KeyManager it signs RS256
// and publishes the public keys as JWKS, otherwise HS256 with the shared secret.
type Tokens struct {
	secret string
	keys   *KeyManager
	ttl    time.Duration
	now    func() time.Time
}

func NewTokens(secret string, keys *KeyManager, ttl time.Duration) *Tokens {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Tokens{secret: secret, keys: keys, ttl: ttl, now: time.Now}
}

// WithClock replaces the verification clock; used by tests.
func (t *Tokens) WithClock(now func() time.Time) *Tokens {
	t.now = now
	return t
}

func (t *Tokens) TTL() time.Duration { return t.ttl }

func (t *Tokens) Issue(uid int64, email string) (string, error) {
	if uid <= 0 {
		return "", errors.New("token: empty uid")
	}
	if t.keys != nil {
		return MakeAccessRS256(t.keys, uid, email, t.ttl)
	}
	if t.secret == "" {
		return "", errors.New("token: empty secret")
	}
	return MakeAccess(t.secret, uid, email, t.ttl)
}

func (t *Tokens) Parse(token string) (*Claims, error) {
	method := "HS256"
	if t.keys != nil {
		method = "RS256"
	}
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, t.keyFunc,
		jwt.WithValidMethods([]string{method}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}
	if !parsed.Valid || claims.UID <= 0 {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

func (t *Tokens) keyFunc(tk *jwt.Token) (interface{}, error) {
	if t.keys == nil {
		return []byte(t.secret), nil
	}
	kid, _ := tk.Header["kid"].(string)
	if pk, ok := t.keys.PublicByKid(kid); ok {
		return pk, nil
	}
	return nil, errors.New("no key by kid")
}

// JWKS returns the published verification keys; empty for HS256.
func (t *Tokens) JWKS() JWKSet {
	if t.keys == nil {
		return JWKSet{Keys: []JWK{}}
	}
	return t.keys.JWKS()
}
