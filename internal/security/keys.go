package security

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"
	"math/big"
	"os"
)

type RSAKey struct {
	Kid     string
	Private *rsa.PrivateKey
}

// KeyManager holds the RS256 signing key plus an optional next key that is
// already published so tokens survive a rotation.
type KeyManager struct {
	Active *RSAKey
	Next   *RSAKey
	byKid  map[string]*rsa.PublicKey
}

func LoadPrivateKeyPEM(path string) (*rsa.PrivateKey, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	block, _ := pem.Decode(b)
	if block == nil {
		return nil, errors.New("invalid PEM")
	}
	switch block.Type {
	case "RSA PRIVATE KEY":
		return x509.ParsePKCS1PrivateKey(block.Bytes)
	case "PRIVATE KEY":
		k, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, err
		}
		rk, ok := k.(*rsa.PrivateKey)
		if !ok {
			return nil, errors.New("not RSA key")
		}
		return rk, nil
	default:
		return nil, errors.New("unsupported key type: " + block.Type)
	}
}

// NewKeyManager loads the active key (and the next one when nextPath is set).
func NewKeyManager(activeKid, activePath, nextKid, nextPath string) (*KeyManager, error) {
	act, err := LoadPrivateKeyPEM(activePath)
	if err != nil {
		return nil, fmt.Errorf("active key: %w", err)
	}
	km := NewKeyManagerFromKey(activeKid, act)
	if nextKid != "" && nextPath != "" {
		nxt, err := LoadPrivateKeyPEM(nextPath)
		if err != nil {
			return nil, fmt.Errorf("next key: %w", err)
		}
		km.Next = &RSAKey{Kid: nextKid, Private: nxt}
		km.byKid[nextKid] = &nxt.PublicKey
	}
	return km, nil
}

func NewKeyManagerFromKey(kid string, key *rsa.PrivateKey) *KeyManager {
	return &KeyManager{
		Active: &RSAKey{Kid: kid, Private: key},
		byKid:  map[string]*rsa.PublicKey{kid: &key.PublicKey},
	}
}

func (km *KeyManager) PublicByKid(kid string) (*rsa.PublicKey, bool) {
	pk, ok := km.byKid[kid]
	return pk, ok
}

func (km *KeyManager) JWKS() JWKSet {
	out := []JWK{}
	for _, k := range []*RSAKey{km.Active, km.Next} {
		if k != nil {
			out = append(out, NewJWK(k.Kid, &k.Private.PublicKey))
		}
	}
	return JWKSet{Keys: out}
}

// JWK is the RFC 7517 subset needed for RSA verification keys.
type JWK struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`
	Use string `json:"use,omitempty"`
	Alg string `json:"alg,omitempty"`
	N   string `json:"n"`
	E   string `json:"e"`
}

type JWKSet struct {
	Keys []JWK `json:"keys"`
}

func NewJWK(kid string, pub *rsa.PublicKey) JWK {
	return JWK{
		Kty: "RSA", Kid: kid, Use: "sig", Alg: "RS256",
		N: base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
		E: base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
	}
}

// RSAPublicKey decodes the modulus and exponent.
func (k JWK) RSAPublicKey() (*rsa.PublicKey, error) {
	if k.Kty != "RSA" {
		return nil, fmt.Errorf("jwk %s: unsupported kty %q", k.Kid, k.Kty)
	}
	nb, err := base64.RawURLEncoding.DecodeString(k.N)
	if err != nil {
		return nil, fmt.Errorf("jwk %s: modulus: %w", k.Kid, err)
	}
	eb, err := base64.RawURLEncoding.DecodeString(k.E)
	if err != nil || len(eb) == 0 {
		return nil, fmt.Errorf("jwk %s: bad exponent", k.Kid)
	}
	e := 0
	for _, b := range eb {
		e = e<<8 + int(b)
	}
	return &rsa.PublicKey{N: new(big.Int).SetBytes(nb), E: e}, nil
}
