// Package helper holds small formatting helpers shared by services and logs.
package helper

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Hash8 is a short stable fingerprint, used to correlate emails in logs
// without writing the address itself.
func Hash8(s string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(s)))
	return hex.EncodeToString(sum[:8])
}

// NormalizeEmail trims surrounding whitespace. Case is preserved: emails are
// stored and compared case-sensitively.
func NormalizeEmail(s string) string {
	return strings.TrimSpace(s)
}

// LooksLikeEmail is a shape check only: one "@" with text on both sides and a
// dot in the domain.
func LooksLikeEmail(s string) bool {
	at := strings.IndexByte(s, '@')
	if at <= 0 || at != strings.LastIndexByte(s, '@') || strings.ContainsAny(s, " \t\r\n") {
		return false
	}
	domain := s[at+1:]
	dot := strings.LastIndexByte(domain, '.')
	return dot > 0 && dot < len(domain)-1
}

// FallbackName derives a display name when a provider returns none.
func FallbackName(name, email, provider string) string {
	if n := strings.TrimSpace(name); n != "" {
		return n
	}
	if at := strings.IndexByte(email, '@'); at > 0 {
		return email[:at]
	}
	return provider + " user"
}
