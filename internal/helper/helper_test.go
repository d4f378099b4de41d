package helper

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHash8(t *testing.T) {
	assert.Len(t, Hash8("ann@example.com"), 16)
	assert.Equal(t, Hash8("ann@example.com"), Hash8(" ann@example.com "))
	assert.NotEqual(t, Hash8("ann@example.com"), Hash8("Ann@example.com"))
}

func TestLooksLikeEmail(t *testing.T) {
	for _, ok := range []string{"a@b.co", "first.last@mail.example.org"} {
		assert.True(t, LooksLikeEmail(ok), ok)
	}
	for _, bad := range []string{"", "plain", "@b.co", "a@b", "a@b.", "a@@b.co", "a b@c.co"} {
		assert.False(t, LooksLikeEmail(bad), bad)
	}
}

func TestFallbackName(t *testing.T) {
	assert.Equal(t, "Ann", FallbackName(" Ann ", "x@y.z", "Google"))
	assert.Equal(t, "octo", FallbackName("", "octo@example.com", "GitHub"))
	assert.Equal(t, "GitHub user", FallbackName("", "", "GitHub"))
}
