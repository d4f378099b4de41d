// Package storage keeps uploaded profile pictures on disk or in S3.
package storage

import (
	"context"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"
)

// Storage saves objects and returns the public path (or URL) they are served at.
type Storage interface {
	Save(ctx context.Context, ext, contentType string, r io.Reader, size int64) (string, error)
	// Delete removes an object previously returned by Save. Paths this
	// storage did not produce are ignored.
	Delete(ctx context.Context, ref string) error
}

// objectName is a fresh random file name keeping the original extension.
func objectName(ext string) string {
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	if ext == "" {
		return uuid.NewString()
	}
	return uuid.NewString() + "." + ext
}

// ownedName returns the object name of ref when ref starts with prefix.
func ownedName(ref, prefix string) (string, bool) {
	if ref == "" || !strings.HasPrefix(ref, prefix) {
		return "", false
	}
	name := path.Base(strings.TrimPrefix(ref, prefix))
	if name == "." || name == "/" || name == ".." {
		return "", false
	}
	return name, true
}
