package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/tazhibayda/todo-service/internal/log"
)

// PublicPrefix is where the HTTP router serves the upload directory.
const PublicPrefix = "/uploads/"

type Disk struct {
	Dir string
}

func NewDisk(dir string) (*Disk, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("upload dir %s: %w", dir, err)
	}
	return &Disk{Dir: dir}, nil
}

func (d *Disk) Save(ctx context.Context, ext, _ string, r io.Reader, _ int64) (string, error) {
	name := objectName(ext)
	dst := filepath.Join(d.Dir, name)

	f, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", name, err)
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		_ = os.Remove(dst)
		return "", fmt.Errorf("write %s: %w", name, err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(dst)
		return "", err
	}
	log.Ctx(ctx).Debug("upload stored", zap.String("file", name))
	return PublicPrefix + name, nil
}

func (d *Disk) Delete(_ context.Context, ref string) error {
	name, ok := ownedName(ref, PublicPrefix)
	if !ok {
		return nil
	}
	err := os.Remove(filepath.Join(d.Dir, name))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}
