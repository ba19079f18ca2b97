package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

// Local stores blobs as plain files under a root directory, served back as
// static paths under /uploads.
type Local struct {
	Root string
}

func NewLocal(root string) (*Local, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("%w: create upload root: %v", ErrStorage, err)
	}
	return &Local{Root: root}, nil
}

func (l *Local) Put(ctx context.Context, srcPath, key string) error {
	dest := filepath.Join(l.Root, key)
	if err := os.Rename(srcPath, dest); err == nil {
		return nil
	}
	// Rename fails across devices (pending dir on tmpfs etc.); fall back
	// to copy + remove.
	if err := copyFile(srcPath, dest); err != nil {
		return fmt.Errorf("%w: store %s: %v", ErrStorage, key, err)
	}
	_ = os.Remove(srcPath)
	return nil
}

func (l *Local) Fetch(ctx context.Context, key, destPath string) error {
	if err := copyFile(filepath.Join(l.Root, key), destPath); err != nil {
		return fmt.Errorf("%w: fetch %s: %v", ErrStorage, key, err)
	}
	return nil
}

func (l *Local) URL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	return "/uploads/" + key, nil
}

// Delete tolerates already-missing files; deleting twice is not an error.
func (l *Local) Delete(ctx context.Context, key string) error {
	if err := os.Remove(filepath.Join(l.Root, key)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("%w: delete %s: %v", ErrStorage, key, err)
	}
	return nil
}

// Path returns the on-disk location of a stored blob.
func (l *Local) Path(key string) string {
	return filepath.Join(l.Root, key)
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
