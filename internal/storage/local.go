package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// Local stores objects as files under a base directory.
type Local struct {
	base string
}

// NewLocal creates the base directory if needed and resolves it to an
// absolute path.
func NewLocal(dir string) (*Local, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("storage: resolving %q: %w", dir, err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("storage: creating %q: %w", abs, err)
	}
	return &Local{base: abs}, nil
}

// Backend returns "local".
func (l *Local) Backend() string { return "local" }

// Dir returns the absolute base directory.
func (l *Local) Dir() string { return l.base }

// pathFor maps a key to a file path and verifies the result stays inside
// the base directory.
func (l *Local) pathFor(key string) (string, error) {
	if err := ValidateKey(key); err != nil {
		return "", err
	}
	p := filepath.Join(l.base, filepath.FromSlash(path.Clean(key)))
	if !strings.HasPrefix(p, l.base+string(filepath.Separator)) {
		return "", ErrInvalidKey
	}
	return p, nil
}

// Put writes the object through a temp file and renames it into place, so
// readers never see a partial file.
func (l *Local) Put(_ context.Context, key string, r io.Reader, _ int64, _ string) error {
	p, err := l.pathFor(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("storage: creating directory for %q: %w", key, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(p), ".upload-*")
	if err != nil {
		return fmt.Errorf("storage: creating temp file for %q: %w", key, err)
	}
	defer os.Remove(tmp.Name()) // no-op after a successful rename

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return fmt.Errorf("storage: writing %q: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("storage: closing %q: %w", key, err)
	}
	if err := os.Rename(tmp.Name(), p); err != nil {
		return fmt.Errorf("storage: storing %q: %w", key, err)
	}
	return nil
}

// Open returns the stored file. The content type is derived from the
// key's extension.
func (l *Local) Open(_ context.Context, key string) (*Object, error) {
	p, err := l.pathFor(key)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("storage: opening %q: %w", key, err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("storage: stat %q: %w", key, err)
	}
	if info.IsDir() {
		f.Close()
		return nil, ErrNotFound
	}

	ct := mime.TypeByExtension(filepath.Ext(p))
	if ct == "" {
		ct = "application/octet-stream"
	}

	return &Object{
		ReadCloser:  f,
		Size:        info.Size(),
		ContentType: ct,
		ModTime:     info.ModTime(),
	}, nil
}
