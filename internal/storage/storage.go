// Package storage keeps uploaded part images. Two backends implement
// Storage: Local writes under a directory on disk, MinIO talks to any
// S3-compatible object store.
//
// Keys are slash-separated relative paths such as
// "parts/42/3f0c...e1.png". Backends reject keys that could escape their
// root; the upload service additionally restricts callers to their own
// prefix.
package storage

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"
)

var (
	// ErrNotFound is returned by Open when no object exists under the key.
	ErrNotFound = errors.New("storage: object not found")

	// ErrInvalidKey is returned for empty, absolute or ".." keys.
	ErrInvalidKey = errors.New("storage: invalid key")
)

// Storage is the contract the upload service depends on.
type Storage interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Open(ctx context.Context, key string) (*Object, error)
	Backend() string
}

// Object is an open stored file. The caller must Close it.
type Object struct {
	io.ReadCloser
	Size        int64
	ContentType string
	ModTime     time.Time
}

// ValidateKey rejects keys that are empty, absolute, contain "..", or use
// backslashes.
func ValidateKey(key string) error {
	switch {
	case key == "",
		strings.HasPrefix(key, "/"),
		strings.Contains(key, ".."),
		strings.Contains(key, `\`):
		return ErrInvalidKey
	}
	return nil
}
