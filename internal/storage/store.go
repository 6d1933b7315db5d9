// Package storage persists rendered receipt PDFs and reads them back for
// download. A Store addresses objects by a flat file name; names containing
// path separators or dot segments are rejected.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/tbourn/go-receipt-service/internal/config"
)

var (
	// ErrNotFound is returned by Open when the object does not exist.
	ErrNotFound = errors.New("storage: object not found")
	// ErrInvalidName is returned for names that are empty or not a single
	// path element.
	ErrInvalidName = errors.New("storage: invalid object name")
)

// Object is an opened stored file. Callers must close Body.
type Object struct {
	Body    io.ReadCloser
	Size    int64
	ModTime time.Time
}

// Store is the persistence boundary for receipt files.
type Store interface {
	// EnsureDir makes sure the target location exists and is writable.
	EnsureDir(ctx context.Context) error
	// Write stores data under name and returns the backend location.
	Write(ctx context.Context, name string, data []byte) (string, error)
	// Exists reports whether name is stored.
	Exists(ctx context.Context, name string) (bool, error)
	// Open returns the stored object or ErrNotFound.
	Open(ctx context.Context, name string) (*Object, error)
}

// ValidName reports whether name can address an object.
func ValidName(name string) bool {
	if name == "" || name == "." || name == ".." || strings.HasPrefix(name, ".") {
		return false
	}
	return !strings.ContainsAny(name, "/\\\x00")
}

func checkName(name string) error {
	if !ValidName(name) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

// New builds the Store selected by cfg.Backend.
func New(cfg config.StorageConfig) (Store, error) {
	switch cfg.Backend {
	case "local", "":
		return NewLocal(cfg.Dir), nil
	case "s3":
		return NewS3FromConfig(cfg)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}
