// Package storage provides the object-storage backends the mirror writes to.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/relsync/relsync/internal/config"
)

var (
	ErrNotFound      = errors.New("object not found")
	ErrInvalidConfig = errors.New("invalid backend configuration")
)

// Backend abstracts the mirror target. Keys are slash-separated object
// paths relative to the configured bucket or base directory.
type Backend interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, metadata map[string]string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// NewBackend constructs the backend selected by the configuration.
func NewBackend(ctx context.Context, cfg config.StorageConfig) (Backend, error) {
	switch cfg.Type {
	case "s3":
		return NewS3Backend(ctx, cfg.S3)
	case "filesystem":
		return NewFilesystemBackend(cfg.Filesystem.Path)
	default:
		return nil, fmt.Errorf("%w: unknown backend type %q", ErrInvalidConfig, cfg.Type)
	}
}
