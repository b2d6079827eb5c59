package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// FilesystemBackend mirrors into a local directory. Objects are laid out
// as {basePath}/{key}. Metadata is dropped; the gzipped manifest written
// alongside each release carries the same information.
type FilesystemBackend struct {
	basePath string
}

// NewFilesystemBackend creates a filesystem backend rooted at basePath.
func NewFilesystemBackend(basePath string) (*FilesystemBackend, error) {
	if basePath == "" {
		return nil, fmt.Errorf("%w: path is required", ErrInvalidConfig)
	}
	return &FilesystemBackend{basePath: basePath}, nil
}

// buildPath validates key against traversal and returns the full path.
func (f *FilesystemBackend) buildPath(key string) (string, error) {
	if strings.Contains(key, "\x00") {
		return "", fmt.Errorf("invalid key: null byte not allowed")
	}
	if filepath.IsAbs(key) {
		return "", fmt.Errorf("invalid key: absolute paths not allowed")
	}

	cleanKey := filepath.Clean(key)
	if strings.HasPrefix(cleanKey, "..") || strings.Contains(cleanKey, string(filepath.Separator)+"..") {
		return "", fmt.Errorf("invalid key: path traversal not allowed")
	}

	fullPath := filepath.Join(f.basePath, cleanKey)

	cleanPath := filepath.Clean(fullPath)
	cleanBase := filepath.Clean(f.basePath)
	if !strings.HasPrefix(cleanPath, cleanBase) {
		return "", fmt.Errorf("invalid key: path escapes base directory")
	}

	return cleanPath, nil
}

// Put stores data at key, creating parent directories as needed.
func (f *FilesystemBackend) Put(ctx context.Context, key string, r io.Reader, size int64, metadata map[string]string) error {
	fullPath, err := f.buildPath(key)
	if err != nil {
		return err
	}

	dir := filepath.Dir(fullPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}

	file, err := os.Create(fullPath)
	if err != nil {
		return fmt.Errorf("creating file: %w", err)
	}
	defer file.Close()

	if _, err := io.Copy(file, r); err != nil {
		return fmt.Errorf("writing file: %w", err)
	}

	return nil
}

// Get retrieves the object at key. Returns ErrNotFound if it doesn't exist.
// Caller must close the returned ReadCloser.
func (f *FilesystemBackend) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	fullPath, err := f.buildPath(key)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("opening file: %w", err)
	}

	return file, nil
}

// Delete removes the object at key. Idempotent.
func (f *FilesystemBackend) Delete(ctx context.Context, key string) error {
	fullPath, err := f.buildPath(key)
	if err != nil {
		return err
	}

	err = os.Remove(fullPath)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing file: %w", err)
	}

	return nil
}

// Exists checks whether an object is present at key.
func (f *FilesystemBackend) Exists(ctx context.Context, key string) (bool, error) {
	fullPath, err := f.buildPath(key)
	if err != nil {
		return false, err
	}

	_, err = os.Stat(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("checking file: %w", err)
	}

	return true, nil
}
