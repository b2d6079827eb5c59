package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/relsync/relsync/internal/config"
)

func TestNewBackend(t *testing.T) {
	ctx := context.Background()

	backend, err := NewBackend(ctx, config.StorageConfig{
		Type:       "filesystem",
		Filesystem: config.FilesystemConfig{Path: t.TempDir()},
	})
	if err != nil {
		t.Fatalf("NewBackend(filesystem) failed: %v", err)
	}
	if _, ok := backend.(*FilesystemBackend); !ok {
		t.Errorf("Expected *FilesystemBackend, got %T", backend)
	}

	_, err = NewBackend(ctx, config.StorageConfig{Type: "ftp"})
	if !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("Unknown type should return ErrInvalidConfig, got %v", err)
	}
}

func TestNewS3Backend_Validation(t *testing.T) {
	ctx := context.Background()

	valid := config.S3Config{
		Region:          "auto",
		Bucket:          "releases",
		AccessKeyID:     "key",
		SecretAccessKey: "secret",
	}

	tests := []struct {
		name   string
		mutate func(*config.S3Config)
	}{
		{"missing region", func(c *config.S3Config) { c.Region = "" }},
		{"missing bucket", func(c *config.S3Config) { c.Bucket = "" }},
		{"missing access key", func(c *config.S3Config) { c.AccessKeyID = "" }},
		{"missing secret key", func(c *config.S3Config) { c.SecretAccessKey = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			if _, err := NewS3Backend(ctx, cfg); !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("Expected ErrInvalidConfig, got %v", err)
			}
		})
	}

	if _, err := NewS3Backend(ctx, valid); err != nil {
		t.Errorf("Valid config should construct a backend: %v", err)
	}
}
