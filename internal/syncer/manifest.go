package syncer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/klauspost/compress/gzip"

	"github.com/relsync/relsync/internal/storage"
)

// Manifest describes one mirrored release. It is written gzipped next to
// the assets so a mirror can be audited without hitting the GitHub API.
type Manifest struct {
	Project     string          `json:"project"`
	ReleaseTag  string          `json:"release_tag"`
	ReleaseName string          `json:"release_name"`
	PublishedAt time.Time       `json:"published_at"`
	SyncedAt    time.Time       `json:"synced_at"`
	Assets      []ManifestAsset `json:"assets"`
}

// ManifestAsset records the outcome for one asset.
type ManifestAsset struct {
	Name   string `json:"name"`
	Size   int64  `json:"size"`
	SHA256 string `json:"sha256,omitempty"`
	Synced bool   `json:"synced"`
}

// writeManifest serializes the manifest as gzipped JSON and uploads it.
func writeManifest(ctx context.Context, backend storage.Backend, key string, m *Manifest) error {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)

	if err := json.NewEncoder(gz).Encode(m); err != nil {
		return fmt.Errorf("encoding manifest: %w", err)
	}
	if err := gz.Close(); err != nil {
		return fmt.Errorf("compressing manifest: %w", err)
	}

	if err := backend.Put(ctx, key, &buf, int64(buf.Len()), nil); err != nil {
		return fmt.Errorf("uploading manifest: %w", err)
	}

	return nil
}
