// Package syncer performs one full mirror pass over the configured projects.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/relsync/relsync/internal/config"
	"github.com/relsync/relsync/internal/github"
	"github.com/relsync/relsync/internal/metrics"
	"github.com/relsync/relsync/internal/scheduler"
	"github.com/relsync/relsync/internal/storage"
)

// projectPause spaces out projects so back-to-back API bursts are avoided.
const projectPause = 2 * time.Second

// Report summarizes one sync pass.
type Report struct {
	RunID     string
	StartedAt time.Time
	Duration  time.Duration
	Results   map[string]bool
}

// Succeeded returns the number of projects that synced fully.
func (r *Report) Succeeded() int {
	n := 0
	for _, ok := range r.Results {
		if ok {
			n++
		}
	}
	return n
}

// Summary renders a human-readable report.
func (r *Report) Summary() string {
	var sb strings.Builder
	total := len(r.Results)
	succeeded := r.Succeeded()

	sb.WriteString(strings.Repeat("=", 60) + "\n")
	sb.WriteString("Sync report\n")
	sb.WriteString(strings.Repeat("=", 60) + "\n")
	fmt.Fprintf(&sb, "Run ID:    %s\n", r.RunID)
	fmt.Fprintf(&sb, "Duration:  %.2fs\n", r.Duration.Seconds())
	fmt.Fprintf(&sb, "Projects:  %d\n", total)
	fmt.Fprintf(&sb, "Succeeded: %d\n", succeeded)
	fmt.Fprintf(&sb, "Failed:    %d\n", total-succeeded)
	sb.WriteString(strings.Repeat("-", 60) + "\n")
	for project, ok := range r.Results {
		status := "ok"
		if !ok {
			status = "FAILED"
		}
		fmt.Fprintf(&sb, "%s: %s\n", project, status)
	}
	sb.WriteString(strings.Repeat("=", 60))
	return sb.String()
}

// Service mirrors the newest release assets of each configured project
// into the storage backend.
type Service struct {
	client   *github.Client
	backend  storage.Backend
	projects []config.ProjectConfig

	pause time.Duration
	now   func() time.Time
}

// New creates a sync service.
func New(client *github.Client, backend storage.Backend, projects []config.ProjectConfig) *Service {
	return &Service{
		client:   client,
		backend:  backend,
		projects: projects,
		pause:    projectPause,
		now:      time.Now,
	}
}

// Task adapts a full sync pass to the scheduler's task boundary.
func (s *Service) Task() scheduler.Task {
	return func(ctx context.Context) (scheduler.Result, error) {
		report, err := s.SyncAll(ctx)
		if err != nil {
			return scheduler.Result{}, err
		}
		return scheduler.MapResult(report.Results), nil
	}
}

// SyncAll mirrors every configured project and returns a per-project
// outcome map. A project that fails never aborts the pass; only context
// cancellation does.
func (s *Service) SyncAll(ctx context.Context) (*Report, error) {
	report := &Report{
		RunID:     uuid.New().String(),
		StartedAt: s.now(),
		Results:   make(map[string]bool),
	}

	if len(s.projects) == 0 {
		log.Warn().Msg("No projects configured")
		report.Duration = s.now().Sub(report.StartedAt)
		return report, nil
	}

	if rl, err := s.client.RateLimit(ctx); err == nil {
		log.Info().
			Int("remaining", rl.Remaining).
			Int("limit", rl.Limit).
			Time("reset", rl.Reset).
			Msg("GitHub API quota")
	}

	for i, project := range s.projects {
		if ctx.Err() != nil {
			return report, ctx.Err()
		}

		name := project.Name()
		log.Info().
			Str("project", name).
			Int("index", i+1).
			Int("total", len(s.projects)).
			Msg("Syncing project")

		ok, err := s.SyncProject(ctx, project)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return report, err
			}
			log.Error().Err(err).Str("project", name).Msg("Project sync failed")
			ok = false
		}
		report.Results[name] = ok

		if i < len(s.projects)-1 {
			if err := sleepContext(ctx, s.pause); err != nil {
				return report, err
			}
		}
	}

	report.Duration = s.now().Sub(report.StartedAt)
	return report, nil
}

// SyncProject mirrors the latest release of a single project. Returns true
// when every matching asset ended up in the bucket.
func (s *Service) SyncProject(ctx context.Context, project config.ProjectConfig) (bool, error) {
	release, err := s.client.LatestRelease(ctx, project.Owner, project.Repo)
	if err != nil {
		return false, err
	}

	log.Info().
		Str("project", project.Name()).
		Str("release", release.DisplayName()).
		Str("tag", release.TagName).
		Time("published_at", release.PublishedAt).
		Msg("Found latest release")

	assets, err := FilterAssets(release.Assets, project.AssetPattern)
	if err != nil {
		return false, err
	}

	if len(assets) == 0 {
		log.Warn().
			Str("project", project.Name()).
			Str("pattern", project.AssetPattern).
			Msg("No matching assets")
		for i, asset := range release.Assets {
			if i >= 10 {
				break
			}
			log.Info().Str("asset", asset.Name).Msg("Available asset")
		}
		return true, nil
	}

	var totalSize int64
	for _, asset := range assets {
		totalSize += asset.Size
	}
	log.Info().
		Int("assets", len(assets)).
		Str("total_size", humanize.Bytes(uint64(totalSize))).
		Msg("Assets to mirror")

	prefix := targetPrefix(project)
	successCount := 0
	manifest := &Manifest{
		Project:     project.Name(),
		ReleaseTag:  release.TagName,
		ReleaseName: release.DisplayName(),
		PublishedAt: release.PublishedAt,
		SyncedAt:    s.now(),
	}

	for i, asset := range assets {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}

		key := fmt.Sprintf("%s/%s/%s", prefix, release.TagName, asset.Name)
		log.Info().
			Str("asset", asset.Name).
			Int("index", i+1).
			Int("total", len(assets)).
			Msg("Processing asset")

		synced, sum := s.syncAsset(ctx, project, release, asset, key)
		if synced {
			successCount++
		}
		manifest.Assets = append(manifest.Assets, ManifestAsset{
			Name:   asset.Name,
			Size:   asset.Size,
			SHA256: sum,
			Synced: synced,
		})
	}

	manifestKey := fmt.Sprintf("%s/%s/manifest.json.gz", prefix, release.TagName)
	if err := writeManifest(ctx, s.backend, manifestKey, manifest); err != nil {
		log.Warn().Err(err).Str("key", manifestKey).Msg("Failed to write release manifest")
	}

	log.Info().
		Str("project", project.Name()).
		Int("succeeded", successCount).
		Int("total", len(assets)).
		Msg("Project sync complete")

	return successCount == len(assets), nil
}

// syncAsset mirrors one asset, skipping objects already present.
func (s *Service) syncAsset(ctx context.Context, project config.ProjectConfig, release *github.Release, asset github.Asset, key string) (bool, string) {
	exists, err := s.backend.Exists(ctx, key)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Failed to check object existence")
	} else if exists {
		log.Info().Str("key", key).Msg("Object already mirrored, skipping")
		metrics.RecordAssetSkip()
		return true, ""
	}

	tmpPath, sum, err := s.client.DownloadAsset(ctx, asset, "")
	if err != nil {
		log.Error().Err(err).Str("asset", asset.Name).Msg("Download failed")
		return false, ""
	}
	defer os.Remove(tmpPath)

	file, err := os.Open(tmpPath)
	if err != nil {
		log.Error().Err(err).Str("asset", asset.Name).Msg("Failed to reopen downloaded file")
		return false, sum
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		log.Error().Err(err).Str("asset", asset.Name).Msg("Failed to stat downloaded file")
		return false, sum
	}

	metadata := map[string]string{
		"project":      project.Name(),
		"release-tag":  release.TagName,
		"release-name": release.DisplayName(),
		"asset-name":   asset.Name,
		"sha256":       sum,
		"size":         fmt.Sprintf("%d", info.Size()),
		"sync-time":    s.now().Format(time.RFC3339),
	}

	log.Info().
		Str("key", key).
		Str("size", humanize.Bytes(uint64(info.Size()))).
		Msg("Uploading to mirror")

	if err := s.backend.Put(ctx, key, file, info.Size(), metadata); err != nil {
		log.Error().Err(err).Str("key", key).Msg("Upload failed")
		return false, sum
	}

	metrics.RecordUpload(info.Size())
	log.Info().Str("key", key).Msg("Asset mirrored")
	return true, sum
}

func targetPrefix(project config.ProjectConfig) string {
	if project.TargetPath != "" {
		return strings.TrimSuffix(project.TargetPath, "/")
	}
	return project.Owner + "-" + project.Repo
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
