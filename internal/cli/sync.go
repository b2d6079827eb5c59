package cli

import (
	"context"
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/relsync/relsync/internal/config"
	"github.com/relsync/relsync/internal/github"
	"github.com/relsync/relsync/internal/history"
	"github.com/relsync/relsync/internal/storage"
	"github.com/relsync/relsync/internal/syncer"
)

var syncProject string

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run one sync pass over the configured projects",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		service, cleanup, err := buildSyncer(ctx, cfg)
		if err != nil {
			return err
		}
		defer cleanup()

		if syncProject != "" {
			return syncSingleProject(ctx, cfg, service)
		}

		report, err := service.SyncAll(ctx)
		if err != nil {
			return fmt.Errorf("sync pass: %w", err)
		}

		recordRun(ctx, cfg, report)
		fmt.Println(report.Summary())

		if report.Succeeded() < len(report.Results) {
			return fmt.Errorf("%d of %d projects failed", len(report.Results)-report.Succeeded(), len(report.Results))
		}
		return nil
	},
}

func init() {
	syncCmd.Flags().StringVarP(&syncProject, "project", "p", "", "sync only this project (owner/repo)")
	rootCmd.AddCommand(syncCmd)
}

func syncSingleProject(ctx context.Context, cfg *config.Config, service *syncer.Service) error {
	owner, repo, ok := strings.Cut(syncProject, "/")
	if !ok {
		return fmt.Errorf("invalid project %q, expected owner/repo", syncProject)
	}

	var project *config.ProjectConfig
	for i := range cfg.Projects {
		if cfg.Projects[i].Owner == owner && cfg.Projects[i].Repo == repo {
			project = &cfg.Projects[i]
			break
		}
	}
	if project == nil {
		return fmt.Errorf("project %s not found in configuration", syncProject)
	}

	succeeded, err := service.SyncProject(ctx, *project)
	if err != nil {
		return fmt.Errorf("syncing %s: %w", syncProject, err)
	}
	if !succeeded {
		return fmt.Errorf("project %s did not sync fully", syncProject)
	}

	fmt.Printf("Project %s synced successfully\n", syncProject)
	return nil
}

// buildSyncer assembles the GitHub client, storage backend and sync
// service from the configuration.
func buildSyncer(ctx context.Context, cfg *config.Config) (*syncer.Service, func(), error) {
	client := github.New(cfg.GitHub)

	backend, err := storage.NewBackend(ctx, cfg.Storage)
	if err != nil {
		return nil, nil, fmt.Errorf("initializing storage backend: %w", err)
	}

	return syncer.New(client, backend, cfg.Projects), func() {}, nil
}

// recordRun appends a run to the history store when enabled.
func recordRun(ctx context.Context, cfg *config.Config, report *syncer.Report) {
	if !cfg.History.Enabled {
		return
	}

	store, err := history.Open(cfg.History.Path)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to open history store")
		return
	}
	defer store.Close()

	recordRunTo(ctx, store, report)
}

// recordRunTo writes one run to an already-open history store.
func recordRunTo(ctx context.Context, store *history.Store, report *syncer.Report) {
	status := "success"
	if report.Succeeded() < len(report.Results) {
		status = "partial"
	}
	if report.Succeeded() == 0 && len(report.Results) > 0 {
		status = "failure"
	}

	run := history.Run{
		ID:        report.RunID,
		StartedAt: report.StartedAt,
		Duration:  report.Duration,
		Results:   report.Results,
		Status:    status,
	}
	if err := store.Record(ctx, run); err != nil {
		log.Warn().Err(err).Msg("Failed to record sync run")
	}
}
