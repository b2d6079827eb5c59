package cli

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/relsync/relsync/internal/daemon"
	"github.com/relsync/relsync/internal/history"
	"github.com/relsync/relsync/internal/metrics"
	"github.com/relsync/relsync/internal/notify"
	"github.com/relsync/relsync/internal/scheduler"
)

var pidfilePath string

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run the sync scheduler until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		if pidfilePath != "" {
			pf, err := daemon.Acquire(pidfilePath)
			if err != nil {
				return err
			}
			defer pf.Release()
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		service, cleanup, err := buildSyncer(ctx, cfg)
		if err != nil {
			return err
		}
		defer cleanup()

		var store *history.Store
		if cfg.History.Enabled {
			store, err = history.Open(cfg.History.Path)
			if err != nil {
				return fmt.Errorf("opening history store: %w", err)
			}
			defer store.Close()
		}

		task := func(ctx context.Context) (scheduler.Result, error) {
			report, err := service.SyncAll(ctx)
			if err != nil {
				return scheduler.Result{}, err
			}
			if store != nil {
				recordRunTo(ctx, store, report)
			}
			return scheduler.MapResult(report.Results), nil
		}

		sched, err := scheduler.New(cfg.Scheduler, task, notify.New(cfg.Notifications))
		if err != nil {
			return fmt.Errorf("initializing scheduler: %w", err)
		}

		if cfg.Metrics.Enabled {
			startMetricsListener(ctx, cfg.Metrics.Listen)
		}

		return sched.Start(ctx)
	},
}

func init() {
	scheduleCmd.Flags().StringVar(&pidfilePath, "pidfile", "", "guard against concurrent instances with this pidfile")
	rootCmd.AddCommand(scheduleCmd)
}

// startMetricsListener serves /metrics in the background. Listener errors
// are logged, never fatal; metrics are an operator convenience.
func startMetricsListener(ctx context.Context, listen string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())

	server := &http.Server{Addr: listen, Handler: mux}

	go func() {
		log.Info().Str("listen", listen).Msg("Serving Prometheus metrics")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("Metrics listener failed")
		}
	}()

	go func() {
		<-ctx.Done()
		_ = server.Close()
	}()
}
