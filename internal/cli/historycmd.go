package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/relsync/relsync/internal/history"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent sync runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		if !cfg.History.Enabled {
			return fmt.Errorf("history is disabled in the configuration")
		}

		store, err := history.Open(cfg.History.Path)
		if err != nil {
			return fmt.Errorf("opening history store: %w", err)
		}
		defer store.Close()

		runs, err := store.Recent(cmd.Context(), historyLimit)
		if err != nil {
			return fmt.Errorf("reading history: %w", err)
		}

		if len(runs) == 0 {
			fmt.Println("No sync runs recorded yet")
			return nil
		}

		for _, run := range runs {
			succeeded := 0
			for _, ok := range run.Results {
				if ok {
					succeeded++
				}
			}
			fmt.Printf("%s  %-8s %d/%d projects  %.1fs  %s\n",
				run.StartedAt.Local().Format("2006-01-02 15:04:05"),
				run.Status,
				succeeded,
				len(run.Results),
				run.Duration.Seconds(),
				run.ID,
			)
		}
		return nil
	},
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "number of runs to show")
	rootCmd.AddCommand(historyCmd)
}
