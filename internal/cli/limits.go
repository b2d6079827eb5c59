package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/relsync/relsync/internal/github"
)

var limitsCmd = &cobra.Command{
	Use:   "limits",
	Short: "Show the current GitHub API quota",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		client := github.New(cfg.GitHub)
		rl, err := client.RateLimit(cmd.Context())
		if err != nil {
			return fmt.Errorf("querying rate limit: %w", err)
		}

		fmt.Println("GitHub API quota:")
		fmt.Printf("  Limit:     %d\n", rl.Limit)
		fmt.Printf("  Remaining: %d\n", rl.Remaining)
		fmt.Printf("  Resets at: %s\n", rl.Reset.Local().Format("2006-01-02 15:04:05"))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(limitsCmd)
}
