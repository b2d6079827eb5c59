package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var initCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write an example configuration file",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := "relsync.yaml"
		if len(args) == 1 {
			path = args[0]
		}

		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists, refusing to overwrite", path)
		}

		data, err := yaml.Marshal(exampleConfig())
		if err != nil {
			return fmt.Errorf("rendering example config: %w", err)
		}

		if err := os.WriteFile(path, data, 0600); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}

		fmt.Printf("Wrote example configuration to %s\n", path)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}

// exampleConfig builds a commented-out starting point covering the common
// options. Secrets reference environment variables so the file can be
// committed as-is.
func exampleConfig() map[string]any {
	return map[string]any{
		"github": map[string]any{
			"token": "${GITHUB_TOKEN}",
			"api": map[string]any{
				"respect_rate_limit": true,
				"retry_on_limit":     true,
				"max_retries":        3,
				"backoff_factor":     2,
			},
		},
		"storage": map[string]any{
			"type": "s3",
			"s3": map[string]any{
				"endpoint":          "https://<account-id>.r2.cloudflarestorage.com",
				"region":            "auto",
				"bucket":            "releases",
				"access_key_id":     "${R2_ACCESS_KEY_ID}",
				"secret_access_key": "${R2_SECRET_ACCESS_KEY}",
				"force_path_style":  true,
			},
		},
		"projects": []map[string]any{
			{
				"owner":         "cli",
				"repo":          "cli",
				"asset_pattern": "*linux_amd64*",
			},
		},
		"scheduler": map[string]any{
			"enabled":         true,
			"mode":            "interval",
			"interval":        map[string]any{"hours": 6, "minutes": 0},
			"cron_expression": "0 */6 * * *",
			"random_delay":    map[string]any{"enabled": false, "max_minutes": 30},
			"time_window":     map[string]any{"enabled": false, "start_hour": 0, "end_hour": 23},
			"error_handling": map[string]any{
				"max_consecutive_failures": 3,
				"cooldown_minutes":         60,
			},
		},
		"notifications": map[string]any{
			"enabled": false,
			"webhook": map[string]any{
				"enabled": false,
				"url":     "https://example.com/hooks/relsync",
			},
		},
		"history": map[string]any{"enabled": true, "path": "relsync.db"},
		"metrics": map[string]any{"enabled": false, "listen": "localhost:9190"},
		"logging": map[string]any{"level": "info", "format": "console"},
	}
}
