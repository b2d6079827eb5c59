package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/relsync/relsync/internal/daemon"
)

var (
	serviceType   string
	serviceOutput string
)

var serviceCmd = &cobra.Command{
	Use:   "service",
	Short: "Generate a systemd unit or crontab entry for the scheduler",
	RunE: func(cmd *cobra.Command, args []string) error {
		execPath, err := os.Executable()
		if err != nil {
			return fmt.Errorf("resolving executable path: %w", err)
		}

		configPath := cfgFile
		if configPath == "" {
			configPath = "/etc/relsync/relsync.yaml"
		}
		if abs, err := filepath.Abs(configPath); err == nil {
			configPath = abs
		}

		var content string
		switch serviceType {
		case "systemd":
			content = daemon.SystemdUnit(execPath, configPath)
		case "cron":
			content = daemon.CrontabExample(execPath, configPath)
		default:
			return fmt.Errorf("unsupported service type %q, expected systemd or cron", serviceType)
		}

		if serviceOutput == "" {
			fmt.Print(content)
			return nil
		}

		if err := os.WriteFile(serviceOutput, []byte(content), 0644); err != nil {
			return fmt.Errorf("writing %s: %w", serviceOutput, err)
		}
		fmt.Printf("Wrote %s service file to %s\n", serviceType, serviceOutput)
		return nil
	},
}

func init() {
	serviceCmd.Flags().StringVarP(&serviceType, "type", "t", "systemd", "service type (systemd or cron)")
	serviceCmd.Flags().StringVarP(&serviceOutput, "output", "o", "", "write to this file instead of stdout")
	rootCmd.AddCommand(serviceCmd)
}
