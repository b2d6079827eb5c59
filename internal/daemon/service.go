package daemon

import "fmt"

// SystemdUnit renders a systemd service unit that runs the scheduler.
func SystemdUnit(execPath, configPath string) string {
	return fmt.Sprintf(`[Unit]
Description=GitHub release mirror scheduler
After=network-online.target
Wants=network-online.target

[Service]
Type=simple
ExecStart=%s schedule --config %s
Restart=always
RestartSec=10

[Install]
WantedBy=multi-user.target
`, execPath, configPath)
}

// CrontabExample renders a crontab entry that runs one sync pass every
// six hours, for installations that prefer cron over the built-in
// scheduler.
func CrontabExample(execPath, configPath string) string {
	return fmt.Sprintf(`# relsync: mirror release assets every 6 hours
0 */6 * * * %s sync --config %s >> /var/log/relsync-cron.log 2>&1
`, execPath, configPath)
}
