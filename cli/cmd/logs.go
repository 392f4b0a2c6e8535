package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/filaform/filatag/auditlog"
	"github.com/filaform/filatag/cli/config"
)

// LogsCommand prints recent audit log entries.
func LogsCommand() *cli.Command {
	return &cli.Command{
		Name:  "logs",
		Usage: "Show recent programming actions from the audit log",
		Flags: []cli.Flag{
			ConfigFlag,
			&cli.IntFlag{
				Name:    "limit",
				Aliases: []string{"n"},
				Usage:   "Maximum number of entries to show",
				Value:   50,
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Emit entries as JSON lines",
			},
		},
		Action: runLogs,
	}
}

func runLogs(c *cli.Context) error {
	cfg, err := config.LoadOrDefault(c.String("config"))
	if err != nil {
		return err
	}

	store := auditlog.NewStore(cfg.Storage.AuditLogFile)
	entries, err := store.Tail(c.Int("limit"))
	if err != nil {
		return fmt.Errorf("read audit log: %w", err)
	}

	if c.Bool("json") {
		enc := json.NewEncoder(os.Stdout)
		for _, entry := range entries {
			if err := enc.Encode(entry); err != nil {
				return err
			}
		}
		return nil
	}

	for _, entry := range entries {
		line := fmt.Sprintf("%s  %-22s", entry.Ts, entry.Action)
		if entry.SessionID != "" {
			line += "  session=" + entry.SessionID
		}
		for k, v := range entry.Fields {
			line += fmt.Sprintf("  %s=%v", k, v)
		}
		fmt.Println(line)
	}
	return nil
}
