package main

import (
	"github.com/spf13/cobra"

	"github.com/platformbuilds/vigilante-core/internal/console"
	"github.com/platformbuilds/vigilante-core/internal/eventlog"
)

func newEventsCmd(a *app) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Print the tail of the step log",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := a.loadConfig(cmd, map[string]string{"log": "event_log.path"})
			if err != nil {
				return err
			}
			recs, err := eventlog.ReadTail(cfg.EventLog.Path, limit)
			if err != nil {
				return err
			}
			console.New(a.stdout, cfg.ConsoleFormat, cfg.Summary.TopK).Events(recs)
			return nil
		},
	}
	cmd.Flags().String("log", "", "JSONL step log path")
	cmd.Flags().IntVar(&limit, "limit", 50, "number of records, 0 for all")
	return cmd
}
