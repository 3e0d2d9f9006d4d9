package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/platformbuilds/vigilante-core/internal/console"
	"github.com/platformbuilds/vigilante-core/internal/logging"
	"github.com/platformbuilds/vigilante-core/internal/models"
	"github.com/platformbuilds/vigilante-core/internal/series"
	"github.com/platformbuilds/vigilante-core/internal/simulation"
	"github.com/platformbuilds/vigilante-core/internal/tracing"
)

// simulationKeys are the flags shared by simulate and serve.
var simulationKeys = map[string]string{
	"csv":            "simulation.csv_path",
	"sleep":          "simulation.sleep",
	"dry-run":        "llm.dry_run",
	"provider":       "llm.provider",
	"every":          "llm.every",
	"emit-every-min": "llm.emit_every_min",
	"start-at":       "analysis.start_at",
	"step-points":    "analysis.step_points",
	"lookback-min":   "analysis.lookback_min",
	"log":            "event_log.path",
	"summary":        "summary.path",
}

func addSimulationFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("csv", "", "vendor radar CSV (';' separated)")
	f.Duration("sleep", 50*time.Millisecond, "pause between evaluated steps")
	f.Bool("dry-run", false, "never call the advisor")
	f.String("provider", "", "advisor provider: deepseek, openai, anthropic, ollama")
	f.Int("every", 1, "call the advisor every N evaluated blocks")
	f.Int("emit-every-min", 0, "call the advisor every N simulated minutes (overrides --every)")
	f.String("start-at", "", "skip samples before this time (YYYY-MM-DD HH:MM)")
	f.Int("step-points", 60, "evaluate every N points")
	f.Int("lookback-min", 12, "summary window length in minutes")
	f.String("log", "", "JSONL step log path")
	f.String("summary", "", "run summary JSON path")
}

func newSimulateCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Replay a radar series step by step",
		Example: `  vigilante simulate --csv data/radar.csv --dry-run
  vigilante simulate --csv data/radar.csv --start-at "2025-03-01 00:00" --emit-every-min 120`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := a.loadConfig(cmd, simulationKeys)
			if err != nil {
				return err
			}
			if cfg.Simulation.CSVPath == "" {
				return fmt.Errorf("--csv is required")
			}

			log := newLogger(cfg)
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			rt, err := newRuntime(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer rt.Close()

			summary, err := runSimulation(ctx, rt, nil, console.New(a.stdout, cfg.ConsoleFormat, cfg.Summary.TopK))
			if err != nil {
				return err
			}
			if summary.Meta.Cancelled {
				log.Warn("Simulation interrupted", "evaluated_steps", summary.Meta.EvaluatedSteps)
			}
			return nil
		},
	}
	addSimulationFlags(cmd)
	return cmd
}

// runSimulation loads the configured CSV and runs it to completion or
// cancellation.
func runSimulation(ctx context.Context, rt *runtime, pub simulation.Publisher, renderer simulation.Renderer) (*models.SimulationSummary, error) {
	cfg := rt.cfg
	s, err := series.LoadVendorCSVFile(cfg.Simulation.CSVPath)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", cfg.Simulation.CSVPath, err)
	}
	rt.log.Info("Series loaded",
		"csv", cfg.Simulation.CSVPath,
		"points", s.Len(),
		"first", models.FormatTime(s.First()),
		"last", models.FormatTime(s.Last()))

	if err := rt.openEventLog(); err != nil {
		return nil, err
	}

	runner, err := simulation.NewRunner(cfg, s, simulation.Deps{
		Advisor:   rt.advisor,
		EventLog:  rt.eventLog,
		Cache:     rt.cache,
		Publisher: pub,
		Renderer:  renderer,
		Tracer:    tracing.NewStepTracer(cfg.Monitoring.ServiceName),
		Logger:    logging.FromCoreLogger(rt.log),
	})
	if err != nil {
		return nil, err
	}
	return runner.Run(ctx)
}
