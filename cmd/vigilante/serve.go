package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/platformbuilds/vigilante-core/internal/api"
	"github.com/platformbuilds/vigilante-core/internal/api/websocket"
	"github.com/platformbuilds/vigilante-core/internal/config"
	"github.com/platformbuilds/vigilante-core/internal/console"
	"github.com/platformbuilds/vigilante-core/internal/monitoring"
	"github.com/platformbuilds/vigilante-core/internal/simulation"
)

func newServeCmd(a *app) *cobra.Command {
	var echo bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, optionally replaying --csv in the background",
		Example: `  vigilante serve --port 8000
  vigilante serve --csv data/radar.csv --dry-run --sleep 1s`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			keys := map[string]string{"port": "server.port", "static-dir": "server.static_dir"}
			for k, v := range simulationKeys {
				keys[k] = v
			}
			cfg, v, err := a.loadConfig(cmd, keys)
			if err != nil {
				return err
			}

			log := newLogger(cfg)
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			rt, err := newRuntime(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer rt.Close()

			hub := websocket.NewHub(log)
			server := api.NewServer(cfg, log, rt.cache, hub)

			g, ctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				hub.Run(ctx)
				return nil
			})
			g.Go(func() error { return server.Start(ctx) })

			if path := v.ConfigFileUsed(); path != "" {
				watcher := config.NewConfigWatcher(path, cfg, log)
				watcher.RegisterWatcher(server.UpdateConfig)
				g.Go(func() error {
					if err := watcher.Start(ctx); err != nil {
						log.Warn("Configuration watcher stopped", "error", err)
						monitoring.RecordError("config", "watcher")
					}
					return nil
				})
			}

			if cfg.Simulation.CSVPath != "" {
				var renderer simulation.Renderer
				if echo {
					renderer = console.New(a.stdout, cfg.ConsoleFormat, cfg.Summary.TopK)
				}
				g.Go(func() error {
					summary, err := runSimulation(ctx, rt, hub, renderer)
					if err != nil {
						// the API keeps serving the last log and summary
						log.Error("Background simulation failed", "error", err)
						monitoring.RecordError("simulation", "serve")
						return nil
					}
					log.Info("Background simulation finished",
						"run_id", summary.Meta.RunID,
						"evaluated_steps", summary.Meta.EvaluatedSteps,
						"cancelled", summary.Meta.Cancelled)
					return nil
				})
			}

			log.Info("Starting VIGILANTE-CORE", "version", cmd.Root().Version, "environment", cfg.Environment)
			if err := g.Wait(); err != nil && err != context.Canceled {
				return err
			}
			log.Info("VIGILANTE-CORE shutdown complete")
			return nil
		},
	}
	f := cmd.Flags()
	f.Int("port", 8000, "HTTP port")
	f.String("static-dir", "", "directory holding the dashboard index.html")
	f.BoolVar(&echo, "echo", false, "also print background simulation steps to the console")
	addSimulationFlags(cmd)
	return cmd
}
