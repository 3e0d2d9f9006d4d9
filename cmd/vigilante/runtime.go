package main

import (
	"context"
	"errors"
	"time"

	"github.com/platformbuilds/vigilante-core/internal/advisor"
	"github.com/platformbuilds/vigilante-core/internal/config"
	"github.com/platformbuilds/vigilante-core/internal/discovery"
	"github.com/platformbuilds/vigilante-core/internal/eventlog"
	"github.com/platformbuilds/vigilante-core/internal/logging"
	"github.com/platformbuilds/vigilante-core/internal/monitoring"
	"github.com/platformbuilds/vigilante-core/internal/services"
	"github.com/platformbuilds/vigilante-core/internal/tracing"
	"github.com/platformbuilds/vigilante-core/pkg/cache"
	"github.com/platformbuilds/vigilante-core/pkg/logger"
)

// runtime holds the collaborators shared by simulate and serve.
type runtime struct {
	cfg      *config.Config
	log      logger.Logger
	cache    cache.Cache
	advisor  services.AdvisorService
	eventLog *eventlog.Writer
	tracer   *tracing.TracerProvider
}

func newLogger(cfg *config.Config) logger.Logger {
	if cfg.ConsoleFormat == "rich" || cfg.IsDevelopment() {
		return logger.NewConsole(cfg.LogLevel)
	}
	return logger.New(cfg.LogLevel)
}

func newRuntime(ctx context.Context, cfg *config.Config, log logger.Logger) (*runtime, error) {
	rt := &runtime{cfg: cfg, log: log}

	nodes := cfg.Cache.Nodes
	if d := cfg.Cache.Discovery; d.Enabled {
		resolved, err := discovery.ResolveNodes(ctx, d, nil)
		if err != nil {
			log.Warn("Cache node discovery failed, using configured nodes", "service", d.Service, "error", err)
		} else {
			log.Info("Cache nodes discovered", "service", d.Service, "nodes", resolved)
			nodes = resolved
		}
	}
	rt.cache = cache.New(cache.Options{
		Nodes:      nodes,
		Password:   cfg.Cache.Password,
		DB:         cfg.Cache.DB,
		DefaultTTL: time.Duration(cfg.Cache.TTL) * time.Second,
	}, log)

	if cfg.Monitoring.TracingEnabled && cfg.Monitoring.OTLPEndpoint != "" {
		tp, err := tracing.NewTracerProvider(ctx, cfg.Monitoring.ServiceName, monitoring.Version, cfg.Monitoring.OTLPEndpoint)
		if err != nil {
			log.Warn("Tracing disabled", "endpoint", cfg.Monitoring.OTLPEndpoint, "error", err)
		} else {
			rt.tracer = tp
		}
	}

	adv, err := buildAdvisor(cfg, rt.cache, log)
	if err != nil {
		rt.Close()
		return nil, err
	}
	rt.advisor = adv
	return rt, nil
}

// buildAdvisor returns nil for a dry run. A provider without credentials
// degrades to a dry run with a warning rather than failing the run.
func buildAdvisor(cfg *config.Config, c cache.Cache, log logger.Logger) (services.AdvisorService, error) {
	if cfg.LLM.DryRun {
		log.Info("Dry run: advisor disabled")
		return nil, nil
	}
	if cfg.LLM.Enabled && !services.HasCredentials(cfg.LLM) {
		log.Warn("No API key for advisor provider, continuing as dry run", "provider", cfg.LLM.Provider)
		return nil, nil
	}
	adv, err := services.BuildAdvisor(cfg.LLM, advisor.DefaultPolicy().System(), c, logging.FromCoreLogger(log))
	if errors.Is(err, services.ErrAdvisorDisabled) {
		log.Info("Advisor disabled by configuration")
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	log.Info("Advisor ready", "provider", adv.GetProviderName(), "model", adv.GetModelName())
	return adv, nil
}

// openEventLog opens the step log; an empty path disables it.
func (rt *runtime) openEventLog() error {
	if rt.cfg.EventLog.Path == "" {
		return nil
	}
	w, err := eventlog.NewWriter(rt.cfg.EventLog, logging.FromCoreLogger(rt.log))
	if err != nil {
		return err
	}
	rt.eventLog = w
	return nil
}

func (rt *runtime) Close() {
	if rt.eventLog != nil {
		if err := rt.eventLog.Close(); err != nil {
			rt.log.Warn("Failed to close event log", "error", err)
		}
	}
	if s, ok := rt.cache.(interface{ Stop() }); ok {
		s.Stop()
	}
	if rt.tracer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := rt.tracer.Shutdown(ctx); err != nil {
			rt.log.Warn("Failed to flush traces", "error", err)
		}
	}
	_ = rt.log.Sync()
}
