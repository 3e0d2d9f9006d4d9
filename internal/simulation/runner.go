// Package simulation walks a displacement series step by step, classifying
// each evaluated index and optionally asking the advisor for a second opinion.
package simulation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/platformbuilds/vigilante-core/internal/advisor"
	"github.com/platformbuilds/vigilante-core/internal/analysis"
	"github.com/platformbuilds/vigilante-core/internal/config"
	"github.com/platformbuilds/vigilante-core/internal/eventlog"
	"github.com/platformbuilds/vigilante-core/internal/logging"
	"github.com/platformbuilds/vigilante-core/internal/metrics"
	"github.com/platformbuilds/vigilante-core/internal/models"
	"github.com/platformbuilds/vigilante-core/internal/series"
	"github.com/platformbuilds/vigilante-core/internal/services"
	"github.com/platformbuilds/vigilante-core/internal/tracing"
	"github.com/platformbuilds/vigilante-core/pkg/cache"
)

// Publisher receives every step record as soon as it is logged.
type Publisher interface {
	Publish(rec models.StepRecord)
}

// Renderer prints steps and the end-of-run summary.
type Renderer interface {
	Step(rec models.StepRecord, snap models.Snapshot)
	Summary(s *models.SimulationSummary)
}

// Deps are the collaborators of a run. Everything is optional: a nil
// Advisor means dry-run, nil sinks are skipped.
type Deps struct {
	Advisor   services.AdvisorService
	EventLog  *eventlog.Writer
	Cache     cache.Cache
	Publisher Publisher
	Renderer  Renderer
	Tracer    *tracing.StepTracer
	Logger    logging.Logger
}

// Runner evaluates one series. It is single use.
type Runner struct {
	cfg     *config.Config
	series  *series.Series
	startAt time.Time
	deps    Deps
	logger  logging.Logger

	prompts   *advisor.PromptBuilder
	validator *advisor.Validator
	stateList []string
}

// NewRunner trims the series to analysis.start_at and prepares the advisor
// protocol.
func NewRunner(cfg *config.Config, s *series.Series, deps Deps) (*Runner, error) {
	if cfg == nil {
		return nil, errors.New("simulation: config is required")
	}
	if s == nil || s.Len() == 0 {
		return nil, series.ErrEmptySeries
	}

	r := &Runner{
		cfg:    cfg,
		series: s,
		deps:   deps,
		logger: logging.OrNop(deps.Logger),
	}
	if r.deps.Tracer == nil {
		r.deps.Tracer = tracing.NewStepTracer("vigilante-core")
	}

	if cfg.Analysis.StartAt != "" {
		at, err := config.ParseStartAt(cfg.Analysis.StartAt)
		if err != nil {
			return nil, err
		}
		trimmed, err := s.StartAt(at)
		if err != nil {
			return nil, fmt.Errorf("no samples at or after %s: %w", cfg.Analysis.StartAt, err)
		}
		r.series = trimmed
		r.startAt = at
	}

	policy := advisor.DefaultPolicy()
	r.prompts = advisor.NewPromptBuilder(policy, cfg.LLM.JustLength)
	r.validator = advisor.NewValidator(policy.Whitelist())
	for _, st := range models.States {
		r.stateList = append(r.stateList, st.String())
	}
	return r, nil
}

// DryRun reports whether the run skips the advisor.
func (r *Runner) DryRun() bool { return r.deps.Advisor == nil }

// Run walks the series and writes the summary. Cancelling ctx stops the
// walk between steps; the partial summary is still returned and written.
func (r *Runner) Run(ctx context.Context) (*models.SimulationSummary, error) {
	runID := uuid.New().String()
	started := time.Now().UTC()
	ctx, runSpan := r.deps.Tracer.StartRunSpan(ctx, runID, r.cfg.Simulation.CSVPath, r.series.Len())
	defer runSpan.End()

	a := r.cfg.Analysis
	sig := analysis.NewSignals(r.series, a.EMAHoursArray())
	n := sig.Len()

	initial := analysis.BaselineThresholds(sig.VelAbs, a.BaselineFraction)
	lookback := LookbackPoints(r.series, a.LookbackMin)
	r.logger.Info("Simulation started",
		"run_id", runID,
		"points", n,
		"lookback_points", lookback,
		"step_points", a.StepPoints,
		"thr_alerta_mm_hr", initial.Alerta,
		"thr_alarma_mm_hr", initial.Alarma,
		"dry_run", r.DryRun())

	params := analysis.WindowParams{
		LookbackPoints:         lookback,
		AccumPeriodHours:       a.AccumRateHours,
		AccumWindowThresholdMm: a.AccumWindowThresholdMm,
		BollingerK:             a.BollingerK,
		FixedRules:             r.cfg.FixedRules.Rules(),
	}

	first := sig.Times[0]
	if !r.startAt.IsZero() {
		first = r.startAt
	}
	sched := newAdvisorSchedule(!r.DryRun(), a.StepPoints, r.cfg.LLM.Every, r.cfg.LLM.EmitEveryMin, first)

	t := newTally()
	cancelled := false

loop:
	for i := 1; i < n; i++ {
		if !ShouldEvaluate(i, n, a.StepPoints) {
			continue
		}
		select {
		case <-ctx.Done():
			cancelled = true
			break loop
		default:
		}

		rec, snap, ok := r.evaluate(ctx, runID, sig, i, initial, params, sched, t)
		if !ok {
			continue
		}
		t.add(rec, snap)
		r.emit(ctx, rec, snap)

		if sleep := r.cfg.Simulation.Sleep; sleep > 0 && i < n-1 {
			select {
			case <-ctx.Done():
				cancelled = true
				break loop
			case <-time.After(sleep):
			}
		}
	}

	summary := r.buildSummary(runID, started, sig, initial, lookback, t)
	summary.Meta.Cancelled = cancelled
	runSpan.SetAttributes(
		attribute.Int("run.evaluated_steps", t.evaluated),
		attribute.Bool("run.cancelled", cancelled),
	)

	if r.deps.Renderer != nil {
		r.deps.Renderer.Summary(summary)
	}
	if path := r.cfg.Summary.Path; path != "" {
		if err := WriteSummary(path, summary); err != nil {
			r.deps.Tracer.RecordError(runSpan, err)
			return summary, err
		}
	}

	r.logger.Info("Simulation finished",
		"run_id", runID,
		"evaluated_steps", t.evaluated,
		"alarms", len(t.alarms),
		"alerts", len(t.alerts),
		"disagreements", t.disagreements,
		"cancelled", cancelled)
	return summary, nil
}

// evaluate computes the snapshot, decision and optional advisory for index i.
func (r *Runner) evaluate(ctx context.Context, runID string, sig *analysis.Signals, i int,
	initial models.Thresholds, params analysis.WindowParams, sched *advisorSchedule, t *tally) (models.StepRecord, models.Snapshot, bool) {
	start := time.Now()
	ctx, span := r.deps.Tracer.StartStepSpan(ctx, i, sig.Times[i])
	defer span.End()

	hours := r.cfg.Analysis.SlidingWindowHours
	thr, thrSource := initial, models.ThresholdSourceInitial
	if sliding, ok := analysis.SlidingThresholds(sig.Times, sig.VelAbs, sig.Times[i], hours); ok {
		thr, thrSource = sliding, models.SlidingSource(hours)
	} else {
		r.logger.Warn("Sliding thresholds unavailable, using initial thresholds",
			"index", i,
			"time", models.FormatTime(sig.Times[i]),
			"window_hours", hours)
	}

	snap, ok := analysis.Summarize(sig, i, thr, thrSource, params, analysis.HistoryAt(sig, i))
	if !ok {
		return models.StepRecord{}, models.Snapshot{}, false
	}

	rec := models.StepRecord{
		ID:              uuid.New().String(),
		RunID:           runID,
		Index:           i,
		Time:            snap.Current.Time,
		CurrentState:    snap.Decision.State,
		VelMmHr:         snap.Current.VelMmHr,
		DispMm:          snap.Current.DispMm,
		CumDispMmTotal:  snap.Current.CumDispMmTotal,
		CumDispMmWindow: snap.Current.CumDispMmWindow,
		Thresholds:      snap.Thresholds,
		Decision:        snap.Decision,
		BollingerVelPos: snap.Bollinger.Vel.PosPct,
	}
	r.deps.Tracer.RecordDecision(span, rec.CurrentState.String(), string(rec.Decision.Source), rec.Decision.Rule, rec.VelMmHr)

	if sched.Due(i, sig.Times[i]) {
		t.advisorCalls++
		if err := r.advise(ctx, &rec, snap); err != nil {
			t.advisorErrors++
			r.deps.Tracer.RecordError(span, err)
			r.logger.Warn("Advisor call failed, keeping rule-based state",
				"index", i,
				"time", rec.Time,
				"state", rec.CurrentState,
				"error", err)
		} else {
			sched.Emitted(sig.Times[i])
		}
	}

	metrics.StepsEvaluated.WithLabelValues(rec.CurrentState.String(), string(rec.Decision.Source)).Inc()
	metrics.ThresholdSelections.WithLabelValues(thrSource).Inc()
	metrics.CurrentVelocity.Set(rec.VelMmHr)
	metrics.SetCurrentState(rec.CurrentState.String(), r.stateList)
	metrics.StepDuration.Observe(time.Since(start).Seconds())

	r.logger.Debug("Step evaluated",
		"index", i,
		"time", rec.Time,
		"state", rec.CurrentState,
		"source", rec.Decision.Source,
		"rule", rec.Decision.Rule,
		"vel_mm_hr", rec.VelMmHr,
		"thresholds", thrSource)
	return rec, snap, true
}

// advise fills the advisory fields of rec. The returned error is also
// stored in rec.LLMError; it never changes the computed state.
func (r *Runner) advise(ctx context.Context, rec *models.StepRecord, snap models.Snapshot) error {
	adv := r.deps.Advisor
	prompt, err := r.prompts.Build(snap)
	if err != nil {
		rec.LLMError = err.Error()
		return err
	}

	ctx, span := r.deps.Tracer.StartAdvisorSpan(ctx, adv.GetProviderName(), adv.GetModelName())
	resp, err := adv.Complete(ctx, prompt)
	if err != nil {
		r.deps.Tracer.RecordError(span, err)
		span.End()
		rec.LLMError = err.Error()
		return err
	}
	span.SetAttributes(
		attribute.Int("advisor.tokens", resp.TokensUsed),
		attribute.Bool("advisor.cached", resp.Cached),
	)
	span.End()

	rec.LLM = resp.Text
	rec.LLMModel = resp.Model
	if rec.LLMModel == "" {
		rec.LLMModel = adv.GetModelName()
	}

	switch out := r.validator.Interpret(resp.Text).(type) {
	case advisor.Validated:
		norm := out.Response
		rec.LLMJSON = &norm
		rec.LLMRationale = norm.Rationale
		rec.LLMWarnings = out.Warns
		if out.LevelTrusted {
			rec.LLMLevel = norm.Level
			rec.Disagreement = norm.Level != rec.CurrentState
		}
		_, rec.JustificationWarnings = advisor.ValidateJustification(&norm, snap.SuggestedMetrics, r.cfg.LLM.JustLength)
	case advisor.Unparseable:
		rec.LLMWarnings = out.Warns
		r.logger.Warn("Advisor reply held no usable JSON", "time", rec.Time, "reason", out.Reason)
	}

	for _, w := range rec.LLMWarnings {
		metrics.ValidationWarnings.WithLabelValues(metrics.WarningKind(w)).Inc()
	}
	for _, w := range rec.JustificationWarnings {
		metrics.ValidationWarnings.WithLabelValues(metrics.WarningKind(w)).Inc()
	}
	if len(rec.LLMWarnings) > 0 {
		r.logger.Warn("Advisor reply normalized", "time", rec.Time, "warnings", rec.LLMWarnings)
	}
	if rec.Disagreement {
		metrics.Disagreements.Inc()
		r.logger.Warn("Advisor disagrees with rule-based state",
			"time", rec.Time,
			"state", rec.CurrentState,
			"llm_level", rec.LLMLevel,
			"rule", rec.Decision.Rule)
	}
	return nil
}

// emit hands the record to the log, the live stream, the cache and the
// console, in that order. Sink failures are logged and do not stop the run.
func (r *Runner) emit(ctx context.Context, rec models.StepRecord, snap models.Snapshot) {
	if r.deps.EventLog != nil {
		if _, err := r.deps.EventLog.Append(rec); err != nil {
			r.logger.Error("Failed to append step record", "time", rec.Time, "error", err)
		}
	}
	if r.deps.Publisher != nil {
		r.deps.Publisher.Publish(rec)
	}
	if r.deps.Cache != nil {
		ttl := time.Duration(r.cfg.Cache.TTL) * time.Second
		latest := models.LatestStep{Record: rec, Snapshot: snap}
		if err := r.deps.Cache.Set(ctx, cache.LatestStepKey, latest, ttl); err != nil {
			r.logger.Warn("Failed to cache latest step", "error", err)
		}
	}
	if r.deps.Renderer != nil {
		r.deps.Renderer.Step(rec, snap)
	}
}

func (r *Runner) buildSummary(runID string, started time.Time, sig *analysis.Signals,
	initial models.Thresholds, lookback int, t *tally) *models.SimulationSummary {
	k := r.cfg.Summary.TopK
	s := &models.SimulationSummary{
		Meta: models.SummaryMeta{
			RunID:             runID,
			StartedAt:         started.Format(time.RFC3339),
			FinishedAt:        time.Now().UTC().Format(time.RFC3339),
			CSVPath:           r.cfg.Simulation.CSVPath,
			StartAt:           r.cfg.Analysis.StartAt,
			FirstTime:         models.FormatTime(sig.Times[0]),
			LastTime:          models.FormatTime(sig.Times[sig.Len()-1]),
			Points:            sig.Len(),
			EvaluatedSteps:    t.evaluated,
			AdvisorCalls:      t.advisorCalls,
			AdvisorErrors:     t.advisorErrors,
			Disagreements:     t.disagreements,
			DryRun:            r.DryRun(),
			InitialThresholds: initial,
			FixedRules:        r.cfg.FixedRules.Rules(),
			LookbackPoints:    lookback,
			StepPoints:        r.cfg.Analysis.StepPoints,
			AccumRateHours:    r.cfg.Analysis.AccumRateHours,
		},
		Counts: models.SummaryCounts{
			Levels:  t.levels,
			Sources: t.sources,
			Rules:   t.rules,
		},
		Stats: models.SummaryStats{
			VelMmHr:    velocityStats(sig.Velocity),
			Accum12hMm: accumStats(sig.Times, sig.Disp),
		},
		Events: models.SummaryEvents{
			AlarmsCount:      len(t.alarms),
			AlertsCount:      len(t.alerts),
			TopAlarmsByVel:   topK(t.alarms, k, func(e models.StepEvent) float64 { return e.VelMmHr }),
			TopAlarmsByAccum: topK(t.alarms, k, func(e models.StepEvent) float64 { return e.CumDispMmWindow }),
			Episodes:         analysis.DetectEvents(sig.Times, sig.Velocity, sig.Disp, initial),
		},
	}
	if s.Events.Episodes == nil {
		s.Events.Episodes = []models.Event{}
	}
	if adv := r.deps.Advisor; adv != nil {
		s.Meta.LLMProvider = adv.GetProviderName()
		s.Meta.LLMModel = adv.GetModelName()
	}
	return s
}
