package simulation

import (
	"errors"
	"fmt"

	"github.com/platformbuilds/vigilante-core/internal/analysis"
	"github.com/platformbuilds/vigilante-core/internal/config"
	"github.com/platformbuilds/vigilante-core/internal/models"
	"github.com/platformbuilds/vigilante-core/internal/series"
)

// ErrNoWindow is returned by Analyze when the requested index has no
// history before it.
var ErrNoWindow = errors.New("simulation: index has no history window")

// Analyze evaluates a single index of s with the thresholds a run would
// use at that point. It calls no advisor and has no side effects. A
// negative index selects the last sample.
func Analyze(cfg *config.Config, s *series.Series, index int) (models.Snapshot, error) {
	if cfg == nil {
		return models.Snapshot{}, errors.New("simulation: nil config")
	}
	if s == nil || s.Len() == 0 {
		return models.Snapshot{}, series.ErrEmptySeries
	}
	n := s.Len()
	if index < 0 {
		index = n - 1
	}
	if index < 1 || index >= n {
		return models.Snapshot{}, fmt.Errorf("%w: index %d of %d points", ErrNoWindow, index, n)
	}

	a := cfg.Analysis
	sig := analysis.NewSignals(s, a.EMAHoursArray())
	thr, source := analysis.BaselineThresholds(sig.VelAbs, a.BaselineFraction), models.ThresholdSourceInitial
	if sliding, ok := analysis.SlidingThresholds(sig.Times, sig.VelAbs, sig.Times[index], a.SlidingWindowHours); ok {
		thr, source = sliding, models.SlidingSource(a.SlidingWindowHours)
	}

	params := analysis.WindowParams{
		LookbackPoints:         LookbackPoints(s, a.LookbackMin),
		AccumPeriodHours:       a.AccumRateHours,
		AccumWindowThresholdMm: a.AccumWindowThresholdMm,
		BollingerK:             a.BollingerK,
		FixedRules:             cfg.FixedRules.Rules(),
	}
	snap, ok := analysis.Summarize(sig, index, thr, source, params, analysis.HistoryAt(sig, index))
	if !ok {
		return models.Snapshot{}, fmt.Errorf("%w: index %d", ErrNoWindow, index)
	}
	return snap, nil
}
