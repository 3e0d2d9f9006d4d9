package simulation

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/platformbuilds/vigilante-core/internal/analysis"
	"github.com/platformbuilds/vigilante-core/internal/models"
)

// accumWindow is the horizon of the accumulation statistics.
const accumWindow = 12 * time.Hour

// tally accumulates per-step counters in evaluation order.
type tally struct {
	levels        map[models.State]int
	sources       map[string]int
	rules         map[string]int
	alarms        []models.StepEvent
	alerts        []models.StepEvent
	evaluated     int
	advisorCalls  int
	advisorErrors int
	disagreements int
}

func newTally() *tally {
	t := &tally{
		levels:  make(map[models.State]int, len(models.States)),
		sources: map[string]int{string(models.SourceFixed): 0, string(models.SourceAdaptive): 0},
		rules:   make(map[string]int),
	}
	for _, s := range models.States {
		t.levels[s] = 0
	}
	return t
}

func (t *tally) add(rec models.StepRecord, snap models.Snapshot) {
	t.evaluated++
	t.levels[rec.CurrentState]++
	if rec.Decision.Source != "" {
		t.sources[string(rec.Decision.Source)]++
	}
	if rec.Decision.Rule != "" {
		t.rules[rec.Decision.Rule]++
	}
	if rec.Disagreement {
		t.disagreements++
	}

	ev := models.StepEvent{
		Time:            rec.Time,
		VelMmHr:         rec.VelMmHr,
		CumDispMmTotal:  rec.CumDispMmTotal,
		CumDispMmWindow: rec.CumDispMmWindow,
		AccumRateMmHr:   snap.Current.AccumRateMmHr,
		Rule:            rec.Decision.Rule,
		Source:          string(rec.Decision.Source),
	}
	switch rec.CurrentState {
	case models.StateAlarma:
		t.alarms = append(t.alarms, ev)
	case models.StateAlerta:
		t.alerts = append(t.alerts, ev)
	}
}

// topK returns the k events with the largest |key|, ties kept in time order.
func topK(events []models.StepEvent, k int, key func(models.StepEvent) float64) []models.StepEvent {
	if k <= 0 || len(events) == 0 {
		return []models.StepEvent{}
	}
	sorted := make([]models.StepEvent, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(a, b int) bool {
		return math.Abs(key(sorted[a])) > math.Abs(key(sorted[b]))
	})
	if len(sorted) > k {
		sorted = sorted[:k]
	}
	return sorted
}

// RuleCount is one entry of the rule ranking.
type RuleCount struct {
	Rule  string
	Count int
}

// TopRules ranks rules by count, then by label.
func TopRules(rules map[string]int, k int) []RuleCount {
	out := make([]RuleCount, 0, len(rules))
	for r, c := range rules {
		out = append(out, RuleCount{Rule: r, Count: c})
	}
	sort.Slice(out, func(a, b int) bool {
		if out[a].Count != out[b].Count {
			return out[a].Count > out[b].Count
		}
		return out[a].Rule < out[b].Rule
	})
	if k > 0 && len(out) > k {
		out = out[:k]
	}
	return out
}

func velocityStats(vel []float64) models.VelocityStats {
	mean, ok := analysis.Mean(vel)
	if !ok {
		return models.VelocityStats{}
	}
	abs := analysis.Abs(vel)
	return models.VelocityStats{
		Mean:   mean,
		P95Abs: analysis.Quantile(abs, 0.95),
		P99Abs: analysis.Quantile(abs, 0.99),
	}
}

// TrailingAccumulation returns, for every sample, the net displacement over
// the window (t-horizon, t].
func TrailingAccumulation(times []time.Time, disp []float64, horizon time.Duration) []float64 {
	out := make([]float64, len(times))
	j := 0
	for k, t := range times {
		for j < k && !times[j].After(t.Add(-horizon)) {
			j++
		}
		out[k] = disp[k] - disp[j]
	}
	return out
}

func accumStats(times []time.Time, disp []float64) models.AccumStats {
	acc := TrailingAccumulation(times, disp, accumWindow)
	mean, ok := analysis.Mean(acc)
	if !ok {
		return models.AccumStats{}
	}
	st := models.AccumStats{
		Mean:   mean,
		P95Abs: analysis.Quantile(analysis.Abs(acc), 0.95),
		P99Abs: analysis.Quantile(analysis.Abs(acc), 0.99),
		Min:    math.Inf(1),
		Max:    math.Inf(-1),
	}
	for _, v := range acc {
		st.Min = math.Min(st.Min, v)
		st.Max = math.Max(st.Max, v)
	}
	return st
}

// WriteSummary stores the summary as indented JSON. The file is replaced
// atomically so readers never see a partial document.
func WriteSummary(path string, s *models.SimulationSummary) error {
	b, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("encode summary: %w", err)
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create summary dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".summary-*.json")
	if err != nil {
		return fmt.Errorf("create summary: %w", err)
	}
	if _, err := tmp.Write(append(b, '\n')); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write summary: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write summary: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write summary: %w", err)
	}
	return nil
}

// LoadSummary reads a summary written by WriteSummary. A missing file
// returns an error wrapping os.ErrNotExist.
func LoadSummary(path string) (*models.SimulationSummary, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read summary: %w", err)
	}
	var s models.SimulationSummary
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, fmt.Errorf("decode summary: %w", err)
	}
	return &s, nil
}
