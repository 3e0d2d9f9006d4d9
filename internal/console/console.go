// Package console prints evaluated steps and run summaries for operators.
package console

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strings"
	"sync"

	"github.com/platformbuilds/vigilante-core/internal/models"
)

// Output formats.
const (
	FormatRich  = "rich"
	FormatPlain = "plain"
	FormatJSON  = "json"
)

// maxRawChars bounds the raw advisor text echoed to the console.
const maxRawChars = 500

// Console renders to w in one of the output formats. Safe for concurrent use.
type Console struct {
	mu     sync.Mutex
	w      io.Writer
	format string
	topK   int
}

// New returns a console writer. Unknown formats fall back to plain.
func New(w io.Writer, format string, topK int) *Console {
	switch format {
	case FormatRich, FormatPlain, FormatJSON:
	default:
		format = FormatPlain
	}
	if topK <= 0 {
		topK = 10
	}
	return &Console{w: w, format: format, topK: topK}
}

// Format returns the active output format.
func (c *Console) Format() string { return c.format }

// Step prints one evaluated step.
func (c *Console) Step(rec models.StepRecord, snap models.Snapshot) {
	view := newStepView(rec, snap)
	var out string
	switch c.format {
	case FormatJSON:
		b, err := json.MarshalIndent(view, "", "  ")
		if err != nil {
			out = fmt.Sprintf(`{"error":%q}`, err.Error())
		} else {
			out = string(b)
		}
	case FormatRich:
		out = renderRichStep(view)
	default:
		out = renderPlainStep(view)
	}
	c.write(out)
}

// Summary prints the end-of-run counters and top alarms.
func (c *Console) Summary(s *models.SimulationSummary) {
	if s == nil {
		return
	}
	var out string
	switch c.format {
	case FormatJSON:
		b, err := json.MarshalIndent(s, "", "  ")
		if err != nil {
			out = fmt.Sprintf(`{"error":%q}`, err.Error())
		} else {
			out = string(b)
		}
	case FormatRich:
		out = renderRichSummary(s, c.topK)
	default:
		out = renderPlainSummary(s, c.topK)
	}
	c.write(out)
}

// Events prints a tail of the step log, oldest first.
func (c *Console) Events(recs []models.StepRecord) {
	var out string
	switch c.format {
	case FormatJSON:
		b, err := json.MarshalIndent(recs, "", "  ")
		if err != nil {
			out = fmt.Sprintf(`{"error":%q}`, err.Error())
		} else {
			out = string(b)
		}
	case FormatRich:
		out = renderRichEvents(recs)
	default:
		out = renderPlainEvents(recs)
	}
	c.write(out)
}

func (c *Console) write(s string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !strings.HasSuffix(s, "\n") {
		s += "\n"
	}
	_, _ = io.WriteString(c.w, s)
}

// stepView is the operator-facing digest of a step.
type stepView struct {
	Time       string                  `json:"time"`
	State      models.State            `json:"state"`
	Metrics    stepMetrics             `json:"metrics"`
	Thresholds models.ActiveThresholds `json:"thresholds"`
	Decision   models.Decision         `json:"decision"`
	Window     windowView              `json:"window"`
	Bollinger  float64                 `json:"bollinger_vel_pos"`
	LLM        llmView                 `json:"llm"`
}

type stepMetrics struct {
	DispMm           float64 `json:"disp_mm"`
	DeltaMm          float64 `json:"delta_mm"`
	CumWindowMm      float64 `json:"cum_window_mm"`
	VelMmHr          float64 `json:"vel_mm_hr"`
	AccumRateMmHr    float64 `json:"accum_rate_mm_hr"`
	AccumMmPerPeriod float64 `json:"accum_mm_per_period"`
	PeriodHours      float64 `json:"period_hours"`
}

type windowView struct {
	DurationHours          float64 `json:"duration_hours"`
	NPoints                int     `json:"n_points"`
	CumMinMm               float64 `json:"cum_min_mm"`
	CumMaxMm               float64 `json:"cum_max_mm"`
	SignChangeWindow       bool    `json:"sign_change_window"`
	AccumWindowThresholdMm float64 `json:"accum_window_threshold_mm"`
}

type llmView struct {
	JSON         *models.AdvisoryResponse `json:"json"`
	Raw          string                   `json:"raw,omitempty"`
	Disagreement bool                     `json:"disagreement"`
	Error        string                   `json:"error,omitempty"`
	Warnings     []string                 `json:"warnings,omitempty"`
}

func newStepView(rec models.StepRecord, snap models.Snapshot) stepView {
	cur := snap.Current
	return stepView{
		Time:  rec.Time,
		State: rec.CurrentState,
		Metrics: stepMetrics{
			DispMm:           round3(cur.DispMm),
			DeltaMm:          round3(cur.DeltaMm),
			CumWindowMm:      round3(cur.CumDispMmWindow),
			VelMmHr:          round3(cur.VelMmHr),
			AccumRateMmHr:    round3(cur.AccumRateMmHr),
			AccumMmPerPeriod: round3(cur.AccumMmPerPeriod),
			PeriodHours:      cur.AccumPeriodHours,
		},
		Thresholds: rec.Thresholds,
		Decision:   rec.Decision,
		Window: windowView{
			DurationHours:          round3(snap.Window.DurationHours),
			NPoints:                snap.Window.NPoints,
			CumMinMm:               round3(snap.Window.CumMinMm),
			CumMaxMm:               round3(snap.Window.CumMaxMm),
			SignChangeWindow:       snap.Window.SignChangeWindow,
			AccumWindowThresholdMm: snap.Window.AccumWindowThresholdMm,
		},
		Bollinger: round3(rec.BollingerVelPos),
		LLM: llmView{
			JSON:         rec.LLMJSON,
			Raw:          truncate(rec.LLM, maxRawChars),
			Disagreement: rec.Disagreement,
			Error:        rec.LLMError,
			Warnings:     append(append([]string(nil), rec.LLMWarnings...), rec.JustificationWarnings...),
		},
	}
}

func round3(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return math.Round(v*1000) / 1000
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}
