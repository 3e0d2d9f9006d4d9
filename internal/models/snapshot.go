package models

import (
	"encoding/json"
	"math"
	"time"
)

// TimeLayout is the timestamp format used in snapshots and step records.
const TimeLayout = "2006-01-02 15:04:05"

// FormatTime renders t with TimeLayout.
func FormatTime(t time.Time) string {
	return t.Format(TimeLayout)
}

// Sample is a (time, value) pair encoded as a two element JSON array.
// Non-finite values encode as null.
type Sample struct {
	Time  string
	Value float64
}

func (s Sample) MarshalJSON() ([]byte, error) {
	var v interface{} = s.Value
	if math.IsNaN(s.Value) || math.IsInf(s.Value, 0) {
		v = nil
	}
	return json.Marshal([2]interface{}{s.Time, v})
}

func (s *Sample) UnmarshalJSON(b []byte) error {
	var raw [2]interface{}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	s.Time, _ = raw[0].(string)
	if f, ok := raw[1].(float64); ok {
		s.Value = f
	} else {
		s.Value = math.NaN()
	}
	return nil
}

// Snapshot is the point-in-time bundle handed to the advisor and to the
// console/log output. It is built once per evaluated index and not mutated.
type Snapshot struct {
	Window           WindowInfo       `json:"window"`
	Current          CurrentMetrics   `json:"current"`
	Thresholds       ActiveThresholds `json:"thresholds"`
	Decision         Decision         `json:"decision"`
	FixedRules       *FixedRules      `json:"fixed_rules"`
	History          History          `json:"history"`
	Bollinger        BollingerPair    `json:"bollinger"`
	Slices           Slices           `json:"slices"`
	SuggestedMetrics SuggestedMetrics `json:"suggested_metrics"`
}

type WindowInfo struct {
	Start                  string  `json:"start"`
	End                    string  `json:"end"`
	NPoints                int     `json:"n_points"`
	DurationHours          float64 `json:"duration_hours"`
	CumMinMm               float64 `json:"cum_min_mm"`
	TCumMin                string  `json:"t_cum_min"`
	CumMaxMm               float64 `json:"cum_max_mm"`
	TCumMax                string  `json:"t_cum_max"`
	SignChangeWindow       bool    `json:"sign_change_window"`
	AccumWindowThresholdMm float64 `json:"accum_window_threshold_mm"`
}

type CurrentMetrics struct {
	Time                 string  `json:"time"`
	DispMm               float64 `json:"disp_mm"`
	CumDispMmTotal       float64 `json:"cum_disp_mm_total"`
	CumDispMmWindow      float64 `json:"cum_disp_mm_window"`
	CumDispMmFinalWindow float64 `json:"cum_disp_mm_final_window"`
	DeltaMm              float64 `json:"delta_mm"`
	VelMmHr              float64 `json:"vel_mm_hr"`
	AccumRateMmHr        float64 `json:"accum_rate_mm_hr"`
	AccumMmPerPeriod     float64 `json:"accum_mm_per_period"`
	AccumPeriodHours     float64 `json:"accum_period_hours"`
	State                State   `json:"state"`
}

// Decision records which comparison produced the state.
type Decision struct {
	State   State          `json:"-"`
	Source  DecisionSource `json:"source"`
	Rule    string         `json:"rule"`
	Trigger string         `json:"-"` // canonical umbral_disparado label
}

// History carries aggregates over the whole run so far.
type History struct {
	StartTime     string  `json:"start_time"`
	ElapsedHours  float64 `json:"elapsed_hours"`
	CumTotalMinMm float64 `json:"cum_total_min_mm"`
	CumTotalMaxMm float64 `json:"cum_total_max_mm"`
	VelAbsP95MmHr float64 `json:"vel_abs_p95_mm_hr"`
	VelAbsP99MmHr float64 `json:"vel_abs_p99_mm_hr"`
}

// Band is a mean +/- k*std envelope and where the current value sits in it.
type Band struct {
	Center float64 `json:"center"`
	Std    float64 `json:"std"`
	Upper  float64 `json:"upper"`
	Lower  float64 `json:"lower"`
	K      float64 `json:"k"`
	PosPct float64 `json:"pos_pct"`
}

type BollingerPair struct {
	Disp Band `json:"disp"`
	Vel  Band `json:"vel"`
}

// Slices are downsampled window series, at most 30 samples each.
type Slices struct {
	DispMm         []Sample `json:"disp_mm"`
	CumDispTotalMm []Sample `json:"cum_disp_total_mm"`
	VelMmHr        []Sample `json:"vel_mm_hr"`
	EMAShort       []Sample `json:"ema_1h"`
	EMAMid         []Sample `json:"ema_3h"`
	EMALong        []Sample `json:"ema_12h"`
}

// SuggestedMetrics pre-fill the advisor's metrics block.
type SuggestedMetrics struct {
	Vel             float64 `json:"vel"`
	Deform          float64 `json:"deform"`
	UmbralDisparado string  `json:"umbral_disparado"`
	PersistenciaH   int     `json:"persistencia_h"`
}
