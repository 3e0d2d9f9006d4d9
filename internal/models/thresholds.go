package models

import (
	"fmt"
	"math"
)

// AlarmaFloorRatio is the minimum ratio between the ALARMA and ALERTA bounds.
const AlarmaFloorRatio = 1.3

// Thresholds are adaptive velocity bounds in mm/hr. Build them with
// NewThresholds so that Alarma >= Alerta holds.
type Thresholds struct {
	Alerta float64 `json:"alerta"`
	Alarma float64 `json:"alarma"`
}

// NewThresholds floors the alarma candidate at AlarmaFloorRatio*alerta.
func NewThresholds(alerta, alarmaCandidate float64) Thresholds {
	return Thresholds{
		Alerta: alerta,
		Alarma: math.Max(alarmaCandidate, AlarmaFloorRatio*alerta),
	}
}

// ThresholdSourceInitial marks thresholds estimated from the baseline fraction.
const ThresholdSourceInitial = "initial"

// SlidingSource labels thresholds estimated over a trailing window.
func SlidingSource(windowHours float64) string {
	return fmt.Sprintf("sliding_%gh", windowHours)
}

// ActiveThresholds are the thresholds applied at one step plus provenance.
type ActiveThresholds struct {
	AlertaMmHr float64 `json:"alerta_mm_hr"`
	AlarmaMmHr float64 `json:"alarma_mm_hr"`
	Source     string  `json:"source"` // initial, sliding_12h
}

// FixedRules are operator-supplied absolute limits.
type FixedRules struct {
	VAlert       float64 `json:"v_alert" mapstructure:"v_alert" yaml:"v_alert"`
	VAlarm       float64 `json:"v_alarm" mapstructure:"v_alarm" yaml:"v_alarm"`
	DAlert       float64 `json:"d_alert" mapstructure:"d_alert" yaml:"d_alert"`
	VAlarmWithD1 float64 `json:"v_alarm_with_d1" mapstructure:"v_alarm_with_d1" yaml:"v_alarm_with_d1"`
	VAlarmWithD2 float64 `json:"v_alarm_with_d2" mapstructure:"v_alarm_with_d2" yaml:"v_alarm_with_d2"`
}

// DefaultFixedRules returns the stock mine-site limits.
func DefaultFixedRules() FixedRules {
	return FixedRules{
		VAlert:       1.0,
		VAlarm:       3.0,
		DAlert:       5.0,
		VAlarmWithD1: 1.5,
		VAlarmWithD2: 2.0,
	}
}

// FormatNumber renders a float the way rule labels expect it: integral
// values keep one decimal ("5.0"), others use the shortest representation.
func FormatNumber(v float64) string {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return fmt.Sprint(v)
	}
	if v == math.Trunc(v) && math.Abs(v) < 1e16 {
		return fmt.Sprintf("%.1f", v)
	}
	return fmt.Sprintf("%v", v)
}
