package models

// Event is one contiguous ALERTA/ALARMA episode found by the retrospective
// segmenter.
type Event struct {
	Start       string  `json:"start"`
	End         string  `json:"end"`
	DurationMin float64 `json:"dur_min"`
	Level       State   `json:"level"`
	PeakVelMmHr float64 `json:"vel_max_mm_hr"`
	PeakVelTime string  `json:"t_vel_max"`
	DispDeltaMm float64 `json:"disp_delta_mm"`
}

// StepEvent is a classified step captured for the end-of-run summary.
type StepEvent struct {
	Time            string  `json:"time"`
	VelMmHr         float64 `json:"vel_mm_hr"`
	CumDispMmTotal  float64 `json:"cum_disp_mm_total"`
	CumDispMmWindow float64 `json:"cum_disp_mm_window"`
	AccumRateMmHr   float64 `json:"accum_rate_mm_hr"`
	Rule            string  `json:"decision_rule"`
	Source          string  `json:"decision_source"`
}

// SimulationSummary is written at the end of a run.
type SimulationSummary struct {
	Meta   SummaryMeta   `json:"meta"`
	Counts SummaryCounts `json:"counts"`
	Stats  SummaryStats  `json:"stats"`
	Events SummaryEvents `json:"events"`
}

type SummaryMeta struct {
	RunID             string      `json:"run_id"`
	StartedAt         string      `json:"started_at"`
	FinishedAt        string      `json:"finished_at"`
	CSVPath           string      `json:"csv_path"`
	StartAt           string      `json:"start_at,omitempty"`
	FirstTime         string      `json:"first_time"`
	LastTime          string      `json:"last_time"`
	Points            int         `json:"points"`
	EvaluatedSteps    int         `json:"evaluated_steps"`
	AdvisorCalls      int         `json:"advisor_calls"`
	AdvisorErrors     int         `json:"advisor_errors"`
	Disagreements     int         `json:"disagreements"`
	DryRun            bool        `json:"dry_run"`
	InitialThresholds Thresholds  `json:"initial_thresholds_mm_hr"`
	FixedRules        *FixedRules `json:"fixed_rules,omitempty"`
	LookbackPoints    int         `json:"lookback_points"`
	StepPoints        int         `json:"step_points"`
	AccumRateHours    float64     `json:"accum_rate_hours"`
	LLMProvider       string      `json:"llm_provider,omitempty"`
	LLMModel          string      `json:"llm_model,omitempty"`
	Cancelled         bool        `json:"cancelled,omitempty"`
}

type SummaryCounts struct {
	Levels  map[State]int  `json:"levels"`
	Sources map[string]int `json:"sources"`
	Rules   map[string]int `json:"rules"`
}

// VelocityStats describe the velocity series of the whole run.
type VelocityStats struct {
	Mean   float64 `json:"mean"`
	P95Abs float64 `json:"p95_abs"`
	P99Abs float64 `json:"p99_abs"`
}

// AccumStats describe the trailing 12h net displacement at every sample.
type AccumStats struct {
	Mean   float64 `json:"mean"`
	P95Abs float64 `json:"p95_abs"`
	P99Abs float64 `json:"p99_abs"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

type SummaryStats struct {
	VelMmHr    VelocityStats `json:"vel_mm_hr"`
	Accum12hMm AccumStats    `json:"accum_12h_mm"`
}

type SummaryEvents struct {
	AlarmsCount      int         `json:"alarms_count"`
	AlertsCount      int         `json:"alerts_count"`
	TopAlarmsByVel   []StepEvent `json:"top_alarms_by_vel"`
	TopAlarmsByAccum []StepEvent `json:"top_alarms_by_accum"`
	Episodes         []Event     `json:"episodes"`
}
