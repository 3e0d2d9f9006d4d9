package models

// StepRecord is the append-only unit written to the JSONL event log, one per
// evaluated step.
type StepRecord struct {
	ID                    string            `json:"id"`
	RunID                 string            `json:"run_id"`
	Index                 int               `json:"index"`
	Time                  string            `json:"time"`
	CurrentState          State             `json:"current_state"`
	VelMmHr               float64           `json:"vel_mm_hr"`
	DispMm                float64           `json:"disp_mm"`
	CumDispMmTotal        float64           `json:"cum_disp_mm_total"`
	CumDispMmWindow       float64           `json:"cum_disp_mm_window"`
	Thresholds            ActiveThresholds  `json:"thresholds"`
	Decision              Decision          `json:"decision"`
	BollingerVelPos       float64           `json:"bollinger_vel_pos"`
	LLM                   string            `json:"llm,omitempty"`
	LLMModel              string            `json:"llm_model,omitempty"`
	LLMJSON               *AdvisoryResponse `json:"llm_json,omitempty"`
	LLMLevel              State             `json:"llm_level,omitempty"`
	LLMRationale          string            `json:"llm_rationale,omitempty"`
	LLMWarnings           []string          `json:"llm_warnings,omitempty"`
	JustificationWarnings []string          `json:"justification_warnings,omitempty"`
	LLMError              string            `json:"llm_error,omitempty"`
	Disagreement          bool              `json:"disagreement"`
}

// HasAdvisory reports whether an advisor reply was attached to the step.
func (r StepRecord) HasAdvisory() bool {
	return r.LLM != "" || r.LLMJSON != nil
}

// LatestStep is the most recent step kept in the cache for the live API.
type LatestStep struct {
	Record   StepRecord `json:"record"`
	Snapshot Snapshot   `json:"snapshot"`
}
