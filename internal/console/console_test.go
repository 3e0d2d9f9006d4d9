package console

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platformbuilds/vigilante-core/internal/models"
)

func sampleStep() (models.StepRecord, models.Snapshot) {
	thr := models.ActiveThresholds{AlertaMmHr: 1, AlarmaMmHr: 3, Source: "sliding_12h"}
	dec := models.Decision{State: models.StateAlarma, Source: models.SourceFixed, Rule: "v>v_alarm(3.0)"}
	snap := models.Snapshot{
		Window: models.WindowInfo{DurationHours: 0.2, NPoints: 12, CumMinMm: 1, CumMaxMm: 2, AccumWindowThresholdMm: 1},
		Current: models.CurrentMetrics{
			Time: "2025-01-01 10:00:00", DispMm: 2.5, DeltaMm: 0.1, CumDispMmWindow: 1.5,
			VelMmHr: 4.12345, AccumRateMmHr: 0.4, AccumMmPerPeriod: 9.6, AccumPeriodHours: 24,
			State: models.StateAlarma,
		},
		Thresholds: thr,
		Decision:   dec,
	}
	rec := models.StepRecord{
		Time:            snap.Current.Time,
		CurrentState:    models.StateAlarma,
		VelMmHr:         snap.Current.VelMmHr,
		Thresholds:      thr,
		Decision:        dec,
		BollingerVelPos: 1.2,
		LLM:             strings.Repeat("x", 600),
		LLMJSON: &models.AdvisoryResponse{
			Level: models.StateAlerta, Rationale: "subida sostenida", Confidence: 0.7,
			Evidence: []string{"v>v_alarm"},
		},
		LLMLevel:     models.StateAlerta,
		Disagreement: true,
	}
	return rec, snap
}

func sampleSummary() *models.SimulationSummary {
	return &models.SimulationSummary{
		Meta: models.SummaryMeta{EvaluatedSteps: 3, AdvisorCalls: 1},
		Counts: models.SummaryCounts{
			Levels:  map[models.State]int{models.StateNormal: 2, models.StateAlarma: 1},
			Sources: map[string]int{"fixed": 1, "adaptive": 2},
			Rules:   map[string]int{"none": 2, "v>v_alarm(3.0)": 1},
		},
		Events: models.SummaryEvents{
			AlarmsCount: 1,
			TopAlarmsByVel: []models.StepEvent{
				{Time: "2025-01-01 10:00:00", VelMmHr: 4.1, Rule: "v>v_alarm(3.0)"},
			},
		},
	}
}

func TestJSONStep(t *testing.T) {
	var buf bytes.Buffer
	c := New(&buf, FormatJSON, 5)
	rec, snap := sampleStep()
	c.Step(rec, snap)

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	assert.Equal(t, "ALARMA", out["state"])
	metrics := out["metrics"].(map[string]interface{})
	assert.Equal(t, 4.123, metrics["vel_mm_hr"])
	llm := out["llm"].(map[string]interface{})
	assert.Equal(t, true, llm["disagreement"])
	assert.Len(t, []rune(llm["raw"].(string)), maxRawChars+1)
}

func TestPlainStep(t *testing.T) {
	var buf bytes.Buffer
	c := New(&buf, FormatPlain, 5)
	rec, snap := sampleStep()
	c.Step(rec, snap)

	out := buf.String()
	assert.Contains(t, out, "=== 2025-01-01 10:00:00 ===")
	assert.Contains(t, out, "State: ALARMA")
	assert.Contains(t, out, "Velocity (mm/hr): 4.123")
	assert.Contains(t, out, "Source: sliding_12h")
	assert.Contains(t, out, "Agrees with rules: false")
}

func TestRichStep(t *testing.T) {
	var buf bytes.Buffer
	c := New(&buf, FormatRich, 5)
	rec, snap := sampleStep()
	c.Step(rec, snap)

	out := buf.String()
	assert.Contains(t, out, "SNAPSHOT @ 2025-01-01 10:00:00")
	assert.Contains(t, out, "ALARMA")
	assert.Contains(t, out, "4.123")
	assert.Contains(t, out, "DISAGREES")
	assert.Contains(t, out, "subida sostenida")
}

func TestRichStepAdvisorError(t *testing.T) {
	var buf bytes.Buffer
	c := New(&buf, FormatRich, 5)
	rec, snap := sampleStep()
	rec.LLMJSON, rec.LLM, rec.Disagreement = nil, "", false
	rec.LLMError = "advisor request failed after 3 attempts: timeout"
	c.Step(rec, snap)

	assert.Contains(t, buf.String(), "Error: advisor request failed")
}

func TestSummaryFormats(t *testing.T) {
	for _, format := range []string{FormatRich, FormatPlain} {
		t.Run(format, func(t *testing.T) {
			var buf bytes.Buffer
			New(&buf, format, 5).Summary(sampleSummary())
			out := buf.String()
			assert.Contains(t, out, "ALARMA")
			assert.Contains(t, out, "none")
			assert.Contains(t, out, "v>v_alarm(3.0)")
			assert.Contains(t, out, "2025-01-01 10:00:00")
		})
	}

	var buf bytes.Buffer
	New(&buf, FormatJSON, 5).Summary(sampleSummary())
	var back models.SimulationSummary
	require.NoError(t, json.Unmarshal(buf.Bytes(), &back))
	assert.Equal(t, 1, back.Events.AlarmsCount)
}

func TestUnknownFormatFallsBackToPlain(t *testing.T) {
	c := New(&bytes.Buffer{}, "html", 0)
	assert.Equal(t, FormatPlain, c.Format())
}

func TestEventsFormats(t *testing.T) {
	rec, _ := sampleStep()
	recs := []models.StepRecord{rec, {Time: "2025-01-01 11:00:00", CurrentState: models.StateNormal, LLMError: "timeout"}}

	var buf bytes.Buffer
	New(&buf, FormatPlain, 5).Events(recs)
	out := buf.String()
	assert.Contains(t, out, "2025-01-01 10:00:00  ALARMA")
	assert.Contains(t, out, "DISAGREES | subida sostenida")
	assert.Contains(t, out, "error: timeout")
	assert.Contains(t, out, "2 records")

	buf.Reset()
	New(&buf, FormatRich, 5).Events(recs)
	assert.Contains(t, buf.String(), "subida sostenida")

	buf.Reset()
	New(&buf, FormatJSON, 5).Events(recs)
	var back []models.StepRecord
	require.NoError(t, json.Unmarshal(buf.Bytes(), &back))
	assert.Len(t, back, 2)
}
