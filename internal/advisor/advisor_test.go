package advisor

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platformbuilds/vigilante-core/internal/models"
)

func TestExtractFirstJSON_ToleratesProse(t *testing.T) {
	raw := "Info previa\n{\"level\": \"alarma\", \"metrics\": {\"vel\": 1}} extra"
	v, err := ExtractFirstJSON(raw)
	require.NoError(t, err)
	m, ok := v.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "alarma", m["level"])
}

func TestExtractFirstJSON_BracesInsideStrings(t *testing.T) {
	raw := `ok {"rationale": "valor } raro {", "level": "NORMAL"} {"second": true}`
	v, err := ExtractFirstJSON(raw)
	require.NoError(t, err)
	assert.Equal(t, "NORMAL", v.(map[string]interface{})["level"])
}

func TestExtractFirstJSON_Failures(t *testing.T) {
	for _, raw := range []string{"", "no json here", "{\"a\": 1", "{not json}"} {
		_, err := ExtractFirstJSON(raw)
		assert.ErrorIs(t, err, ErrNoJSONObject, raw)
	}
}

func TestValidateAndFix_NormalizesLevel(t *testing.T) {
	v := NewValidator(DefaultWhitelist())
	out := v.Interpret("Info previa\n{\"level\": \"alarma\", \"rationale\": \"r\", \"justificacion\": \"j\"} extra")
	val, ok := out.(Validated)
	require.True(t, ok)
	assert.Equal(t, models.StateAlarma, val.Response.Level)
	assert.True(t, val.LevelTrusted)
}

func TestValidateAndFix_BadLevelIsConservative(t *testing.T) {
	v := NewValidator(DefaultWhitelist())
	resp, warns := v.ValidateAndFix(map[string]interface{}{"level": "PELIGRO"})
	require.NotNil(t, resp)
	assert.Equal(t, models.StateAlerta, resp.Level)
	assert.Contains(t, warns, "bad:level")
	assert.Contains(t, warns, "missing:metrics")
	assert.Contains(t, warns, "short:justificacion")
}

func TestValidateAndFix_EvidenceWhitelist(t *testing.T) {
	v := NewValidator(DefaultWhitelist())
	resp, warns := v.ValidateAndFix(map[string]interface{}{
		"evidence": []interface{}{"v>v_alarm", "unknown_evidence"},
	})
	require.NotNil(t, resp)
	assert.Equal(t, []string{"v>v_alarm"}, resp.Evidence)
	assert.Contains(t, warns, "evidence_drop:unknown_evidence")

	resp, _ = v.ValidateAndFix(map[string]interface{}{"evidence": []interface{}{"vel 3.2 mm/h"}})
	assert.Equal(t, []string{"missing_param"}, resp.Evidence)

	resp, _ = v.ValidateAndFix(map[string]interface{}{"evidence": "pers_12h"})
	assert.Equal(t, []string{"pers_12h"}, resp.Evidence)

	resp, warns = v.ValidateAndFix(map[string]interface{}{"evidence": []interface{}{"v>v_alarm", "  "}})
	assert.Equal(t, []string{"v>v_alarm"}, resp.Evidence)
	assert.Contains(t, warns, "evidence_drop:")
}

func TestValidateAndFix_Clipping(t *testing.T) {
	v := NewValidator(DefaultWhitelist())
	long := strings.Repeat("á", 500)
	resp, _ := v.ValidateAndFix(map[string]interface{}{
		"rationale":      long,
		"justificacion":  long,
		"confidence_0_1": 7.5,
		"actions":        []interface{}{" evacuar banco ", "", "inspección", "re-medir", "cuarta"},
	})
	require.NotNil(t, resp)
	assert.Equal(t, 180, len([]rune(resp.Rationale)))
	assert.Equal(t, 420, len([]rune(resp.Justificacion)))
	assert.Equal(t, 1.0, resp.Confidence)
	assert.Equal(t, []string{"evacuar banco", "inspección", "re-medir"}, resp.Actions)
}

func TestValidateAndFix_ConfidenceDefaults(t *testing.T) {
	v := NewValidator(DefaultWhitelist())
	cases := map[string]interface{}{
		"garbage":  "alta",
		"negative": -3.0,
		"string":   "0.85",
		"missing":  nil,
	}
	want := map[string]float64{"garbage": 0.6, "negative": 0, "string": 0.85, "missing": 0.6}
	for name, in := range cases {
		obj := map[string]interface{}{}
		if in != nil {
			obj["confidence_0_1"] = in
		}
		resp, _ := v.ValidateAndFix(obj)
		require.NotNil(t, resp, name)
		assert.Equal(t, want[name], resp.Confidence, name)
		assert.GreaterOrEqual(t, resp.Confidence, 0.0)
		assert.LessOrEqual(t, resp.Confidence, 1.0)
	}
}

func TestValidateAndFix_Metrics(t *testing.T) {
	v := NewValidator(DefaultWhitelist())
	resp, _ := v.ValidateAndFix(map[string]interface{}{
		"metrics": map[string]interface{}{
			"vel":              "2.3456",
			"deform":           10.004,
			"umbral_disparado": "v>3.0",
			"persistencia_h":   "6",
		},
	})
	require.NotNil(t, resp)
	assert.Equal(t, 2.35, resp.Metrics.Vel)
	assert.Equal(t, 10.0, resp.Metrics.Deform)
	assert.Equal(t, "none", resp.Metrics.UmbralDisparado)
	assert.Equal(t, 6, resp.Metrics.PersistenciaH)

	resp, _ = v.ValidateAndFix(map[string]interface{}{
		"metrics": map[string]interface{}{"umbral_disparado": "thr_alarma", "persistencia_h": "doce"},
	})
	assert.Equal(t, "thr_alarma", resp.Metrics.UmbralDisparado)
	assert.Equal(t, 12, resp.Metrics.PersistenciaH)

	resp, _ = v.ValidateAndFix(map[string]interface{}{
		"metrics":        map[string]interface{}{"vel": "inf", "deform": "-Infinity"},
		"confidence_0_1": "+Inf",
	})
	require.NotNil(t, resp)
	assert.Zero(t, resp.Metrics.Vel)
	assert.Zero(t, resp.Metrics.Deform)
	assert.Equal(t, 0.6, resp.Confidence)
	_, err := json.Marshal(resp)
	assert.NoError(t, err)
}

func TestInterpret_NonObject(t *testing.T) {
	v := NewValidator(DefaultWhitelist())
	resp, warns := v.ValidateAndFix([]interface{}{1, 2})
	assert.Nil(t, resp)
	assert.Equal(t, []string{"no_dict"}, warns)

	out := v.Interpret("sin json")
	u, ok := out.(Unparseable)
	require.True(t, ok)
	assert.Equal(t, []string{"no_json"}, u.Warnings())
}

func TestValidateAndFix_EvidenceNeverEmptyProperty(t *testing.T) {
	v := NewValidator(DefaultWhitelist())
	inputs := []interface{}{nil, "", []interface{}{}, []interface{}{"x", 3.0}, 42.0, map[string]interface{}{"a": 1.0}}
	for _, in := range inputs {
		resp, _ := v.ValidateAndFix(map[string]interface{}{"evidence": in})
		require.NotNil(t, resp)
		require.NotEmpty(t, resp.Evidence)
		for _, tok := range resp.Evidence {
			assert.True(t, DefaultWhitelist().Contains(tok), tok)
		}
	}
}

func TestValidateJustification(t *testing.T) {
	sugg := models.SuggestedMetrics{Vel: 0.5, Deform: 1.2}
	resp := &models.AdvisoryResponse{Justificacion: "La velocidad de 0.5 mm/h y deformación de 1.2 mm en las últimas 12h..."}
	ok, warns := ValidateJustification(resp, sugg, 80)
	assert.True(t, ok)
	assert.Empty(t, warns)

	ok, warns = ValidateJustification(resp, sugg, 600)
	assert.True(t, ok, "length is a warning, not a failure")
	require.Len(t, warns, 1)
	assert.True(t, strings.HasPrefix(warns[0], "len_out_of_range:"))

	ok, warns = ValidateJustification(&models.AdvisoryResponse{Justificacion: "Todo estable sin novedad"}, sugg, 0)
	assert.False(t, ok)
	assert.Equal(t, []string{"no_metric_mentioned", "no_trend_mentioned"}, warns)

	ok, warns = ValidateJustification(&models.AdvisoryResponse{}, sugg, 600)
	assert.False(t, ok)
	assert.Equal(t, []string{"missing:justificacion"}, warns)
}

func TestPromptBuilder_Build(t *testing.T) {
	b := NewPromptBuilder(DefaultPolicy(), 0)
	assert.Equal(t, DefaultJustificationLength, b.JustificationLength())

	snap := models.Snapshot{
		Current:          models.CurrentMetrics{Time: "2025-01-01 00:00:00", VelMmHr: 0.5, State: models.StateNormal},
		SuggestedMetrics: models.SuggestedMetrics{Vel: 0.5, UmbralDisparado: "none", PersistenciaH: 12},
	}
	prompt, err := b.Build(snap)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(prompt, DefaultPolicy().Text()))
	assert.Contains(t, prompt, "aproximadamente 600 caracteres (±25%)")

	idx := strings.Index(prompt, "Datos disponibles (usar todos):\n")
	require.GreaterOrEqual(t, idx, 0)
	payload := strings.TrimSpace(prompt[idx+len("Datos disponibles (usar todos):\n"):])
	var back map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(payload), &back))
	assert.Contains(t, back, "suggested_metrics")
}

func TestWhitelist(t *testing.T) {
	wl := DefaultWhitelist()
	assert.True(t, wl.Contains("d↑"))
	assert.False(t, wl.Contains("v>3.0"))
	assert.Len(t, wl.Tokens(), len(EvidenceTokens))
}
