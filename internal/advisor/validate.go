package advisor

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/platformbuilds/vigilante-core/internal/models"
)

// Field limits applied to advisor replies.
const (
	MaxRationaleChars     = 180
	MaxJustificationChars = 420
	MaxActions            = 3
	DefaultConfidence     = 0.6
	DefaultPersistenceH   = 12
)

var requiredFields = []string{"level", "rationale", "justificacion", "confidence_0_1", "actions", "evidence", "metrics"}

// Outcome is the result of interpreting an advisor reply: either Validated
// or Unparseable.
type Outcome interface {
	Warnings() []string
	outcome()
}

// Validated carries a normalized reply and the fixes applied to it.
type Validated struct {
	Response models.AdvisoryResponse
	Warns    []string
	// LevelTrusted is false when the reply's level had to be coerced.
	LevelTrusted bool
}

// Unparseable means the reply held no usable JSON object.
type Unparseable struct {
	Reason string
	Warns  []string
}

func (v Validated) Warnings() []string   { return v.Warns }
func (u Unparseable) Warnings() []string { return u.Warns }
func (Validated) outcome()               {}
func (Unparseable) outcome()             {}

// Validator normalizes untrusted advisor output.
type Validator struct {
	whitelist Whitelist
}

func NewValidator(wl Whitelist) *Validator {
	return &Validator{whitelist: wl}
}

// Interpret extracts and validates the first JSON object of raw.
func (v *Validator) Interpret(raw string) Outcome {
	obj, err := ExtractFirstJSON(raw)
	if err != nil {
		return Unparseable{Reason: err.Error(), Warns: []string{"no_json"}}
	}
	resp, warns := v.ValidateAndFix(obj)
	if resp == nil {
		return Unparseable{Reason: "response JSON is not an object", Warns: warns}
	}
	trusted := true
	for _, w := range warns {
		if w == "bad:level" {
			trusted = false
		}
	}
	return Validated{Response: *resp, Warns: warns, LevelTrusted: trusted}
}

// ValidateAndFix coerces a decoded reply into the response contract.
// Problems are reported as warnings; only a non-object input yields nil.
func (v *Validator) ValidateAndFix(obj interface{}) (*models.AdvisoryResponse, []string) {
	m, ok := obj.(map[string]interface{})
	if !ok {
		return nil, []string{"no_dict"}
	}
	var warnings []string
	for _, k := range requiredFields {
		if _, ok := m[k]; !ok {
			warnings = append(warnings, "missing:"+k)
		}
	}

	level, ok := models.ParseState(toString(m["level"]))
	if !ok {
		warnings = append(warnings, "bad:level")
		level = models.StateAlerta
	}

	just := toString(m["justificacion"])
	if utf8.RuneCountInString(just) > MaxJustificationChars {
		just = truncateRunes(just, MaxJustificationChars)
	} else if just == "" {
		warnings = append(warnings, "short:justificacion")
	}

	resp := &models.AdvisoryResponse{
		Level:         level,
		Rationale:     truncateRunes(toString(m["rationale"]), MaxRationaleChars),
		Justificacion: just,
		Confidence:    clamp01(toFloat(m["confidence_0_1"], DefaultConfidence)),
		Actions:       cleanList(m["actions"], MaxActions),
	}

	for _, tok := range evidenceTokens(m["evidence"]) {
		if tok != "" && v.whitelist.Contains(tok) {
			resp.Evidence = append(resp.Evidence, tok)
		} else {
			warnings = append(warnings, "evidence_drop:"+tok)
		}
	}
	if len(resp.Evidence) == 0 {
		resp.Evidence = []string{EvidenceFallback}
	}

	metrics, isMap := m["metrics"].(map[string]interface{})
	if !isMap && !isEmpty(m["metrics"]) {
		warnings = append(warnings, "bad:metrics")
	}
	resp.Metrics = models.AdvisoryMetrics{
		Vel:             math.Round(toFloat(metrics["vel"], 0)*100) / 100,
		Deform:          math.Round(toFloat(metrics["deform"], 0)*100) / 100,
		UmbralDisparado: models.TriggerNone,
		PersistenciaH:   toInt(metrics["persistencia_h"], DefaultPersistenceH),
	}
	if uds := toString(metrics["umbral_disparado"]); models.IsTriggerLabel(uds) {
		resp.Metrics.UmbralDisparado = uds
	}
	return resp, warnings
}

func toString(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

// toFloat parses numbers, numeric strings and booleans; anything else, NaN
// and ±Inf included, yields def.
func toFloat(v interface{}, def float64) float64 {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case string:
		p, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return def
		}
		f = p
	case bool:
		if t {
			return 1
		}
		return 0
	default:
		return def
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return def
	}
	return f
}

func toInt(v interface{}, def int) int {
	switch t := v.(type) {
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return def
		}
		return int(t)
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(t))
		if err != nil {
			return def
		}
		return n
	case bool:
		if t {
			return 1
		}
		return 0
	}
	return def
}

func clamp01(f float64) float64 {
	return math.Max(0, math.Min(1, f))
}

func isEmpty(v interface{}) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case bool:
		return !t
	case float64:
		return t == 0
	case []interface{}:
		return len(t) == 0
	case map[string]interface{}:
		return len(t) == 0
	}
	return false
}

// cleanList coerces v into trimmed, non-empty strings, keeping at most max
// entries (max < 0 keeps all). Scalars become a single-element list.
func cleanList(v interface{}, max int) []string {
	if isEmpty(v) {
		return []string{}
	}
	items, ok := v.([]interface{})
	if !ok {
		items = []interface{}{v}
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		s := strings.TrimSpace(toString(it))
		if s == "" {
			continue
		}
		out = append(out, s)
		if max >= 0 && len(out) == max {
			break
		}
	}
	return out
}

// evidenceTokens is cleanList without dropping blanks, so a blank token
// still yields an evidence_drop warning.
func evidenceTokens(v interface{}) []string {
	if isEmpty(v) {
		return nil
	}
	items, ok := v.([]interface{})
	if !ok {
		items = []interface{}{v}
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, strings.TrimSpace(toString(it)))
	}
	return out
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}
