package advisor

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/platformbuilds/vigilante-core/internal/models"
)

var (
	trendHoursRe   = regexp.MustCompile(`\d+\s*h\b`)
	trendKeywords  = []string{"ultim", "últim", "horas", "hora", "tend", "trend"}
	metricKeywords = []string{"vel", "velocidad", "deform", "deformaci", "mm/hr", "mm"}
)

// ValidateJustification checks that the justification is near the target
// length (±25%), cites a metric and references a trend or time window. It
// never fails hard: ok is false and warnings explain what is missing.
func ValidateJustification(resp *models.AdvisoryResponse, suggested models.SuggestedMetrics, justLen int) (bool, []string) {
	if resp == nil {
		return false, []string{"no_json_obj"}
	}
	just := resp.Justificacion
	if just == "" {
		return false, []string{"missing:justificacion"}
	}

	var warnings []string
	if justLen > 0 {
		low := int(float64(justLen) * 0.75)
		high := int(float64(justLen) * 1.25)
		if n := utf8.RuneCountInString(just); n < low || n > high {
			warnings = append(warnings, fmt.Sprintf("len_out_of_range:%d", n))
		}
	}

	lower := strings.ToLower(just)
	metricOK := strings.Contains(just, models.FormatNumber(suggested.Vel)) ||
		strings.Contains(just, models.FormatNumber(suggested.Deform)) ||
		containsAny(lower, metricKeywords)
	if !metricOK {
		warnings = append(warnings, "no_metric_mentioned")
	}

	trendOK := trendHoursRe.MatchString(just) || containsAny(lower, trendKeywords)
	if !trendOK {
		warnings = append(warnings, "no_trend_mentioned")
	}
	return metricOK && trendOK, warnings
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
