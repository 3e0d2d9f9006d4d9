// Simulation and advisor self-monitoring for VIGILANTE-CORE.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Simulation loop
	StepsEvaluated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vigilante_core_steps_evaluated_total",
			Help: "Total number of evaluated simulation steps",
		},
		[]string{"state", "source"}, // NORMAL/ALERTA/ALARMA, fixed/adaptive
	)

	ThresholdSelections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vigilante_core_threshold_selections_total",
			Help: "Thresholds used per step by provenance",
		},
		[]string{"source"}, // initial, sliding_12h
	)

	CurrentVelocity = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "vigilante_core_current_velocity_mm_hr",
			Help: "Velocity at the most recently evaluated step",
		},
	)

	CurrentState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "vigilante_core_current_state",
			Help: "1 for the state of the most recently evaluated step, 0 otherwise",
		},
		[]string{"state"},
	)

	StepDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "vigilante_core_step_duration_seconds",
			Help:    "Wall time spent evaluating one step, advisor call included",
			Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 15, 60, 180},
		},
	)

	// Advisor
	AdvisorRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vigilante_core_advisor_requests_total",
			Help: "Total number of advisor requests",
		},
		[]string{"provider", "status"}, // success, error, cached
	)

	AdvisorRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vigilante_core_advisor_request_duration_seconds",
			Help:    "Advisor request duration in seconds, retries included",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		},
		[]string{"provider"},
	)

	AdvisorRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vigilante_core_advisor_retries_total",
			Help: "Advisor attempts that failed and were retried",
		},
		[]string{"provider"},
	)

	AdvisorTokensUsed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vigilante_core_advisor_tokens_total",
			Help: "Tokens reported by the advisor provider",
		},
		[]string{"provider"},
	)

	Disagreements = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "vigilante_core_disagreements_total",
			Help: "Steps where the advisor level differed from the deterministic state",
		},
	)

	ValidationWarnings = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vigilante_core_validation_warnings_total",
			Help: "Warnings raised while normalizing advisor responses",
		},
		[]string{"kind"}, // missing, bad, evidence_drop, len_out_of_range, ...
	)

	// Live stream
	ActiveWebSocketConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "vigilante_core_websocket_connections_active",
			Help: "Number of active step stream subscribers",
		},
	)

	EventLogRecords = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vigilante_core_event_log_records_total",
			Help: "Step records handled by the JSONL event log",
		},
		[]string{"result"}, // written, skipped, error
	)
)

// WarningKind returns the label of a warning string such as
// "evidence_drop:foo" or "len_out_of_range:512".
func WarningKind(w string) string {
	for i := 0; i < len(w); i++ {
		if w[i] == ':' {
			return w[:i]
		}
	}
	return w
}

// SetCurrentState flips the state gauge to the given state.
func SetCurrentState(state string, all []string) {
	for _, s := range all {
		v := 0.0
		if s == state {
			v = 1
		}
		CurrentState.WithLabelValues(s).Set(v)
	}
}
