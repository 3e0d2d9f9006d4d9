package models

// AdvisoryResponse is the normalized form of an advisor reply. Every field
// has passed type, length and whitelist checks.
type AdvisoryResponse struct {
	Level         State           `json:"level"`
	Rationale     string          `json:"rationale"`
	Justificacion string          `json:"justificacion"`
	Confidence    float64         `json:"confidence_0_1"`
	Actions       []string        `json:"actions"`
	Evidence      []string        `json:"evidence"`
	Metrics       AdvisoryMetrics `json:"metrics"`
}

type AdvisoryMetrics struct {
	Vel             float64 `json:"vel"`
	Deform          float64 `json:"deform"`
	UmbralDisparado string  `json:"umbral_disparado"`
	PersistenciaH   int     `json:"persistencia_h"`
}

// Trigger labels accepted in AdvisoryMetrics.UmbralDisparado.
const (
	TriggerVAlarm       = "v_alarm"
	TriggerVAlert       = "v_alert"
	TriggerDAlert       = "d_alert"
	TriggerVAlarmWithD1 = "v_alarm_with_d1"
	TriggerVAlarmWithD2 = "v_alarm_with_d2"
	TriggerThrAlerta    = "thr_alerta"
	TriggerThrAlarma    = "thr_alarma"
	TriggerNone         = "none"
)

// TriggerLabels is the closed set of trigger labels.
var TriggerLabels = []string{
	TriggerVAlarm, TriggerVAlert, TriggerDAlert, TriggerVAlarmWithD1,
	TriggerVAlarmWithD2, TriggerThrAlerta, TriggerThrAlarma, TriggerNone,
}

// IsTriggerLabel reports membership in TriggerLabels.
func IsTriggerLabel(s string) bool {
	for _, l := range TriggerLabels {
		if l == s {
			return true
		}
	}
	return false
}
