package analysis

import (
	"fmt"
	"math"

	"github.com/platformbuilds/vigilante-core/internal/models"
)

// Decide classifies one instant. Fixed rules are checked first, combined
// displacement+velocity conditions before single-signal ones; only when no
// fixed rule fires do the adaptive thresholds apply. Magnitudes are used
// throughout so movement in either direction counts. A nil rules value
// means adaptive-only.
func Decide(velocity, displacement float64, thr models.Thresholds, rules *models.FixedRules) models.Decision {
	v := math.Abs(velocity)
	d := math.Abs(displacement)

	if rules != nil {
		switch {
		case d > rules.DAlert && v > rules.VAlarmWithD2:
			return fixed(models.StateAlarma, combinedLabel(rules.DAlert, rules.VAlarmWithD2), models.TriggerVAlarmWithD2)
		case d > rules.DAlert && v > rules.VAlarmWithD1:
			return fixed(models.StateAlarma, combinedLabel(rules.DAlert, rules.VAlarmWithD1), models.TriggerVAlarmWithD1)
		case v > rules.VAlarm:
			return fixed(models.StateAlarma, "v>"+models.FormatNumber(rules.VAlarm), models.TriggerVAlarm)
		case v > rules.VAlert:
			return fixed(models.StateAlerta, "v>"+models.FormatNumber(rules.VAlert), models.TriggerVAlert)
		case d > rules.DAlert:
			return fixed(models.StateAlerta, "abs(d)>"+models.FormatNumber(rules.DAlert), models.TriggerDAlert)
		}
	}
	return adaptive(v, thr)
}

// AdaptiveTrigger is the adaptive label for |velocity| against thr,
// regardless of which source decided the step.
func AdaptiveTrigger(velocity float64, thr models.Thresholds) string {
	return adaptive(math.Abs(velocity), thr).Trigger
}

func adaptive(v float64, thr models.Thresholds) models.Decision {
	d := models.Decision{State: models.StateNormal, Source: models.SourceAdaptive, Rule: models.TriggerNone, Trigger: models.TriggerNone}
	switch {
	case v > thr.Alarma:
		d.State, d.Rule, d.Trigger = models.StateAlarma, models.TriggerThrAlarma, models.TriggerThrAlarma
	case v > thr.Alerta:
		d.State, d.Rule, d.Trigger = models.StateAlerta, models.TriggerThrAlerta, models.TriggerThrAlerta
	}
	return d
}

func fixed(state models.State, rule, trigger string) models.Decision {
	return models.Decision{State: state, Source: models.SourceFixed, Rule: rule, Trigger: trigger}
}

func combinedLabel(dAlert, v float64) string {
	return fmt.Sprintf("abs(d)>%s & v>%s", models.FormatNumber(dAlert), models.FormatNumber(v))
}
