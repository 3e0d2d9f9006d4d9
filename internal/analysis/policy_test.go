package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/platformbuilds/vigilante-core/internal/models"
)

func TestDecide_FixedRules(t *testing.T) {
	rules := models.DefaultFixedRules()
	thr := models.NewThresholds(100, 200)

	cases := []struct {
		name    string
		vel     float64
		disp    float64
		state   models.State
		rule    string
		trigger string
	}{
		{"combined d2", 2.5, 10.0, models.StateAlarma, "abs(d)>5.0 & v>2.0", models.TriggerVAlarmWithD2},
		{"combined d1", 1.8, 6.0, models.StateAlarma, "abs(d)>5.0 & v>1.5", models.TriggerVAlarmWithD1},
		{"velocity alarm", 3.5, 0.0, models.StateAlarma, "v>3.0", models.TriggerVAlarm},
		{"velocity alert", 1.2, 0.0, models.StateAlerta, "v>1.0", models.TriggerVAlert},
		{"displacement alert", 0.5, 6.0, models.StateAlerta, "abs(d)>5.0", models.TriggerDAlert},
		{"negative movement counts", -2.5, -10.0, models.StateAlarma, "abs(d)>5.0 & v>2.0", models.TriggerVAlarmWithD2},
		{"quiet", 0.1, 1.0, models.StateNormal, "none", models.TriggerNone},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := Decide(tc.vel, tc.disp, thr, &rules)
			assert.Equal(t, tc.state, d.State)
			assert.Equal(t, tc.rule, d.Rule)
			assert.Equal(t, tc.trigger, d.Trigger)
		})
	}
}

func TestDecide_FixedBeatsAdaptive(t *testing.T) {
	rules := models.DefaultFixedRules()
	thr := models.NewThresholds(0.2, 0.5)
	d := Decide(4.0, 0, thr, &rules)
	assert.Equal(t, models.StateAlarma, d.State)
	assert.Equal(t, models.SourceFixed, d.Source)
}

func TestDecide_CombinedBeforeVelocityAlarm(t *testing.T) {
	rules := models.DefaultFixedRules()
	d := Decide(2.5, 6.0, models.Thresholds{}, &rules)
	assert.Equal(t, models.StateAlarma, d.State)
	assert.Equal(t, "abs(d)>5.0 & v>2.0", d.Rule)
}

func TestDecide_AdaptiveFallThrough(t *testing.T) {
	rules := models.DefaultFixedRules()
	thr := models.NewThresholds(0.2, 0.5)

	d := Decide(0.6, 0, thr, &rules)
	assert.Equal(t, models.StateAlarma, d.State)
	assert.Equal(t, models.SourceAdaptive, d.Source)
	assert.Equal(t, "thr_alarma", d.Rule)

	d = Decide(-0.3, 0, thr, &rules)
	assert.Equal(t, models.StateAlerta, d.State)
	assert.Equal(t, "thr_alerta", d.Rule)

	d = Decide(0.1, 0, thr, &rules)
	assert.Equal(t, models.StateNormal, d.State)
	assert.Equal(t, models.SourceAdaptive, d.Source)
}

func TestDecide_NoFixedRules(t *testing.T) {
	thr := models.NewThresholds(1, 2)
	d := Decide(50, 1000, thr, nil)
	assert.Equal(t, models.SourceAdaptive, d.Source)
	assert.Equal(t, models.StateAlarma, d.State)

	d = Decide(0.5, 1000, thr, nil)
	assert.Equal(t, models.StateNormal, d.State, "displacement alone never escalates without fixed rules")
}

func TestDecide_AlarmaOnlyAboveAlarmaTier(t *testing.T) {
	rules := models.DefaultFixedRules()
	thr := models.NewThresholds(0.4, 0.9)
	for v := -5.0; v <= 5.0; v += 0.05 {
		for _, disp := range []float64{0, 4.9, 5.1, -7} {
			d := Decide(v, disp, thr, &rules)
			if d.State != models.StateAlarma {
				continue
			}
			av, ad := abs(v), abs(disp)
			fixedAlarm := av > rules.VAlarm || (ad > rules.DAlert && av > rules.VAlarmWithD1)
			assert.True(t, fixedAlarm || av > thr.Alarma, "v=%v d=%v", v, disp)
		}
	}
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
