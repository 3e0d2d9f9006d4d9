package analysis

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platformbuilds/vigilante-core/internal/models"
)

func TestBaselineThresholds_Empty(t *testing.T) {
	assert.Equal(t, models.Thresholds{Alerta: 0, Alarma: 0}, BaselineThresholds(nil, 0.2))
}

func TestBaselineThresholds_StepSeries(t *testing.T) {
	vel := make([]float64, 0, 100)
	for i := 0; i < 50; i++ {
		vel = append(vel, 0)
	}
	for i := 0; i < 50; i++ {
		vel = append(vel, 0.5)
	}
	thr := BaselineThresholds(vel, 0.2)
	assert.GreaterOrEqual(t, thr.Alerta, 0.0)
	assert.GreaterOrEqual(t, thr.Alarma, 0.0)
	assert.GreaterOrEqual(t, thr.Alarma, thr.Alerta)
}

func TestBaselineThresholds_NonNegativeProperty(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for trial := 0; trial < 200; trial++ {
		n := 1 + rng.Intn(300)
		vel := make([]float64, n)
		for i := range vel {
			vel[i] = math.Abs(rng.NormFloat64()) * rng.Float64() * 3
			if rng.Intn(20) == 0 {
				vel[i] = math.NaN()
			}
		}
		frac := rng.Float64() * 1.5
		thr := BaselineThresholds(vel, frac)
		require.GreaterOrEqual(t, thr.Alerta, 0.0, "trial %d", trial)
		require.GreaterOrEqual(t, thr.Alarma, thr.Alerta, "trial %d", trial)
	}
}

func TestBaselineThresholds_UsesOnlyBaselineFraction(t *testing.T) {
	vel := make([]float64, 100)
	for i := range vel {
		vel[i] = 0.1
	}
	for i := 50; i < 100; i++ {
		vel[i] = 50
	}
	thr := BaselineThresholds(vel, 0.2)
	assert.InDelta(t, 0.1, thr.Alerta, 1e-12)
	assert.InDelta(t, 0.13, thr.Alarma, 1e-12)
}

func TestBaselineThresholds_LeadingNaNFallsBackToAll(t *testing.T) {
	vel := []float64{math.NaN(), math.NaN(), math.NaN(), math.NaN(), math.NaN(), 1, 1, 1, 1, 1}
	thr := BaselineThresholds(vel, 0.1)
	assert.InDelta(t, 1.0, thr.Alerta, 1e-12)
}

func hourly(n int) []time.Time {
	t0 := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	out := make([]time.Time, n)
	for i := range out {
		out[i] = t0.Add(time.Duration(i) * time.Hour)
	}
	return out
}

func TestSlidingThresholds_MinimumSamples(t *testing.T) {
	times := hourly(100)
	vel := make([]float64, 100)
	for i := range vel {
		vel[i] = 0.2
	}
	end := times[99]

	thr, ok := SlidingThresholds(times, vel, end, 29)
	require.True(t, ok, "window [end-29h, end] holds 30 samples")
	assert.InDelta(t, 0.2, thr.Alerta, 1e-12)

	_, ok = SlidingThresholds(times, vel, end, 28.5)
	assert.False(t, ok)
}

func TestSlidingThresholds_InvalidWindow(t *testing.T) {
	times := hourly(50)
	vel := make([]float64, 50)
	_, ok := SlidingThresholds(times, vel, times[49], 0)
	assert.False(t, ok)
	_, ok = SlidingThresholds(times, vel, times[49], -3)
	assert.False(t, ok)
}

func TestSlidingThresholds_DropsNaN(t *testing.T) {
	times := hourly(40)
	vel := make([]float64, 40)
	for i := range vel {
		vel[i] = 0.3
	}
	vel[39] = math.NaN()
	_, ok := SlidingThresholds(times, vel, times[39], 29)
	assert.False(t, ok, "29 finite samples are not enough")
}
