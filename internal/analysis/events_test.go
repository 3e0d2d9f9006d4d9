package analysis

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platformbuilds/vigilante-core/internal/models"
)

func TestDetectEvents(t *testing.T) {
	t0 := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	vel := []float64{0, 2, -2.5, 0, 5, -6, 5, 0}
	disp := []float64{0, 1, 2, 3, 4, 6, 9, 9}
	times := make([]time.Time, len(vel))
	for i := range times {
		times[i] = t0.Add(time.Duration(i) * 10 * time.Minute)
	}

	events := DetectEvents(times, vel, disp, models.NewThresholds(1, 3))
	require.Len(t, events, 2)

	alert := events[0]
	assert.Equal(t, models.StateAlerta, alert.Level)
	assert.Equal(t, models.FormatTime(times[1]), alert.Start)
	assert.Equal(t, models.FormatTime(times[2]), alert.End)
	assert.Equal(t, 10.0, alert.DurationMin)
	assert.Equal(t, 2.5, alert.PeakVelMmHr)
	assert.Equal(t, models.FormatTime(times[2]), alert.PeakVelTime)
	assert.Equal(t, 1.0, alert.DispDeltaMm)

	alarm := events[1]
	assert.Equal(t, models.StateAlarma, alarm.Level)
	assert.Equal(t, 6.0, alarm.PeakVelMmHr)
	assert.Equal(t, models.FormatTime(times[5]), alarm.PeakVelTime)
	assert.Equal(t, 5.0, alarm.DispDeltaMm)
	assert.Equal(t, 20.0, alarm.DurationMin)
}

func TestDetectEvents_TrailingSegmentAndEmpty(t *testing.T) {
	t0 := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	times := []time.Time{t0, t0.Add(time.Minute)}
	events := DetectEvents(times, []float64{9, 9}, []float64{0, 1}, models.NewThresholds(1, 3))
	require.Len(t, events, 1)
	assert.Equal(t, models.StateAlarma, events[0].Level)

	assert.Empty(t, DetectEvents(nil, nil, nil, models.Thresholds{}))
	assert.Empty(t, DetectEvents(times, []float64{0, 0}, []float64{0, 0}, models.NewThresholds(1, 3)))
}
