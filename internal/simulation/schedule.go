package simulation

import (
	"time"

	"github.com/platformbuilds/vigilante-core/internal/series"
)

// fallbackInterval stands in for the sampling interval of a one-point series.
const fallbackInterval = 120 * time.Second

// ShouldEvaluate reports whether index i of an n-point series is a step:
// every stepPoints-th index plus the last one. Index 0 never is.
func ShouldEvaluate(i, n, stepPoints int) bool {
	if i <= 0 || i >= n {
		return false
	}
	if stepPoints < 1 {
		stepPoints = 1
	}
	return i%stepPoints == 0 || i == n-1
}

// LookbackPoints converts the lookback in minutes into a point count using
// the first sampling interval, never less than one minute of points.
func LookbackPoints(s *series.Series, lookbackMin int) int {
	ppm := s.PointsPerMinute()
	dt := s.FirstInterval()
	if dt <= 0 {
		dt = fallbackInterval
	}
	n := int(float64(lookbackMin) * 60 / dt.Seconds())
	if n < ppm {
		return ppm
	}
	return n
}

// advisorSchedule decides which evaluated steps are sent to the advisor.
// With an emit interval the simulated clock rules; otherwise every N-th
// step (counted in step_points blocks) is sent.
type advisorSchedule struct {
	enabled    bool
	stepPoints int
	every      int
	interval   time.Duration
	nextEmit   time.Time
}

func newAdvisorSchedule(enabled bool, stepPoints, every, emitEveryMin int, first time.Time) *advisorSchedule {
	if stepPoints < 1 {
		stepPoints = 1
	}
	if every < 1 {
		every = 1
	}
	sched := &advisorSchedule{
		enabled:    enabled,
		stepPoints: stepPoints,
		every:      every,
	}
	if emitEveryMin > 0 {
		sched.interval = time.Duration(emitEveryMin) * time.Minute
		sched.nextEmit = first
	}
	return sched
}

// Due reports whether the step at index i, time at, should call the advisor.
func (a *advisorSchedule) Due(i int, at time.Time) bool {
	if !a.enabled {
		return false
	}
	if a.interval > 0 {
		return !at.Before(a.nextEmit)
	}
	return (i/a.stepPoints)%a.every == 0
}

// Emitted advances the simulated clock past at. Only successful calls
// advance it, so a failed call is retried at the next step.
func (a *advisorSchedule) Emitted(at time.Time) {
	if a.interval <= 0 {
		return
	}
	for !at.Before(a.nextEmit) {
		a.nextEmit = a.nextEmit.Add(a.interval)
	}
}
