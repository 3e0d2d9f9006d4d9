package analysis

import (
	"math"
	"time"
)

// EMA is the recursive exponential moving average with alpha = 2/(span+1),
// seeded with the first value and without bias correction. A non-finite
// input carries the previous average forward.
func EMA(xs []float64, span int) []float64 {
	out := make([]float64, len(xs))
	if len(xs) == 0 {
		return out
	}
	if span < 1 {
		span = 1
	}
	alpha := 2.0 / (float64(span) + 1.0)
	out[0] = xs[0]
	for k := 1; k < len(xs); k++ {
		prev := out[k-1]
		switch {
		case !isFinite(xs[k]):
			out[k] = prev
		case !isFinite(prev):
			out[k] = xs[k]
		default:
			out[k] = alpha*xs[k] + (1-alpha)*prev
		}
	}
	return out
}

// Derivatives holds time-normalized first and second differences of a
// displacement series.
type Derivatives struct {
	DtMinutes    []float64
	Velocity     []float64 // mm/hr, NaN at index 0
	Acceleration []float64 // mm/hr^2, NaN at indices 0 and 1
}

// Derive computes velocity and acceleration using the actual elapsed time
// between samples. The first interval is back-filled with the second one.
func Derive(times []time.Time, disp []float64) Derivatives {
	n := len(times)
	d := Derivatives{
		DtMinutes:    make([]float64, n),
		Velocity:     make([]float64, n),
		Acceleration: make([]float64, n),
	}
	if n == 0 {
		return d
	}
	d.DtMinutes[0] = math.NaN()
	for k := 1; k < n; k++ {
		d.DtMinutes[k] = times[k].Sub(times[k-1]).Minutes()
	}
	if n > 1 {
		d.DtMinutes[0] = d.DtMinutes[1]
	}

	d.Velocity[0] = math.NaN()
	for k := 1; k < n; k++ {
		d.Velocity[k] = (disp[k] - disp[k-1]) / d.DtMinutes[k] * 60.0
	}
	d.Acceleration[0] = math.NaN()
	for k := 1; k < n; k++ {
		// per-minute velocity difference over dt, scaled to hours^2
		d.Acceleration[k] = (d.Velocity[k] - d.Velocity[k-1]) / 60.0 / d.DtMinutes[k] * 3600.0
	}
	return d
}

// EMASpans converts EMA horizons in hours into point spans for a series
// sampled pointsPerMinute times per minute.
func EMASpans(pointsPerMinute int, hours []float64) []int {
	if pointsPerMinute < 1 {
		pointsPerMinute = 1
	}
	spans := make([]int, len(hours))
	for i, h := range hours {
		s := int(h * 60 * float64(pointsPerMinute))
		if s < 1 {
			s = 1
		}
		spans[i] = s
	}
	return spans
}
