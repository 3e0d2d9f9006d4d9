package analysis

import (
	"math"
	"sort"
	"time"

	"github.com/platformbuilds/vigilante-core/internal/models"
)

const (
	madKAlerta = 7.0
	madKAlarma = 11.0

	quantileAlerta = 0.975
	quantileAlarma = 0.995

	minBaselineFraction = 0.01
	maxBaselineFraction = 0.9

	// MinSlidingSamples is the smallest trailing window that yields thresholds.
	MinSlidingSamples = 30
)

// BaselineThresholds estimates ALERTA/ALARMA bounds from the first
// baselineFraction of |velocity|. The fraction is clamped to [0.01, 0.9].
// An empty input yields zero thresholds.
func BaselineThresholds(velAbs []float64, baselineFraction float64) models.Thresholds {
	n := len(velAbs)
	if n == 0 {
		return models.Thresholds{}
	}
	smoothed := RollingMedian(velAbs, RollingMedianWindow)

	frac := math.Max(minBaselineFraction, math.Min(maxBaselineFraction, baselineFraction))
	if math.IsNaN(baselineFraction) {
		frac = minBaselineFraction
	}
	end := int(float64(n) * frac)
	if end < 1 {
		end = 1
	}
	base := finite(smoothed[:end])
	if len(base) == 0 {
		base = finite(smoothed)
	}
	if len(base) == 0 {
		return models.Thresholds{}
	}
	return robustThresholds(base)
}

// SlidingThresholds estimates thresholds over the samples whose timestamp
// falls in [end-windowHours, end]. ok is false when windowHours is not
// positive or fewer than MinSlidingSamples finite values fall in the window;
// callers then fall back to the baseline thresholds.
func SlidingThresholds(times []time.Time, velAbs []float64, end time.Time, windowHours float64) (models.Thresholds, bool) {
	if !(windowHours > 0) || len(times) != len(velAbs) {
		return models.Thresholds{}, false
	}
	start := end.Add(-time.Duration(windowHours * float64(time.Hour)))

	lo := sort.Search(len(times), func(k int) bool { return !times[k].Before(start) })
	hi := sort.Search(len(times), func(k int) bool { return times[k].After(end) })
	if hi-lo < MinSlidingSamples {
		return models.Thresholds{}, false
	}
	window := finite(velAbs[lo:hi])
	if len(window) < MinSlidingSamples {
		return models.Thresholds{}, false
	}
	return robustThresholds(RollingMedian(window, RollingMedianWindow)), true
}

// robustThresholds combines median+k*MAD with high-quantile floors.
func robustThresholds(sample []float64) models.Thresholds {
	med := Median(sample)
	mad := MAD(sample, med)
	alerta := math.Max(med+madKAlerta*MADScale*mad, Quantile(sample, quantileAlerta))
	alarma := math.Max(med+madKAlarma*MADScale*mad, Quantile(sample, quantileAlarma))
	return models.NewThresholds(alerta, alarma)
}
