package analysis

import (
	"math"
	"sort"
)

// Robust-statistics constants shared by the threshold estimators.
const (
	// MADScale makes the median absolute deviation a consistent estimator of
	// the standard deviation under normality.
	MADScale = 1.4826

	RollingMedianWindow = 5
)

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// finite returns the non-NaN, non-Inf values of xs in order.
func finite(xs []float64) []float64 {
	out := make([]float64, 0, len(xs))
	for _, v := range xs {
		if isFinite(v) {
			out = append(out, v)
		}
	}
	return out
}

func sortedCopy(xs []float64) []float64 {
	s := make([]float64, len(xs))
	copy(s, xs)
	sort.Float64s(s)
	return s
}

// Median of the finite values; NaN when there are none.
func Median(xs []float64) float64 {
	f := finite(xs)
	if len(f) == 0 {
		return math.NaN()
	}
	s := sortedCopy(f)
	n := len(s)
	if n%2 == 1 {
		return s[n/2]
	}
	return (s[n/2-1] + s[n/2]) / 2
}

// MAD is the (unscaled) median absolute deviation around med.
func MAD(xs []float64, med float64) float64 {
	f := finite(xs)
	if len(f) == 0 {
		return math.NaN()
	}
	dev := make([]float64, len(f))
	for i, v := range f {
		dev[i] = math.Abs(v - med)
	}
	return Median(dev)
}

// Quantile uses linear interpolation between closest ranks over the finite
// values, q in [0,1]. NaN when there are no finite values.
func Quantile(xs []float64, q float64) float64 {
	f := finite(xs)
	if len(f) == 0 {
		return math.NaN()
	}
	s := sortedCopy(f)
	if q <= 0 {
		return s[0]
	}
	if q >= 1 {
		return s[len(s)-1]
	}
	pos := q * float64(len(s)-1)
	lo := int(math.Floor(pos))
	hi := lo + 1
	if hi >= len(s) {
		return s[lo]
	}
	frac := pos - float64(lo)
	return s[lo] + frac*(s[hi]-s[lo])
}

// Mean of the finite values, with ok=false when there are none.
func Mean(xs []float64) (float64, bool) {
	var sum float64
	n := 0
	for _, v := range xs {
		if isFinite(v) {
			sum += v
			n++
		}
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}

// PopStd is the population (ddof=0) standard deviation of the finite values.
func PopStd(xs []float64) (float64, bool) {
	m, ok := Mean(xs)
	if !ok {
		return 0, false
	}
	var ss float64
	n := 0
	for _, v := range xs {
		if isFinite(v) {
			d := v - m
			ss += d * d
			n++
		}
	}
	return math.Sqrt(ss / float64(n)), true
}

// RollingMedian is a centered rolling median. Edge windows shrink instead of
// producing NaN; a window with no finite value yields NaN.
func RollingMedian(xs []float64, window int) []float64 {
	if window < 1 {
		window = 1
	}
	out := make([]float64, len(xs))
	left := (window - 1) / 2
	right := window / 2
	buf := make([]float64, 0, window)
	for i := range xs {
		lo := i - left
		if lo < 0 {
			lo = 0
		}
		hi := i + right
		if hi > len(xs)-1 {
			hi = len(xs) - 1
		}
		buf = buf[:0]
		for j := lo; j <= hi; j++ {
			if isFinite(xs[j]) {
				buf = append(buf, xs[j])
			}
		}
		if len(buf) == 0 {
			out[i] = math.NaN()
			continue
		}
		sort.Float64s(buf)
		n := len(buf)
		if n%2 == 1 {
			out[i] = buf[n/2]
		} else {
			out[i] = (buf[n/2-1] + buf[n/2]) / 2
		}
	}
	return out
}

// Abs returns |x| for every element; NaN stays NaN.
func Abs(xs []float64) []float64 {
	out := make([]float64, len(xs))
	for i, v := range xs {
		out[i] = math.Abs(v)
	}
	return out
}

// Round2 rounds to two decimals.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
