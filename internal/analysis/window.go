package analysis

import (
	"math"
	"time"

	"github.com/platformbuilds/vigilante-core/internal/models"
)

const (
	// MaxSlicePoints bounds every series slice embedded in a snapshot.
	MaxSlicePoints = 30

	minWindowHours   = 1e-9
	minBandWidth     = 1e-12
	persistenceHours = 12
)

// WindowParams are the per-run knobs of the summarizer.
type WindowParams struct {
	LookbackPoints         int
	AccumPeriodHours       float64
	AccumWindowThresholdMm float64
	BollingerK             float64
	FixedRules             *models.FixedRules
}

// Summarize builds the snapshot for index i. The historical window is
// [i-LookbackPoints, i), excluding i; current metrics read index i. ok is
// false when the window is empty or i is out of range. Summarize is pure:
// identical inputs give identical snapshots.
func Summarize(sig *Signals, i int, thr models.Thresholds, thrSource string, p WindowParams, hist models.History) (models.Snapshot, bool) {
	if i <= 0 || i >= sig.Len() {
		return models.Snapshot{}, false
	}
	start := i - p.LookbackPoints
	if start < 0 {
		start = 0
	}
	if start >= i {
		return models.Snapshot{}, false
	}

	times := sig.Times[start:i]
	dispSlice := sig.Disp[start:i]
	cumSlice := sig.CumTotal[start:i]
	velSlice := sig.Velocity[start:i]

	curDisp := sig.Disp[i]
	curCum := sig.CumTotal[i]
	curVel := sig.Velocity[i]
	cumWindow := curDisp - sig.Disp[start]

	durHours := math.Max(minWindowHours, times[len(times)-1].Sub(times[0]).Hours())
	accumRate := cumWindow / durHours
	period := math.Max(0, p.AccumPeriodHours)

	decision := Decide(curVel, curCum, thr, p.FixedRules)

	cumMin, tMin, cumMax, tMax := extrema(times, cumSlice, curCum, sig.Times[i])

	snap := models.Snapshot{
		Window: models.WindowInfo{
			Start:                  models.FormatTime(times[0]),
			End:                    models.FormatTime(times[len(times)-1]),
			NPoints:                len(times),
			DurationHours:          durHours,
			CumMinMm:               cumMin,
			TCumMin:                models.FormatTime(tMin),
			CumMaxMm:               cumMax,
			TCumMax:                models.FormatTime(tMax),
			SignChangeWindow:       cumMin <= 0 && cumMax >= 0,
			AccumWindowThresholdMm: p.AccumWindowThresholdMm,
		},
		Current: models.CurrentMetrics{
			Time:                 models.FormatTime(sig.Times[i]),
			DispMm:               curDisp,
			CumDispMmTotal:       curCum,
			CumDispMmWindow:      cumWindow,
			CumDispMmFinalWindow: curDisp,
			DeltaMm:              curDisp - sig.Disp[i-1],
			VelMmHr:              curVel,
			AccumRateMmHr:        accumRate,
			AccumMmPerPeriod:     accumRate * period,
			AccumPeriodHours:     p.AccumPeriodHours,
			State:                decision.State,
		},
		Thresholds: models.ActiveThresholds{
			AlertaMmHr: thr.Alerta,
			AlarmaMmHr: thr.Alarma,
			Source:     thrSource,
		},
		Decision: decision,
		History:  hist,
		Bollinger: models.BollingerPair{
			Disp: Band(dispSlice, curDisp, p.BollingerK),
			Vel:  Band(velSlice, curVel, p.BollingerK),
		},
		Slices: models.Slices{
			DispMm:         Downsample(times, dispSlice, MaxSlicePoints),
			CumDispTotalMm: Downsample(times, cumSlice, MaxSlicePoints),
			VelMmHr:        Downsample(times, velSlice, MaxSlicePoints),
			EMAShort:       Downsample(times, sig.EMAShort[start:i], MaxSlicePoints),
			EMAMid:         Downsample(times, sig.EMAMid[start:i], MaxSlicePoints),
			EMALong:        Downsample(times, sig.EMALong[start:i], MaxSlicePoints),
		},
		SuggestedMetrics: models.SuggestedMetrics{
			Vel:             Round2(curVel),
			Deform:          Round2(curCum),
			UmbralDisparado: suggestedTrigger(decision, curVel, thr),
			PersistenciaH:   persistenceHours,
		},
	}
	if p.FixedRules != nil {
		fr := *p.FixedRules
		snap.FixedRules = &fr
	}
	return snap, true
}

func suggestedTrigger(d models.Decision, velocity float64, thr models.Thresholds) string {
	if d.Source == models.SourceFixed {
		return d.Trigger
	}
	return AdaptiveTrigger(velocity, thr)
}

// extrema finds the min and max of the finite window values with the time
// of their first occurrence, falling back to the current value.
func extrema(times []time.Time, xs []float64, cur float64, curTime time.Time) (float64, time.Time, float64, time.Time) {
	minV, maxV := cur, cur
	tMin, tMax := curTime, curTime
	found := false
	for k, v := range xs {
		if !isFinite(v) {
			continue
		}
		if !found || v < minV {
			minV, tMin = v, times[k]
		}
		if !found || v > maxV {
			maxV, tMax = v, times[k]
		}
		found = true
	}
	return minV, tMin, maxV, tMax
}

// Band computes a Bollinger-style envelope (population std) over xs and
// the relative position of cur inside it. With no finite values the band
// collapses on cur with pos_pct 0.5.
func Band(xs []float64, cur, k float64) models.Band {
	mean, ok := Mean(xs)
	if !ok {
		return models.Band{Center: cur, Upper: cur, Lower: cur, K: k, PosPct: 0.5}
	}
	std, _ := PopStd(xs)
	b := models.Band{
		Center: mean,
		Std:    std,
		Upper:  mean + k*std,
		Lower:  mean - k*std,
		K:      k,
		PosPct: 0.5,
	}
	if isFinite(cur) {
		b.PosPct = (cur - b.Lower) / math.Max(minBandWidth, b.Upper-b.Lower)
	}
	return b
}

// Downsample keeps every point when there are at most maxPoints, otherwise
// takes a uniform stride of len/maxPoints and truncates to maxPoints.
func Downsample(times []time.Time, xs []float64, maxPoints int) []models.Sample {
	n := len(xs)
	if n <= maxPoints {
		out := make([]models.Sample, n)
		for j := 0; j < n; j++ {
			out[j] = models.Sample{Time: models.FormatTime(times[j]), Value: xs[j]}
		}
		return out
	}
	step := n / maxPoints
	if step < 1 {
		step = 1
	}
	out := make([]models.Sample, 0, maxPoints)
	for j := 0; j < n && len(out) < maxPoints; j += step {
		out = append(out, models.Sample{Time: models.FormatTime(times[j]), Value: xs[j]})
	}
	return out
}

// HistoryAt aggregates the run up to and including index i.
func HistoryAt(sig *Signals, i int) models.History {
	h := models.History{}
	if sig.Len() == 0 || i < 0 {
		return h
	}
	if i >= sig.Len() {
		i = sig.Len() - 1
	}
	h.StartTime = models.FormatTime(sig.Times[0])
	h.ElapsedHours = sig.Times[i].Sub(sig.Times[0]).Hours()

	prefix := sig.CumTotal[:i+1]
	first := true
	for _, v := range prefix {
		if !isFinite(v) {
			continue
		}
		if first || v < h.CumTotalMinMm {
			h.CumTotalMinMm = v
		}
		if first || v > h.CumTotalMaxMm {
			h.CumTotalMaxMm = v
		}
		first = false
	}
	vel := finite(sig.VelAbs[:i+1])
	if len(vel) > 0 {
		h.VelAbsP95MmHr = Quantile(vel, 0.95)
		h.VelAbsP99MmHr = Quantile(vel, 0.99)
	}
	return h
}
