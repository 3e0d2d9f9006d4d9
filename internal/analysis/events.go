package analysis

import (
	"math"
	"time"

	"github.com/platformbuilds/vigilante-core/internal/models"
)

// DetectEvents segments the series into contiguous runs of equal level,
// judged only by |velocity| against thr, and returns the ALERTA/ALARMA runs
// in start order. Fixed rules are not consulted.
func DetectEvents(times []time.Time, velocity, disp []float64, thr models.Thresholds) []models.Event {
	n := len(velocity)
	if n == 0 || len(times) != n || len(disp) != n {
		return nil
	}
	level := make([]int, n)
	for k, v := range velocity {
		a := math.Abs(v)
		switch {
		case a > thr.Alarma:
			level[k] = 2
		case a > thr.Alerta:
			level[k] = 1
		}
	}

	var events []models.Event
	start := 0
	for k := 1; k <= n; k++ {
		if k < n && level[k] == level[start] {
			continue
		}
		if lv := level[start]; lv != 0 {
			events = append(events, segmentEvent(times, velocity, disp, start, k-1, lv))
		}
		start = k
	}
	return events
}

func segmentEvent(times []time.Time, velocity, disp []float64, from, to, lv int) models.Event {
	peak, peakAt := math.Inf(-1), from
	for k := from; k <= to; k++ {
		if a := math.Abs(velocity[k]); a > peak {
			peak, peakAt = a, k
		}
	}
	state := models.StateAlerta
	if lv == 2 {
		state = models.StateAlarma
	}
	return models.Event{
		Start:       models.FormatTime(times[from]),
		End:         models.FormatTime(times[to]),
		DurationMin: times[to].Sub(times[from]).Minutes(),
		Level:       state,
		PeakVelMmHr: peak,
		PeakVelTime: models.FormatTime(times[peakAt]),
		DispDeltaMm: disp[to] - disp[from],
	}
}
