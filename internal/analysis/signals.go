package analysis

import (
	"time"

	"github.com/platformbuilds/vigilante-core/internal/series"
)

// DefaultEMAHours are the short, mid and long EMA horizons.
var DefaultEMAHours = [3]float64{1, 3, 12}

// Signals are the per-index series derived once per run from a
// displacement series. They are read-only after construction.
type Signals struct {
	Times        []time.Time
	Disp         []float64
	CumTotal     []float64
	Velocity     []float64
	VelAbs       []float64
	Acceleration []float64
	EMAShort     []float64
	EMAMid       []float64
	EMALong      []float64
	EMASpans     [3]int
}

// NewSignals derives velocity, acceleration and the three EMAs. The radar
// reports cumulative displacement, so the cumulative-total series is the
// displacement itself.
func NewSignals(s *series.Series, emaHours [3]float64) *Signals {
	times := s.Times()
	disp := s.Values()
	der := Derive(times, disp)
	spans := EMASpans(s.PointsPerMinute(), emaHours[:])

	sig := &Signals{
		Times:        times,
		Disp:         disp,
		CumTotal:     disp,
		Velocity:     der.Velocity,
		VelAbs:       Abs(der.Velocity),
		Acceleration: der.Acceleration,
		EMAShort:     EMA(disp, spans[0]),
		EMAMid:       EMA(disp, spans[1]),
		EMALong:      EMA(disp, spans[2]),
	}
	copy(sig.EMASpans[:], spans)
	return sig
}

func (s *Signals) Len() int { return len(s.Times) }
