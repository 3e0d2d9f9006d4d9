package series

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrEmptySeries is returned when no usable sample remains.
var ErrEmptySeries = errors.New("series: no samples")

// Series is a cleaned displacement time series: timestamps strictly
// increasing, displacement in millimetres. It is immutable once built;
// accessors return copies.
type Series struct {
	times []time.Time
	disp  []float64
}

// New validates and wraps the given samples. Every displacement must be
// finite. The slices are copied.
func New(times []time.Time, disp []float64) (*Series, error) {
	if len(times) != len(disp) {
		return nil, fmt.Errorf("series: %d timestamps for %d values", len(times), len(disp))
	}
	if len(times) == 0 {
		return nil, ErrEmptySeries
	}
	for i, v := range disp {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("series: non-finite displacement %v at index %d", v, i)
		}
	}
	for i := 1; i < len(times); i++ {
		if !times[i].After(times[i-1]) {
			return nil, fmt.Errorf("series: timestamps not strictly increasing at index %d (%s <= %s)",
				i, times[i].Format(time.RFC3339), times[i-1].Format(time.RFC3339))
		}
	}
	s := &Series{
		times: make([]time.Time, len(times)),
		disp:  make([]float64, len(disp)),
	}
	copy(s.times, times)
	copy(s.disp, disp)
	return s, nil
}

func (s *Series) Len() int { return len(s.times) }

func (s *Series) Time(i int) time.Time { return s.times[i] }

func (s *Series) Disp(i int) float64 { return s.disp[i] }

// Times returns a copy of the timestamps.
func (s *Series) Times() []time.Time {
	out := make([]time.Time, len(s.times))
	copy(out, s.times)
	return out
}

// Values returns a copy of the displacement values.
func (s *Series) Values() []float64 {
	out := make([]float64, len(s.disp))
	copy(out, s.disp)
	return out
}

func (s *Series) First() time.Time { return s.times[0] }

func (s *Series) Last() time.Time { return s.times[len(s.times)-1] }

// StartAt returns the samples at or after t. ErrEmptySeries if none remain.
func (s *Series) StartAt(t time.Time) (*Series, error) {
	for i, ts := range s.times {
		if !ts.Before(t) {
			return New(s.times[i:], s.disp[i:])
		}
	}
	return nil, ErrEmptySeries
}

// FirstInterval is the spacing between the first two samples, or 0.
func (s *Series) FirstInterval() time.Duration {
	if len(s.times) < 2 {
		return 0
	}
	return s.times[1].Sub(s.times[0])
}

// PointsPerMinute estimates the sampling density from the first interval,
// never less than 1.
func (s *Series) PointsPerMinute() int {
	dt := s.FirstInterval()
	if dt <= 0 {
		return 1
	}
	n := int(time.Minute / dt)
	if n < 1 {
		return 1
	}
	return n
}
