package elapsed

import "time"

type ElapsedTime struct {
	now   func() time.Time
	start time.Time
}

func New() *ElapsedTime {
	return NewWithClock(time.Now)
}

// NewWithClock is New with a substitute clock, for tests.
func NewWithClock(now func() time.Time) *ElapsedTime {
	return &ElapsedTime{
		now:   now,
		start: now(),
	}
}

func (e *ElapsedTime) Nanoseconds() int64 {
	return e.now().Sub(e.start).Nanoseconds()
}

func (e *ElapsedTime) Milliseconds() float64 {
	return float64(e.Nanoseconds()) / float64(time.Millisecond)
}

func (e *ElapsedTime) Reset() {
	e.start = e.now()
}
