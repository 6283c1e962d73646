package elapsed

import (
	"testing"
	"time"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time {
	return c.t
}

func TestElapsedAndReset(t *testing.T) {
	c := &fakeClock{t: time.Unix(1000, 0)}
	e := NewWithClock(c.now)

	c.t = c.t.Add(10 * time.Millisecond)
	if e.Nanoseconds() != 10000000 {
		t.Errorf("elapsed = %dns, expected 10000000", e.Nanoseconds())
	}
	if e.Milliseconds() != 10 {
		t.Errorf("elapsed = %fms, expected 10", e.Milliseconds())
	}

	e.Reset()
	if e.Nanoseconds() != 0 {
		t.Errorf("elapsed after reset = %dns", e.Nanoseconds())
	}
	c.t = c.t.Add(3 * time.Microsecond)
	if e.Nanoseconds() != 3000 {
		t.Errorf("elapsed = %dns, expected 3000", e.Nanoseconds())
	}
}
