package movingstats

import "math"

type MovingStatistics struct {
	samples []float64
	next    int
	count   int

	sum   float64
	sumSq float64
}

func New(capacity int) *MovingStatistics {
	if capacity < 1 {
		panic("movingstats: capacity must be at least 1")
	}
	return &MovingStatistics{
		samples: make([]float64, capacity),
	}
}

// Add appends a sample, evicting the oldest once the window is full.
func (m *MovingStatistics) Add(x float64) {
	if m.count == len(m.samples) {
		old := m.samples[m.next]
		m.sum -= old
		m.sumSq -= old * old
	} else {
		m.count++
	}
	m.samples[m.next] = x
	m.sum += x
	m.sumSq += x * x
	m.next = (m.next + 1) % len(m.samples)
}

func (m *MovingStatistics) Count() int {
	return m.count
}

func (m *MovingStatistics) Capacity() int {
	return len(m.samples)
}

func (m *MovingStatistics) Mean() float64 {
	if m.count == 0 {
		return 0
	}
	return m.sum / float64(m.count)
}

// Variance is the sample variance of the window.
func (m *MovingStatistics) Variance() float64 {
	if m.count < 2 {
		return 0
	}
	n := float64(m.count)
	v := (m.sumSq - m.sum*m.sum/n) / (n - 1)
	if v < 0 {
		// Rounding in the running sums.
		return 0
	}
	return v
}

func (m *MovingStatistics) StdDev() float64 {
	return math.Sqrt(m.Variance())
}

func (m *MovingStatistics) Clear() {
	for i := range m.samples {
		m.samples[i] = 0
	}
	m.next = 0
	m.count = 0
	m.sum = 0
	m.sumSq = 0
}
