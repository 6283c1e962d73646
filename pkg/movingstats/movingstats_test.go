package movingstats

import (
	"math"
	"testing"
)

func expectMean(t *testing.T, m *MovingStatistics, expected float64) {
	t.Helper()
	if math.Abs(m.Mean()-expected) > 1e-9 {
		t.Errorf("mean = %f, expected %f", m.Mean(), expected)
	}
}

func TestEmptyWindow(t *testing.T) {
	m := New(100)
	if m.Count() != 0 {
		t.Errorf("count = %d, expected 0", m.Count())
	}
	expectMean(t, m, 0)
	if m.Variance() != 0 {
		t.Errorf("variance of empty window = %f", m.Variance())
	}
}

func TestWindowNeverExceedsCapacity(t *testing.T) {
	m := New(100)
	for i := 1; i <= 250; i++ {
		m.Add(float64(i))
		if m.Count() > 100 {
			t.Fatalf("count %d exceeds capacity after %d adds", m.Count(), i)
		}
	}
	if m.Count() != 100 {
		t.Errorf("count = %d, expected 100", m.Count())
	}
}

func TestMeanAfterEviction(t *testing.T) {
	m := New(100)
	// 100 samples of 10ms, then one of 110ms: the first 10ms sample is evicted.
	for i := 0; i < 100; i++ {
		m.Add(10e6)
	}
	expectMean(t, m, 10e6)

	m.Add(110e6)
	if m.Count() != 100 {
		t.Fatalf("count = %d, expected 100", m.Count())
	}
	expectMean(t, m, (99*10e6+110e6)/100)
}

func TestMeanOnlyCoversMostRecentSamples(t *testing.T) {
	m := New(3)
	for _, x := range []float64{100, 200, 1, 2, 3} {
		m.Add(x)
	}
	expectMean(t, m, 2)
}

func TestVariance(t *testing.T) {
	m := New(10)
	for _, x := range []float64{2, 4, 4, 4, 5, 5, 7, 9} {
		m.Add(x)
	}
	// Sample variance of the classic example set.
	if math.Abs(m.Variance()-32.0/7) > 1e-9 {
		t.Errorf("variance = %f, expected %f", m.Variance(), 32.0/7)
	}
	if math.Abs(m.StdDev()-math.Sqrt(32.0/7)) > 1e-9 {
		t.Errorf("stddev = %f", m.StdDev())
	}
}

func TestClear(t *testing.T) {
	m := New(5)
	m.Add(1)
	m.Add(2)
	m.Clear()
	if m.Count() != 0 {
		t.Errorf("count after clear = %d", m.Count())
	}
	m.Add(8)
	expectMean(t, m, 8)
}
