package eventloop

import (
	"testing"
	"time"
)

func TestPercentileIndex(t *testing.T) {
	for _, tc := range []struct{ n, p, want int }{
		{1, 50, 0},
		{10, 50, 5},
		{10, 99, 9},
		{10, 100, 9},
		{1000, 90, 900},
	} {
		if got := percentileIndex(tc.n, tc.p); got != tc.want {
			t.Errorf("percentileIndex(%d, %d) = %d, want %d", tc.n, tc.p, got, tc.want)
		}
	}
}

func TestMetricsRecorder_RollingSamples(t *testing.T) {
	m := newMetricsRecorder()
	for i := 1; i <= sampleSize+100; i++ {
		m.recordLatency(time.Duration(i))
	}
	snap := m.snapshot(3)
	if snap.Latency.Samples != sampleSize {
		t.Fatalf("expected %d samples, got %d", sampleSize, snap.Latency.Samples)
	}
	if snap.Latency.Max != sampleSize+100 {
		t.Fatalf("unexpected max: %v", snap.Latency.Max)
	}
	// the oldest 100 samples were evicted
	if want := time.Duration(101+sampleSize+100) / 2; snap.Latency.Mean != want {
		t.Fatalf("expected mean %v, got %v", want, snap.Latency.Mean)
	}
	if snap.Callbacks != sampleSize+100 || snap.Ticks != 3 {
		t.Fatalf("unexpected counters: %+v", snap)
	}
}

func TestMetricsRecorder_Queue(t *testing.T) {
	m := newMetricsRecorder()
	m.recordQueue(10)
	m.recordQueue(0)
	snap := m.snapshot(0)
	if snap.Queue.Current != 0 || snap.Queue.Max != 10 {
		t.Fatalf("unexpected queue: %+v", snap.Queue)
	}
	if snap.Queue.Avg != 9 {
		t.Fatalf("expected avg 9, got %f", snap.Queue.Avg)
	}
}

func TestTPSCounter(t *testing.T) {
	c := NewTPSCounter(time.Second, 100*time.Millisecond)
	if c.TPS() != 0 {
		t.Fatalf("expected 0, got %f", c.TPS())
	}
	for i := 0; i < 50; i++ {
		c.Increment()
	}
	if tps := c.TPS(); tps != 50 {
		t.Fatalf("expected 50, got %f", tps)
	}

	// everything rotates out once the window has passed
	c.mu.Lock()
	c.lastRotation = c.lastRotation.Add(-2 * time.Second)
	c.mu.Unlock()
	if tps := c.TPS(); tps != 0 {
		t.Fatalf("expected 0 after window, got %f", tps)
	}
}
