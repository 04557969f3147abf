package eventloop

import (
	"slices"
	"sync"
	"sync/atomic"
	"time"
)

// Metrics is a point-in-time snapshot of loop statistics, see
// [Loop.Metrics].
type Metrics struct {
	// Latency is the distribution of task and I/O callback durations.
	Latency LatencyMetrics

	// Queue tracks the depth of the task queue, sampled once per tick.
	Queue QueueMetrics

	// TPS is the callback rate over the trailing window.
	TPS float64

	// Ticks is the number of loop iterations.
	Ticks uint64

	// Callbacks is the total number of tasks and I/O callbacks executed.
	Callbacks uint64
}

// LatencyMetrics holds latency percentiles computed from a rolling sample.
type LatencyMetrics struct {
	P50  time.Duration
	P90  time.Duration
	P99  time.Duration
	Max  time.Duration
	Mean time.Duration
	// Samples is the number of samples the percentiles were computed from.
	Samples int
}

// QueueMetrics tracks task queue depth.
type QueueMetrics struct {
	Current int
	Max     int
	// Avg is an exponential moving average with alpha=0.1.
	Avg float64
}

// sampleSize is the maximum number of latency samples to retain.
const sampleSize = 1000

// metricsRecorder accumulates the data behind [Metrics].
type metricsRecorder struct {
	mu          sync.Mutex
	samples     [sampleSize]time.Duration
	sampleIdx   int
	sampleCount int
	sum         time.Duration
	queue       QueueMetrics
	queueInit   bool
	tps         *TPSCounter
	callbacks   atomic.Uint64
}

func newMetricsRecorder() *metricsRecorder {
	return &metricsRecorder{tps: NewTPSCounter(10*time.Second, 100*time.Millisecond)}
}

func (m *metricsRecorder) recordLatency(d time.Duration) {
	m.callbacks.Add(1)
	m.tps.Increment()

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sampleCount >= sampleSize {
		m.sum -= m.samples[m.sampleIdx]
	} else {
		m.sampleCount++
	}
	m.samples[m.sampleIdx] = d
	m.sum += d
	m.sampleIdx = (m.sampleIdx + 1) % sampleSize
}

func (m *metricsRecorder) recordQueue(depth int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue.Current = depth
	m.queue.Max = max(m.queue.Max, depth)
	if !m.queueInit {
		m.queue.Avg = float64(depth)
		m.queueInit = true
	} else {
		m.queue.Avg = 0.9*m.queue.Avg + 0.1*float64(depth)
	}
}

func (m *metricsRecorder) snapshot(ticks uint64) *Metrics {
	m.mu.Lock()
	sorted := slices.Clone(m.samples[:m.sampleCount])
	sum := m.sum
	queue := m.queue
	m.mu.Unlock()

	slices.Sort(sorted)

	out := &Metrics{
		Queue:     queue,
		TPS:       m.tps.TPS(),
		Ticks:     ticks,
		Callbacks: m.callbacks.Load(),
	}
	if n := len(sorted); n > 0 {
		out.Latency = LatencyMetrics{
			P50:     sorted[percentileIndex(n, 50)],
			P90:     sorted[percentileIndex(n, 90)],
			P99:     sorted[percentileIndex(n, 99)],
			Max:     sorted[n-1],
			Mean:    sum / time.Duration(n),
			Samples: n,
		}
	}
	return out
}

// percentileIndex computes the index for a given percentile (0-100).
func percentileIndex(n, p int) int {
	index := (p * n) / 100
	if index >= n {
		return n - 1
	}
	return index
}

// TPSCounter tracks events per second over a rolling window of buckets.
//
// TPS reads 0 until the first events land, and reflects the average rate
// over the whole window after that. All methods are thread-safe.
type TPSCounter struct {
	lastRotation time.Time
	buckets      []int64
	bucketSize   time.Duration
	windowSize   time.Duration
	mu           sync.Mutex
}

// NewTPSCounter creates a new TPS counter, e.g. a 10s window of 100ms buckets.
func NewTPSCounter(windowSize, bucketSize time.Duration) *TPSCounter {
	return &TPSCounter{
		lastRotation: time.Now(),
		buckets:      make([]int64, max(int(windowSize/bucketSize), 1)),
		bucketSize:   bucketSize,
		windowSize:   windowSize,
	}
}

// Increment records a single event.
func (t *TPSCounter) Increment() {
	t.mu.Lock()
	t.rotateLocked(time.Now())
	t.buckets[len(t.buckets)-1]++
	t.mu.Unlock()
}

// TPS returns the current events per second.
func (t *TPSCounter) TPS() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rotateLocked(time.Now())
	var sum int64
	for _, count := range t.buckets {
		sum += count
	}
	return float64(sum) / t.windowSize.Seconds()
}

func (t *TPSCounter) rotateLocked(now time.Time) {
	advance := int(now.Sub(t.lastRotation) / t.bucketSize)
	switch {
	case advance <= 0:
		return
	case advance >= len(t.buckets):
		clear(t.buckets)
		t.lastRotation = now
	default:
		copy(t.buckets, t.buckets[advance:])
		clear(t.buckets[len(t.buckets)-advance:])
		t.lastRotation = t.lastRotation.Add(time.Duration(advance) * t.bucketSize)
	}
}
