package stats

import (
	"errors"
	"math"
	"sort"
	"sync"
	"time"

	errspkg "github.com/drblury/pulseflow/internal/runtime/errors"
)

const (
	latencySampleSize    = 256
	throughputWindowSize = time.Minute
)

// LatencyMetrics summarizes recent publish durations.
type LatencyMetrics struct {
	AverageNs  int64 `json:"average_ns"`
	P50Ns      int64 `json:"p50_ns"`
	P95Ns      int64 `json:"p95_ns"`
	P99Ns      int64 `json:"p99_ns"`
	LastNs     int64 `json:"last_ns"`
	SampleSize int   `json:"sample_size"`
}

// ThroughputMetrics summarizes publish rate over a rolling window.
type ThroughputMetrics struct {
	CurrentRPS       float64 `json:"current_rps"`
	WindowSeconds    float64 `json:"window_seconds"`
	MessagesInWindow uint64  `json:"messages_in_window"`
	TotalMessages    uint64  `json:"total_messages"`
}

// ErrorBreakdown counts publish failures by pipeline stage.
type ErrorBreakdown struct {
	Argument   uint64 `json:"argument"`
	Validation uint64 `json:"validation"`
	Encoding   uint64 `json:"encoding"`
	Broker     uint64 `json:"broker"`
	Other      uint64 `json:"other"`
	LastError  string `json:"last_error,omitempty"`
}

func (e *ErrorBreakdown) record(err error) {
	if err == nil {
		return
	}
	switch {
	case errors.Is(err, &errspkg.ArgumentError{}):
		e.Argument++
	case errors.Is(err, &errspkg.ValidationError{}):
		e.Validation++
	case errors.Is(err, &errspkg.EncodingError{}):
		e.Encoding++
	case errors.Is(err, &errspkg.BrokerError{}):
		e.Broker++
	default:
		e.Other++
	}
	e.LastError = err.Error()
}

// ExchangeInfo is a point-in-time view of one exchange's publish statistics.
type ExchangeInfo struct {
	Exchange        string            `json:"exchange"`
	Published       uint64            `json:"published"`
	Failed          uint64            `json:"failed"`
	LastPublishedAt time.Time         `json:"last_published_at"`
	Latency         LatencyMetrics    `json:"latency"`
	Throughput      ThroughputMetrics `json:"throughput"`
	Errors          ErrorBreakdown    `json:"errors"`
	Resource        ResourceUsage     `json:"resource"`
}

// Tracker aggregates per-exchange publish statistics.
type Tracker struct {
	mu        sync.Mutex
	exchanges map[string]*exchangeStats
	resources *resourceTracker
}

// NewTracker creates an empty Tracker.
func NewTracker() *Tracker {
	return &Tracker{
		exchanges: make(map[string]*exchangeStats),
		resources: newResourceTracker(),
	}
}

// Record adds one publish outcome for exchange.
func (t *Tracker) Record(exchange string, duration time.Duration, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s, ok := t.exchanges[exchange]
	if !ok {
		s = &exchangeStats{
			latency:    newLatencyWindow(latencySampleSize),
			throughput: newThroughputWindow(throughputWindowSize),
		}
		t.exchanges[exchange] = s
	}
	s.record(duration, err)
	s.resource = t.resources.Snapshot()
}

// Infos returns the statistics of every exchange published to so far,
// ordered by exchange name.
func (t *Tracker) Infos() []ExchangeInfo {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]ExchangeInfo, 0, len(t.exchanges))
	for name, s := range t.exchanges {
		info := s.snapshot()
		info.Exchange = name
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Exchange < out[j].Exchange })
	return out
}

type exchangeStats struct {
	published       uint64
	failed          uint64
	totalDuration   int64
	lastPublishedAt time.Time

	latency    *latencyWindow
	throughput *throughputWindow
	errors     ErrorBreakdown
	resource   ResourceUsage
}

func (s *exchangeStats) record(duration time.Duration, err error) {
	now := time.Now()
	s.published++
	if err != nil {
		s.failed++
	}
	s.totalDuration += int64(duration)
	s.lastPublishedAt = now.UTC()

	s.latency.Add(duration)
	s.throughput.AddAndSnapshot(now)
	s.errors.record(err)
}

func (s *exchangeStats) snapshot() ExchangeInfo {
	latency := s.latency.Snapshot()
	if s.published > 0 {
		latency.AverageNs = s.totalDuration / int64(s.published)
	}
	tp := s.throughput.snapshot(time.Now())
	return ExchangeInfo{
		Published:       s.published,
		Failed:          s.failed,
		LastPublishedAt: s.lastPublishedAt,
		Latency:         latency,
		Throughput: ThroughputMetrics{
			CurrentRPS:       tp.CurrentRPS,
			WindowSeconds:    tp.WindowSeconds,
			MessagesInWindow: uint64(tp.Count),
			TotalMessages:    s.published,
		},
		Errors:   s.errors,
		Resource: s.resource,
	}
}

type latencyWindow struct {
	samples []int64
	next    int
	filled  int
	last    int64
}

func newLatencyWindow(size int) *latencyWindow {
	if size <= 0 {
		size = latencySampleSize
	}
	return &latencyWindow{samples: make([]int64, size)}
}

func (lw *latencyWindow) Add(d time.Duration) {
	if lw == nil || len(lw.samples) == 0 {
		return
	}
	lw.samples[lw.next] = int64(d)
	lw.last = int64(d)
	lw.next = (lw.next + 1) % len(lw.samples)
	if lw.filled < len(lw.samples) {
		lw.filled++
	}
}

func (lw *latencyWindow) Snapshot() LatencyMetrics {
	var metrics LatencyMetrics
	if lw == nil {
		return metrics
	}
	if lw.filled == 0 {
		metrics.LastNs = lw.last
		return metrics
	}
	samples := make([]int64, lw.filled)
	for i := 0; i < lw.filled; i++ {
		idx := lw.next - lw.filled + i
		if idx < 0 {
			idx += len(lw.samples)
		}
		samples[i] = lw.samples[idx]
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	metrics.SampleSize = lw.filled
	metrics.P50Ns = percentile(samples, 0.50)
	metrics.P95Ns = percentile(samples, 0.95)
	metrics.P99Ns = percentile(samples, 0.99)
	var sum int64
	for _, v := range samples {
		sum += v
	}
	metrics.AverageNs = sum / int64(len(samples))
	metrics.LastNs = lw.last
	return metrics
}

func percentile(samples []int64, quantile float64) int64 {
	if len(samples) == 0 {
		return 0
	}
	if quantile <= 0 {
		return samples[0]
	}
	if quantile >= 1 {
		return samples[len(samples)-1]
	}
	pos := quantile * float64(len(samples)-1)
	lower := int(math.Floor(pos))
	upper := int(math.Ceil(pos))
	if lower == upper {
		return samples[lower]
	}
	frac := pos - float64(lower)
	return samples[lower] + int64(float64(samples[upper]-samples[lower])*frac)
}

type throughputWindow struct {
	horizon time.Duration
	samples []time.Time
}

type throughputSnapshot struct {
	Count         int
	WindowSeconds float64
	CurrentRPS    float64
}

func newThroughputWindow(horizon time.Duration) *throughputWindow {
	return &throughputWindow{
		horizon: horizon,
		samples: make([]time.Time, 0, 64),
	}
}

func (tw *throughputWindow) AddAndSnapshot(now time.Time) throughputSnapshot {
	if tw == nil {
		return throughputSnapshot{}
	}
	tw.samples = append(tw.samples, now)
	tw.cleanup(now)
	return tw.snapshot(now)
}

func (tw *throughputWindow) cleanup(now time.Time) {
	if tw == nil || len(tw.samples) == 0 {
		return
	}
	cutoff := now.Add(-tw.horizon)
	idx := 0
	for idx < len(tw.samples) && tw.samples[idx].Before(cutoff) {
		idx++
	}
	if idx > 0 {
		copy(tw.samples, tw.samples[idx:])
		tw.samples = tw.samples[:len(tw.samples)-idx]
	}
}

func (tw *throughputWindow) snapshot(now time.Time) throughputSnapshot {
	if tw == nil || len(tw.samples) == 0 {
		return throughputSnapshot{}
	}
	span := now.Sub(tw.samples[0])
	if span <= 0 {
		span = time.Nanosecond
	}
	count := len(tw.samples)
	return throughputSnapshot{
		Count:         count,
		WindowSeconds: span.Seconds(),
		CurrentRPS:    float64(count) / span.Seconds(),
	}
}
