// Package metrics provides Prometheus-format metrics for sum256
package metrics

import (
	"io"
	"sync"
	"time"
)

// Metrics holds all application metrics
type Metrics struct {
	// Counters
	FilesHashed   *CounterVec // labels: operation (hash, check, scan, selftest)
	BytesHashed   *CounterVec // labels: operation
	CheckResults  *CounterVec // labels: result (ok, failed, missing)
	Mismatches    *Counter
	FilesRecorded *Counter
	FilesPruned   *Counter

	// Cross-implementation verification
	VerifyResults  *CounterVec // labels: result (agreed, disagreed, error)
	VerifyDuration *Histogram

	// Error breakdown
	Errors *CounterVec // labels: type (open, read, walk, parse)

	// Gauges
	ActiveWorkers *Gauge
	QueueDepth    *Gauge
	DBFiles       *Gauge
	DBBytes       *Gauge

	// Histograms
	HashDuration *HistogramVec // labels: operation
	FileSizes    *Histogram
	HashRate     *Histogram // MB/s per file
}

// Counter is a simple counter metric
type Counter struct {
	value int64
	mu    sync.Mutex
}

// Inc increments the counter by 1.
func (c *Counter) Inc() {
	c.mu.Lock()
	c.value++
	c.mu.Unlock()
}

// Add adds the given value to the counter.
func (c *Counter) Add(v int64) {
	c.mu.Lock()
	c.value += v
	c.mu.Unlock()
}

// Value returns the current counter value.
func (c *Counter) Value() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value
}

// CounterVec is a counter with labels for multi-dimensional metrics.
type CounterVec struct {
	counters map[string]*Counter
	mu       sync.RWMutex
}

// NewCounterVec creates a new labeled counter vector.
func NewCounterVec() *CounterVec {
	return &CounterVec{
		counters: make(map[string]*Counter),
	}
}

// WithLabel returns the counter for the given label, creating it if needed.
func (cv *CounterVec) WithLabel(label string) *Counter {
	cv.mu.Lock()
	defer cv.mu.Unlock()
	if c, ok := cv.counters[label]; ok {
		return c
	}
	c := &Counter{}
	cv.counters[label] = c
	return c
}

// Values returns all label-value pairs in the counter vector.
func (cv *CounterVec) Values() map[string]int64 {
	cv.mu.RLock()
	defer cv.mu.RUnlock()
	result := make(map[string]int64)
	for k, v := range cv.counters {
		result[k] = v.Value()
	}
	return result
}

// Gauge is a metric that can go up and down.
type Gauge struct {
	value float64
	mu    sync.Mutex
}

// Set sets the gauge to the given value.
func (g *Gauge) Set(v float64) {
	g.mu.Lock()
	g.value = v
	g.mu.Unlock()
}

// Inc increments the gauge by 1.
func (g *Gauge) Inc() {
	g.mu.Lock()
	g.value++
	g.mu.Unlock()
}

// Dec decrements the gauge by 1.
func (g *Gauge) Dec() {
	g.mu.Lock()
	g.value--
	g.mu.Unlock()
}

// Add adds the given value to the gauge.
func (g *Gauge) Add(v float64) {
	g.mu.Lock()
	g.value += v
	g.mu.Unlock()
}

// Value returns the current gauge value.
func (g *Gauge) Value() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.value
}

// Histogram tracks distribution of values across buckets.
type Histogram struct {
	buckets []float64
	counts  []int64
	sum     float64
	count   int64
	mu      sync.Mutex
}

// NewHistogram creates a new histogram with the given bucket boundaries.
func NewHistogram(buckets []float64) *Histogram {
	return &Histogram{
		buckets: buckets,
		counts:  make([]int64, len(buckets)+1),
	}
}

// Observe records a value in the histogram.
func (h *Histogram) Observe(v float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sum += v
	h.count++
	for i, b := range h.buckets {
		if v <= b {
			h.counts[i]++
			return
		}
	}
	h.counts[len(h.buckets)]++
}

// Stats returns the current histogram statistics.
func (h *Histogram) Stats() (count int64, sum float64, buckets []int64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	bucketsCopy := make([]int64, len(h.counts))
	copy(bucketsCopy, h.counts)
	return h.count, h.sum, bucketsCopy
}

// HistogramVec is a histogram with labels for multi-dimensional metrics.
type HistogramVec struct {
	histograms map[string]*Histogram
	buckets    []float64
	mu         sync.RWMutex
}

// NewHistogramVec creates a new labeled histogram vector.
func NewHistogramVec(buckets []float64) *HistogramVec {
	return &HistogramVec{
		histograms: make(map[string]*Histogram),
		buckets:    buckets,
	}
}

// WithLabel returns the histogram for the given label, creating it if needed.
func (hv *HistogramVec) WithLabel(label string) *Histogram {
	hv.mu.Lock()
	defer hv.mu.Unlock()
	if h, ok := hv.histograms[label]; ok {
		return h
	}
	h := NewHistogram(hv.buckets)
	hv.histograms[label] = h
	return h
}

// Default buckets for different metric types
var (
	DurationBuckets = []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60}
	SizeBuckets     = []float64{1024, 10240, 102400, 1048576, 10485760, 104857600, 1073741824}
	RateBuckets     = []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500}
)

// New creates a new Metrics instance
func New() *Metrics {
	return &Metrics{
		FilesHashed:   NewCounterVec(),
		BytesHashed:   NewCounterVec(),
		CheckResults:  NewCounterVec(),
		Mismatches:    &Counter{},
		FilesRecorded: &Counter{},
		FilesPruned:   &Counter{},

		VerifyResults:  NewCounterVec(),
		VerifyDuration: NewHistogram(DurationBuckets),

		Errors: NewCounterVec(),

		ActiveWorkers: &Gauge{},
		QueueDepth:    &Gauge{},
		DBFiles:       &Gauge{},
		DBBytes:       &Gauge{},

		HashDuration: NewHistogramVec(DurationBuckets),
		FileSizes:    NewHistogram(SizeBuckets),
		HashRate:     NewHistogram(RateBuckets),
	}
}

// WriteText writes all metrics to w in Prometheus text exposition format.
func (m *Metrics) WriteText(w io.Writer) {
	writeCounter(w, "sum256_mismatches_total", m.Mismatches.Value())
	writeCounter(w, "sum256_files_recorded_total", m.FilesRecorded.Value())
	writeCounter(w, "sum256_files_pruned_total", m.FilesPruned.Value())

	for label, value := range m.FilesHashed.Values() {
		writeCounterWithLabel(w, "sum256_files_hashed_total", "operation", label, value)
	}
	for label, value := range m.BytesHashed.Values() {
		writeCounterWithLabel(w, "sum256_bytes_hashed_total", "operation", label, value)
	}
	for label, value := range m.CheckResults.Values() {
		writeCounterWithLabel(w, "sum256_check_results_total", "result", label, value)
	}
	for label, value := range m.VerifyResults.Values() {
		writeCounterWithLabel(w, "sum256_verify_results_total", "result", label, value)
	}
	for label, value := range m.Errors.Values() {
		writeCounterWithLabel(w, "sum256_errors_total", "type", label, value)
	}

	writeGauge(w, "sum256_active_workers", m.ActiveWorkers.Value())
	writeGauge(w, "sum256_queue_depth", m.QueueDepth.Value())
	writeGauge(w, "sum256_db_files", m.DBFiles.Value())
	writeGauge(w, "sum256_db_bytes", m.DBBytes.Value())

	writeHistogram(w, "sum256_file_size_bytes", m.FileSizes)
	writeHistogram(w, "sum256_hash_rate_mb_per_second", m.HashRate)
	writeHistogram(w, "sum256_verify_seconds", m.VerifyDuration)
}

func writeCounter(w io.Writer, name string, value int64) {
	_, _ = w.Write([]byte("# TYPE " + name + " counter\n"))
	_, _ = w.Write([]byte(name + " " + itoa(value) + "\n"))
}

func writeCounterWithLabel(w io.Writer, name, labelName, labelValue string, value int64) {
	_, _ = w.Write([]byte(name + "{" + labelName + "=\"" + labelValue + "\"} " + itoa(value) + "\n"))
}

func writeGauge(w io.Writer, name string, value float64) {
	_, _ = w.Write([]byte("# TYPE " + name + " gauge\n"))
	_, _ = w.Write([]byte(name + " " + ftoa(value) + "\n"))
}

func writeHistogram(w io.Writer, name string, h *Histogram) {
	count, sum, buckets := h.Stats()
	_, _ = w.Write([]byte("# TYPE " + name + " histogram\n"))

	cumulative := int64(0)
	for i, b := range h.buckets {
		cumulative += buckets[i]
		_, _ = w.Write([]byte(name + "_bucket{le=\"" + ftoa(b) + "\"} " + itoa(cumulative) + "\n"))
	}
	cumulative += buckets[len(buckets)-1]
	_, _ = w.Write([]byte(name + "_bucket{le=\"+Inf\"} " + itoa(cumulative) + "\n"))
	_, _ = w.Write([]byte(name + "_sum " + ftoa(sum) + "\n"))
	_, _ = w.Write([]byte(name + "_count " + itoa(count) + "\n"))
}

func itoa(i int64) string {
	if i == 0 {
		return "0"
	}
	neg := i < 0
	if neg {
		i = -i
	}
	var buf [20]byte
	pos := len(buf)
	for i > 0 {
		pos--
		buf[pos] = byte('0' + i%10)
		i /= 10
	}
	if neg {
		pos--
		buf[pos] = '-'
	}
	return string(buf[pos:])
}

// ftoa formats f with up to six fractional digits, trailing zeros trimmed.
func ftoa(f float64) string {
	if f == float64(int64(f)) {
		return itoa(int64(f))
	}
	neg := f < 0
	if neg {
		f = -f
	}
	intPart := int64(f)
	fracPart := int64((f-float64(intPart))*1000000 + 0.5)
	if fracPart >= 1000000 {
		intPart++
		fracPart = 0
	}
	if fracPart == 0 {
		if neg {
			return "-" + itoa(intPart)
		}
		return itoa(intPart)
	}
	var frac [6]byte
	for i := 5; i >= 0; i-- {
		frac[i] = byte('0' + fracPart%10)
		fracPart /= 10
	}
	end := 6
	for end > 1 && frac[end-1] == '0' {
		end--
	}
	s := itoa(intPart) + "." + string(frac[:end])
	if neg {
		s = "-" + s
	}
	return s
}

// Timer is a helper for timing operations
type Timer struct {
	start time.Time
	h     *Histogram
}

// NewTimer creates a new timer that will observe to the given histogram
func NewTimer(h *Histogram) *Timer {
	return &Timer{
		start: time.Now(),
		h:     h,
	}
}

// ObserveDuration records the elapsed time
func (t *Timer) ObserveDuration() time.Duration {
	d := time.Since(t.start)
	if t.h != nil {
		t.h.Observe(d.Seconds())
	}
	return d
}
