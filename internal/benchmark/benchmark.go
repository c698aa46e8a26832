// Package benchmark provides throughput benchmarking across SHA-256
// implementations and input shapes.
package benchmark

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/sum256/sum256/internal/verify"
)

// Scenario defines one benchmark input shape
type Scenario struct {
	Name        string
	Description string
	InputSize   int64

	// WriteSize is the granularity of Write calls; zero hashes the whole
	// input in a single call
	WriteSize  int
	Iterations int
}

// Result contains the outcome of one implementation on one scenario
type Result struct {
	Scenario        string
	Implementation  string
	InputSize       int64
	Iterations      int
	TotalDuration   time.Duration
	AvgDuration     time.Duration
	MinDuration     time.Duration
	MaxDuration     time.Duration
	TotalBytes      int64
	AvgThroughputMB float64
	Errors          int
}

// Runner executes benchmark scenarios against every registered implementation
type Runner struct {
	impls  []verify.Implementation
	output io.Writer
}

// NewRunner creates a benchmark runner. output receives progress lines and
// may be nil.
func NewRunner(output io.Writer) *Runner {
	return &Runner{
		impls:  verify.Implementations(),
		output: output,
	}
}

// Run executes a single scenario against every implementation. Each
// iteration's digest is checked against crypto/sha256, so a benchmark run
// doubles as a correctness pass.
func (r *Runner) Run(ctx context.Context, scenario Scenario) ([]*Result, error) {
	if scenario.Iterations <= 0 {
		scenario.Iterations = 1
	}

	data := GenerateTestData(scenario.InputSize)
	ref := sha256.Sum256(data)
	expected := hex.EncodeToString(ref[:])

	r.log("Running scenario: %s (%s input, %d iterations)\n",
		scenario.Name, formatBytes(scenario.InputSize), scenario.Iterations)

	results := make([]*Result, 0, len(r.impls))
	for _, impl := range r.impls {
		select {
		case <-ctx.Done():
			return results, ctx.Err()
		default:
		}

		res := r.benchImplementation(impl, scenario, data, expected)
		results = append(results, res)

		r.log("  %-8s avg %v (%.1f MB/s, errors: %d)\n",
			impl.Name, res.AvgDuration.Round(time.Microsecond),
			res.AvgThroughputMB, res.Errors)
	}

	return results, nil
}

func (r *Runner) benchImplementation(impl verify.Implementation, scenario Scenario, data []byte, expected string) *Result {
	res := &Result{
		Scenario:       scenario.Name,
		Implementation: impl.Name,
		InputSize:      scenario.InputSize,
		Iterations:     scenario.Iterations,
	}

	var durations []time.Duration

	for i := 0; i < scenario.Iterations; i++ {
		start := time.Now()

		h := impl.New()
		if scenario.WriteSize > 0 {
			for off := 0; off < len(data); off += scenario.WriteSize {
				end := off + scenario.WriteSize
				if end > len(data) {
					end = len(data)
				}
				h.Write(data[off:end])
			}
		} else {
			h.Write(data)
		}
		digest := hex.EncodeToString(h.Sum(nil))

		duration := time.Since(start)

		if digest != expected {
			res.Errors++
			r.log("  %s iteration %d: DIGEST MISMATCH\n", impl.Name, i+1)
			continue
		}

		durations = append(durations, duration)
		res.TotalBytes += int64(len(data))
	}

	if len(durations) == 0 {
		return res
	}

	res.MinDuration = durations[0]
	res.MaxDuration = durations[0]
	for _, d := range durations {
		res.TotalDuration += d
		if d < res.MinDuration {
			res.MinDuration = d
		}
		if d > res.MaxDuration {
			res.MaxDuration = d
		}
	}
	res.AvgDuration = res.TotalDuration / time.Duration(len(durations))
	if secs := res.TotalDuration.Seconds(); secs > 0 {
		res.AvgThroughputMB = float64(res.TotalBytes) / secs / (1024 * 1024)
	}

	return res
}

// RunAll executes multiple scenarios
func (r *Runner) RunAll(ctx context.Context, scenarios []Scenario) ([]*Result, error) {
	results := make([]*Result, 0, len(scenarios)*len(r.impls))

	for _, s := range scenarios {
		res, err := r.Run(ctx, s)
		results = append(results, res...)
		if err != nil {
			return results, err
		}
	}

	return results, nil
}

func (r *Runner) log(format string, args ...interface{}) {
	if r.output != nil {
		fmt.Fprintf(r.output, format, args...)
	}
}

func (r *Runner) implByName(name string) (verify.Implementation, bool) {
	for _, impl := range r.impls {
		if impl.Name == name {
			return impl, true
		}
	}
	return verify.Implementation{}, false
}

// DefaultScenarios returns the standard benchmark scenarios
func DefaultScenarios() []Scenario {
	return []Scenario{
		{
			Name:        "tiny_64b",
			Description: "Single-block messages",
			InputSize:   64,
			Iterations:  200,
		},
		{
			Name:        "small_4k",
			Description: "Page-sized inputs",
			InputSize:   4 * 1024,
			Iterations:  100,
		},
		{
			Name:        "medium_64k",
			Description: "Read-buffer-sized inputs",
			InputSize:   64 * 1024,
			Iterations:  50,
		},
		{
			Name:        "large_1m",
			Description: "1 MB hashed in one write",
			InputSize:   1024 * 1024,
			Iterations:  20,
		},
		{
			Name:        "stream_1m_4k",
			Description: "1 MB fed in 4 KB writes, as a buffered reader would",
			InputSize:   1024 * 1024,
			WriteSize:   4 * 1024,
			Iterations:  10,
		},
		{
			Name:        "huge_16m",
			Description: "Large-file throughput",
			InputSize:   16 * 1024 * 1024,
			Iterations:  5,
		},
	}
}

// WriteSizeBenchmark measures how Write granularity affects throughput
func (r *Runner) WriteSizeBenchmark(ctx context.Context, inputSize int64, writeSizes []int) ([]*Result, error) {
	var results []*Result

	for _, ws := range writeSizes {
		scenario := Scenario{
			Name:        fmt.Sprintf("write_%d", ws),
			Description: fmt.Sprintf("%s input in %d-byte writes", formatBytes(inputSize), ws),
			InputSize:   inputSize,
			WriteSize:   ws,
			Iterations:  3,
		}

		res, err := r.Run(ctx, scenario)
		results = append(results, res...)
		if err != nil {
			return results, err
		}
	}

	return results, nil
}

// StressResult contains results from a concurrent hashing stress test
type StressResult struct {
	Implementation        string
	Concurrent            int
	TotalDuration         time.Duration
	SuccessCount          int
	ErrorCount            int
	Durations             []time.Duration
	AggregateThroughputMB float64
}

// StressBenchmark hashes the same input from many goroutines at once to
// measure aggregate throughput and flush out shared-state bugs.
func (r *Runner) StressBenchmark(ctx context.Context, implName string, inputSize int64, concurrent int) (*StressResult, error) {
	impl, ok := r.implByName(implName)
	if !ok {
		return nil, fmt.Errorf("unknown implementation %q", implName)
	}
	if concurrent <= 0 {
		concurrent = 1
	}

	data := GenerateTestData(inputSize)
	ref := sha256.Sum256(data)
	expected := hex.EncodeToString(ref[:])

	r.log("Running stress test: %d concurrent hashers (%s, %s input)\n",
		concurrent, impl.Name, formatBytes(inputSize))

	var wg sync.WaitGroup
	durations := make(chan time.Duration, concurrent)
	failures := make(chan error, concurrent)

	start := time.Now()

	for i := 0; i < concurrent; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			select {
			case <-ctx.Done():
				failures <- ctx.Err()
				return
			default:
			}

			hashStart := time.Now()
			h := impl.New()
			h.Write(data)
			digest := hex.EncodeToString(h.Sum(nil))

			if digest != expected {
				failures <- fmt.Errorf("digest mismatch under concurrency")
				return
			}
			durations <- time.Since(hashStart)
		}()
	}

	wg.Wait()
	close(durations)
	close(failures)

	result := &StressResult{
		Implementation: impl.Name,
		Concurrent:     concurrent,
		TotalDuration:  time.Since(start),
	}
	for d := range durations {
		result.Durations = append(result.Durations, d)
		result.SuccessCount++
	}
	for range failures {
		result.ErrorCount++
	}
	if secs := result.TotalDuration.Seconds(); secs > 0 {
		result.AggregateThroughputMB = float64(int64(result.SuccessCount)*inputSize) / secs / (1024 * 1024)
	}

	return result, nil
}

// PrintResults prints benchmark results grouped by scenario
func PrintResults(w io.Writer, results []*Result) {
	fmt.Fprintln(w, "\n=== Benchmark Results ===")
	fmt.Fprintln(w, "")

	lastScenario := ""
	for _, r := range results {
		if r.Scenario != lastScenario {
			if lastScenario != "" {
				fmt.Fprintln(w, "")
			}
			fmt.Fprintf(w, "Scenario: %s (%s input, %d iterations)\n",
				r.Scenario, formatBytes(r.InputSize), r.Iterations)
			lastScenario = r.Scenario
		}

		fmt.Fprintf(w, "  %-8s %8.1f MB/s  avg %v  min %v  max %v",
			r.Implementation, r.AvgThroughputMB,
			r.AvgDuration.Round(time.Microsecond),
			r.MinDuration.Round(time.Microsecond),
			r.MaxDuration.Round(time.Microsecond))
		if r.Errors > 0 {
			fmt.Fprintf(w, "  ERRORS: %d", r.Errors)
		}
		fmt.Fprintln(w, "")
	}
}

// GenerateTestData creates deterministic test data of the specified size.
// The pattern avoids long runs so block-level shortcuts cannot flatter an
// implementation.
func GenerateTestData(size int64) []byte {
	data := make([]byte, size)
	for i := range data {
		data[i] = byte(i*7 + i/256)
	}
	return data
}

func formatBytes(b int64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(b)/float64(div), "KMGTPE"[exp])
}
