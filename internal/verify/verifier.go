// Package verify provides cross-implementation verification of SHA-256
// digests. Inputs are hashed by several independent implementations and the
// results compared, giving confidence that no single implementation bug can
// silently produce a wrong digest.
package verify

import (
	"context"
	stdsha256 "crypto/sha256"
	"fmt"
	"hash"
	"io"
	"math/rand"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	simd "github.com/minio/sha256-simd"
	"go.uber.org/zap"

	"github.com/sum256/sum256/internal/audit"
	"github.com/sum256/sum256/internal/metrics"
	"github.com/sum256/sum256/sha256"
)

// Implementation is one SHA-256 implementation under comparison
type Implementation struct {
	Name string
	New  func() hash.Hash
}

// Implementations returns the set of implementations digests are checked
// against: this module's own, the standard library, and minio's SIMD port.
func Implementations() []Implementation {
	return []Implementation{
		{Name: "sum256", New: sha256.New},
		{Name: "stdlib", New: stdsha256.New},
		{Name: "simd", New: simd.New},
	}
}

// Config holds verifier configuration
type Config struct {
	Enabled       bool // Enable background cross-checking
	MaxConcurrent int  // Max concurrent verifications (default: 4)
	SelfTestCases int  // Random inputs per self-test run (default: 64)
	MaxCaseBytes  int  // Max random input length in bytes (default: 65536)
}

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	return &Config{
		Enabled:       true,
		MaxConcurrent: 4,
		SelfTestCases: 64,
		MaxCaseBytes:  64 * 1024,
	}
}

// Result represents a verification result
type Result struct {
	Path     string
	Digest   string // hex digest all implementations agreed on
	Agreed   bool
	Digests  map[string]string // per-implementation digests on disagreement
	Bytes    int64
	Error    error
	Duration time.Duration
}

// Verifier performs cross-implementation verification
type Verifier struct {
	config  *Config
	impls   []Implementation
	logger  *zap.Logger
	metrics *metrics.Metrics
	audit   audit.Logger

	// Concurrency control
	sem     chan struct{}
	pending sync.WaitGroup

	// Shutdown
	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a new Verifier
func New(cfg *Config, logger *zap.Logger, m *metrics.Metrics, auditLog audit.Logger) *Verifier {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 4
	}
	if cfg.SelfTestCases <= 0 {
		cfg.SelfTestCases = 64
	}
	if cfg.MaxCaseBytes <= 0 {
		cfg.MaxCaseBytes = 64 * 1024
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Verifier{
		config:  cfg,
		impls:   Implementations(),
		logger:  logger,
		metrics: m,
		audit:   auditLog,
		sem:     make(chan struct{}, cfg.MaxConcurrent),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// MultiHasher feeds every write to all implementations under comparison.
type MultiHasher struct {
	names  []string
	hashes []hash.Hash
	n      int64
}

// NewMultiHasher creates a MultiHasher over the given implementations.
func NewMultiHasher(impls []Implementation) *MultiHasher {
	mh := &MultiHasher{
		names:  make([]string, 0, len(impls)),
		hashes: make([]hash.Hash, 0, len(impls)),
	}
	for _, impl := range impls {
		mh.names = append(mh.names, impl.Name)
		mh.hashes = append(mh.hashes, impl.New())
	}
	return mh
}

// Write feeds p to every implementation. It never fails.
func (m *MultiHasher) Write(p []byte) (int, error) {
	for _, h := range m.hashes {
		h.Write(p)
	}
	m.n += int64(len(p))
	return len(p), nil
}

// BytesWritten returns the total number of bytes hashed.
func (m *MultiHasher) BytesWritten() int64 {
	return m.n
}

// Sums returns the per-implementation hex digests of the data written so far.
func (m *MultiHasher) Sums() map[string]string {
	sums := make(map[string]string, len(m.hashes))
	for i, h := range m.hashes {
		var sum [sha256.Size]byte
		copy(sum[:], h.Sum(nil))
		sums[m.names[i]] = sha256.HexString(sum)
	}
	return sums
}

// Agreed returns the common digest if all implementations agree.
func (m *MultiHasher) Agreed() (string, bool) {
	var digest string
	for _, d := range m.Sums() {
		if digest == "" {
			digest = d
			continue
		}
		if d != digest {
			return "", false
		}
	}
	return digest, digest != ""
}

// CrossCheck hashes data with every implementation and compares the results.
func (v *Verifier) CrossCheck(data []byte) *Result {
	start := time.Now()
	mh := NewMultiHasher(v.impls)
	mh.Write(data)
	return v.resultFrom("", mh, start)
}

// VerifyFile streams the file at path through every implementation.
func (v *Verifier) VerifyFile(path string) *Result {
	start := time.Now()

	f, err := os.Open(path)
	if err != nil {
		return &Result{Path: path, Error: err, Duration: time.Since(start)}
	}
	defer f.Close()

	mh := NewMultiHasher(v.impls)
	if _, err := io.Copy(mh, f); err != nil {
		return &Result{Path: path, Error: err, Duration: time.Since(start)}
	}

	return v.resultFrom(path, mh, start)
}

func (v *Verifier) resultFrom(path string, mh *MultiHasher, start time.Time) *Result {
	digest, ok := mh.Agreed()
	r := &Result{
		Path:     path,
		Digest:   digest,
		Agreed:   ok,
		Bytes:    mh.BytesWritten(),
		Duration: time.Since(start),
	}
	if !ok {
		r.Digests = mh.Sums()
	}
	return r
}

// VerifyFileAsync re-hashes a file in the background and cross-checks the
// digest. This is non-blocking and meant to be called after a file has
// already been hashed once on the hot path.
func (v *Verifier) VerifyFileAsync(path string) {
	if !v.config.Enabled {
		return
	}

	// Non-blocking acquire of semaphore
	select {
	case v.sem <- struct{}{}:
	default:
		// Too many concurrent verifications, skip
		v.logger.Debug("Verification queue full, skipping",
			zap.String("path", path))
		return
	}

	v.pending.Add(1)
	go func() {
		defer func() {
			<-v.sem
			v.pending.Done()
		}()

		result := v.VerifyFile(path)
		v.logResult(result)
		v.recordMetrics(result)
		v.recordAudit(result)
	}()
}

// logResult logs the verification result
func (v *Verifier) logResult(r *Result) {
	if r.Error != nil {
		v.logger.Debug("Verification could not run",
			zap.String("path", r.Path),
			zap.Error(r.Error))
		return
	}

	if r.Agreed {
		v.logger.Debug("Digest confirmed by all implementations",
			zap.String("path", r.Path),
			zap.String("digest", truncateHash(r.Digest)),
			zap.Int64("bytes", r.Bytes),
			zap.Duration("duration", r.Duration))
	} else {
		v.logger.Error("SHA-256 implementations disagree",
			zap.String("path", r.Path),
			zap.String("digests", formatDisagreement(r.Digests)),
			zap.Int64("bytes", r.Bytes))
	}
}

// recordMetrics records verification metrics
func (v *Verifier) recordMetrics(r *Result) {
	if v.metrics == nil {
		return
	}

	if r.Error != nil {
		v.metrics.VerifyResults.WithLabel("error").Inc()
		return
	}

	if r.Agreed {
		v.metrics.VerifyResults.WithLabel("agreed").Inc()
	} else {
		v.metrics.VerifyResults.WithLabel("disagreed").Inc()
	}

	v.metrics.VerifyDuration.Observe(r.Duration.Seconds())
}

// recordAudit records an audit log event
func (v *Verifier) recordAudit(r *Result) {
	if v.audit == nil || r.Error != nil {
		return
	}

	if r.Agreed {
		v.audit.Log(audit.NewFileVerifiedEvent(r.Path, r.Digest, r.Bytes))
		return
	}

	event := audit.Event{
		Timestamp: time.Now(),
		EventType: audit.EventFileMismatch,
		Path:      r.Path,
		Reason:    "implementation disagreement: " + formatDisagreement(r.Digests),
	}
	v.audit.Log(event)
}

// SelfTestResult summarizes a self-test run.
type SelfTestResult struct {
	Cases    int
	Failures []string
	Seed     int64
	Duration time.Duration
}

// OK reports whether every case passed.
func (r *SelfTestResult) OK() bool {
	return len(r.Failures) == 0
}

// SelfTest cross-checks known answers and seeded random inputs across all
// implementations. Lengths around the block and padding boundaries are always
// included; the seed makes failures reproducible.
func (v *Verifier) SelfTest(ctx context.Context, seed int64) *SelfTestResult {
	start := time.Now()
	rng := rand.New(rand.NewSource(seed))
	res := &SelfTestResult{Seed: seed}

	known := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"},
		{"abc", "abc", "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"},
		{"two_block", "abcdbcdecdefdefgefghfghighijhijkijkljklmklmnlmnomnopnopq",
			"248d6a61d20638b8e5c026930c3e6039a33ce45964ff2167f6ecedd419db06c1"},
	}
	for _, k := range known {
		res.Cases++
		r := v.CrossCheck([]byte(k.input))
		if !r.Agreed {
			res.Failures = append(res.Failures,
				fmt.Sprintf("known answer %s: %s", k.name, formatDisagreement(r.Digests)))
			continue
		}
		if r.Digest != k.want {
			res.Failures = append(res.Failures,
				fmt.Sprintf("known answer %s: got %s, want %s", k.name, r.Digest, k.want))
		}
	}

	lengths := []int{0, 1, 55, 56, 57, 63, 64, 65, 127, 128, 129}
	for i := 0; i < v.config.SelfTestCases; i++ {
		lengths = append(lengths, rng.Intn(v.config.MaxCaseBytes+1))
	}

	var buf []byte
	for _, n := range lengths {
		select {
		case <-ctx.Done():
			res.Failures = append(res.Failures, "self-test interrupted: "+ctx.Err().Error())
			res.Duration = time.Since(start)
			return res
		case <-v.ctx.Done():
			res.Failures = append(res.Failures, "self-test interrupted: verifier closed")
			res.Duration = time.Since(start)
			return res
		default:
		}

		if cap(buf) < n {
			buf = make([]byte, n)
		}
		data := buf[:n]
		rng.Read(data)

		res.Cases++
		r := v.CrossCheck(data)
		if !r.Agreed {
			res.Failures = append(res.Failures,
				fmt.Sprintf("random input of %d bytes (seed %d): %s", n, seed, formatDisagreement(r.Digests)))
		}
	}

	res.Duration = time.Since(start)

	if res.OK() {
		v.logger.Debug("Self-test passed",
			zap.Int("cases", res.Cases),
			zap.Duration("duration", res.Duration))
	} else {
		v.logger.Error("Self-test FAILED",
			zap.Int("cases", res.Cases),
			zap.Strings("failures", res.Failures))
	}

	return res
}

// Close shuts down the verifier and waits for pending verifications
func (v *Verifier) Close() error {
	v.cancel()
	v.pending.Wait()
	return nil
}

// formatDisagreement renders per-implementation digests as "name=digest"
// pairs in stable order.
func formatDisagreement(digests map[string]string) string {
	names := make([]string, 0, len(digests))
	for name := range digests {
		names = append(names, name)
	}
	sort.Strings(names)

	pairs := make([]string, 0, len(names))
	for _, name := range names {
		pairs = append(pairs, name+"="+digests[name])
	}
	return strings.Join(pairs, " ")
}

// truncateHash returns a truncated hash for logging
func truncateHash(hash string) string {
	if len(hash) > 16 {
		return hash[:16] + "..."
	}
	return hash
}
