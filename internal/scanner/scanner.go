// Package scanner provides a bounded worker pool that walks directory
// trees and hashes every regular file it finds.
package scanner

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/sum256/sum256/internal/hashutil"
	"github.com/sum256/sum256/internal/metrics"
	"github.com/sum256/sum256/internal/ratelimit"
	"github.com/sum256/sum256/internal/sanitize"
)

const (
	// DefaultBufferSize is the per-worker read buffer size
	DefaultBufferSize = 256 * 1024

	// MaxWorkers caps the worker pool size
	MaxWorkers = 256
)

// Config holds scanner configuration
type Config struct {
	// Workers is the number of concurrent hashing workers.
	// Zero or negative means one per CPU.
	Workers int

	// BufferSize is the read buffer size per worker
	BufferSize int

	// MaxReadRate throttles combined read bandwidth in bytes per second.
	// Zero means unlimited.
	MaxReadRate int64

	// FollowSymlinks hashes symlinks that point at regular files.
	// Symlinked directories are never descended.
	FollowSymlinks bool

	// Operation labels metrics recorded by this scanner (scan, check, verify)
	Operation string
}

// DefaultConfig returns the default scanner configuration
func DefaultConfig() Config {
	return Config{
		Workers:    runtime.NumCPU(),
		BufferSize: DefaultBufferSize,
		Operation:  "scan",
	}
}

// FileResult is the outcome of hashing one file
type FileResult struct {
	Path     string
	Digest   string
	Size     int64
	ModTime  time.Time
	Duration time.Duration
	Err      error
}

// Missing reports whether the result failed because the file does not exist
func (r FileResult) Missing() bool {
	return errors.Is(r.Err, fs.ErrNotExist)
}

// Summary aggregates the outcome of a scan
type Summary struct {
	Files    int   // files hashed successfully
	Bytes    int64 // bytes hashed
	Errors   int   // files that could not be hashed
	Skipped  int   // irregular files and unfollowed symlinks
	Duration time.Duration
}

// Scanner hashes files with a bounded worker pool
type Scanner struct {
	config  Config
	logger  *zap.Logger
	metrics *metrics.Metrics
	limiter *ratelimit.Limiter
}

// New creates a Scanner. Out-of-range config values are clamped.
func New(cfg Config, logger *zap.Logger, m *metrics.Metrics) *Scanner {
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	if cfg.Workers > MaxWorkers {
		cfg.Workers = MaxWorkers
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = DefaultBufferSize
	}
	if cfg.Operation == "" {
		cfg.Operation = "scan"
	}

	return &Scanner{
		config:  cfg,
		logger:  logger,
		metrics: m,
		limiter: ratelimit.New(cfg.MaxReadRate),
	}
}

// Scan walks the given roots and hashes every regular file. A root naming a
// plain file is hashed directly. fn, when non-nil, is invoked serially for
// each result, including failures. On cancellation the returned summary
// covers the work completed so far.
func (s *Scanner) Scan(ctx context.Context, roots []string, fn func(FileResult)) (*Summary, error) {
	var skipped atomic.Int64

	summary, err := s.run(ctx, func(ctx context.Context, paths chan<- string, results chan<- FileResult) {
		for _, root := range roots {
			s.walkRoot(ctx, root, paths, results, &skipped)
			if ctx.Err() != nil {
				return
			}
		}
	}, fn)

	summary.Skipped = int(skipped.Load())
	return summary, err
}

// HashFiles hashes an explicit list of paths through the worker pool.
// Missing files surface as results whose Missing() is true.
func (s *Scanner) HashFiles(ctx context.Context, files []string, fn func(FileResult)) (*Summary, error) {
	return s.run(ctx, func(ctx context.Context, paths chan<- string, _ chan<- FileResult) {
		for _, path := range files {
			select {
			case paths <- path:
			case <-ctx.Done():
				return
			}
		}
	}, fn)
}

// run drives the producer, the worker pool, and the collector. The results
// channel closes only after both the producer and all workers have finished,
// since the producer reports walk failures on it too.
func (s *Scanner) run(ctx context.Context, produce func(context.Context, chan<- string, chan<- FileResult), fn func(FileResult)) (*Summary, error) {
	start := time.Now()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	paths := make(chan string, s.config.Workers*4)
	results := make(chan FileResult, s.config.Workers)

	var wg sync.WaitGroup
	for i := 0; i < s.config.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.worker(ctx, paths, results)
		}()
	}

	prodDone := make(chan struct{})
	go func() {
		defer close(prodDone)
		defer close(paths)
		produce(ctx, paths, results)
	}()

	go func() {
		wg.Wait()
		<-prodDone
		close(results)
	}()

	summary := &Summary{}
	for res := range results {
		if res.Err != nil {
			summary.Errors++
		} else {
			summary.Files++
			summary.Bytes += res.Size
		}
		if fn != nil {
			fn(res)
		}
	}
	summary.Duration = time.Since(start)

	if err := ctx.Err(); err != nil {
		return summary, err
	}
	return summary, nil
}

// walkRoot enqueues every hashable file under root. Roots named on the
// command line are dereferenced even when FollowSymlinks is off.
func (s *Scanner) walkRoot(ctx context.Context, root string, paths chan<- string, results chan<- FileResult, skipped *atomic.Int64) {
	info, err := os.Stat(root)
	if err != nil {
		results <- FileResult{Path: root, Err: err}
		if s.metrics != nil {
			s.metrics.Errors.WithLabel("walk").Inc()
		}
		return
	}

	if !info.IsDir() {
		if !info.Mode().IsRegular() {
			skipped.Add(1)
			return
		}
		select {
		case paths <- root:
		case <-ctx.Done():
		}
		return
	}

	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if ctx.Err() != nil {
			return filepath.SkipAll
		}
		if err != nil {
			results <- FileResult{Path: path, Err: err}
			if s.metrics != nil {
				s.metrics.Errors.WithLabel("walk").Inc()
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}

		if d.Type()&fs.ModeSymlink != 0 {
			if !s.config.FollowSymlinks {
				skipped.Add(1)
				return nil
			}
			target, terr := os.Stat(path)
			if terr != nil {
				results <- FileResult{Path: path, Err: terr}
				if s.metrics != nil {
					s.metrics.Errors.WithLabel("walk").Inc()
				}
				return nil
			}
			if !target.Mode().IsRegular() {
				skipped.Add(1)
				return nil
			}
		} else if !d.Type().IsRegular() {
			skipped.Add(1)
			s.logger.Debug("Skipping irregular file",
				zap.String("path", sanitize.Path(path)))
			return nil
		}

		select {
		case paths <- path:
		case <-ctx.Done():
			return filepath.SkipAll
		}
		return nil
	})
}

// worker hashes paths from the queue until it closes or the context ends
func (s *Scanner) worker(ctx context.Context, paths <-chan string, results chan<- FileResult) {
	buf := make([]byte, s.config.BufferSize)

	for path := range paths {
		select {
		case <-ctx.Done():
			results <- FileResult{Path: path, Err: ctx.Err()}
			return
		default:
		}

		if s.metrics != nil {
			s.metrics.QueueDepth.Set(float64(len(paths)))
		}

		results <- s.hashFile(ctx, path, buf)
	}
}

// hashFile hashes one file, counting the bytes actually read rather than
// trusting the stat size, since files can change mid-read.
func (s *Scanner) hashFile(ctx context.Context, path string, buf []byte) FileResult {
	start := time.Now()
	res := FileResult{Path: path}

	if s.metrics != nil {
		s.metrics.ActiveWorkers.Inc()
		defer s.metrics.ActiveWorkers.Dec()
	}

	f, err := os.Open(path)
	if err != nil {
		res.Err = err
		if s.metrics != nil {
			s.metrics.Errors.WithLabel("open").Inc()
		}
		return res
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		res.Err = err
		if s.metrics != nil {
			s.metrics.Errors.WithLabel("open").Inc()
		}
		return res
	}
	res.ModTime = info.ModTime()

	hr := hashutil.NewHashingReader(s.limiter.ReaderContext(ctx, f))

	var total int64
	for {
		select {
		case <-ctx.Done():
			res.Err = ctx.Err()
			return res
		default:
		}

		n, rerr := hr.Read(buf)
		total += int64(n)
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			res.Err = rerr
			if s.metrics != nil {
				s.metrics.Errors.WithLabel("read").Inc()
			}
			return res
		}
	}

	res.Size = total
	res.Digest = hr.Sum()
	res.Duration = time.Since(start)

	if s.metrics != nil {
		op := s.config.Operation
		s.metrics.FilesHashed.WithLabel(op).Inc()
		s.metrics.BytesHashed.WithLabel(op).Add(total)
		s.metrics.HashDuration.WithLabel(op).Observe(res.Duration.Seconds())
		s.metrics.FileSizes.Observe(float64(total))
		if secs := res.Duration.Seconds(); secs > 0 {
			s.metrics.HashRate.Observe(float64(total) / (1024 * 1024) / secs)
		}
	}

	s.logger.Debug("Hashed file",
		zap.String("path", sanitize.Path(path)),
		zap.String("sha256", res.Digest),
		zap.Int64("bytes", total),
		zap.Duration("duration", res.Duration))

	return res
}
