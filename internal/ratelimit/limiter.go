// Package ratelimit provides rate-limited io.Reader wrappers used to keep
// bulk hashing from saturating disk bandwidth.
package ratelimit

import (
	"context"
	"io"

	"golang.org/x/time/rate"
)

// Limiter hands out rate-limited readers sharing one token bucket, so the
// combined read rate across scan workers stays under the configured cap.
type Limiter struct {
	limiter *rate.Limiter
	enabled bool
}

// New creates a new rate limiter.
// bytesPerSecond of 0 or negative means unlimited.
func New(bytesPerSecond int64) *Limiter {
	if bytesPerSecond <= 0 {
		return &Limiter{enabled: false}
	}

	// Use burst size of 64KB or 1 second worth, whichever is larger
	burst := bytesPerSecond
	if burst < 64*1024 {
		burst = 64 * 1024
	}
	if burst > 4*1024*1024 {
		burst = 4 * 1024 * 1024 // Cap at 4MB burst
	}

	return &Limiter{
		limiter: rate.NewLimiter(rate.Limit(bytesPerSecond), int(burst)),
		enabled: true,
	}
}

// Enabled returns whether rate limiting is active
func (l *Limiter) Enabled() bool {
	return l != nil && l.enabled
}

// Reader returns a rate-limited reader
func (l *Limiter) Reader(r io.Reader) io.Reader {
	if !l.Enabled() {
		return r
	}
	return &LimitedReader{
		r:       r,
		limiter: l.limiter,
		ctx:     context.Background(),
	}
}

// ReaderContext returns a rate-limited reader with context
func (l *Limiter) ReaderContext(ctx context.Context, r io.Reader) io.Reader {
	if !l.Enabled() {
		return r
	}
	return &LimitedReader{
		r:       r,
		limiter: l.limiter,
		ctx:     ctx,
	}
}

// LimitedReader wraps io.Reader with rate limiting
type LimitedReader struct {
	r       io.Reader
	limiter *rate.Limiter
	ctx     context.Context
}

// Read implements io.Reader with rate limiting.
// Splits large reads into burst-sized waits to avoid panicking when n > burst.
func (lr *LimitedReader) Read(p []byte) (n int, err error) {
	n, err = lr.r.Read(p)
	if n > 0 {
		burst := lr.limiter.Burst()
		remaining := n
		for remaining > 0 {
			wait := remaining
			if wait > burst {
				wait = burst
			}
			if waitErr := lr.limiter.WaitN(lr.ctx, wait); waitErr != nil {
				return n, waitErr
			}
			remaining -= wait
		}
	}
	return n, err
}
