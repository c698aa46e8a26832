// Package sha256 implements the SHA-256 hash algorithm (FIPS 180-4) as a
// self-contained streaming core. The Ctx type uses only fixed-size,
// caller-owned storage: Init, Update, and Final perform no dynamic
// allocation and no I/O, making the package usable where neither is
// available. New returns a standard hash.Hash backed by the same core for
// ordinary callers.
package sha256

import "encoding/binary"

const (
	// Size is the length of a SHA-256 digest in bytes.
	Size = 32

	// BlockSize is the hash's internal block size in bytes. Update
	// accepts spans of any length; BlockSize only matters for callers
	// tuning buffer sizes.
	BlockSize = 64

	// HexSize is the length of a hex-encoded digest in bytes.
	HexSize = 2 * Size
)

// Initial state (FIPS 180-4 §5.3.3): the first 32 bits of the fractional
// parts of the square roots of the first 8 primes.
const (
	init0 = 0x6a09e667
	init1 = 0xbb67ae85
	init2 = 0x3c6ef372
	init3 = 0xa54ff53a
	init4 = 0x510e527f
	init5 = 0x9b05688c
	init6 = 0x1f83d9ab
	init7 = 0x5be0cd19
)

// Ctx is a streaming SHA-256 context. It holds the running 8-word state, a
// partial-block buffer, the count of valid buffered bytes, and the total
// number of input bits absorbed so far.
//
// A Ctx must be initialized with Init before use and re-initialized before
// hashing another message; Final leaves it consumed. A Ctx hashes exactly
// one message and is not safe for concurrent use. Independent contexts
// share no state.
//
// Field order is fixed: the in-memory layout matches the equivalent C
// structure (8 x uint32, 64 bytes, uint32, uint64) so foreign callers can
// allocate contexts directly. See the capi subpackage.
type Ctx struct {
	h    [8]uint32
	buf  [BlockSize]byte
	n    uint32
	bits uint64
}

// Init resets c to the standard initial state. It is idempotent and must be
// called before the first Update and again before reusing c for a new
// message.
func (c *Ctx) Init() {
	c.h[0] = init0
	c.h[1] = init1
	c.h[2] = init2
	c.h[3] = init3
	c.h[4] = init4
	c.h[5] = init5
	c.h[6] = init6
	c.h[7] = init7
	c.n = 0
	c.bits = 0
}

// Update absorbs p into the running hash. It may be called any number of
// times with spans of any length, including zero: splitting an input across
// Update calls at arbitrary boundaries yields the same digest as a single
// call with the concatenation.
func (c *Ctx) Update(p []byte) {
	c.bits += uint64(len(p)) * 8
	if c.n > 0 {
		n := copy(c.buf[c.n:], p)
		c.n += uint32(n)
		if c.n < BlockSize {
			return
		}
		block(&c.h, c.buf[:])
		c.n = 0
		p = p[n:]
	}
	if len(p) >= BlockSize {
		// Full blocks bypass the buffer.
		nn := len(p) &^ (BlockSize - 1)
		block(&c.h, p[:nn])
		p = p[nn:]
	}
	if len(p) > 0 {
		c.n = uint32(copy(c.buf[:], p))
	}
}

// Final applies the SHA-256 padding rule, runs the last transform(s), and
// writes the digest to out big-endian. The context is consumed afterwards;
// call Init before hashing another message. Calling Update after Final, or
// Final twice, is a contract violation with undefined results.
func (c *Ctx) Final(out *[Size]byte) {
	if c.n >= BlockSize {
		panic("sha256: corrupted context buffer length")
	}
	bits := c.bits

	// One 0x80 marker byte, then zeros up to the length field. When the
	// marker lands past offset 56 there is no room for the length; emit
	// an extra block first.
	i := c.n
	c.buf[i] = 0x80
	i++
	if i > 56 {
		for ; i < BlockSize; i++ {
			c.buf[i] = 0
		}
		block(&c.h, c.buf[:])
		i = 0
	}
	for ; i < 56; i++ {
		c.buf[i] = 0
	}
	binary.BigEndian.PutUint64(c.buf[56:], bits)
	block(&c.h, c.buf[:])

	for j, s := range c.h {
		binary.BigEndian.PutUint32(out[j*4:], s)
	}
}

// Sum256 returns the SHA-256 digest of data.
func Sum256(data []byte) [Size]byte {
	var c Ctx
	c.Init()
	c.Update(data)
	var sum [Size]byte
	c.Final(&sum)
	return sum
}
