package sha256

import (
	"bytes"
	stdsha256 "crypto/sha256"
	"fmt"
	"testing"
	"unsafe"
)

// Known-answer digests from FIPS 180-4 / RFC 6234 test data.
const (
	emptyHash    = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"
	abcHash      = "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"
	twoBlockHash = "248d6a61d20638b8e5c026930c3e6039a33ce45964ff2167f6ecedd419db06c1"
	foxHash      = "d7a8fbb307d7809469ca9abcb0082e4f8d5651e46d3cdb762d02d0bf37c9e592"
	helloHash    = "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824"
	millionAHash = "cdc76e5c9914fb9281a1c7e284d73e67f1809a48a497200e046d39ccc7112cd0"
)

func TestKnownVectors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", emptyHash},
		{"abc", "abc", abcHash},
		{"two_block", "abcdbcdecdefdefgefghfghighijhijkijkljklmklmnlmnomnopnopq", twoBlockHash},
		{"fox", "The quick brown fox jumps over the lazy dog", foxHash},
		{"hello", "hello", helloHash},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sum := Sum256([]byte(tt.input))
			if got := HexString(sum); got != tt.want {
				t.Errorf("Sum256(%q) = %s, want %s", tt.input, got, tt.want)
			}
		})
	}
}

func TestMillionA(t *testing.T) {
	data := bytes.Repeat([]byte{'a'}, 1000000)

	sum := Sum256(data)
	if got := HexString(sum); got != millionAHash {
		t.Errorf("Sum256(1M x 'a') = %s, want %s", got, millionAHash)
	}

	// Same input streamed in uneven chunks.
	var c Ctx
	c.Init()
	for off := 0; off < len(data); off += 997 {
		end := off + 997
		if end > len(data) {
			end = len(data)
		}
		c.Update(data[off:end])
	}
	var streamed [Size]byte
	c.Final(&streamed)
	if got := HexString(streamed); got != millionAHash {
		t.Errorf("streamed 1M x 'a' = %s, want %s", got, millionAHash)
	}
}

// TestPaddingBoundaries exercises the finalize paths around the 56-byte
// length-field cutoff: 55 buffered bytes fit marker and length in one
// block, 56 and 57 force the extra block, 63 puts the marker in the last
// buffer slot. Verified against the standard library.
func TestPaddingBoundaries(t *testing.T) {
	lengths := []int{0, 1, 31, 55, 56, 57, 63, 64, 65, 119, 120, 121, 127, 128, 129}
	for _, n := range lengths {
		t.Run(fmt.Sprintf("len_%d", n), func(t *testing.T) {
			data := bytes.Repeat([]byte{'a'}, n)
			got := Sum256(data)
			want := stdsha256.Sum256(data)
			if got != want {
				t.Errorf("Sum256 of %d bytes = %x, want %x", n, got, want)
			}
		})
	}
}

func TestStreamingEquivalence(t *testing.T) {
	data := make([]byte, 1024)
	for i := range data {
		data[i] = byte(i*31 + 7)
	}
	want := Sum256(data)

	chunkSizes := []int{1, 3, 7, 16, 63, 64, 65, 100, 512, 1024}
	for _, size := range chunkSizes {
		t.Run(fmt.Sprintf("chunk_%d", size), func(t *testing.T) {
			var c Ctx
			c.Init()
			for off := 0; off < len(data); off += size {
				end := off + size
				if end > len(data) {
					end = len(data)
				}
				c.Update(data[off:end])
			}
			var sum [Size]byte
			c.Final(&sum)
			if sum != want {
				t.Errorf("chunked digest = %x, want %x", sum, want)
			}
		})
	}
}

// TestStreamingSplitPoints splits a two-and-a-bit-block input at every
// possible boundary, covering splits exactly on and straddling the 64-byte
// block edges.
func TestStreamingSplitPoints(t *testing.T) {
	data := make([]byte, 150)
	for i := range data {
		data[i] = byte(i)
	}
	want := Sum256(data)

	for i := 0; i <= len(data); i++ {
		var c Ctx
		c.Init()
		c.Update(data[:i])
		c.Update(data[i:])
		var sum [Size]byte
		c.Final(&sum)
		if sum != want {
			t.Fatalf("split at %d: digest = %x, want %x", i, sum, want)
		}
	}
}

func TestZeroLengthUpdates(t *testing.T) {
	var c Ctx
	c.Init()
	c.Update(nil)
	c.Update([]byte{})
	c.Update([]byte("ab"))
	c.Update(nil)
	c.Update([]byte("c"))
	c.Update([]byte{})
	var sum [Size]byte
	c.Final(&sum)
	if got := HexString(sum); got != abcHash {
		t.Errorf("digest with interleaved empty updates = %s, want %s", got, abcHash)
	}
}

func TestInitIdempotent(t *testing.T) {
	var c Ctx
	c.Init()
	c.Update([]byte("garbage that must not leak into the next message"))
	c.Init()
	c.Update([]byte("abc"))
	var sum [Size]byte
	c.Final(&sum)
	if got := HexString(sum); got != abcHash {
		t.Errorf("digest after re-Init = %s, want %s", got, abcHash)
	}
}

func TestReuseAfterFinal(t *testing.T) {
	var c Ctx
	c.Init()
	c.Update([]byte("first message"))
	var first [Size]byte
	c.Final(&first)

	c.Init()
	c.Update([]byte("abc"))
	var second [Size]byte
	c.Final(&second)
	if got := HexString(second); got != abcHash {
		t.Errorf("digest after Init following Final = %s, want %s", got, abcHash)
	}
}

func TestContextIsolation(t *testing.T) {
	var c1, c2 Ctx
	c1.Init()
	c2.Init()

	// Interleave updates so any shared state would cross-contaminate.
	c1.Update([]byte("a"))
	c2.Update([]byte("The quick brown fox "))
	c1.Update([]byte("b"))
	c2.Update([]byte("jumps over "))
	c1.Update([]byte("c"))
	c2.Update([]byte("the lazy dog"))

	var sum1, sum2 [Size]byte
	c1.Final(&sum1)
	c2.Final(&sum2)

	if got := HexString(sum1); got != abcHash {
		t.Errorf("interleaved context 1 = %s, want %s", got, abcHash)
	}
	if got := HexString(sum2); got != foxHash {
		t.Errorf("interleaved context 2 = %s, want %s", got, foxHash)
	}
}

func TestNoAllocations(t *testing.T) {
	data := make([]byte, 1024)
	var c Ctx
	var sum [Size]byte
	allocs := testing.AllocsPerRun(100, func() {
		c.Init()
		c.Update(data)
		c.Final(&sum)
	})
	if allocs != 0 {
		t.Errorf("Init/Update/Final allocated %v times per run, want 0", allocs)
	}
}

func TestFinalPanicsOnCorruptBuffer(t *testing.T) {
	var c Ctx
	c.Init()
	c.n = BlockSize // unreachable through the public API

	defer func() {
		if recover() == nil {
			t.Fatal("Final on a corrupted context did not panic")
		}
	}()
	var sum [Size]byte
	c.Final(&sum)
}

// TestCtxLayoutStable pins the field layout foreign callers allocate
// against (see the capi package).
func TestCtxLayoutStable(t *testing.T) {
	var c Ctx
	if off := unsafe.Offsetof(c.h); off != 0 {
		t.Errorf("offset of h = %d, want 0", off)
	}
	if off := unsafe.Offsetof(c.buf); off != 32 {
		t.Errorf("offset of buf = %d, want 32", off)
	}
	if off := unsafe.Offsetof(c.n); off != 96 {
		t.Errorf("offset of n = %d, want 96", off)
	}
	if size, end := unsafe.Sizeof(c), unsafe.Offsetof(c.bits)+8; size != end {
		t.Errorf("Ctx size = %d, want %d (bit counter must be the last field)", size, end)
	}
}
