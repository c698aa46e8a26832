package sha256

import (
	"bytes"
	stdsha256 "crypto/sha256"
	"io"
	"strings"
	"testing"
)

func TestNewMatchesSum256(t *testing.T) {
	data := []byte("The quick brown fox jumps over the lazy dog")

	h := New()
	if _, err := h.Write(data); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	want := Sum256(data)
	if got := h.Sum(nil); !bytes.Equal(got, want[:]) {
		t.Errorf("New/Write/Sum = %x, want %x", got, want)
	}
}

func TestWriteNeverFails(t *testing.T) {
	h := New()
	for _, p := range [][]byte{nil, {}, []byte("x"), make([]byte, 1000)} {
		n, err := h.Write(p)
		if err != nil {
			t.Fatalf("Write(%d bytes) returned error: %v", len(p), err)
		}
		if n != len(p) {
			t.Errorf("Write(%d bytes) = %d, want %d", len(p), n, len(p))
		}
	}
}

// TestSumDoesNotConsume verifies the hash.Hash contract: Sum snapshots the
// digest so far and the hasher keeps accepting writes, unlike the raw Ctx.
func TestSumDoesNotConsume(t *testing.T) {
	h := New()
	io.WriteString(h, "ab")

	partial := Sum256([]byte("ab"))
	if got := h.Sum(nil); !bytes.Equal(got, partial[:]) {
		t.Fatalf("Sum after \"ab\" = %x, want %x", got, partial)
	}

	io.WriteString(h, "c")
	full := Sum256([]byte("abc"))
	if got := h.Sum(nil); !bytes.Equal(got, full[:]) {
		t.Errorf("Sum after continuing writes = %x, want %x", got, full)
	}
	if got := h.Sum(nil); !bytes.Equal(got, full[:]) {
		t.Errorf("second Sum differs: %x, want %x", got, full)
	}
}

func TestSumAppends(t *testing.T) {
	h := New()
	io.WriteString(h, "abc")

	prefix := []byte("digest:")
	out := h.Sum(prefix)
	if !bytes.HasPrefix(out, prefix) {
		t.Fatalf("Sum did not preserve prefix: %q", out)
	}
	if len(out) != len(prefix)+Size {
		t.Errorf("Sum output length = %d, want %d", len(out), len(prefix)+Size)
	}
	want := Sum256([]byte("abc"))
	if !bytes.Equal(out[len(prefix):], want[:]) {
		t.Errorf("appended digest = %x, want %x", out[len(prefix):], want)
	}
}

func TestReset(t *testing.T) {
	h := New()
	io.WriteString(h, "some stale input")
	h.Reset()
	io.WriteString(h, "abc")

	want := Sum256([]byte("abc"))
	if got := h.Sum(nil); !bytes.Equal(got, want[:]) {
		t.Errorf("Sum after Reset = %x, want %x", got, want)
	}
}

func TestSizeAndBlockSize(t *testing.T) {
	h := New()
	if h.Size() != Size {
		t.Errorf("Size() = %d, want %d", h.Size(), Size)
	}
	if h.BlockSize() != BlockSize {
		t.Errorf("BlockSize() = %d, want %d", h.BlockSize(), BlockSize)
	}
}

func TestNewViaCopy(t *testing.T) {
	// Large copy through io.Copy, checked against the standard library.
	data := strings.Repeat("sum256 ", 40000)

	h := New()
	if _, err := io.Copy(h, strings.NewReader(data)); err != nil {
		t.Fatalf("io.Copy failed: %v", err)
	}
	want := stdsha256.Sum256([]byte(data))
	if got := h.Sum(nil); !bytes.Equal(got, want[:]) {
		t.Errorf("io.Copy digest = %x, want %x", got, want)
	}
}
