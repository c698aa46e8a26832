package sha256

import (
	"bytes"
	"encoding/hex"
	"testing"
)

func TestHexStringKnownVector(t *testing.T) {
	sum := Sum256([]byte("abc"))
	if got := HexString(sum); got != abcHash {
		t.Errorf("HexString = %s, want %s", got, abcHash)
	}
}

func TestHexMatchesEncodingHex(t *testing.T) {
	for _, input := range []string{"", "abc", "hello world", "The quick brown fox jumps over the lazy dog"} {
		sum := Sum256([]byte(input))
		want := hex.EncodeToString(sum[:])
		if got := HexString(sum); got != want {
			t.Errorf("HexString(%q digest) = %s, want %s", input, got, want)
		}
	}
}

func TestHexIdempotent(t *testing.T) {
	sum := Sum256([]byte("idempotence"))
	first := HexString(sum)
	second := HexString(sum)
	if first != second {
		t.Errorf("repeated encodings differ: %s vs %s", first, second)
	}
	if len(first) != HexSize {
		t.Errorf("encoding length = %d, want %d", len(first), HexSize)
	}
}

func TestHexCharset(t *testing.T) {
	sum := Sum256([]byte{0x00, 0xff, 0x7f, 0x80})
	for i, ch := range HexString(sum) {
		if (ch < '0' || ch > '9') && (ch < 'a' || ch > 'f') {
			t.Errorf("character %d = %q, want lowercase hex digit", i, ch)
		}
	}
}

func TestAppendHex(t *testing.T) {
	sum := Sum256([]byte("abc"))

	if got := string(AppendHex(nil, sum)); got != abcHash {
		t.Errorf("AppendHex(nil) = %s, want %s", got, abcHash)
	}

	prefix := []byte("sha256:")
	out := AppendHex(prefix, sum)
	if !bytes.HasPrefix(out, []byte("sha256:")) {
		t.Fatalf("AppendHex lost prefix: %q", out)
	}
	if string(out) != "sha256:"+abcHash {
		t.Errorf("AppendHex with prefix = %s, want sha256:%s", out, abcHash)
	}
}

func TestAppendHexNoRealloc(t *testing.T) {
	sum := Sum256([]byte("abc"))
	dst := make([]byte, 0, HexSize)
	out := AppendHex(dst, sum)
	if &out[0] != &dst[:1][0] {
		t.Error("AppendHex reallocated despite sufficient capacity")
	}
}

func TestEncodeHex(t *testing.T) {
	sum := Sum256([]byte("abc"))
	var buf [HexSize]byte
	EncodeHex(buf[:], sum)
	if string(buf[:]) != abcHash {
		t.Errorf("EncodeHex = %s, want %s", buf, abcHash)
	}
}

func TestEncodeHexShortBufferPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("EncodeHex into a short buffer did not panic")
		}
	}()
	var sum [Size]byte
	EncodeHex(make([]byte, HexSize-1), sum)
}
