// Package hashutil provides helpers for computing SHA-256 digests during
// I/O operations. All hashing goes through the sum256 sha256 package.
package hashutil

import (
	"hash"
	"io"
	"os"
	"strings"

	"github.com/sum256/sum256/sha256"
)

// HashingWriter wraps an io.Writer and hashes all data written through it.
type HashingWriter struct {
	w      io.Writer
	hasher hash.Hash
}

// NewHashingWriter creates a HashingWriter that writes to w while hashing.
func NewHashingWriter(w io.Writer) *HashingWriter {
	return &HashingWriter{
		w:      w,
		hasher: sha256.New(),
	}
}

// Write writes p to the underlying writer and updates the hash with the
// bytes actually written.
func (hw *HashingWriter) Write(p []byte) (int, error) {
	n, err := hw.w.Write(p)
	if n > 0 {
		hw.hasher.Write(p[:n])
	}
	return n, err
}

// Sum returns the hex-encoded digest of all data written so far. The
// writer remains usable afterwards.
func (hw *HashingWriter) Sum() string {
	return sumToHex(hw.hasher)
}

// HashingReader wraps an io.Reader and hashes all data read through it.
type HashingReader struct {
	r      io.Reader
	hasher hash.Hash
}

// NewHashingReader creates a HashingReader that reads from r while hashing.
func NewHashingReader(r io.Reader) *HashingReader {
	return &HashingReader{
		r:      r,
		hasher: sha256.New(),
	}
}

// Read reads from the underlying reader and updates the hash with the
// bytes actually read.
func (hr *HashingReader) Read(p []byte) (int, error) {
	n, err := hr.r.Read(p)
	if n > 0 {
		hr.hasher.Write(p[:n])
	}
	return n, err
}

// Sum returns the hex-encoded digest of all data read so far. The reader
// remains usable afterwards.
func (hr *HashingReader) Sum() string {
	return sumToHex(hr.hasher)
}

// HashReader consumes r and returns the hex-encoded digest of its contents.
func HashReader(r io.Reader) (string, error) {
	hasher := sha256.New()
	if _, err := io.Copy(hasher, r); err != nil {
		return "", err
	}
	return sumToHex(hasher), nil
}

// HashFile opens path and returns the hex-encoded digest of its contents.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	return HashReader(f)
}

// Verify consumes r and reports whether its digest matches expected.
// Comparison ignores case, since checksum manifests in the wild carry both
// forms.
func Verify(r io.Reader, expected string) (bool, error) {
	actual, err := HashReader(r)
	if err != nil {
		return false, err
	}
	return strings.EqualFold(actual, expected), nil
}

// HashBytes returns the hex-encoded digest of data.
func HashBytes(data []byte) string {
	return sha256.HexString(sha256.Sum256(data))
}

func sumToHex(h hash.Hash) string {
	var sum [sha256.Size]byte
	h.Sum(sum[:0])
	return sha256.HexString(sum)
}
