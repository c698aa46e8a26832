// Package sanitize provides utilities for sanitizing user-controlled data
// before logging to prevent log injection attacks.
package sanitize

import (
	"strings"
	"unicode"
)

const (
	// MaxLogStringLength is the maximum length for logged strings.
	// Longer strings are truncated with "..." suffix.
	MaxLogStringLength = 500
)

// String sanitizes a user-controlled string for safe logging.
// It replaces control characters (including newlines) with their
// escaped representations and truncates very long strings.
func String(s string) string {
	if len(s) == 0 {
		return s
	}

	// Pre-allocate with some extra space for escapes
	var b strings.Builder
	b.Grow(min(len(s)+32, MaxLogStringLength+16))

	for i, r := range s {
		if i >= MaxLogStringLength {
			b.WriteString("...")
			break
		}

		switch r {
		case '\n':
			b.WriteString("\\n")
		case '\r':
			b.WriteString("\\r")
		case '\t':
			b.WriteString("\\t")
		case '\\':
			b.WriteString("\\\\")
		default:
			if unicode.IsControl(r) {
				// Replace other control characters with escaped hex
				b.WriteString("\\x")
				b.WriteByte(hexChar(byte(r) >> 4))
				b.WriteByte(hexChar(byte(r) & 0x0f))
			} else {
				b.WriteRune(r)
			}
		}
	}

	return b.String()
}

// Path sanitizes a file path for safe logging.
// Scanned trees and checksum manifests can name files with anything the
// filesystem allows, including newlines.
func Path(path string) string {
	return String(path)
}

// Filename sanitizes a filename for safe logging.
func Filename(filename string) string {
	return String(filename)
}

// Digest sanitizes a claimed digest string for safe logging.
// Manifest entries can claim anything as a digest; a well-formed one is
// 64 hex characters, so longer claims are cut before the general cap.
func Digest(s string) string {
	const maxDigestLength = 80
	if len(s) > maxDigestLength {
		s = s[:maxDigestLength]
	}
	return String(s)
}

// Error sanitizes an error message for safe logging.
// Error messages often embed file paths and manifest fields.
func Error(err error) string {
	if err == nil {
		return ""
	}
	return String(err.Error())
}

func hexChar(b byte) byte {
	if b < 10 {
		return '0' + b
	}
	return 'a' + b - 10
}
