// Package manifest reads and writes SHA-256 checksum manifests in the two
// formats found in the wild: GNU coreutils sha256sum lines and BSD-style
// "SHA256 (name) = hex" tags. Compressed manifests (.gz, .xz) decompress
// transparently on load.
package manifest

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/ulikunitz/xz"
	"go.uber.org/zap"
)

// Entry is a single checksum line: a digest and the file name it covers.
type Entry struct {
	Path   string
	SHA256 string
	Binary bool // GNU '*' marker; informational only on POSIX systems
}

// Manifest holds parsed checksum entries, preserving file order and
// offering lookup by name. Safe for concurrent readers.
type Manifest struct {
	entries []Entry
	byPath  map[string]int // index into entries; last occurrence wins
	mu      sync.RWMutex
	logger  *zap.Logger
}

// New creates an empty Manifest.
func New(logger *zap.Logger) *Manifest {
	return &Manifest{
		byPath: make(map[string]int),
		logger: logger,
	}
}

// LoadFromFile loads and parses a checksum manifest. Files ending in .gz or
// .xz are decompressed while reading.
func (m *Manifest) LoadFromFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	var reader io.Reader = f

	if strings.HasSuffix(path, ".gz") {
		gzReader, err := gzip.NewReader(f)
		if err != nil {
			return fmt.Errorf("failed to create gzip reader: %w", err)
		}
		defer gzReader.Close()
		reader = gzReader
	} else if strings.HasSuffix(path, ".xz") {
		xzReader, err := xz.NewReader(f)
		if err != nil {
			return fmt.Errorf("failed to create xz reader: %w", err)
		}
		reader = xzReader
	}

	return m.LoadFromReader(reader)
}

// LoadFromReader parses an uncompressed manifest from r, appending to any
// entries already loaded.
func (m *Manifest) LoadFromReader(r io.Reader) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	scanner := bufio.NewScanner(r)
	// Raise the line limit; manifests may carry long escaped names.
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024)

	count := 0
	lineNo := 0

	for scanner.Scan() {
		lineNo++
		line := strings.TrimSuffix(scanner.Text(), "\r")

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		entry, err := ParseLine(line)
		if err != nil {
			return fmt.Errorf("line %d: %w", lineNo, err)
		}

		m.byPath[entry.Path] = len(m.entries)
		m.entries = append(m.entries, entry)
		count++
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scanner error: %w", err)
	}

	if m.logger != nil {
		m.logger.Debug("Parsed checksum manifest", zap.Int("entries", count))
	}
	return nil
}

// ParseLine parses one checksum line in either GNU or BSD format.
func ParseLine(line string) (Entry, error) {
	if strings.HasPrefix(line, "SHA256 (") {
		return parseBSDLine(line)
	}
	return parseGNULine(line)
}

// parseGNULine handles "<hex>  <name>" and "<hex> *<name>", plus the GNU
// escape convention: a leading backslash marks a name whose newlines and
// backslashes are escaped.
func parseGNULine(line string) (Entry, error) {
	escaped := strings.HasPrefix(line, "\\")
	if escaped {
		line = line[1:]
	}

	// 64 hex digits, one space, one type marker, at least one name byte.
	if len(line) < 64+2+1 {
		return Entry{}, fmt.Errorf("checksum line too short (%d bytes)", len(line))
	}

	digest := line[:64]
	if !isHexDigest(digest) {
		return Entry{}, fmt.Errorf("malformed digest %q", digest)
	}

	if line[64] != ' ' {
		return Entry{}, fmt.Errorf("missing separator after digest")
	}

	var binary bool
	switch line[65] {
	case ' ':
	case '*':
		binary = true
	default:
		return Entry{}, fmt.Errorf("unknown type marker %q", line[65])
	}

	name := line[66:]
	if escaped {
		name = unescapeName(name)
	}

	return Entry{
		Path:   name,
		SHA256: strings.ToLower(digest),
		Binary: binary,
	}, nil
}

// parseBSDLine handles "SHA256 (<name>) = <hex>".
func parseBSDLine(line string) (Entry, error) {
	rest := strings.TrimPrefix(line, "SHA256 (")
	idx := strings.LastIndex(rest, ") = ")
	if idx == -1 {
		return Entry{}, fmt.Errorf("malformed BSD checksum line")
	}

	name := rest[:idx]
	if name == "" {
		return Entry{}, fmt.Errorf("empty name in BSD checksum line")
	}
	digest := rest[idx+len(") = "):]
	if !isHexDigest(digest) {
		return Entry{}, fmt.Errorf("malformed digest %q", digest)
	}

	return Entry{
		Path:   name,
		SHA256: strings.ToLower(digest),
	}, nil
}

// Lookup returns the entry for the given name, if present. When a name
// appears on multiple lines the last one wins.
func (m *Manifest) Lookup(path string) (Entry, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	i, ok := m.byPath[path]
	if !ok {
		return Entry{}, false
	}
	return m.entries[i], true
}

// Entries returns all entries in file order.
func (m *Manifest) Entries() []Entry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Entry, len(m.entries))
	copy(out, m.entries)
	return out
}

// Count returns the number of parsed entries.
func (m *Manifest) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Clear removes all entries.
func (m *Manifest) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = nil
	m.byPath = make(map[string]int)
}

// Write renders entries as GNU sha256sum lines, one per entry.
func Write(w io.Writer, entries []Entry) error {
	bw := bufio.NewWriter(w)
	for _, e := range entries {
		if _, err := bw.WriteString(FormatLine(e) + "\n"); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// FormatLine renders one entry as a GNU sha256sum line, applying the escape
// convention when the name requires it.
func FormatLine(e Entry) string {
	marker := "  "
	if e.Binary {
		marker = " *"
	}

	name, escaped := escapeName(e.Path)
	line := strings.ToLower(e.SHA256) + marker + name
	if escaped {
		return "\\" + line
	}
	return line
}

// FormatBSDLine renders one entry as a BSD-style "SHA256 (name) = hex" line.
func FormatBSDLine(e Entry) string {
	return "SHA256 (" + e.Path + ") = " + strings.ToLower(e.SHA256)
}

// ResolvePath resolves a manifest-supplied name against the directory the
// manifest lives in, rejecting absolute names and names that escape it.
// Manifest contents are untrusted input.
func ResolvePath(baseDir, name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("empty name in manifest")
	}
	if filepath.IsAbs(name) {
		return "", fmt.Errorf("absolute path %q not allowed in manifest", name)
	}
	clean := filepath.Clean(name)
	if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path %q escapes the manifest directory", name)
	}
	return filepath.Join(baseDir, clean), nil
}

func isHexDigest(s string) bool {
	if len(s) != 64 {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') && (c < 'A' || c > 'F') {
			return false
		}
	}
	return true
}

func escapeName(name string) (string, bool) {
	if !strings.ContainsAny(name, "\\\n") {
		return name, false
	}
	var b strings.Builder
	for i := 0; i < len(name); i++ {
		switch name[i] {
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		default:
			b.WriteByte(name[i])
		}
	}
	return b.String(), true
}

func unescapeName(name string) string {
	var b strings.Builder
	for i := 0; i < len(name); i++ {
		if name[i] == '\\' && i+1 < len(name) {
			switch name[i+1] {
			case '\\':
				b.WriteByte('\\')
				i++
				continue
			case 'n':
				b.WriteByte('\n')
				i++
				continue
			}
		}
		b.WriteByte(name[i])
	}
	return b.String()
}
