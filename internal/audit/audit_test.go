package audit

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestEventCreation(t *testing.T) {
	digest := "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"

	t.Run("NewFileRecordedEvent", func(t *testing.T) {
		event := NewFileRecordedEvent("/data/file.bin", digest, 1024000)

		if event.EventType != EventFileRecorded {
			t.Errorf("expected EventFileRecorded, got %s", event.EventType)
		}
		if event.Path != "/data/file.bin" {
			t.Errorf("expected /data/file.bin, got %s", event.Path)
		}
		if event.Digest != "ba7816bf8f01cfea" {
			t.Errorf("expected truncated digest, got %s", event.Digest)
		}
		if event.Size != 1024000 {
			t.Errorf("expected 1024000, got %d", event.Size)
		}
		if event.Timestamp.IsZero() {
			t.Error("timestamp should not be zero")
		}
	})

	t.Run("NewFileVerifiedEvent", func(t *testing.T) {
		event := NewFileVerifiedEvent("/data/file.bin", digest, 512)

		if event.EventType != EventFileVerified {
			t.Errorf("expected EventFileVerified, got %s", event.EventType)
		}
		if event.Digest != "ba7816bf8f01cfea" {
			t.Errorf("expected truncated digest, got %s", event.Digest)
		}
	})

	t.Run("NewFileMismatchEvent", func(t *testing.T) {
		actual := "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824"
		event := NewFileMismatchEvent("/data/bad.bin", digest, actual)

		if event.EventType != EventFileMismatch {
			t.Errorf("expected EventFileMismatch, got %s", event.EventType)
		}
		if event.Expected != "ba7816bf8f01cfea" {
			t.Errorf("expected truncated expected digest, got %s", event.Expected)
		}
		if event.Digest != "2cf24dba5fb0a30e" {
			t.Errorf("expected truncated actual digest, got %s", event.Digest)
		}
		if event.Error != "digest mismatch" {
			t.Errorf("expected 'digest mismatch', got %s", event.Error)
		}
	})

	t.Run("NewFileMissingEvent", func(t *testing.T) {
		event := NewFileMissingEvent("/data/gone.bin")

		if event.EventType != EventFileMissing {
			t.Errorf("expected EventFileMissing, got %s", event.EventType)
		}
		if event.Error != "file missing" {
			t.Errorf("expected 'file missing', got %s", event.Error)
		}
	})

	t.Run("NewCheckCompleteEvent", func(t *testing.T) {
		event := NewCheckCompleteEvent(100, 2, 1, 1500)

		if event.EventType != EventCheckComplete {
			t.Errorf("expected EventCheckComplete, got %s", event.EventType)
		}
		if event.FilesTotal != 100 {
			t.Errorf("expected 100, got %d", event.FilesTotal)
		}
		if event.FilesFailed != 2 {
			t.Errorf("expected 2, got %d", event.FilesFailed)
		}
		if event.FilesMissing != 1 {
			t.Errorf("expected 1, got %d", event.FilesMissing)
		}
		if event.DurationMs != 1500 {
			t.Errorf("expected 1500, got %d", event.DurationMs)
		}
	})

	t.Run("NewScanCompleteEvent", func(t *testing.T) {
		event := NewScanCompleteEvent(50, 1024*1024, 3000)

		if event.EventType != EventScanComplete {
			t.Errorf("expected EventScanComplete, got %s", event.EventType)
		}
		if event.BytesHashed != 1024*1024 {
			t.Errorf("expected 1048576, got %d", event.BytesHashed)
		}
	})

	t.Run("NewSelfTestCompleteEvent", func(t *testing.T) {
		event := NewSelfTestCompleteEvent(12, 250, "")

		if event.EventType != EventSelfTestComplete {
			t.Errorf("expected EventSelfTestComplete, got %s", event.EventType)
		}
		if event.FilesTotal != 12 {
			t.Errorf("expected 12, got %d", event.FilesTotal)
		}
		if event.Error != "" {
			t.Errorf("expected empty error, got %s", event.Error)
		}
	})

	t.Run("NewDatabasePrunedEvent", func(t *testing.T) {
		event := NewDatabasePrunedEvent(7)

		if event.EventType != EventDatabasePruned {
			t.Errorf("expected EventDatabasePruned, got %s", event.EventType)
		}
		if event.RecordsRemoved != 7 {
			t.Errorf("expected 7, got %d", event.RecordsRemoved)
		}
	})
}

func TestTruncateHash(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"abcdef1234567890abcdef1234567890", "abcdef1234567890"},
		{"short", "short"},
		{"exactly16chars!!", "exactly16chars!!"},
		{"", ""},
	}

	for _, tt := range tests {
		result := truncateHash(tt.input)
		if result != tt.expected {
			t.Errorf("truncateHash(%q) = %q, expected %q", tt.input, result, tt.expected)
		}
	}
}

func TestNoopLogger(t *testing.T) {
	logger := &NoopLogger{}

	// Should not panic
	logger.Log(Event{EventType: EventFileVerified})

	if err := logger.Close(); err != nil {
		t.Errorf("NoopLogger.Close() returned error: %v", err)
	}
}

func TestJSONWriter(t *testing.T) {
	t.Run("CreateAndLog", func(t *testing.T) {
		tmpDir := t.TempDir()
		logPath := filepath.Join(tmpDir, "audit.json")

		writer, err := NewJSONWriter(JSONWriterConfig{
			Path:       logPath,
			MaxSizeMB:  1,
			MaxBackups: 3,
		})
		if err != nil {
			t.Fatalf("failed to create JSONWriter: %v", err)
		}
		defer writer.Close()

		writer.Log(NewFileRecordedEvent("/data/a.bin", "hash1", 1000))
		writer.Log(NewFileVerifiedEvent("/data/b.bin", "hash2", 2000))
		writer.Log(NewFileMismatchEvent("/data/c.bin", "hash3", "hash4"))

		if err := writer.Close(); err != nil {
			t.Fatalf("failed to close writer: %v", err)
		}

		data, err := os.ReadFile(logPath)
		if err != nil {
			t.Fatalf("failed to read log file: %v", err)
		}

		lines := strings.Split(strings.TrimSpace(string(data)), "\n")
		if len(lines) != 3 {
			t.Errorf("expected 3 lines, got %d", len(lines))
		}

		var event Event
		if err := json.Unmarshal([]byte(lines[0]), &event); err != nil {
			t.Fatalf("failed to parse first event: %v", err)
		}
		if event.EventType != EventFileRecorded {
			t.Errorf("expected EventFileRecorded, got %s", event.EventType)
		}
	})

	t.Run("CreateDirectory", func(t *testing.T) {
		tmpDir := t.TempDir()
		logPath := filepath.Join(tmpDir, "subdir", "nested", "audit.json")

		writer, err := NewJSONWriter(JSONWriterConfig{Path: logPath})
		if err != nil {
			t.Fatalf("failed to create JSONWriter with nested path: %v", err)
		}
		defer writer.Close()

		if _, err := os.Stat(filepath.Dir(logPath)); os.IsNotExist(err) {
			t.Error("directory was not created")
		}
	})

	t.Run("EmptyPathError", func(t *testing.T) {
		_, err := NewJSONWriter(JSONWriterConfig{Path: ""})
		if err == nil {
			t.Error("expected error for empty path")
		}
	})

	t.Run("Rotation", func(t *testing.T) {
		tmpDir := t.TempDir()
		logPath := filepath.Join(tmpDir, "audit.json")

		writer, err := NewJSONWriter(JSONWriterConfig{
			Path:       logPath,
			MaxBackups: 2,
		})
		if err != nil {
			t.Fatalf("failed to create JSONWriter: %v", err)
		}

		// Override maxBytes for testing
		writer.maxBytes = 500

		for i := 0; i < 20; i++ {
			writer.Log(NewFileRecordedEvent(
				"/data/some/long/path/package.bin",
				"ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad",
				int64(i*1000),
			))
		}

		if err := writer.Close(); err != nil {
			t.Fatalf("failed to close writer: %v", err)
		}

		if _, err := os.Stat(logPath + ".1"); os.IsNotExist(err) {
			t.Error("expected rotated backup audit.json.1 to exist")
		}
	})

	t.Run("FilePermissions", func(t *testing.T) {
		tmpDir := t.TempDir()
		logPath := filepath.Join(tmpDir, "audit.json")

		writer, err := NewJSONWriter(JSONWriterConfig{Path: logPath})
		if err != nil {
			t.Fatalf("failed to create JSONWriter: %v", err)
		}
		writer.Log(Event{Timestamp: time.Now(), EventType: EventFileVerified})
		writer.Close()

		info, err := os.Stat(logPath)
		if err != nil {
			t.Fatalf("failed to stat log file: %v", err)
		}

		mode := info.Mode().Perm()
		if mode&0077 != 0 {
			t.Logf("Note: file permissions %o may include group/other bits on some systems", mode)
		}
	})
}

func TestJSONWriterConcurrency(t *testing.T) {
	tmpDir := t.TempDir()
	logPath := filepath.Join(tmpDir, "audit.json")

	writer, err := NewJSONWriter(JSONWriterConfig{
		Path:       logPath,
		MaxSizeMB:  10,
		MaxBackups: 3,
	})
	if err != nil {
		t.Fatalf("failed to create JSONWriter: %v", err)
	}
	defer writer.Close()

	done := make(chan bool)
	for i := 0; i < 10; i++ {
		go func(id int) {
			for j := 0; j < 100; j++ {
				writer.Log(NewFileVerifiedEvent("/data/file.bin", "hash", int64(id*100+j)))
			}
			done <- true
		}(i)
	}

	for i := 0; i < 10; i++ {
		<-done
	}
}

func TestEventJSONSerialization(t *testing.T) {
	event := Event{
		Timestamp:  time.Date(2026, 1, 15, 10, 30, 0, 0, time.UTC),
		EventType:  EventFileMismatch,
		Path:       "/data/file.bin",
		Expected:   "ba7816bf8f01cfea",
		Digest:     "2cf24dba5fb0a30e",
		DurationMs: 250,
		Error:      "digest mismatch",
	}

	data, err := json.Marshal(event)
	if err != nil {
		t.Fatalf("failed to marshal event: %v", err)
	}

	jsonStr := string(data)
	expectedFields := []string{
		`"event_type":"file_mismatch"`,
		`"path":"/data/file.bin"`,
		`"expected":"ba7816bf8f01cfea"`,
		`"digest":"2cf24dba5fb0a30e"`,
		`"duration_ms":250`,
		`"error":"digest mismatch"`,
	}

	for _, field := range expectedFields {
		if !strings.Contains(jsonStr, field) {
			t.Errorf("JSON missing expected field: %s\nGot: %s", field, jsonStr)
		}
	}

	// Verify empty fields are omitted
	if strings.Contains(jsonStr, `"size"`) {
		t.Error("JSON should omit zero size field")
	}
	if strings.Contains(jsonStr, `"run_id"`) {
		t.Error("JSON should omit empty run_id field")
	}
}

func TestEvent_WithRunID(t *testing.T) {
	t.Run("adds run ID to event", func(t *testing.T) {
		event := NewFileVerifiedEvent("/data/file.bin", "abcdef1234567890", 1024)
		runID := "0123456789abcdef01234567"

		eventWithID := event.WithRunID(runID)

		if eventWithID.RunID != runID {
			t.Errorf("WithRunID() = %q, want %q", eventWithID.RunID, runID)
		}

		// Original event should be unchanged
		if event.RunID != "" {
			t.Error("original event should not be modified")
		}
	})

	t.Run("chains with event constructors", func(t *testing.T) {
		runID := "0123456789abcdef01234567"
		event := NewCheckCompleteEvent(10, 0, 0, 100).WithRunID(runID)

		if event.RunID != runID {
			t.Errorf("chained WithRunID() = %q, want %q", event.RunID, runID)
		}
		if event.EventType != EventCheckComplete {
			t.Errorf("EventType = %q, want %q", event.EventType, EventCheckComplete)
		}
	})

	t.Run("serializes to JSON with run_id", func(t *testing.T) {
		runID := "0123456789abcdef01234567"
		event := NewFileVerifiedEvent("/data/file.bin", "hash", 1024).WithRunID(runID)

		data, err := json.Marshal(event)
		if err != nil {
			t.Fatalf("failed to marshal: %v", err)
		}

		expected := `"run_id":"0123456789abcdef01234567"`
		if !strings.Contains(string(data), expected) {
			t.Errorf("JSON missing run_id field: %s", string(data))
		}
	})
}
