// Package audit provides structured audit logging for integrity-sensitive operations
package audit

import (
	"time"
)

// EventType represents the type of audit event
type EventType string

const (
	// EventFileRecorded is logged when a file digest is stored for the first time
	EventFileRecorded EventType = "file_recorded"
	// EventFileVerified is logged when a file matches its known digest
	EventFileVerified EventType = "file_verified"
	// EventFileMismatch is logged when a file digest differs from the expected one
	EventFileMismatch EventType = "file_mismatch"
	// EventFileMissing is logged when a listed file cannot be found on disk
	EventFileMissing EventType = "file_missing"
	// EventCheckComplete is logged when a checksum list verification finishes
	EventCheckComplete EventType = "check_complete"
	// EventScanComplete is logged when a directory scan finishes
	EventScanComplete EventType = "scan_complete"
	// EventSelfTestComplete is logged when the implementation self-test finishes
	EventSelfTestComplete EventType = "selftest_complete"
	// EventDatabasePruned is logged when stale records are removed from the database
	EventDatabasePruned EventType = "database_pruned"
	// EventDatabaseCleared is logged when the database is emptied
	EventDatabaseCleared EventType = "database_cleared"
)

// Event represents a single audit log entry
type Event struct {
	// Timestamp when the event occurred (RFC3339 format in JSON)
	Timestamp time.Time `json:"timestamp"`

	// EventType identifies what happened
	EventType EventType `json:"event_type"`

	// Path is the file the event refers to
	Path string `json:"path,omitempty"`

	// Digest is the SHA-256 of the file (truncated in logs)
	Digest string `json:"digest,omitempty"`

	// Expected is the digest the file was supposed to have (truncated in logs)
	Expected string `json:"expected,omitempty"`

	// Size is the file size in bytes
	Size int64 `json:"size,omitempty"`

	// DurationMs is the operation duration in milliseconds
	DurationMs int64 `json:"duration_ms,omitempty"`

	// FilesTotal is the number of files processed by a batch operation
	FilesTotal int `json:"files_total,omitempty"`

	// FilesFailed is the number of files whose digests did not match
	FilesFailed int `json:"files_failed,omitempty"`

	// FilesMissing is the number of listed files absent from disk
	FilesMissing int `json:"files_missing,omitempty"`

	// BytesHashed is the total bytes digested by a batch operation
	BytesHashed int64 `json:"bytes_hashed,omitempty"`

	// RecordsRemoved is the number of database records removed
	RecordsRemoved int `json:"records_removed,omitempty"`

	// Error contains error details for failed events
	Error string `json:"error,omitempty"`

	// Reason provides additional context
	Reason string `json:"reason,omitempty"`

	// RunID correlates events belonging to one invocation
	RunID string `json:"run_id,omitempty"`
}

// WithRunID returns a copy of the event tagged with the given run ID
func (e Event) WithRunID(runID string) Event {
	e.RunID = runID
	return e
}

// NewFileRecordedEvent creates an event for a newly recorded file digest
func NewFileRecordedEvent(path, digest string, size int64) Event {
	return Event{
		Timestamp: time.Now(),
		EventType: EventFileRecorded,
		Path:      path,
		Digest:    truncateHash(digest),
		Size:      size,
	}
}

// NewFileVerifiedEvent creates an event for a file matching its known digest
func NewFileVerifiedEvent(path, digest string, size int64) Event {
	return Event{
		Timestamp: time.Now(),
		EventType: EventFileVerified,
		Path:      path,
		Digest:    truncateHash(digest),
		Size:      size,
	}
}

// NewFileMismatchEvent creates an event for a digest mismatch
func NewFileMismatchEvent(path, expected, actual string) Event {
	return Event{
		Timestamp: time.Now(),
		EventType: EventFileMismatch,
		Path:      path,
		Expected:  truncateHash(expected),
		Digest:    truncateHash(actual),
		Error:     "digest mismatch",
	}
}

// NewFileMissingEvent creates an event for a listed file absent from disk
func NewFileMissingEvent(path string) Event {
	return Event{
		Timestamp: time.Now(),
		EventType: EventFileMissing,
		Path:      path,
		Error:     "file missing",
	}
}

// NewCheckCompleteEvent creates an event for a finished checksum list verification
func NewCheckCompleteEvent(total, failed, missing int, durationMs int64) Event {
	return Event{
		Timestamp:    time.Now(),
		EventType:    EventCheckComplete,
		FilesTotal:   total,
		FilesFailed:  failed,
		FilesMissing: missing,
		DurationMs:   durationMs,
	}
}

// NewScanCompleteEvent creates an event for a finished directory scan
func NewScanCompleteEvent(total int, bytesHashed, durationMs int64) Event {
	return Event{
		Timestamp:   time.Now(),
		EventType:   EventScanComplete,
		FilesTotal:  total,
		BytesHashed: bytesHashed,
		DurationMs:  durationMs,
	}
}

// NewSelfTestCompleteEvent creates an event for a finished self-test run.
// The error string is empty when all cases passed.
func NewSelfTestCompleteEvent(cases int, durationMs int64, errStr string) Event {
	return Event{
		Timestamp:  time.Now(),
		EventType:  EventSelfTestComplete,
		FilesTotal: cases,
		DurationMs: durationMs,
		Error:      errStr,
	}
}

// NewDatabasePrunedEvent creates an event for removed stale records
func NewDatabasePrunedEvent(removed int) Event {
	return Event{
		Timestamp:      time.Now(),
		EventType:      EventDatabasePruned,
		RecordsRemoved: removed,
	}
}

// NewDatabaseClearedEvent creates an event for an emptied database
func NewDatabaseClearedEvent(removed int) Event {
	return Event{
		Timestamp:      time.Now(),
		EventType:      EventDatabaseCleared,
		RecordsRemoved: removed,
	}
}

// truncateHash returns first 16 chars of a digest for readability
func truncateHash(hash string) string {
	if len(hash) > 16 {
		return hash[:16]
	}
	return hash
}
