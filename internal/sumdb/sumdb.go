// Package sumdb stores known-good file checksums in a local SQLite database.
package sumdb

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

var ErrNotFound = errors.New("file not found in database")

// Record is one tracked file and its last known digest.
type Record struct {
	Path         string
	SHA256       string
	Size         int64
	ModTime      time.Time
	FirstSeen    time.Time
	LastVerified time.Time
	VerifyCount  int64
}

// Stats summarizes the database contents.
type Stats struct {
	Files        int64
	TotalBytes   int64
	UniqueHashes int64
	OldestSeen   time.Time
	LastVerified time.Time
}

// DB manages the checksum database file.
type DB struct {
	path   string
	db     *sql.DB
	mu     sync.RWMutex
	logger *zap.Logger
}

// New opens (creating if necessary) the database at the given path.
func New(path string, logger *zap.Logger) (*DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := createTables(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return &DB{
		path:   path,
		db:     db,
		logger: logger,
	}, nil
}

func createTables(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS files (
			path TEXT PRIMARY KEY,
			sha256 TEXT NOT NULL,
			size INTEGER NOT NULL,
			mod_time INTEGER NOT NULL,
			first_seen INTEGER NOT NULL,
			last_verified INTEGER NOT NULL,
			verify_count INTEGER DEFAULT 1
		);

		CREATE INDEX IF NOT EXISTS idx_files_sha256
		ON files(sha256);

		CREATE INDEX IF NOT EXISTS idx_files_last_verified
		ON files(last_verified);
	`)
	return err
}

// Record inserts or refreshes the entry for path. An existing entry keeps
// its first_seen timestamp and has its verify_count incremented.
func (d *DB) Record(path, sha256Hash string, size int64, modTime time.Time) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := time.Now().Unix()
	_, err := d.db.Exec(`
		INSERT INTO files (path, sha256, size, mod_time, first_seen, last_verified, verify_count)
		VALUES (?, ?, ?, ?, ?, ?, 1)
		ON CONFLICT(path) DO UPDATE SET
			sha256 = excluded.sha256,
			size = excluded.size,
			mod_time = excluded.mod_time,
			last_verified = excluded.last_verified,
			verify_count = files.verify_count + 1`,
		path, sha256Hash, size, modTime.Unix(), now, now)
	if err != nil {
		return fmt.Errorf("failed to record file: %w", err)
	}

	d.logger.Debug("Recorded file",
		zap.String("path", path),
		zap.String("hash", sha256Hash[:16]+"..."),
		zap.Int64("size", size))

	return nil
}

// Lookup returns the stored record for path.
func (d *DB) Lookup(path string) (*Record, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	rec := &Record{}
	var modTime, firstSeen, lastVerified int64
	err := d.db.QueryRow(`
		SELECT path, sha256, size, mod_time, first_seen, last_verified, verify_count
		FROM files WHERE path = ?`, path).Scan(
		&rec.Path, &rec.SHA256, &rec.Size,
		&modTime, &firstSeen, &lastVerified, &rec.VerifyCount)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}

	rec.ModTime = time.Unix(modTime, 0)
	rec.FirstSeen = time.Unix(firstSeen, 0)
	rec.LastVerified = time.Unix(lastVerified, 0)
	return rec, nil
}

// LookupByHash returns all records whose digest matches sha256Hash.
func (d *DB) LookupByHash(sha256Hash string) ([]*Record, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return d.queryRecords(`
		SELECT path, sha256, size, mod_time, first_seen, last_verified, verify_count
		FROM files
		WHERE sha256 = ?
		ORDER BY path`, sha256Hash)
}

// List returns all records ordered by path.
func (d *DB) List() ([]*Record, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return d.queryRecords(`
		SELECT path, sha256, size, mod_time, first_seen, last_verified, verify_count
		FROM files
		ORDER BY path`)
}

func (d *DB) queryRecords(query string, args ...interface{}) ([]*Record, error) {
	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		rec := &Record{}
		var modTime, firstSeen, lastVerified int64
		err := rows.Scan(
			&rec.Path, &rec.SHA256, &rec.Size,
			&modTime, &firstSeen, &lastVerified, &rec.VerifyCount)
		if err != nil {
			return nil, err
		}
		rec.ModTime = time.Unix(modTime, 0)
		rec.FirstSeen = time.Unix(firstSeen, 0)
		rec.LastVerified = time.Unix(lastVerified, 0)
		records = append(records, rec)
	}

	return records, rows.Err()
}

// Delete removes the record for path.
func (d *DB) Delete(path string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	_, err := d.db.Exec("DELETE FROM files WHERE path = ?", path)
	return err
}

// Prune removes records whose files no longer exist on disk.
func (d *DB) Prune() (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	rows, err := d.db.Query("SELECT path FROM files")
	if err != nil {
		return 0, err
	}

	var stale []string
	for rows.Next() {
		var path string
		if err := rows.Scan(&path); err != nil {
			rows.Close()
			return 0, err
		}
		if _, err := os.Stat(path); os.IsNotExist(err) {
			stale = append(stale, path)
		}
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return 0, err
	}
	rows.Close()

	for _, path := range stale {
		if _, err := d.db.Exec("DELETE FROM files WHERE path = ?", path); err != nil {
			return 0, err
		}
		d.logger.Debug("Pruned missing file", zap.String("path", path))
	}

	return len(stale), nil
}

// Stats returns summary statistics for the database.
func (d *DB) Stats() (*Stats, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	s := &Stats{}
	err := d.db.QueryRow(`
		SELECT COUNT(*), COALESCE(SUM(size), 0), COUNT(DISTINCT sha256)
		FROM files`).Scan(&s.Files, &s.TotalBytes, &s.UniqueHashes)
	if err != nil {
		return nil, err
	}

	if s.Files > 0 {
		var oldest, newest int64
		err = d.db.QueryRow(`
			SELECT MIN(first_seen), MAX(last_verified) FROM files`).Scan(&oldest, &newest)
		if err != nil {
			return nil, err
		}
		s.OldestSeen = time.Unix(oldest, 0)
		s.LastVerified = time.Unix(newest, 0)
	}

	return s, nil
}

// Count returns the number of tracked files.
func (d *DB) Count() int {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var count int
	d.db.QueryRow("SELECT COUNT(*) FROM files").Scan(&count)
	return count
}

// Clear removes all records.
func (d *DB) Clear() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	_, err := d.db.Exec("DELETE FROM files")
	if err != nil {
		return err
	}

	d.logger.Debug("Cleared database")
	return nil
}

// Path returns the database file path.
func (d *DB) Path() string {
	return d.path
}

// Close closes the underlying database.
func (d *DB) Close() error {
	return d.db.Close()
}
