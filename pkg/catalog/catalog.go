// Package catalog keeps a local history of backup, restore and verify
// runs in a sqlite database next to the backups. The manifest inside
// each backup directory stays the source of truth; the catalog exists
// so `list` and retention decisions do not have to re-read every
// manifest on disk, and so failed runs that never produced a manifest
// still leave a trace.
package catalog

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// RunKind is the operation a record describes.
type RunKind string

const (
	RunBackup  RunKind = "backup"
	RunRestore RunKind = "restore"
	RunVerify  RunKind = "verify"
)

// Record is one row of run history.
type Record struct {
	ID         int64
	BackupID   string
	Kind       RunKind
	BackupType string
	Encrypted  bool
	Success    bool
	SizeBytes  int64
	Duration   time.Duration
	Detail     string
	StartedAt  time.Time
}

// Catalog wraps the sqlite handle.
type Catalog struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	backup_id TEXT NOT NULL,
	kind TEXT NOT NULL,
	backup_type TEXT NOT NULL DEFAULT '',
	encrypted INTEGER NOT NULL DEFAULT 0,
	success INTEGER NOT NULL,
	size_bytes INTEGER NOT NULL DEFAULT 0,
	duration_ms INTEGER NOT NULL DEFAULT 0,
	detail TEXT NOT NULL DEFAULT '',
	started_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_runs_backup_id ON runs (backup_id);
`

// Open opens or creates the catalog at path. Use ":memory:" in tests.
func Open(path string) (*Catalog, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening run catalog: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing run catalog: %w", err)
	}
	return &Catalog{db: db}, nil
}

func (c *Catalog) Close() error {
	return c.db.Close()
}

// Add appends one run record.
func (c *Catalog) Add(r Record) error {
	_, err := c.db.Exec(
		`INSERT INTO runs (backup_id, kind, backup_type, encrypted, success, size_bytes, duration_ms, detail, started_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.BackupID, string(r.Kind), r.BackupType, r.Encrypted, r.Success,
		r.SizeBytes, r.Duration.Milliseconds(), r.Detail,
		r.StartedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("recording run: %w", err)
	}
	return nil
}

// Recent returns up to limit records, newest first.
func (c *Catalog) Recent(limit int) ([]Record, error) {
	rows, err := c.db.Query(
		`SELECT id, backup_id, kind, backup_type, encrypted, success, size_bytes, duration_ms, detail, started_at
		 FROM runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("reading run history: %w", err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

// ForBackup returns every run that touched one backup ID, oldest first.
func (c *Catalog) ForBackup(backupID string) ([]Record, error) {
	rows, err := c.db.Query(
		`SELECT id, backup_id, kind, backup_type, encrypted, success, size_bytes, duration_ms, detail, started_at
		 FROM runs WHERE backup_id = ? ORDER BY id ASC`, backupID)
	if err != nil {
		return nil, fmt.Errorf("reading run history: %w", err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

// Forget drops all history for a backup ID. Called when prune removes
// the backup directory itself.
func (c *Catalog) Forget(backupID string) error {
	if _, err := c.db.Exec(`DELETE FROM runs WHERE backup_id = ?`, backupID); err != nil {
		return fmt.Errorf("forgetting %s: %w", backupID, err)
	}
	return nil
}

func scanRecords(rows *sql.Rows) ([]Record, error) {
	var records []Record
	for rows.Next() {
		var r Record
		var kind, startedAt string
		var durationMS int64
		if err := rows.Scan(&r.ID, &r.BackupID, &kind, &r.BackupType, &r.Encrypted,
			&r.Success, &r.SizeBytes, &durationMS, &r.Detail, &startedAt); err != nil {
			return nil, fmt.Errorf("scanning run record: %w", err)
		}
		r.Kind = RunKind(kind)
		r.Duration = time.Duration(durationMS) * time.Millisecond
		t, err := time.Parse(time.RFC3339, startedAt)
		if err != nil {
			return nil, fmt.Errorf("scanning run record: %w", err)
		}
		r.StartedAt = t
		records = append(records, r)
	}
	return records, rows.Err()
}
