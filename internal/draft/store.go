package draft

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

// ErrStoreUnavailable marks draft store failures as recoverable: the session
// continues with an empty draft set and the user is asked to retry.
var ErrStoreUnavailable = errors.New("draft store unavailable")

// File is one locally cached selection, held until server-side ingestion is
// confirmed or the user removes it.
type File struct {
	ID             string    `db:"id" json:"id"`
	Name           string    `db:"name" json:"name"`
	Size           int64     `db:"size" json:"size"`
	Type           string    `db:"type" json:"type"`
	DocumentTypeID string    `db:"document_type_id" json:"documentTypeId"`
	Tier           string    `db:"tier" json:"tier"`
	Timestamp      time.Time `db:"timestamp" json:"timestamp"`
	Payload        []byte    `db:"payload" json:"-"`
}

// Limits on what the store accepts. Mirrors the intake validation so a draft
// that made it into the store can always be submitted.
const (
	MinFileSize   = 1024
	MaxFileSize   = 50 * 1024 * 1024
	MaxDraftFiles = 30
)

var allowedMIMETypes = map[string]bool{
	"image/jpeg":         true,
	"application/pdf":    true,
	"application/msword": true,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": true,
	"application/vnd.ms-excel": true,
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": true,
}

// IStore is the local draft cache: a per-user persistent key-value store
// keyed by file id with a secondary timestamp index.
type IStore interface {
	Put(files []File) error
	Get(id string) (*File, error)
	List() ([]File, error)
	Remove(id string) error
	Clear() error
	Info() (count int, totalSize int64, err error)
	Close() error
}

// store implements IStore over a single-file SQLite database.
type store struct {
	db *sqlx.DB
}

const draftSchema = `
CREATE TABLE IF NOT EXISTS draft_files (
	id               TEXT PRIMARY KEY,
	name             TEXT NOT NULL,
	size             INTEGER NOT NULL,
	type             TEXT NOT NULL,
	document_type_id TEXT NOT NULL DEFAULT '',
	tier             TEXT NOT NULL DEFAULT 'Standard',
	timestamp        TIMESTAMP NOT NULL,
	payload          BLOB
);
CREATE INDEX IF NOT EXISTS idx_draft_files_timestamp ON draft_files(timestamp);
`

// Open opens (creating if needed) the draft store at path. Failure is
// recoverable: callers get an ErrStoreUnavailable wrap, not a fatal error.
func Open(path string) (IStore, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
	}

	db, err := sqlx.Connect("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(draftSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	return &store{db: db}, nil
}

// ValidateFile checks a draft against the intake limits.
func ValidateFile(f File) error {
	if f.ID == "" {
		return errors.New("draft file id is required")
	}
	if f.Size < MinFileSize || f.Size > MaxFileSize {
		return fmt.Errorf("file %s size out of range (1KB-50MB)", f.Name)
	}
	if !allowedMIMETypes[f.Type] {
		return fmt.Errorf("file %s has unsupported type %s", f.Name, f.Type)
	}
	return nil
}

// Put upserts files by id. Adding beyond MaxDraftFiles is rejected; files
// already present only replace themselves and never count twice.
func (s *store) Put(files []File) error {
	count, _, err := s.Info()
	if err != nil {
		return err
	}
	for _, f := range files {
		if err := ValidateFile(f); err != nil {
			return err
		}
	}

	tx, err := s.db.Beginx()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	defer tx.Rollback()

	for _, f := range files {
		var existing int
		if err := tx.Get(&existing, `SELECT COUNT(*) FROM draft_files WHERE id = ?`, f.ID); err != nil {
			return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		if existing == 0 {
			count++
			if count > MaxDraftFiles {
				return fmt.Errorf("draft limit of %d files reached", MaxDraftFiles)
			}
		}
		if f.Timestamp.IsZero() {
			f.Timestamp = time.Now().UTC()
		}
		_, err := tx.Exec(`
			INSERT INTO draft_files (id, name, size, type, document_type_id, tier, timestamp, payload)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				name = excluded.name,
				size = excluded.size,
				type = excluded.type,
				document_type_id = excluded.document_type_id,
				tier = excluded.tier,
				timestamp = excluded.timestamp,
				payload = excluded.payload`,
			f.ID, f.Name, f.Size, f.Type, f.DocumentTypeID, f.Tier, f.Timestamp, f.Payload)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// Get returns the draft with id, or nil when absent.
func (s *store) Get(id string) (*File, error) {
	var f File
	err := s.db.Get(&f, `SELECT * FROM draft_files WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return &f, nil
}

// List returns all drafts, most recent first.
func (s *store) List() ([]File, error) {
	files := []File{}
	err := s.db.Select(&files, `SELECT * FROM draft_files ORDER BY timestamp DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return files, nil
}

// Remove deletes one draft by id. Removing an absent id is a no-op.
func (s *store) Remove(id string) error {
	if _, err := s.db.Exec(`DELETE FROM draft_files WHERE id = ?`, id); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// Clear drops every draft. Only called after server-side ingestion
// is confirmed.
func (s *store) Clear() error {
	if _, err := s.db.Exec(`DELETE FROM draft_files`); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// Info reports draft count and total payload size.
func (s *store) Info() (int, int64, error) {
	var row struct {
		Count int           `db:"count"`
		Total sql.NullInt64 `db:"total"`
	}
	err := s.db.Get(&row, `SELECT COUNT(*) AS count, SUM(size) AS total FROM draft_files`)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return row.Count, row.Total.Int64, nil
}

func (s *store) Close() error {
	return s.db.Close()
}
