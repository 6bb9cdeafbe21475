package history

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"chordscout/internal/config"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is tracked via sqlite's user_version pragma. A single-table
// ledger does not need a migration chain; a version bump means the database
// gets cleared and recreated.
const schemaVersion = 1

// ErrSchemaMismatch indicates the database was written by an incompatible
// chordscout version.
var ErrSchemaMismatch = errors.New("schema version mismatch")

// Store persists the job ledger in SQLite. The analysis service keeps jobs in
// memory only; this store is the client's durable record of past runs.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the history database under the state
// directory and ensures the schema is current.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := filepath.Join(cfg.Paths.StateDir, "history.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.ensureSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// ensureSchema creates the ledger table on a fresh database and rejects
// databases written at any other version.
func (s *Store) ensureSchema(ctx context.Context) error {
	var version int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version == schemaVersion {
		return nil
	}
	if version != 0 {
		return fmt.Errorf("%w: database has version %d, expected %d (run 'chordscout jobs clear' or delete %s)",
			ErrSchemaMismatch, version, schemaVersion, s.path)
	}

	if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", schemaVersion)); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	return nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// NewJob inserts a freshly submitted job.
func (s *Store) NewJob(ctx context.Context, jobID, sourceURL, videoID string) (*Record, error) {
	now := time.Now().UTC()
	timestamp := now.Format(time.RFC3339Nano)

	res, err := s.db.ExecContext(
		ctx,
		`INSERT INTO jobs (
            job_id, source_url, video_id, state, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?)`,
		jobID,
		sourceURL,
		videoID,
		"processing",
		timestamp,
		timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert job: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("read insert id: %w", err)
	}

	return &Record{
		ID:        id,
		JobID:     jobID,
		SourceURL: sourceURL,
		VideoID:   videoID,
		State:     "processing",
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Update writes the record's mutable fields back and refreshes updated_at.
func (s *Store) Update(ctx context.Context, record *Record) error {
	if record == nil || record.ID == 0 {
		return fmt.Errorf("update job: record has no id")
	}
	record.UpdatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(
		ctx,
		`UPDATE jobs SET
            state = ?,
            segment_start = ?,
            segment_end = ?,
            has_segment = ?,
            analysis_json = ?,
            error_message = ?,
            updated_at = ?
        WHERE id = ?`,
		record.State,
		record.SegmentStart,
		record.SegmentEnd,
		boolToInt(record.HasSegment),
		nullableString(record.AnalysisJSON),
		nullableString(record.ErrorMessage),
		record.UpdatedAt.Format(time.RFC3339Nano),
		record.ID,
	)
	if err != nil {
		return fmt.Errorf("update job %s: %w", record.JobID, err)
	}
	return nil
}

// GetByJobID returns the most recent record for a service job id, or nil when
// none exists.
func (s *Store) GetByJobID(ctx context.Context, jobID string) (*Record, error) {
	row := s.db.QueryRowContext(ctx, selectColumns+" FROM jobs WHERE job_id = ? ORDER BY id DESC LIMIT 1", jobID)
	record, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get job %s: %w", jobID, err)
	}
	return record, nil
}

// List returns records newest first, up to limit (all records when limit <= 0).
func (s *Store) List(ctx context.Context, limit int) ([]*Record, error) {
	query := selectColumns + " FROM jobs ORDER BY id DESC"
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	return records, nil
}

// Clear removes every record.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM jobs")
	if err != nil {
		return 0, fmt.Errorf("clear jobs: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("clear jobs: %w", err)
	}
	return affected, nil
}

const selectColumns = `SELECT
    id, job_id, source_url, video_id, state,
    segment_start, segment_end, has_segment,
    analysis_json, error_message, created_at, updated_at`

type scannable interface {
	Scan(dest ...any) error
}

func scanRecord(row scannable) (*Record, error) {
	var (
		record       Record
		hasSegment   int
		analysisJSON sql.NullString
		errorMessage sql.NullString
		createdAt    string
		updatedAt    string
	)
	err := row.Scan(
		&record.ID,
		&record.JobID,
		&record.SourceURL,
		&record.VideoID,
		&record.State,
		&record.SegmentStart,
		&record.SegmentEnd,
		&hasSegment,
		&analysisJSON,
		&errorMessage,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}
	record.HasSegment = hasSegment != 0
	record.AnalysisJSON = analysisJSON.String
	record.ErrorMessage = errorMessage.String
	record.CreatedAt = parseTimestamp(createdAt)
	record.UpdatedAt = parseTimestamp(updatedAt)
	return &record, nil
}

func parseTimestamp(value string) time.Time {
	parsed, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}
	}
	return parsed
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}
