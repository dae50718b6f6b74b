package enrichment

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"reelmark/internal/config"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is the current schema version. Bump when the schema
// changes; existing databases must be recreated.
const schemaVersion = 1

// ErrSchemaMismatch indicates the database schema version does not match
// the version this binary expects.
var ErrSchemaMismatch = errors.New("schema version mismatch")

// Store manages enrichment record persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the enrichment database.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	return OpenPath(filepath.Join(cfg.Paths.DataDir, "enrichment.db"))
}

// OpenPath opens the database at an explicit path.
func OpenPath(dbPath string) (*Store, error) {
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
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) initSchema(ctx context.Context) error {
	var tableExists int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}

	if tableExists == 0 {
		return s.createSchema(ctx)
	}

	var version int
	err = s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version)
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: database has version %d, expected %d (delete %s to recreate)",
			ErrSchemaMismatch, version, schemaVersion, s.path)
	}
	return nil
}

func (s *Store) createSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL)"); err != nil {
		return fmt.Errorf("create schema_version: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema: %w", err)
	}
	return nil
}

// Create inserts a fresh pending record for a video.
func (s *Store) Create(ctx context.Context, videoID string) (*Record, error) {
	now := time.Now().UTC()
	timestamp := now.Format(time.RFC3339Nano)

	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO enrichment_records (video_id, status, created_at, updated_at)
         VALUES (?, ?, ?, ?)`,
		videoID,
		StatusPending,
		timestamp,
		timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert record: %w", err)
	}
	return s.GetByVideoID(ctx, videoID)
}

// GetByVideoID fetches the record owning a video id, or nil when absent.
func (s *Store) GetByVideoID(ctx context.Context, videoID string) (*Record, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+recordColumns+` FROM enrichment_records WHERE video_id = ?`, videoID)
	record, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get record: %w", err)
	}
	return record, nil
}

// GetOrCreate loads a video's record, creating a pending one when none
// exists yet.
func (s *Store) GetOrCreate(ctx context.Context, videoID string) (*Record, error) {
	record, err := s.GetByVideoID(ctx, videoID)
	if err != nil {
		return nil, err
	}
	if record != nil {
		return record, nil
	}
	return s.Create(ctx, videoID)
}

// Update persists changes to an existing record.
func (s *Store) Update(ctx context.Context, record *Record) error {
	if record == nil {
		return errors.New("record is nil")
	}
	record.UpdatedAt = time.Now().UTC()
	_, err := s.db.ExecContext(
		ctx,
		`UPDATE enrichment_records
         SET status = ?, captions_text = ?, captions_language = ?, captions_source = ?,
             transcript_text = ?, chapters_text = ?, chapters_json = ?, chapters_source = ?,
             error_message = ?, retry_count = ?, progress_message = ?, processed_at = ?,
             updated_at = ?
         WHERE id = ?`,
		record.Status,
		nullableString(record.CaptionsText),
		nullableString(record.CaptionsLanguage),
		nullableString(record.CaptionsSource),
		nullableString(record.TranscriptText),
		nullableString(record.ChaptersText),
		nullableString(record.ChaptersJSON),
		nullableString(record.ChaptersSource),
		nullableString(record.ErrorMessage),
		record.RetryCount,
		nullableString(record.ProgressMessage),
		nullableTime(record.ProcessedAt),
		record.UpdatedAt.Format(time.RFC3339Nano),
		record.ID,
	)
	if err != nil {
		return fmt.Errorf("update record: %w", err)
	}
	return nil
}

// List returns records filtered by status set, or every record when no
// status is provided, ordered by creation time.
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Record, error) {
	var (
		rows *sql.Rows
		err  error
	)

	baseQuery := `SELECT ` + recordColumns + ` FROM enrichment_records`
	orderClause := ` ORDER BY created_at`

	if len(statuses) == 0 {
		rows, err = s.db.QueryContext(ctx, baseQuery+orderClause)
	} else {
		placeholders := makePlaceholders(len(statuses))
		args := make([]any, len(statuses))
		for i, status := range statuses {
			args[i] = status
		}
		query := baseQuery + ` WHERE status IN (` + placeholders + `)` + orderClause
		rows, err = s.db.QueryContext(ctx, query, args...)
	}
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

// NextPending returns the oldest pending record, or nil when none waits.
func (s *Store) NextPending(ctx context.Context) (*Record, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+recordColumns+` FROM enrichment_records WHERE status = ? ORDER BY created_at LIMIT 1`,
		StatusPending)
	record, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("next pending: %w", err)
	}
	return record, nil
}

// ResetStuckProcessing returns records abandoned mid-flight (for example
// after a crash) back to pending.
func (s *Store) ResetStuckProcessing(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE enrichment_records
         SET status = ?, progress_message = NULL, updated_at = ?
         WHERE status = ?`,
		StatusPending,
		time.Now().UTC().Format(time.RFC3339Nano),
		StatusProcessing,
	)
	if err != nil {
		return 0, fmt.Errorf("reset stuck records: %w", err)
	}
	return res.RowsAffected()
}

// RetryFailed resets every failed record to pending so the worker picks
// them up again, and bumps their retry counts.
func (s *Store) RetryFailed(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE enrichment_records
         SET status = ?, error_message = NULL, progress_message = NULL,
             retry_count = retry_count + 1, updated_at = ?
         WHERE status = ?`,
		StatusPending,
		time.Now().UTC().Format(time.RFC3339Nano),
		StatusFailed,
	)
	if err != nil {
		return 0, fmt.Errorf("retry failed records: %w", err)
	}
	return res.RowsAffected()
}

// Stats aggregates record counts per status.
func (s *Store) Stats(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT status, COUNT(1) FROM enrichment_records GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("query stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[Status]int)
	for rows.Next() {
		var (
			statusStr string
			count     int
		)
		if err := rows.Scan(&statusStr, &count); err != nil {
			return nil, fmt.Errorf("scan stats: %w", err)
		}
		if status, ok := ParseStatus(statusStr); ok {
			stats[status] = count
		}
	}
	return stats, rows.Err()
}

const recordColumns = "id, video_id, status, captions_text, captions_language, captions_source, transcript_text, chapters_text, chapters_json, chapters_source, error_message, retry_count, progress_message, processed_at, created_at, updated_at"

func scanRecord(scanner interface{ Scan(dest ...any) error }) (*Record, error) {
	var (
		id               int64
		videoID          string
		statusStr        string
		captionsText     sql.NullString
		captionsLanguage sql.NullString
		captionsSource   sql.NullString
		transcriptText   sql.NullString
		chaptersText     sql.NullString
		chaptersJSON     sql.NullString
		chaptersSource   sql.NullString
		errorMessage     sql.NullString
		retryCount       sql.NullInt64
		progressMessage  sql.NullString
		processedRaw     sql.NullString
		createdRaw       sql.NullString
		updatedRaw       sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&videoID,
		&statusStr,
		&captionsText,
		&captionsLanguage,
		&captionsSource,
		&transcriptText,
		&chaptersText,
		&chaptersJSON,
		&chaptersSource,
		&errorMessage,
		&retryCount,
		&progressMessage,
		&processedRaw,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	record := &Record{
		ID:               id,
		VideoID:          videoID,
		Status:           Status(statusStr),
		CaptionsText:     captionsText.String,
		CaptionsLanguage: captionsLanguage.String,
		CaptionsSource:   captionsSource.String,
		TranscriptText:   transcriptText.String,
		ChaptersText:     chaptersText.String,
		ChaptersJSON:     chaptersJSON.String,
		ChaptersSource:   chaptersSource.String,
		ErrorMessage:     errorMessage.String,
		RetryCount:       int(retryCount.Int64),
		ProgressMessage:  progressMessage.String,
	}

	if processedRaw.Valid {
		if processed, err := parseTimeString(processedRaw.String); err == nil {
			record.ProcessedAt = &processed
		}
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		record.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		record.UpdatedAt = updated
	}
	return record, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableTime(value *time.Time) any {
	if value == nil {
		return nil
	}
	return value.UTC().Format(time.RFC3339Nano)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2-1)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}
