package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"quire/internal/job"
)

// Record is one persisted variant build.
type Record struct {
	ID           int64
	RunID        string
	Variant      string
	Status       string
	StartedAt    time.Time
	FinishedAt   time.Time
	Duration     time.Duration
	OutputPath   string
	OutputSHA256 string
	Title        string
	Author       string
	Rights       string
	FailedStage  string
	FailureKind  string
	ErrorMessage string
}

// FromJob snapshots j. kind is services.FailureKind of the run error and sha
// the digest of the final EPUB, both empty while running.
func FromJob(j *job.Job, kind, sha string) Record {
	return Record{
		RunID:        j.RunID,
		Variant:      string(j.Variant),
		Status:       string(j.Status),
		StartedAt:    j.StartedAt,
		FinishedAt:   j.FinishedAt,
		Duration:     j.Duration(),
		OutputPath:   j.FinalPath,
		OutputSHA256: sha,
		Title:        j.Metadata.Title,
		Author:       j.Metadata.Author,
		Rights:       j.Metadata.Rights,
		FailedStage:  j.FailedStage,
		FailureKind:  kind,
		ErrorMessage: j.ErrorMessage,
	}
}

// Save inserts rec, or replaces the row with the same run id and variant.
func (s *Store) Save(ctx context.Context, rec Record) error {
	if rec.RunID == "" || rec.Variant == "" {
		return errors.New("record requires run id and variant")
	}
	if rec.StartedAt.IsZero() {
		rec.StartedAt = time.Now()
	}
	err := s.exec(ctx,
		`INSERT INTO builds (
            run_id, variant, status, started_at, finished_at, duration_ms,
            output_path, output_sha256, title, author, rights,
            failed_stage, failure_kind, error_message
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT (run_id, variant) DO UPDATE SET
            status = excluded.status,
            finished_at = excluded.finished_at,
            duration_ms = excluded.duration_ms,
            output_path = excluded.output_path,
            output_sha256 = excluded.output_sha256,
            title = excluded.title,
            author = excluded.author,
            rights = excluded.rights,
            failed_stage = excluded.failed_stage,
            failure_kind = excluded.failure_kind,
            error_message = excluded.error_message`,
		rec.RunID,
		rec.Variant,
		rec.Status,
		formatTime(rec.StartedAt),
		nullableTime(rec.FinishedAt),
		rec.Duration.Milliseconds(),
		nullableString(rec.OutputPath),
		nullableString(rec.OutputSHA256),
		nullableString(rec.Title),
		nullableString(rec.Author),
		nullableString(rec.Rights),
		nullableString(rec.FailedStage),
		nullableString(rec.FailureKind),
		nullableString(rec.ErrorMessage),
	)
	if err != nil {
		return fmt.Errorf("save build record: %w", err)
	}
	return nil
}

// Filter narrows List.
type Filter struct {
	Variant string
	// Limit caps the rows returned; zero means 20.
	Limit int
}

const recordColumns = "id, run_id, variant, status, started_at, finished_at, duration_ms, output_path, output_sha256, title, author, rights, failed_stage, failure_kind, error_message"

// List returns records newest first.
func (s *Store) List(ctx context.Context, filter Filter) ([]Record, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	query := `SELECT ` + recordColumns + ` FROM builds`
	var args []any
	if v := strings.TrimSpace(filter.Variant); v != "" {
		query += ` WHERE variant = ?`
		args = append(args, v)
	}
	query += ` ORDER BY started_at DESC, id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list builds: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan build: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Get returns the record for run id and variant, or nil.
func (s *Store) Get(ctx context.Context, runID, variant string) (*Record, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+recordColumns+` FROM builds WHERE run_id = ? AND variant = ?`, runID, variant)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get build: %w", err)
	}
	return &rec, nil
}

func scanRecord(scanner interface{ Scan(dest ...any) error }) (Record, error) {
	var (
		rec         Record
		startedRaw  string
		finishedRaw sql.NullString
		durationMS  int64
		outputPath  sql.NullString
		outputSHA   sql.NullString
		title       sql.NullString
		author      sql.NullString
		rights      sql.NullString
		failedStage sql.NullString
		failureKind sql.NullString
		errorMsg    sql.NullString
	)
	if err := scanner.Scan(
		&rec.ID,
		&rec.RunID,
		&rec.Variant,
		&rec.Status,
		&startedRaw,
		&finishedRaw,
		&durationMS,
		&outputPath,
		&outputSHA,
		&title,
		&author,
		&rights,
		&failedStage,
		&failureKind,
		&errorMsg,
	); err != nil {
		return Record{}, err
	}
	rec.StartedAt = parseTime(startedRaw)
	if finishedRaw.Valid {
		rec.FinishedAt = parseTime(finishedRaw.String)
	}
	rec.Duration = time.Duration(durationMS) * time.Millisecond
	rec.OutputPath = outputPath.String
	rec.OutputSHA256 = outputSHA.String
	rec.Title = title.String
	rec.Author = author.String
	rec.Rights = rights.String
	rec.FailedStage = failedStage.String
	rec.FailureKind = failureKind.String
	rec.ErrorMessage = errorMsg.String
	return rec, nil
}

// timeLayout is fixed width so started_at sorts lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(raw string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}
	}
	return t
}

func nullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return formatTime(t)
}

func nullableString(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}
