package history

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is stored in PRAGMA user_version. Bump it with schema.sql.
const schemaVersion = 1

// ErrSchemaMismatch is returned by Open when the file holds a different
// history layout, or is not a history database at all.
var ErrSchemaMismatch = errors.New("history schema mismatch")

// initSchema creates the tables in an empty file and otherwise checks the
// recorded version. There is no migration path: a stale database is reported
// with its location so the user can delete it.
func (s *Store) initSchema(ctx context.Context) error {
	var version int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("read history schema version: %w", err)
	}
	if version == schemaVersion {
		return nil
	}
	if version != 0 {
		return s.mismatch(fmt.Sprintf("version %d, want %d", version, schemaVersion))
	}

	var tables int
	if err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type = 'table'",
	).Scan(&tables); err != nil {
		return fmt.Errorf("inspect history database: %w", err)
	}
	if tables > 0 {
		return s.mismatch("unversioned tables present")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin history schema: %w", err)
	}
	defer func() { _ = tx.Rollback() }()
	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create history tables: %w", err)
	}
	// PRAGMA does not take bound parameters.
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", schemaVersion)); err != nil {
		return fmt.Errorf("stamp history schema version: %w", err)
	}
	return tx.Commit()
}

func (s *Store) mismatch(detail string) error {
	return fmt.Errorf("%w: %s (delete %s to start a fresh history)", ErrSchemaMismatch, detail, s.path)
}
