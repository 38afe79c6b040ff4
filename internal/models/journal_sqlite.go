package models

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// SQLiteJournal stores entries in a local SQLite file.
// created_at is kept as unix nanoseconds.
type SQLiteJournal struct {
	db *sql.DB
}

func NewSQLiteJournal(db *sql.DB) *SQLiteJournal {
	return &SQLiteJournal{db: db}
}

func (s *SQLiteJournal) Record(ctx context.Context, entry *JournalEntry) error {
	entry.prepare(time.Now())

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO journal_entries (id, request_id, route, mode, input_digest,
		                             input_length, sealed_input, status, error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID,
		entry.RequestID,
		entry.Route,
		entry.Mode,
		entry.InputDigest,
		entry.InputLength,
		entry.SealedInput,
		entry.Status,
		entry.Error,
		entry.CreatedAt.UnixNano(),
	)
	if err != nil {
		if isSQLiteConstraint(err) {
			return ErrDuplicateEntry
		}
		return fmt.Errorf("failed to record journal entry: %w", err)
	}
	return nil
}

func isSQLiteConstraint(err error) bool {
	var sqlErr *sqlite.Error
	if !errors.As(err, &sqlErr) {
		return false
	}
	// the low byte is the primary result code, extended codes live above it
	return sqlErr.Code()&0xff == sqlite3.SQLITE_CONSTRAINT
}

func (s *SQLiteJournal) Recent(ctx context.Context, limit int) ([]*JournalEntry, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, request_id, route, mode, input_digest, input_length,
		       sealed_input, status, error, created_at
		FROM journal_entries
		ORDER BY created_at DESC
		LIMIT ?`, clampLimit(limit, MaxRecent))
	if err != nil {
		return nil, fmt.Errorf("failed to query journal: %w", err)
	}
	defer rows.Close()

	entries := []*JournalEntry{}
	for rows.Next() {
		e := &JournalEntry{}
		var createdAt int64
		err := rows.Scan(
			&e.ID,
			&e.RequestID,
			&e.Route,
			&e.Mode,
			&e.InputDigest,
			&e.InputLength,
			&e.SealedInput,
			&e.Status,
			&e.Error,
			&createdAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan journal entry: %w", err)
		}
		e.CreatedAt = time.Unix(0, createdAt).UTC()
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating journal: %w", err)
	}
	return entries, nil
}

func (s *SQLiteJournal) CountByMode(ctx context.Context) (map[string]int, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, `SELECT mode, COUNT(*) FROM journal_entries GROUP BY mode`)
	if err != nil {
		return nil, fmt.Errorf("failed to count by mode: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var mode string
		var count int
		if err := rows.Scan(&mode, &count); err != nil {
			return nil, fmt.Errorf("failed to scan mode count: %w", err)
		}
		counts[mode] = count
	}
	return counts, rows.Err()
}

func (s *SQLiteJournal) Prune(ctx context.Context, before time.Time) (int64, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	res, err := s.db.ExecContext(ctx, `DELETE FROM journal_entries WHERE created_at < ?`, before.UnixNano())
	if err != nil {
		return 0, fmt.Errorf("failed to prune journal: %w", err)
	}
	return res.RowsAffected()
}

func (s *SQLiteJournal) Health(ctx context.Context) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()
	return s.db.PingContext(ctx)
}

func (s *SQLiteJournal) Close() error {
	return s.db.Close()
}
