package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresJournal stores entries in the journal_entries table.
type PostgresJournal struct {
	pool *pgxpool.Pool
}

func NewPostgresJournal(pool *pgxpool.Pool) *PostgresJournal {
	return &PostgresJournal{pool: pool}
}

func (s *PostgresJournal) Record(ctx context.Context, entry *JournalEntry) error {
	entry.prepare(time.Now())

	query := `
		INSERT INTO journal_entries (id, request_id, route, mode, input_digest,
		                             input_length, sealed_input, status, error, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	_, err := s.pool.Exec(ctx, query,
		entry.ID,
		entry.RequestID,
		entry.Route,
		entry.Mode,
		entry.InputDigest,
		entry.InputLength,
		entry.SealedInput,
		entry.Status,
		entry.Error,
		entry.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return ErrDuplicateEntry
		}
		return fmt.Errorf("failed to record journal entry: %w", err)
	}

	return nil
}

func (s *PostgresJournal) Recent(ctx context.Context, limit int) ([]*JournalEntry, error) {
	query := `
		SELECT id, request_id, route, mode, input_digest, input_length,
		       sealed_input, status, error, created_at
		FROM journal_entries
		ORDER BY created_at DESC
		LIMIT $1
	`

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	rows, err := s.pool.Query(ctx, query, clampLimit(limit, MaxRecent))
	if err != nil {
		return nil, fmt.Errorf("failed to query journal: %w", err)
	}
	defer rows.Close()

	entries := []*JournalEntry{}
	for rows.Next() {
		e := &JournalEntry{}
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
			&e.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan journal entry: %w", err)
		}
		e.CreatedAt = e.CreatedAt.UTC()
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating journal: %w", err)
	}

	return entries, nil
}

func (s *PostgresJournal) CountByMode(ctx context.Context) (map[string]int, error) {
	query := `
		SELECT mode, COUNT(*)
		FROM journal_entries
		GROUP BY mode
	`

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	rows, err := s.pool.Query(ctx, query)
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

func (s *PostgresJournal) Prune(ctx context.Context, before time.Time) (int64, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	tag, err := s.pool.Exec(ctx, `DELETE FROM journal_entries WHERE created_at < $1`, before.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to prune journal: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Health pings the pool.
func (s *PostgresJournal) Health(ctx context.Context) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()
	return s.pool.Ping(ctx)
}

func (s *PostgresJournal) Close() error {
	s.pool.Close()
	return nil
}
