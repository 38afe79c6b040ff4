package models

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Journal routes.
const (
	RouteAnalyze   = "analyze"
	RouteIntervene = "intervene"
	RouteTry       = "try"
)

// Journal drivers.
const (
	DriverNone     = "none"
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// JournalEntry records one analysis call. The raw input is only kept
// in SealedInput, and only when a seal key is configured.
type JournalEntry struct {
	ID          string    `json:"id"`
	RequestID   string    `json:"request_id,omitempty"`
	Route       string    `json:"route"`
	Mode        string    `json:"mode"`
	InputDigest string    `json:"input_digest,omitempty"`
	InputLength int       `json:"input_length"`
	SealedInput string    `json:"-"`
	Status      int       `json:"status"`
	Error       string    `json:"error,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Succeeded reports whether the call returned a 2xx status.
func (e *JournalEntry) Succeeded() bool {
	return e.Status >= 200 && e.Status < 300
}

// prepare fills the ID and CreatedAt when the caller left them empty.
func (e *JournalEntry) prepare(now time.Time) {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	e.CreatedAt = e.CreatedAt.UTC()
}

// Journal stores analysis call records.
type Journal interface {
	Record(ctx context.Context, entry *JournalEntry) error
	Recent(ctx context.Context, limit int) ([]*JournalEntry, error)
	CountByMode(ctx context.Context) (map[string]int, error)
	Prune(ctx context.Context, before time.Time) (int64, error)
	Health(ctx context.Context) error
	Close() error
}

// JournalConfig selects and configures a Journal backend.
type JournalConfig struct {
	Driver      string
	DatabaseURL string
	SQLitePath  string
	MaxEntries  int
}

// OpenJournal opens the backend named by cfg.Driver and applies its migrations.
func OpenJournal(ctx context.Context, cfg JournalConfig) (Journal, error) {
	switch cfg.Driver {
	case DriverNone:
		return NopJournal{}, nil
	case DriverMemory, "":
		return NewMemoryJournal(cfg.MaxEntries), nil
	case DriverSQLite:
		db, err := OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		if err := Migrate(db, DialectSQLite); err != nil {
			db.Close()
			return nil, err
		}
		return NewSQLiteJournal(db), nil
	case DriverPostgres:
		pool, err := OpenPool(ctx, DefaultDatabaseConfig(cfg.DatabaseURL))
		if err != nil {
			return nil, err
		}
		if err := MigratePool(pool); err != nil {
			pool.Close()
			return nil, err
		}
		return NewPostgresJournal(pool), nil
	default:
		return nil, DriverError{Driver: cfg.Driver}
	}
}

// clampLimit bounds a Recent limit to [1, ceiling].
func clampLimit(limit, ceiling int) int {
	if limit <= 0 {
		return 1
	}
	if limit > ceiling {
		return ceiling
	}
	return limit
}

// MaxRecent caps how many entries Recent returns.
const MaxRecent = 100

// NopJournal discards everything. Used when JOURNAL_DRIVER=none.
type NopJournal struct{}

func (NopJournal) Record(context.Context, *JournalEntry) error { return nil }

func (NopJournal) Recent(context.Context, int) ([]*JournalEntry, error) {
	return []*JournalEntry{}, nil
}

func (NopJournal) CountByMode(context.Context) (map[string]int, error) {
	return map[string]int{}, nil
}

func (NopJournal) Prune(context.Context, time.Time) (int64, error) { return 0, nil }

func (NopJournal) Health(context.Context) error { return nil }

func (NopJournal) Close() error { return nil }
