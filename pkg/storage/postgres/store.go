package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	// PostgreSQL driver for database/sql
	_ "github.com/lib/pq"
	"github.com/nsyszr/msgbroker/pkg/storage"
	"github.com/pkg/errors"
)

const (
	snapshotKindMessages  = "messages"
	snapshotKindScheduled = "scheduled"
)

// store contains all PostgreSQL based sub-stores for managing the snapshots
type store struct {
	db        *sqlx.DB
	messages  *messageStore
	scheduled *scheduledStore
}

// Open connects to the PostgreSQL database at url and checks the connection.
func Open(url string) (*sqlx.DB, error) {
	db, err := sqlx.Open("postgres", url)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open database")
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to connect to database")
	}
	return db, nil
}

// NewStore creates a new PostgreSQL based Storage interface. The schema is
// expected to be migrated already, see Migrate.
func NewStore(db *sqlx.DB) storage.Interface {
	return &store{
		db:        db,
		messages:  newMessageStore(db),
		scheduled: newScheduledStore(db),
	}
}

// Messages returns a sub-store for the message log snapshot
func (s *store) Messages() storage.MessageStore {
	return s.messages
}

// Scheduled returns a sub-store for the scheduled messages snapshot
func (s *store) Scheduled() storage.ScheduledStore {
	return s.scheduled
}

func (s *store) Close() error {
	return s.db.Close()
}

func findSavedAt(ctx context.Context, q sqlx.QueryerContext, kind string) (time.Time, error) {
	var savedAt time.Time
	query := "SELECT saved_at FROM snapshots WHERE kind=$1"
	if err := sqlx.GetContext(ctx, q, &savedAt, query, kind); err != nil {
		if err == sql.ErrNoRows {
			return time.Time{}, storage.ErrNotFound
		}
		return time.Time{}, errors.Wrap(err, "failed to find snapshot")
	}
	return savedAt, nil
}

func upsertSavedAt(ctx context.Context, tx *sqlx.Tx, kind string, savedAt time.Time) error {
	query := "INSERT INTO snapshots (kind, saved_at) VALUES ($1, $2) " +
		"ON CONFLICT (kind) DO UPDATE SET saved_at = EXCLUDED.saved_at"
	if _, err := tx.ExecContext(ctx, query, kind, savedAt.UTC()); err != nil {
		return errors.Wrap(err, "failed to update snapshot time")
	}
	return nil
}
