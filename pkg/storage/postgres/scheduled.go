package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/nsyszr/msgbroker/pkg/model"
	"github.com/pkg/errors"
)

func newScheduledStore(db *sqlx.DB) *scheduledStore {
	return &scheduledStore{
		db: db,
	}
}

type scheduledStore struct {
	db *sqlx.DB
}

type sqlDataScheduled struct {
	ID            string `db:"id"`
	Topic         string `db:"topic"`
	Content       string `db:"content"`
	Sender        string `db:"sender"`
	ScheduledTime int64  `db:"scheduled_time"`
	ClientIP      string `db:"client_ip"`
}

var sqlParamsScheduled = []string{
	"id",
	"topic",
	"content",
	"sender",
	"scheduled_time",
	"client_ip",
}

func (d *sqlDataScheduled) Scan(m *model.ScheduledMessage) {
	d.ID = m.ID
	d.Topic = m.Topic
	d.Content = m.Content
	d.Sender = m.Sender
	d.ScheduledTime = m.ScheduledTime
	d.ClientIP = m.ClientIP
}

func (d *sqlDataScheduled) Model() model.ScheduledMessage {
	return model.ScheduledMessage{
		ID:            d.ID,
		Topic:         d.Topic,
		Content:       d.Content,
		Sender:        d.Sender,
		ScheduledTime: d.ScheduledTime,
		ClientIP:      d.ClientIP,
	}
}

func (s *scheduledStore) Load(ctx context.Context) (*model.ScheduledSnapshot, error) {
	savedAt, err := findSavedAt(ctx, s.db, snapshotKindScheduled)
	if err != nil {
		return nil, err
	}

	rows := make([]sqlDataScheduled, 0)
	query := fmt.Sprintf("SELECT %s FROM scheduled_messages ORDER BY scheduled_time, id", strings.Join(sqlParamsScheduled, ", "))
	if err := s.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, errors.Wrap(err, "failed to fetch all scheduled messages")
	}

	snap := &model.ScheduledSnapshot{
		ScheduledMessages: make([]model.ScheduledMessage, 0, len(rows)),
		SavedAt:           savedAt,
	}
	for _, d := range rows {
		snap.ScheduledMessages = append(snap.ScheduledMessages, d.Model())
	}

	return snap, nil
}

// Save replaces the stored scheduled messages with the given snapshot.
func (s *scheduledStore) Save(ctx context.Context, snap *model.ScheduledSnapshot) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM scheduled_messages"); err != nil {
		return errors.Wrap(err, "failed to clear scheduled messages")
	}

	query := fmt.Sprintf(
		"INSERT INTO scheduled_messages (%s) VALUES (%s)",
		strings.Join(sqlParamsScheduled, ", "),
		":"+strings.Join(sqlParamsScheduled, ", :"),
	)
	for i := range snap.ScheduledMessages {
		d := sqlDataScheduled{}
		d.Scan(&snap.ScheduledMessages[i])
		if _, err := tx.NamedExecContext(ctx, query, d); err != nil {
			return errors.Wrap(err, "failed to create scheduled message")
		}
	}

	if err := upsertSavedAt(ctx, tx, snapshotKindScheduled, snap.SavedAt); err != nil {
		return err
	}

	return errors.Wrap(tx.Commit(), "failed to commit scheduled snapshot")
}
