package postgres

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/nsyszr/msgbroker/pkg/model"
	"github.com/pkg/errors"
)

func newMessageStore(db *sqlx.DB) *messageStore {
	return &messageStore{
		db: db,
	}
}

type messageStore struct {
	db *sqlx.DB
}

type sqlDataMessage struct {
	ID        int64     `db:"id"`
	Topic     string    `db:"topic"`
	Content   string    `db:"content"`
	Sender    string    `db:"sender"`
	SenderIP  string    `db:"sender_ip"`
	Timestamp time.Time `db:"timestamp"`
	Scheduled bool      `db:"scheduled"`
}

var sqlParamsMessage = []string{
	"id",
	"topic",
	"content",
	"sender",
	"sender_ip",
	"timestamp",
	"scheduled",
}

func (d *sqlDataMessage) Scan(m *model.Message) {
	d.ID = m.ID
	d.Topic = m.Topic
	d.Content = m.Content
	d.Sender = m.Sender
	d.SenderIP = m.SenderIP
	d.Timestamp = m.Timestamp.UTC()
	d.Scheduled = m.Scheduled
}

func (d *sqlDataMessage) Model() model.Message {
	return model.Message{
		ID:        d.ID,
		Topic:     d.Topic,
		Content:   d.Content,
		Sender:    d.Sender,
		SenderIP:  d.SenderIP,
		Timestamp: d.Timestamp,
		Scheduled: d.Scheduled,
	}
}

func (s *messageStore) Load(ctx context.Context) (*model.MessageSnapshot, error) {
	savedAt, err := findSavedAt(ctx, s.db, snapshotKindMessages)
	if err != nil {
		return nil, err
	}

	rows := make([]sqlDataMessage, 0)
	query := fmt.Sprintf("SELECT %s FROM messages ORDER BY id", strings.Join(sqlParamsMessage, ", "))
	if err := s.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, errors.Wrap(err, "failed to fetch all messages")
	}

	topics := make([]string, 0)
	if err := s.db.SelectContext(ctx, &topics, "SELECT name FROM topics ORDER BY position"); err != nil {
		return nil, errors.Wrap(err, "failed to fetch all topics")
	}

	snap := &model.MessageSnapshot{
		Messages: make([]model.Message, 0, len(rows)),
		Topics:   topics,
		SavedAt:  savedAt,
	}
	for _, d := range rows {
		snap.Messages = append(snap.Messages, d.Model())
	}

	return snap, nil
}

// LastMessageID returns the highest stored message id, 0 for an empty log.
func (s *messageStore) LastMessageID(ctx context.Context) (int64, error) {
	return lastMessageID(ctx, s.db)
}

func lastMessageID(ctx context.Context, q sqlx.QueryerContext) (int64, error) {
	var id int64
	if err := sqlx.GetContext(ctx, q, &id, "SELECT COALESCE(MAX(id), 0) FROM messages"); err != nil {
		return 0, errors.Wrap(err, "failed to find last message id")
	}
	return id, nil
}

// unsavedMessages returns the messages of the id ordered log that come after
// lastID.
func unsavedMessages(messages []model.Message, lastID int64) []model.Message {
	i := sort.Search(len(messages), func(i int) bool {
		return messages[i].ID > lastID
	})
	return messages[i:]
}

// Save inserts the messages with an id above the highest stored one and the
// topics that are not stored yet. The log is append-only, therefore existing
// rows never change.
func (s *messageStore) Save(ctx context.Context, snap *model.MessageSnapshot) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	lastID, err := lastMessageID(ctx, tx)
	if err != nil {
		return err
	}

	query := fmt.Sprintf(
		"INSERT INTO messages (%s) VALUES (%s)",
		strings.Join(sqlParamsMessage, ", "),
		":"+strings.Join(sqlParamsMessage, ", :"),
	)
	unsaved := unsavedMessages(snap.Messages, lastID)
	for i := range unsaved {
		d := sqlDataMessage{}
		d.Scan(&unsaved[i])
		if _, err := tx.NamedExecContext(ctx, query, d); err != nil {
			return errors.Wrap(err, "failed to create message")
		}
	}

	for _, topic := range snap.Topics {
		if _, err := tx.ExecContext(ctx, "INSERT INTO topics (name) VALUES ($1) ON CONFLICT (name) DO NOTHING", topic); err != nil {
			return errors.Wrap(err, "failed to create topic")
		}
	}

	if err := upsertSavedAt(ctx, tx, snapshotKindMessages, snap.SavedAt); err != nil {
		return err
	}

	return errors.Wrap(tx.Commit(), "failed to commit messages snapshot")
}
