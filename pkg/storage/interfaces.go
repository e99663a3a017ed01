package storage

import (
	"context"

	"github.com/nsyszr/msgbroker/pkg/model"
)

// Interface is implemented by the storage
type Interface interface {
	Messages() MessageStore
	Scheduled() ScheduledStore
	Close() error
}

// MessageStore persists the message log together with the topic directory.
// Load returns ErrNotFound if nothing was saved yet.
type MessageStore interface {
	Load(ctx context.Context) (*model.MessageSnapshot, error)
	Save(ctx context.Context, snap *model.MessageSnapshot) error
}

// MessageSequence is implemented by message stores that can report the
// highest stored message id without loading the log, e.g. to continue the id
// sequence when the snapshot itself cannot be read.
type MessageSequence interface {
	LastMessageID(ctx context.Context) (int64, error)
}

// ScheduledStore persists the pending scheduled messages. Load returns
// ErrNotFound if nothing was saved yet.
type ScheduledStore interface {
	Load(ctx context.Context) (*model.ScheduledSnapshot, error)
	Save(ctx context.Context, snap *model.ScheduledSnapshot) error
}
