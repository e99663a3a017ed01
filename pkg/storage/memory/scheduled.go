package memory

import (
	"context"
	"sync"

	"github.com/nsyszr/msgbroker/pkg/model"
	"github.com/nsyszr/msgbroker/pkg/storage"
)

type scheduledStore struct {
	snap  *model.ScheduledSnapshot
	sync.RWMutex
}

func newScheduledStore() *scheduledStore {
	return &scheduledStore{}
}

func (s *scheduledStore) Load(ctx context.Context) (*model.ScheduledSnapshot, error) {
	s.RLock()
	defer s.RUnlock()
	if s.snap == nil {
		return nil, storage.ErrNotFound
	}
	return copyScheduledSnapshot(s.snap), nil
}

func (s *scheduledStore) Save(ctx context.Context, snap *model.ScheduledSnapshot) error {
	s.Lock()
	defer s.Unlock()
	s.snap = copyScheduledSnapshot(snap)
	return nil
}

func copyScheduledSnapshot(snap *model.ScheduledSnapshot) *model.ScheduledSnapshot {
	return &model.ScheduledSnapshot{
		ScheduledMessages: append([]model.ScheduledMessage(nil), snap.ScheduledMessages...),
		SavedAt:           snap.SavedAt,
	}
}
