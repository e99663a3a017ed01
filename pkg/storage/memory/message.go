package memory

import (
	"context"
	"sync"

	"github.com/nsyszr/msgbroker/pkg/model"
	"github.com/nsyszr/msgbroker/pkg/storage"
)

type messageStore struct {
	snap  *model.MessageSnapshot
	sync.RWMutex
}

func newMessageStore() *messageStore {
	return &messageStore{}
}

func (s *messageStore) Load(ctx context.Context) (*model.MessageSnapshot, error) {
	s.RLock()
	defer s.RUnlock()
	if s.snap == nil {
		return nil, storage.ErrNotFound
	}
	return copyMessageSnapshot(s.snap), nil
}

func (s *messageStore) Save(ctx context.Context, snap *model.MessageSnapshot) error {
	s.Lock()
	defer s.Unlock()
	s.snap = copyMessageSnapshot(snap)
	return nil
}

func copyMessageSnapshot(snap *model.MessageSnapshot) *model.MessageSnapshot {
	return &model.MessageSnapshot{
		Messages: append([]model.Message(nil), snap.Messages...),
		Topics:   append([]string(nil), snap.Topics...),
		SavedAt:  snap.SavedAt,
	}
}
