package file

import (
	"context"
	"sync"

	"github.com/nsyszr/msgbroker/pkg/model"
)

type messageStore struct {
	path string
	sync.Mutex
}

func (s *messageStore) Load(ctx context.Context) (*model.MessageSnapshot, error) {
	s.Lock()
	defer s.Unlock()

	snap := &model.MessageSnapshot{}
	if err := readJSON(s.path, snap); err != nil {
		return nil, err
	}
	return snap, nil
}

func (s *messageStore) Save(ctx context.Context, snap *model.MessageSnapshot) error {
	s.Lock()
	defer s.Unlock()
	return writeJSON(s.path, snap)
}
