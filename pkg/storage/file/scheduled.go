package file

import (
	"context"
	"sync"

	"github.com/nsyszr/msgbroker/pkg/model"
)

type scheduledStore struct {
	path string
	sync.Mutex
}

func (s *scheduledStore) Load(ctx context.Context) (*model.ScheduledSnapshot, error) {
	s.Lock()
	defer s.Unlock()

	snap := &model.ScheduledSnapshot{}
	if err := readJSON(s.path, snap); err != nil {
		return nil, err
	}
	return snap, nil
}

func (s *scheduledStore) Save(ctx context.Context, snap *model.ScheduledSnapshot) error {
	s.Lock()
	defer s.Unlock()
	return writeJSON(s.path, snap)
}
