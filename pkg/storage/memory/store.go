package memory

import "github.com/nsyszr/msgbroker/pkg/storage"

// Store contains all memory-based sub-stores for managing the persistent models
type store struct {
	messages  *messageStore
	scheduled *scheduledStore
}

// NewStore creates a new memory-based Storage interface
func NewStore() storage.Interface {
	return &store{
		messages:  newMessageStore(),
		scheduled: newScheduledStore(),
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
	return nil
}
