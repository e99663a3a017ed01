package memory

import (
	"context"
	"testing"
	"time"

	"github.com/nsyszr/msgbroker/pkg/model"
	"github.com/nsyszr/msgbroker/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	defer s.Close()

	_, err := s.Messages().Load(ctx)
	assert.True(t, storage.IsNotFound(err))
	_, err = s.Scheduled().Load(ctx)
	assert.True(t, storage.IsNotFound(err))

	savedAt := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	msnap := &model.MessageSnapshot{
		Messages: []model.Message{{ID: 1, Topic: "news", Content: "hello"}},
		Topics:   []string{"news"},
		SavedAt:  savedAt,
	}
	require.NoError(t, s.Messages().Save(ctx, msnap))

	// Later changes of the saved snapshot must not leak into the store.
	msnap.Topics[0] = "changed"

	loaded, err := s.Messages().Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"news"}, loaded.Topics)
	assert.Equal(t, savedAt, loaded.SavedAt)

	ssnap := &model.ScheduledSnapshot{
		ScheduledMessages: []model.ScheduledMessage{{ID: "alice_1", Topic: "news", ScheduledTime: 1000}},
		SavedAt:           savedAt,
	}
	require.NoError(t, s.Scheduled().Save(ctx, ssnap))
	sloaded, err := s.Scheduled().Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, ssnap, sloaded)
}
