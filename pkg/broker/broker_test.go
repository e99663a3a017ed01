package broker

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/nsyszr/msgbroker/pkg/model"
	"github.com/nsyszr/msgbroker/pkg/proto"
	"github.com/nsyszr/msgbroker/pkg/storage"
	"github.com/nsyszr/msgbroker/pkg/storage/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type frame struct {
	Type    proto.MessageType `json:"type"`
	Payload json.RawMessage   `json:"payload"`
}

type fakeConn struct {
	mu     sync.Mutex
	frames []frame
	fail   bool
	closed bool
}

func (c *fakeConn) Send(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail {
		return errors.New("outbox full")
	}
	var f frame
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	c.frames = append(c.frames, f)
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) ofType(t proto.MessageType) []frame {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]frame, 0)
	for _, f := range c.frames {
		if f.Type == t {
			out = append(out, f)
		}
	}
	return out
}

func (c *fakeConn) delivered(t *testing.T) []model.Message {
	out := make([]model.Message, 0)
	for _, f := range c.ofType(proto.MessageTypeMessage) {
		var m model.Message
		require.NoError(t, json.Unmarshal(f.Payload, &m))
		out = append(out, m)
	}
	return out
}

func (c *fakeConn) lastPending(t *testing.T) []model.ScheduledMessage {
	lists := c.ofType(proto.MessageTypeScheduledMessagesList)
	require.NotEmpty(t, lists)
	var list proto.ScheduledMessagesList
	require.NoError(t, json.Unmarshal(lists[len(lists)-1].Payload, &list))
	return list.Messages
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// failingStore rejects every save and counts the attempts.
type failingStore struct {
	mu    sync.Mutex
	saves int
}

func (s *failingStore) Messages() storage.MessageStore     { return failingMessages{s} }
func (s *failingStore) Scheduled() storage.ScheduledStore { return failingScheduled{s} }
func (s *failingStore) Close() error                       { return nil }

func (s *failingStore) attempts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

func (s *failingStore) fail() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saves++
	return errors.New("disk full")
}

type failingMessages struct{ s *failingStore }

func (m failingMessages) Load(ctx context.Context) (*model.MessageSnapshot, error) {
	return nil, storage.ErrNotFound
}

func (m failingMessages) Save(ctx context.Context, snap *model.MessageSnapshot) error {
	return m.s.fail()
}

type failingScheduled struct{ s *failingStore }

func (m failingScheduled) Load(ctx context.Context) (*model.ScheduledSnapshot, error) {
	return nil, storage.ErrNotFound
}

func (m failingScheduled) Save(ctx context.Context, snap *model.ScheduledSnapshot) error {
	return m.s.fail()
}

// unreadableLogStore cannot decode its message log but still knows the
// highest stored id.
type unreadableLogStore struct {
	failingStore
	lastID int64
}

func (s *unreadableLogStore) Messages() storage.MessageStore { return unreadableLog{s} }

type unreadableLog struct{ s *unreadableLogStore }

func (l unreadableLog) Load(ctx context.Context) (*model.MessageSnapshot, error) {
	return nil, errors.New("unexpected end of JSON input")
}

func (l unreadableLog) Save(ctx context.Context, snap *model.MessageSnapshot) error {
	return nil
}

func (l unreadableLog) LastMessageID(ctx context.Context) (int64, error) {
	return l.s.lastID, nil
}

func startBroker(t *testing.T, opts Options) *Broker {
	t.Helper()
	b := New(opts)
	ctx, cancel := context.WithCancel(context.Background())
	go b.Run(ctx)
	t.Cleanup(func() {
		cancel()
		<-b.Done()
	})
	return b
}

func register(t *testing.T, b *Broker, userID string) (*Session, *fakeConn) {
	t.Helper()
	conn := &fakeConn{}
	sess, err := b.Register(context.Background(), conn, userID, "127.0.0.1")
	require.NoError(t, err)
	return sess, conn
}

func TestBroker_RegisterSendsLoggedIn(t *testing.T) {
	b := startBroker(t, Options{})
	ctx := context.Background()

	alice, _ := register(t, b, "alice")
	require.NoError(t, b.Subscribe(ctx, alice, "news"))

	_, conn := register(t, b, "bob")
	loggedIn := conn.ofType(proto.MessageTypeLoggedIn)
	require.Len(t, loggedIn, 1)

	var payload proto.LoggedInMessage
	require.NoError(t, json.Unmarshal(loggedIn[0].Payload, &payload))
	assert.Equal(t, "bob", payload.UserID)
	assert.Equal(t, []string{"news"}, payload.Topics)
}

func TestBroker_PublishFanOut(t *testing.T) {
	b := startBroker(t, Options{})
	ctx := context.Background()

	alice, aliceConn := register(t, b, "alice")
	bob, bobConn := register(t, b, "bob")
	_, carolConn := register(t, b, "carol")

	require.NoError(t, b.Subscribe(ctx, alice, "news"))
	require.NoError(t, b.Subscribe(ctx, bob, "news"))

	m, err := b.Publish(ctx, PublishRequest{Topic: "news", Content: "hello", Sender: "alice", OriginAddress: "10.0.0.1"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), m.ID)

	for _, conn := range []*fakeConn{aliceConn, bobConn} {
		got := conn.delivered(t)
		require.Len(t, got, 1)
		assert.Equal(t, "hello", got[0].Content)
		assert.Equal(t, "10.0.0.1", got[0].SenderIP)
		assert.False(t, got[0].Scheduled)
	}
	assert.Empty(t, carolConn.delivered(t))
}

func TestBroker_PublishWithoutSubscribersIsLogged(t *testing.T) {
	b := startBroker(t, Options{})
	ctx := context.Background()

	_, err := b.Publish(ctx, PublishRequest{Topic: "nowhere", Content: "x", Sender: "alice"})
	require.NoError(t, err)
	_, err = b.Publish(ctx, PublishRequest{Topic: "nowhere", Content: "y", Sender: "alice"})
	require.NoError(t, err)

	msgs, err := b.Messages(ctx)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, int64(1), msgs[0].ID)
	assert.Equal(t, int64(2), msgs[1].ID)

	topics, err := b.Topics(ctx)
	require.NoError(t, err)
	assert.Empty(t, topics)
}

func TestBroker_UnsubscribeStopsDeliveryButKeepsTopic(t *testing.T) {
	b := startBroker(t, Options{})
	ctx := context.Background()

	alice, aliceConn := register(t, b, "alice")
	require.NoError(t, b.Subscribe(ctx, alice, "news"))
	require.NoError(t, b.Unsubscribe(ctx, alice, "news"))

	_, err := b.Publish(ctx, PublishRequest{Topic: "news", Content: "hello", Sender: "bob"})
	require.NoError(t, err)
	assert.Empty(t, aliceConn.delivered(t))

	require.NoError(t, b.Unregister(ctx, alice))
	topics, err := b.Topics(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"news"}, topics)
}

func TestBroker_SubscribeBroadcastsNewTopicsOnly(t *testing.T) {
	b := startBroker(t, Options{})
	ctx := context.Background()

	alice, _ := register(t, b, "alice")
	bob, bobConn := register(t, b, "bob")

	require.NoError(t, b.Subscribe(ctx, alice, "news"))
	require.NoError(t, b.Subscribe(ctx, bob, "news"))
	require.NoError(t, b.Subscribe(ctx, alice, "sports"))

	updates := bobConn.ofType(proto.MessageTypeTopicsUpdate)
	require.Len(t, updates, 2)
	var last proto.TopicsUpdateMessage
	require.NoError(t, json.Unmarshal(updates[1].Payload, &last))
	assert.Equal(t, []string{"news", "sports"}, last.Topics)
}

func TestBroker_FailedSendDoesNotBlockOthers(t *testing.T) {
	b := startBroker(t, Options{})
	ctx := context.Background()

	alice, aliceConn := register(t, b, "alice")
	bob, bobConn := register(t, b, "bob")
	require.NoError(t, b.Subscribe(ctx, alice, "news"))
	require.NoError(t, b.Subscribe(ctx, bob, "news"))

	aliceConn.mu.Lock()
	aliceConn.fail = true
	aliceConn.mu.Unlock()

	_, err := b.Publish(ctx, PublishRequest{Topic: "news", Content: "hello", Sender: "carol"})
	require.NoError(t, err)
	assert.Len(t, bobConn.delivered(t), 1)
}

func TestBroker_ScheduleInThePastPublishesImmediately(t *testing.T) {
	clock := newFakeClock()
	b := startBroker(t, Options{Clock: clock})
	ctx := context.Background()

	alice, conn := register(t, b, "alice")
	require.NoError(t, b.Subscribe(ctx, alice, "news"))

	err := b.Schedule(ctx, model.ScheduledMessage{
		ID:            "alice_1",
		Topic:         "news",
		Content:       "late",
		Sender:        "alice",
		ScheduledTime: clock.Now().Add(-time.Second).UnixMilli(),
	})
	require.NoError(t, err)

	got := conn.delivered(t)
	require.Len(t, got, 1)
	assert.True(t, got[0].Scheduled)

	pending, err := b.Pending(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestBroker_ScheduleRejectsMissingFields(t *testing.T) {
	b := startBroker(t, Options{})

	err := b.Schedule(context.Background(), model.ScheduledMessage{ID: "", Topic: "news"})
	require.Error(t, err)
	se, ok := err.(*ScheduleError)
	require.True(t, ok)
	assert.Equal(t, ErrReasonInvalidArgument, se.Reason)
}

func TestBroker_ScheduleFiresOnce(t *testing.T) {
	b := startBroker(t, Options{})
	ctx := context.Background()

	alice, conn := register(t, b, "alice")
	require.NoError(t, b.Subscribe(ctx, alice, "news"))

	due := time.Now().Add(100 * time.Millisecond).UnixMilli()
	require.NoError(t, b.Schedule(ctx, model.ScheduledMessage{
		ID:            "alice_1000",
		Topic:         "news",
		Content:       "hi",
		Sender:        "alice",
		ScheduledTime: due,
		ClientIP:      "192.168.1.5",
	}))

	pending, err := b.Pending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "alice_1000", pending[0].ID)

	require.Eventually(t, func() bool {
		return len(conn.delivered(t)) == 1
	}, 2*time.Second, 10*time.Millisecond)

	got := conn.delivered(t)[0]
	assert.Equal(t, "hi", got.Content)
	assert.Equal(t, "192.168.1.5", got.SenderIP)
	assert.True(t, got.Scheduled)

	pending, err = b.Pending(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)
	assert.Empty(t, conn.lastPending(t))

	time.Sleep(50 * time.Millisecond)
	assert.Len(t, conn.delivered(t), 1)
}

func TestBroker_ScheduleReplacesSameID(t *testing.T) {
	clock := newFakeClock()
	b := startBroker(t, Options{Clock: clock})
	ctx := context.Background()

	entry := model.ScheduledMessage{
		ID:            "alice_1",
		Topic:         "news",
		Content:       "first",
		Sender:        "alice",
		ScheduledTime: clock.Now().Add(time.Hour).UnixMilli(),
	}
	require.NoError(t, b.Schedule(ctx, entry))
	entry.Content = "second"
	require.NoError(t, b.Schedule(ctx, entry))

	pending, err := b.Pending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "second", pending[0].Content)
}

func TestBroker_ScheduleCannotReplaceForeignEntry(t *testing.T) {
	clock := newFakeClock()
	b := startBroker(t, Options{Clock: clock})
	ctx := context.Background()

	require.NoError(t, b.Schedule(ctx, model.ScheduledMessage{
		ID:            "alice_1000",
		Topic:         "news",
		Content:       "mine",
		Sender:        "alice",
		ScheduledTime: clock.Now().Add(time.Hour).UnixMilli(),
	}))

	err := b.Schedule(ctx, model.ScheduledMessage{
		ID:            "alice_1000",
		Topic:         "news",
		Content:       "hijacked",
		Sender:        "bob",
		ScheduledTime: clock.Now().Add(-time.Second).UnixMilli(),
	})
	assert.True(t, IsPermissionError(err))

	pending, err := b.Pending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "alice", pending[0].Sender)
	assert.Equal(t, "mine", pending[0].Content)

	msgs, err := b.Messages(ctx)
	require.NoError(t, err)
	assert.Empty(t, msgs)

	require.NoError(t, b.Cancel(ctx, "alice_1000", "alice"))
}

func TestBroker_PendingIsOrderedByDueTime(t *testing.T) {
	clock := newFakeClock()
	b := startBroker(t, Options{Clock: clock})
	ctx := context.Background()

	for i, offset := range []time.Duration{3 * time.Hour, time.Hour, 2 * time.Hour} {
		require.NoError(t, b.Schedule(ctx, model.ScheduledMessage{
			ID:            []string{"c", "a", "b"}[i],
			Topic:         "news",
			Sender:        "alice",
			ScheduledTime: clock.Now().Add(offset).UnixMilli(),
		}))
	}

	pending, err := b.Pending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 3)
	assert.Equal(t, "a", pending[0].ID)
	assert.Equal(t, "b", pending[1].ID)
	assert.Equal(t, "c", pending[2].ID)
}

func TestBroker_Update(t *testing.T) {
	clock := newFakeClock()
	b := startBroker(t, Options{Clock: clock})
	ctx := context.Background()

	require.NoError(t, b.Schedule(ctx, model.ScheduledMessage{
		ID:            "alice_1",
		Topic:         "news",
		Content:       "draft",
		Sender:        "alice",
		ScheduledTime: clock.Now().Add(time.Hour).UnixMilli(),
		ClientIP:      "10.0.0.1",
	}))

	t.Run("not found", func(t *testing.T) {
		err := b.Update(ctx, UpdateRequest{ID: "missing", RequesterID: "alice", Topic: "news", ScheduledTime: 1})
		assert.True(t, IsNotFoundError(err))
	})

	t.Run("permission denied", func(t *testing.T) {
		err := b.Update(ctx, UpdateRequest{
			ID:            "alice_1",
			RequesterID:   "bob",
			Topic:         "news",
			Content:       "hijack",
			ScheduledTime: clock.Now().Add(time.Hour).UnixMilli(),
		})
		assert.True(t, IsPermissionError(err))

		pending, err := b.Pending(ctx)
		require.NoError(t, err)
		require.Len(t, pending, 1)
		assert.Equal(t, "draft", pending[0].Content)
	})

	t.Run("owner", func(t *testing.T) {
		due := clock.Now().Add(2 * time.Hour).UnixMilli()
		err := b.Update(ctx, UpdateRequest{
			ID:            "alice_1",
			RequesterID:   "alice",
			Topic:         "sports",
			Content:       "final",
			ScheduledTime: due,
		})
		require.NoError(t, err)

		pending, err := b.Pending(ctx)
		require.NoError(t, err)
		require.Len(t, pending, 1)
		assert.Equal(t, "sports", pending[0].Topic)
		assert.Equal(t, "final", pending[0].Content)
		assert.Equal(t, due, pending[0].ScheduledTime)
		assert.Equal(t, "alice", pending[0].Sender)
		assert.Equal(t, "10.0.0.1", pending[0].ClientIP)
	})
}

func TestBroker_Cancel(t *testing.T) {
	clock := newFakeClock()
	b := startBroker(t, Options{Clock: clock})
	ctx := context.Background()

	_, conn := register(t, b, "bob")
	require.NoError(t, b.Schedule(ctx, model.ScheduledMessage{
		ID:            "alice_1",
		Topic:         "news",
		Sender:        "alice",
		ScheduledTime: clock.Now().Add(time.Hour).UnixMilli(),
	}))
	assert.Len(t, conn.lastPending(t), 1)

	assert.True(t, IsPermissionError(b.Cancel(ctx, "alice_1", "bob")))
	assert.True(t, IsNotFoundError(b.Cancel(ctx, "alice_2", "alice")))
	require.NoError(t, b.Cancel(ctx, "alice_1", "alice"))
	assert.Empty(t, conn.lastPending(t))

	clock.Advance(2 * time.Hour)
	pending, err := b.Pending(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)
	assert.Empty(t, conn.delivered(t))
}

func TestBroker_CancelAfterExpiryFindsEntryFired(t *testing.T) {
	clock := newFakeClock()
	b := startBroker(t, Options{Clock: clock})
	ctx := context.Background()

	alice, conn := register(t, b, "alice")
	require.NoError(t, b.Subscribe(ctx, alice, "news"))
	require.NoError(t, b.Schedule(ctx, model.ScheduledMessage{
		ID:            "alice_1",
		Topic:         "news",
		Content:       "on time",
		Sender:        "alice",
		ScheduledTime: clock.Now().Add(time.Second).UnixMilli(),
	}))

	clock.Advance(time.Second)
	err := b.Cancel(ctx, "alice_1", "alice")
	assert.True(t, IsNotFoundError(err))
	assert.Len(t, conn.delivered(t), 1)
}

func TestBroker_History(t *testing.T) {
	clock := newFakeClock()
	b := startBroker(t, Options{Clock: clock})
	ctx := context.Background()

	_, err := b.Publish(ctx, PublishRequest{Topic: "news", Content: "old", Sender: "alice"})
	require.NoError(t, err)
	clock.Advance(8 * 24 * time.Hour)
	_, err = b.Publish(ctx, PublishRequest{Topic: "news", Content: "first", Sender: "alice"})
	require.NoError(t, err)
	_, err = b.Publish(ctx, PublishRequest{Topic: "news", Content: "same instant", Sender: "bob"})
	require.NoError(t, err)
	clock.Advance(time.Minute)
	_, err = b.Publish(ctx, PublishRequest{Topic: "sports", Content: "newest", Sender: "bob"})
	require.NoError(t, err)

	history, err := b.History(ctx, 7*24*time.Hour)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, "newest", history[0].Content)
	assert.Equal(t, "same instant", history[1].Content)
	assert.Equal(t, "first", history[2].Content)

	again, err := b.History(ctx, 7*24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, history, again)

	msgs, err := b.Messages(ctx)
	require.NoError(t, err)
	assert.Len(t, msgs, 4)
}

func TestBroker_RestartRestoresState(t *testing.T) {
	store := memory.NewStore()
	clock := newFakeClock()
	start := clock.Now()
	ctx := context.Background()

	first := New(Options{Store: store, Clock: clock, SaveInterval: -1})
	runCtx, cancel := context.WithCancel(ctx)
	go first.Run(runCtx)

	alice, _ := register(t, first, "alice")
	require.NoError(t, first.Subscribe(ctx, alice, "news"))
	_, err := first.Publish(ctx, PublishRequest{Topic: "news", Content: "before", Sender: "alice"})
	require.NoError(t, err)
	require.NoError(t, first.Schedule(ctx, model.ScheduledMessage{
		ID: "alice_soon", Topic: "news", Content: "missed", Sender: "alice",
		ScheduledTime: start.Add(10 * time.Second).UnixMilli(),
	}))
	require.NoError(t, first.Schedule(ctx, model.ScheduledMessage{
		ID: "alice_later", Topic: "news", Content: "kept", Sender: "alice",
		ScheduledTime: start.Add(time.Hour).UnixMilli(),
	}))

	cancel()
	<-first.Done()

	clock.Advance(time.Minute)
	second := New(Options{Store: store, Clock: clock, SaveInterval: -1})
	require.NoError(t, second.Load(ctx))

	b := second
	runCtx, cancel = context.WithCancel(ctx)
	go b.Run(runCtx)
	defer func() {
		cancel()
		<-b.Done()
	}()

	require.ErrorIs(t, b.Load(ctx), ErrAlreadyStarted)

	topics, err := b.Topics(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"news"}, topics)

	pending, err := b.Pending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "alice_later", pending[0].ID)

	bob, conn := register(t, b, "bob")
	require.NoError(t, b.Subscribe(ctx, bob, "news"))

	clock.Advance(2 * time.Hour)
	pending, err = b.Pending(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)

	got := conn.delivered(t)
	require.Len(t, got, 1)
	assert.Equal(t, "kept", got[0].Content)
	assert.Equal(t, int64(2), got[0].ID)
}

func TestBroker_ClosedAfterRun(t *testing.T) {
	b := New(Options{})
	ctx, cancel := context.WithCancel(context.Background())
	go b.Run(ctx)

	sess, conn := register(t, b, "alice")
	cancel()
	<-b.Done()

	assert.True(t, conn.closed)
	assert.Equal(t, ErrClosed, b.Unregister(context.Background(), sess))
	assert.Equal(t, ErrAlreadyStarted, b.Run(context.Background()))
}

func TestBroker_Stats(t *testing.T) {
	clock := newFakeClock()
	b := startBroker(t, Options{Clock: clock})
	ctx := context.Background()

	alice, _ := register(t, b, "alice")
	require.NoError(t, b.Subscribe(ctx, alice, "news"))
	_, err := b.Publish(ctx, PublishRequest{Topic: "news", Sender: "alice"})
	require.NoError(t, err)
	require.NoError(t, b.Schedule(ctx, model.ScheduledMessage{
		ID: "a", Topic: "news", Sender: "alice", ScheduledTime: clock.Now().Add(time.Hour).UnixMilli(),
	}))

	st, err := b.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, Stats{Sessions: 1, Topics: 1, Messages: 1, Scheduled: 1}, st)
}

func TestBroker_FailedSavesAreRetriedOnTick(t *testing.T) {
	store := &failingStore{}
	b := startBroker(t, Options{Store: store, SaveInterval: 20 * time.Millisecond})
	ctx := context.Background()

	alice, conn := register(t, b, "alice")
	require.NoError(t, b.Subscribe(ctx, alice, "news"))
	_, err := b.Publish(ctx, PublishRequest{Topic: "news", Content: "hello", Sender: "alice"})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return store.attempts() >= 3
	}, 2*time.Second, 10*time.Millisecond)

	_, err = b.Publish(ctx, PublishRequest{Topic: "news", Content: "still here", Sender: "alice"})
	require.NoError(t, err)
	assert.Len(t, conn.delivered(t), 2)

	msgs, err := b.Messages(ctx)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "hello", msgs[0].Content)
	assert.Equal(t, "still here", msgs[1].Content)
}

func TestBroker_TickSavesWithoutShutdown(t *testing.T) {
	store := memory.NewStore()
	b := startBroker(t, Options{Store: store, SaveInterval: 20 * time.Millisecond})
	ctx := context.Background()

	alice, _ := register(t, b, "alice")
	require.NoError(t, b.Subscribe(ctx, alice, "news"))
	_, err := b.Publish(ctx, PublishRequest{Topic: "news", Content: "hello", Sender: "alice"})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		snap, err := store.Messages().Load(ctx)
		return err == nil && len(snap.Messages) == 1
	}, 2*time.Second, 10*time.Millisecond)

	snap, err := store.Messages().Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "hello", snap.Messages[0].Content)
	assert.Equal(t, []string{"news"}, snap.Topics)
}

func TestBroker_LoadFailureContinuesMessageIDs(t *testing.T) {
	store := &unreadableLogStore{lastID: 41}
	b := New(Options{Store: store, SaveInterval: -1})
	require.Error(t, b.Load(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	go b.Run(ctx)
	defer func() {
		cancel()
		<-b.Done()
	}()

	m, err := b.Publish(context.Background(), PublishRequest{Topic: "news", Content: "after", Sender: "alice"})
	require.NoError(t, err)
	assert.Equal(t, int64(42), m.ID)
}
