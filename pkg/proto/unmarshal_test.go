package proto

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/nsyszr/msgbroker/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnmarshalMessage(t *testing.T) {
	t.Run("login", func(t *testing.T) {
		msgType, msg, err := UnmarshalMessage([]byte(`{"type":"LOGIN","payload":{"userId":"alice","password":"secret"}}`))
		require.NoError(t, err)
		assert.Equal(t, MessageTypeLogin, msgType)

		login, err := MustLoginMessage(msg)
		require.NoError(t, err)
		assert.Equal(t, "alice", login.UserID)
		assert.Equal(t, "secret", login.Password)
	})

	t.Run("schedule", func(t *testing.T) {
		data := `{"type":"SCHEDULE","payload":{"id":"alice_1000","topic":"news","content":"reminder","sender":"alice","scheduledTime":1700000000000}}`
		msgType, msg, err := UnmarshalMessage([]byte(data))
		require.NoError(t, err)
		assert.Equal(t, MessageTypeSchedule, msgType)

		sched, err := MustScheduleMessage(msg)
		require.NoError(t, err)
		assert.Equal(t, "alice_1000", sched.ID)
		assert.Equal(t, "news", sched.Topic)
		assert.Equal(t, int64(1700000000000), sched.ScheduledTime)
	})

	t.Run("get messages without payload", func(t *testing.T) {
		msgType, msg, err := UnmarshalMessage([]byte(`{"type":"GET_HISTORY_MESSAGES"}`))
		require.NoError(t, err)
		assert.Equal(t, MessageTypeGetHistoryMessages, msgType)
		_, err = MustGetHistoryMessages(msg)
		assert.NoError(t, err)
	})

	t.Run("wrong must helper", func(t *testing.T) {
		_, msg, err := UnmarshalMessage([]byte(`{"type":"SUBSCRIBE","payload":{"topic":"news"}}`))
		require.NoError(t, err)
		_, err = MustPublishMessage(msg)
		assert.Error(t, err)
	})
}

func TestUnmarshalMessageMalformed(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not json", `hello`},
		{"missing type", `{"payload":{}}`},
		{"unknown type", `{"type":"PING","payload":{}}`},
		{"login without payload", `{"type":"LOGIN"}`},
		{"login without user", `{"type":"LOGIN","payload":{"password":"x"}}`},
		{"subscribe empty topic", `{"type":"SUBSCRIBE","payload":{"topic":"  "}}`},
		{"publish bad payload", `{"type":"PUBLISH","payload":"news"}`},
		{"schedule without time", `{"type":"SCHEDULE","payload":{"id":"a","topic":"news"}}`},
		{"schedule without id", `{"type":"SCHEDULE","payload":{"topic":"news","scheduledTime":1}}`},
		{"update without topic", `{"type":"UPDATE_SCHEDULED_MESSAGE","payload":{"id":"a","scheduledTime":1}}`},
		{"delete without id", `{"type":"DELETE_SCHEDULED_MESSAGE","payload":{"userId":"alice"}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := UnmarshalMessage([]byte(tt.data))
			require.Error(t, err)
			assert.True(t, IsMalformedError(err), "expected malformed error, got %T", err)
		})
	}
}

func TestMarshalMessage(t *testing.T) {
	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	out, err := MarshalNewMessageMessage(&model.Message{
		ID:        7,
		Topic:     "news",
		Content:   "hello",
		Sender:    "alice",
		SenderIP:  "127.0.0.1",
		Timestamp: ts,
	})
	require.NoError(t, err)

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(out, &got))
	assert.Equal(t, "MESSAGE", got["type"])

	payload := got["payload"].(map[string]interface{})
	assert.Equal(t, "news", payload["topic"])
	assert.Equal(t, "127.0.0.1", payload["senderIP"])
	assert.Equal(t, "2024-05-01T12:00:00Z", payload["timestamp"])
	_, hasScheduled := payload["scheduled"]
	assert.False(t, hasScheduled, "scheduled flag is omitted for direct publishes")

	out, err = MarshalNewScheduledMessagesList(nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"SCHEDULED_MESSAGES_LIST","payload":{"messages":[]}}`, string(out))

	out, err = MarshalNewLoggedInMessage("alice", nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"LOGGED_IN","payload":{"userId":"alice","topics":[]}}`, string(out))
}
