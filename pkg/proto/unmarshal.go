package proto

import (
	"encoding/json"
	"strings"
)

type envelope struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// UnmarshalMessage decodes an inbound envelope and returns its type together
// with the typed payload, e.g. LoginMessage for MessageTypeLogin. Any
// structural problem is reported as *MalformedError.
func UnmarshalMessage(data []byte) (MessageType, interface{}, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return "", nil, newMalformedError("", "invalid envelope: %s", err.Error())
	}

	if env.Type == "" {
		return "", nil, newMalformedError("", "envelope does not contain a message type")
	}

	switch env.Type {
	case MessageTypeLogin:
		return unmarshalLoginMessage(env)
	case MessageTypeSubscribe:
		return unmarshalSubscribeMessage(env)
	case MessageTypeUnsubscribe:
		return unmarshalUnsubscribeMessage(env)
	case MessageTypePublish:
		return unmarshalPublishMessage(env)
	case MessageTypeSchedule:
		return unmarshalScheduleMessage(env)
	case MessageTypeUpdateScheduledMessage:
		return unmarshalUpdateScheduledMessage(env)
	case MessageTypeDeleteScheduledMessage:
		return unmarshalDeleteScheduledMessage(env)
	case MessageTypeGetScheduledMessages:
		msg := GetScheduledMessages{}
		err := decodePayload(env, &msg, false)
		return env.Type, msg, err
	case MessageTypeGetHistoryMessages:
		msg := GetHistoryMessages{}
		err := decodePayload(env, &msg, false)
		return env.Type, msg, err
	}

	return env.Type, nil, newMalformedError(env.Type, "unknown message type")
}

func decodePayload(env envelope, v interface{}, required bool) error {
	if len(env.Payload) == 0 || string(env.Payload) == "null" {
		if required {
			return newMalformedError(env.Type, "payload is missing")
		}
		return nil
	}
	if err := json.Unmarshal(env.Payload, v); err != nil {
		return newMalformedError(env.Type, "invalid payload: %s", err.Error())
	}
	return nil
}

func requireField(msgType MessageType, name, value string) error {
	if strings.TrimSpace(value) == "" {
		return newMalformedError(msgType, "field '%s' is required", name)
	}
	return nil
}

func requireTime(msgType MessageType, value int64) error {
	if value <= 0 {
		return newMalformedError(msgType, "field 'scheduledTime' is required")
	}
	return nil
}

func unmarshalLoginMessage(env envelope) (MessageType, interface{}, error) {
	msg := LoginMessage{}
	if err := decodePayload(env, &msg, true); err != nil {
		return env.Type, nil, err
	}
	if err := requireField(env.Type, "userId", msg.UserID); err != nil {
		return env.Type, nil, err
	}
	return env.Type, msg, nil
}

func unmarshalSubscribeMessage(env envelope) (MessageType, interface{}, error) {
	msg := SubscribeMessage{}
	if err := decodePayload(env, &msg, true); err != nil {
		return env.Type, nil, err
	}
	if err := requireField(env.Type, "topic", msg.Topic); err != nil {
		return env.Type, nil, err
	}
	return env.Type, msg, nil
}

func unmarshalUnsubscribeMessage(env envelope) (MessageType, interface{}, error) {
	msg := UnsubscribeMessage{}
	if err := decodePayload(env, &msg, true); err != nil {
		return env.Type, nil, err
	}
	if err := requireField(env.Type, "topic", msg.Topic); err != nil {
		return env.Type, nil, err
	}
	return env.Type, msg, nil
}

func unmarshalPublishMessage(env envelope) (MessageType, interface{}, error) {
	msg := PublishMessage{}
	if err := decodePayload(env, &msg, true); err != nil {
		return env.Type, nil, err
	}
	if err := requireField(env.Type, "topic", msg.Topic); err != nil {
		return env.Type, nil, err
	}
	return env.Type, msg, nil
}

func unmarshalScheduleMessage(env envelope) (MessageType, interface{}, error) {
	msg := ScheduleMessage{}
	if err := decodePayload(env, &msg, true); err != nil {
		return env.Type, nil, err
	}
	if err := requireField(env.Type, "id", msg.ID); err != nil {
		return env.Type, nil, err
	}
	if err := requireField(env.Type, "topic", msg.Topic); err != nil {
		return env.Type, nil, err
	}
	if err := requireTime(env.Type, msg.ScheduledTime); err != nil {
		return env.Type, nil, err
	}
	return env.Type, msg, nil
}

func unmarshalUpdateScheduledMessage(env envelope) (MessageType, interface{}, error) {
	msg := UpdateScheduledMessage{}
	if err := decodePayload(env, &msg, true); err != nil {
		return env.Type, nil, err
	}
	if err := requireField(env.Type, "id", msg.ID); err != nil {
		return env.Type, nil, err
	}
	if err := requireField(env.Type, "topic", msg.Topic); err != nil {
		return env.Type, nil, err
	}
	if err := requireTime(env.Type, msg.ScheduledTime); err != nil {
		return env.Type, nil, err
	}
	return env.Type, msg, nil
}

func unmarshalDeleteScheduledMessage(env envelope) (MessageType, interface{}, error) {
	msg := DeleteScheduledMessage{}
	if err := decodePayload(env, &msg, true); err != nil {
		return env.Type, nil, err
	}
	if err := requireField(env.Type, "id", msg.ID); err != nil {
		return env.Type, nil, err
	}
	return env.Type, msg, nil
}
