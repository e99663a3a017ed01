package proto

import (
	"encoding/json"

	"github.com/nsyszr/msgbroker/pkg/model"
)

type outboundEnvelope struct {
	Type    MessageType `json:"type"`
	Payload interface{} `json:"payload"`
}

// MarshalMessage encodes payload into a {type, payload} envelope.
func MarshalMessage(msgType MessageType, payload interface{}) ([]byte, error) {
	return json.Marshal(&outboundEnvelope{
		Type:    msgType,
		Payload: payload,
	})
}

func MarshalNewAuthErrorMessage(message string) ([]byte, error) {
	return MarshalMessage(MessageTypeAuthError, &AuthErrorMessage{Message: message})
}

func MarshalNewLoggedInMessage(userID string, topics []string) ([]byte, error) {
	return MarshalMessage(MessageTypeLoggedIn, &LoggedInMessage{
		UserID: userID,
		Topics: nonNilStrings(topics),
	})
}

func MarshalNewTopicsUpdateMessage(topics []string) ([]byte, error) {
	return MarshalMessage(MessageTypeTopicsUpdate, &TopicsUpdateMessage{Topics: nonNilStrings(topics)})
}

func MarshalNewSubscribedMessage(topic string) ([]byte, error) {
	return MarshalMessage(MessageTypeSubscribed, &SubscribedMessage{Topic: topic})
}

func MarshalNewUnsubscribedMessage(topic string) ([]byte, error) {
	return MarshalMessage(MessageTypeUnsubscribed, &UnsubscribedMessage{Topic: topic})
}

func MarshalNewMessageMessage(m *model.Message) ([]byte, error) {
	return MarshalMessage(MessageTypeMessage, m)
}

func MarshalNewScheduledMessage(id string, scheduledTime int64) ([]byte, error) {
	return MarshalMessage(MessageTypeScheduled, &ScheduledMessage{ID: id, ScheduledTime: scheduledTime})
}

func MarshalNewScheduledUpdatedMessage(id string, scheduledTime int64) ([]byte, error) {
	return MarshalMessage(MessageTypeScheduledUpdated, &ScheduledMessage{ID: id, ScheduledTime: scheduledTime})
}

func MarshalNewScheduledDeletedMessage(id string) ([]byte, error) {
	return MarshalMessage(MessageTypeScheduledDeleted, &ScheduledDeletedMessage{ID: id})
}

func MarshalNewScheduledMessagesList(messages []model.ScheduledMessage) ([]byte, error) {
	if messages == nil {
		messages = []model.ScheduledMessage{}
	}
	return MarshalMessage(MessageTypeScheduledMessagesList, &ScheduledMessagesList{Messages: messages})
}

func MarshalNewHistoryMessagesList(messages []model.Message) ([]byte, error) {
	if messages == nil {
		messages = []model.Message{}
	}
	return MarshalMessage(MessageTypeHistoryMessagesList, &HistoryMessagesList{Messages: messages})
}

func MarshalNewErrorMessage(message string) ([]byte, error) {
	return MarshalMessage(MessageTypeError, &ErrorMessage{Message: message})
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
