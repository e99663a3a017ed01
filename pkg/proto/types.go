package proto

import "github.com/nsyszr/msgbroker/pkg/model"

type MessageType string

// Inbound message types
const (
	MessageTypeLogin                  MessageType = "LOGIN"
	MessageTypeSubscribe              MessageType = "SUBSCRIBE"
	MessageTypeUnsubscribe            MessageType = "UNSUBSCRIBE"
	MessageTypePublish                MessageType = "PUBLISH"
	MessageTypeSchedule               MessageType = "SCHEDULE"
	MessageTypeUpdateScheduledMessage MessageType = "UPDATE_SCHEDULED_MESSAGE"
	MessageTypeDeleteScheduledMessage MessageType = "DELETE_SCHEDULED_MESSAGE"
	MessageTypeGetScheduledMessages   MessageType = "GET_SCHEDULED_MESSAGES"
	MessageTypeGetHistoryMessages     MessageType = "GET_HISTORY_MESSAGES"
)

// Outbound message types
const (
	MessageTypeAuthError             MessageType = "AUTH_ERROR"
	MessageTypeLoggedIn              MessageType = "LOGGED_IN"
	MessageTypeTopicsUpdate          MessageType = "TOPICS_UPDATE"
	MessageTypeSubscribed            MessageType = "SUBSCRIBED"
	MessageTypeUnsubscribed          MessageType = "UNSUBSCRIBED"
	MessageTypeMessage               MessageType = "MESSAGE"
	MessageTypeScheduled             MessageType = "SCHEDULED"
	MessageTypeScheduledUpdated      MessageType = "SCHEDULED_UPDATED"
	MessageTypeScheduledDeleted      MessageType = "SCHEDULED_DELETED"
	MessageTypeScheduledMessagesList MessageType = "SCHEDULED_MESSAGES_LIST"
	MessageTypeHistoryMessagesList   MessageType = "HISTORY_MESSAGES_LIST"
	MessageTypeError                 MessageType = "ERROR"
)

func (msgType MessageType) String() string {
	return string(msgType)
}

type LoginMessage struct {
	UserID   string `json:"userId"`
	Password string `json:"password"`
}

type SubscribeMessage struct {
	Topic string `json:"topic"`
}

type UnsubscribeMessage struct {
	Topic string `json:"topic"`
}

type PublishMessage struct {
	Topic   string `json:"topic"`
	Content string `json:"content"`
	Sender  string `json:"sender"`
}

type ScheduleMessage struct {
	ID            string `json:"id"`
	Topic         string `json:"topic"`
	Content       string `json:"content"`
	Sender        string `json:"sender"`
	ScheduledTime int64  `json:"scheduledTime"`
}

type UpdateScheduledMessage struct {
	ID            string `json:"id"`
	Topic         string `json:"topic"`
	Content       string `json:"content"`
	ScheduledTime int64  `json:"scheduledTime"`
	UserID        string `json:"userId"`
}

type DeleteScheduledMessage struct {
	ID     string `json:"id"`
	UserID string `json:"userId"`
}

type GetScheduledMessages struct {
	UserID string `json:"userId"`
}

type GetHistoryMessages struct {
	UserID string `json:"userId"`
}

type AuthErrorMessage struct {
	Message string `json:"message"`
}

type LoggedInMessage struct {
	UserID string   `json:"userId"`
	Topics []string `json:"topics"`
}

type TopicsUpdateMessage struct {
	Topics []string `json:"topics"`
}

type SubscribedMessage struct {
	Topic string `json:"topic"`
}

type UnsubscribedMessage struct {
	Topic string `json:"topic"`
}

type ScheduledMessage struct {
	ID            string `json:"id"`
	ScheduledTime int64  `json:"scheduledTime"`
}

type ScheduledDeletedMessage struct {
	ID string `json:"id"`
}

type ScheduledMessagesList struct {
	Messages []model.ScheduledMessage `json:"messages"`
}

type HistoryMessagesList struct {
	Messages []model.Message `json:"messages"`
}

type ErrorMessage struct {
	Message string `json:"message"`
}
