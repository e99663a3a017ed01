package proto

import "fmt"

// The Must helpers assert the payload returned by UnmarshalMessage.

func MustLoginMessage(msg interface{}) (LoginMessage, error) {
	m, ok := msg.(LoginMessage)
	if !ok {
		return LoginMessage{}, fmt.Errorf("message is not a login message")
	}
	return m, nil
}

func MustSubscribeMessage(msg interface{}) (SubscribeMessage, error) {
	m, ok := msg.(SubscribeMessage)
	if !ok {
		return SubscribeMessage{}, fmt.Errorf("message is not a subscribe message")
	}
	return m, nil
}

func MustUnsubscribeMessage(msg interface{}) (UnsubscribeMessage, error) {
	m, ok := msg.(UnsubscribeMessage)
	if !ok {
		return UnsubscribeMessage{}, fmt.Errorf("message is not an unsubscribe message")
	}
	return m, nil
}

func MustPublishMessage(msg interface{}) (PublishMessage, error) {
	m, ok := msg.(PublishMessage)
	if !ok {
		return PublishMessage{}, fmt.Errorf("message is not a publish message")
	}
	return m, nil
}

func MustScheduleMessage(msg interface{}) (ScheduleMessage, error) {
	m, ok := msg.(ScheduleMessage)
	if !ok {
		return ScheduleMessage{}, fmt.Errorf("message is not a schedule message")
	}
	return m, nil
}

func MustUpdateScheduledMessage(msg interface{}) (UpdateScheduledMessage, error) {
	m, ok := msg.(UpdateScheduledMessage)
	if !ok {
		return UpdateScheduledMessage{}, fmt.Errorf("message is not an update scheduled message")
	}
	return m, nil
}

func MustDeleteScheduledMessage(msg interface{}) (DeleteScheduledMessage, error) {
	m, ok := msg.(DeleteScheduledMessage)
	if !ok {
		return DeleteScheduledMessage{}, fmt.Errorf("message is not a delete scheduled message")
	}
	return m, nil
}

func MustGetScheduledMessages(msg interface{}) (GetScheduledMessages, error) {
	m, ok := msg.(GetScheduledMessages)
	if !ok {
		return GetScheduledMessages{}, fmt.Errorf("message is not a get scheduled messages message")
	}
	return m, nil
}

func MustGetHistoryMessages(msg interface{}) (GetHistoryMessages, error) {
	m, ok := msg.(GetHistoryMessages)
	if !ok {
		return GetHistoryMessages{}, fmt.Errorf("message is not a get history messages message")
	}
	return m, nil
}
