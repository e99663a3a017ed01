package gateway

import (
	"context"
	"errors"
	"strings"

	"github.com/nsyszr/msgbroker/pkg/broker"
	"github.com/nsyszr/msgbroker/pkg/gateway/websocket"
	"github.com/nsyszr/msgbroker/pkg/model"
	"github.com/nsyszr/msgbroker/pkg/proto"
	log "github.com/sirupsen/logrus"
)

const authErrorText = "invalid user name or password"

var (
	errNotLoggedIn  = errors.New("connection is not logged in")
	errUserMismatch = errors.New("request does not belong to the logged in user")
)

type status int

const (
	statusEstablished status = iota
	statusLoggedIn
)

// connection is the protocol state of one websocket connection. It is only
// used by the goroutine reading the driver's inbox.
type connection struct {
	h      *Handler
	driver *websocket.Driver
	origin string
	status status
	sess   *broker.Session
}

func newConnection(h *Handler, driver *websocket.Driver, origin string) *connection {
	return &connection{
		h:      h,
		driver: driver,
		origin: origin,
		status: statusEstablished,
	}
}

// serve handles inbound messages until the driver stops.
func (cs *connection) serve(ctx context.Context) {
	for data := range cs.driver.Inbox {
		cs.handleMessage(ctx, data)
	}

	if cs.sess == nil {
		log.WithField("ip", cs.origin).Info("gateway closed connection")
		return
	}

	err := cs.h.broker.Unregister(ctx, cs.sess)
	if err != nil && err != broker.ErrClosed {
		log.WithField("session", cs.sess.ID).Errorf("gateway failed to unregister session: %v", err)
	}
	log.WithFields(log.Fields{
		"userId": cs.sess.UserID,
		"ip":     cs.origin,
	}).Info("gateway client disconnected")
}

func (cs *connection) handleMessage(ctx context.Context, data []byte) {
	msgType, msg, err := proto.UnmarshalMessage(data)
	if err != nil {
		if proto.IsMalformedError(err) {
			log.WithField("ip", cs.origin).Warnf("gateway dropped malformed message: %v", err)
		} else {
			log.WithField("ip", cs.origin).Errorf("gateway failed to decode message: %v", err)
		}
		return
	}

	var h messageHandler
	switch msgType {
	case proto.MessageTypeLogin:
		h = cs.loginHandler()
	case proto.MessageTypeSubscribe:
		h = cs.ensureLoggedIn(cs.subscribeHandler())
	case proto.MessageTypeUnsubscribe:
		h = cs.ensureLoggedIn(cs.unsubscribeHandler())
	case proto.MessageTypePublish:
		h = cs.ensureLoggedIn(cs.publishHandler())
	case proto.MessageTypeSchedule:
		h = cs.ensureLoggedIn(cs.scheduleHandler())
	case proto.MessageTypeUpdateScheduledMessage:
		h = cs.ensureLoggedIn(cs.updateScheduledHandler())
	case proto.MessageTypeDeleteScheduledMessage:
		h = cs.ensureLoggedIn(cs.deleteScheduledHandler())
	case proto.MessageTypeGetScheduledMessages:
		h = cs.ensureLoggedIn(cs.getScheduledHandler())
	case proto.MessageTypeGetHistoryMessages:
		h = cs.ensureLoggedIn(cs.getHistoryHandler())
	default:
		log.WithField("type", msgType).Warn("gateway received unhandled message")
		return
	}

	reply, flag, err := h.Handle(ctx, msg)
	if err != nil {
		reply = cs.replyForError(msgType, err)
	}
	if reply == nil {
		return
	}

	if flag == websocket.FlagCloseGracefully {
		err = cs.driver.SendAndClose(reply)
	} else {
		err = cs.driver.Send(reply)
	}
	if err != nil {
		log.WithField("ip", cs.origin).Warnf("gateway failed to send reply: %v", err)
	}
}

// replyForError logs err and returns the ERROR reply for the client, or nil
// if the client gets none.
func (cs *connection) replyForError(msgType proto.MessageType, err error) []byte {
	fields := log.Fields{
		"type": msgType,
		"ip":   cs.origin,
	}
	if cs.sess != nil {
		fields["userId"] = cs.sess.UserID
	}

	var se *broker.ScheduleError
	switch {
	case err == errNotLoggedIn:
		log.WithFields(fields).Warn("gateway dropped message of unauthenticated connection")
		return nil
	case err == errUserMismatch, errors.As(err, &se):
		log.WithFields(fields).Warnf("gateway rejected request: %v", err)
		return cs.errorMessage(err.Error())
	}

	log.WithFields(fields).Errorf("gateway failed to handle message: %v", err)
	return nil
}

func (cs *connection) errorMessage(text string) []byte {
	out, err := proto.MarshalNewErrorMessage(text)
	if err != nil {
		log.Errorf("gateway could not marshal message: %v", err)
		return nil
	}
	return out
}

// messageHandler is implemented by the handlers of the inbound message
// types. Wrapping handlers, e.g. ensureLoggedIn, work like http middleware.
type messageHandler interface {
	Handle(ctx context.Context, msg interface{}) ([]byte, websocket.Flag, error)
}

type messageHandlerFunc func(ctx context.Context, msg interface{}) ([]byte, websocket.Flag, error)

func (f messageHandlerFunc) Handle(ctx context.Context, msg interface{}) ([]byte, websocket.Flag, error) {
	return f(ctx, msg)
}

func (cs *connection) ensureLoggedIn(next messageHandler) messageHandler {
	return messageHandlerFunc(func(ctx context.Context, msg interface{}) ([]byte, websocket.Flag, error) {
		if cs.status != statusLoggedIn {
			return nil, websocket.FlagContinue, errNotLoggedIn
		}
		return next.Handle(ctx, msg)
	})
}

// ensureUser rejects requests naming another user than the logged in one.
// An empty user id means the logged in user.
func (cs *connection) ensureUser(userID string) error {
	if userID != "" && userID != cs.sess.UserID {
		return errUserMismatch
	}
	return nil
}

func (cs *connection) loginHandler() messageHandlerFunc {
	return messageHandlerFunc(func(ctx context.Context, msg interface{}) ([]byte, websocket.Flag, error) {
		loginMsg, err := proto.MustLoginMessage(msg)
		if err != nil {
			return nil, websocket.FlagContinue, err
		}

		if cs.status == statusLoggedIn {
			log.WithFields(log.Fields{
				"userId": cs.sess.UserID,
				"ip":     cs.origin,
			}).Warn("gateway ignored login of logged in connection")
			return nil, websocket.FlagContinue, nil
		}

		if !cs.h.auth.Authenticate(loginMsg.UserID, loginMsg.Password) {
			log.WithFields(log.Fields{
				"userId": loginMsg.UserID,
				"ip":     cs.origin,
			}).Warn("gateway rejected login")
			out, err := proto.MarshalNewAuthErrorMessage(authErrorText)
			return out, websocket.FlagCloseGracefully, err
		}

		sess, err := cs.h.broker.Register(ctx, cs.driver, loginMsg.UserID, cs.origin)
		if err != nil {
			return nil, websocket.FlagContinue, err
		}
		cs.sess = sess
		cs.status = statusLoggedIn

		log.WithFields(log.Fields{
			"userId": sess.UserID,
			"ip":     cs.origin,
		}).Info("gateway client logged in")

		// LOGGED_IN is sent by the broker.
		return nil, websocket.FlagContinue, nil
	})
}

func (cs *connection) subscribeHandler() messageHandlerFunc {
	return messageHandlerFunc(func(ctx context.Context, msg interface{}) ([]byte, websocket.Flag, error) {
		subMsg, err := proto.MustSubscribeMessage(msg)
		if err != nil {
			return nil, websocket.FlagContinue, err
		}

		if err := cs.h.broker.Subscribe(ctx, cs.sess, subMsg.Topic); err != nil {
			return nil, websocket.FlagContinue, err
		}

		out, err := proto.MarshalNewSubscribedMessage(subMsg.Topic)
		return out, websocket.FlagContinue, err
	})
}

func (cs *connection) unsubscribeHandler() messageHandlerFunc {
	return messageHandlerFunc(func(ctx context.Context, msg interface{}) ([]byte, websocket.Flag, error) {
		unsubMsg, err := proto.MustUnsubscribeMessage(msg)
		if err != nil {
			return nil, websocket.FlagContinue, err
		}

		if err := cs.h.broker.Unsubscribe(ctx, cs.sess, unsubMsg.Topic); err != nil {
			return nil, websocket.FlagContinue, err
		}

		out, err := proto.MarshalNewUnsubscribedMessage(unsubMsg.Topic)
		return out, websocket.FlagContinue, err
	})
}

func (cs *connection) publishHandler() messageHandlerFunc {
	return messageHandlerFunc(func(ctx context.Context, msg interface{}) ([]byte, websocket.Flag, error) {
		pubMsg, err := proto.MustPublishMessage(msg)
		if err != nil {
			return nil, websocket.FlagContinue, err
		}

		sender := pubMsg.Sender
		if strings.TrimSpace(sender) == "" {
			sender = cs.sess.UserID
		}

		_, err = cs.h.broker.Publish(ctx, broker.PublishRequest{
			Topic:         pubMsg.Topic,
			Content:       pubMsg.Content,
			Sender:        sender,
			OriginAddress: cs.origin,
		})
		return nil, websocket.FlagContinue, err
	})
}

func (cs *connection) scheduleHandler() messageHandlerFunc {
	return messageHandlerFunc(func(ctx context.Context, msg interface{}) ([]byte, websocket.Flag, error) {
		schedMsg, err := proto.MustScheduleMessage(msg)
		if err != nil {
			return nil, websocket.FlagContinue, err
		}

		// The entry is owned by the logged in user, whatever the payload
		// claims, so the same session can update or delete it later.
		if schedMsg.Sender != "" && schedMsg.Sender != cs.sess.UserID {
			log.WithFields(log.Fields{
				"userId": cs.sess.UserID,
				"sender": schedMsg.Sender,
			}).Debug("gateway replaced sender of scheduled message")
		}

		err = cs.h.broker.Schedule(ctx, model.ScheduledMessage{
			ID:            schedMsg.ID,
			Topic:         schedMsg.Topic,
			Content:       schedMsg.Content,
			Sender:        cs.sess.UserID,
			ScheduledTime: schedMsg.ScheduledTime,
			ClientIP:      cs.origin,
		})
		if err != nil {
			return nil, websocket.FlagContinue, err
		}

		out, err := proto.MarshalNewScheduledMessage(schedMsg.ID, schedMsg.ScheduledTime)
		return out, websocket.FlagContinue, err
	})
}

func (cs *connection) updateScheduledHandler() messageHandlerFunc {
	return messageHandlerFunc(func(ctx context.Context, msg interface{}) ([]byte, websocket.Flag, error) {
		updMsg, err := proto.MustUpdateScheduledMessage(msg)
		if err != nil {
			return nil, websocket.FlagContinue, err
		}
		if err := cs.ensureUser(updMsg.UserID); err != nil {
			return nil, websocket.FlagContinue, err
		}

		err = cs.h.broker.Update(ctx, broker.UpdateRequest{
			ID:            updMsg.ID,
			RequesterID:   cs.sess.UserID,
			Topic:         updMsg.Topic,
			Content:       updMsg.Content,
			ScheduledTime: updMsg.ScheduledTime,
		})
		if err != nil {
			return nil, websocket.FlagContinue, err
		}

		out, err := proto.MarshalNewScheduledUpdatedMessage(updMsg.ID, updMsg.ScheduledTime)
		return out, websocket.FlagContinue, err
	})
}

func (cs *connection) deleteScheduledHandler() messageHandlerFunc {
	return messageHandlerFunc(func(ctx context.Context, msg interface{}) ([]byte, websocket.Flag, error) {
		delMsg, err := proto.MustDeleteScheduledMessage(msg)
		if err != nil {
			return nil, websocket.FlagContinue, err
		}
		if err := cs.ensureUser(delMsg.UserID); err != nil {
			return nil, websocket.FlagContinue, err
		}

		if err := cs.h.broker.Cancel(ctx, delMsg.ID, cs.sess.UserID); err != nil {
			return nil, websocket.FlagContinue, err
		}

		out, err := proto.MarshalNewScheduledDeletedMessage(delMsg.ID)
		return out, websocket.FlagContinue, err
	})
}

func (cs *connection) getScheduledHandler() messageHandlerFunc {
	return messageHandlerFunc(func(ctx context.Context, msg interface{}) ([]byte, websocket.Flag, error) {
		getMsg, err := proto.MustGetScheduledMessages(msg)
		if err != nil {
			return nil, websocket.FlagContinue, err
		}
		if err := cs.ensureUser(getMsg.UserID); err != nil {
			return nil, websocket.FlagContinue, err
		}

		pending, err := cs.h.broker.Pending(ctx)
		if err != nil {
			return nil, websocket.FlagContinue, err
		}

		log.WithFields(log.Fields{
			"userId": cs.sess.UserID,
			"count":  len(pending),
		}).Debug("gateway sends scheduled messages")

		out, err := proto.MarshalNewScheduledMessagesList(pending)
		return out, websocket.FlagContinue, err
	})
}

func (cs *connection) getHistoryHandler() messageHandlerFunc {
	return messageHandlerFunc(func(ctx context.Context, msg interface{}) ([]byte, websocket.Flag, error) {
		getMsg, err := proto.MustGetHistoryMessages(msg)
		if err != nil {
			return nil, websocket.FlagContinue, err
		}
		if err := cs.ensureUser(getMsg.UserID); err != nil {
			return nil, websocket.FlagContinue, err
		}

		history, err := cs.h.broker.History(ctx, cs.h.historyWindow)
		if err != nil {
			return nil, websocket.FlagContinue, err
		}

		log.WithFields(log.Fields{
			"userId": cs.sess.UserID,
			"count":  len(history),
		}).Debug("gateway sends history messages")

		out, err := proto.MarshalNewHistoryMessagesList(history)
		return out, websocket.FlagContinue, err
	})
}
