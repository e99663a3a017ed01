package broker

import (
	"context"

	"github.com/google/uuid"
	"github.com/nsyszr/msgbroker/pkg/proto"
	log "github.com/sirupsen/logrus"
)

// Session is the broker side of an authenticated connection. ID, UserID and
// OriginAddress never change; the subscriptions belong to the broker
// goroutine.
type Session struct {
	ID            string
	UserID        string
	OriginAddress string

	conn          Conn
	subscriptions map[string]struct{}
}

func (sess *Session) subscribed(topic string) bool {
	_, ok := sess.subscriptions[topic]
	return ok
}

// send delivers data best-effort. A failure is logged and never retried.
func (sess *Session) send(data []byte) bool {
	if err := sess.conn.Send(data); err != nil {
		log.WithFields(log.Fields{
			"session": sess.ID,
			"userId":  sess.UserID,
		}).Warnf("broker failed to deliver to session: %v", err)
		return false
	}
	return true
}

// Register adds an authenticated connection and greets it with LOGGED_IN
// carrying the current topic directory. It must only be called after the
// credentials were accepted.
func (b *Broker) Register(ctx context.Context, conn Conn, userID, originAddress string) (*Session, error) {
	sess := &Session{
		ID:            uuid.New().String(),
		UserID:        userID,
		OriginAddress: originAddress,
		conn:          conn,
		subscriptions: make(map[string]struct{}),
	}

	err := b.exec(ctx, func() {
		b.sessions[sess.ID] = sess

		out, err := proto.MarshalNewLoggedInMessage(userID, b.topics.list())
		if err != nil {
			log.Errorf("broker could not marshal message: %v", err)
			return
		}
		sess.send(out)
	})
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"session": sess.ID,
		"userId":  userID,
		"ip":      originAddress,
	}).Info("broker registered session")
	return sess, nil
}

// Unregister removes the session. Other sessions and the topic directory are
// not affected.
func (b *Broker) Unregister(ctx context.Context, sess *Session) error {
	err := b.exec(ctx, func() {
		delete(b.sessions, sess.ID)
	})
	if err != nil {
		return err
	}

	log.WithFields(log.Fields{
		"session": sess.ID,
		"userId":  sess.UserID,
		"ip":      sess.OriginAddress,
	}).Info("broker unregistered session")
	return nil
}

// Subscribe adds topic to the session. A topic that is new to the directory
// is broadcast to all sessions with TOPICS_UPDATE.
func (b *Broker) Subscribe(ctx context.Context, sess *Session, topic string) error {
	return b.exec(ctx, func() {
		if b.topics.add(topic) {
			b.broadcastTopics()
		}
		sess.subscriptions[topic] = struct{}{}

		log.WithFields(log.Fields{
			"userId": sess.UserID,
			"topic":  topic,
		}).Info("broker subscribed session")
	})
}

// Unsubscribe removes topic from the session only, the directory keeps it.
func (b *Broker) Unsubscribe(ctx context.Context, sess *Session, topic string) error {
	return b.exec(ctx, func() {
		delete(sess.subscriptions, topic)

		log.WithFields(log.Fields{
			"userId": sess.UserID,
			"topic":  topic,
		}).Info("broker unsubscribed session")
	})
}

// Topics returns the topic directory in insertion order.
func (b *Broker) Topics(ctx context.Context) ([]string, error) {
	var out []string
	err := b.exec(ctx, func() {
		out = b.topics.list()
	})
	return out, err
}

func (b *Broker) subscribersOf(topic string) []*Session {
	out := make([]*Session, 0)
	for _, sess := range b.sessions {
		if sess.subscribed(topic) {
			out = append(out, sess)
		}
	}
	return out
}

func (b *Broker) broadcastTopics() {
	out, err := proto.MarshalNewTopicsUpdateMessage(b.topics.list())
	if err != nil {
		log.Errorf("broker could not marshal message: %v", err)
		return
	}
	b.broadcast(out)
}

func (b *Broker) broadcast(data []byte) {
	for _, sess := range b.sessions {
		sess.send(data)
	}
}
