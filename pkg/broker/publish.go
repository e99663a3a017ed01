package broker

import (
	"context"
	"sort"
	"time"

	"github.com/nsyszr/msgbroker/pkg/model"
	"github.com/nsyszr/msgbroker/pkg/proto"
	log "github.com/sirupsen/logrus"
)

// PublishRequest describes a message to publish. Scheduled is set for
// messages produced by the scheduler.
type PublishRequest struct {
	Topic         string
	Content       string
	Sender        string
	OriginAddress string
	Scheduled     bool
}

// Publish appends a message to the log and delivers it to every session
// currently subscribed to its topic. Publishing to a topic without
// subscribers, or to a topic that is not in the directory, is not an error.
func (b *Broker) Publish(ctx context.Context, req PublishRequest) (model.Message, error) {
	var m model.Message
	err := b.exec(ctx, func() {
		m = b.publish(req)
	})
	return m, err
}

func (b *Broker) publish(req PublishRequest) model.Message {
	m := model.Message{
		ID:        b.nextID,
		Topic:     req.Topic,
		Content:   req.Content,
		Sender:    req.Sender,
		SenderIP:  req.OriginAddress,
		Timestamp: b.clock.Now().UTC(),
		Scheduled: req.Scheduled,
	}
	b.nextID++
	b.messages = append(b.messages, m)

	delivered := 0
	out, err := proto.MarshalNewMessageMessage(&m)
	if err != nil {
		log.Errorf("broker could not marshal message: %v", err)
	} else {
		for _, sess := range b.subscribersOf(m.Topic) {
			if sess.send(out) {
				delivered++
			}
		}
	}

	if b.mirror != nil {
		if err := b.mirror.MirrorMessage(&m); err != nil {
			log.WithField("messageId", m.ID).Errorf("broker failed to mirror message: %v", err)
		}
	}

	log.WithFields(log.Fields{
		"messageId": m.ID,
		"topic":     m.Topic,
		"sender":    m.Sender,
		"ip":        m.SenderIP,
		"scheduled": m.Scheduled,
		"delivered": delivered,
	}).Info("broker published message")

	return m
}

// History returns the messages published within the last window, newest
// first.
func (b *Broker) History(ctx context.Context, window time.Duration) ([]model.Message, error) {
	var out []model.Message
	err := b.exec(ctx, func() {
		out = b.history(window)
	})
	return out, err
}

func (b *Broker) history(window time.Duration) []model.Message {
	now := b.clock.Now()
	from := now.Add(-window)

	out := make([]model.Message, 0)
	for _, m := range b.messages {
		if m.Timestamp.Before(from) || m.Timestamp.After(now) {
			continue
		}
		out = append(out, m)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.After(out[j].Timestamp)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

// Messages returns a copy of the complete message log in publish order.
func (b *Broker) Messages(ctx context.Context) ([]model.Message, error) {
	var out []model.Message
	err := b.exec(ctx, func() {
		out = append(make([]model.Message, 0, len(b.messages)), b.messages...)
	})
	return out, err
}
