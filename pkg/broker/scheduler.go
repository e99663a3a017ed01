package broker

import (
	"context"
	"sort"
	"strings"

	"github.com/nsyszr/msgbroker/pkg/model"
	"github.com/nsyszr/msgbroker/pkg/proto"
	log "github.com/sirupsen/logrus"
)

// UpdateRequest changes topic, content and due time of a pending scheduled
// message owned by RequesterID.
type UpdateRequest struct {
	ID            string
	RequesterID   string
	Topic         string
	Content       string
	ScheduledTime int64
}

// Schedule registers entry for delivery at its scheduled time. A pending
// entry with the same id is replaced if it has the same sender, otherwise
// the pending entry is kept and a permission error is returned. An entry
// that is not due in the future is published right away and never becomes
// pending.
func (b *Broker) Schedule(ctx context.Context, entry model.ScheduledMessage) error {
	if strings.TrimSpace(entry.ID) == "" || strings.TrimSpace(entry.Topic) == "" {
		return newScheduleError(ErrReasonInvalidArgument, entry.ID)
	}
	var err error
	if e := b.exec(ctx, func() {
		if existing, ok := b.sched.get(entry.ID); ok && existing.Sender != entry.Sender {
			log.WithFields(log.Fields{
				"id":     entry.ID,
				"sender": entry.Sender,
				"owner":  existing.Sender,
			}).Warn("broker rejected replacing scheduled message of another sender")
			err = newScheduleError(ErrReasonPermissionDenied, entry.ID)
			return
		}
		b.schedule(entry)
	}); e != nil {
		return e
	}
	return err
}

// Update replaces a pending entry like Schedule does. Only the sender of the
// entry may update it.
func (b *Broker) Update(ctx context.Context, req UpdateRequest) error {
	var err error
	if e := b.exec(ctx, func() {
		err = b.update(req)
	}); e != nil {
		return e
	}
	return err
}

// Cancel removes a pending entry. Only the sender of the entry may cancel it.
func (b *Broker) Cancel(ctx context.Context, id, requesterID string) error {
	var err error
	if e := b.exec(ctx, func() {
		err = b.cancel(id, requesterID)
	}); e != nil {
		return e
	}
	return err
}

// Pending returns all entries due in the future ordered by due time.
func (b *Broker) Pending(ctx context.Context) ([]model.ScheduledMessage, error) {
	var out []model.ScheduledMessage
	err := b.exec(ctx, func() {
		out = b.pending()
	})
	return out, err
}

func (b *Broker) schedule(entry model.ScheduledMessage) {
	if _, ok := b.sched.remove(entry.ID); ok {
		log.WithField("id", entry.ID).Debug("broker replaces scheduled message")
	}

	fields := log.Fields{
		"id":            entry.ID,
		"topic":         entry.Topic,
		"sender":        entry.Sender,
		"ip":            entry.ClientIP,
		"scheduledTime": entry.DueAt().UTC().Format("2006-01-02T15:04:05.000Z07:00"),
	}

	if !entry.DueAfter(b.clock.Now()) {
		log.WithFields(fields).Info("broker publishes scheduled message immediately")
		b.publish(PublishRequest{
			Topic:         entry.Topic,
			Content:       entry.Content,
			Sender:        entry.Sender,
			OriginAddress: entry.ClientIP,
			Scheduled:     true,
		})
	} else {
		b.sched.add(entry)
		log.WithFields(fields).Info("broker scheduled message")
	}

	b.broadcastPending()
	b.saveScheduled()
}

func (b *Broker) update(req UpdateRequest) error {
	existing, err := b.ownedEntry(req.ID, req.RequesterID)
	if err != nil {
		return err
	}

	b.schedule(model.ScheduledMessage{
		ID:            req.ID,
		Topic:         req.Topic,
		Content:       req.Content,
		Sender:        existing.Sender,
		ScheduledTime: req.ScheduledTime,
		ClientIP:      existing.ClientIP,
	})
	return nil
}

func (b *Broker) cancel(id, requesterID string) error {
	if _, err := b.ownedEntry(id, requesterID); err != nil {
		return err
	}

	b.sched.remove(id)
	log.WithFields(log.Fields{
		"id":     id,
		"userId": requesterID,
	}).Info("broker cancelled scheduled message")

	b.broadcastPending()
	b.saveScheduled()
	return nil
}

func (b *Broker) ownedEntry(id, requesterID string) (model.ScheduledMessage, error) {
	entry, ok := b.sched.get(id)
	if !ok {
		log.WithFields(log.Fields{"id": id, "userId": requesterID}).Warn("broker found no scheduled message")
		return entry, newScheduleError(ErrReasonNotFound, id)
	}
	if entry.Sender != requesterID {
		log.WithFields(log.Fields{"id": id, "userId": requesterID}).Warn("broker denied access to scheduled message")
		return entry, newScheduleError(ErrReasonPermissionDenied, id)
	}
	return entry, nil
}

// pending filters entries whose time has come but which were not fired yet.
func (b *Broker) pending() []model.ScheduledMessage {
	return b.sched.entries(b.clock.Now(), true)
}

// fireDue publishes every entry that is due and removes it.
func (b *Broker) fireDue() {
	now := b.clock.Now()
	fired := 0
	for {
		item := b.sched.popDue(now)
		if item == nil {
			break
		}

		entry := item.entry
		b.publish(PublishRequest{
			Topic:         entry.Topic,
			Content:       entry.Content,
			Sender:        entry.Sender,
			OriginAddress: entry.ClientIP,
			Scheduled:     true,
		})
		log.WithFields(log.Fields{
			"id":     entry.ID,
			"topic":  entry.Topic,
			"sender": entry.Sender,
		}).Info("broker fired scheduled message")
		fired++
	}

	if fired > 0 {
		b.broadcastPending()
		b.saveScheduled()
	}
}

func (b *Broker) broadcastPending() {
	pending := b.pending()
	out, err := proto.MarshalNewScheduledMessagesList(pending)
	if err != nil {
		log.Errorf("broker could not marshal message: %v", err)
		return
	}
	b.broadcast(out)
	log.WithField("count", len(pending)).Debug("broker broadcast scheduled messages")
}

func sortItems(items scheduleHeap) {
	sort.Slice(items, func(i, j int) bool {
		return items.Less(i, j)
	})
}
