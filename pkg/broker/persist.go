package broker

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nsyszr/msgbroker/pkg/model"
	"github.com/nsyszr/msgbroker/pkg/storage"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// writer saves snapshots off the broker goroutine. Only the latest submitted
// snapshot of each kind is kept, older ones are dropped unwritten.
type writer struct {
	store   storage.Interface
	timeout time.Duration

	mu        sync.Mutex
	messages  *model.MessageSnapshot
	scheduled *model.ScheduledSnapshot

	wakeCh chan struct{}
	stopCh chan struct{}
	doneCh chan struct{}
}

func newWriter(store storage.Interface, timeout time.Duration) *writer {
	return &writer{
		store:   store,
		timeout: timeout,
		wakeCh:  make(chan struct{}, 1),
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}
}

func (w *writer) start() {
	go w.loop()
}

// submit queues snapshots for writing. A nil snapshot leaves the queued one
// of that kind untouched.
func (w *writer) submit(messages *model.MessageSnapshot, scheduled *model.ScheduledSnapshot) {
	w.mu.Lock()
	if messages != nil {
		w.messages = messages
	}
	if scheduled != nil {
		w.scheduled = scheduled
	}
	w.mu.Unlock()

	select {
	case w.wakeCh <- struct{}{}:
	default:
	}
}

// stop writes whatever is still queued and waits for the loop to exit.
func (w *writer) stop() {
	close(w.stopCh)
	<-w.doneCh
}

func (w *writer) loop() {
	defer close(w.doneCh)

	for {
		select {
		case <-w.wakeCh:
			w.flush()
		case <-w.stopCh:
			w.flush()
			return
		}
	}
}

func (w *writer) flush() {
	w.mu.Lock()
	messages, scheduled := w.messages, w.scheduled
	w.messages, w.scheduled = nil, nil
	w.mu.Unlock()

	if messages != nil {
		ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
		if err := w.store.Messages().Save(ctx, messages); err != nil {
			log.Errorf("broker failed to save messages: %v", err)
		} else {
			log.WithFields(log.Fields{
				"messages": len(messages.Messages),
				"topics":   len(messages.Topics),
			}).Debug("broker saved messages")
		}
		cancel()
	}

	if scheduled != nil {
		ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
		if err := w.store.Scheduled().Save(ctx, scheduled); err != nil {
			log.Errorf("broker failed to save scheduled messages: %v", err)
		} else {
			log.WithField("scheduled", len(scheduled.ScheduledMessages)).Debug("broker saved scheduled messages")
		}
		cancel()
	}
}

func (b *Broker) messageSnapshot() *model.MessageSnapshot {
	return &model.MessageSnapshot{
		Messages: append(make([]model.Message, 0, len(b.messages)), b.messages...),
		Topics:   b.topics.list(),
		SavedAt:  b.clock.Now().UTC(),
	}
}

func (b *Broker) scheduledSnapshot() *model.ScheduledSnapshot {
	return &model.ScheduledSnapshot{
		ScheduledMessages: b.sched.entries(b.clock.Now(), false),
		SavedAt:           b.clock.Now().UTC(),
	}
}

// save queues both snapshots, called by the periodic tick.
func (b *Broker) save() {
	if b.writer == nil {
		return
	}
	b.writer.submit(b.messageSnapshot(), b.scheduledSnapshot())
}

// saveScheduled queues the scheduled snapshot after every change to the
// pending entries.
func (b *Broker) saveScheduled() {
	if b.writer == nil {
		return
	}
	b.writer.submit(nil, b.scheduledSnapshot())
}

// Load restores the message log, the topic directory and the pending
// scheduled messages from the store. It must be called before Run. Missing
// snapshots are not an error. Scheduled messages that became due while the
// broker was down are discarded and never delivered. If the message log
// cannot be read, new message ids continue after the highest stored id when
// the store can report it.
func (b *Broker) Load(ctx context.Context) error {
	if atomic.LoadInt32(&b.started) != 0 {
		return ErrAlreadyStarted
	}
	if b.store == nil {
		return nil
	}

	msnap, err := b.store.Messages().Load(ctx)
	switch {
	case storage.IsNotFound(err):
		log.Info("broker found no saved messages")
	case err != nil:
		b.continueSequence(ctx)
		return errors.Wrap(err, "failed to load messages")
	default:
		b.restoreMessages(msnap)
	}

	ssnap, err := b.store.Scheduled().Load(ctx)
	switch {
	case storage.IsNotFound(err):
		log.Info("broker found no saved scheduled messages")
	case err != nil:
		return errors.Wrap(err, "failed to load scheduled messages")
	default:
		b.restoreScheduled(ssnap)
	}

	return nil
}

// continueSequence moves the message id counter past the ids already stored,
// so an unreadable log does not make new messages reuse them.
func (b *Broker) continueSequence(ctx context.Context) {
	seq, ok := b.store.Messages().(storage.MessageSequence)
	if !ok {
		return
	}
	lastID, err := seq.LastMessageID(ctx)
	if err != nil {
		log.Errorf("broker failed to find last message id: %v", err)
		return
	}
	if lastID >= b.nextID {
		b.nextID = lastID + 1
	}
	log.WithField("nextId", b.nextID).Warn("broker continues message ids after unreadable log")
}

func (b *Broker) restoreMessages(snap *model.MessageSnapshot) {
	b.messages = append(make([]model.Message, 0, len(snap.Messages)), snap.Messages...)
	for _, m := range b.messages {
		if m.ID >= b.nextID {
			b.nextID = m.ID + 1
		}
	}
	for _, topic := range snap.Topics {
		b.topics.add(topic)
	}

	log.WithFields(log.Fields{
		"messages": len(b.messages),
		"topics":   len(b.topics.names),
		"savedAt":  snap.SavedAt,
	}).Info("broker restored messages")
}

func (b *Broker) restoreScheduled(snap *model.ScheduledSnapshot) {
	now := b.clock.Now()
	restored, discarded := 0, 0
	for _, entry := range snap.ScheduledMessages {
		if !entry.DueAfter(now) {
			log.WithFields(log.Fields{
				"id":     entry.ID,
				"topic":  entry.Topic,
				"sender": entry.Sender,
			}).Warn("broker discards overdue scheduled message")
			discarded++
			continue
		}
		b.sched.add(entry)
		restored++
	}

	log.WithFields(log.Fields{
		"scheduled": restored,
		"discarded": discarded,
		"savedAt":   snap.SavedAt,
	}).Info("broker restored scheduled messages")
}
