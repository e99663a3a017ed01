package broker

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/nsyszr/msgbroker/pkg/model"
	"github.com/nsyszr/msgbroker/pkg/storage"
	log "github.com/sirupsen/logrus"
)

const (
	defaultSaveInterval = 5 * time.Minute
	defaultSaveTimeout  = 10 * time.Second
)

// Conn is the outbound side of a client connection. Send must not block, a
// connection that cannot take more data returns an error instead.
type Conn interface {
	Send(data []byte) error
	Close() error
}

// Mirror receives every message after it was delivered to the subscribers,
// e.g. to forward it to an external event bus.
type Mirror interface {
	MirrorMessage(m *model.Message) error
}

// Options contains the collaborators of a broker. All fields are optional.
// Without a Store nothing is loaded or saved.
type Options struct {
	Store        storage.Interface
	Mirror       Mirror
	Clock        Clock
	SaveInterval time.Duration
	SaveTimeout  time.Duration
}

// Broker owns the session registry, the topic directory, the message log and
// the pending scheduled messages. All of them are only touched by the
// goroutine executing Run; the exported methods hand their work over to it
// and wait for the result.
type Broker struct {
	store        storage.Interface
	mirror       Mirror
	clock        Clock
	saveInterval time.Duration
	writer       *writer

	cmdCh   chan func()
	doneCh  chan struct{}
	started int32

	sessions map[string]*Session
	topics   *topicDirectory
	messages []model.Message
	nextID   int64
	sched    *scheduler
}

// New creates a broker. Call Load before Run to restore persisted state.
func New(opts Options) *Broker {
	b := &Broker{
		store:        opts.Store,
		mirror:       opts.Mirror,
		clock:        opts.Clock,
		saveInterval: opts.SaveInterval,
		cmdCh:        make(chan func()),
		doneCh:       make(chan struct{}),
		sessions:     make(map[string]*Session),
		topics:       newTopicDirectory(),
		messages:     make([]model.Message, 0),
		nextID:       1,
		sched:        newScheduler(),
	}
	if b.clock == nil {
		b.clock = realClock{}
	}
	if b.saveInterval == 0 {
		b.saveInterval = defaultSaveInterval
	}
	if b.store != nil {
		timeout := opts.SaveTimeout
		if timeout <= 0 {
			timeout = defaultSaveTimeout
		}
		b.writer = newWriter(b.store, timeout)
	}
	return b
}

// Run processes commands, fires due scheduled messages and saves snapshots
// until ctx is cancelled. On return the state was saved a last time and all
// session connections are closed.
func (b *Broker) Run(ctx context.Context) error {
	if !atomic.CompareAndSwapInt32(&b.started, 0, 1) {
		return ErrAlreadyStarted
	}
	defer close(b.doneCh)

	var tickCh <-chan time.Time
	if b.writer != nil {
		b.writer.start()
		if b.saveInterval > 0 {
			ticker := time.NewTicker(b.saveInterval)
			defer ticker.Stop()
			tickCh = ticker.C
		}
	}

	log.WithFields(log.Fields{
		"messages":  len(b.messages),
		"topics":    len(b.topics.names),
		"scheduled": b.sched.len(),
	}).Info("broker started")

	for {
		b.fireDue()

		timer := b.nextTimer()
		var timerCh <-chan time.Time
		if timer != nil {
			timerCh = timer.C
		}

		select {
		case <-ctx.Done():
			stopTimer(timer)
			b.shutdown()
			return nil
		case fn := <-b.cmdCh:
			stopTimer(timer)
			// Entries that became due win against the command, e.g. a cancel
			// arriving together with the expiry finds the entry fired.
			b.fireDue()
			fn()
		case <-timerCh:
		case <-tickCh:
			stopTimer(timer)
			b.save()
		}
	}
}

// Done is closed after Run returned.
func (b *Broker) Done() <-chan struct{} {
	return b.doneCh
}

// exec runs fn on the broker goroutine and waits until it finished.
func (b *Broker) exec(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	cmd := func() {
		defer close(done)
		fn()
	}

	select {
	case b.cmdCh <- cmd:
	case <-b.doneCh:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	<-done
	return nil
}

// nextTimer arms a timer for the soonest pending entry only.
func (b *Broker) nextTimer() *time.Timer {
	item := b.sched.peek()
	if item == nil {
		return nil
	}
	wait := item.dueAt.Sub(b.clock.Now())
	if wait < 0 {
		wait = 0
	}
	return time.NewTimer(wait)
}

func stopTimer(t *time.Timer) {
	if t != nil {
		t.Stop()
	}
}

func (b *Broker) shutdown() {
	if b.writer != nil {
		b.writer.submit(b.messageSnapshot(), b.scheduledSnapshot())
		b.writer.stop()
	}

	for _, sess := range b.sessions {
		if err := sess.conn.Close(); err != nil {
			log.WithField("session", sess.ID).Debugf("broker failed to close session: %v", err)
		}
	}

	log.WithFields(log.Fields{
		"messages":  len(b.messages),
		"scheduled": b.sched.len(),
	}).Info("broker stopped")
}

// Stats is a point-in-time summary of the broker state.
type Stats struct {
	Sessions  int `json:"sessions"`
	Topics    int `json:"topics"`
	Messages  int `json:"messages"`
	Scheduled int `json:"scheduled"`
}

func (b *Broker) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	err := b.exec(ctx, func() {
		st = Stats{
			Sessions:  len(b.sessions),
			Topics:    len(b.topics.names),
			Messages:  len(b.messages),
			Scheduled: b.sched.len(),
		}
	})
	return st, err
}
