package websocket

import (
	"errors"
	"io/ioutil"
	"net"
	"sync"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	log "github.com/sirupsen/logrus"
)

var (
	// ErrClosed is returned by Send after the driver stopped.
	ErrClosed = errors.New("websocket: closed")
	// ErrOutboxFull is returned by Send if the client does not keep up.
	ErrOutboxFull = errors.New("websocket: outbox full")
)

const DefaultOutboxSize = 100

type Flag int

const (
	FlagContinue Flag = iota
	FlagCloseGracefully
)

type outboxMessage struct {
	flag Flag
	data []byte
}

// Driver runs the reading and writing side of a server-side websocket
// connection in two goroutines. Received text frames are delivered on Inbox,
// which is closed when the reader exits. Writes are queued in a bounded
// outbox and never block the caller.
type Driver struct {
	conn   net.Conn
	Inbox  chan []byte
	outbox chan *outboxMessage

	stopCh   chan struct{}
	stopOnce sync.Once

	wg sync.WaitGroup
}

func NewDriver(conn net.Conn, outboxSize int) *Driver {
	if outboxSize <= 0 {
		outboxSize = DefaultOutboxSize
	}
	return &Driver{
		conn:   conn,
		Inbox:  make(chan []byte),
		outbox: make(chan *outboxMessage, outboxSize),
		stopCh: make(chan struct{}),
	}
}

func (driver *Driver) Start() {
	driver.wg.Add(2)
	go driver.inboxHandler()
	go driver.outboxHandler()
}

// Send queues data as a text frame.
func (driver *Driver) Send(data []byte) error {
	return driver.enqueue(FlagContinue, data)
}

// SendAndClose queues data as a text frame followed by a close frame.
func (driver *Driver) SendAndClose(data []byte) error {
	return driver.enqueue(FlagCloseGracefully, data)
}

// Close stops both goroutines and closes the underlying connection. Frames
// still queued are dropped.
func (driver *Driver) Close() error {
	driver.stop()
	return nil
}

// Wait blocks until both goroutines returned.
func (driver *Driver) Wait() {
	driver.wg.Wait()
	log.Debug("websocketdriver closed")
}

func (driver *Driver) enqueue(flag Flag, data []byte) error {
	select {
	case <-driver.stopCh:
		return ErrClosed
	default:
	}

	m := &outboxMessage{flag: flag}
	if data != nil {
		m.data = make([]byte, len(data))
		copy(m.data, data)
	}

	select {
	case driver.outbox <- m:
		return nil
	default:
		return ErrOutboxFull
	}
}

// stop unblocks the reader by closing the connection.
func (driver *Driver) stop() {
	driver.stopOnce.Do(func() {
		close(driver.stopCh)
		if err := driver.conn.Close(); err != nil {
			log.Debugf("websocketdriver close error: %v", err)
		}
	})
}

func (driver *Driver) inboxHandler() {
	defer driver.wg.Done()
	defer close(driver.Inbox)
	defer driver.stop()

	state := ws.StateServerSide
	ch := wsutil.ControlFrameHandler(driver.conn, state)

	r := &wsutil.Reader{
		Source:         driver.conn,
		State:          state,
		CheckUTF8:      true,
		OnIntermediate: ch,
	}

	for {
		h, err := r.NextFrame()
		if err != nil {
			// Returning the error to echo would only print hijacked
			// connection noise.
			select {
			case <-driver.stopCh:
				log.Debugf("websocket reader stopped: %v", err)
			default:
				log.Errorf("websocket read message error: %v", err)
			}
			return
		}

		if h.OpCode.IsControl() {
			// The client closed the socket, nothing more to read.
			if h.OpCode == ws.OpClose {
				log.Info("websocket connection closed gracefully")
				return
			}

			if err = ch(h, r); err != nil {
				log.Errorf("websocket handles control frame error: %v", err)
				return
			}
			continue
		}

		data, err := ioutil.ReadAll(r)
		if err != nil {
			log.Errorf("websocket read error: %v", err)
			return
		}

		select {
		case driver.Inbox <- data:
		case <-driver.stopCh:
			return
		}
	}
}

func (driver *Driver) outboxHandler() {
	defer driver.wg.Done()
	defer driver.stop()

	state := ws.StateServerSide
	w := wsutil.NewWriter(driver.conn, state, 0)

	for {
		select {
		case res := <-driver.outbox:
			if err := webSocketWriteText(driver.conn, w, state, res.data); err != nil {
				log.Errorf("websocket terminates because of write error: %v", err)
				return
			}

			switch res.flag {
			case FlagCloseGracefully:
				log.Debug("websocket handled outbox message but closes gracefully")
				if err := webSocketCloseGraceful(driver.conn); err != nil {
					log.Errorf("websocket write error: %v", err)
				}
				return
			}
		case <-driver.stopCh:
			return
		}
	}
}

func webSocketWriteText(conn net.Conn, w *wsutil.Writer, state ws.State, data []byte) error {
	w.Reset(conn, state, ws.OpText)
	if _, err := w.Write(data); err != nil {
		return err
	}
	return w.Flush()
}

func webSocketCloseGraceful(conn net.Conn) error {
	body := ws.NewCloseFrameBody(ws.StatusNormalClosure, "")
	return ws.WriteFrame(conn, ws.NewCloseFrame(body))
}
