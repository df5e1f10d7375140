package moonraker

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	writeWait      = 10 * time.Second
	maxMessageSize = 16 << 20
	sendQueueSize  = 256
)

var (
	// ErrClosed is returned when writing to a closed channel.
	ErrClosed = errors.New("channel closed")
	// ErrSendQueueFull is returned when the writer cannot keep up.
	ErrSendQueueFull = errors.New("send queue full")
)

// wsTransport owns one websocket connection. Writes are serialized through
// a single writer goroutine; reads happen on the goroutine running readLoop.
type wsTransport struct {
	conn *websocket.Conn
	send chan []byte
	done chan struct{}
	once sync.Once
	log  zerolog.Logger
}

func newWSTransport(conn *websocket.Conn, log zerolog.Logger) *wsTransport {
	conn.SetReadLimit(maxMessageSize)
	t := &wsTransport{
		conn: conn,
		send: make(chan []byte, sendQueueSize),
		done: make(chan struct{}),
		log:  log,
	}
	go t.writeLoop()
	return t
}

// Send queues a text frame for writing.
func (t *wsTransport) Send(data []byte) error {
	select {
	case <-t.done:
		return ErrClosed
	default:
	}
	select {
	case t.send <- data:
		return nil
	case <-t.done:
		return ErrClosed
	default:
		return ErrSendQueueFull
	}
}

func (t *wsTransport) writeLoop() {
	for {
		select {
		case <-t.done:
			return
		case msg := <-t.send:
			_ = t.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := t.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				t.log.Warn().Err(err).Msg("websocket write failed")
				// Closing the socket unblocks readLoop, which reports the close.
				_ = t.conn.Close()
				return
			}
		}
	}
}

// readLoop delivers inbound text frames until the connection fails, then
// calls onClose exactly once.
func (t *wsTransport) readLoop(onMessage func([]byte), onClose func(error)) {
	for {
		kind, data, err := t.conn.ReadMessage()
		if err != nil {
			t.shutdown()
			onClose(err)
			return
		}
		if kind != websocket.TextMessage {
			continue
		}
		onMessage(data)
	}
}

// Close sends a normal close frame and tears the socket down.
func (t *wsTransport) Close() error {
	var err error
	t.once.Do(func() {
		close(t.done)
		_ = t.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(writeWait),
		)
		err = t.conn.Close()
	})
	return err
}

func (t *wsTransport) shutdown() {
	t.once.Do(func() {
		close(t.done)
		_ = t.conn.Close()
	})
}

func closeReason(err error) string {
	var ce *websocket.CloseError
	if errors.As(err, &ce) {
		if ce.Text != "" {
			return ce.Text
		}
		return fmt.Sprintf("closed with code %d", ce.Code)
	}
	if err == nil {
		return "connection closed"
	}
	return err.Error()
}
