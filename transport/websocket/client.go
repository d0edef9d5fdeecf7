package websocket

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rocketscienceinc/tictactoe-rooms/internal/protocol"
)

var errClientClosed = errors.New("client connection is closed")

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10
)

// Client is one player connection. Outbound frames go through a bounded queue
// drained by writePump; a client that cannot keep up is dropped.
type Client struct {
	id     string
	conn   *websocket.Conn
	logger *slog.Logger

	mu     sync.Mutex
	send   chan []byte
	closed bool
}

func newClient(id string, conn *websocket.Conn, logger *slog.Logger, sendBuffer int) *Client {
	return &Client{
		id:     id,
		conn:   conn,
		logger: logger.With("connID", id),
		send:   make(chan []byte, sendBuffer),
	}
}

// Send encodes one event and queues it for this connection only.
func (that *Client) Send(event string, payload any) error {
	data, err := protocol.Encode(event, payload)
	if err != nil {
		return err
	}

	if !that.enqueue(data) {
		that.logger.Warn("failed to queue event", "event", event)
		return fmt.Errorf("%w: %s", errClientClosed, event)
	}

	return nil
}

// enqueue never blocks. It reports false when the frame was dropped.
func (that *Client) enqueue(data []byte) bool {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.closed {
		return false
	}

	select {
	case that.send <- data:
		return true
	default:
		that.logger.Warn("send queue is full, dropping connection")
		that.closed = true
		close(that.send)

		return false
	}
}

func (that *Client) close() {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.closed {
		return
	}

	that.closed = true
	close(that.send)
}

// writePump pumps queued frames to the connection and keeps it alive with pings.
func (that *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		that.conn.Close()
	}()

	for {
		select {
		case message, ok := <-that.send:
			_ = that.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// the queue was closed
				_ = that.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}

			if err := that.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				that.logger.Debug("failed to write message", "error", err)
				return
			}

		case <-ticker.C:
			_ = that.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := that.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
