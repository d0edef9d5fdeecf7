package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rocketscienceinc/tictactoe-rooms/internal/protocol"
)

const writeWait = 10 * time.Second

// Socket is a Channel over one websocket connection to the session host.
type Socket struct {
	logger *slog.Logger
	conn   *websocket.Conn

	writeMu sync.Mutex

	mu       sync.RWMutex
	handlers map[string]func(json.RawMessage)
}

// Dial connects to the host's websocket endpoint, e.g. ws://localhost:8080/ws.
func Dial(ctx context.Context, logger *slog.Logger, url string) (*Socket, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", url, err)
	}

	return &Socket{
		logger:   logger.With("component", "socket"),
		conn:     conn,
		handlers: make(map[string]func(json.RawMessage)),
	}, nil
}

func (that *Socket) Emit(event string, payload any) error {
	data, err := protocol.Encode(event, payload)
	if err != nil {
		return err
	}

	that.writeMu.Lock()
	defer that.writeMu.Unlock()

	_ = that.conn.SetWriteDeadline(time.Now().Add(writeWait))

	if err = that.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("failed to write %s: %w", event, err)
	}

	return nil
}

// On sets the handler for event, replacing any previous one.
func (that *Socket) On(event string, handler func(json.RawMessage)) {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.handlers[event] = handler
}

func (that *Socket) Off(event string) {
	that.mu.Lock()
	defer that.mu.Unlock()

	delete(that.handlers, event)
}

// Run dispatches incoming events until the connection closes or ctx is done.
// Frames that are not a valid envelope are logged and skipped.
func (that *Socket) Run(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() {
		_ = that.Close()
	})
	defer stop()

	for {
		_, data, err := that.conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) || errors.Is(err, net.ErrClosed) {
				return nil
			}

			return fmt.Errorf("failed to read: %w", err)
		}

		var msg protocol.Message
		if err = json.Unmarshal(data, &msg); err != nil {
			that.logger.Warn("skipping malformed message", "error", err)
			continue
		}

		that.mu.RLock()
		handler, ok := that.handlers[msg.Event]
		that.mu.RUnlock()

		if !ok {
			that.logger.Debug("no handler for event", "event", msg.Event)
			continue
		}

		handler(msg.Payload)
	}
}

// Close says goodbye to the host and closes the connection.
func (that *Socket) Close() error {
	that.writeMu.Lock()
	_ = that.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second),
	)
	that.writeMu.Unlock()

	return that.conn.Close()
}
