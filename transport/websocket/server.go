package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"

	"github.com/rocketscienceinc/tictactoe-rooms/internal/entity"
	"github.com/rocketscienceinc/tictactoe-rooms/internal/pkg"
	"github.com/rocketscienceinc/tictactoe-rooms/internal/protocol"
)

type uGame interface {
	JoinGame(ctx context.Context, connID, playerName, roomName string) (*entity.Room, error)
	MakeMove(ctx context.Context, connID, roomName string, cell int) (*entity.Game, error)
	SendChat(ctx context.Context, connID, roomName string, message entity.ChatMessage) error
	NewGame(ctx context.Context, connID, roomName string) (*entity.Game, error)
	LeaveGame(ctx context.Context, connID, roomName string) error
	Disconnect(ctx context.Context, connID string) error
}

// Options tune the per-connection limits.
type Options struct {
	SendBuffer     int
	MaxMessageSize int64
	AllowedOrigins []string
}

type Server struct {
	logger *slog.Logger
	hub    *Hub
	uGame  uGame
	opts   Options

	upgrader websocket.Upgrader

	handlers map[string]func(ctx context.Context, client *Client, msg *protocol.Message) error
}

func New(logger *slog.Logger, hub *Hub, uGame uGame, opts Options) *Server {
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = 64
	}

	if opts.MaxMessageSize <= 0 {
		opts.MaxMessageSize = 4096
	}

	server := &Server{
		logger: logger.With("component", "websocket"),
		hub:    hub,
		uGame:  uGame,
		opts:   opts,

		handlers: make(map[string]func(context.Context, *Client, *protocol.Message) error),
	}

	server.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     server.checkOrigin,
	}

	server.handlers[protocol.EventJoinGame] = server.handleJoinGame
	server.handlers[protocol.EventMakeMove] = server.handleMakeMove
	server.handlers[protocol.EventChatMessage] = server.handleChatMessage
	server.handlers[protocol.EventNewGame] = server.handleNewGame
	server.handlers[protocol.EventLeaveGame] = server.handleLeaveGame

	return server
}

// Router - builds the socket endpoint routes.
func (that *Server) Router(ctx context.Context) http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)

	router.Get("/ws", func(w http.ResponseWriter, r *http.Request) {
		that.serveWS(ctx, w, r)
	})

	return router
}

// Start - starts WebSocket server and blocks until ctx is cancelled.
func (that *Server) Start(ctx context.Context, port string) error {
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           that.Router(ctx),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       30 * time.Second,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()

		// hijacked connections are not tracked by Shutdown
		that.hub.Close()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			that.logger.Error("failed to shutdown websocket server", "error", err)
		}
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

func (that *Server) checkOrigin(req *http.Request) bool {
	if len(that.opts.AllowedOrigins) == 0 {
		return true
	}

	return slices.Contains(that.opts.AllowedOrigins, req.Header.Get("Origin"))
}

// serveWS - upgrades the connection and runs its read loop until the peer goes away.
func (that *Server) serveWS(ctx context.Context, writer http.ResponseWriter, req *http.Request) {
	log := that.logger.With("method", "serveWS")

	conn, err := that.upgrader.Upgrade(writer, req, nil)
	if err != nil {
		log.Error("failed to upgrade connection", "error", err)
		return
	}

	client := newClient(pkg.GenerateConnectionID(), conn, that.logger, that.opts.SendBuffer)
	that.hub.register(client)

	go client.writePump()

	that.readPump(ctx, client)
}

// readPump handles the connection's events one at a time, in arrival order.
func (that *Server) readPump(ctx context.Context, client *Client) {
	log := that.logger.With("method", "readPump", "connID", client.id)

	defer func() {
		that.hub.unregister(client)
		client.close()

		if err := that.uGame.Disconnect(context.WithoutCancel(ctx), client.id); err != nil {
			log.Error("failed to release seat", "error", err)
		}

		log.Info("connection closed")
	}()

	client.conn.SetReadLimit(that.opts.MaxMessageSize)
	_ = client.conn.SetReadDeadline(time.Now().Add(pongWait))
	client.conn.SetPongHandler(func(string) error {
		return client.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	log.Info("connection opened")

	for {
		_, data, err := client.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn("unexpected close", "error", err)
			}

			return
		}

		var msg protocol.Message
		if err = json.Unmarshal(data, &msg); err != nil {
			log.Warn("skipping malformed message", "error", err)
			continue
		}

		handler, ok := that.handlers[msg.Event]
		if !ok {
			log.Warn("unknown event", "event", msg.Event)
			continue
		}

		if err = handler(ctx, client, &msg); err != nil {
			log.Error("failed to handle event", "event", msg.Event, "error", err)
		}
	}
}
