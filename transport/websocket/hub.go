package websocket

import (
	"log/slog"
	"sync"

	"github.com/rocketscienceinc/tictactoe-rooms/internal/entity"
	"github.com/rocketscienceinc/tictactoe-rooms/internal/protocol"
	"github.com/rocketscienceinc/tictactoe-rooms/internal/tictactoe"
)

// Hub maps connection ids to live clients and delivers host pushes to them.
// Room membership is owned by the room manager; the hub only addresses ids.
type Hub struct {
	logger *slog.Logger

	mu      sync.RWMutex
	clients map[string]*Client
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		logger:  logger.With("component", "hub"),
		clients: make(map[string]*Client),
	}
}

func (that *Hub) register(client *Client) {
	that.mu.Lock()
	that.clients[client.id] = client
	count := len(that.clients)
	that.mu.Unlock()

	that.logger.Debug("client registered", "connID", client.id, "clients", count)
}

func (that *Hub) unregister(client *Client) {
	that.mu.Lock()
	if current, ok := that.clients[client.id]; ok && current == client {
		delete(that.clients, client.id)
	}
	count := len(that.clients)
	that.mu.Unlock()

	that.logger.Debug("client unregistered", "connID", client.id, "clients", count)
}

// Len is the number of live connections.
func (that *Hub) Len() int {
	that.mu.RLock()
	defer that.mu.RUnlock()

	return len(that.clients)
}

// Close drops every connection; their read loops then release the seats.
func (that *Hub) Close() {
	that.mu.RLock()
	defer that.mu.RUnlock()

	for _, client := range that.clients {
		client.close()
	}
}

func (that *Hub) PlayerAssigned(connID string, mark tictactoe.Mark) {
	that.publish([]string{connID}, protocol.EventPlayerAssign, mark)
}

func (that *Hub) GameUpdated(connIDs []string, game *entity.Game) {
	that.publish(connIDs, protocol.EventGameUpdate, game)
}

func (that *Hub) ChatRelayed(connIDs []string, message entity.ChatMessage) {
	that.publish(connIDs, protocol.EventChatMessage, message)
}

func (that *Hub) PlayerLeft(connIDs []string, playerName string) {
	that.publish(connIDs, protocol.EventPlayerLeft, playerName)
}

// publish encodes once and queues the frame for every listed connection.
func (that *Hub) publish(connIDs []string, event string, payload any) {
	log := that.logger.With("method", "publish", "event", event)

	data, err := protocol.Encode(event, payload)
	if err != nil {
		log.Error("failed to encode event", "error", err)
		return
	}

	that.mu.RLock()
	defer that.mu.RUnlock()

	for _, id := range connIDs {
		client, ok := that.clients[id]
		if !ok {
			log.Warn("connection not found for player", "connID", id)
			continue
		}

		if !client.enqueue(data) {
			log.Warn("failed to queue event", "connID", id)
		}
	}
}
