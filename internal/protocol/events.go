// Package protocol defines the named events exchanged between clients and the
// session host. Every websocket frame carries one Message.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rocketscienceinc/tictactoe-rooms/internal/entity"
)

// Client to host.
const (
	EventJoinGame  = "join_game"
	EventMakeMove  = "make_move"
	EventNewGame   = "new_game"
	EventLeaveGame = "leave_game"
)

// Host to client.
const (
	EventGameUpdate   = "game_update"
	EventPlayerAssign = "player_assign"
	EventInvalidMove  = "invalid_move"
	EventJoinError    = "join_error"
	EventPlayerLeft   = "player_left"
	EventError        = "error"
)

// EventChatMessage travels both ways with different payloads.
const EventChatMessage = "chat_message"

var ErrMalformedPayload = errors.New("malformed payload")

// Message is the envelope of every frame.
type Message struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type JoinGamePayload struct {
	PlayerName string `json:"playerName"`
	Room       string `json:"room"`
}

// MakeMovePayload uses a pointer so a missing index is told apart from cell 0.
type MakeMovePayload struct {
	Room  string `json:"room"`
	Index *int   `json:"index"`
}

type ChatPayload struct {
	Room    string             `json:"room"`
	Message entity.ChatMessage `json:"message"`
}

// RoomPayload is sent with new_game and leave_game.
type RoomPayload struct {
	Room string `json:"room"`
}

// Encode builds one frame.
func Encode(event string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s payload: %w", event, err)
	}

	data, err := json.Marshal(Message{Event: event, Payload: raw})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s message: %w", event, err)
	}

	return data, nil
}

// Decode unmarshals a payload, wrapping failures in ErrMalformedPayload.
func Decode(raw json.RawMessage, payload any) error {
	if len(raw) == 0 {
		return fmt.Errorf("%w: empty", ErrMalformedPayload)
	}

	if err := json.Unmarshal(raw, payload); err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedPayload, err)
	}

	return nil
}
