package entity

import "github.com/rocketscienceinc/tictactoe-rooms/internal/tictactoe"

// Player is a seated connection. ID is the connection id.
type Player struct {
	ID   string         `json:"id"`
	Name string         `json:"name"`
	Mark tictactoe.Mark `json:"mark,omitempty"`
	Room string         `json:"room,omitempty"`
}
