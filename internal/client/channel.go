// Package client mirrors one player's view of a room and forwards the player's
// intents to the session host over an injected Channel.
package client

import "encoding/json"

// Channel is the bidirectional link to the session host. Handlers registered
// with On are called from the channel's read goroutine, one event at a time.
type Channel interface {
	Emit(event string, payload any) error
	On(event string, handler func(payload json.RawMessage))
	Off(event string)
}
