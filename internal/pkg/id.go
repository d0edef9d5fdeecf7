package pkg

import "github.com/google/uuid"

// GenerateConnectionID - returns a new random id for a websocket connection.
func GenerateConnectionID() string {
	return uuid.NewString()
}
