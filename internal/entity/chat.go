package entity

// ChatMessage is relayed verbatim; player is a display name supplied by the sender.
type ChatMessage struct {
	Player  string `json:"player"`
	Message string `json:"message"`
}
