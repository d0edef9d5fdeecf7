package websocket

import (
	"context"
	"errors"

	"github.com/rocketscienceinc/tictactoe-rooms/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-rooms/internal/protocol"
)

const reasonInternal = "Something went wrong, try again"

var reasons = []struct {
	err    error
	reason string
}{
	{apperror.ErrNotYourTurn, "Not your turn"},
	{apperror.ErrCellOccupied, "Cell already occupied"},
	{apperror.ErrInvalidCell, "Invalid cell index"},
	{apperror.ErrGameIsNotStarted, "Waiting for an opponent"},
	{apperror.ErrGameFinished, "Game is already finished"},
	{apperror.ErrGameNotFinished, "Game is still in progress"},
	{apperror.ErrNotInRoom, "You are not in this room"},
	{apperror.ErrRoomFull, "Room is full"},
	{apperror.ErrAlreadyInRoom, "Already playing in another room"},
	{apperror.ErrEmptyPlayerName, "Player name is required"},
	{apperror.ErrEmptyRoomName, "Room name is required"},
	{protocol.ErrMalformedPayload, "Malformed request"},
}

// reasonFor maps a rejection to the text shown to the player. The second
// result is false for errors that are not a player's fault.
func reasonFor(err error) (string, bool) {
	for _, r := range reasons {
		if errors.Is(err, r.err) {
			return r.reason, true
		}
	}

	return reasonInternal, false
}

// reject tells the requester alone why the event was refused. Unexpected
// errors are returned so the read loop logs them.
func (that *Server) reject(client *Client, event string, cause error) error {
	reason, known := reasonFor(cause)

	if err := client.Send(event, reason); err != nil {
		return err
	}

	if !known {
		return cause
	}

	that.logger.Debug("event rejected", "connID", client.id, "event", event, "reason", reason)

	return nil
}

func (that *Server) handleJoinGame(ctx context.Context, client *Client, msg *protocol.Message) error {
	var payload protocol.JoinGamePayload
	if err := protocol.Decode(msg.Payload, &payload); err != nil {
		return that.reject(client, protocol.EventJoinError, err)
	}

	if _, err := that.uGame.JoinGame(ctx, client.id, payload.PlayerName, payload.Room); err != nil {
		return that.reject(client, protocol.EventJoinError, err)
	}

	return nil
}

func (that *Server) handleMakeMove(ctx context.Context, client *Client, msg *protocol.Message) error {
	var payload protocol.MakeMovePayload
	if err := protocol.Decode(msg.Payload, &payload); err != nil {
		return that.reject(client, protocol.EventInvalidMove, err)
	}

	if payload.Index == nil {
		return that.reject(client, protocol.EventInvalidMove, apperror.ErrInvalidCell)
	}

	if _, err := that.uGame.MakeMove(ctx, client.id, payload.Room, *payload.Index); err != nil {
		return that.reject(client, protocol.EventInvalidMove, err)
	}

	return nil
}

func (that *Server) handleChatMessage(ctx context.Context, client *Client, msg *protocol.Message) error {
	var payload protocol.ChatPayload
	if err := protocol.Decode(msg.Payload, &payload); err != nil {
		return that.reject(client, protocol.EventError, err)
	}

	if err := that.uGame.SendChat(ctx, client.id, payload.Room, payload.Message); err != nil {
		return that.reject(client, protocol.EventError, err)
	}

	return nil
}

func (that *Server) handleNewGame(ctx context.Context, client *Client, msg *protocol.Message) error {
	var payload protocol.RoomPayload
	if err := protocol.Decode(msg.Payload, &payload); err != nil {
		return that.reject(client, protocol.EventError, err)
	}

	if _, err := that.uGame.NewGame(ctx, client.id, payload.Room); err != nil {
		return that.reject(client, protocol.EventError, err)
	}

	return nil
}

func (that *Server) handleLeaveGame(ctx context.Context, client *Client, msg *protocol.Message) error {
	var payload protocol.RoomPayload
	if err := protocol.Decode(msg.Payload, &payload); err != nil {
		return that.reject(client, protocol.EventError, err)
	}

	if err := that.uGame.LeaveGame(ctx, client.id, payload.Room); err != nil {
		return that.reject(client, protocol.EventError, err)
	}

	return nil
}
