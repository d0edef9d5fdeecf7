package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/rocketscienceinc/tictactoe-rooms/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-rooms/internal/entity"
	"github.com/rocketscienceinc/tictactoe-rooms/internal/tictactoe"
)

type playerRepo interface {
	CreateOrUpdate(ctx context.Context, player *entity.Player) error
	GetByID(ctx context.Context, id string) (*entity.Player, error)
	DeleteByID(ctx context.Context, id string) error
}

type roomRepo interface {
	CreateOrUpdate(ctx context.Context, room *entity.Room) error
	GetByName(ctx context.Context, name string) (*entity.Room, error)
	DeleteByName(ctx context.Context, name string) error
}

// Notifier delivers host pushes to connections. Calls are made while the room
// lock is held, so implementations must only enqueue and never block.
type Notifier interface {
	PlayerAssigned(connID string, mark tictactoe.Mark)
	GameUpdated(connIDs []string, game *entity.Game)
	ChatRelayed(connIDs []string, message entity.ChatMessage)
	PlayerLeft(connIDs []string, playerName string)
}

// RoomManager is the session host: the single authority over rooms, seats and moves.
// Every operation on a room runs validate, mutate, persist and notify under that
// room's lock, so pushes reach clients in the order the state changed.
type RoomManager struct {
	logger *slog.Logger

	playerRepo playerRepo
	roomRepo   roomRepo
	notifier   Notifier

	locks *roomLocks
}

func NewRoomManager(logger *slog.Logger, playerRepo playerRepo, roomRepo roomRepo, notifier Notifier) *RoomManager {
	return &RoomManager{
		logger: logger.With("component", "room_manager"),

		playerRepo: playerRepo,
		roomRepo:   roomRepo,
		notifier:   notifier,

		locks: newRoomLocks(),
	}
}

// JoinGame seats the connection in the room, creating the room on first join.
// A connection already seated in the room gets its role and the game re-sent.
func (that *RoomManager) JoinGame(ctx context.Context, connID, playerName, roomName string) (*entity.Room, error) {
	log := that.logger.With("method", "JoinGame", "connID", connID, "room", roomName)

	if playerName == "" {
		return nil, apperror.ErrEmptyPlayerName
	}

	if roomName == "" {
		return nil, apperror.ErrEmptyRoomName
	}

	current, err := that.playerRepo.GetByID(ctx, connID)
	if err != nil && !errors.Is(err, apperror.ErrPlayerNotFound) {
		return nil, fmt.Errorf("failed to get player: %w", err)
	}

	if current != nil && current.Room != roomName {
		return nil, fmt.Errorf("%w: %s", apperror.ErrAlreadyInRoom, current.Room)
	}

	unlock := that.locks.Lock(roomName)
	defer unlock()

	room, err := that.getOrCreateRoom(ctx, roomName)
	if err != nil {
		return nil, err
	}

	if seated := room.PlayerByID(connID); seated != nil {
		that.notifier.PlayerAssigned(connID, seated.Mark)
		that.notifier.GameUpdated([]string{connID}, room.Game)

		log.Debug("player already seated", "mark", seated.Mark)

		return room, nil
	}

	player := &entity.Player{ID: connID, Name: playerName}
	if err = room.Seat(player); err != nil {
		return nil, fmt.Errorf("failed to seat player: %w", err)
	}

	// the player record goes first: Disconnect finds the seat through it
	if err = that.playerRepo.CreateOrUpdate(ctx, player); err != nil {
		return nil, fmt.Errorf("failed to update player: %w", err)
	}

	if err = that.updateRoom(ctx, room); err != nil {
		if delErr := that.playerRepo.DeleteByID(ctx, connID); delErr != nil && !errors.Is(delErr, apperror.ErrPlayerNotFound) {
			log.Error("failed to roll back player", "error", delErr)
		}

		return nil, err
	}

	that.notifier.PlayerAssigned(connID, player.Mark)
	that.notifier.GameUpdated(room.ConnectionIDs(), room.Game)

	log.Info("player joined", "mark", player.Mark, "state", room.State)

	return room, nil
}

// MakeMove validates and applies a move. On error nothing is stored or pushed;
// the caller reports the rejection to the requester alone.
func (that *RoomManager) MakeMove(ctx context.Context, connID, roomName string, cell int) (*entity.Game, error) {
	log := that.logger.With("method", "MakeMove", "connID", connID, "room", roomName)

	unlock := that.locks.Lock(roomName)
	defer unlock()

	room, err := that.getSeatedRoom(ctx, connID, roomName)
	if err != nil {
		return nil, err
	}

	if err = room.MakeTurn(connID, cell); err != nil {
		return nil, fmt.Errorf("failed to make turn: %w", err)
	}

	if err = that.updateRoom(ctx, room); err != nil {
		return nil, err
	}

	that.notifier.GameUpdated(room.ConnectionIDs(), room.Game)

	log.Info("move accepted", "cell", cell, "state", room.State)

	return room.Game, nil
}

// SendChat relays a message verbatim to every player in the room, sender included.
func (that *RoomManager) SendChat(ctx context.Context, connID, roomName string, message entity.ChatMessage) error {
	unlock := that.locks.Lock(roomName)
	defer unlock()

	room, err := that.getSeatedRoom(ctx, connID, roomName)
	if err != nil {
		return err
	}

	that.notifier.ChatRelayed(room.ConnectionIDs(), message)

	return nil
}

// NewGame restarts a finished room with the same seats.
func (that *RoomManager) NewGame(ctx context.Context, connID, roomName string) (*entity.Game, error) {
	log := that.logger.With("method", "NewGame", "connID", connID, "room", roomName)

	unlock := that.locks.Lock(roomName)
	defer unlock()

	room, err := that.getSeatedRoom(ctx, connID, roomName)
	if err != nil {
		return nil, err
	}

	if err = room.Restart(); err != nil {
		return nil, fmt.Errorf("failed to restart game: %w", err)
	}

	if err = that.updateRoom(ctx, room); err != nil {
		return nil, err
	}

	that.notifier.GameUpdated(room.ConnectionIDs(), room.Game)

	log.Info("new game started")

	return room.Game, nil
}

// LeaveGame frees the connection's seat. The remaining player waits on a fresh
// board; a room left empty is deleted.
func (that *RoomManager) LeaveGame(ctx context.Context, connID, roomName string) error {
	log := that.logger.With("method", "LeaveGame", "connID", connID, "room", roomName)

	unlock := that.locks.Lock(roomName)
	defer unlock()

	room, err := that.getSeatedRoom(ctx, connID, roomName)
	if err != nil {
		return err
	}

	leaver := room.Unseat(connID)

	// the room goes first so a failure keeps the player record for a retry
	if room.IsEmpty() {
		if err = that.roomRepo.DeleteByName(ctx, room.Name); err != nil && !errors.Is(err, apperror.ErrRoomNotFound) {
			return fmt.Errorf("failed to delete room: %w", err)
		}
	} else if err = that.updateRoom(ctx, room); err != nil {
		return err
	}

	if err = that.playerRepo.DeleteByID(ctx, connID); err != nil && !errors.Is(err, apperror.ErrPlayerNotFound) {
		return fmt.Errorf("failed to delete player: %w", err)
	}

	if room.IsEmpty() {
		log.Info("room closed")

		return nil
	}

	remaining := room.ConnectionIDs()
	that.notifier.PlayerLeft(remaining, leaver.Name)
	that.notifier.GameUpdated(remaining, room.Game)

	log.Info("player left", "state", room.State)

	return nil
}

// Disconnect releases whatever seat the connection holds. A connection that
// never joined is not an error.
func (that *RoomManager) Disconnect(ctx context.Context, connID string) error {
	player, err := that.playerRepo.GetByID(ctx, connID)
	if errors.Is(err, apperror.ErrPlayerNotFound) {
		return nil
	}

	if err != nil {
		return fmt.Errorf("failed to get player: %w", err)
	}

	if err = that.LeaveGame(ctx, connID, player.Room); err != nil && !errors.Is(err, apperror.ErrNotInRoom) {
		return err
	}

	return nil
}

func (that *RoomManager) getOrCreateRoom(ctx context.Context, name string) (*entity.Room, error) {
	room, err := that.roomRepo.GetByName(ctx, name)
	if errors.Is(err, apperror.ErrRoomNotFound) {
		return entity.NewRoom(name), nil
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get room: %w", err)
	}

	return room, nil
}

func (that *RoomManager) getSeatedRoom(ctx context.Context, connID, name string) (*entity.Room, error) {
	room, err := that.roomRepo.GetByName(ctx, name)
	if errors.Is(err, apperror.ErrRoomNotFound) {
		return nil, apperror.ErrNotInRoom
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get room: %w", err)
	}

	if room.PlayerByID(connID) == nil {
		return nil, apperror.ErrNotInRoom
	}

	return room, nil
}

func (that *RoomManager) updateRoom(ctx context.Context, room *entity.Room) error {
	if err := that.roomRepo.CreateOrUpdate(ctx, room); err != nil {
		return fmt.Errorf("failed to update room: %w", err)
	}

	return nil
}
