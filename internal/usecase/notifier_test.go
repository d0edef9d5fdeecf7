package usecase

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"github.com/rocketscienceinc/tictactoe-rooms/internal/entity"
	"github.com/rocketscienceinc/tictactoe-rooms/internal/repository"
	"github.com/rocketscienceinc/tictactoe-rooms/internal/tictactoe"
	"github.com/stretchr/testify/mock"
)

const (
	eventPlayerAssign = "player_assign"
	eventGameUpdate   = "game_update"
	eventChatMessage  = "chat_message"
	eventPlayerLeft   = "player_left"
)

type push struct {
	Event   string
	Payload any
}

// recordingNotifier keeps every push per connection in delivery order.
type recordingNotifier struct {
	mu     sync.Mutex
	pushes map[string][]push
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{pushes: make(map[string][]push)}
}

func (that *recordingNotifier) add(connIDs []string, event string, payload any) {
	that.mu.Lock()
	defer that.mu.Unlock()

	for _, id := range connIDs {
		that.pushes[id] = append(that.pushes[id], push{Event: event, Payload: payload})
	}
}

func (that *recordingNotifier) PlayerAssigned(connID string, mark tictactoe.Mark) {
	that.add([]string{connID}, eventPlayerAssign, mark)
}

func (that *recordingNotifier) GameUpdated(connIDs []string, game *entity.Game) {
	that.add(connIDs, eventGameUpdate, *game)
}

func (that *recordingNotifier) ChatRelayed(connIDs []string, message entity.ChatMessage) {
	that.add(connIDs, eventChatMessage, message)
}

func (that *recordingNotifier) PlayerLeft(connIDs []string, playerName string) {
	that.add(connIDs, eventPlayerLeft, playerName)
}

func (that *recordingNotifier) For(connID string) []push {
	that.mu.Lock()
	defer that.mu.Unlock()

	return append([]push(nil), that.pushes[connID]...)
}

func (that *recordingNotifier) Reset() {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.pushes = make(map[string][]push)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestManager() (*RoomManager, *recordingNotifier, repository.RoomRepository) {
	notifier := newRecordingNotifier()
	rooms := repository.NewMemoryRoomRepository()
	manager := NewRoomManager(discardLogger(), repository.NewMemoryPlayerRepository(), rooms, notifier)

	return manager, notifier, rooms
}

type mockRoomRepo struct {
	mock.Mock
}

func (that *mockRoomRepo) CreateOrUpdate(ctx context.Context, room *entity.Room) error {
	args := that.Called(ctx, room)
	return args.Error(0)
}

func (that *mockRoomRepo) GetByName(ctx context.Context, name string) (*entity.Room, error) {
	args := that.Called(ctx, name)
	room, _ := args.Get(0).(*entity.Room)
	return room, args.Error(1)
}

func (that *mockRoomRepo) DeleteByName(ctx context.Context, name string) error {
	args := that.Called(ctx, name)
	return args.Error(0)
}

type mockPlayerRepo struct {
	mock.Mock
}

func (that *mockPlayerRepo) CreateOrUpdate(ctx context.Context, player *entity.Player) error {
	args := that.Called(ctx, player)
	return args.Error(0)
}

func (that *mockPlayerRepo) GetByID(ctx context.Context, id string) (*entity.Player, error) {
	args := that.Called(ctx, id)
	player, _ := args.Get(0).(*entity.Player)
	return player, args.Error(1)
}

func (that *mockPlayerRepo) DeleteByID(ctx context.Context, id string) error {
	args := that.Called(ctx, id)
	return args.Error(0)
}

func gameWith(turn tictactoe.Mark, cells map[int]tictactoe.Mark) entity.Game {
	game := entity.Game{Turn: turn}
	for cell, mark := range cells {
		game.Board[cell] = mark
	}

	return game
}
