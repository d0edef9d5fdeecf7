package client

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/rocketscienceinc/tictactoe-rooms/internal/entity"
	"github.com/rocketscienceinc/tictactoe-rooms/internal/protocol"
	"github.com/rocketscienceinc/tictactoe-rooms/internal/tictactoe"
)

const textNotYourTurn = "Not your turn"

type NoticeKind string

const (
	// NoticeWarning is raised locally, without asking the host.
	NoticeWarning NoticeKind = "warning"
	// NoticeAlert carries a rejection from the host.
	NoticeAlert NoticeKind = "alert"
	NoticeInfo  NoticeKind = "info"
)

type Notice struct {
	Kind NoticeKind
	Text string
}

// View is a snapshot of the controller state, safe to keep and render.
type View struct {
	Game       *entity.Game
	Player     tictactoe.Mark
	Chat       []entity.ChatMessage
	PlayerName string
	Room       string
	Message    string
	Status     string
}

// Controller is the client session: it holds what the host last said about the
// room and never changes game state on its own.
type Controller struct {
	logger  *slog.Logger
	channel Channel

	mu         sync.Mutex
	game       *entity.Game
	player     tictactoe.Mark
	chat       []entity.ChatMessage
	playerName string
	room       string
	message    string
	mounted    bool

	notices chan Notice
	changes chan struct{}
}

func NewController(logger *slog.Logger, channel Channel, noticeBuffer int) *Controller {
	if noticeBuffer <= 0 {
		noticeBuffer = 16
	}

	return &Controller{
		logger:  logger.With("component", "client_controller"),
		channel: channel,
		notices: make(chan Notice, noticeBuffer),
		changes: make(chan struct{}, 1),
	}
}

// Notices delivers warnings and host rejections. Notices that find the buffer
// full are dropped.
func (that *Controller) Notices() <-chan Notice {
	return that.notices
}

// Changes signals that the state changed since the last receive. Signals coalesce.
func (that *Controller) Changes() <-chan struct{} {
	return that.changes
}

// Mount subscribes to host events. Calling it twice is a no-op.
func (that *Controller) Mount() {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.mounted {
		return
	}

	that.mounted = true

	that.channel.On(protocol.EventGameUpdate, that.onGameUpdate)
	that.channel.On(protocol.EventPlayerAssign, that.onPlayerAssign)
	that.channel.On(protocol.EventChatMessage, that.onChatMessage)
	that.channel.On(protocol.EventInvalidMove, that.alert(protocol.EventInvalidMove))
	that.channel.On(protocol.EventJoinError, that.alert(protocol.EventJoinError))
	that.channel.On(protocol.EventError, that.alert(protocol.EventError))
	that.channel.On(protocol.EventPlayerLeft, that.onPlayerLeft)
}

// Unmount releases every subscription made by Mount.
func (that *Controller) Unmount() {
	that.mu.Lock()
	defer that.mu.Unlock()

	if !that.mounted {
		return
	}

	that.mounted = false

	for _, event := range []string{
		protocol.EventGameUpdate,
		protocol.EventPlayerAssign,
		protocol.EventChatMessage,
		protocol.EventInvalidMove,
		protocol.EventJoinError,
		protocol.EventError,
		protocol.EventPlayerLeft,
	} {
		that.channel.Off(event)
	}
}

func (that *Controller) SetPlayerName(name string) {
	that.mu.Lock()
	that.playerName = name
	that.mu.Unlock()
}

func (that *Controller) SetRoom(room string) {
	that.mu.Lock()
	that.room = room
	that.mu.Unlock()
}

func (that *Controller) SetMessage(message string) {
	that.mu.Lock()
	that.message = message
	that.mu.Unlock()
}

// HandleJoinGame asks the host for a seat. Nothing happens until both the
// name and the room are filled in.
func (that *Controller) HandleJoinGame() error {
	that.mu.Lock()
	name, room := that.playerName, that.room
	that.mu.Unlock()

	if name == "" || room == "" {
		return nil
	}

	if err := that.channel.Emit(protocol.EventJoinGame, protocol.JoinGamePayload{PlayerName: name, Room: room}); err != nil {
		return fmt.Errorf("failed to emit join: %w", err)
	}

	return nil
}

// HandleClick submits a move on cell i when it is this player's turn and
// warns locally otherwise. The host remains the judge of every other rule.
func (that *Controller) HandleClick(i int) error {
	that.mu.Lock()
	myTurn := that.game != nil && that.player != tictactoe.EmptyCell && that.game.Turn == that.player
	room := that.room
	that.mu.Unlock()

	if !myTurn {
		that.publish(Notice{Kind: NoticeWarning, Text: textNotYourTurn})
		return nil
	}

	if err := that.channel.Emit(protocol.EventMakeMove, protocol.MakeMovePayload{Room: room, Index: &i}); err != nil {
		return fmt.Errorf("failed to emit move: %w", err)
	}

	return nil
}

// HandleSendMessage sends the typed message and clears the input once sent.
func (that *Controller) HandleSendMessage() error {
	that.mu.Lock()
	name, room, text := that.playerName, that.room, that.message
	that.mu.Unlock()

	if text == "" {
		return nil
	}

	payload := protocol.ChatPayload{
		Room:    room,
		Message: entity.ChatMessage{Player: name, Message: text},
	}

	if err := that.channel.Emit(protocol.EventChatMessage, payload); err != nil {
		return fmt.Errorf("failed to emit chat message: %w", err)
	}

	that.mu.Lock()
	if that.message == text {
		that.message = ""
	}
	that.mu.Unlock()

	that.changed()

	return nil
}

// HandleNewGame asks the host to restart a finished game.
func (that *Controller) HandleNewGame() error {
	that.mu.Lock()
	joined, room := that.game != nil, that.room
	that.mu.Unlock()

	if !joined {
		return nil
	}

	if err := that.channel.Emit(protocol.EventNewGame, protocol.RoomPayload{Room: room}); err != nil {
		return fmt.Errorf("failed to emit new game: %w", err)
	}

	return nil
}

// HandleLeave gives up the seat and forgets the room's state.
func (that *Controller) HandleLeave() error {
	that.mu.Lock()
	joined, room := that.game != nil, that.room
	that.mu.Unlock()

	if !joined {
		return nil
	}

	if err := that.channel.Emit(protocol.EventLeaveGame, protocol.RoomPayload{Room: room}); err != nil {
		return fmt.Errorf("failed to emit leave: %w", err)
	}

	that.mu.Lock()
	that.game = nil
	that.player = tictactoe.EmptyCell
	that.chat = nil
	that.mu.Unlock()

	that.changed()

	return nil
}

// Status is derived from the board alone; empty before the first game update.
func (that *Controller) Status() string {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.game == nil {
		return ""
	}

	return that.game.Status()
}

func (that *Controller) View() View {
	that.mu.Lock()
	defer that.mu.Unlock()

	view := View{
		Player:     that.player,
		Chat:       slices.Clone(that.chat),
		PlayerName: that.playerName,
		Room:       that.room,
		Message:    that.message,
	}

	if that.game != nil {
		game := *that.game
		view.Game = &game
		view.Status = game.Status()
	}

	return view
}

func (that *Controller) onGameUpdate(payload json.RawMessage) {
	var wire struct {
		Board *tictactoe.Board `json:"board"`
		Turn  tictactoe.Mark   `json:"turn"`
	}

	if err := json.Unmarshal(payload, &wire); err != nil {
		that.drop(protocol.EventGameUpdate, err)
		return
	}

	if wire.Board == nil {
		that.drop(protocol.EventGameUpdate, tictactoe.ErrInvalidBoard)
		return
	}

	game := entity.Game{Board: *wire.Board, Turn: wire.Turn}
	if err := game.Validate(); err != nil {
		that.drop(protocol.EventGameUpdate, err)
		return
	}

	that.mu.Lock()
	that.game = &game
	that.mu.Unlock()

	that.changed()
}

func (that *Controller) onPlayerAssign(payload json.RawMessage) {
	var raw string
	if err := json.Unmarshal(payload, &raw); err != nil {
		that.drop(protocol.EventPlayerAssign, err)
		return
	}

	mark, err := tictactoe.ParseMark(raw)
	if err != nil {
		that.drop(protocol.EventPlayerAssign, err)
		return
	}

	that.mu.Lock()
	that.player = mark
	that.mu.Unlock()

	that.changed()
}

func (that *Controller) onChatMessage(payload json.RawMessage) {
	var message entity.ChatMessage
	if err := json.Unmarshal(payload, &message); err != nil {
		that.drop(protocol.EventChatMessage, err)
		return
	}

	that.mu.Lock()
	that.chat = append(that.chat, message)
	that.mu.Unlock()

	that.changed()
}

func (that *Controller) onPlayerLeft(payload json.RawMessage) {
	var name string
	if err := json.Unmarshal(payload, &name); err != nil {
		that.drop(protocol.EventPlayerLeft, err)
		return
	}

	that.publish(Notice{Kind: NoticeInfo, Text: name + " left the game"})
}

// alert turns a host rejection into an alert notice without touching state.
func (that *Controller) alert(event string) func(json.RawMessage) {
	return func(payload json.RawMessage) {
		var reason string
		if err := json.Unmarshal(payload, &reason); err != nil {
			that.drop(event, err)
			return
		}

		that.publish(Notice{Kind: NoticeAlert, Text: reason})
	}
}

func (that *Controller) drop(event string, err error) {
	that.logger.Warn("dropping malformed payload", "event", event, "error", err)
}

func (that *Controller) publish(notice Notice) {
	select {
	case that.notices <- notice:
	default:
		that.logger.Warn("notice buffer is full, dropping notice", "kind", notice.Kind, "text", notice.Text)
	}
}

func (that *Controller) changed() {
	select {
	case that.changes <- struct{}{}:
	default:
	}
}
