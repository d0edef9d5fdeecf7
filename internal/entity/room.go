package entity

import (
	"fmt"

	"github.com/rocketscienceinc/tictactoe-rooms/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-rooms/internal/tictactoe"
)

type RoomState string

const (
	RoomEmpty    RoomState = "empty"
	RoomWaiting  RoomState = "waiting"
	RoomActive   RoomState = "active"
	RoomFinished RoomState = "finished"
)

// RoomCapacity is the number of seats in a room.
const RoomCapacity = 2

// Room owns exactly one game and at most two seated players.
type Room struct {
	Name    string    `json:"name"`
	State   RoomState `json:"state"`
	Game    *Game     `json:"game"`
	Players []*Player `json:"players,omitempty"`
}

func NewRoom(name string) *Room {
	return &Room{
		Name:  name,
		State: RoomEmpty,
		Game:  NewGame(),
	}
}

func (that *Room) PlayerByID(id string) *Player {
	for _, player := range that.Players {
		if player.ID == id {
			return player
		}
	}

	return nil
}

func (that *Room) IsFull() bool {
	return len(that.Players) >= RoomCapacity
}

func (that *Room) IsEmpty() bool {
	return len(that.Players) == 0
}

// ConnectionIDs lists the ids of every seated player in seating order.
func (that *Room) ConnectionIDs() []string {
	ids := make([]string, 0, len(that.Players))
	for _, player := range that.Players {
		ids = append(ids, player.ID)
	}

	return ids
}

// Seat gives the player the first free mark, X before O.
func (that *Room) Seat(player *Player) error {
	if that.IsFull() {
		return fmt.Errorf("%w: %s", apperror.ErrRoomFull, that.Name)
	}

	player.Mark = that.freeMark()
	player.Room = that.Name
	that.Players = append(that.Players, player)

	if that.IsFull() {
		that.State = RoomActive
	} else {
		that.State = RoomWaiting
	}

	return nil
}

// Unseat removes a player. A room left with one player goes back to waiting
// with a fresh game; a room left with nobody becomes empty.
func (that *Room) Unseat(id string) *Player {
	for i, player := range that.Players {
		if player.ID != id {
			continue
		}

		that.Players = append(that.Players[:i], that.Players[i+1:]...)
		that.Game = NewGame()

		if that.IsEmpty() {
			that.State = RoomEmpty
		} else {
			that.State = RoomWaiting
		}

		return player
	}

	return nil
}

// MakeTurn applies a move on behalf of a seated player.
func (that *Room) MakeTurn(playerID string, cell int) error {
	player := that.PlayerByID(playerID)
	if player == nil {
		return apperror.ErrNotInRoom
	}

	if err := that.ConfirmOngoingState(); err != nil {
		return err
	}

	if err := that.Game.MakeTurn(player.Mark, cell); err != nil {
		return err
	}

	if that.Game.IsOver() {
		that.State = RoomFinished
	}

	return nil
}

// Restart begins a new game for the same two players once the previous one ended.
func (that *Room) Restart() error {
	if that.State != RoomFinished {
		return fmt.Errorf("%w: room %s is %s", apperror.ErrGameNotFinished, that.Name, that.State)
	}

	that.Game = NewGame()
	that.State = RoomActive

	return nil
}

func (that *Room) ConfirmOngoingState() error {
	switch that.State {
	case RoomActive:
		return nil
	case RoomFinished:
		return apperror.ErrGameFinished
	default:
		return apperror.ErrGameIsNotStarted
	}
}

func (that *Room) freeMark() tictactoe.Mark {
	for _, player := range that.Players {
		if player.Mark == tictactoe.PlayerX {
			return tictactoe.PlayerO
		}
	}

	return tictactoe.PlayerX
}
