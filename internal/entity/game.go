package entity

import (
	"fmt"

	"github.com/rocketscienceinc/tictactoe-rooms/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-rooms/internal/tictactoe"
)

// Game is the canonical state of one room's match. It is always sent whole.
type Game struct {
	Board tictactoe.Board `json:"board"`
	Turn  tictactoe.Mark  `json:"turn"`
}

func NewGame() *Game {
	return &Game{
		Turn: tictactoe.PlayerX,
	}
}

// Validate checks a game decoded from an untrusted source.
func (that *Game) Validate() error {
	if !that.Turn.IsValid() {
		return fmt.Errorf("turn: %w: %q", tictactoe.ErrInvalidMark, that.Turn)
	}

	return nil
}

// MakeTurn places mark on cell and hands the turn to the other mark.
// On error the game is left untouched.
func (that *Game) MakeTurn(mark tictactoe.Mark, cell int) error {
	if cell < 0 || cell >= len(that.Board) {
		return fmt.Errorf("%w: cell %d", apperror.ErrInvalidCell, cell)
	}

	if that.Board[cell] != tictactoe.EmptyCell {
		return apperror.ErrCellOccupied
	}

	if that.Turn != mark {
		return apperror.ErrNotYourTurn
	}

	that.Board[cell] = mark
	that.Turn = mark.Opponent()

	return nil
}

func (that *Game) IsOver() bool {
	return tictactoe.IsOver(that.Board)
}

func (that *Game) Status() string {
	return tictactoe.Status(that.Board, that.Turn)
}
