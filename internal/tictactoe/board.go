package tictactoe

import (
	"encoding/json"
	"errors"
	"fmt"
)

const (
	PlayerX   Mark = "X"
	PlayerO   Mark = "O"
	EmptyCell Mark = ""
)

// BoardSize is the number of cells on a 3x3 board.
const BoardSize = 9

var (
	ErrInvalidMark  = errors.New("invalid mark")
	ErrInvalidBoard = errors.New("invalid board")
)

// Mark is the role a player holds in a room, and the content of an occupied cell.
type Mark string

func (that Mark) IsValid() bool {
	return that == PlayerX || that == PlayerO
}

// Opponent returns the other mark. EmptyCell has no opponent.
func (that Mark) Opponent() Mark {
	switch that {
	case PlayerX:
		return PlayerO
	case PlayerO:
		return PlayerX
	default:
		return EmptyCell
	}
}

// ParseMark accepts only "X" or "O".
func ParseMark(s string) (Mark, error) {
	mark := Mark(s)
	if !mark.IsValid() {
		return EmptyCell, fmt.Errorf("%w: %q", ErrInvalidMark, s)
	}

	return mark, nil
}

// Board is the ordered set of nine cells. On the wire an empty cell is null.
type Board [BoardSize]Mark

func (that Board) MarshalJSON() ([]byte, error) {
	cells := make([]*string, len(that))
	for i, cell := range that {
		if cell == EmptyCell {
			continue
		}

		value := string(cell)
		cells[i] = &value
	}

	return json.Marshal(cells)
}

func (that *Board) UnmarshalJSON(data []byte) error {
	var cells []*string
	if err := json.Unmarshal(data, &cells); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidBoard, err)
	}

	if len(cells) != BoardSize {
		return fmt.Errorf("%w: expected %d cells, got %d", ErrInvalidBoard, BoardSize, len(cells))
	}

	var board Board
	for i, cell := range cells {
		if cell == nil {
			continue
		}

		mark, err := ParseMark(*cell)
		if err != nil {
			return fmt.Errorf("%w: cell %d: %w", ErrInvalidBoard, i, err)
		}

		board[i] = mark
	}

	*that = board

	return nil
}

// IsFull reports whether no empty cell is left.
func (that Board) IsFull() bool {
	for _, cell := range that {
		if cell == EmptyCell {
			return false
		}
	}

	return true
}
