package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rocketscienceinc/tictactoe-rooms/internal/client"
	"github.com/rocketscienceinc/tictactoe-rooms/internal/entity"
	"github.com/rocketscienceinc/tictactoe-rooms/internal/tictactoe"
)

func TestDrawBoard(t *testing.T) {
	t.Run("Empty cells show their index", func(t *testing.T) {
		// Given: X in the centre
		var board tictactoe.Board
		board[4] = tictactoe.PlayerX

		// When: it is drawn
		got := drawBoard(board)

		// Then: the grid shows numbers around the mark
		want := " 0 | 1 | 2 \n---+---+---\n 3 | X | 5 \n---+---+---\n 6 | 7 | 8 \n"
		assert.Equal(t, want, got)
	})
}

func TestDrawView(t *testing.T) {
	t.Run("Before joining only the room is shown", func(t *testing.T) {
		got := drawView(client.View{PlayerName: "Alice", Room: "r1"})

		assert.Equal(t, "Waiting to join room \"r1\" as Alice...\n", got)
	})

	t.Run("Status, role and chat follow the board", func(t *testing.T) {
		// Given: a joined view
		game := entity.NewGame()
		view := client.View{
			Game:   game,
			Player: tictactoe.PlayerO,
			Status: game.Status(),
			Chat:   []entity.ChatMessage{{Player: "Alice", Message: "hi"}},
		}

		// When: it is drawn
		got := drawView(view)

		// Then: the footer lines are present
		assert.Contains(t, got, "Next player: X\nYou are player: O\nAlice: hi\n")
	})
}
