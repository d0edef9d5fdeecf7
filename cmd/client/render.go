package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/rocketscienceinc/tictactoe-rooms/internal/client"
	"github.com/rocketscienceinc/tictactoe-rooms/internal/tictactoe"
)

// render redraws the view on every change and prints notices as they come.
func render(ctx context.Context, out io.Writer, controller *client.Controller) {
	for {
		select {
		case <-ctx.Done():
			return
		case notice := <-controller.Notices():
			fmt.Fprintf(out, "[%s] %s\n", notice.Kind, notice.Text)
		case <-controller.Changes():
			fmt.Fprint(out, drawView(controller.View()))
		}
	}
}

func drawView(view client.View) string {
	var sb strings.Builder

	if view.Game == nil {
		fmt.Fprintf(&sb, "Waiting to join room %q as %s...\n", view.Room, view.PlayerName)
		return sb.String()
	}

	sb.WriteString(drawBoard(view.Game.Board))
	fmt.Fprintf(&sb, "%s\nYou are player: %s\n", view.Status, view.Player)

	for _, msg := range view.Chat {
		fmt.Fprintf(&sb, "%s: %s\n", msg.Player, msg.Message)
	}

	return sb.String()
}

// drawBoard shows marks, or the cell number for empty cells.
func drawBoard(board tictactoe.Board) string {
	var sb strings.Builder

	for row := 0; row < 3; row++ {
		if row > 0 {
			sb.WriteString("---+---+---\n")
		}

		for col := 0; col < 3; col++ {
			i := row*3 + col
			cell := string(board[i])
			if board[i] == tictactoe.EmptyCell {
				cell = fmt.Sprint(i)
			}

			if col > 0 {
				sb.WriteString("|")
			}

			fmt.Fprintf(&sb, " %s ", cell)
		}

		sb.WriteString("\n")
	}

	return sb.String()
}
