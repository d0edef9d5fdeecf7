// Command client plays tic-tac-toe against another player through the session host.
//
// Type a cell number 0-8 to move, /new to restart a finished game, /leave to
// give up the seat, /quit to exit. Anything else is sent as a chat message.
package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"

	"github.com/rocketscienceinc/tictactoe-rooms/internal/client"
)

func main() {
	cmd := &cli.Command{
		Name:  "client",
		Usage: "join a tic-tac-toe room from the terminal",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "addr",
				Value:   "ws://localhost:8080/ws",
				Usage:   "session host websocket url",
				Sources: cli.EnvVars("TICTACTOE_ADDR"),
			},
			&cli.StringFlag{
				Name:     "name",
				Usage:    "your display name",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "room",
				Usage:    "room to join",
				Required: true,
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "log protocol events to stderr",
			},
		},
		Action: run,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cmd.Run(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "client: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cmd *cli.Command) error {
	level := slog.LevelWarn
	if cmd.Bool("debug") {
		level = slog.LevelDebug
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	socket, err := client.Dial(ctx, logger, cmd.String("addr"))
	if err != nil {
		return err
	}

	controller := client.NewController(logger, socket, 16)
	controller.Mount()
	defer controller.Unmount()

	controller.SetPlayerName(cmd.String("name"))
	controller.SetRoom(cmd.String("room"))

	group, groupCtx := errgroup.WithContext(ctx)
	inputCtx, quit := context.WithCancel(groupCtx)
	defer quit()

	group.Go(func() error {
		defer quit()
		return socket.Run(inputCtx)
	})

	group.Go(func() error {
		render(inputCtx, os.Stdout, controller)
		return nil
	})

	if err = controller.HandleJoinGame(); err != nil {
		quit()
		_ = group.Wait()

		return err
	}

	go func() {
		readCommands(inputCtx, os.Stdin, controller, logger)
		quit()
	}()

	return group.Wait()
}

// readCommands feeds stdin lines to the controller until EOF, /quit or ctx ends.
func readCommands(ctx context.Context, in io.Reader, controller *client.Controller, logger *slog.Logger) {
	scanner := bufio.NewScanner(in)

	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}

		if done := dispatch(controller, strings.TrimSpace(scanner.Text()), logger); done {
			return
		}
	}
}

// dispatch applies one input line and reports whether the user asked to quit.
func dispatch(controller *client.Controller, line string, logger *slog.Logger) bool {
	var err error

	switch {
	case line == "":
		return false
	case line == "/quit":
		_ = controller.HandleLeave()
		return true
	case line == "/new":
		err = controller.HandleNewGame()
	case line == "/leave":
		err = controller.HandleLeave()
	default:
		if cell, convErr := strconv.Atoi(line); convErr == nil {
			err = controller.HandleClick(cell)
			break
		}

		controller.SetMessage(line)
		err = controller.HandleSendMessage()
	}

	if err != nil {
		logger.Error("failed to send", "input", line, "error", err)
	}

	return false
}
