package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/rocketscienceinc/tictactoe-rooms/internal/config"
	"github.com/rocketscienceinc/tictactoe-rooms/internal/repository"
	"github.com/rocketscienceinc/tictactoe-rooms/internal/repository/storage"
	"github.com/rocketscienceinc/tictactoe-rooms/internal/usecase"
	"github.com/rocketscienceinc/tictactoe-rooms/transport/rest"
	"github.com/rocketscienceinc/tictactoe-rooms/transport/websocket"
)

var ErrAddrNotFound = errors.New("redis address string is empty")

type repositories struct {
	players repository.PlayerRepository
	rooms   repository.RoomRepository
	close   func() error
}

// RunApp - runs the application until SIGINT or SIGTERM.
func RunApp(logger *slog.Logger, conf *config.Config) error {
	log := logger.With("component", "app")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repos, err := openRepositories(ctx, log, conf)
	if err != nil {
		return err
	}

	defer func() {
		if err = repos.close(); err != nil {
			log.Error("could not close storage", "error", err)
		}
	}()

	hub := websocket.NewHub(logger)
	roomManager := usecase.NewRoomManager(logger, repos.players, repos.rooms, hub)
	wsServer := websocket.New(logger, hub, roomManager, websocket.Options{
		SendBuffer:     conf.Socket.SendBuffer,
		MaxMessageSize: conf.Socket.MaxMessageSize,
		AllowedOrigins: conf.Socket.AllowedOrigins,
	})

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		log.Info("Starting HTTP server", "port", conf.HTTPPort)
		if httpErr := rest.Start(groupCtx, conf.HTTPPort); httpErr != nil {
			return fmt.Errorf("HTTP server error: %w", httpErr)
		}

		return nil
	})

	group.Go(func() error {
		log.Info("Starting WebSocket server", "port", conf.SocketPort)
		if wsErr := wsServer.Start(groupCtx, conf.SocketPort); wsErr != nil {
			return fmt.Errorf("WebSocket server error: %w", wsErr)
		}

		return nil
	})

	if err = group.Wait(); err != nil {
		return err
	}

	log.Info("Application context canceled, shutting down")

	return nil
}

// openRepositories - connects the configured storage. Redis keys left by a
// previous run are purged, since every seat belongs to a live connection.
func openRepositories(ctx context.Context, log *slog.Logger, conf *config.Config) (*repositories, error) {
	if conf.Storage == config.StorageMemory {
		log.Info("Using in-memory storage")

		return &repositories{
			players: repository.NewMemoryPlayerRepository(),
			rooms:   repository.NewMemoryRoomRepository(),
			close:   func() error { return nil },
		}, nil
	}

	redisAddrString := conf.Redis.GetRedisAddr()
	if conf.Redis.Host == "" || redisAddrString == "" {
		return nil, ErrAddrNotFound
	}

	redisStorage, err := storage.New(ctx, redisAddrString)
	if err != nil {
		return nil, fmt.Errorf("could not connect to redis storage: %w", err)
	}

	repos := &repositories{
		players: repository.NewPlayerRepository(redisStorage, conf.Redis.TTL),
		rooms:   repository.NewRoomRepository(redisStorage, conf.Redis.TTL),
		close:   redisStorage.Close,
	}

	if err = repos.players.Purge(ctx); err != nil {
		_ = redisStorage.Close()
		return nil, fmt.Errorf("could not purge players: %w", err)
	}

	if err = repos.rooms.Purge(ctx); err != nil {
		_ = redisStorage.Close()
		return nil, fmt.Errorf("could not purge rooms: %w", err)
	}

	log.Info("Using redis storage", "addr", redisAddrString)

	return repos, nil
}
