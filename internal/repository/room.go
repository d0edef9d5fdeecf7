package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rocketscienceinc/tictactoe-rooms/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-rooms/internal/entity"
)

const roomKeyPrefix = "room:"

type RoomRepository interface {
	CreateOrUpdate(ctx context.Context, room *entity.Room) error
	GetByName(ctx context.Context, name string) (*entity.Room, error)
	DeleteByName(ctx context.Context, name string) error
	Purge(ctx context.Context) error
}

type dbRoom struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRoomRepository stores rooms as JSON under "room:<name>". A zero ttl keeps keys forever.
func NewRoomRepository(client *redis.Client, ttl time.Duration) RoomRepository {
	return &dbRoom{
		client: client,
		ttl:    ttl,
	}
}

func (that *dbRoom) CreateOrUpdate(ctx context.Context, room *entity.Room) error {
	roomJSON, err := json.Marshal(room)
	if err != nil {
		return fmt.Errorf("could not marshal room: %w", err)
	}

	if err = that.client.Set(ctx, roomKeyPrefix+room.Name, roomJSON, that.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set room: %w", err)
	}

	return nil
}

func (that *dbRoom) GetByName(ctx context.Context, name string) (*entity.Room, error) {
	response, err := that.client.Get(ctx, roomKeyPrefix+name).Result()
	if errors.Is(err, redis.Nil) {
		return nil, apperror.ErrRoomNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get room by name: %w", err)
	}

	var existingRoom entity.Room
	if err = json.Unmarshal([]byte(response), &existingRoom); err != nil {
		return nil, fmt.Errorf("failed to unmarshal room: %w", err)
	}

	return &existingRoom, nil
}

func (that *dbRoom) DeleteByName(ctx context.Context, name string) error {
	deleted, err := that.client.Del(ctx, roomKeyPrefix+name).Result()
	if err != nil {
		return fmt.Errorf("failed to delete room by name: %w", err)
	}

	if deleted == 0 {
		return apperror.ErrRoomNotFound
	}

	return nil
}

// Purge drops every stored room. Seats belong to live connections, so nothing
// stored by a previous process is still playable.
func (that *dbRoom) Purge(ctx context.Context) error {
	return purgePrefix(ctx, that.client, roomKeyPrefix)
}

func purgePrefix(ctx context.Context, client *redis.Client, prefix string) error {
	iter := client.Scan(ctx, 0, prefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		if err := client.Del(ctx, iter.Val()).Err(); err != nil {
			return fmt.Errorf("failed to delete %s: %w", iter.Val(), err)
		}
	}

	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan %s keys: %w", prefix, err)
	}

	return nil
}
