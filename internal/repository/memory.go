package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/rocketscienceinc/tictactoe-rooms/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-rooms/internal/entity"
)

// memoryStore keeps JSON snapshots so callers never share pointers with the
// store, the same way the redis repositories behave.
type memoryStore struct {
	mu    sync.RWMutex
	items map[string][]byte
}

func newMemoryStore() *memoryStore {
	return &memoryStore{items: make(map[string][]byte)}
}

func (that *memoryStore) set(key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}

	that.mu.Lock()
	that.items[key] = data
	that.mu.Unlock()

	return nil
}

func (that *memoryStore) get(key string, value any) (bool, error) {
	that.mu.RLock()
	data, ok := that.items[key]
	that.mu.RUnlock()

	if !ok {
		return false, nil
	}

	if err := json.Unmarshal(data, value); err != nil {
		return true, fmt.Errorf("failed to unmarshal %s: %w", key, err)
	}

	return true, nil
}

func (that *memoryStore) del(key string) bool {
	that.mu.Lock()
	defer that.mu.Unlock()

	if _, ok := that.items[key]; !ok {
		return false
	}

	delete(that.items, key)

	return true
}

func (that *memoryStore) purge(prefix string) {
	that.mu.Lock()
	defer that.mu.Unlock()

	for key := range that.items {
		if strings.HasPrefix(key, prefix) {
			delete(that.items, key)
		}
	}
}

type memoryRoom struct {
	store *memoryStore
}

// NewMemoryRoomRepository is the single-process twin of NewRoomRepository.
func NewMemoryRoomRepository() RoomRepository {
	return &memoryRoom{store: newMemoryStore()}
}

func (that *memoryRoom) CreateOrUpdate(_ context.Context, room *entity.Room) error {
	return that.store.set(roomKeyPrefix+room.Name, room)
}

func (that *memoryRoom) GetByName(_ context.Context, name string) (*entity.Room, error) {
	var room entity.Room

	found, err := that.store.get(roomKeyPrefix+name, &room)
	if err != nil {
		return nil, err
	}

	if !found {
		return nil, apperror.ErrRoomNotFound
	}

	return &room, nil
}

func (that *memoryRoom) DeleteByName(_ context.Context, name string) error {
	if !that.store.del(roomKeyPrefix + name) {
		return apperror.ErrRoomNotFound
	}

	return nil
}

func (that *memoryRoom) Purge(_ context.Context) error {
	that.store.purge(roomKeyPrefix)
	return nil
}

type memoryPlayer struct {
	store *memoryStore
}

func NewMemoryPlayerRepository() PlayerRepository {
	return &memoryPlayer{store: newMemoryStore()}
}

func (that *memoryPlayer) CreateOrUpdate(_ context.Context, player *entity.Player) error {
	return that.store.set(playerKeyPrefix+player.ID, player)
}

func (that *memoryPlayer) GetByID(_ context.Context, id string) (*entity.Player, error) {
	var player entity.Player

	found, err := that.store.get(playerKeyPrefix+id, &player)
	if err != nil {
		return nil, err
	}

	if !found {
		return nil, apperror.ErrPlayerNotFound
	}

	return &player, nil
}

func (that *memoryPlayer) DeleteByID(_ context.Context, id string) error {
	if !that.store.del(playerKeyPrefix + id) {
		return apperror.ErrPlayerNotFound
	}

	return nil
}

func (that *memoryPlayer) Purge(_ context.Context) error {
	that.store.purge(playerKeyPrefix)
	return nil
}
