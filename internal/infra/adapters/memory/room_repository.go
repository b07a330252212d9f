package memory

import (
	"sync"

	"github.com/qrave1/RoomPoint/internal/application/metric"
	"github.com/qrave1/RoomPoint/internal/domain/models"
)

// RoomRepository - реестр комнат в памяти процесса
type RoomRepository interface {
	// GetOrCreate возвращает комнату, создавая пустую для неизвестного id
	GetOrCreate(roomID string) *models.Room

	Get(roomID string) (*models.Room, bool)

	// Delete удаляет комнату, только если реестр всё ещё указывает на этот экземпляр
	Delete(roomID string, room *models.Room) bool

	Exists(roomID string) bool

	Count() int

	// Range вызывает fn для снимка списка комнат
	Range(fn func(*models.Room))
}

type roomRepository struct {
	rooms map[string]*models.Room
	mu    sync.RWMutex
}

func NewRoomRepository() RoomRepository {
	return &roomRepository{
		rooms: make(map[string]*models.Room),
	}
}

func (r *roomRepository) GetOrCreate(roomID string) *models.Room {
	r.mu.Lock()
	defer r.mu.Unlock()

	if room, ok := r.rooms[roomID]; ok {
		return room
	}

	room := models.NewRoom(roomID)
	r.rooms[roomID] = room

	metric.SetRoomsActive(len(r.rooms))

	return room
}

func (r *roomRepository) Get(roomID string) (*models.Room, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	room, ok := r.rooms[roomID]
	return room, ok
}

func (r *roomRepository) Delete(roomID string, room *models.Room) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.rooms[roomID]
	if !ok || current != room {
		return false
	}

	delete(r.rooms, roomID)

	metric.SetRoomsActive(len(r.rooms))

	return true
}

func (r *roomRepository) Exists(roomID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.rooms[roomID]
	return ok
}

func (r *roomRepository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.rooms)
}

func (r *roomRepository) Range(fn func(*models.Room)) {
	r.mu.RLock()
	rooms := make([]*models.Room, 0, len(r.rooms))
	for _, room := range r.rooms {
		rooms = append(rooms, room)
	}
	r.mu.RUnlock()

	for _, room := range rooms {
		fn(room)
	}
}
