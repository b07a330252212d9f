package memory

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/qrave1/RoomPoint/internal/application/constant"
	"github.com/qrave1/RoomPoint/internal/application/metric"
	"github.com/qrave1/RoomPoint/internal/domain/runtime"
)

// WebsocketConnectionRepository хранит живые соединения и обратный индекс
// комната -> соединения. По нему определяется, кто из участников онлайн.
type WebsocketConnectionRepository interface {
	Add(conn *runtime.Connection)

	// Remove забывает соединение, закрывает его очередь и возвращает последнюю привязку
	Remove(id uuid.UUID) (runtime.Binding, bool)

	// Bind подписывает соединение на комнату под ником
	Bind(id uuid.UUID, roomID, nickname string) bool
	Unbind(id uuid.UUID) (runtime.Binding, bool)

	// UnbindRoom снимает все подписки на комнату
	UnbindRoom(roomID string) int

	// UnbindNickname снимает с комнаты все вкладки ника
	UnbindNickname(roomID, nickname string) int

	Binding(id uuid.UUID) (runtime.Binding, bool)

	ConnectedNicknames(roomID string) map[string]struct{}
	IsConnected(roomID, nickname string) bool

	Write(id uuid.UUID, payload []byte) bool
	WriteRoom(roomID string, payload []byte, exclude uuid.UUID) int
	WriteNicknames(roomID string, nicknames []string, payload []byte) int

	Count() int
	CloseAll()
}

type trackedConn struct {
	conn     *runtime.Connection
	roomID   string
	nickname string
}

type wsConnectionRepository struct {
	conns map[uuid.UUID]*trackedConn

	// byRoom - обратный индекс room_id -> connection ids
	byRoom map[string]map[uuid.UUID]struct{}

	mu sync.RWMutex
}

func NewWSConnectionRepository() WebsocketConnectionRepository {
	return &wsConnectionRepository{
		conns:  make(map[uuid.UUID]*trackedConn, 10),
		byRoom: make(map[string]map[uuid.UUID]struct{}),
	}
}

func (w *wsConnectionRepository) Add(conn *runtime.Connection) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.conns[conn.ID] = &trackedConn{conn: conn}
}

func (w *wsConnectionRepository) Remove(id uuid.UUID) (runtime.Binding, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	tc, ok := w.conns[id]
	if !ok {
		return runtime.Binding{}, false
	}

	binding := tc.binding()

	w.unindex(tc)
	delete(w.conns, id)
	close(tc.conn.Outbox)

	return binding, true
}

func (w *wsConnectionRepository) Bind(id uuid.UUID, roomID, nickname string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	tc, ok := w.conns[id]
	if !ok {
		return false
	}

	w.unindex(tc)

	tc.roomID = roomID
	tc.nickname = nickname

	ids, ok := w.byRoom[roomID]
	if !ok {
		ids = make(map[uuid.UUID]struct{})
		w.byRoom[roomID] = ids
	}
	ids[id] = struct{}{}

	return true
}

func (w *wsConnectionRepository) Unbind(id uuid.UUID) (runtime.Binding, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	tc, ok := w.conns[id]
	if !ok || tc.roomID == "" {
		return runtime.Binding{}, false
	}

	binding := tc.binding()
	w.unindex(tc)

	return binding, true
}

func (w *wsConnectionRepository) UnbindRoom(roomID string) int {
	w.mu.Lock()
	defer w.mu.Unlock()

	ids := w.byRoom[roomID]
	for id := range ids {
		if tc, ok := w.conns[id]; ok {
			tc.roomID = ""
			tc.nickname = ""
		}
	}

	delete(w.byRoom, roomID)

	return len(ids)
}

func (w *wsConnectionRepository) UnbindNickname(roomID, nickname string) int {
	w.mu.Lock()
	defer w.mu.Unlock()

	unbound := 0
	for id := range w.byRoom[roomID] {
		tc, ok := w.conns[id]
		if !ok || tc.nickname != nickname {
			continue
		}

		w.unindex(tc)
		unbound++
	}

	return unbound
}

func (w *wsConnectionRepository) Binding(id uuid.UUID) (runtime.Binding, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	tc, ok := w.conns[id]
	if !ok {
		return runtime.Binding{}, false
	}

	return tc.binding(), true
}

func (w *wsConnectionRepository) ConnectedNicknames(roomID string) map[string]struct{} {
	w.mu.RLock()
	defer w.mu.RUnlock()

	nicknames := make(map[string]struct{}, len(w.byRoom[roomID]))

	for id := range w.byRoom[roomID] {
		if tc, ok := w.conns[id]; ok && tc.nickname != "" {
			nicknames[tc.nickname] = struct{}{}
		}
	}

	return nicknames
}

func (w *wsConnectionRepository) IsConnected(roomID, nickname string) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()

	for id := range w.byRoom[roomID] {
		if tc, ok := w.conns[id]; ok && tc.nickname == nickname {
			return true
		}
	}

	return false
}

func (w *wsConnectionRepository) Write(id uuid.UUID, payload []byte) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()

	tc, ok := w.conns[id]
	if !ok {
		return false
	}

	return enqueue(tc, payload)
}

func (w *wsConnectionRepository) WriteRoom(roomID string, payload []byte, exclude uuid.UUID) int {
	w.mu.RLock()
	defer w.mu.RUnlock()

	sent := 0
	for id := range w.byRoom[roomID] {
		if id == exclude {
			continue
		}

		if tc, ok := w.conns[id]; ok && enqueue(tc, payload) {
			sent++
		}
	}

	return sent
}

func (w *wsConnectionRepository) WriteNicknames(roomID string, nicknames []string, payload []byte) int {
	if len(nicknames) == 0 {
		return 0
	}

	wanted := make(map[string]struct{}, len(nicknames))
	for _, nickname := range nicknames {
		wanted[nickname] = struct{}{}
	}

	w.mu.RLock()
	defer w.mu.RUnlock()

	sent := 0
	for id := range w.byRoom[roomID] {
		tc, ok := w.conns[id]
		if !ok {
			continue
		}

		if _, match := wanted[tc.nickname]; match && enqueue(tc, payload) {
			sent++
		}
	}

	return sent
}

func (w *wsConnectionRepository) Count() int {
	w.mu.RLock()
	defer w.mu.RUnlock()

	return len(w.conns)
}

func (w *wsConnectionRepository) CloseAll() {
	w.mu.Lock()
	defer w.mu.Unlock()

	for id, tc := range w.conns {
		close(tc.conn.Outbox)
		delete(w.conns, id)
	}

	clear(w.byRoom)
}

// unindex убирает соединение из обратного индекса; вызывается под w.mu
func (w *wsConnectionRepository) unindex(tc *trackedConn) {
	if tc.roomID == "" {
		return
	}

	if ids, ok := w.byRoom[tc.roomID]; ok {
		delete(ids, tc.conn.ID)

		if len(ids) == 0 {
			delete(w.byRoom, tc.roomID)
		}
	}

	tc.roomID = ""
	tc.nickname = ""
}

func (tc *trackedConn) binding() runtime.Binding {
	return runtime.Binding{
		ConnectionID: tc.conn.ID,
		RoomID:       tc.roomID,
		Nickname:     tc.nickname,
		Device:       tc.conn.Device,
	}
}

// enqueue не блокируется: при переполненной очереди сообщение теряется
func enqueue(tc *trackedConn, payload []byte) bool {
	select {
	case tc.conn.Outbox <- payload:
		return true
	default:
		metric.IncrementDroppedMessages()
		slog.Warn(
			"outbox full, message dropped",
			slog.Any(constant.ConnectionID, tc.conn.ID),
			slog.String(constant.RoomID, tc.roomID),
		)

		return false
	}
}
