package usecase

import (
	"log/slog"

	"github.com/google/uuid"

	"github.com/qrave1/RoomPoint/internal/application/constant"
	"github.com/qrave1/RoomPoint/internal/domain/events"
	"github.com/qrave1/RoomPoint/internal/domain/models"
	"github.com/qrave1/RoomPoint/internal/infra/adapters/memory"
)

// BroadcastUsecase рассылает события подписчикам комнаты.
// Доставка fire-and-forget: без подтверждений и повторов.
type BroadcastUsecase interface {
	ToRoom(roomID, eventType string, payload any)
	ToRoomExcept(roomID string, except uuid.UUID, eventType string, payload any)
	ToConnection(connID uuid.UUID, eventType string, payload any)

	// ToRoleInRoom отправляет только живым соединениям участников с этой ролью.
	// Вызывающий держит блокировку комнаты.
	ToRoleInRoom(room *models.Room, role models.Role, eventType string, payload any)
}

type broadcastUsecase struct {
	wsRepo memory.WebsocketConnectionRepository
}

func NewBroadcastUsecase(wsRepo memory.WebsocketConnectionRepository) BroadcastUsecase {
	return &broadcastUsecase{wsRepo: wsRepo}
}

func (b *broadcastUsecase) ToRoom(roomID, eventType string, payload any) {
	b.ToRoomExcept(roomID, uuid.Nil, eventType, payload)
}

func (b *broadcastUsecase) ToRoomExcept(roomID string, except uuid.UUID, eventType string, payload any) {
	msg, ok := encode(eventType, payload)
	if !ok {
		return
	}

	b.wsRepo.WriteRoom(roomID, msg, except)
}

func (b *broadcastUsecase) ToConnection(connID uuid.UUID, eventType string, payload any) {
	msg, ok := encode(eventType, payload)
	if !ok {
		return
	}

	b.wsRepo.Write(connID, msg)
}

func (b *broadcastUsecase) ToRoleInRoom(room *models.Room, role models.Role, eventType string, payload any) {
	nicknames := room.WithRole(role)
	if len(nicknames) == 0 {
		return
	}

	msg, ok := encode(eventType, payload)
	if !ok {
		return
	}

	b.wsRepo.WriteNicknames(room.ID, nicknames, msg)
}

func encode(eventType string, payload any) ([]byte, bool) {
	msg, err := events.Encode(eventType, payload)
	if err != nil {
		slog.Error("encode event", slog.String(constant.EventType, eventType), slog.Any(constant.Error, err))
		return nil, false
	}

	return msg, true
}
