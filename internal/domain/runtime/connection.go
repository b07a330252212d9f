package runtime

import (
	"github.com/google/uuid"

	"github.com/qrave1/RoomPoint/internal/domain/models"
)

// Connection - живое клиентское соединение.
// Outbox читает write pump транспорта; закрывается репозиторием при удалении.
type Connection struct {
	ID uuid.UUID
	// Device определяется по заголовкам при handshake
	Device models.DeviceClass
	Outbox chan []byte
}

func NewConnection(device models.DeviceClass, outboxSize int) *Connection {
	return &Connection{
		ID:     uuid.New(),
		Device: device,
		Outbox: make(chan []byte, outboxSize),
	}
}

// Binding - к какой комнате и под каким ником привязано соединение
type Binding struct {
	ConnectionID uuid.UUID
	RoomID       string
	Nickname     string
	Device       models.DeviceClass
}

func (b Binding) Bound() bool {
	return b.RoomID != ""
}
