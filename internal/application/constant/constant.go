package constant

// Ключи атрибутов для slog
const (
	Error        = "error"
	RoomID       = "room_id"
	Nickname     = "nickname"
	ConnectionID = "connection_id"
	EventType    = "event_type"
	State        = "state"
	Target       = "target"
)
