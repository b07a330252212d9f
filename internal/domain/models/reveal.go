package models

import (
	"time"

	"github.com/google/uuid"
)

// DefaultRevealListLimit - сколько записей архива отдаётся, если limit не задан
const DefaultRevealListLimit = 50

type VoteEntry struct {
	Name   string `json:"name"`
	Avatar string `json:"avatar"`
	Point  string `json:"point"`
}

// Reveal - результат подсчёта голосов на момент раскрытия
type Reveal struct {
	Story     string      `json:"story"`
	Consensus []float64   `json:"consensus"`
	Votes     []VoteEntry `json:"votes"`
	Timestamp string      `json:"timestamp"`
}

// RevealRecord - запись архива раскрытий
type RevealRecord struct {
	ID         uuid.UUID   `json:"id"`
	RoomID     string      `json:"room_id"`
	Story      string      `json:"story"`
	Consensus  []float64   `json:"consensus"`
	Votes      []VoteEntry `json:"votes"`
	RevealedAt time.Time   `json:"revealed_at"`
}

func NewRevealRecord(roomID string, reveal Reveal, at time.Time) RevealRecord {
	return RevealRecord{
		ID:         uuid.New(),
		RoomID:     roomID,
		Story:      reveal.Story,
		Consensus:  reveal.Consensus,
		Votes:      reveal.Votes,
		RevealedAt: at,
	}
}
