package dto

import (
	"time"

	"github.com/google/uuid"

	"github.com/qrave1/RoomPoint/internal/domain/models"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

type RoomResponse struct {
	ID           string                   `json:"id"`
	Story        string                   `json:"story"`
	Participants []models.ParticipantView `json:"participants"`
	Typing       []string                 `json:"typing"`
	CreatedAt    time.Time                `json:"created_at"`
}

func NewRoomResponseFromSnapshot(snap models.Snapshot) RoomResponse {
	return RoomResponse{
		ID:           snap.ID,
		Story:        snap.Story,
		Participants: snap.Participants,
		Typing:       snap.Typing,
		CreatedAt:    snap.CreatedAt,
	}
}

type RevealResponse struct {
	ID         uuid.UUID          `json:"id"`
	Story      string             `json:"story"`
	Consensus  []float64          `json:"consensus"`
	Votes      []models.VoteEntry `json:"votes"`
	RevealedAt time.Time          `json:"revealed_at"`
}

type ListRevealsResponse struct {
	RoomID  string           `json:"room_id"`
	Reveals []RevealResponse `json:"reveals"`
}

func NewListRevealsResponse(roomID string, records []models.RevealRecord) ListRevealsResponse {
	resp := ListRevealsResponse{
		RoomID:  roomID,
		Reveals: make([]RevealResponse, 0, len(records)),
	}

	for _, rec := range records {
		resp.Reveals = append(resp.Reveals, RevealResponse{
			ID:         rec.ID,
			Story:      rec.Story,
			Consensus:  rec.Consensus,
			Votes:      rec.Votes,
			RevealedAt: rec.RevealedAt,
		})
	}

	return resp
}
