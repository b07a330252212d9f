package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/qrave1/RoomPoint/internal/domain/models"
)

type RevealRepository struct {
	db *sqlx.DB
}

func NewRevealRepo(db *sqlx.DB) *RevealRepository {
	return &RevealRepository{db: db}
}

// revealRow - строка таблицы reveals; consensus и votes лежат в jsonb
type revealRow struct {
	ID         uuid.UUID `db:"id"`
	RoomID     string    `db:"room_id"`
	Story      string    `db:"story"`
	Consensus  []byte    `db:"consensus"`
	Votes      []byte    `db:"votes"`
	RevealedAt time.Time `db:"revealed_at"`
}

func (r *RevealRepository) Save(ctx context.Context, record models.RevealRecord) error {
	consensus, err := json.Marshal(nonNil(record.Consensus))
	if err != nil {
		return fmt.Errorf("marshal consensus: %w", err)
	}

	votes, err := json.Marshal(nonNil(record.Votes))
	if err != nil {
		return fmt.Errorf("marshal votes: %w", err)
	}

	row := revealRow{
		ID:         record.ID,
		RoomID:     record.RoomID,
		Story:      record.Story,
		Consensus:  consensus,
		Votes:      votes,
		RevealedAt: record.RevealedAt,
	}

	query := `INSERT INTO reveals (id, room_id, story, consensus, votes, revealed_at)
		VALUES (:id, :room_id, :story, :consensus, :votes, :revealed_at)`

	res, err := r.db.NamedExecContext(ctx, query, row)
	if err != nil {
		return fmt.Errorf("insert reveal: %w", err)
	}

	if aff, err := res.RowsAffected(); aff == 0 || err != nil {
		return fmt.Errorf("insert reveal no rows affected: %w", err)
	}

	return nil
}

func (r *RevealRepository) ListByRoom(ctx context.Context, roomID string, limit int) ([]models.RevealRecord, error) {
	if limit <= 0 {
		limit = models.DefaultRevealListLimit
	}

	query := `SELECT id, room_id, story, consensus, votes, revealed_at
		FROM reveals
		WHERE room_id = $1
		ORDER BY revealed_at DESC
		LIMIT $2`

	var rows []revealRow
	if err := r.db.SelectContext(ctx, &rows, query, roomID, limit); err != nil {
		return nil, fmt.Errorf("select reveals: %w", err)
	}

	records := make([]models.RevealRecord, 0, len(rows))

	for _, row := range rows {
		record := models.RevealRecord{
			ID:         row.ID,
			RoomID:     row.RoomID,
			Story:      row.Story,
			RevealedAt: row.RevealedAt,
		}

		if err := json.Unmarshal(row.Consensus, &record.Consensus); err != nil {
			return nil, fmt.Errorf("unmarshal consensus of %s: %w", row.ID, err)
		}

		if err := json.Unmarshal(row.Votes, &record.Votes); err != nil {
			return nil, fmt.Errorf("unmarshal votes of %s: %w", row.ID, err)
		}

		records = append(records, record)
	}

	return records, nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}

	return s
}
