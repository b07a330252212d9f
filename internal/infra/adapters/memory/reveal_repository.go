package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/qrave1/RoomPoint/internal/domain/models"
)

// RevealRepository - архив раскрытий, когда ни Postgres, ни S3 не подключены.
// Хранит последние limit записей на комнату.
type RevealRepository struct {
	records map[string][]models.RevealRecord
	limit   int
	mu      sync.RWMutex
}

func NewRevealRepository(limit int) *RevealRepository {
	if limit <= 0 {
		limit = 1
	}

	return &RevealRepository{
		records: make(map[string][]models.RevealRecord),
		limit:   limit,
	}
}

func (r *RevealRepository) Save(_ context.Context, record models.RevealRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	list := append(r.records[record.RoomID], record)
	if len(list) > r.limit {
		list = slices.Clone(list[len(list)-r.limit:])
	}

	r.records[record.RoomID] = list

	return nil
}

// ListByRoom возвращает записи от новых к старым
func (r *RevealRepository) ListByRoom(_ context.Context, roomID string, limit int) ([]models.RevealRecord, error) {
	if limit <= 0 {
		limit = models.DefaultRevealListLimit
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	list := r.records[roomID]
	out := make([]models.RevealRecord, 0, len(list))

	for i := len(list) - 1; i >= 0; i-- {
		if len(out) == limit {
			break
		}
		out = append(out, list[i])
	}

	return out, nil
}
