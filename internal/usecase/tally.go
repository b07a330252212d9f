package usecase

import (
	"math"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/qrave1/RoomPoint/internal/domain/models"
)

const revealTimeLayout = "15:04:05"

// Tally считает консенсус по голосам подключённых разработчиков.
//
// Пустые и отсутствующие голоса не учитываются. Нечисловые значения попадают
// в Votes как есть, но не участвуют в подсчёте частот. Consensus - все значения
// с максимальной частотой по возрастанию; без числовых голосов он пустой.
func Tally(room *models.Room, connected map[string]struct{}, now time.Time, loc *time.Location) models.Reveal {
	reveal := models.Reveal{
		Story:     room.Story(),
		Consensus: []float64{},
		Votes:     []models.VoteEntry{},
		Timestamp: now.In(location(loc)).Format(revealTimeLayout),
	}

	frequency := make(map[float64]int)

	for _, nickname := range room.Participants() {
		if role, _ := room.Role(nickname); role != models.RoleDeveloper {
			continue
		}

		if _, online := connected[nickname]; !online {
			continue
		}

		point, _ := room.Vote(nickname)
		if point == nil || *point == "" {
			continue
		}

		reveal.Votes = append(reveal.Votes, models.VoteEntry{
			Name:   nickname,
			Avatar: room.Avatar(nickname),
			Point:  *point,
		})

		if value, ok := numericPoint(*point); ok {
			frequency[value]++
		}
	}

	maxCount := 0
	for _, count := range frequency {
		maxCount = max(maxCount, count)
	}

	if maxCount == 0 {
		return reveal
	}

	for value, count := range frequency {
		if count == maxCount {
			reveal.Consensus = append(reveal.Consensus, value)
		}
	}

	slices.Sort(reveal.Consensus)

	return reveal
}

// numericPoint приводит голос к числу; "?", "coffee" и прочее - не числа
func numericPoint(point string) (float64, bool) {
	value, err := strconv.ParseFloat(strings.TrimSpace(point), 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, false
	}

	return value, true
}

func location(loc *time.Location) *time.Location {
	if loc == nil {
		return time.Local
	}

	return loc
}
