package usecase

import (
	"slices"
	"testing"
	"time"

	"github.com/qrave1/RoomPoint/internal/domain/models"
)

func vote(s string) *string {
	return &s
}

func tallyRoom(t *testing.T, votes map[string]*string, roles map[string]models.Role) *models.Room {
	t.Helper()

	room := models.NewRoom("room")

	names := make([]string, 0, len(votes))
	for nickname := range votes {
		names = append(names, nickname)
	}
	slices.Sort(names)

	for _, nickname := range names {
		role := roles[nickname]
		if role == "" {
			role = models.RoleDeveloper
		}

		room.Join(nickname, models.Profile{Role: role, Avatar: nickname + ".png"})
		room.SetVote(nickname, votes[nickname])
	}

	return room
}

func online(nicknames ...string) map[string]struct{} {
	out := make(map[string]struct{}, len(nicknames))
	for _, nickname := range nicknames {
		out[nickname] = struct{}{}
	}
	return out
}

func TestTallyConsensus(t *testing.T) {
	cases := []struct {
		name  string
		votes map[string]*string
		want  []float64
	}{
		{
			name:  "single mode",
			votes: map[string]*string{"a": vote("5"), "b": vote("5"), "c": vote("8")},
			want:  []float64{5},
		},
		{
			name:  "tie sorted ascending",
			votes: map[string]*string{"a": vote("8"), "b": vote("3"), "c": vote("8"), "d": vote("3")},
			want:  []float64{3, 8},
		},
		{
			name:  "numeric forms collapse",
			votes: map[string]*string{"a": vote("5"), "b": vote("5.0"), "c": vote("13")},
			want:  []float64{5},
		},
		{
			name:  "only non numeric",
			votes: map[string]*string{"a": vote("?"), "b": vote("coffee")},
			want:  []float64{},
		},
		{
			name:  "nobody voted",
			votes: map[string]*string{"a": nil, "b": vote("")},
			want:  []float64{},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			room := tallyRoom(t, tc.votes, nil)

			connected := make(map[string]struct{})
			for nickname := range tc.votes {
				connected[nickname] = struct{}{}
			}

			got := Tally(room, connected, time.Now(), time.UTC)
			if !slices.Equal(got.Consensus, tc.want) {
				t.Errorf("Consensus = %v, want %v", got.Consensus, tc.want)
			}
			if got.Consensus == nil {
				t.Error("Consensus must be an empty slice, not nil")
			}
		})
	}
}

func TestTallyFiltersVoters(t *testing.T) {
	room := tallyRoom(t,
		map[string]*string{
			"dev":     vote("3"),
			"offline": vote("8"),
			"sm":      vote("8"),
			"skip":    nil,
			"empty":   vote(""),
			"other":   vote("?"),
		},
		map[string]models.Role{"sm": models.RoleScrumMaster},
	)

	got := Tally(room, online("dev", "sm", "skip", "empty", "other"), time.Now(), time.UTC)

	var names []string
	for _, v := range got.Votes {
		names = append(names, v.Name)
	}

	// порядок входа: участники добавлены по алфавиту
	if want := []string{"dev", "other"}; !slices.Equal(names, want) {
		t.Fatalf("voters = %v, want %v", names, want)
	}

	if got.Votes[0].Avatar != "dev.png" || got.Votes[0].Point != "3" {
		t.Errorf("first entry = %+v", got.Votes[0])
	}
	if got.Votes[1].Point != "?" {
		t.Errorf("non numeric vote must be kept verbatim, got %q", got.Votes[1].Point)
	}

	if !slices.Equal(got.Consensus, []float64{3}) {
		t.Errorf("Consensus = %v, want [3]", got.Consensus)
	}
}

func TestTallyStoryAndTimestamp(t *testing.T) {
	room := tallyRoom(t, map[string]*string{"a": nil}, nil)
	room.StartSession("JIRA-1")

	at := time.Date(2024, 3, 1, 9, 5, 7, 0, time.UTC)
	got := Tally(room, online("a"), at, time.UTC)

	if got.Story != "JIRA-1" {
		t.Errorf("Story = %q", got.Story)
	}
	if got.Timestamp != "09:05:07" {
		t.Errorf("Timestamp = %q, want 09:05:07", got.Timestamp)
	}
	if got.Votes == nil || len(got.Votes) != 0 {
		t.Errorf("Votes = %v, want empty slice", got.Votes)
	}
}

func TestNumericPoint(t *testing.T) {
	for in, want := range map[string]bool{
		"1":     true,
		" 2 ":   true,
		"0.5":   true,
		"-3":    true,
		"?":     false,
		"":      false,
		"  ":    false,
		"NaN":   false,
		"Inf":   false,
		"1e400": false,
	} {
		if _, ok := numericPoint(in); ok != want {
			t.Errorf("numericPoint(%q) = %v, want %v", in, ok, want)
		}
	}
}
