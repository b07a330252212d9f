package models

import (
	"slices"
	"testing"
	"time"

	"github.com/qrave1/RoomPoint/internal/domain/scheduler"
)

func keysMatchParticipants(t *testing.T, r *Room) {
	t.Helper()

	for _, m := range []int{len(r.roles), len(r.avatars), len(r.moods), len(r.votes), len(r.devices)} {
		if m != len(r.participants) {
			t.Fatalf("map size %d != participants %d", m, len(r.participants))
		}
	}
}

func TestJoinDefaultsAndRefresh(t *testing.T) {
	r := NewRoom("r")

	if !r.Join("ann", Profile{Avatar: "a.png"}) {
		t.Fatal("first join must report a new participant")
	}

	role, _ := r.Role("ann")
	if role != RoleDeveloper {
		t.Errorf("default role = %q", role)
	}
	if r.devices["ann"] != DeviceDesktop {
		t.Errorf("default device = %q", r.devices["ann"])
	}

	five := "5"
	r.SetVote("ann", &five)

	if r.Join("ann", Profile{Role: RoleScrumMaster, Mood: "🙂", Device: DeviceMobile}) {
		t.Error("rejoin must not report a new participant")
	}

	if v, _ := r.Vote("ann"); v != nil {
		t.Errorf("rejoin must reset the vote, got %q", *v)
	}
	if role, _ := r.Role("ann"); role != RoleScrumMaster {
		t.Errorf("role after rejoin = %q", role)
	}
	if r.Len() != 1 {
		t.Errorf("Len = %d", r.Len())
	}

	keysMatchParticipants(t, r)
}

func TestJoinCancelsPendingRemoval(t *testing.T) {
	r := NewRoom("r")
	r.Join("ann", Profile{})

	key := scheduler.Key{Nickname: "ann", Purpose: scheduler.PurposeRemoval}
	r.Timers.Schedule(key, time.Hour, func(scheduler.Token) {})

	r.Join("ann", Profile{})

	if r.Timers.Pending(key) {
		t.Error("rejoin must cancel the removal timer")
	}
}

func TestRemoveClearsEverything(t *testing.T) {
	r := NewRoom("r")
	r.Join("ann", Profile{})
	r.Join("bob", Profile{})
	r.StartTyping("bob")
	r.Timers.Schedule(scheduler.Key{Nickname: "bob", Purpose: scheduler.PurposeTyping}, time.Hour, func(scheduler.Token) {})

	if !r.Remove("bob") {
		t.Fatal("Remove(bob) = false")
	}
	if r.Remove("bob") {
		t.Error("second Remove must report false")
	}

	if r.IsTyping("bob") || r.Timers.Len() != 0 {
		t.Error("typing state and timers must be dropped")
	}
	if !slices.Equal(r.Participants(), []string{"ann"}) {
		t.Errorf("participants = %v", r.Participants())
	}

	keysMatchParticipants(t, r)
}

func TestSessionResetsVotes(t *testing.T) {
	r := NewRoom("r")
	r.Join("ann", Profile{})
	r.Join("bob", Profile{})

	three := "3"
	r.SetVote("ann", &three)
	r.StartSession("story")

	for nickname, v := range r.Votes() {
		if v != nil {
			t.Errorf("%s vote survived startSession", nickname)
		}
	}

	r.SetVote("bob", &three)
	r.EndSession()

	if r.Story() != "" {
		t.Errorf("story = %q", r.Story())
	}
	if len(r.Votes()) != 2 {
		t.Errorf("votes keys must match participants: %v", r.Votes())
	}
	if v, _ := r.Vote("bob"); v != nil {
		t.Error("endSession must clear votes")
	}
}

func TestSetVoteRequiresParticipant(t *testing.T) {
	r := NewRoom("r")
	one := "1"

	if r.SetVote("ghost", &one) {
		t.Error("vote of a non participant must be rejected")
	}
	if len(r.Votes()) != 0 {
		t.Error("votes must stay empty")
	}
}

func TestVotesReturnsCopy(t *testing.T) {
	r := NewRoom("r")
	r.Join("ann", Profile{})

	one := "1"
	r.SetVote("ann", &one)
	one = "changed"

	votes := r.Votes()
	*votes["ann"] = "mutated"

	if v, _ := r.Vote("ann"); *v != "1" {
		t.Errorf("stored vote = %q", *v)
	}
}

func TestRosterAndWithRole(t *testing.T) {
	r := NewRoom("r")
	r.Join("sm", Profile{Role: RoleScrumMaster})
	r.Join("dev", Profile{Device: DeviceMobile})
	r.Join("sm2", Profile{Role: RoleScrumMaster})

	roster := r.Roster(map[string]struct{}{"sm2": {}, "dev": {}, "ghost": {}})

	if !slices.Equal(roster.Names, []string{"sm", "dev", "sm2"}) {
		t.Errorf("names = %v", roster.Names)
	}
	if !slices.Equal(roster.Connected, []string{"dev", "sm2"}) {
		t.Errorf("connected must follow join order and skip strangers: %v", roster.Connected)
	}
	if roster.Devices["dev"] != DeviceMobile {
		t.Errorf("devices = %v", roster.Devices)
	}

	if got := r.WithRole(RoleScrumMaster); !slices.Equal(got, []string{"sm", "sm2"}) {
		t.Errorf("WithRole = %v", got)
	}
}

func TestTypingSorted(t *testing.T) {
	r := NewRoom("r")

	if !r.StartTyping("zed") || r.StartTyping("zed") {
		t.Error("StartTyping must report only the first insertion")
	}
	r.StartTyping("amy")

	if got := r.Typing(); !slices.Equal(got, []string{"amy", "zed"}) {
		t.Errorf("Typing = %v", got)
	}

	if !r.StopTyping("amy") || r.StopTyping("amy") {
		t.Error("StopTyping must report only an actual removal")
	}
}

func TestMarkDeletedCancelsTimers(t *testing.T) {
	r := NewRoom("r")
	r.Join("ann", Profile{})
	r.Timers.Schedule(scheduler.Key{Nickname: "ann", Purpose: scheduler.PurposeRemoval}, time.Hour, func(scheduler.Token) {})

	r.MarkDeleted()

	if !r.Deleted() || r.Timers.Len() != 0 {
		t.Errorf("deleted = %v timers = %d", r.Deleted(), r.Timers.Len())
	}
}
