package memory

import (
	"testing"

	"github.com/google/uuid"

	"github.com/qrave1/RoomPoint/internal/domain/models"
	"github.com/qrave1/RoomPoint/internal/domain/runtime"
)

func newConn(t *testing.T, repo WebsocketConnectionRepository, size int) *runtime.Connection {
	t.Helper()

	conn := runtime.NewConnection(models.DeviceDesktop, size)
	repo.Add(conn)

	return conn
}

func drain(ch <-chan []byte) []string {
	var out []string
	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return out
			}
			out = append(out, string(msg))
		default:
			return out
		}
	}
}

func TestPresenceFollowsBindings(t *testing.T) {
	repo := NewWSConnectionRepository()

	alice := newConn(t, repo, 4)
	bob := newConn(t, repo, 4)

	repo.Bind(alice.ID, "room", "alice")
	repo.Bind(bob.ID, "room", "bob")

	got := repo.ConnectedNicknames("room")
	if len(got) != 2 {
		t.Fatalf("ConnectedNicknames = %v, want alice and bob", got)
	}

	if _, ok := repo.Remove(bob.ID); !ok {
		t.Fatal("Remove(bob) reported missing connection")
	}

	if repo.IsConnected("room", "bob") {
		t.Error("bob must be offline right after Remove")
	}
	if !repo.IsConnected("room", "alice") {
		t.Error("alice must stay online")
	}

	if _, ok := <-bob.Outbox; ok {
		t.Error("outbox of a removed connection must be closed")
	}
}

func TestBindMovesConnectionBetweenRooms(t *testing.T) {
	repo := NewWSConnectionRepository()
	conn := newConn(t, repo, 1)

	repo.Bind(conn.ID, "a", "zoe")
	repo.Bind(conn.ID, "b", "zoe")

	if repo.IsConnected("a", "zoe") {
		t.Error("old room subscription must be dropped")
	}
	if !repo.IsConnected("b", "zoe") {
		t.Error("new room subscription missing")
	}

	binding, ok := repo.Unbind(conn.ID)
	if !ok || binding.RoomID != "b" || binding.Nickname != "zoe" {
		t.Fatalf("Unbind = %+v, %v", binding, ok)
	}

	if _, ok := repo.Unbind(conn.ID); ok {
		t.Error("second Unbind must report false")
	}

	b, ok := repo.Binding(conn.ID)
	if !ok || b.Bound() {
		t.Errorf("connection should exist unbound, got %+v", b)
	}
}

func TestSameNicknameTwoTabs(t *testing.T) {
	repo := NewWSConnectionRepository()
	tab1 := newConn(t, repo, 1)
	tab2 := newConn(t, repo, 1)

	repo.Bind(tab1.ID, "room", "sam")
	repo.Bind(tab2.ID, "room", "sam")
	repo.Remove(tab1.ID)

	if !repo.IsConnected("room", "sam") {
		t.Error("second tab keeps sam online")
	}
}

func TestWriteRoomAndNicknames(t *testing.T) {
	repo := NewWSConnectionRepository()

	sm := newConn(t, repo, 4)
	dev := newConn(t, repo, 4)
	other := newConn(t, repo, 4)

	repo.Bind(sm.ID, "room", "sm")
	repo.Bind(dev.ID, "room", "dev")
	repo.Bind(other.ID, "elsewhere", "sm")

	if n := repo.WriteRoom("room", []byte("all"), dev.ID); n != 1 {
		t.Errorf("WriteRoom excluding dev sent %d, want 1", n)
	}
	if n := repo.WriteNicknames("room", []string{"sm"}, []byte("private")); n != 1 {
		t.Errorf("WriteNicknames sent %d, want 1", n)
	}

	if got := drain(sm.Outbox); len(got) != 2 || got[0] != "all" || got[1] != "private" {
		t.Errorf("sm outbox = %v", got)
	}
	if got := drain(dev.Outbox); len(got) != 0 {
		t.Errorf("excluded dev received %v", got)
	}
	if got := drain(other.Outbox); len(got) != 0 {
		t.Errorf("other room received %v", got)
	}
}

func TestWriteDropsWhenOutboxFull(t *testing.T) {
	repo := NewWSConnectionRepository()
	conn := newConn(t, repo, 1)

	if !repo.Write(conn.ID, []byte("1")) {
		t.Fatal("first write must fit")
	}
	if repo.Write(conn.ID, []byte("2")) {
		t.Error("write into full outbox must be dropped")
	}
	if repo.Write(uuid.New(), []byte("x")) {
		t.Error("write to unknown connection must fail")
	}
}

func TestUnbindRoomAndCloseAll(t *testing.T) {
	repo := NewWSConnectionRepository()
	a := newConn(t, repo, 1)
	b := newConn(t, repo, 1)

	repo.Bind(a.ID, "room", "a")
	repo.Bind(b.ID, "room", "b")

	if n := repo.UnbindRoom("room"); n != 2 {
		t.Errorf("UnbindRoom = %d, want 2", n)
	}
	if len(repo.ConnectedNicknames("room")) != 0 {
		t.Error("room must have no subscribers")
	}

	repo.CloseAll()

	if repo.Count() != 0 {
		t.Errorf("Count after CloseAll = %d", repo.Count())
	}
	if _, ok := repo.Remove(a.ID); ok {
		t.Error("Remove after CloseAll must report false")
	}
}

func TestUnbindNicknameDropsEveryTab(t *testing.T) {
	repo := NewWSConnectionRepository()

	tab1 := newConn(t, repo, 4)
	tab2 := newConn(t, repo, 4)
	other := newConn(t, repo, 4)

	repo.Bind(tab1.ID, "room", "n")
	repo.Bind(tab2.ID, "room", "n")
	repo.Bind(other.ID, "room", "o")

	if n := repo.UnbindNickname("room", "n"); n != 2 {
		t.Fatalf("UnbindNickname = %d, want 2", n)
	}

	if repo.IsConnected("room", "n") {
		t.Error("n must be offline after UnbindNickname")
	}
	if !repo.IsConnected("room", "o") {
		t.Error("o must stay online")
	}

	if b, _ := repo.Binding(tab2.ID); b.Bound() {
		t.Errorf("tab2 still bound: %+v", b)
	}

	if n := repo.UnbindNickname("room", "n"); n != 0 {
		t.Errorf("second UnbindNickname = %d, want 0", n)
	}
}
