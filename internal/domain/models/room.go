package models

import (
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/qrave1/RoomPoint/internal/domain/scheduler"
)

// Profile - данные, которые участник присылает при входе в комнату
type Profile struct {
	Role   Role
	Avatar string
	Mood   string
	Device DeviceClass
}

// Room хранит состояние одной комнаты оценки.
//
// Методы Room не берут блокировку сами: вызывающий обязан держать Lock
// на всё время перехода, чтобы изменения комнаты не перемешивались.
// Ключи roles, avatars, moods, votes и devices всегда совпадают с participants.
type Room struct {
	mu sync.Mutex

	ID        string
	CreatedAt time.Time

	// Timers - отложенные задачи комнаты (grace удаление, typing)
	Timers *scheduler.Scheduler

	participants []string
	roles        map[string]Role
	avatars      map[string]string
	moods        map[string]string
	votes        map[string]*string
	devices      map[string]DeviceClass
	typing       map[string]struct{}
	story        string
	deleted      bool
}

func NewRoom(id string) *Room {
	return &Room{
		ID:        id,
		CreatedAt: time.Now(),
		Timers:    scheduler.New(),
		roles:     make(map[string]Role),
		avatars:   make(map[string]string),
		moods:     make(map[string]string),
		votes:     make(map[string]*string),
		devices:   make(map[string]DeviceClass),
		typing:    make(map[string]struct{}),
	}
}

func (r *Room) Lock() {
	r.mu.Lock()
}

func (r *Room) Unlock() {
	r.mu.Unlock()
}

// Deleted сообщает, что комната уже удалена из реестра и её состояние мертво
func (r *Room) Deleted() bool {
	return r.deleted
}

// MarkDeleted отменяет все таймеры и помечает комнату удалённой
func (r *Room) MarkDeleted() {
	r.deleted = true
	r.Timers.CancelAll()
}

func (r *Room) Has(nickname string) bool {
	_, ok := r.roles[nickname]
	return ok
}

func (r *Room) Len() int {
	return len(r.participants)
}

func (r *Room) IsEmpty() bool {
	return len(r.participants) == 0
}

func (r *Room) Participants() []string {
	return slices.Clone(r.participants)
}

// Join добавляет участника или обновляет профиль уже присутствующего.
// Голос всегда сбрасывается. Возвращает true для нового участника.
func (r *Room) Join(nickname string, p Profile) bool {
	isNew := !r.Has(nickname)
	if isNew {
		r.participants = append(r.participants, nickname)
	}

	if p.Role == "" {
		p.Role = RoleDeveloper
	}
	if p.Device == "" {
		p.Device = DeviceDesktop
	}

	r.roles[nickname] = p.Role
	r.avatars[nickname] = p.Avatar
	r.moods[nickname] = p.Mood
	r.devices[nickname] = p.Device
	r.votes[nickname] = nil

	r.Timers.Cancel(scheduler.Key{Nickname: nickname, Purpose: scheduler.PurposeRemoval})

	return isNew
}

// Remove полностью убирает участника и его отложенные задачи
func (r *Room) Remove(nickname string) bool {
	idx := slices.Index(r.participants, nickname)
	if idx < 0 {
		return false
	}

	r.participants = slices.Delete(r.participants, idx, idx+1)

	delete(r.roles, nickname)
	delete(r.avatars, nickname)
	delete(r.moods, nickname)
	delete(r.votes, nickname)
	delete(r.devices, nickname)
	delete(r.typing, nickname)

	r.Timers.CancelNickname(nickname)

	return true
}

func (r *Room) Role(nickname string) (Role, bool) {
	role, ok := r.roles[nickname]
	return role, ok
}

func (r *Room) Avatar(nickname string) string {
	return r.avatars[nickname]
}

// WithRole возвращает участников с указанной ролью в порядке входа
func (r *Room) WithRole(role Role) []string {
	var nicknames []string

	for _, nickname := range r.participants {
		if r.roles[nickname] == role {
			nicknames = append(nicknames, nickname)
		}
	}

	return nicknames
}

// SetVote записывает голос; nil означает "не голосовал"
func (r *Room) SetVote(nickname string, point *string) bool {
	if !r.Has(nickname) {
		return false
	}

	if point != nil {
		v := *point
		point = &v
	}

	r.votes[nickname] = point
	return true
}

func (r *Room) Vote(nickname string) (*string, bool) {
	v, ok := r.votes[nickname]
	return v, ok
}

// Votes - копия карты голосов для рассылки
func (r *Room) Votes() map[string]*string {
	out := make(map[string]*string, len(r.votes))

	for nickname, v := range r.votes {
		if v != nil {
			cp := *v
			v = &cp
		}
		out[nickname] = v
	}

	return out
}

func (r *Room) resetVotes() {
	for _, nickname := range r.participants {
		r.votes[nickname] = nil
	}
}

func (r *Room) StartSession(story string) {
	r.resetVotes()
	r.story = story
}

func (r *Room) EndSession() {
	r.resetVotes()
	r.story = ""
}

func (r *Room) Story() string {
	return r.story
}

func (r *Room) SetMood(nickname, mood string) bool {
	if !r.Has(nickname) {
		return false
	}

	r.moods[nickname] = mood
	return true
}

// StartTyping возвращает true, если участник только что появился в списке печатающих
func (r *Room) StartTyping(nickname string) bool {
	if _, ok := r.typing[nickname]; ok {
		return false
	}

	r.typing[nickname] = struct{}{}
	return true
}

func (r *Room) StopTyping(nickname string) bool {
	if _, ok := r.typing[nickname]; !ok {
		return false
	}

	delete(r.typing, nickname)
	return true
}

func (r *Room) IsTyping(nickname string) bool {
	_, ok := r.typing[nickname]
	return ok
}

func (r *Room) Typing() []string {
	names := make([]string, 0, len(r.typing))
	for nickname := range r.typing {
		names = append(names, nickname)
	}

	sort.Strings(names)
	return names
}

// Roster - полезная нагрузка participantsUpdate
type Roster struct {
	Names     []string               `json:"names"`
	Roles     map[string]Role        `json:"roles"`
	Avatars   map[string]string      `json:"avatars"`
	Moods     map[string]string      `json:"moods"`
	Connected []string               `json:"connected"`
	Devices   map[string]DeviceClass `json:"devices"`
}

// Roster собирает список участников; connected - ники с живым соединением
func (r *Room) Roster(connected map[string]struct{}) Roster {
	roster := Roster{
		Names:     r.Participants(),
		Roles:     make(map[string]Role, len(r.roles)),
		Avatars:   make(map[string]string, len(r.avatars)),
		Moods:     make(map[string]string, len(r.moods)),
		Connected: make([]string, 0, len(connected)),
		Devices:   make(map[string]DeviceClass, len(r.devices)),
	}

	for _, nickname := range r.participants {
		roster.Roles[nickname] = r.roles[nickname]
		roster.Avatars[nickname] = r.avatars[nickname]
		roster.Moods[nickname] = r.moods[nickname]
		roster.Devices[nickname] = r.devices[nickname]

		if _, ok := connected[nickname]; ok {
			roster.Connected = append(roster.Connected, nickname)
		}
	}

	return roster
}

type ParticipantView struct {
	Name      string      `json:"name"`
	Role      Role        `json:"role"`
	Avatar    string      `json:"avatar"`
	Mood      string      `json:"mood"`
	Device    DeviceClass `json:"device"`
	Connected bool        `json:"connected"`
	Voted     bool        `json:"voted"`

	// AwaitingRemoval - участник отключён и ждёт истечения grace периода
	AwaitingRemoval bool `json:"awaiting_removal"`
}

type Snapshot struct {
	ID           string            `json:"id"`
	Story        string            `json:"story"`
	Participants []ParticipantView `json:"participants"`
	Typing       []string          `json:"typing"`
	CreatedAt    time.Time         `json:"created_at"`
}

func (r *Room) Snapshot(connected map[string]struct{}) Snapshot {
	snap := Snapshot{
		ID:           r.ID,
		Story:        r.story,
		Participants: make([]ParticipantView, 0, len(r.participants)),
		Typing:       r.Typing(),
		CreatedAt:    r.CreatedAt,
	}

	for _, nickname := range r.participants {
		_, online := connected[nickname]
		pending := r.Timers.Pending(scheduler.Key{Nickname: nickname, Purpose: scheduler.PurposeRemoval})

		snap.Participants = append(snap.Participants, ParticipantView{
			Name:            nickname,
			Role:            r.roles[nickname],
			Avatar:          r.avatars[nickname],
			Mood:            r.moods[nickname],
			Device:          r.devices[nickname],
			Connected:       online,
			Voted:           r.votes[nickname] != nil,
			AwaitingRemoval: pending,
		})
	}

	return snap
}
