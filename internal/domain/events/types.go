package events

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/qrave1/RoomPoint/internal/domain/models"
)

// Входящие события
const (
	TypeJoin               = "join"
	TypeVote               = "vote"
	TypeStartSession       = "startSession"
	TypeRevealVotes        = "revealVotes"
	TypeEndSession         = "endSession"
	TypeEndPointingSession = "endPointingSession"
	TypeForceRemoveUser    = "forceRemoveUser"
	TypeUpdateMood         = "updateMood"
	TypeUserTyping         = "userTyping"
	TypeTeamChat           = "teamChat"
	TypeEmojiReaction      = "emojiReaction"
	TypeLogout             = "logout"
	TypeHaifetti           = "haifetti"
	TypePing               = "ping"
)

var inbound = map[string]struct{}{
	TypeJoin: {}, TypeVote: {}, TypeStartSession: {}, TypeRevealVotes: {}, TypeEndSession: {},
	TypeEndPointingSession: {}, TypeForceRemoveUser: {}, TypeUpdateMood: {}, TypeUserTyping: {},
	TypeTeamChat: {}, TypeEmojiReaction: {}, TypeLogout: {}, TypeHaifetti: {}, TypePing: {},
}

// IsInbound сообщает, что клиент может прислать событие такого типа
func IsInbound(eventType string) bool {
	_, ok := inbound[eventType]
	return ok
}

// Исходящие события
const (
	TypeParticipantsUpdate = "participantsUpdate"
	TypeUpdateVotes        = "updateVotes"
	TypeUserJoined         = "userJoined"
	TypeUserLeft           = "userLeft"
	TypeSessionEnded       = "sessionEnded"
	TypeSessionTerminated  = "sessionTerminated"
	TypeTypingUpdate       = "typingUpdate"
	TypeError              = "error"
	TypePong               = "pong"

	// startSession, revealVotes, teamChat, emojiReaction и haifetti
	// уходят клиентам под теми же именами, что и приходят
)

// Message - общее событие
type Message struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Encode упаковывает полезную нагрузку в конверт; nil payload даёт событие без data
func Encode(eventType string, payload any) ([]byte, error) {
	msg := Message{Type: eventType}

	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal %s payload: %w", eventType, err)
		}
		msg.Data = data
	}

	return json.Marshal(msg)
}

// JoinEvent - вход в комнату
type JoinEvent struct {
	Nickname string `json:"nickname"`
	Room     string `json:"room"`
	Role     string `json:"role"`
	Avatar   string `json:"avatar"`
	Emoji    string `json:"emoji"`
	Device   string `json:"device"`
}

// Point - значение голоса: строка, число или null
type Point struct {
	Value *string
}

var errBadPoint = errors.New("point must be a string, a number or null")

func (p *Point) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		p.Value = nil
		return nil
	}

	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		p.Value = &s
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(b, &n); err == nil {
		s = n.String()
		p.Value = &s
		return nil
	}

	return errBadPoint
}

func (p Point) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.Value)
}

type VoteEvent struct {
	Nickname string `json:"nickname"`
	Point    Point  `json:"point"`
}

type StartSessionEvent struct {
	Title string `json:"title"`
	Room  string `json:"room"`
}

// ForceRemoveEvent принимает как строку с ником, так и {"nickname": "..."}
type ForceRemoveEvent struct {
	Target string
}

func (f *ForceRemoveEvent) UnmarshalJSON(b []byte) error {
	if err := json.Unmarshal(b, &f.Target); err == nil {
		return nil
	}

	var obj struct {
		Nickname string `json:"nickname"`
		Target   string `json:"target"`
	}
	if err := json.Unmarshal(b, &obj); err != nil {
		return fmt.Errorf("force remove target: %w", err)
	}

	f.Target = obj.Nickname
	if f.Target == "" {
		f.Target = obj.Target
	}

	return nil
}

type MoodEvent struct {
	Nickname string `json:"nickname"`
	Emoji    string `json:"emoji"`
}

type TeamChatEvent struct {
	Sender string `json:"sender"`
	Text   string `json:"text"`
}

type EmojiReactionEvent struct {
	Sender string `json:"sender"`
	Emoji  string `json:"emoji"`
}

// RevealVotesEvent - общее уведомление о раскрытии
type RevealVotesEvent struct {
	Story string `json:"story"`
}

// VoteSummary - приватная сводка для Scrum Master
type VoteSummary struct {
	Story     string             `json:"story"`
	Consensus []float64          `json:"consensus"`
	Votes     []models.VoteEntry `json:"votes"`
	Timestamp string             `json:"timestamp"`
	Expand    bool               `json:"expand"`
}

// VoteSummaryChat уходит как teamChat с type=voteSummary
type VoteSummaryChat struct {
	Type    string      `json:"type"`
	Summary VoteSummary `json:"summary"`
}

const ChatTypeVoteSummary = "voteSummary"

func NewVoteSummaryChat(reveal models.Reveal) VoteSummaryChat {
	return VoteSummaryChat{
		Type: ChatTypeVoteSummary,
		Summary: VoteSummary{
			Story:     reveal.Story,
			Consensus: reveal.Consensus,
			Votes:     reveal.Votes,
			Timestamp: reveal.Timestamp,
			Expand:    true,
		},
	}
}

type ErrorEvent struct {
	Message string `json:"message"`
}
