package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/qrave1/RoomPoint/internal/application/config"
	"github.com/qrave1/RoomPoint/internal/application/constant"
	"github.com/qrave1/RoomPoint/internal/application/metric"
	"github.com/qrave1/RoomPoint/internal/domain/events"
	"github.com/qrave1/RoomPoint/internal/domain/models"
	"github.com/qrave1/RoomPoint/internal/domain/runtime"
	"github.com/qrave1/RoomPoint/internal/domain/scheduler"
	"github.com/qrave1/RoomPoint/internal/infra/adapters/memory"
)

var ErrRoomNotFound = errors.New("room not found")

// RevealArchive хранит результаты раскрытий (память, Postgres или S3)
type RevealArchive interface {
	Save(ctx context.Context, record models.RevealRecord) error
	ListByRoom(ctx context.Context, roomID string, limit int) ([]models.RevealRecord, error)
}

// RoomUsecase - машина состояний комнаты.
//
// Каждое событие выполняется под блокировкой своей комнаты. Нарушение
// условий (нет комнаты, не участник, не та роль) - тихий no-op.
type RoomUsecase interface {
	HandleJoin(ctx context.Context, connID uuid.UUID, ev events.JoinEvent) error
	HandleVote(ctx context.Context, connID uuid.UUID, ev events.VoteEvent) error
	HandleStartSession(ctx context.Context, connID uuid.UUID, ev events.StartSessionEvent) error
	HandleRevealVotes(ctx context.Context, connID uuid.UUID) error
	HandleEndSession(ctx context.Context, connID uuid.UUID) error
	HandleEndPointingSession(ctx context.Context, connID uuid.UUID) error
	HandleUpdateMood(ctx context.Context, connID uuid.UUID, ev events.MoodEvent) error
	HandleUserTyping(ctx context.Context, connID uuid.UUID) error
	HandleForceRemoveUser(ctx context.Context, connID uuid.UUID, ev events.ForceRemoveEvent) error
	HandleLogout(ctx context.Context, connID uuid.UUID) error
	HandleDisconnect(ctx context.Context, connID uuid.UUID) error

	HandleTeamChat(ctx context.Context, connID uuid.UUID, ev events.TeamChatEvent) error
	HandleEmojiReaction(ctx context.Context, connID uuid.UUID, ev events.EmojiReactionEvent) error
	HandleHaifetti(ctx context.Context, connID uuid.UUID) error
	HandlePing(ctx context.Context, connID uuid.UUID)

	Snapshot(roomID string) (models.Snapshot, error)
	Reveals(ctx context.Context, roomID string, limit int) ([]models.RevealRecord, error)

	// Shutdown останавливает все таймеры и закрывает соединения
	Shutdown()
}

type roomUsecase struct {
	cfg *config.Config

	roomRepo memory.RoomRepository
	wsRepo   memory.WebsocketConnectionRepository

	broadcast BroadcastUsecase
	archive   RevealArchive

	now func() time.Time
}

func NewRoomUsecase(
	cfg *config.Config,
	roomRepo memory.RoomRepository,
	wsRepo memory.WebsocketConnectionRepository,
	broadcast BroadcastUsecase,
	archive RevealArchive,
) RoomUsecase {
	return &roomUsecase{
		cfg:       cfg,
		roomRepo:  roomRepo,
		wsRepo:    wsRepo,
		broadcast: broadcast,
		archive:   archive,
		now:       time.Now,
	}
}

func (u *roomUsecase) HandleJoin(ctx context.Context, connID uuid.UUID, ev events.JoinEvent) error {
	nickname := strings.TrimSpace(ev.Nickname)
	roomID := strings.TrimSpace(ev.Room)

	if nickname == "" || roomID == "" {
		u.broadcast.ToConnection(connID, events.TypeError, events.ErrorEvent{Message: "nickname and room are required"})
		return nil
	}

	current, ok := u.wsRepo.Binding(connID)
	if !ok {
		return fmt.Errorf("connection %s is not registered", connID)
	}

	device, ok := models.ParseDeviceClass(ev.Device)
	if !ok {
		device = current.Device
	}

	profile := models.Profile{
		Role:   models.ParseRole(ev.Role),
		Avatar: ev.Avatar,
		Mood:   ev.Emoji,
		Device: device,
	}

	// соединение переходит в другую комнату или под другой ник
	if current.Bound() && (current.RoomID != roomID || current.Nickname != nickname) {
		u.wsRepo.Unbind(connID)
		u.leave(current.RoomID, current.Nickname)
	}

	u.withRoom(roomID, true, func(room *models.Room) {
		u.wsRepo.Bind(connID, roomID, nickname)

		isNew := room.Join(nickname, profile)

		slog.Info(
			"participant joined",
			slog.String(constant.RoomID, roomID),
			slog.String(constant.Nickname, nickname),
			slog.Bool("rejoin", !isNew),
			slog.String("role", string(profile.Role)),
		)

		u.broadcastRoster(room)
		u.broadcast.ToRoomExcept(roomID, connID, events.TypeUserJoined, nickname)
		u.broadcast.ToRoom(roomID, events.TypeUpdateVotes, room.Votes())

		if story := room.Story(); story != "" {
			u.broadcast.ToConnection(connID, events.TypeStartSession, story)
		}
	})

	return nil
}

func (u *roomUsecase) HandleVote(ctx context.Context, connID uuid.UUID, ev events.VoteEvent) error {
	u.asParticipant(connID, events.TypeVote, func(room *models.Room, nickname string) {
		room.SetVote(nickname, ev.Point.Value)
		u.broadcast.ToRoom(room.ID, events.TypeUpdateVotes, room.Votes())
	})

	return nil
}

func (u *roomUsecase) HandleStartSession(ctx context.Context, connID uuid.UUID, ev events.StartSessionEvent) error {
	u.asParticipant(connID, events.TypeStartSession, func(room *models.Room, nickname string) {
		room.StartSession(ev.Title)

		slog.Info("session started", slog.String(constant.RoomID, room.ID), slog.String("story", ev.Title))

		u.broadcast.ToRoom(room.ID, events.TypeStartSession, ev.Title)
	})

	return nil
}

func (u *roomUsecase) HandleRevealVotes(ctx context.Context, connID uuid.UUID) error {
	var record *models.RevealRecord

	u.asParticipant(connID, events.TypeRevealVotes, func(room *models.Room, nickname string) {
		now := u.now()
		reveal := Tally(room, u.wsRepo.ConnectedNicknames(room.ID), now, u.cfg.Location)

		u.broadcast.ToRoom(room.ID, events.TypeRevealVotes, events.RevealVotesEvent{Story: reveal.Story})
		u.broadcast.ToRoleInRoom(room, models.RoleScrumMaster, events.TypeTeamChat, events.NewVoteSummaryChat(reveal))

		rec := models.NewRevealRecord(room.ID, reveal, now)
		record = &rec
	})

	if record == nil {
		return nil
	}

	metric.IncrementReveals()

	// архив пишется вне блокировки комнаты
	if err := u.archive.Save(ctx, *record); err != nil {
		return fmt.Errorf("save reveal: %w", err)
	}

	return nil
}

func (u *roomUsecase) HandleEndSession(ctx context.Context, connID uuid.UUID) error {
	u.asParticipant(connID, events.TypeEndSession, func(room *models.Room, nickname string) {
		room.EndSession()
		u.broadcast.ToRoom(room.ID, events.TypeSessionEnded, nil)
	})

	return nil
}

func (u *roomUsecase) HandleEndPointingSession(ctx context.Context, connID uuid.UUID) error {
	u.asParticipant(connID, events.TypeEndPointingSession, func(room *models.Room, nickname string) {
		if role, _ := room.Role(nickname); role != models.RoleScrumMaster {
			u.skip(room.ID, nickname, events.TypeEndPointingSession, "not a scrum master")
			return
		}

		u.broadcast.ToRoom(room.ID, events.TypeSessionTerminated, nil)
		u.deleteRoom(room)
		u.wsRepo.UnbindRoom(room.ID)
	})

	return nil
}

func (u *roomUsecase) HandleUpdateMood(ctx context.Context, connID uuid.UUID, ev events.MoodEvent) error {
	u.asParticipant(connID, events.TypeUpdateMood, func(room *models.Room, nickname string) {
		room.SetMood(nickname, ev.Emoji)
		u.broadcastRoster(room)
	})

	return nil
}

func (u *roomUsecase) HandleUserTyping(ctx context.Context, connID uuid.UUID) error {
	u.asParticipant(connID, events.TypeUserTyping, func(room *models.Room, nickname string) {
		room.StartTyping(nickname)
		u.broadcast.ToRoom(room.ID, events.TypeTypingUpdate, room.Typing())

		room.Timers.Schedule(
			scheduler.Key{Nickname: nickname, Purpose: scheduler.PurposeTyping},
			u.cfg.TypingTTL,
			func(tok scheduler.Token) { u.expireTyping(room, tok) },
		)
	})

	return nil
}

func (u *roomUsecase) HandleForceRemoveUser(ctx context.Context, connID uuid.UUID, ev events.ForceRemoveEvent) error {
	target := strings.TrimSpace(ev.Target)

	u.asParticipant(connID, events.TypeForceRemoveUser, func(room *models.Room, nickname string) {
		if role, _ := room.Role(nickname); role != models.RoleScrumMaster {
			u.skip(room.ID, nickname, events.TypeForceRemoveUser, "not a scrum master")
			return
		}

		if !room.Has(target) {
			u.skip(room.ID, nickname, events.TypeForceRemoveUser, "unknown target")
			return
		}

		if u.wsRepo.IsConnected(room.ID, target) {
			u.skip(room.ID, nickname, events.TypeForceRemoveUser, "target is connected")
			return
		}

		slog.Info(
			"participant force removed",
			slog.String(constant.RoomID, room.ID),
			slog.String(constant.Nickname, nickname),
			slog.String(constant.Target, target),
		)

		u.removeParticipant(room, target)
	})

	return nil
}

func (u *roomUsecase) HandleLogout(ctx context.Context, connID uuid.UUID) error {
	binding, ok := u.boundTo(connID)
	if !ok {
		return nil
	}

	u.withRoom(binding.RoomID, false, func(room *models.Room) {
		if u.removeParticipant(room, binding.Nickname) {
			slog.Info(
				"participant logged out",
				slog.String(constant.RoomID, room.ID),
				slog.String(constant.Nickname, binding.Nickname),
			)
		}
	})

	u.wsRepo.Unbind(connID)

	return nil
}

func (u *roomUsecase) HandleDisconnect(ctx context.Context, connID uuid.UUID) error {
	binding, ok := u.wsRepo.Remove(connID)
	if !ok || !binding.Bound() {
		return nil
	}

	u.leave(binding.RoomID, binding.Nickname)

	return nil
}

func (u *roomUsecase) HandleTeamChat(ctx context.Context, connID uuid.UUID, ev events.TeamChatEvent) error {
	if strings.TrimSpace(ev.Text) == "" {
		return nil
	}

	u.asParticipant(connID, events.TypeTeamChat, func(room *models.Room, nickname string) {
		u.broadcast.ToRoom(room.ID, events.TypeTeamChat, ev)
	})

	return nil
}

func (u *roomUsecase) HandleEmojiReaction(ctx context.Context, connID uuid.UUID, ev events.EmojiReactionEvent) error {
	u.asParticipant(connID, events.TypeEmojiReaction, func(room *models.Room, nickname string) {
		u.broadcast.ToRoom(room.ID, events.TypeEmojiReaction, ev)
	})

	return nil
}

func (u *roomUsecase) HandleHaifetti(ctx context.Context, connID uuid.UUID) error {
	u.asParticipant(connID, events.TypeHaifetti, func(room *models.Room, nickname string) {
		u.broadcast.ToRoom(room.ID, events.TypeHaifetti, nil)
	})

	return nil
}

func (u *roomUsecase) HandlePing(ctx context.Context, connID uuid.UUID) {
	u.broadcast.ToConnection(connID, events.TypePong, nil)
}

func (u *roomUsecase) Snapshot(roomID string) (models.Snapshot, error) {
	var snap models.Snapshot

	found := u.withRoom(roomID, false, func(room *models.Room) {
		snap = room.Snapshot(u.wsRepo.ConnectedNicknames(room.ID))
	})
	if !found {
		return models.Snapshot{}, ErrRoomNotFound
	}

	return snap, nil
}

func (u *roomUsecase) Reveals(ctx context.Context, roomID string, limit int) ([]models.RevealRecord, error) {
	records, err := u.archive.ListByRoom(ctx, roomID, limit)
	if err != nil {
		return nil, fmt.Errorf("list reveals: %w", err)
	}

	return records, nil
}

func (u *roomUsecase) Shutdown() {
	u.roomRepo.Range(func(room *models.Room) {
		room.Lock()
		room.Timers.CancelAll()
		room.Unlock()
	})

	u.wsRepo.CloseAll()
}

// leave - транспорт ника пропал: участник остаётся в комнате,
// а по истечении grace периода удаляется, если так и не вернулся
func (u *roomUsecase) leave(roomID, nickname string) {
	u.withRoom(roomID, false, func(room *models.Room) {
		if !room.Has(nickname) {
			return
		}

		// открыта другая вкладка с тем же ником
		if u.wsRepo.IsConnected(roomID, nickname) {
			return
		}

		slog.Info(
			"participant disconnected",
			slog.String(constant.RoomID, roomID),
			slog.String(constant.Nickname, nickname),
			slog.Duration("grace_period", u.cfg.GracePeriod),
		)

		u.broadcastRoster(room)

		if u.cfg.GracePeriod <= 0 {
			return
		}

		room.Timers.Schedule(
			scheduler.Key{Nickname: nickname, Purpose: scheduler.PurposeRemoval},
			u.cfg.GracePeriod,
			func(tok scheduler.Token) { u.expireGrace(room, tok) },
		)
	})
}

func (u *roomUsecase) expireGrace(room *models.Room, tok scheduler.Token) {
	room.Lock()
	defer room.Unlock()

	if room.Deleted() || !room.Timers.Claim(tok) {
		return
	}

	nickname := tok.Key().Nickname
	if !room.Has(nickname) || u.wsRepo.IsConnected(room.ID, nickname) {
		return
	}

	slog.Info(
		"grace period expired",
		slog.String(constant.RoomID, room.ID),
		slog.String(constant.Nickname, nickname),
	)

	metric.IncrementGraceRemovals()

	u.removeParticipant(room, nickname)
}

func (u *roomUsecase) expireTyping(room *models.Room, tok scheduler.Token) {
	room.Lock()
	defer room.Unlock()

	if room.Deleted() || !room.Timers.Claim(tok) {
		return
	}

	if room.StopTyping(tok.Key().Nickname) {
		u.broadcast.ToRoom(room.ID, events.TypeTypingUpdate, room.Typing())
	}
}

// removeParticipant вызывается под блокировкой комнаты.
// Все соединения ника отписываются от комнаты после рассылки userLeft.
func (u *roomUsecase) removeParticipant(room *models.Room, nickname string) bool {
	wasTyping := room.IsTyping(nickname)

	if !room.Remove(nickname) {
		return false
	}

	u.broadcastRoster(room)
	u.broadcast.ToRoom(room.ID, events.TypeUserLeft, nickname)

	if wasTyping {
		u.broadcast.ToRoom(room.ID, events.TypeTypingUpdate, room.Typing())
	}

	// остальные вкладки ника больше не представляют участника
	u.wsRepo.UnbindNickname(room.ID, nickname)

	if room.IsEmpty() {
		u.deleteRoom(room)
	}

	return true
}

func (u *roomUsecase) deleteRoom(room *models.Room) {
	room.MarkDeleted()
	u.roomRepo.Delete(room.ID, room)

	slog.Info("room deleted", slog.String(constant.RoomID, room.ID))
}

func (u *roomUsecase) broadcastRoster(room *models.Room) {
	u.broadcast.ToRoom(room.ID, events.TypeParticipantsUpdate, room.Roster(u.wsRepo.ConnectedNicknames(room.ID)))
}

// withRoom выполняет fn под блокировкой комнаты. Без create неизвестная
// или уже удалённая комната пропускается, и withRoom возвращает false.
func (u *roomUsecase) withRoom(roomID string, create bool, fn func(room *models.Room)) bool {
	for {
		var room *models.Room

		if create {
			room = u.roomRepo.GetOrCreate(roomID)
		} else {
			r, ok := u.roomRepo.Get(roomID)
			if !ok {
				return false
			}
			room = r
		}

		room.Lock()

		if room.Deleted() {
			room.Unlock()

			// комнату удалили между Get и Lock: создаём заново
			if create {
				continue
			}

			return false
		}

		fn(room)
		room.Unlock()

		return true
	}
}

// asParticipant выполняет fn, только если соединение привязано к живой
// комнате и его ник всё ещё участник
func (u *roomUsecase) asParticipant(connID uuid.UUID, eventType string, fn func(room *models.Room, nickname string)) {
	binding, ok := u.boundTo(connID)
	if !ok {
		slog.Debug("event from unbound connection", slog.Any(constant.ConnectionID, connID), slog.String(constant.EventType, eventType))
		return
	}

	found := u.withRoom(binding.RoomID, false, func(room *models.Room) {
		if !room.Has(binding.Nickname) {
			u.skip(room.ID, binding.Nickname, eventType, "not a participant")
			return
		}

		fn(room, binding.Nickname)
	})

	if !found {
		u.skip(binding.RoomID, binding.Nickname, eventType, "room not found")
	}
}

func (u *roomUsecase) boundTo(connID uuid.UUID) (runtime.Binding, bool) {
	binding, ok := u.wsRepo.Binding(connID)
	if !ok || !binding.Bound() {
		return runtime.Binding{}, false
	}

	return binding, true
}

func (u *roomUsecase) skip(roomID, nickname, eventType, reason string) {
	slog.Debug(
		"event ignored",
		slog.String(constant.RoomID, roomID),
		slog.String(constant.Nickname, nickname),
		slog.String(constant.EventType, eventType),
		slog.String("reason", reason),
	)
}
