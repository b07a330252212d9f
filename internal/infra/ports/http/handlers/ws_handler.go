package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/qrave1/RoomPoint/internal/application/config"
	"github.com/qrave1/RoomPoint/internal/application/constant"
	"github.com/qrave1/RoomPoint/internal/application/metric"
	"github.com/qrave1/RoomPoint/internal/domain/events"
	"github.com/qrave1/RoomPoint/internal/domain/runtime"
	"github.com/qrave1/RoomPoint/internal/infra/adapters/memory"
	"github.com/qrave1/RoomPoint/internal/infra/appctx"
	"github.com/qrave1/RoomPoint/internal/usecase"
)

const (
	tracerName = "github.com/qrave1/RoomPoint/ws"

	rateLimitedMessage = "rate limit exceeded, event dropped"
)

type WebSocketHandler struct {
	cfg      config.WSConfig
	upgrader *websocket.Upgrader

	roomUsecase usecase.RoomUsecase

	wsConnRepo memory.WebsocketConnectionRepository

	tracer trace.Tracer
}

func NewWebSocketHandler(cfg *config.Config, roomUsecase usecase.RoomUsecase, wsConnRepo memory.WebsocketConnectionRepository) *WebSocketHandler {
	return &WebSocketHandler{
		cfg: cfg.WS,
		upgrader: &websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				if cfg.Debug {
					return true
				}

				origin := r.Header.Get("Origin")

				return origin == "" || origin == cfg.Domain
			},
		},
		roomUsecase: roomUsecase,
		wsConnRepo:  wsConnRepo,
		tracer:      otel.Tracer(tracerName),
	}
}

func (h *WebSocketHandler) Handle(c echo.Context) error {
	device := DetectDevice(c.Request())

	ws, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		slog.Error(
			"WebSocket upgrade error",
			slog.Any(constant.Error, err),
		)
		return nil
	}
	defer ws.Close()

	conn := runtime.NewConnection(device, h.cfg.OutboxSize)
	h.wsConnRepo.Add(conn)

	metric.IncrementWSActiveConnections()
	defer metric.DecrementWSActiveConnections()

	ctx := appctx.WithConnectionID(c.Request().Context(), conn.ID)

	slog.Debug(
		"websocket connected",
		slog.Any(constant.ConnectionID, conn.ID),
		slog.String("device", string(device)),
	)

	pumpDone := make(chan struct{})
	go h.writePump(ws, conn, pumpDone)

	h.readLoop(ctx, ws, conn)

	// отключение: участник остаётся в комнате до конца grace периода
	if err := h.roomUsecase.HandleDisconnect(ctx, conn.ID); err != nil {
		slog.Error(
			"handle disconnect",
			slog.Any(constant.Error, err),
			slog.Any(constant.ConnectionID, conn.ID),
		)
	}

	<-pumpDone

	return nil
}

func (h *WebSocketHandler) readLoop(ctx context.Context, ws *websocket.Conn, conn *runtime.Connection) {
	ws.SetReadLimit(h.cfg.ReadLimit)

	_ = ws.SetReadDeadline(time.Now().Add(h.cfg.PongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(h.cfg.PongWait))
	})

	limit := rate.Limit(h.cfg.RateLimit)
	if h.cfg.RateLimit <= 0 {
		limit = rate.Inf
	}
	limiter := rate.NewLimiter(limit, max(h.cfg.RateBurst, 1))

	for {
		_, raw, err := ws.ReadMessage()
		if err != nil {
			h.handleWebsocketError(conn.ID, err)
			return
		}

		_ = ws.SetReadDeadline(time.Now().Add(h.cfg.PongWait))

		// событие сверх лимита не применяется, клиент получает error
		if !limiter.Allow() {
			metric.RecordWSEvent("rate_limited")
			slog.Warn("websocket rate limit exceeded", slog.Any(constant.ConnectionID, conn.ID))
			h.replyError(conn.ID, rateLimitedMessage)
			continue
		}

		msg := new(events.Message)

		if err = json.Unmarshal(raw, msg); err != nil {
			slog.Warn(
				"unmarshal websocket message",
				slog.Any(constant.Error, err),
				slog.Any(constant.ConnectionID, conn.ID),
			)
			continue
		}

		if events.IsInbound(msg.Type) {
			metric.RecordWSEvent(msg.Type)
		} else {
			metric.RecordWSEvent("unknown")
		}

		h.dispatch(ctx, conn, msg)
	}
}

// dispatch обрабатывает одно событие в отдельном span
func (h *WebSocketHandler) dispatch(ctx context.Context, conn *runtime.Connection, msg *events.Message) {
	spanCtx, span := h.tracer.Start(
		ctx,
		"ws.message",
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(
			attribute.String("roompoint.event_type", msg.Type),
			attribute.String("roompoint.connection_id", conn.ID.String()),
		),
	)
	defer span.End()

	if err := h.handleMessage(spanCtx, msg); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())

		slog.Error(
			"handle message",
			slog.Any(constant.Error, err),
			slog.String(constant.EventType, msg.Type),
			slog.Any(constant.ConnectionID, conn.ID),
		)
	}
}

// writePump - единственный писатель в сокет: очередь соединения и ping
func (h *WebSocketHandler) writePump(ws *websocket.Conn, conn *runtime.Connection, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(h.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-conn.Outbox:
			_ = ws.SetWriteDeadline(time.Now().Add(h.cfg.WriteWait))

			if !ok {
				_ = ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				_ = ws.Close()
				return
			}

			if err := ws.WriteMessage(websocket.TextMessage, msg); err != nil {
				slog.Debug("websocket write", slog.Any(constant.Error, err), slog.Any(constant.ConnectionID, conn.ID))
				_ = ws.Close()
				return
			}

		case <-ticker.C:
			_ = ws.SetWriteDeadline(time.Now().Add(h.cfg.WriteWait))

			if err := ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				slog.Debug("ping failed", slog.Any(constant.Error, err), slog.Any(constant.ConnectionID, conn.ID))
				_ = ws.Close()
				return
			}
		}
	}
}

func (h *WebSocketHandler) handleMessage(
	ctx context.Context,
	msg *events.Message,
) error {
	connID, ok := appctx.ConnectionID(ctx)
	if !ok {
		return fmt.Errorf("get connection id from context")
	}

	switch msg.Type {
	case events.TypeJoin:
		var joinEvent events.JoinEvent

		if err := json.Unmarshal(msg.Data, &joinEvent); err != nil {
			h.replyError(connID, "malformed join")
			return fmt.Errorf("unmarshal join event: %w", err)
		}

		if err := h.roomUsecase.HandleJoin(ctx, connID, joinEvent); err != nil {
			return fmt.Errorf("handle join: %w", err)
		}

	case events.TypeVote:
		var voteEvent events.VoteEvent

		if err := json.Unmarshal(msg.Data, &voteEvent); err != nil {
			return fmt.Errorf("unmarshal vote event: %w", err)
		}

		if err := h.roomUsecase.HandleVote(ctx, connID, voteEvent); err != nil {
			return fmt.Errorf("handle vote: %w", err)
		}

	case events.TypeStartSession:
		var startEvent events.StartSessionEvent

		if err := unmarshalOptional(msg.Data, &startEvent); err != nil {
			return fmt.Errorf("unmarshal start session event: %w", err)
		}

		if err := h.roomUsecase.HandleStartSession(ctx, connID, startEvent); err != nil {
			return fmt.Errorf("handle start session: %w", err)
		}

	case events.TypeRevealVotes:
		if err := h.roomUsecase.HandleRevealVotes(ctx, connID); err != nil {
			return fmt.Errorf("handle reveal votes: %w", err)
		}

	case events.TypeEndSession:
		if err := h.roomUsecase.HandleEndSession(ctx, connID); err != nil {
			return fmt.Errorf("handle end session: %w", err)
		}

	case events.TypeEndPointingSession:
		if err := h.roomUsecase.HandleEndPointingSession(ctx, connID); err != nil {
			return fmt.Errorf("handle end pointing session: %w", err)
		}

	case events.TypeForceRemoveUser:
		var removeEvent events.ForceRemoveEvent

		if err := json.Unmarshal(msg.Data, &removeEvent); err != nil {
			return fmt.Errorf("unmarshal force remove event: %w", err)
		}

		if err := h.roomUsecase.HandleForceRemoveUser(ctx, connID, removeEvent); err != nil {
			return fmt.Errorf("handle force remove: %w", err)
		}

	case events.TypeUpdateMood:
		var moodEvent events.MoodEvent

		if err := json.Unmarshal(msg.Data, &moodEvent); err != nil {
			return fmt.Errorf("unmarshal mood event: %w", err)
		}

		if err := h.roomUsecase.HandleUpdateMood(ctx, connID, moodEvent); err != nil {
			return fmt.Errorf("handle update mood: %w", err)
		}

	case events.TypeUserTyping:
		if err := h.roomUsecase.HandleUserTyping(ctx, connID); err != nil {
			return fmt.Errorf("handle user typing: %w", err)
		}

	case events.TypeTeamChat:
		var chatEvent events.TeamChatEvent

		if err := json.Unmarshal(msg.Data, &chatEvent); err != nil {
			return fmt.Errorf("unmarshal team chat event: %w", err)
		}

		if err := h.roomUsecase.HandleTeamChat(ctx, connID, chatEvent); err != nil {
			return fmt.Errorf("handle team chat: %w", err)
		}

	case events.TypeEmojiReaction:
		var reactionEvent events.EmojiReactionEvent

		if err := json.Unmarshal(msg.Data, &reactionEvent); err != nil {
			return fmt.Errorf("unmarshal emoji reaction event: %w", err)
		}

		if err := h.roomUsecase.HandleEmojiReaction(ctx, connID, reactionEvent); err != nil {
			return fmt.Errorf("handle emoji reaction: %w", err)
		}

	case events.TypeHaifetti:
		if err := h.roomUsecase.HandleHaifetti(ctx, connID); err != nil {
			return fmt.Errorf("handle haifetti: %w", err)
		}

	case events.TypeLogout:
		if err := h.roomUsecase.HandleLogout(ctx, connID); err != nil {
			return fmt.Errorf("handle logout: %w", err)
		}

	case events.TypePing:
		h.roomUsecase.HandlePing(ctx, connID)

	default:
		return fmt.Errorf("unknown message type %q", msg.Type)
	}

	return nil
}

func (h *WebSocketHandler) replyError(connID uuid.UUID, message string) {
	payload, err := events.Encode(events.TypeError, events.ErrorEvent{Message: message})
	if err != nil {
		slog.Error("encode error event", slog.Any(constant.Error, err))
		return
	}

	h.wsConnRepo.Write(connID, payload)
}

func (h *WebSocketHandler) handleWebsocketError(connID uuid.UUID, err error) {
	var closeErr *websocket.CloseError
	if errors.As(err, &closeErr) {
		switch closeErr.Code {
		case websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived:
			slog.Debug("client disconnected from websocket", slog.Any(constant.ConnectionID, connID))
		default:
			slog.Warn(
				"websocket close error",
				slog.Int("code", closeErr.Code),
				slog.Any(constant.ConnectionID, connID),
			)
		}
	} else {
		slog.Debug(
			"websocket read",
			slog.Any(constant.Error, err),
			slog.Any(constant.ConnectionID, connID),
		)
	}
}

// unmarshalOptional допускает событие без data
func unmarshalOptional(data json.RawMessage, v any) error {
	if len(data) == 0 {
		return nil
	}

	return json.Unmarshal(data, v)
}
