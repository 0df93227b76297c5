// Package gameplay — handlers.go разбирает входящие сообщения WebSocket
// и отвечает событиями. Сообщения одного соединения обрабатываются по очереди.
package gameplay

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/puzzle-arena/internal/common"
	"serotonyl.ru/puzzle-arena/internal/features/economy"
	"serotonyl.ru/puzzle-arena/internal/metrics"
)

// maxChatLength — максимальная длина сообщения чата в символах.
const maxChatLength = 500

// Conn — соединение игрока, прошедшее авторизацию.
type Conn interface {
	Info() ConnInfo
	Send(v any) error
	Close()
}

// Broadcaster рассылает событие всем подключённым игрокам.
type Broadcaster interface {
	Broadcast(v any)
}

// BalanceReader — балансы и история транзакций.
type BalanceReader interface {
	Balance(ctx context.Context, playerID int64) (*economy.BalanceView, error)
}

// Handler обрабатывает сообщения протокола.
type Handler struct {
	service     *Service
	balances    BalanceReader
	hub         Broadcaster
	chatEnabled bool
	metrics     *metrics.GameMetrics
	now         func() time.Time
}

// NewHandler создаёт обработчик. hub может быть nil, тогда чат отключён.
func NewHandler(service *Service, balances BalanceReader, hub Broadcaster, chatEnabled bool) *Handler {
	return &Handler{
		service:     service,
		balances:    balances,
		hub:         hub,
		chatEnabled: chatEnabled && hub != nil,
		metrics:     service.Metrics,
		now:         time.Now,
	}
}

// Handle разбирает одно сообщение и отправляет ответ в соединение.
func (h *Handler) Handle(ctx context.Context, conn Conn, raw []byte) {
	start := time.Now()

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		h.fail(conn, "", common.Validationf("сообщение не является JSON"))
		return
	}

	var err error
	switch env.Type {
	case MsgJoinGame:
		err = h.handleJoin(ctx, conn, raw)
	case MsgGameAction:
		err = h.handleAction(ctx, conn, raw)
	case MsgExitGame:
		err = h.handleExit(ctx, conn, raw)
	case MsgGameStateUpdate:
		err = h.handleState(ctx, conn, raw)
	case MsgChatMessage:
		err = h.handleChat(conn, raw)
	case MsgPing:
		err = conn.Send(Pong{Type: EventPong, Timestamp: h.timestamp()})
	case MsgGetBalance:
		err = h.handleBalance(ctx, conn)
	case "":
		err = common.Validationf("не указан type")
	default:
		err = common.Validationf("неизвестный тип сообщения %q", env.Type)
	}

	if err != nil {
		h.fail(conn, env.Type, err)
	}
	h.metrics.ObserveHandler(env.Type, time.Since(start))
}

func decode(raw []byte, v any) error {
	if err := json.Unmarshal(raw, v); err != nil {
		return common.Validationf("некорректные поля сообщения: %v", err)
	}
	return nil
}

func (h *Handler) handleJoin(ctx context.Context, conn Conn, raw []byte) error {
	var req JoinRequest
	if err := decode(raw, &req); err != nil {
		return err
	}
	res, err := h.service.JoinGame(ctx, conn.Info(), req)
	if err != nil {
		return err
	}
	return conn.Send(GameJoined{Type: EventGameJoined, JoinResult: res})
}

func (h *Handler) handleAction(ctx context.Context, conn Conn, raw []byte) error {
	var req ActionRequest
	if err := decode(raw, &req); err != nil {
		return err
	}
	res, err := h.service.GameAction(ctx, conn.Info(), req)
	if err != nil {
		return err
	}
	return conn.Send(ActionConfirmed{Type: EventActionConfirmed, ActionResult: res})
}

func (h *Handler) handleExit(ctx context.Context, conn Conn, raw []byte) error {
	var req ExitRequest
	if err := decode(raw, &req); err != nil {
		return err
	}
	res, err := h.service.ExitGame(ctx, conn.Info(), req)
	if err != nil {
		return err
	}
	return conn.Send(GameExited{Type: EventGameExited, ExitResult: res})
}

func (h *Handler) handleState(ctx context.Context, conn Conn, raw []byte) error {
	var req StateRequest
	if err := decode(raw, &req); err != nil {
		return err
	}
	info := conn.Info()
	if req.PlayerID != 0 {
		if err := checkPlayer(info, req.PlayerID); err != nil {
			return err
		}
	}
	attemptID, err := h.service.ActiveAttempt(ctx, info)
	if err != nil {
		return err
	}
	return conn.Send(StateUpdated{
		Type:      EventStateUpdated,
		AttemptID: attemptID,
		State:     req.State,
		Timestamp: h.timestamp(),
	})
}

func (h *Handler) handleChat(conn Conn, raw []byte) error {
	if !h.chatEnabled {
		return common.Validationf("чат отключён")
	}
	var req ChatRequest
	if err := decode(raw, &req); err != nil {
		return err
	}
	info := conn.Info()
	if req.PlayerID != 0 {
		if err := checkPlayer(info, req.PlayerID); err != nil {
			return err
		}
	}
	text := strings.TrimSpace(req.Text())
	if text == "" {
		return common.Validationf("пустое сообщение")
	}
	if utf8.RuneCountInString(text) > maxChatLength {
		return common.Validationf("сообщение длиннее %d символов", maxChatLength)
	}

	h.hub.Broadcast(ChatMessage{
		Type:      EventChatMessage,
		PlayerID:  info.PlayerID,
		Username:  info.Username,
		Message:   text,
		Timestamp: h.timestamp(),
	})
	return nil
}

func (h *Handler) handleBalance(ctx context.Context, conn Conn) error {
	if h.balances == nil {
		return common.Validationf("баланс недоступен")
	}
	view, err := h.balances.Balance(ctx, conn.Info().PlayerID)
	if err != nil {
		return err
	}
	return conn.Send(Balance{Type: EventBalance, BalanceView: view})
}

func (h *Handler) timestamp() string {
	return h.now().UTC().Format(time.RFC3339Nano)
}

// fail отправляет событие error. Внутренние ошибки логируются, игроку уходит общий текст.
// После срабатывания анти-чита соединение закрывается.
func (h *Handler) fail(conn Conn, msgType string, err error) {
	info := conn.Info()
	kind := common.ErrorKind(err)
	entry := log.WithFields(log.Fields{
		"player_id": info.PlayerID,
		"conn_id":   info.ID,
		"type":      msgType,
		"kind":      kind,
	})
	if kind == common.KindInternal {
		entry.WithError(err).Error("Ошибка обработки сообщения")
	} else {
		entry.WithError(err).Debug("Сообщение отклонено")
	}

	if sendErr := conn.Send(ErrorEvent{Type: EventError, Kind: kind, Message: common.PublicMessage(err)}); sendErr != nil {
		entry.WithError(sendErr).Debug("Не удалось отправить ошибку")
	}
	if errors.Is(err, common.ErrCheatDetected) {
		conn.Close()
	}
}
