// Package notify отправляет администраторам уведомления о банах в Telegram.
// Без токена бота уведомления отключены, вызовы превращаются в no-op.
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/puzzle-arena/internal/common"
)

// sendTimeout — уведомление не должно задерживать игровой цикл.
const sendTimeout = 5 * time.Second

// Sender — часть telego.Bot, которую мы используем.
type Sender interface {
	SendMessage(ctx context.Context, params *telego.SendMessageParams) (*telego.Message, error)
}

// BanEvent — что сообщаем администратору.
type BanEvent struct {
	PlayerID  int64
	Username  string
	AttemptID int64
	Check     string
	Reason    string
	IPAddress string
	At        time.Time
}

// Telegram — уведомитель. Нулевой указатель допустим и ничего не делает.
type Telegram struct {
	sender Sender
	chatID int64
	loc    *time.Location
}

// NewTelegram создаёт бота. Пустой token — (nil, nil): уведомления выключены.
func NewTelegram(token string, chatID int64, loc *time.Location) (*Telegram, error) {
	if token == "" {
		log.Info("TELEGRAM_BOT_TOKEN не задан, уведомления о банах отключены")
		return nil, nil
	}
	bot, err := telego.NewBot(token)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания Telegram-бота: %w", err)
	}
	return NewWithSender(bot, chatID, loc), nil
}

// NewWithSender — уведомитель поверх произвольного отправителя (для тестов).
func NewWithSender(sender Sender, chatID int64, loc *time.Location) *Telegram {
	if loc == nil {
		loc = time.UTC
	}
	return &Telegram{sender: sender, chatID: chatID, loc: loc}
}

// NotifyBan отправляет сообщение о бане. Ошибки только логируются.
func (t *Telegram) NotifyBan(ctx context.Context, ev BanEvent) {
	if t == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sendTimeout)
	defer cancel()

	if _, err := t.sender.SendMessage(ctx, tu.Message(tu.ID(t.chatID), FormatBan(ev, t.loc))); err != nil {
		log.WithError(err).WithField("player_id", ev.PlayerID).Warn("Не удалось отправить уведомление о бане")
	}
}

// FormatBan формирует текст уведомления.
func FormatBan(ev BanEvent, loc *time.Location) string {
	who := ev.Username
	if who == "" {
		who = fmt.Sprintf("player#%d", ev.PlayerID)
	}
	return fmt.Sprintf(
		"🚫 Бан игрока %s (id %d)\nПопытка: %d\nПроверка: %s\nПричина: %s\nIP: %s\nВремя: %s",
		who, ev.PlayerID, ev.AttemptID, ev.Check, ev.Reason, ev.IPAddress, common.FormatDateTime(ev.At, loc),
	)
}
