// Package players хранит игроков и их баны.
// models.go описывает структуры для таблиц players и player_banned_details.
package players

import (
	"strconv"
	"time"
)

// Player — игрок. Балансы лежат в той же строке, но читаются и пишутся только через economy.
type Player struct {
	ID        int64     `db:"id"`
	Username  string    `db:"username"`
	IsBanned  bool      `db:"is_banned"`
	BanReason *string   `db:"ban_reason"` // Причина последнего бана (nil — не банился)
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// DisplayName возвращает имя для логов и сообщений.
func (p *Player) DisplayName() string {
	if p.Username != "" {
		return "@" + p.Username
	}
	return "player#" + strconv.FormatInt(p.ID, 10)
}

// Ban — запись о бане с привязкой к ip и отпечатку устройства соединения.
type Ban struct {
	ID                int64
	PlayerID          int64
	AttemptID         *int64 // Попытка, на которой сработал анти-чит
	Reason            string
	IPAddress         string
	DeviceFingerprint string
	CreatedAt         time.Time
}
