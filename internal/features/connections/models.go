// Package connections хранит живые соединения игроков (connection_sessions)
// и читает сессии авторизации, выданные внешним сервисом (player_sessions).
package connections

import "time"

// Статусы соединения
const (
	StatusConnected    = "CONNECTED"
	StatusInGame       = "IN_GAME"
	StatusDisconnected = "DISCONNECTED"
)

// Session — одно WebSocket-соединение игрока.
type Session struct {
	ID                string // uuid соединения
	PlayerID          int64
	IPAddress         string
	DeviceFingerprint string
	Status            string
	AttemptID         *int64
	ConnectedAt       time.Time
	LastSeen          time.Time
}

// PlayerSession — сессия входа. Создаётся сервисом авторизации, здесь только читается.
type PlayerSession struct {
	PlayerID          int64
	TokenHash         string
	DeviceFingerprint string
	IPAddress         string
	IsActive          bool
	ExpiresAt         time.Time
}
