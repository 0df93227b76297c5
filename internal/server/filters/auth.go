// Package filters проверяет входящие подключения до того, как они попадут в игровой цикл.
// auth.go: токен → игрок → сессия входа → отпечаток устройства.
package filters

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/puzzle-arena/internal/common"
	"serotonyl.ru/puzzle-arena/internal/features/connections"
	"serotonyl.ru/puzzle-arena/internal/features/players"
)

// Коды закрытия WebSocket при отказе в подключении
const (
	CloseAuthFailed       = 4000
	CloseInvalidToken     = 4001
	CloseStoreUnavailable = 4002
	ClosePlayerNotFound   = 4003
	CloseInvalidSession   = 4004
	CloseFraud            = 4005
	ClosePlayerBanned     = 4006
)

// AuthError — отказ в подключении с кодом закрытия сокета.
type AuthError struct {
	Code   int
	Reason string
	Err    error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%d %s: %v", e.Code, e.Reason, e.Err)
	}
	return fmt.Sprintf("%d %s", e.Code, e.Reason)
}

func (e *AuthError) Unwrap() error { return e.Err }

func reject(code int, reason string, err error) *AuthError {
	return &AuthError{Code: code, Reason: reason, Err: err}
}

// SessionFinder — чтение сессий входа.
type SessionFinder interface {
	FindPlayerSession(ctx context.Context, tokenHash string) (*connections.PlayerSession, error)
}

// PlayerChecker — игрок существует и не заблокирован.
type PlayerChecker interface {
	Playable(ctx context.Context, id int64) (*players.Player, error)
}

// Identity — проверенный владелец соединения.
type Identity struct {
	PlayerID          int64
	Username          string
	IPAddress         string
	DeviceFingerprint string
}

// Authenticator проверяет подключение игрока.
type Authenticator struct {
	secret   []byte
	sessions SessionFinder
	players  PlayerChecker
	now      func() time.Time
}

func NewAuthenticator(secret string, sessions SessionFinder, players PlayerChecker) *Authenticator {
	return &Authenticator{
		secret:   []byte(secret),
		sessions: sessions,
		players:  players,
		now:      time.Now,
	}
}

// WithClock подменяет часы (для тестов).
func (a *Authenticator) WithClock(now func() time.Time) *Authenticator {
	a.now = now
	return a
}

// HashToken — sha256 токена в hex, так токены хранятся в player_sessions.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// Authenticate возвращает личность игрока или *AuthError с кодом закрытия.
func (a *Authenticator) Authenticate(ctx context.Context, token, ip, fingerprint string) (*Identity, error) {
	if token == "" {
		return nil, reject(CloseInvalidToken, "Invalid token", nil)
	}

	playerID, err := a.parseToken(token)
	if err != nil {
		return nil, reject(CloseInvalidToken, "Invalid token", err)
	}

	player, err := a.players.Playable(ctx, playerID)
	switch {
	case errors.Is(err, common.ErrPlayerNotFound):
		return nil, reject(ClosePlayerNotFound, "Player not found", err)
	case errors.Is(err, common.ErrPlayerBanned):
		return nil, reject(ClosePlayerBanned, "Player banned", err)
	case err != nil:
		return nil, reject(CloseStoreUnavailable, "Database connection error", err)
	}

	session, err := a.sessions.FindPlayerSession(ctx, HashToken(token))
	switch {
	case errors.Is(err, common.ErrSessionNotFound):
		return nil, reject(CloseInvalidSession, "Invalid session", err)
	case err != nil:
		return nil, reject(CloseStoreUnavailable, "Database connection error", err)
	}
	if session.PlayerID != playerID || !session.IsActive || !session.ExpiresAt.After(a.now()) {
		return nil, reject(CloseInvalidSession, "Invalid session", nil)
	}

	if session.DeviceFingerprint != "" && session.DeviceFingerprint != fingerprint {
		log.WithFields(log.Fields{
			"player_id": playerID,
			"ip":        ip,
		}).Warn("Отпечаток устройства не совпадает с сессией")
		return nil, reject(CloseFraud, "Fraud detected", nil)
	}
	if session.IPAddress != "" && session.IPAddress != ip {
		log.WithFields(log.Fields{
			"player_id":  playerID,
			"ip":         ip,
			"session_ip": session.IPAddress,
		}).Warn("IP не совпадает с сессией")
		return nil, reject(CloseFraud, "Fraud detected", nil)
	}

	return &Identity{
		PlayerID:          playerID,
		Username:          player.Username,
		IPAddress:         ip,
		DeviceFingerprint: fingerprint,
	}, nil
}

// parseToken проверяет HS256-подпись и срок действия, sub — ID игрока.
func (a *Authenticator) parseToken(token string) (int64, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("неожиданный алгоритм подписи %v", t.Header["alg"])
		}
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(a.now))
	if err != nil {
		return 0, err
	}
	if claims.Subject == "" {
		return 0, errors.New("в токене нет sub")
	}
	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("некорректный sub %q", claims.Subject)
	}
	return id, nil
}
