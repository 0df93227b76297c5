// Package connections — repository.go работает с таблицами connection_sessions и player_sessions.
package connections

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"serotonyl.ru/puzzle-arena/internal/common"
	"serotonyl.ru/puzzle-arena/internal/db/postgres"
)

type Repository struct {
	db postgres.Querier
}

func NewRepository(db postgres.Querier) *Repository {
	return &Repository{db: db}
}

// Open записывает новое соединение.
func (r *Repository) Open(ctx context.Context, s *Session) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO connection_sessions
			(id, player_id, ip_address, device_fingerprint, status, connected_at, last_seen)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
	`, s.ID, s.PlayerID, s.IPAddress, s.DeviceFingerprint, s.Status, s.ConnectedAt)
	if err != nil {
		return fmt.Errorf("ошибка записи соединения: %w", err)
	}
	return nil
}

// SetStatus меняет статус соединения и привязку к попытке.
func (r *Repository) SetStatus(ctx context.Context, id, status string, attemptID *int64) error {
	_, err := r.db.Exec(ctx, `
		UPDATE connection_sessions
		SET status = $2, game_attempt_id = $3, last_seen = NOW()
		WHERE id = $1
	`, id, status, attemptID)
	if err != nil {
		return fmt.Errorf("ошибка обновления соединения %s: %w", id, err)
	}
	return nil
}

// PurgeStale удаляет отключённые соединения, не обновлявшиеся с before.
// Заодно закрывает «висящие» CONNECTED/IN_GAME записи после падения процесса.
func (r *Repository) PurgeStale(ctx context.Context, before time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `
		DELETE FROM connection_sessions WHERE last_seen < $1
	`, before)
	if err != nil {
		return 0, fmt.Errorf("ошибка очистки соединений: %w", err)
	}
	return tag.RowsAffected(), nil
}

// FindPlayerSession ищет сессию входа по sha256-хешу токена.
// Не найдена — common.ErrSessionNotFound.
func (r *Repository) FindPlayerSession(ctx context.Context, tokenHash string) (*PlayerSession, error) {
	var s PlayerSession
	err := r.db.QueryRow(ctx, `
		SELECT player_id, token_hash, device_fingerprint, ip_address, is_active, expires_at
		FROM player_sessions
		WHERE token_hash = $1
		ORDER BY expires_at DESC
		LIMIT 1
	`, tokenHash).Scan(&s.PlayerID, &s.TokenHash, &s.DeviceFingerprint, &s.IPAddress, &s.IsActive, &s.ExpiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, common.ErrSessionNotFound
		}
		return nil, fmt.Errorf("ошибка чтения сессии: %w", err)
	}
	return &s, nil
}
