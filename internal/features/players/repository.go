// Package players — repository.go отвечает за операции с таблицами players и player_banned_details.
// Каждая функция выполняет один SQL-запрос (Ban — два, в переданной транзакции).
package players

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

// NewRepository принимает пул или pgx.Tx.
func NewRepository(db postgres.Querier) *Repository {
	return &Repository{db: db}
}

// Get: если не найден — ошибка с common.ErrPlayerNotFound.
func (r *Repository) Get(ctx context.Context, id int64) (*Player, error) {
	var p Player
	err := r.db.QueryRow(ctx, `
		SELECT id, username, is_banned, ban_reason, created_at, updated_at
		FROM players
		WHERE id = $1
	`, id).Scan(&p.ID, &p.Username, &p.IsBanned, &p.BanReason, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("игрок (id=%d): %w", id, common.ErrPlayerNotFound)
		}
		return nil, fmt.Errorf("ошибка чтения игрока (id=%d): %w", id, err)
	}
	return &p, nil
}

// Ban помечает игрока заблокированным и записывает детали бана.
// Вызывайте с pgx.Tx, чтобы бан попал в одну транзакцию с закрытием попытки.
func (r *Repository) Ban(ctx context.Context, b *Ban) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE players SET is_banned = TRUE, ban_reason = $2, updated_at = NOW()
		WHERE id = $1
	`, b.PlayerID, b.Reason)
	if err != nil {
		return fmt.Errorf("ошибка блокировки игрока: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("бан (player_id=%d): %w", b.PlayerID, common.ErrPlayerNotFound)
	}

	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now().UTC()
	}
	err = r.db.QueryRow(ctx, `
		INSERT INTO player_banned_details
			(player_id, game_attempt_id, reason, banned_by_ip, banned_by_device_fingerprint, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`, b.PlayerID, b.AttemptID, b.Reason, b.IPAddress, b.DeviceFingerprint, b.CreatedAt).Scan(&b.ID)
	if err != nil {
		return fmt.Errorf("ошибка записи деталей бана: %w", err)
	}
	return nil
}

// Bans возвращает историю банов игрока (новые сверху).
func (r *Repository) Bans(ctx context.Context, playerID int64) ([]Ban, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, player_id, game_attempt_id, reason, banned_by_ip, banned_by_device_fingerprint, created_at
		FROM player_banned_details
		WHERE player_id = $1
		ORDER BY created_at DESC
	`, playerID)
	if err != nil {
		return nil, fmt.Errorf("ошибка запроса банов: %w", err)
	}
	defer rows.Close()

	var out []Ban
	for rows.Next() {
		var b Ban
		if err := rows.Scan(&b.ID, &b.PlayerID, &b.AttemptID, &b.Reason, &b.IPAddress, &b.DeviceFingerprint, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("ошибка сканирования строки: %w", err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка чтения строк: %w", err)
	}
	return out, nil
}
