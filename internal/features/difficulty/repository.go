// Package difficulty — repository.go читает историю завершённых попыток из game_attempt.
package difficulty

import (
	"context"
	"fmt"
	"time"

	"serotonyl.ru/puzzle-arena/internal/db/postgres"
)

// Repository реализует History поверх PostgreSQL.
type Repository struct {
	db postgres.Querier
}

func NewRepository(db postgres.Querier) *Repository {
	return &Repository{db: db}
}

// RecentAttempts возвращает COMPLETED попытки игрока на уровне, начатые не раньше since.
func (r *Repository) RecentAttempts(ctx context.Context, playerID, levelID int64, since time.Time) ([]Record, error) {
	rows, err := r.db.Query(ctx, `
		SELECT a.completion_percentage, a.duration, l.time_limit, a.moves_count,
		       a.difficulty, COALESCE(a.end_time, a.start_time)
		FROM game_attempt a
		JOIN game_level_configuration l ON l.id = a.game_level_id
		WHERE a.player_id = $1 AND a.game_level_id = $2
		  AND a.status = 'COMPLETED' AND a.start_time >= $3
		ORDER BY a.start_time DESC
	`, playerID, levelID, since)
	if err != nil {
		return nil, fmt.Errorf("ошибка выборки попыток: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var rec Record
		var maxTime int
		if err := rows.Scan(
			&rec.CompletionPercentage, &rec.Duration, &maxTime, &rec.MovesCount,
			&rec.Difficulty, &rec.PlayedAt,
		); err != nil {
			return nil, fmt.Errorf("ошибка чтения попытки: %w", err)
		}
		rec.MaxTime = float64(maxTime)
		out = append(out, rec)
	}
	return out, rows.Err()
}
