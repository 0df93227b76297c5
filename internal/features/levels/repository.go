// Package levels — repository.go читает и (при загрузке сида) обновляет game_level_configuration.
package levels

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"serotonyl.ru/puzzle-arena/internal/common"
	"serotonyl.ru/puzzle-arena/internal/db/postgres"
)

type Repository struct {
	db postgres.Querier
}

func NewRepository(db postgres.Querier) *Repository {
	return &Repository{db: db}
}

// Get возвращает активный уровень; неизвестный или выключенный — common.ErrLevelNotFound.
func (r *Repository) Get(ctx context.Context, id int64) (*Level, error) {
	var (
		l                  Level
		entry, rewardCoins string
	)
	err := r.db.QueryRow(ctx, `
		SELECT id, game_configuration_id, level_number, level_name, level_type, puzzle_type,
		       entry_cost::text, entry_gems_blue, entry_gems_green, entry_gems_red,
		       reward_coins::text, reward_gems_blue, reward_gems_green, reward_gems_red,
		       time_limit, max_attempts, is_active
		FROM game_level_configuration
		WHERE id = $1 AND is_active
	`, id).Scan(
		&l.ID, &l.GameConfigurationID, &l.Number, &l.Name, &l.Type, &l.PuzzleType,
		&entry, &l.EntryGems.Blue, &l.EntryGems.Green, &l.EntryGems.Red,
		&rewardCoins, &l.RewardGems.Blue, &l.RewardGems.Green, &l.RewardGems.Red,
		&l.TimeLimit, &l.MaxAttempts, &l.Active,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("уровень %d: %w", id, common.ErrLevelNotFound)
		}
		return nil, fmt.Errorf("ошибка чтения уровня %d: %w", id, err)
	}

	if l.EntryCost, err = decimal.NewFromString(entry); err != nil {
		return nil, fmt.Errorf("некорректная стоимость уровня %d: %w", id, err)
	}
	if l.RewardCoins, err = decimal.NewFromString(rewardCoins); err != nil {
		return nil, fmt.Errorf("некорректная награда уровня %d: %w", id, err)
	}
	return &l, nil
}

// Upsert создаёт или обновляет уровень по id.
func (r *Repository) Upsert(ctx context.Context, l *Level) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO game_level_configuration
			(id, game_configuration_id, level_number, level_name, level_type, puzzle_type,
			 entry_cost, entry_gems_blue, entry_gems_green, entry_gems_red,
			 reward_coins, reward_gems_blue, reward_gems_green, reward_gems_red,
			 time_limit, max_attempts, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7::numeric, $8, $9, $10, $11::numeric, $12, $13, $14, $15, $16, $17)
		ON CONFLICT (id) DO UPDATE
		SET game_configuration_id = EXCLUDED.game_configuration_id,
		    level_number = EXCLUDED.level_number,
		    level_name = EXCLUDED.level_name,
		    level_type = EXCLUDED.level_type,
		    puzzle_type = EXCLUDED.puzzle_type,
		    entry_cost = EXCLUDED.entry_cost,
		    entry_gems_blue = EXCLUDED.entry_gems_blue,
		    entry_gems_green = EXCLUDED.entry_gems_green,
		    entry_gems_red = EXCLUDED.entry_gems_red,
		    reward_coins = EXCLUDED.reward_coins,
		    reward_gems_blue = EXCLUDED.reward_gems_blue,
		    reward_gems_green = EXCLUDED.reward_gems_green,
		    reward_gems_red = EXCLUDED.reward_gems_red,
		    time_limit = EXCLUDED.time_limit,
		    max_attempts = EXCLUDED.max_attempts,
		    is_active = EXCLUDED.is_active,
		    updated_at = NOW()
	`,
		l.ID, l.GameConfigurationID, l.Number, l.Name, l.Type, l.PuzzleType,
		l.EntryCost.StringFixed(2), l.EntryGems.Blue, l.EntryGems.Green, l.EntryGems.Red,
		l.RewardCoins.StringFixed(2), l.RewardGems.Blue, l.RewardGems.Green, l.RewardGems.Red,
		l.TimeLimit, l.MaxAttempts, l.Active,
	)
	if err != nil {
		return fmt.Errorf("ошибка сохранения уровня %d: %w", l.ID, err)
	}
	return nil
}
