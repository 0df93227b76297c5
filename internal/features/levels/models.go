// Package levels отдаёт конфигурацию уровней (стоимость входа, награды, лимиты).
// Для игрового цикла конфигурация только читается.
package levels

import (
	"github.com/shopspring/decimal"

	"serotonyl.ru/puzzle-arena/internal/features/economy"
)

// Level — строка game_level_configuration.
type Level struct {
	ID                  int64           `yaml:"id"`
	GameConfigurationID int64           `yaml:"game_configuration_id"`
	Number              int             `yaml:"level_number"`
	Name                string          `yaml:"level_name"`
	Type                string          `yaml:"level_type"`
	PuzzleType          string          `yaml:"puzzle_type"`
	EntryCost           decimal.Decimal `yaml:"entry_cost"`
	EntryGems           economy.Gems    `yaml:"entry_cost_gems"`
	RewardCoins         decimal.Decimal `yaml:"reward_coins"`
	RewardGems          economy.Gems    `yaml:"reward_gems"`
	TimeLimit           int             `yaml:"time_limit"` // секунды
	MaxAttempts         int             `yaml:"max_attempts"`
	Active              bool            `yaml:"-"`
}

// IsFree — вход не стоит ничего ни в одной валюте.
func (l *Level) IsFree() bool {
	return l.EntryCost.IsZero() && l.EntryGems.IsZero()
}
