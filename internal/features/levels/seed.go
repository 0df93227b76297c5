// Package levels — seed.go загружает уровни из YAML-файла при старте.
package levels

import (
	"context"
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"serotonyl.ru/puzzle-arena/internal/features/puzzle"
)

// seedFile — корень YAML:
//
//	levels:
//	  - id: 1
//	    level_number: 1
//	    entry_cost: "100"
//	    reward_coins: "50"
//	    reward_gems: {blue: 2}
type seedFile struct {
	Levels []seedLevel `yaml:"levels"`
}

type seedLevel struct {
	Level  `yaml:",inline"`
	Active *bool `yaml:"active"`
}

// Upserter — то, что нужно от хранилища для загрузки сида.
type Upserter interface {
	Upsert(ctx context.Context, l *Level) error
}

// ParseSeed разбирает и проверяет YAML с уровнями, заполняя значения по умолчанию.
// Уровень без поля active считается включённым.
func ParseSeed(data []byte) ([]Level, error) {
	var f seedFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("ошибка разбора YAML уровней: %w", err)
	}

	out := make([]Level, 0, len(f.Levels))
	seen := make(map[int64]bool, len(f.Levels))
	for i, sl := range f.Levels {
		l := sl.Level
		if l.ID <= 0 || l.Number <= 0 {
			return nil, fmt.Errorf("уровень #%d: id и level_number должны быть > 0", i+1)
		}
		if seen[l.ID] {
			return nil, fmt.Errorf("уровень %d описан дважды", l.ID)
		}
		seen[l.ID] = true

		if l.EntryCost.IsNegative() || l.RewardCoins.IsNegative() || l.EntryGems.HasNegative() || l.RewardGems.HasNegative() {
			return nil, fmt.Errorf("уровень %d: стоимость и награды не могут быть отрицательными", l.ID)
		}
		if l.PuzzleType == "" {
			l.PuzzleType = puzzle.TypeColorMatch
		}
		if !puzzle.Supported(l.PuzzleType) {
			return nil, fmt.Errorf("уровень %d: неизвестный тип головоломки %q", l.ID, l.PuzzleType)
		}
		if l.Type == "" {
			l.Type = "main"
		}
		if l.MaxAttempts == 0 {
			l.MaxAttempts = 3
		}
		if l.Name == "" {
			l.Name = fmt.Sprintf("Уровень %d", l.Number)
		}
		l.Active = sl.Active == nil || *sl.Active
		out = append(out, l)
	}
	return out, nil
}

// LoadSeed читает файл и записывает все уровни.
func LoadSeed(ctx context.Context, path string, repo Upserter) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("не удалось прочитать %s: %w", path, err)
	}

	levels, err := ParseSeed(data)
	if err != nil {
		return 0, err
	}

	for i := range levels {
		if err := repo.Upsert(ctx, &levels[i]); err != nil {
			return i, err
		}
	}

	log.WithFields(log.Fields{"file": path, "levels": len(levels)}).Info("Конфигурация уровней загружена")
	return len(levels), nil
}
