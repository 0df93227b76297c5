// Package difficulty вычисляет адаптивную сложность уровня для игрока
// по истории его завершённых попыток.
package difficulty

import "time"

// Record — одна завершённая попытка, нужная для оценки.
type Record struct {
	CompletionPercentage float64 // 0..100
	Duration             float64 // секунды
	MaxTime              float64 // лимит уровня, секунды
	MovesCount           int
	Difficulty           float64   // сложность, с которой игралась попытка (0 — не записана)
	PlayedAt             time.Time // окончание попытки
}

// Config — параметры оценки.
type Config struct {
	MinDifficulty      float64
	MaxDifficulty      float64
	BaselineDifficulty float64 // используется, если у последней попытки сложность не записана
	Alpha              float64 // вес новой оценки в EMA
	DecayLambda        float64 // затухание веса старых попыток, 1/день
	DecayRate          float64 // множитель за каждый день простоя
	Lookback           time.Duration
	WeightAccuracy     float64
	WeightSpeed        float64
	WeightEfficiency   float64
}

// DefaultConfig — значения по умолчанию.
func DefaultConfig() Config {
	return Config{
		MinDifficulty:      1.0,
		MaxDifficulty:      2.0,
		BaselineDifficulty: 1.0,
		Alpha:              0.3,
		DecayLambda:        0.1,
		DecayRate:          0.98,
		Lookback:           30 * 24 * time.Hour,
		WeightAccuracy:     0.4,
		WeightSpeed:        0.3,
		WeightEfficiency:   0.3,
	}
}
