// Package difficulty — service.go содержит сам алгоритм оценки.
//
// Для каждой попытки в окне lookback считаются:
//   - accuracy = completion% / 100
//   - speed = max(0, 1 − duration / maxTime)
//   - efficiency = min(1, completion% / movesCount)
//   - вес давности = exp(−λ × дней с попытки)
//
// Взвешенные средние метрик складываются с весами из конфига в rawScore,
// rawDifficulty = 1 + rawScore, затем EMA с предыдущей сложностью,
// затухание за дни простоя, ограничение [min, max] и округление до 2 знаков.
package difficulty

import (
	"context"
	"fmt"
	"math"
	"time"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/puzzle-arena/internal/common"
)

// History — источник попыток игрока на уровне.
// Записи отсортированы от новых к старым.
type History interface {
	RecentAttempts(ctx context.Context, playerID, levelID int64, since time.Time) ([]Record, error)
}

// Estimator вычисляет сложность. Без побочных эффектов, кроме чтения истории.
type Estimator struct {
	history History
	cfg     Config
	now     func() time.Time
}

// NewEstimator создаёт оценщик с системными часами.
func NewEstimator(history History, cfg Config) *Estimator {
	return &Estimator{history: history, cfg: cfg, now: time.Now}
}

// WithClock подменяет часы (для тестов).
func (e *Estimator) WithClock(now func() time.Time) *Estimator {
	e.now = now
	return e
}

// Estimate возвращает сложность в [MinDifficulty, MaxDifficulty].
// Без истории — ровно MinDifficulty.
func (e *Estimator) Estimate(ctx context.Context, playerID, levelID int64) (float64, error) {
	now := e.now()
	records, err := e.history.RecentAttempts(ctx, playerID, levelID, now.Add(-e.cfg.Lookback))
	if err != nil {
		return 0, fmt.Errorf("ошибка чтения истории попыток: %w", err)
	}

	d := e.Compute(records, now)
	log.WithFields(log.Fields{
		"player_id":  playerID,
		"level_id":   levelID,
		"attempts":   len(records),
		"difficulty": d,
	}).Debug("Сложность рассчитана")
	return d, nil
}

// Compute — чистая часть Estimate.
func (e *Estimator) Compute(records []Record, now time.Time) float64 {
	if len(records) == 0 {
		return e.cfg.MinDifficulty
	}

	var (
		sumWeight                      float64
		sumAccuracy, sumSpeed, sumEffi float64
		latest                         = records[0]
	)
	for _, r := range records {
		days := daysBetween(r.PlayedAt, now)
		w := math.Exp(-e.cfg.DecayLambda * days)

		sumWeight += w
		sumAccuracy += w * accuracy(r)
		sumSpeed += w * speed(r)
		sumEffi += w * efficiency(r)

		if r.PlayedAt.After(latest.PlayedAt) {
			latest = r
		}
	}

	rawScore := 0.0
	if sumWeight > 0 {
		rawScore = e.cfg.WeightAccuracy*sumAccuracy/sumWeight +
			e.cfg.WeightSpeed*sumSpeed/sumWeight +
			e.cfg.WeightEfficiency*sumEffi/sumWeight
	}
	rawDifficulty := 1 + rawScore

	previous := latest.Difficulty
	if previous <= 0 {
		previous = e.cfg.BaselineDifficulty
	}
	ema := e.cfg.Alpha*rawDifficulty + (1-e.cfg.Alpha)*previous

	idleDays := daysBetween(latest.PlayedAt, now)
	final := ema * math.Pow(e.cfg.DecayRate, idleDays)

	return common.RoundTo(common.Clamp(final, e.cfg.MinDifficulty, e.cfg.MaxDifficulty), 2)
}

func accuracy(r Record) float64 {
	return common.Clamp(r.CompletionPercentage, 0, 100) / 100
}

func speed(r Record) float64 {
	if r.MaxTime <= 0 {
		return 0
	}
	return math.Max(0, 1-math.Max(0, r.Duration)/r.MaxTime)
}

func efficiency(r Record) float64 {
	if r.MovesCount <= 0 {
		return 0
	}
	return math.Min(1, common.Clamp(r.CompletionPercentage, 0, 100)/float64(r.MovesCount))
}

// daysBetween — дробное число дней; будущее время считается нулём.
func daysBetween(from, to time.Time) float64 {
	d := to.Sub(from).Hours() / 24
	if d < 0 {
		return 0
	}
	return d
}
