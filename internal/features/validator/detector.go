// Package validator — detector.go содержит подключаемые анти-чит проверки.
// Проверки эвристические: любая сработавшая проверка означает бан в игровом цикле.
package validator

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"time"

	log "github.com/sirupsen/logrus"
)

// Check — одна эвристика.
type Check interface {
	Name() string
	Inspect(ev Evidence) (detected bool, reason string)
}

// Config включает и настраивает встроенные проверки.
type Config struct {
	SpeedEnabled      bool
	MinActionInterval time.Duration
	MinCompletionTime time.Duration

	PatternEnabled bool
	MaxRepeats     int

	MovementEnabled  bool
	MinClicks        int
	MinMouseDistance float64
}

// Detector прогоняет проверки по порядку до первого срабатывания.
type Detector struct {
	checks []Check
}

// NewDetector создаёт детектор из произвольного набора проверок.
func NewDetector(checks ...Check) *Detector {
	return &Detector{checks: checks}
}

// FromConfig собирает встроенные проверки по конфигу.
func FromConfig(cfg Config) *Detector {
	var checks []Check
	if cfg.SpeedEnabled {
		checks = append(checks, SpeedCheck{MinInterval: cfg.MinActionInterval, MinCompletionTime: cfg.MinCompletionTime})
	}
	if cfg.PatternEnabled {
		checks = append(checks, PatternCheck{MaxRepeats: cfg.MaxRepeats})
	}
	if cfg.MovementEnabled {
		checks = append(checks, MovementCheck{MinClicks: cfg.MinClicks, MinDistance: cfg.MinMouseDistance})
	}
	return NewDetector(checks...)
}

// Detect возвращает первый сработавший вердикт или Verdict{} без нарушений.
func (d *Detector) Detect(ctx context.Context, ev Evidence) Verdict {
	for _, c := range d.checks {
		if ctx.Err() != nil {
			break
		}
		if hit, reason := c.Inspect(ev); hit {
			log.WithFields(log.Fields{
				"attempt_id": ev.AttemptID,
				"player_id":  ev.PlayerID,
				"check":      c.Name(),
				"reason":     reason,
			}).Warn("Анти-чит проверка сработала")
			return Verdict{Detected: true, Check: c.Name(), Reason: reason}
		}
	}
	return Verdict{}
}

// minIntervals — меньше интервалов недостаточно для вывода о скорости.
const minIntervals = 5

// SpeedCheck ловит нечеловечески быстрые действия и мгновенное прохождение.
type SpeedCheck struct {
	MinInterval       time.Duration
	MinCompletionTime time.Duration
}

func (SpeedCheck) Name() string { return "speed" }

func (c SpeedCheck) Inspect(ev Evidence) (bool, string) {
	if c.MinCompletionTime > 0 && ev.CompletionPercentage >= 100 && ev.Duration < c.MinCompletionTime {
		return true, fmt.Sprintf("уровень пройден за %s (минимум %s)", ev.Duration.Round(time.Millisecond), c.MinCompletionTime)
	}

	intervals := ev.Replay.TimingData
	if len(intervals) == 0 {
		for i := 1; i < len(ev.ActionTimes); i++ {
			intervals = append(intervals, float64(ev.ActionTimes[i].Sub(ev.ActionTimes[i-1]).Milliseconds()))
		}
	}
	if c.MinInterval <= 0 || len(intervals) < minIntervals {
		return false, ""
	}

	sum := 0.0
	for _, v := range intervals {
		sum += math.Max(0, v)
	}
	avg := sum / float64(len(intervals))
	if avg < float64(c.MinInterval.Milliseconds()) {
		return true, fmt.Sprintf("средний интервал между действиями %.1f мс (минимум %d мс)", avg, c.MinInterval.Milliseconds())
	}
	return false, ""
}

// PatternCheck ловит длинные серии одинаковых действий или кликов в одну точку.
type PatternCheck struct {
	MaxRepeats int
}

func (PatternCheck) Name() string { return "pattern" }

func (c PatternCheck) Inspect(ev Evidence) (bool, string) {
	if c.MaxRepeats <= 0 {
		return false, ""
	}

	run := 1
	for i := 1; i < len(ev.Replay.ActionSequence); i++ {
		if bytes.Equal(ev.Replay.ActionSequence[i], ev.Replay.ActionSequence[i-1]) {
			run++
			if run > c.MaxRepeats {
				return true, fmt.Sprintf("одно и то же действие повторено более %d раз подряд", c.MaxRepeats)
			}
		} else {
			run = 1
		}
	}

	run = 1
	clicks := ev.Replay.ClickPositions
	for i := 1; i < len(clicks); i++ {
		if clicks[i].X == clicks[i-1].X && clicks[i].Y == clicks[i-1].Y {
			run++
			if run > c.MaxRepeats {
				return true, fmt.Sprintf("более %d кликов подряд в одну точку", c.MaxRepeats)
			}
		} else {
			run = 1
		}
	}
	return false, ""
}

// MovementCheck ловит клики без движения мыши.
// Без данных о движении (тач-устройства) проверка не применяется.
type MovementCheck struct {
	MinClicks   int
	MinDistance float64
}

func (MovementCheck) Name() string { return "movement" }

func (c MovementCheck) Inspect(ev Evidence) (bool, string) {
	moves := ev.Replay.MouseMovements
	if len(moves) == 0 || len(ev.Replay.ClickPositions) < c.MinClicks {
		return false, ""
	}

	distance := 0.0
	for i := 1; i < len(moves); i++ {
		distance += math.Hypot(moves[i].X-moves[i-1].X, moves[i].Y-moves[i-1].Y)
	}
	if distance < c.MinDistance {
		return true, fmt.Sprintf("%d кликов при перемещении мыши %.1f px", len(ev.Replay.ClickPositions), distance)
	}
	return false, ""
}
