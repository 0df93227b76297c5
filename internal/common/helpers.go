// Package common содержит общие утилиты, используемые во всём проекте.
// Сюда входят: округление и ограничение чисел, русская плюрализация, работа с временем.
package common

import (
	"math"
	"time"

	log "github.com/sirupsen/logrus"
)

// RoundTo округляет v до places знаков после запятой (половина — от нуля).
//
// Примеры:
//
//	RoundTo(1.2345, 2) → 1.23
//	RoundTo(1.236, 2)  → 1.24
func RoundTo(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

// Clamp ограничивает v отрезком [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ClampInt — то же для целых.
func ClampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// LoadLocation загружает часовой пояс по имени.
// Если tzdata в контейнере нет — используем UTC+3 вручную для Europe/Moscow и UTC для остальных.
func LoadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err == nil {
		return loc
	}
	log.WithError(err).WithField("timezone", name).Warn("Не удалось загрузить часовой пояс")
	if name == "Europe/Moscow" {
		return time.FixedZone("MSK", 3*60*60)
	}
	return time.UTC
}

// FormatDateTime форматирует время в формат "02.01.2006 15:04" в указанном поясе.
// Используется в уведомлениях администраторам.
func FormatDateTime(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format("02.01.2006 15:04")
}
