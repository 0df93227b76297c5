// Package common — pluralize.go содержит функции склонения русских числительных
// для сообщений игроку (токены и кристаллы).
package common

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// plural выбирает форму слова для n: one (1, 21), few (2-4, 22-24), many (0, 5-20, 25-30).
func plural(n int64, one, few, many string) string {
	if n < 0 {
		n = -n
	}
	lastDigit := n % 10
	lastTwoDigits := n % 100

	if lastDigit == 1 && lastTwoDigits != 11 {
		return one
	}
	if lastDigit >= 2 && lastDigit <= 4 && (lastTwoDigits < 12 || lastTwoDigits > 14) {
		return few
	}
	return many
}

// PluralizeTokens возвращает правильную форму слова «токен» для числа n.
//
//	PluralizeTokens(1)  → "токен"
//	PluralizeTokens(3)  → "токена"
//	PluralizeTokens(11) → "токенов"
func PluralizeTokens(n int64) string {
	return plural(n, "токен", "токена", "токенов")
}

// PluralizeGems возвращает правильную форму слова «кристалл».
func PluralizeGems(n int64) string {
	return plural(n, "кристалл", "кристалла", "кристаллов")
}

// FormatGems создаёт строку вида "2 кристалла".
func FormatGems(n int64) string {
	return fmt.Sprintf("%d %s", n, PluralizeGems(n))
}

// CurrencyTitle — человекочитаемое название валюты для сообщений об ошибках.
func CurrencyTitle(currency string) string {
	switch currency {
	case "tokens":
		return "токены"
	case "blue":
		return "синие кристаллы"
	case "green":
		return "зелёные кристаллы"
	case "red":
		return "красные кристаллы"
	default:
		return currency
	}
}

// FormatTokens создаёт строку вида "120 токенов" или "12.50 токена" (дробные — всегда родительный падеж).
func FormatTokens(amount decimal.Decimal) string {
	if amount.IsInteger() {
		return fmt.Sprintf("%s %s", amount.String(), PluralizeTokens(amount.IntPart()))
	}
	return fmt.Sprintf("%s токена", amount.StringFixed(2))
}
