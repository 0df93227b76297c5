// Package validator оценивает сданное поле и проверяет телеметрию попытки на читерство.
package validator

import "serotonyl.ru/puzzle-arena/internal/common"

// Score возвращает процент совпадения submitted с target (0..100, 2 знака).
//
// Каждая единица цвета в submitted жадно сопоставляется с неиспользованной единицей
// того же цвета в target: сравниваются мультисеты, а не позиции.
// Пустое состояние или разное число пробирок дают 0.
func Score(submitted, target [][]int) float64 {
	if len(submitted) == 0 || len(target) == 0 || len(submitted) != len(target) {
		return 0
	}

	remaining := make(map[int]int)
	total := 0
	for _, tube := range target {
		for _, c := range tube {
			remaining[c]++
			total++
		}
	}
	if total == 0 {
		return 0
	}

	matched := 0
	for _, tube := range submitted {
		for _, c := range tube {
			if remaining[c] > 0 {
				remaining[c]--
				matched++
			}
		}
	}
	return common.RoundTo(float64(matched)/float64(total)*100, 2)
}
