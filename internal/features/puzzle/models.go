// Package puzzle строит игровое поле и целевое (решённое) состояние уровня.
// Поле — набор пробирок, каждая пробирка — список индексов цветов снизу вверх.
package puzzle

// Типы головоломок
const (
	TypeColorMatch  = "color_match"  // сортировка цветов по пробиркам
	TypeTubeFilling = "tube_filling" // разлив жидкостей: пробирок больше, объём растёт вместе с ними
)

// Config — параметры генерации.
type Config struct {
	BaseColors         int
	MaxColors          int
	BaseCapacity       int
	CapacityMultiplier float64
	MaxCapacity        int
	MinBuffer          int // минимум пустых пробирок
	MaxBuffer          int // максимум пустых пробирок (на минимальной сложности)

	// tube_filling
	BaseTubes   int
	BaseLiquids int
	MaxTubes    int
}

// DefaultConfig — значения по умолчанию.
func DefaultConfig() Config {
	return Config{
		BaseColors:         3,
		MaxColors:          12,
		BaseCapacity:       4,
		CapacityMultiplier: 0.5,
		MaxCapacity:        8,
		MinBuffer:          1,
		MaxBuffer:          3,
		BaseTubes:          3,
		BaseLiquids:        2,
		MaxTubes:           14,
	}
}

// Parameters — параметры, с которыми построено поле. Сохраняются в попытке для аудита.
type Parameters struct {
	PuzzleType string  `json:"puzzle_type"`
	Level      int     `json:"level"`
	Difficulty float64 `json:"difficulty"`
	ColorCount int     `json:"color_count"`
	Capacity   int     `json:"capacity"`
	Buffer     int     `json:"buffer"`
	TotalTubes int     `json:"total_tubes"`
}

// Puzzle — результат генерации.
type Puzzle struct {
	Board      [][]int    `json:"board"`
	Target     [][]int    `json:"target"`
	Palette    []string   `json:"palette"`
	Parameters Parameters `json:"parameters"`
}
