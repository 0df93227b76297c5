// Package puzzle — generator.go содержит генераторы поля по типу головоломки.
//
// color_match:
//
//	colorCount = min(baseColors + level×difficulty, maxColors)
//	capacity   = min(baseCapacity + level×difficulty×multiplier, maxCapacity)
//	buffer     = clamp(round(maxBuffer / difficulty), minBuffer, maxBuffer)
//
// tube_filling:
//
//	tubes    = min(baseTubes + level, maxTubes)
//	liquids  = clamp(baseLiquids + level×difficulty/2, 1, tubes - minBuffer)
//	capacity = min(tubes, maxCapacity)
//
// Дробные части отбрасываются. Поле гарантированно содержит тот же мультисет цветов,
// что и цель; достижимость цели допустимыми ходами не проверяется.
package puzzle

import (
	"math"
	"math/rand"
	"sync"
	"time"

	"serotonyl.ru/puzzle-arena/internal/common"
)

// sizer вычисляет параметры поля для своего типа головоломки.
type sizer func(cfg Config, level int, difficulty float64) Parameters

var sizers = map[string]sizer{
	TypeColorMatch:  colorMatchParameters,
	TypeTubeFilling: tubeFillingParameters,
}

// Supported сообщает, умеет ли генератор строить головоломку этого типа.
func Supported(puzzleType string) bool {
	_, ok := sizers[puzzleType]
	return ok
}

// reshuffleLimit — сколько раз перемешиваем, если поле случайно получилось уже решённым.
const reshuffleLimit = 10

// Generator потокобезопасен: источник случайности защищён мьютексом.
type Generator struct {
	cfg Config

	mu  sync.Mutex
	rnd *rand.Rand
}

// NewGenerator создаёт генератор со случайным seed.
func NewGenerator(cfg Config) *Generator {
	return NewGeneratorWithSource(cfg, rand.NewSource(time.Now().UnixNano()))
}

// NewGeneratorWithSource — детерминированный генератор (для тестов и воспроизведения).
func NewGeneratorWithSource(cfg Config, src rand.Source) *Generator {
	return &Generator{cfg: cfg, rnd: rand.New(src)}
}

// Generate строит поле и цель для уровня. Пустой puzzleType = color_match.
func (g *Generator) Generate(puzzleType string, level int, difficulty float64) (*Puzzle, error) {
	if puzzleType == "" {
		puzzleType = TypeColorMatch
	}
	size, ok := sizers[puzzleType]
	if !ok {
		return nil, common.Validationf("неизвестный тип головоломки %q", puzzleType)
	}
	if level < 1 {
		return nil, common.Validationf("номер уровня должен быть >= 1, получено %d", level)
	}
	if difficulty <= 0 || math.IsNaN(difficulty) || math.IsInf(difficulty, 0) {
		return nil, common.Validationf("сложность должна быть > 0, получено %v", difficulty)
	}

	params := size(g.cfg, level, difficulty)

	g.mu.Lock()
	defer g.mu.Unlock()

	board := g.shuffledBoard(params)
	for i := 0; i < reshuffleLimit && isSolved(board); i++ {
		board = g.shuffledBoard(params)
	}

	return &Puzzle{
		Board:      board,
		Target:     targetState(params),
		Palette:    Palette(params.ColorCount, g.rnd.Float64()),
		Parameters: params,
	}, nil
}

func colorMatchParameters(cfg Config, level int, difficulty float64) Parameters {
	scaled := float64(level) * difficulty
	colorCount := int(math.Min(float64(cfg.BaseColors)+scaled, float64(cfg.MaxColors)))
	capacity := int(math.Min(float64(cfg.BaseCapacity)+scaled*cfg.CapacityMultiplier, float64(cfg.MaxCapacity)))
	buffer := common.ClampInt(int(math.Round(float64(cfg.MaxBuffer)/difficulty)), cfg.MinBuffer, cfg.MaxBuffer)
	return layout(TypeColorMatch, level, difficulty, colorCount, capacity, buffer)
}

// tubeFillingParameters: число пробирок растёт с уровнем, число жидкостей — с уровнем и сложностью.
// Хотя бы minBuffer пробирок (но не меньше одной) остаются пустыми.
func tubeFillingParameters(cfg Config, level int, difficulty float64) Parameters {
	tubes := common.ClampInt(cfg.BaseTubes+level, 2, cfg.MaxTubes)
	minEmpty := max(cfg.MinBuffer, 1)
	liquids := common.ClampInt(cfg.BaseLiquids+int(float64(level)*difficulty/2), 1, max(tubes-minEmpty, 1))
	capacity := min(tubes, cfg.MaxCapacity)
	return layout(TypeTubeFilling, level, difficulty, liquids, capacity, tubes-liquids)
}

func layout(puzzleType string, level int, difficulty float64, colorCount, capacity, buffer int) Parameters {
	colorCount = max(colorCount, 1)
	capacity = max(capacity, 1)
	buffer = max(buffer, 0)
	return Parameters{
		PuzzleType: puzzleType,
		Level:      level,
		Difficulty: difficulty,
		ColorCount: colorCount,
		Capacity:   capacity,
		Buffer:     buffer,
		TotalTubes: colorCount + buffer,
	}
}

// shuffledBoard перемешивает colorCount×capacity единиц и раскладывает их по пробиркам.
// Хвостовые пробирки остаются пустыми.
func (g *Generator) shuffledBoard(p Parameters) [][]int {
	units := make([]int, 0, p.ColorCount*p.Capacity)
	for c := 0; c < p.ColorCount; c++ {
		for i := 0; i < p.Capacity; i++ {
			units = append(units, c)
		}
	}
	g.rnd.Shuffle(len(units), func(i, j int) { units[i], units[j] = units[j], units[i] })

	board := make([][]int, p.TotalTubes)
	for t := range board {
		board[t] = []int{}
	}
	for i, u := range units {
		t := i / p.Capacity
		board[t] = append(board[t], u)
	}
	return board
}

// targetState — по одной полной пробирке на цвет плюс пустые до того же числа пробирок.
func targetState(p Parameters) [][]int {
	target := make([][]int, p.TotalTubes)
	for t := range target {
		target[t] = []int{}
		if t >= p.ColorCount {
			continue
		}
		for i := 0; i < p.Capacity; i++ {
			target[t] = append(target[t], t)
		}
	}
	return target
}

// isSolved — каждая непустая пробирка заполнена одним цветом.
func isSolved(board [][]int) bool {
	for _, tube := range board {
		for _, c := range tube {
			if c != tube[0] {
				return false
			}
		}
	}
	return true
}
