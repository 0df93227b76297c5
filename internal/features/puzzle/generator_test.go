package puzzle

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serotonyl.ru/puzzle-arena/internal/common"
)

func newTestGenerator(seed int64) *Generator {
	return NewGeneratorWithSource(DefaultConfig(), rand.NewSource(seed))
}

func flatten(state [][]int) []int {
	var out []int
	for _, tube := range state {
		out = append(out, tube...)
	}
	sort.Ints(out)
	return out
}

func TestGenerateParameters(t *testing.T) {
	cases := []struct {
		level      int
		difficulty float64
		want       Parameters
	}{
		{1, 1.0, Parameters{ColorCount: 4, Capacity: 4, Buffer: 3, TotalTubes: 7}},
		{5, 1.5, Parameters{ColorCount: 10, Capacity: 7, Buffer: 2, TotalTubes: 12}},
		{10, 2.0, Parameters{ColorCount: 12, Capacity: 8, Buffer: 2, TotalTubes: 14}},
	}
	g := newTestGenerator(1)
	for _, tc := range cases {
		p, err := g.Generate(TypeColorMatch, tc.level, tc.difficulty)
		require.NoError(t, err)

		got := p.Parameters
		assert.Equal(t, tc.want.ColorCount, got.ColorCount, "level %d", tc.level)
		assert.Equal(t, tc.want.Capacity, got.Capacity, "level %d", tc.level)
		assert.Equal(t, tc.want.Buffer, got.Buffer, "level %d", tc.level)
		assert.Equal(t, tc.want.TotalTubes, got.TotalTubes, "level %d", tc.level)
		assert.Equal(t, tc.difficulty, got.Difficulty)
		assert.Len(t, p.Palette, got.ColorCount)
	}
}

func TestBoardAndTargetShareMultiset(t *testing.T) {
	for _, puzzleType := range []string{TypeColorMatch, TypeTubeFilling} {
		t.Run(puzzleType, func(t *testing.T) {
			g := newTestGenerator(7)
			for level := 1; level <= 15; level++ {
				for _, d := range []float64{1.0, 1.25, 1.5, 1.75, 2.0} {
					p, err := g.Generate(puzzleType, level, d)
					require.NoError(t, err)

					assert.Equal(t, puzzleType, p.Parameters.PuzzleType)
					assert.Equal(t, flatten(p.Target), flatten(p.Board), "level=%d difficulty=%v", level, d)
					assert.Len(t, p.Board, p.Parameters.TotalTubes)
					assert.Len(t, p.Target, p.Parameters.TotalTubes)
					assert.GreaterOrEqual(t, p.Parameters.Buffer, 1)
					for _, tube := range p.Board {
						assert.LessOrEqual(t, len(tube), p.Parameters.Capacity)
					}
				}
			}
		})
	}
}

func TestTubeFillingParameters(t *testing.T) {
	cases := []struct {
		level      int
		difficulty float64
		want       Parameters
	}{
		{2, 1.2, Parameters{ColorCount: 3, Capacity: 5, Buffer: 2, TotalTubes: 5}},
		{6, 2.0, Parameters{ColorCount: 8, Capacity: 8, Buffer: 1, TotalTubes: 9}},
		{20, 2.0, Parameters{ColorCount: 13, Capacity: 8, Buffer: 1, TotalTubes: 14}},
	}
	g := newTestGenerator(1)
	for _, tc := range cases {
		p, err := g.Generate(TypeTubeFilling, tc.level, tc.difficulty)
		require.NoError(t, err)

		got := p.Parameters
		assert.Equal(t, tc.want.ColorCount, got.ColorCount, "level %d", tc.level)
		assert.Equal(t, tc.want.Capacity, got.Capacity, "level %d", tc.level)
		assert.Equal(t, tc.want.Buffer, got.Buffer, "level %d", tc.level)
		assert.Equal(t, tc.want.TotalTubes, got.TotalTubes, "level %d", tc.level)
	}
	assert.True(t, Supported(TypeTubeFilling))
	assert.False(t, Supported("sudoku"))
}

func TestTargetIsGroupedWithTrailingEmptyTubes(t *testing.T) {
	p, err := newTestGenerator(3).Generate(TypeColorMatch, 1, 1.0)
	require.NoError(t, err)

	for i, tube := range p.Target {
		if i < p.Parameters.ColorCount {
			assert.Equal(t, []int{i, i, i, i}, tube)
		} else {
			assert.Empty(t, tube)
		}
	}
	for i := p.Parameters.ColorCount; i < p.Parameters.TotalTubes; i++ {
		assert.Empty(t, p.Board[i], "buffer tube %d", i)
	}
	assert.False(t, isSolved(p.Board))
}

func TestGenerateIsDeterministicForSeed(t *testing.T) {
	a, err := newTestGenerator(99).Generate(TypeColorMatch, 4, 1.3)
	require.NoError(t, err)
	b, err := newTestGenerator(99).Generate(TypeColorMatch, 4, 1.3)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestGenerateRejectsBadInput(t *testing.T) {
	g := newTestGenerator(1)

	_, err := g.Generate("sudoku", 1, 1)
	assert.ErrorIs(t, err, common.ErrValidation)
	_, err = g.Generate(TypeColorMatch, 0, 1)
	assert.ErrorIs(t, err, common.ErrValidation)
	_, err = g.Generate(TypeColorMatch, 1, 0)
	assert.ErrorIs(t, err, common.ErrValidation)
}

func TestPaletteDistinctHex(t *testing.T) {
	colors := Palette(12, 0.1)
	require.Len(t, colors, 12)

	seen := make(map[string]bool)
	for _, c := range colors {
		assert.Regexp(t, `^#[0-9a-f]{6}$`, c)
		assert.False(t, seen[c], "duplicate color %s", c)
		seen[c] = true
	}
}
