package validator

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScoreMultisetMatching(t *testing.T) {
	target := [][]int{{0, 0, 0}, {1, 1, 1}, {}}

	assert.Equal(t, 100.0, Score([][]int{{1, 0, 1}, {0, 1, 0}, {}}, target))
	assert.Equal(t, 100.0, Score([][]int{{}, {1, 1, 1}, {0, 0, 0}}, target))
	assert.Equal(t, 66.67, Score([][]int{{0, 0}, {1, 1}, {}}, target))
	assert.Equal(t, 50.0, Score([][]int{{0, 0, 0, 0, 0, 0}, {}, {}}, target))
}

func TestScoreIgnoresTubeOrder(t *testing.T) {
	target := [][]int{{0, 0, 2}, {1, 1, 1}, {2, 2}, {}}
	submitted := [][]int{{2, 1}, {0}, {1, 2, 2}, {0, 9}}

	base := Score(submitted, target)
	reordered := [][]int{submitted[3], submitted[1], submitted[0], submitted[2]}
	assert.Equal(t, base, Score(reordered, target))
	assert.Equal(t, 87.5, base)
}

func TestScoreZeroCases(t *testing.T) {
	target := [][]int{{0, 0}, {1, 1}}

	assert.Equal(t, 0.0, Score(nil, target))
	assert.Equal(t, 0.0, Score([][]int{{0, 0}}, nil))
	assert.Equal(t, 0.0, Score([][]int{{0, 0}, {1, 1}, {}}, target), "tube count differs")
	assert.Equal(t, 0.0, Score([][]int{{}, {}}, [][]int{{}, {}}))
}

func TestSpeedCheck(t *testing.T) {
	c := SpeedCheck{MinInterval: 40 * time.Millisecond, MinCompletionTime: 3 * time.Second}

	hit, reason := c.Inspect(Evidence{CompletionPercentage: 100, Duration: time.Second})
	assert.True(t, hit)
	assert.Contains(t, reason, "пройден")

	hit, _ = c.Inspect(Evidence{Replay: Replay{TimingData: []float64{5, 10, 8, 3, 12, 6}}})
	assert.True(t, hit)

	hit, _ = c.Inspect(Evidence{Replay: Replay{TimingData: []float64{5, 10}}})
	assert.False(t, hit, "too few intervals")

	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	var times []time.Time
	for i := 0; i < 8; i++ {
		times = append(times, start.Add(time.Duration(i)*300*time.Millisecond))
	}
	hit, _ = c.Inspect(Evidence{CompletionPercentage: 100, Duration: 10 * time.Second, ActionTimes: times})
	assert.False(t, hit)
}

func TestPatternCheck(t *testing.T) {
	c := PatternCheck{MaxRepeats: 3}

	same := json.RawMessage(`{"from":0,"to":1}`)
	hit, _ := c.Inspect(Evidence{Replay: Replay{ActionSequence: []json.RawMessage{same, same, same, same}}})
	assert.True(t, hit)

	other := json.RawMessage(`{"from":1,"to":0}`)
	hit, _ = c.Inspect(Evidence{Replay: Replay{ActionSequence: []json.RawMessage{same, same, other, same, same}}})
	assert.False(t, hit)

	p := Point{X: 10, Y: 10}
	hit, reason := c.Inspect(Evidence{Replay: Replay{ClickPositions: []Point{p, p, p, p}}})
	assert.True(t, hit)
	assert.Contains(t, reason, "кликов")
}

func TestMovementCheck(t *testing.T) {
	c := MovementCheck{MinClicks: 3, MinDistance: 5}
	clicks := []Point{{X: 1}, {X: 2}, {X: 3}}

	hit, _ := c.Inspect(Evidence{Replay: Replay{ClickPositions: clicks, MouseMovements: []Point{{X: 0}, {X: 1}}}})
	assert.True(t, hit)

	hit, _ = c.Inspect(Evidence{Replay: Replay{ClickPositions: clicks, MouseMovements: []Point{{X: 0}, {X: 30, Y: 40}}}})
	assert.False(t, hit)

	hit, _ = c.Inspect(Evidence{Replay: Replay{ClickPositions: clicks}})
	assert.False(t, hit, "no mouse telemetry")
}

type stubCheck struct {
	name string
	hit  bool
	runs *int
}

func (s stubCheck) Name() string { return s.name }

func (s stubCheck) Inspect(Evidence) (bool, string) {
	*s.runs++
	return s.hit, s.name + " fired"
}

func TestDetectorStopsAtFirstHit(t *testing.T) {
	runs := 0
	d := NewDetector(
		stubCheck{name: "a", runs: &runs},
		stubCheck{name: "b", hit: true, runs: &runs},
		stubCheck{name: "c", hit: true, runs: &runs},
	)

	v := d.Detect(context.Background(), Evidence{})
	require.True(t, v.Detected)
	assert.Equal(t, "b", v.Check)
	assert.Equal(t, "b fired", v.Reason)
	assert.Equal(t, 2, runs)
}

func TestFromConfigRespectsFlags(t *testing.T) {
	d := FromConfig(Config{SpeedEnabled: true, MinCompletionTime: time.Second})
	require.Len(t, d.checks, 1)

	v := d.Detect(context.Background(), Evidence{CompletionPercentage: 100, Duration: 10 * time.Millisecond})
	assert.True(t, v.Detected)
	assert.Equal(t, "speed", v.Check)

	assert.False(t, FromConfig(Config{}).Detect(context.Background(), Evidence{CompletionPercentage: 100}).Detected)
}
