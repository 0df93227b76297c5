package validator

import (
	"encoding/json"
	"time"
)

// Point — координата указателя; T — миллисекунды от начала попытки.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	T float64 `json:"t,omitempty"`
}

// Replay — телеметрия, которую клиент присылает в exit_game.
type Replay struct {
	FinalState     [][]int           `json:"final_state,omitempty"`
	ActionSequence []json.RawMessage `json:"action_sequence,omitempty"`
	MouseMovements []Point           `json:"mouse_movements,omitempty"`
	ClickPositions []Point           `json:"click_positions,omitempty"`
	TimingData     []float64         `json:"timing_data,omitempty"` // мс между действиями
}

// Evidence — всё, что известно о попытке к моменту выхода.
type Evidence struct {
	AttemptID            int64
	PlayerID             int64
	Duration             time.Duration
	CompletionPercentage float64
	ActionTimes          []time.Time // время записанных game_action
	Replay               Replay
}

// Verdict — итог проверки.
type Verdict struct {
	Detected bool
	Check    string
	Reason   string
}
