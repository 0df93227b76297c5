// Package gameplay ведёт игровой цикл игрока: вход в уровень, действия, выход.
// models.go описывает попытку, её статусы и сообщения протокола.
package gameplay

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"serotonyl.ru/puzzle-arena/internal/common"
	"serotonyl.ru/puzzle-arena/internal/features/economy"
	"serotonyl.ru/puzzle-arena/internal/features/puzzle"
	"serotonyl.ru/puzzle-arena/internal/features/validator"
)

// PlayerState — состояние игрока: IDLE (нет открытой попытки) или ACTIVE.
type PlayerState int

const (
	StateIdle PlayerState = iota
	StateActive
)

func (s PlayerState) String() string {
	if s == StateActive {
		return "ACTIVE"
	}
	return "IDLE"
}

// AttemptStatus — статус попытки. Из ACTIVE можно перейти только в COMPLETED или ABANDONED.
type AttemptStatus string

const (
	StatusActive    AttemptStatus = "ACTIVE"
	StatusCompleted AttemptStatus = "COMPLETED"
	StatusAbandoned AttemptStatus = "ABANDONED"
)

// CanTransition проверяет допустимость перехода.
func (s AttemptStatus) CanTransition(to AttemptStatus) bool {
	return s == StatusActive && (to == StatusCompleted || to == StatusAbandoned)
}

// GameType — режим игры. В quest кристаллы за вход не списываются.
type GameType string

const (
	GameTypeMain  GameType = "main"
	GameTypeQuest GameType = "quest"
)

// ParseGameType: пустое значение = main.
func ParseGameType(s string) (GameType, error) {
	switch GameType(s) {
	case "", GameTypeMain:
		return GameTypeMain, nil
	case GameTypeQuest:
		return GameTypeQuest, nil
	default:
		return "", common.Validationf("неизвестный game_type %q", s)
	}
}

// ActionType — тип игрового действия.
type ActionType string

const (
	ActionMove     ActionType = "MOVE"
	ActionClick    ActionType = "CLICK"
	ActionDrag     ActionType = "DRAG"
	ActionDrop     ActionType = "DROP"
	ActionComplete ActionType = "COMPLETE"
	ActionFail     ActionType = "FAIL"
)

var validActions = map[ActionType]bool{
	ActionMove: true, ActionClick: true, ActionDrag: true,
	ActionDrop: true, ActionComplete: true, ActionFail: true,
}

// ParseActionType отклоняет всё, что не входит в фиксированный набор.
func ParseActionType(s string) (ActionType, error) {
	t := ActionType(s)
	if !validActions[t] {
		return "", common.Validationf("неизвестный action_type %q", s)
	}
	return t, nil
}

// DefaultMaxMoves записывается в попытку, но не ограничивает число действий.
const DefaultMaxMoves = 100

// Attempt — строка game_attempt.
type Attempt struct {
	ID                   int64
	PlayerID             int64
	LevelID              int64
	LevelNumber          int
	GameType             GameType
	LevelType            string
	Status               AttemptStatus
	Difficulty           float64
	Board                [][]int
	Target               [][]int
	Parameters           puzzle.Parameters
	Score                float64
	CompletionPercentage float64
	TokensEarned         decimal.Decimal
	GemsEarned           economy.Gems
	EntryCost            decimal.Decimal // списано токенов на входе
	GemsSpent            economy.Gems
	RewardCoins          decimal.Decimal // награда уровня на момент входа
	RewardGems           economy.Gems
	TimeLimit            int // секунды
	MovesCount           int
	MaxMoves             int
	Duration             float64 // секунды
	StartTime            time.Time
	EndTime              *time.Time
	IPAddress            string
	DeviceFingerprint    string
	ConnectionID         string
	Replay               *validator.Replay
	CheatReason          string
}

// Transition меняет статус с проверкой таблицы переходов.
func (a *Attempt) Transition(to AttemptStatus) error {
	if !a.Status.CanTransition(to) {
		return fmt.Errorf("%w: %s → %s (attempt %d)", common.ErrInvalidTransition, a.Status, to, a.ID)
	}
	a.Status = to
	return nil
}

// Action — строка game_action. Только добавляется.
type Action struct {
	ID        int64
	AttemptID int64
	PlayerID  int64
	Type      ActionType
	Data      json.RawMessage
	SessionID string
	CreatedAt time.Time
}

// ConnInfo — проверенная личность соединения.
type ConnInfo struct {
	ID                string
	PlayerID          int64
	Username          string
	IPAddress         string
	DeviceFingerprint string
}

// Входящие сообщения

type JoinRequest struct {
	PlayerID  int64  `json:"player_id"`
	LevelID   int64  `json:"game_level_id"`
	GameType  string `json:"game_type"`
	LevelType string `json:"level_type"`
}

type ActionRequest struct {
	PlayerID   int64           `json:"player_id"`
	ActionType string          `json:"action_type"`
	ActionData json.RawMessage `json:"action_data"`
	SessionID  string          `json:"session_id"`
}

type ExitRequest struct {
	PlayerID             int64             `json:"player_id"`
	Score                float64           `json:"score"`
	CompletionPercentage float64           `json:"completion_percentage"`
	ReplayData           *validator.Replay `json:"replay_data"`
}

// Результаты операций (поля исходящих событий)

type JoinResult struct {
	AttemptID  int64             `json:"game_attempt_id"`
	Message    string            `json:"message"`
	Difficulty float64           `json:"difficulty"`
	TimeLimit  int               `json:"time_limit"`
	Board      [][]int           `json:"board"`
	Palette    []string          `json:"palette"`
	Parameters puzzle.Parameters `json:"parameters"`
}

type ActionResult struct {
	AttemptID  int64      `json:"game_attempt_id"`
	ActionID   int64      `json:"action_id"`
	ActionType ActionType `json:"action_type"`
	Timestamp  string     `json:"timestamp"`
	MovesCount int        `json:"moves_count"`
}

type ExitResult struct {
	AttemptID            int64           `json:"game_attempt_id"`
	Message              string          `json:"message"`
	Score                float64         `json:"score"`
	CompletionPercentage float64         `json:"completion_percentage"`
	TokensEarned         decimal.Decimal `json:"tokens_earned"`
	GemsEarned           economy.Gems    `json:"gems_earned"`
}
