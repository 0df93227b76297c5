package gameplay

import (
	"encoding/json"

	"serotonyl.ru/puzzle-arena/internal/features/economy"
)

// Типы входящих сообщений
const (
	MsgJoinGame        = "join_game"
	MsgGameAction      = "game_action"
	MsgExitGame        = "exit_game"
	MsgGameStateUpdate = "game_state_update"
	MsgChatMessage     = "chat_message"
	MsgPing            = "ping"
	MsgGetBalance      = "get_balance"
)

// Типы исходящих событий
const (
	EventConnectionEstablished = "connection_established"
	EventGameJoined            = "game_joined"
	EventActionConfirmed       = "action_confirmed"
	EventGameExited            = "game_exited"
	EventStateUpdated          = "state_updated"
	EventChatMessage           = "chat_message"
	EventPong                  = "pong"
	EventBalance               = "balance"
	EventError                 = "error"
)

type envelope struct {
	Type string `json:"type"`
}

type ConnectionEstablished struct {
	Type     string `json:"type"`
	PlayerID int64  `json:"player_id"`
	Username string `json:"username"`
}

type GameJoined struct {
	Type string `json:"type"`
	*JoinResult
}

type ActionConfirmed struct {
	Type string `json:"type"`
	*ActionResult
}

type GameExited struct {
	Type string `json:"type"`
	*ExitResult
}

type StateRequest struct {
	PlayerID int64           `json:"player_id"`
	State    json.RawMessage `json:"state"`
}

type StateUpdated struct {
	Type      string          `json:"type"`
	AttemptID int64           `json:"game_attempt_id"`
	State     json.RawMessage `json:"state,omitempty"`
	Timestamp string          `json:"timestamp"`
}

// ChatRequest: текст в message или, в старом формате клиента, в chat_data.message.
type ChatRequest struct {
	PlayerID int64  `json:"player_id"`
	Message  string `json:"message"`
	ChatData *struct {
		Message string `json:"message"`
	} `json:"chat_data,omitempty"`
}

func (r ChatRequest) Text() string {
	if r.Message == "" && r.ChatData != nil {
		return r.ChatData.Message
	}
	return r.Message
}

type ChatMessage struct {
	Type      string `json:"type"`
	PlayerID  int64  `json:"player_id"`
	Username  string `json:"username"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

type Pong struct {
	Type      string `json:"type"`
	Timestamp string `json:"timestamp"`
}

type Balance struct {
	Type string `json:"type"`
	*economy.BalanceView
}

// ErrorEvent — ответ на неуспешное сообщение. Kind — из common.ErrorKind.
type ErrorEvent struct {
	Type    string `json:"type"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}
