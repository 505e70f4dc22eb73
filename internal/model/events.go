package model

// Real-time channel event names.
const (
	InJoinChatRoom  = "join-chat-room"
	InChatMessage   = "chat-message"
	InLeaveChatRoom = "leave-chat-room"

	OutChatHistory     = "chat-history"
	OutChatMessage     = "chat-message"
	OutUserJoinedChat  = "user-joined-chat"
	OutUserLeftChat    = "user-left-chat"
	OutGameModeChanged = "game-mode-changed"
	OutNewRound        = "new-round"
	OutGameRestarted   = "game-restarted"
	OutError           = "error"
)

type ChatHistoryPayload struct {
	Messages []ChatMessage `json:"messages"`
}

type UserPresencePayload struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
}

type GameModeChangedPayload struct {
	IsGameStarted bool   `json:"isGameStarted"`
	Message       string `json:"message"`
}

type NewRoundPayload struct {
	Round   int    `json:"round"`
	Message string `json:"message"`
}

type GameRestartedPayload struct {
	Message string `json:"message"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}
