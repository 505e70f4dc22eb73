package model

import "encoding/json"

type GameEventType string

const (
	EventGameStarted   GameEventType = "game-started"
	EventGameEnded     GameEventType = "game-ended"
	EventCorrectGuess  GameEventType = "correct-guess"
	EventNewRound      GameEventType = "new-round"
	EventGameRestarted GameEventType = "game-restarted"
)

// GameEventEnvelope is delivered on the lifecycle topic.
type GameEventEnvelope struct {
	Type     GameEventType   `json:"type"`
	RoomCode RoomCode        `json:"roomCode"`
	Data     json.RawMessage `json:"data,omitempty"`
}

// Actions understood by the game authority on the request exchange.
const (
	ActionGetGameState = "get-game-state"
	ActionCorrectGuess = "correct-guess"
)

type RequestEnvelope struct {
	ID        string `json:"id"`
	Action    string `json:"action"`
	Data      any    `json:"data"`
	ReplyTo   string `json:"replyTo,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

type ResponseEnvelope struct {
	RequestID string          `json:"requestId"`
	Data      json.RawMessage `json:"data"`
}

// GameServiceReply is the common shape of game authority answers.
type GameServiceReply struct {
	IsGameActive bool `json:"isGameActive"`
	IsCorrect    bool `json:"isCorrect"`
}

// DefaultGameServiceReply is used whenever the authority cannot be reached in time.
var DefaultGameServiceReply = GameServiceReply{}

func DefaultGameServiceReplyJSON() json.RawMessage {
	return json.RawMessage(`{"isGameActive":false,"isCorrect":false}`)
}
