package model

import (
	"fmt"
	"time"

	nanoid "github.com/jaevor/go-nanoid"
)

type MessageType string

const (
	MessageTypeMessage      MessageType = "message"
	MessageTypeGuess        MessageType = "guess"
	MessageTypeCorrectGuess MessageType = "correct-guess"
	MessageTypeSystem       MessageType = "system"
)

const (
	SystemUserID   = "system"
	SystemUsername = "System"
)

// ChatHistoryLimit is the number of messages kept per room.
const ChatHistoryLimit = 100

type ChatMessage struct {
	ID        string      `json:"id"`
	UserID    string      `json:"userId"`
	Username  string      `json:"username"`
	Message   string      `json:"message"`
	Timestamp int64       `json:"timestamp"`
	Type      MessageType `json:"type"`
}

var idEntropy = func() func() string {
	gen, err := nanoid.Standard(10)
	if err != nil {
		panic(err)
	}
	return gen
}()

// NewChatMessage stamps a message with the current time and a fresh id.
func NewChatMessage(userID, username, text string, t MessageType) ChatMessage {
	now := time.Now().UnixMilli()
	return ChatMessage{
		ID:        fmt.Sprintf("%d-%s", now, idEntropy()),
		UserID:    userID,
		Username:  username,
		Message:   text,
		Timestamp: now,
		Type:      t,
	}
}

func NewSystemMessage(text string, t MessageType) ChatMessage {
	return NewChatMessage(SystemUserID, SystemUsername, text, t)
}
