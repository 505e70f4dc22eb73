package model

import "strings"

type GamePhase string

const (
	PhaseWaiting  GamePhase = "waiting"
	PhaseChoosing GamePhase = "choosing"
	PhaseDrawing  GamePhase = "drawing"
	PhaseRoundEnd GamePhase = "round-end"
	PhaseGameEnd  GamePhase = "game-end"
)

// GameSnapshot is written by the game authority. The relay only reads it.
type GameSnapshot struct {
	GameStarted   bool      `json:"gameStarted"`
	GamePhase     GamePhase `json:"gamePhase"`
	CurrentDrawer string    `json:"currentDrawer"`
	CurrentWord   *string   `json:"currentWord"`
}

func (s GameSnapshot) IsActive() bool {
	return s.GameStarted && s.GamePhase == PhaseDrawing
}

// Word returns the current word, or "" when none is set.
func (s GameSnapshot) Word() string {
	if s.CurrentWord == nil {
		return ""
	}
	return *s.CurrentWord
}

// IsCorrectGuess reports whether text from userID scores against this snapshot.
// Matching is exact after trimming and lowercasing.
func (s GameSnapshot) IsCorrectGuess(userID, text string) bool {
	if !s.IsActive() || userID == s.CurrentDrawer {
		return false
	}
	word := strings.ToLower(strings.TrimSpace(s.Word()))
	if word == "" {
		return false
	}
	return strings.ToLower(strings.TrimSpace(text)) == word
}
