package storage_room_state

import (
	"context"
	"errors"

	"github.com/humanbelnik/scribble-relay/internal/model"
)

var (
	ErrAppend     = errors.New("failed to append chat message")
	ErrHistory    = errors.New("failed to load chat history")
	ErrMembership = errors.New("failed to update membership")
)

//go:generate mockery --name=ChatHistory --output=./mocks --filename=chat_history.go
type ChatHistory interface {
	Append(ctx context.Context, roomCode model.RoomCode, msg model.ChatMessage) error
	History(ctx context.Context, roomCode model.RoomCode) ([]model.ChatMessage, error)
}

//go:generate mockery --name=Members --output=./mocks --filename=members.go
type Members interface {
	Add(ctx context.Context, roomCode model.RoomCode, userID string, info model.MemberInfo) error
	Remove(ctx context.Context, roomCode model.RoomCode, userID string) error
	All(ctx context.Context, roomCode model.RoomCode) (map[string]model.MemberInfo, error)
}

type GameState interface {
	Snapshot(ctx context.Context, roomCode model.RoomCode) (model.GameSnapshot, bool)
}

// Storage is the room-scoped view over the shared cache. Every call is
// independently atomic; nothing here spans keys.
type Storage struct {
	history   ChatHistory
	members   Members
	gameState GameState
}

func New(
	history ChatHistory,
	members Members,
	gameState GameState,
) *Storage {
	return &Storage{
		history:   history,
		members:   members,
		gameState: gameState,
	}
}

func (s *Storage) AppendChatMessage(ctx context.Context, roomCode model.RoomCode, msg model.ChatMessage) error {
	if err := s.history.Append(ctx, roomCode, msg); err != nil {
		return errors.Join(ErrAppend, err)
	}
	return nil
}

func (s *Storage) GetChatHistory(ctx context.Context, roomCode model.RoomCode) ([]model.ChatMessage, error) {
	messages, err := s.history.History(ctx, roomCode)
	if err != nil {
		return nil, errors.Join(ErrHistory, err)
	}
	if messages == nil {
		messages = []model.ChatMessage{}
	}
	return messages, nil
}

func (s *Storage) AddMember(ctx context.Context, roomCode model.RoomCode, userID string, info model.MemberInfo) error {
	if err := s.members.Add(ctx, roomCode, userID, info); err != nil {
		return errors.Join(ErrMembership, err)
	}
	return nil
}

func (s *Storage) RemoveMember(ctx context.Context, roomCode model.RoomCode, userID string) error {
	if err := s.members.Remove(ctx, roomCode, userID); err != nil {
		return errors.Join(ErrMembership, err)
	}
	return nil
}

func (s *Storage) GetMembers(ctx context.Context, roomCode model.RoomCode) (map[string]model.MemberInfo, error) {
	members, err := s.members.All(ctx, roomCode)
	if err != nil {
		return nil, errors.Join(ErrMembership, err)
	}
	return members, nil
}

// ReadGameSnapshot never fails: absence means no active game.
func (s *Storage) ReadGameSnapshot(ctx context.Context, roomCode model.RoomCode) (model.GameSnapshot, bool) {
	if s.gameState == nil {
		return model.GameSnapshot{}, false
	}
	return s.gameState.Snapshot(ctx, roomCode)
}
