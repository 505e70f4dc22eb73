package service_event_bridge

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/humanbelnik/scribble-relay/internal/model"
)

var (
	ErrMalformedEnvelope = errors.New("malformed game event")
	ErrUnknownEventType  = errors.New("unknown game event type")
)

// GameEvent is the closed set of lifecycle events the relay understands.
type GameEvent interface {
	Room() model.RoomCode
	gameEvent()
}

type roomScoped struct {
	RoomCode model.RoomCode
}

func (r roomScoped) Room() model.RoomCode { return r.RoomCode }
func (roomScoped) gameEvent()             {}

type GameStarted struct{ roomScoped }

type GameEnded struct{ roomScoped }

type CorrectGuess struct {
	roomScoped
	Message string
}

type NewRound struct {
	roomScoped
	Round int
}

type GameRestarted struct {
	roomScoped
	Message string
}

// DecodeGameEvent parses a broker payload into one of the GameEvent variants.
func DecodeGameEvent(body []byte) (GameEvent, error) {
	var env model.GameEventEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedEnvelope, err)
	}
	if env.RoomCode == model.EmptyRoomCode {
		return nil, fmt.Errorf("%w: missing roomCode", ErrMalformedEnvelope)
	}
	scope := roomScoped{RoomCode: env.RoomCode}

	switch env.Type {
	case model.EventGameStarted:
		return GameStarted{scope}, nil
	case model.EventGameEnded:
		return GameEnded{scope}, nil
	case model.EventCorrectGuess:
		var data struct {
			Message string `json:"message"`
		}
		if err := decodeData(env.Data, &data); err != nil {
			return nil, err
		}
		return CorrectGuess{roomScoped: scope, Message: data.Message}, nil
	case model.EventNewRound:
		var data struct {
			Round int `json:"round"`
		}
		if err := decodeData(env.Data, &data); err != nil {
			return nil, err
		}
		return NewRound{roomScoped: scope, Round: data.Round}, nil
	case model.EventGameRestarted:
		var data struct {
			Message string `json:"message"`
		}
		if err := decodeData(env.Data, &data); err != nil {
			return nil, err
		}
		return GameRestarted{roomScoped: scope, Message: data.Message}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEventType, env.Type)
	}
}

func decodeData(raw json.RawMessage, dst any) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("%w: data: %w", ErrMalformedEnvelope, err)
	}
	return nil
}
