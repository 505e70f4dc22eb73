package ws_room

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/humanbelnik/scribble-relay/internal/model"
)

const (
	errMsgJoinRequired = "Room code and user ID are required"
	errMsgBadPayload   = "Malformed event payload"
	errMsgUnknownEvent = "Unknown event"

	msgGameInProgress = "A game is in progress! Chat is in guess mode."
)

var ErrJoinValidation = errors.New("roomCode and userId are required")

type RoomStateStore interface {
	AppendChatMessage(ctx context.Context, roomCode model.RoomCode, msg model.ChatMessage) error
	GetChatHistory(ctx context.Context, roomCode model.RoomCode) ([]model.ChatMessage, error)
	AddMember(ctx context.Context, roomCode model.RoomCode, userID string, info model.MemberInfo) error
	RemoveMember(ctx context.Context, roomCode model.RoomCode, userID string) error
	ReadGameSnapshot(ctx context.Context, roomCode model.RoomCode) (model.GameSnapshot, bool)
}

// GameService is the game authority as seen from the chat path. Neither call
// may block or fail the relay.
type GameService interface {
	GameState(ctx context.Context, roomCode model.RoomCode) model.GameServiceReply
	NotifyDetached(action string, data any) <-chan error
}

type JoinRequest struct {
	RoomCode model.RoomCode `json:"roomCode"`
	UserID   string         `json:"userId"`
	Username string         `json:"username"`
}

type chatMessageRequest struct {
	Message string `json:"message"`
}

type correctGuessNotice struct {
	RoomCode model.RoomCode `json:"roomCode"`
	UserID   string         `json:"userId"`
	Username string         `json:"username"`
	Word     string         `json:"word"`
}

type Relay struct {
	hub   *Hub
	store RoomStateStore
	game  GameService

	logger *slog.Logger
}

type RelayOption func(*Relay)

func WithLogger(logger *slog.Logger) RelayOption {
	return func(r *Relay) {
		r.logger = logger
	}
}

// WithGameService enables authority lookups on join and correct-guess
// notifications.
func WithGameService(game GameService) RelayOption {
	return func(r *Relay) {
		r.game = game
	}
}

func NewRelay(hub *Hub, store RoomStateStore, opts ...RelayOption) *Relay {
	r := &Relay{
		hub:    hub,
		store:  store,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Handle decodes one inbound frame and runs the matching transition.
func (r *Relay) Handle(ctx context.Context, c *Client, raw []byte) {
	var in inboundEvent
	if err := json.Unmarshal(raw, &in); err != nil {
		c.emit(model.OutError, model.ErrorPayload{Message: errMsgBadPayload})
		return
	}

	switch in.Type {
	case model.InJoinChatRoom:
		var req JoinRequest
		if err := decodePayload(in.Payload, &req); err != nil {
			c.emit(model.OutError, model.ErrorPayload{Message: errMsgBadPayload})
			return
		}
		if err := r.Join(ctx, c, req); err != nil {
			r.logger.Debug("join rejected",
				slog.String("connection_id", c.id),
				slog.String("error", err.Error()),
			)
		}
	case model.InChatMessage:
		var req chatMessageRequest
		if err := decodePayload(in.Payload, &req); err != nil {
			c.emit(model.OutError, model.ErrorPayload{Message: errMsgBadPayload})
			return
		}
		r.Message(ctx, c, req.Message)
	case model.InLeaveChatRoom:
		r.Leave(ctx, c)
	default:
		c.emit(model.OutError, model.ErrorPayload{Message: errMsgUnknownEvent})
	}
}

func decodePayload(raw json.RawMessage, dst any) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, dst)
}

func (r *Relay) Join(ctx context.Context, c *Client, req JoinRequest) error {
	if req.RoomCode == model.EmptyRoomCode || req.UserID == "" {
		c.emit(model.OutError, model.ErrorPayload{Message: errMsgJoinRequired})
		return ErrJoinValidation
	}

	if current := c.membership(); current.roomCode != model.EmptyRoomCode {
		r.leave(ctx, c)
	}

	c.setMembership(membership{
		roomCode: req.RoomCode,
		userID:   req.UserID,
		username: req.Username,
	})

	if err := r.store.AddMember(ctx, req.RoomCode, req.UserID, model.MemberInfo{
		Username:     req.Username,
		ConnectionID: c.id,
		JoinedAt:     time.Now().UnixMilli(),
	}); err != nil {
		r.logger.Error("failed to register member",
			slog.String("room", req.RoomCode.String()),
			slog.String("user_id", req.UserID),
			slog.String("error", err.Error()),
		)
	}

	// Live room events are held while history loads so the joiner gets the
	// history first and never a message twice.
	r.hub.SubscribeHeld(c, req.RoomCode)

	history, err := r.store.GetChatHistory(ctx, req.RoomCode)
	if err != nil {
		r.logger.Error("failed to load chat history",
			slog.String("room", req.RoomCode.String()),
			slog.String("error", err.Error()),
		)
		history = []model.ChatMessage{}
	}
	r.hub.Release(c,
		Event{Type: model.OutChatHistory, Payload: model.ChatHistoryPayload{Messages: history}},
		inHistory(history),
	)

	r.hub.EmitExcept(req.RoomCode, c, model.OutUserJoinedChat, model.UserPresencePayload{
		UserID:   req.UserID,
		Username: req.Username,
	})

	r.announceGameMode(ctx, c, req.RoomCode)

	r.logger.Info("user joined chat",
		slog.String("room", req.RoomCode.String()),
		slog.String("user_id", req.UserID),
	)
	return nil
}

// announceGameMode asks the authority in the background so a slow or absent
// game service never delays the join.
func (r *Relay) announceGameMode(ctx context.Context, c *Client, roomCode model.RoomCode) {
	if r.game == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)
	go func() {
		reply := r.game.GameState(ctx, roomCode)
		if !reply.IsGameActive || c.membership().roomCode != roomCode {
			return
		}
		c.emit(model.OutGameModeChanged, model.GameModeChangedPayload{
			IsGameStarted: true,
			Message:       msgGameInProgress,
		})
	}()
}

// inHistory matches chat messages already carried by history.
func inHistory(history []model.ChatMessage) func(Event) bool {
	ids := make(map[string]struct{}, len(history))
	for _, msg := range history {
		ids[msg.ID] = struct{}{}
	}
	return func(e Event) bool {
		if e.Type != model.OutChatMessage {
			return false
		}
		msg, ok := e.Payload.(model.ChatMessage)
		if !ok {
			return false
		}
		_, seen := ids[msg.ID]
		return seen
	}
}

func (r *Relay) Message(ctx context.Context, c *Client, text string) {
	m := c.membership()
	if m.roomCode == model.EmptyRoomCode || strings.TrimSpace(text) == "" {
		return
	}

	snapshot, _ := r.store.ReadGameSnapshot(ctx, m.roomCode)

	if snapshot.IsCorrectGuess(m.userID, text) {
		r.celebrate(ctx, m, snapshot.Word())
		return
	}

	msgType := model.MessageTypeMessage
	if snapshot.IsActive() {
		msgType = model.MessageTypeGuess
	}
	msg := model.NewChatMessage(m.userID, m.username, text, msgType)
	r.persist(ctx, m.roomCode, msg)
	r.hub.Emit(m.roomCode, model.OutChatMessage, msg)
}

// celebrate replaces the raw guess with a single system announcement.
func (r *Relay) celebrate(ctx context.Context, m membership, word string) {
	msg := model.NewSystemMessage(
		fmt.Sprintf("🎉 %s guessed the word \"%s\"!", m.username, word),
		model.MessageTypeCorrectGuess,
	)
	r.persist(ctx, m.roomCode, msg)
	r.hub.Emit(m.roomCode, model.OutChatMessage, msg)

	if r.game != nil {
		r.game.NotifyDetached(model.ActionCorrectGuess, correctGuessNotice{
			RoomCode: m.roomCode,
			UserID:   m.userID,
			Username: m.username,
			Word:     word,
		})
	}

	r.logger.Info("correct guess",
		slog.String("room", m.roomCode.String()),
		slog.String("user_id", m.userID),
	)
}

func (r *Relay) persist(ctx context.Context, roomCode model.RoomCode, msg model.ChatMessage) {
	if err := r.store.AppendChatMessage(ctx, roomCode, msg); err != nil {
		r.logger.Error("failed to persist chat message",
			slog.String("room", roomCode.String()),
			slog.String("error", err.Error()),
		)
	}
}

func (r *Relay) Leave(ctx context.Context, c *Client) {
	r.leave(ctx, c)
}

// Disconnect is the transport teardown path. Calling it after Leave, or
// twice, does nothing.
func (r *Relay) Disconnect(ctx context.Context, c *Client, reason string) {
	if r.leave(ctx, c) {
		r.logger.Info("client disconnected",
			slog.String("connection_id", c.id),
			slog.String("reason", reason),
		)
	}
}

func (r *Relay) leave(ctx context.Context, c *Client) bool {
	m := c.clearMembership()
	if m.roomCode == model.EmptyRoomCode {
		return false
	}

	if err := r.store.RemoveMember(ctx, m.roomCode, m.userID); err != nil {
		r.logger.Error("failed to remove member",
			slog.String("room", m.roomCode.String()),
			slog.String("user_id", m.userID),
			slog.String("error", err.Error()),
		)
	}

	r.hub.EmitExcept(m.roomCode, c, model.OutUserLeftChat, model.UserPresencePayload{
		UserID:   m.userID,
		Username: m.username,
	})
	r.hub.Unsubscribe(c, m.roomCode)
	return true
}
