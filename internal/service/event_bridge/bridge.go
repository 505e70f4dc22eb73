package service_event_bridge

import (
	"context"
	"errors"
	"log/slog"
	"time"

	infra_amqp "github.com/humanbelnik/scribble-relay/internal/infra/amqp"
	"github.com/humanbelnik/scribble-relay/internal/model"
	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	msgGameStarted   = "Game started! Chat is now in guess mode."
	msgGameEnded     = "Game ended! Chat is back to normal mode."
	msgNewRound      = "New round started! Chat cleared."
	msgGameRestarted = "Game restarted! Chat cleared."

	defaultRPCTimeout = time.Second
	consumerTag       = "chat-relay-events"
)

var (
	ErrConsume          = errors.New("failed to consume game events")
	ErrDeliveriesClosed = errors.New("game event deliveries closed")
)

// RoomBroadcaster emits an event to every connection subscribed to a room.
type RoomBroadcaster interface {
	Emit(roomCode model.RoomCode, event string, payload any)
}

type Bridge struct {
	ch          infra_amqp.Channel
	topology    infra_amqp.Topology
	broadcaster RoomBroadcaster
	rpcTimeout  time.Duration

	logger *slog.Logger
}

type BridgeOption func(*Bridge)

func WithLogger(logger *slog.Logger) BridgeOption {
	return func(b *Bridge) {
		b.logger = logger
	}
}

func WithRPCTimeout(timeout time.Duration) BridgeOption {
	return func(b *Bridge) {
		if timeout > 0 {
			b.rpcTimeout = timeout
		}
	}
}

func WithTopology(topology infra_amqp.Topology) BridgeOption {
	return func(b *Bridge) {
		b.topology = topology
	}
}

func New(
	ch infra_amqp.Channel,
	broadcaster RoomBroadcaster,
	opts ...BridgeOption,
) *Bridge {
	b := &Bridge{
		ch:          ch,
		topology:    infra_amqp.DefaultTopology(),
		broadcaster: broadcaster,
		rpcTimeout:  defaultRPCTimeout,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Run consumes lifecycle events until ctx is done or the broker closes the
// delivery stream. Every delivery is acked, including ones that fail to decode.
func (b *Bridge) Run(ctx context.Context) error {
	deliveries, err := b.ch.Consume(b.topology.EventsQueue, consumerTag, false, false, false, false, nil)
	if err != nil {
		return errors.Join(ErrConsume, err)
	}
	b.logger.Info("consuming game events", slog.String("queue", b.topology.EventsQueue))

	for {
		select {
		case <-ctx.Done():
			_ = b.ch.Cancel(consumerTag, false)
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return ErrDeliveriesClosed
			}
			b.handleDelivery(d)
		}
	}
}

func (b *Bridge) handleDelivery(d amqp.Delivery) {
	event, err := DecodeGameEvent(d.Body)
	switch {
	case errors.Is(err, ErrUnknownEventType):
		b.logger.Warn("ignoring game event",
			slog.String("routing_key", d.RoutingKey),
			slog.String("error", err.Error()),
		)
	case err != nil:
		b.logger.Error("dropping malformed game event",
			slog.String("routing_key", d.RoutingKey),
			slog.String("error", err.Error()),
		)
	default:
		b.Dispatch(event)
	}

	if err := d.Ack(false); err != nil {
		b.logger.Error("failed to ack game event", slog.String("error", err.Error()))
	}
}

// Dispatch turns a lifecycle event into a room-scoped broadcast.
func (b *Bridge) Dispatch(event GameEvent) {
	room := event.Room()

	switch e := event.(type) {
	case GameStarted:
		b.broadcaster.Emit(room, model.OutGameModeChanged, model.GameModeChangedPayload{
			IsGameStarted: true,
			Message:       msgGameStarted,
		})
	case GameEnded:
		b.broadcaster.Emit(room, model.OutGameModeChanged, model.GameModeChangedPayload{
			IsGameStarted: false,
			Message:       msgGameEnded,
		})
	case CorrectGuess:
		if e.Message == "" {
			return
		}
		b.broadcaster.Emit(room, model.OutChatMessage,
			model.NewSystemMessage(e.Message, model.MessageTypeCorrectGuess))
	case NewRound:
		b.broadcaster.Emit(room, model.OutNewRound, model.NewRoundPayload{
			Round:   e.Round,
			Message: msgNewRound,
		})
	case GameRestarted:
		msg := e.Message
		if msg == "" {
			msg = msgGameRestarted
		}
		b.broadcaster.Emit(room, model.OutGameRestarted, model.GameRestartedPayload{
			Message: msg,
		})
	default:
		b.logger.Warn("no handler for game event", slog.String("room", room.String()))
		return
	}

	b.logger.Debug("game event relayed", slog.String("room", room.String()))
}
