package service_event_bridge

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/humanbelnik/scribble-relay/internal/model"
	amqp "github.com/rabbitmq/amqp091-go"
)

const notifyTimeout = 5 * time.Second

var (
	ErrRPCSetup       = errors.New("failed to set up reply channel")
	ErrRPCPublish     = errors.New("failed to publish request")
	ErrRPCTimeout     = errors.New("game service did not answer in time")
	ErrRPCReplyClosed = errors.New("reply channel closed")
	ErrNotifyPublish  = errors.New("failed to publish notification")
	ErrEncodeEnvelope = errors.New("failed to encode request")
)

// AskGameService publishes a request and waits for the reply carrying the
// same correlation id. It never fails: setup errors, publish errors and
// timeouts all resolve to the conservative default reply.
func (b *Bridge) AskGameService(ctx context.Context, action string, data any) json.RawMessage {
	reply, err := b.ask(ctx, action, data)
	if err != nil {
		b.logger.Warn("game service request fell back to default",
			slog.String("action", action),
			slog.String("error", err.Error()),
		)
		return model.DefaultGameServiceReplyJSON()
	}
	return reply
}

// GameState asks the authority whether a game is running in roomCode.
func (b *Bridge) GameState(ctx context.Context, roomCode model.RoomCode) model.GameServiceReply {
	raw := b.AskGameService(ctx, model.ActionGetGameState, map[string]string{"roomCode": roomCode.String()})

	var reply model.GameServiceReply
	if err := json.Unmarshal(raw, &reply); err != nil {
		return model.DefaultGameServiceReply
	}
	return reply
}

func (b *Bridge) ask(ctx context.Context, action string, data any) (json.RawMessage, error) {
	id := uuid.NewString()
	tag := "rpc-" + id

	q, err := b.ch.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		return nil, errors.Join(ErrRPCSetup, err)
	}
	consuming := false
	defer func() {
		if consuming {
			_ = b.ch.Cancel(tag, false)
		}
		if _, err := b.ch.QueueDelete(q.Name, false, false, false); err != nil {
			b.logger.Debug("reply queue already gone", slog.String("queue", q.Name))
		}
	}()

	if err := b.ch.QueueBind(q.Name, id, b.topology.ResponseExchange, false, nil); err != nil {
		return nil, errors.Join(ErrRPCSetup, err)
	}
	replies, err := b.ch.Consume(q.Name, tag, false, true, false, false, nil)
	if err != nil {
		return nil, errors.Join(ErrRPCSetup, err)
	}
	consuming = true

	body, err := json.Marshal(model.RequestEnvelope{
		ID:        id,
		Action:    action,
		Data:      data,
		ReplyTo:   id,
		Timestamp: time.Now().UnixMilli(),
	})
	if err != nil {
		return nil, errors.Join(ErrEncodeEnvelope, err)
	}

	timer := time.NewTimer(b.rpcTimeout)
	defer timer.Stop()

	if err := b.ch.PublishWithContext(ctx, b.topology.RequestExchange, b.topology.RequestRoutingKey, false, false, amqp.Publishing{
		ContentType:   "application/json",
		CorrelationId: id,
		ReplyTo:       id,
		Timestamp:     time.Now(),
		Body:          body,
	}); err != nil {
		return nil, errors.Join(ErrRPCPublish, err)
	}

	for {
		select {
		case <-timer.C:
			return nil, ErrRPCTimeout
		case <-ctx.Done():
			return nil, ctx.Err()
		case d, ok := <-replies:
			if !ok {
				return nil, ErrRPCReplyClosed
			}
			var resp model.ResponseEnvelope
			if err := json.Unmarshal(d.Body, &resp); err != nil || resp.RequestID != id {
				_ = d.Nack(false, false)
				b.logger.Warn("discarding unrelated reply",
					slog.String("request_id", id),
					slog.String("got", resp.RequestID),
				)
				continue
			}
			_ = d.Ack(false)
			if len(resp.Data) == 0 {
				return model.DefaultGameServiceReplyJSON(), nil
			}
			return resp.Data, nil
		}
	}
}

// Notify publishes a request nobody waits an answer for.
func (b *Bridge) Notify(ctx context.Context, action string, data any) error {
	body, err := json.Marshal(model.RequestEnvelope{
		ID:        uuid.NewString(),
		Action:    action,
		Data:      data,
		Timestamp: time.Now().UnixMilli(),
	})
	if err != nil {
		return errors.Join(ErrEncodeEnvelope, err)
	}

	if err := b.ch.PublishWithContext(ctx, b.topology.RequestExchange, b.topology.RequestRoutingKey, false, false, amqp.Publishing{
		ContentType: "application/json",
		Timestamp:   time.Now(),
		Body:        body,
	}); err != nil {
		return errors.Join(ErrNotifyPublish, err)
	}
	return nil
}

// NotifyDetached runs Notify in its own goroutine with its own deadline.
// Failures are logged here; the returned channel yields the outcome once
// for callers that care.
func (b *Bridge) NotifyDetached(action string, data any) <-chan error {
	done := make(chan error, 1)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()

		err := b.Notify(ctx, action, data)
		if err != nil {
			b.logger.Error("game service notification failed",
				slog.String("action", action),
				slog.String("error", err.Error()),
			)
		}
		done <- err
		close(done)
	}()
	return done
}
