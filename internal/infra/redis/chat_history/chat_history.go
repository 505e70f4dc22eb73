package infra_redis_chat_history

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/go-redis/redis"
	"github.com/humanbelnik/scribble-relay/internal/model"
)

// Driver keeps a bounded per-room list, newest message at the head.
type Driver struct {
	client *redis.Client
	limit  int64

	logger *slog.Logger
}

type DriverOption func(*Driver)

func WithLogger(logger *slog.Logger) DriverOption {
	return func(d *Driver) {
		d.logger = logger
	}
}

func New(
	client *redis.Client,
	limit int,
	opts ...DriverOption,
) *Driver {
	if limit <= 0 {
		limit = model.ChatHistoryLimit
	}
	d := &Driver{
		client: client,
		limit:  int64(limit),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func Key(roomCode model.RoomCode) string {
	return fmt.Sprintf("chat:room:%s:messages", roomCode)
}

// Append pushes msg to the head and trims the list to the limit.
// Both commands go in one round trip; LTRIM is idempotent so interleaving
// with other relays cannot break the cap.
func (d *Driver) Append(ctx context.Context, roomCode model.RoomCode, msg model.ChatMessage) error {
	raw, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	key := Key(roomCode)
	_, err = d.client.WithContext(ctx).Pipelined(func(pipe redis.Pipeliner) error {
		pipe.LPush(key, raw)
		pipe.LTrim(key, 0, d.limit-1)
		return nil
	})
	return err
}

// History returns stored messages oldest first.
func (d *Driver) History(ctx context.Context, roomCode model.RoomCode) ([]model.ChatMessage, error) {
	items, err := d.client.WithContext(ctx).LRange(Key(roomCode), 0, d.limit-1).Result()
	if err == redis.Nil {
		return []model.ChatMessage{}, nil
	}
	if err != nil {
		return nil, err
	}

	messages := make([]model.ChatMessage, 0, len(items))
	for i := len(items) - 1; i >= 0; i-- {
		var msg model.ChatMessage
		if err := json.Unmarshal([]byte(items[i]), &msg); err != nil {
			d.logger.Warn("skipping undecodable chat message",
				slog.String("room", roomCode.String()),
				slog.String("error", err.Error()),
			)
			continue
		}
		messages = append(messages, msg)
	}
	return messages, nil
}
