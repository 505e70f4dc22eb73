package infra_redis_game_state

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/go-redis/redis"
	"github.com/humanbelnik/scribble-relay/internal/model"
)

// Driver reads the snapshot the game authority writes per room.
type Driver struct {
	client *redis.Client
	key    string

	logger *slog.Logger
}

type DriverOption func(*Driver)

func WithLogger(logger *slog.Logger) DriverOption {
	return func(d *Driver) {
		d.logger = logger
	}
}

// New expects key to be a namespace such as "game:room"; the full key is
// <key>:<roomCode>:state.
func New(
	client *redis.Client,
	key string,
	opts ...DriverOption,
) *Driver {
	d := &Driver{
		client: client,
		key:    key,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Snapshot returns false for a missing key, a read error or a bad payload.
func (d *Driver) Snapshot(ctx context.Context, roomCode model.RoomCode) (model.GameSnapshot, bool) {
	val, err := d.client.WithContext(ctx).Get(d.getFullKey(roomCode)).Result()
	if err != nil {
		if err != redis.Nil {
			d.logger.Warn("failed to read game state",
				slog.String("room", roomCode.String()),
				slog.String("error", err.Error()),
			)
		}
		return model.GameSnapshot{}, false
	}

	var snapshot model.GameSnapshot
	if err := json.Unmarshal([]byte(val), &snapshot); err != nil {
		d.logger.Warn("malformed game state",
			slog.String("room", roomCode.String()),
			slog.String("error", err.Error()),
		)
		return model.GameSnapshot{}, false
	}
	return snapshot, true
}

func (d *Driver) getFullKey(roomCode model.RoomCode) string {
	if d.key != "" {
		return fmt.Sprintf("%s:%s:state", d.key, roomCode)
	}
	return fmt.Sprintf("%s:state", roomCode)
}
