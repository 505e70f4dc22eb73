package infra_redis_room_members

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis"
	"github.com/humanbelnik/scribble-relay/internal/model"
)

type Driver struct {
	client *redis.Client
}

func New(client *redis.Client) *Driver {
	return &Driver{
		client: client,
	}
}

func Key(roomCode model.RoomCode) string {
	return fmt.Sprintf("chat:room:%s:users", roomCode)
}

// Add upserts the member entry. A rejoin overwrites the previous one.
func (d *Driver) Add(ctx context.Context, roomCode model.RoomCode, userID string, info model.MemberInfo) error {
	raw, err := json.Marshal(info)
	if err != nil {
		return err
	}
	return d.client.WithContext(ctx).HSet(Key(roomCode), userID, raw).Err()
}

func (d *Driver) Remove(ctx context.Context, roomCode model.RoomCode, userID string) error {
	return d.client.WithContext(ctx).HDel(Key(roomCode), userID).Err()
}

func (d *Driver) All(ctx context.Context, roomCode model.RoomCode) (map[string]model.MemberInfo, error) {
	raw, err := d.client.WithContext(ctx).HGetAll(Key(roomCode)).Result()
	if err != nil && err != redis.Nil {
		return nil, err
	}

	members := make(map[string]model.MemberInfo, len(raw))
	for userID, v := range raw {
		var info model.MemberInfo
		if err := json.Unmarshal([]byte(v), &info); err != nil {
			// Entries written by older clients may be a bare username.
			info = model.MemberInfo{Username: v}
		}
		members[userID] = info
	}
	return members, nil
}
