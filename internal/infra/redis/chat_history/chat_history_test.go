package infra_redis_chat_history

import (
	"context"
	"fmt"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis"
	"github.com/humanbelnik/scribble-relay/internal/model"
	"github.com/ozontech/allure-go/pkg/framework/provider"
	"github.com/ozontech/allure-go/pkg/framework/suite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type ChatHistoryInfraSuite struct {
	suite.Suite
}

type resources struct {
	server *miniredis.Miniredis
	driver *Driver
	ctx    context.Context
}

func initResources(t provider.T) *resources {
	server, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(server.Close)

	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return &resources{
		server: server,
		driver: New(client, model.ChatHistoryLimit),
		ctx:    context.Background(),
	}
}

func message(i int) model.ChatMessage {
	return model.ChatMessage{
		ID:        fmt.Sprintf("m%d", i),
		UserID:    "u1",
		Username:  "alice",
		Message:   fmt.Sprintf("line %d", i),
		Timestamp: int64(i),
		Type:      model.MessageTypeMessage,
	}
}

func (s *ChatHistoryInfraSuite) TestHistoryOrder(t provider.T) {
	t.Parallel()
	r := initResources(t)
	room := model.RoomCode("ABCD")

	for i := range 3 {
		require.NoError(t, r.driver.Append(r.ctx, room, message(i)))
	}

	history, err := r.driver.History(r.ctx, room)

	require.NoError(t, err)
	require.Len(t, history, 3)
	for i, msg := range history {
		assert.Equal(t, fmt.Sprintf("m%d", i), msg.ID)
	}
	stored, err := r.server.List(Key(room))
	require.NoError(t, err)
	assert.Contains(t, stored[0], `"id":"m2"`, "newest entry is stored at the head")
}

func (s *ChatHistoryInfraSuite) TestHistoryIsCapped(t provider.T) {
	t.Parallel()
	r := initResources(t)
	room := model.RoomCode("CAP1")
	const total = 150

	for i := range total {
		require.NoError(t, r.driver.Append(r.ctx, room, message(i)))
	}

	history, err := r.driver.History(r.ctx, room)

	require.NoError(t, err)
	require.Len(t, history, model.ChatHistoryLimit)
	assert.Equal(t, "m50", history[0].ID)
	assert.Equal(t, "m149", history[len(history)-1].ID)
	for i := 1; i < len(history); i++ {
		assert.Less(t, history[i-1].Timestamp, history[i].Timestamp)
	}
}

func (s *ChatHistoryInfraSuite) TestUnknownRoom(t provider.T) {
	t.Parallel()
	r := initResources(t)

	history, err := r.driver.History(r.ctx, model.RoomCode("NONE"))

	assert.NoError(t, err)
	assert.NotNil(t, history)
	assert.Empty(t, history)
}

func (s *ChatHistoryInfraSuite) TestSkipsUndecodableEntries(t provider.T) {
	t.Parallel()
	r := initResources(t)
	room := model.RoomCode("BAD1")

	require.NoError(t, r.driver.Append(r.ctx, room, message(1)))
	_, err := r.server.Lpush(Key(room), "{not json")
	require.NoError(t, err)
	require.NoError(t, r.driver.Append(r.ctx, room, message(2)))

	history, err := r.driver.History(r.ctx, room)

	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "m1", history[0].ID)
	assert.Equal(t, "m2", history[1].ID)
}

func TestInfraSuite(t *testing.T) {
	suite.RunSuite(t, new(ChatHistoryInfraSuite))
}
