package infra_redis_game_state

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis"
	"github.com/humanbelnik/scribble-relay/internal/model"
	"github.com/ozontech/allure-go/pkg/framework/provider"
	"github.com/ozontech/allure-go/pkg/framework/suite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type GameStateInfraSuite struct {
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
		driver: New(client, "game:room"),
		ctx:    context.Background(),
	}
}

func (s *GameStateInfraSuite) TestSnapshot(t provider.T) {
	t.Parallel()

	testCases := []struct {
		name       string
		stored     string
		wantOK     bool
		wantActive bool
		wantWord   string
	}{
		{
			name:       "Should read active game",
			stored:     `{"gameStarted":true,"gamePhase":"drawing","currentDrawer":"u1","currentWord":"apple"}`,
			wantOK:     true,
			wantActive: true,
			wantWord:   "apple",
		},
		{
			name: "Should report missing key as no game",
		},
		{
			name:   "Should report malformed payload as no game",
			stored: `{"gameStarted":`,
		},
		{
			name:   "Should read idle game with null word",
			stored: `{"gameStarted":false,"gamePhase":"waiting","currentDrawer":"","currentWord":null}`,
			wantOK: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t provider.T) {
			t.Parallel()
			r := initResources(t)
			if tc.stored != "" {
				require.NoError(t, r.server.Set("game:room:ABCD:state", tc.stored))
			}

			snapshot, ok := r.driver.Snapshot(r.ctx, "ABCD")

			assert.Equal(t, tc.wantOK, ok)
			assert.Equal(t, tc.wantActive, snapshot.IsActive())
			assert.Equal(t, tc.wantWord, snapshot.Word())
		})
	}
}

func (s *GameStateInfraSuite) TestSnapshotUnreachable(t provider.T) {
	t.Parallel()
	r := initResources(t)
	r.server.Close()

	_, ok := r.driver.Snapshot(r.ctx, model.RoomCode("ABCD"))

	assert.False(t, ok)
}

func TestGameStateInfraSuite(t *testing.T) {
	suite.RunSuite(t, new(GameStateInfraSuite))
}
