package service_event_bridge

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/humanbelnik/scribble-relay/internal/infra/amqp/amqptest"
	"github.com/humanbelnik/scribble-relay/internal/model"
	"github.com/ozontech/allure-go/pkg/framework/provider"
	"github.com/ozontech/allure-go/pkg/framework/suite"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type emission struct {
	room    model.RoomCode
	event   string
	payload any
}

type recordingBroadcaster struct {
	mu    sync.Mutex
	emits []emission
}

func (r *recordingBroadcaster) Emit(roomCode model.RoomCode, event string, payload any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.emits = append(r.emits, emission{room: roomCode, event: event, payload: payload})
}

func (r *recordingBroadcaster) all() []emission {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]emission(nil), r.emits...)
}

type EventBridgeUnitSuite struct {
	suite.Suite
}

type resources struct {
	ch          *amqptest.Channel
	broadcaster *recordingBroadcaster
	bridge      *Bridge
}

func initResources(timeout time.Duration) *resources {
	ch := amqptest.NewChannel()
	broadcaster := &recordingBroadcaster{}
	return &resources{
		ch:          ch,
		broadcaster: broadcaster,
		bridge:      New(ch, broadcaster, WithRPCTimeout(timeout)),
	}
}

func envelope(t provider.T, eventType model.GameEventType, room string, data any) []byte {
	env := map[string]any{"type": eventType, "roomCode": room}
	if data != nil {
		env["data"] = data
	}
	raw, err := json.Marshal(env)
	require.NoError(t, err)
	return raw
}

func (s *EventBridgeUnitSuite) TestDispatch(t provider.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		body    func(t provider.T) []byte
		event   string
		payload any
	}{
		{
			name:    "game started switches to guess mode",
			body:    func(t provider.T) []byte { return envelope(t, model.EventGameStarted, "ABCD", nil) },
			event:   model.OutGameModeChanged,
			payload: model.GameModeChangedPayload{IsGameStarted: true, Message: msgGameStarted},
		},
		{
			name:    "game ended switches back",
			body:    func(t provider.T) []byte { return envelope(t, model.EventGameEnded, "ABCD", nil) },
			event:   model.OutGameModeChanged,
			payload: model.GameModeChangedPayload{IsGameStarted: false, Message: msgGameEnded},
		},
		{
			name:    "new round carries the round number",
			body:    func(t provider.T) []byte { return envelope(t, model.EventNewRound, "ABCD", map[string]int{"round": 3}) },
			event:   model.OutNewRound,
			payload: model.NewRoundPayload{Round: 3, Message: msgNewRound},
		},
		{
			name: "restart uses the provided message",
			body: func(t provider.T) []byte {
				return envelope(t, model.EventGameRestarted, "ABCD", map[string]string{"message": "again!"})
			},
			event:   model.OutGameRestarted,
			payload: model.GameRestartedPayload{Message: "again!"},
		},
		{
			name:    "restart falls back to the default message",
			body:    func(t provider.T) []byte { return envelope(t, model.EventGameRestarted, "ABCD", nil) },
			event:   model.OutGameRestarted,
			payload: model.GameRestartedPayload{Message: msgGameRestarted},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t provider.T) {
			t.Parallel()
			r := initResources(time.Second)

			event, err := DecodeGameEvent(tc.body(t))
			require.NoError(t, err)
			r.bridge.Dispatch(event)

			emits := r.broadcaster.all()
			require.Len(t, emits, 1)
			assert.Equal(t, model.RoomCode("ABCD"), emits[0].room)
			assert.Equal(t, tc.event, emits[0].event)
			assert.Equal(t, tc.payload, emits[0].payload)
		})
	}
}

func (s *EventBridgeUnitSuite) TestDispatchCorrectGuess(t provider.T) {
	t.Parallel()

	t.Run("Should relay a system chat line", func(t provider.T) {
		r := initResources(time.Second)
		event, err := DecodeGameEvent(envelope(t, model.EventCorrectGuess, "ABCD", map[string]string{"message": "bob got it"}))
		require.NoError(t, err)

		r.bridge.Dispatch(event)

		emits := r.broadcaster.all()
		require.Len(t, emits, 1)
		assert.Equal(t, model.OutChatMessage, emits[0].event)
		msg, ok := emits[0].payload.(model.ChatMessage)
		require.True(t, ok)
		assert.Equal(t, "bob got it", msg.Message)
		assert.Equal(t, model.SystemUserID, msg.UserID)
		assert.Equal(t, model.MessageTypeCorrectGuess, msg.Type)
	})

	t.Run("Should stay silent without a message", func(t provider.T) {
		r := initResources(time.Second)
		event, err := DecodeGameEvent(envelope(t, model.EventCorrectGuess, "ABCD", nil))
		require.NoError(t, err)

		r.bridge.Dispatch(event)

		assert.Empty(t, r.broadcaster.all())
	})
}

func (s *EventBridgeUnitSuite) TestDecodeRejects(t provider.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		body     string
		expected error
	}{
		{name: "not json", body: "{oops", expected: ErrMalformedEnvelope},
		{name: "missing room", body: `{"type":"game-started"}`, expected: ErrMalformedEnvelope},
		{name: "bad round", body: `{"type":"new-round","roomCode":"A","data":{"round":"three"}}`, expected: ErrMalformedEnvelope},
		{name: "unknown type", body: `{"type":"player-kicked","roomCode":"A"}`, expected: ErrUnknownEventType},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t provider.T) {
			t.Parallel()
			event, err := DecodeGameEvent([]byte(tc.body))

			assert.Nil(t, event)
			assert.ErrorIs(t, err, tc.expected)
		})
	}
}

func (s *EventBridgeUnitSuite) TestRunAcksEverything(t provider.T) {
	t.Parallel()
	r := initResources(time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- r.bridge.Run(ctx) }()

	queue := r.bridge.topology.EventsQueue
	require.Eventually(t, func() bool { return r.ch.ActiveConsumers() == 1 }, time.Second, 5*time.Millisecond)

	require.True(t, r.ch.Deliver(queue, amqp.Publishing{Body: []byte("{garbage")}))
	require.True(t, r.ch.Deliver(queue, amqp.Publishing{Body: envelope(t, "player-kicked", "ABCD", nil)}))
	require.True(t, r.ch.Deliver(queue, amqp.Publishing{Body: envelope(t, model.EventNewRound, "ABCD", map[string]int{"round": 3})}))

	require.Eventually(t, func() bool { return len(r.ch.AckedTags()) == 3 }, time.Second, 5*time.Millisecond)
	assert.Empty(t, r.ch.NackedTags())

	emits := r.broadcaster.all()
	require.Len(t, emits, 1)
	assert.Equal(t, model.OutNewRound, emits[0].event)
	for _, e := range emits {
		assert.NotEqual(t, model.OutChatMessage, e.event)
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Errorf("Run did not stop after cancel")
	}
}

func (s *EventBridgeUnitSuite) TestRunStopsWhenDeliveriesClose(t provider.T) {
	t.Parallel()
	r := initResources(time.Second)

	done := make(chan error, 1)
	go func() { done <- r.bridge.Run(context.Background()) }()
	require.Eventually(t, func() bool { return r.ch.ActiveConsumers() == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, r.ch.Close())

	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrDeliveriesClosed)
	case <-time.After(time.Second):
		t.Errorf("Run did not return after channel close")
	}
}

func (s *EventBridgeUnitSuite) TestRunConsumeError(t provider.T) {
	t.Parallel()
	r := initResources(time.Second)
	r.ch.ConsumeErr = errors.New("channel closed")

	assert.ErrorIs(t, r.bridge.Run(context.Background()), ErrConsume)
}

func TestUnitSuite(t *testing.T) {
	suite.RunSuite(t, new(EventBridgeUnitSuite))
}
