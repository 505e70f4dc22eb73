package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/humanbelnik/scribble-relay/internal/config"
	http_init "github.com/humanbelnik/scribble-relay/internal/delivery/http/init"
	ws_room "github.com/humanbelnik/scribble-relay/internal/delivery/ws/room"
	infra_amqp "github.com/humanbelnik/scribble-relay/internal/infra/amqp"
	infra_amqp_supervisor "github.com/humanbelnik/scribble-relay/internal/infra/amqp/supervisor"
	infra_redis_chat_history "github.com/humanbelnik/scribble-relay/internal/infra/redis/chat_history"
	infra_redis_game_state "github.com/humanbelnik/scribble-relay/internal/infra/redis/game_state"
	infra_redis_init "github.com/humanbelnik/scribble-relay/internal/infra/redis/init"
	infra_redis_room_members "github.com/humanbelnik/scribble-relay/internal/infra/redis/room_members"
	"github.com/humanbelnik/scribble-relay/internal/model"
	service_event_bridge "github.com/humanbelnik/scribble-relay/internal/service/event_bridge"
	storage_room_state "github.com/humanbelnik/scribble-relay/internal/storage/room_state"
	"golang.org/x/sync/errgroup"
)

const gameStateNamespace = "game:room"

func Go(cfg *config.Config) {
	logger := slog.Default()

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	redisConn, err := infra_redis_init.EstablishConn(cfg.Redis)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	roomState := storage_room_state.New(
		infra_redis_chat_history.New(redisConn, model.ChatHistoryLimit),
		infra_redis_room_members.New(redisConn),
		infra_redis_game_state.New(redisConn, gameStateNamespace),
	)

	topology := infra_amqp.DefaultTopology()
	session, err := infra_amqp_supervisor.New(cfg.Broker.URL,
		infra_amqp_supervisor.WithTopology(topology),
		infra_amqp_supervisor.WithPrefetch(cfg.Broker.Prefetch),
	).Connect(ctx, cfg.Broker.MaxAttempts, cfg.Broker.Backoff)
	if err != nil {
		log.Fatalf("failed to connect to broker: %v", err)
	}

	hub := ws_room.NewHub()
	bridge := service_event_bridge.New(session.Channel(), hub,
		service_event_bridge.WithRPCTimeout(cfg.Broker.RPCTimeout),
		service_event_bridge.WithTopology(session.Topology()),
	)
	relay := ws_room.NewRelay(hub, roomState, ws_room.WithGameService(bridge))

	controllerPool := http_init.NewControllerPool()
	controllerPool.Add(ws_room.NewController(ctx, hub, relay,
		ws_room.WithSendBuffer(cfg.Relay.SendBuffer),
	))
	controllerPool.Register()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return controllerPool.Serve(cfg.HTTP.Host, cfg.HTTP.Port)
	})
	g.Go(func() error {
		hub.Run(gctx)
		return nil
	})
	g.Go(func() error {
		return bridge.Run(gctx)
	})

	stopped := make(chan error, 1)
	go func() {
		stopped <- g.Wait()
	}()

	// Operations run concurrently, so the order-sensitive teardown lives in
	// one of them: connections leave their rooms before redis is closed.
	operations := map[string]gfshutdown.Operation{
		"http": func(ctx context.Context) error {
			return controllerPool.Shutdown(ctx)
		},
		"relay": func(ctx context.Context) error {
			return teardown(ctx, stop, hub, session, redisConn)
		},
	}

	wait := gfshutdown.GracefulShutdown(context.Background(), cfg.Relay.ShutdownTimeout, operations)

	select {
	case exitCode := <-wait:
		logger.Info("relay stopped", slog.Int("exit_code", exitCode))
		os.Exit(exitCode)
	case err := <-stopped:
		if err == nil || ctx.Err() != nil {
			// Shutdown already in progress.
			exitCode := <-wait
			logger.Info("relay stopped", slog.Int("exit_code", exitCode))
			os.Exit(exitCode)
		}

		logger.Error("relay component failed", slog.String("error", err.Error()))
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Relay.ShutdownTimeout)
		for name, op := range operations {
			if err := op(shutdownCtx); err != nil {
				logger.Error("shutdown operation failed", slog.String("operation", name), slog.String("error", err.Error()))
			}
		}
		cancel()
		os.Exit(1)
	}
}

type closer interface {
	Close() error
}

// teardown stops the relay loops, waits for every connection to run its
// disconnect path, then closes the broker session and the cache client.
func teardown(ctx context.Context, stop context.CancelFunc, hub *ws_room.Hub, session, cache closer) error {
	stop()
	hub.Wait()

	var errs []error
	if err := hub.Drain(ctx); err != nil {
		errs = append(errs, fmt.Errorf("drain connections: %w", err))
	}
	if err := session.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close broker session: %w", err))
	}
	if err := cache.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close redis: %w", err))
	}
	return errors.Join(errs...)
}
