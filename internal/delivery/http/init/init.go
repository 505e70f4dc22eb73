package http_init

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
)

const apiPrefix = "/api/v1"

type Controller interface {
	RegisterRoutes(router *gin.RouterGroup)
}

type ControllerPool struct {
	pool   []Controller
	rg     *gin.RouterGroup
	engine *gin.Engine

	mu     sync.Mutex
	server *http.Server

	logger *slog.Logger
}

type PoolOption func(*ControllerPool)

func WithLogger(logger *slog.Logger) PoolOption {
	return func(p *ControllerPool) {
		p.logger = logger
	}
}

func NewControllerPool(opts ...PoolOption) *ControllerPool {
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.GET("/healthz", func(ctx *gin.Context) {
		ctx.Status(http.StatusNoContent)
	})
	pool := &ControllerPool{
		pool:   make([]Controller, 0, 4),
		rg:     engine.Group(apiPrefix),
		engine: engine,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(pool)
	}
	return pool
}

func (pool *ControllerPool) Add(c Controller) {
	pool.pool = append(pool.pool, c)
}

func (pool *ControllerPool) Register() {
	for _, c := range pool.pool {
		c.RegisterRoutes(pool.rg)
	}
}

func (pool *ControllerPool) Handler() http.Handler {
	return pool.engine
}

// Serve blocks until the server stops. A Shutdown is not an error.
func (pool *ControllerPool) Serve(host, port string) error {
	server := &http.Server{
		Addr:    net.JoinHostPort(host, port),
		Handler: pool.engine,
	}
	pool.mu.Lock()
	pool.server = server
	pool.mu.Unlock()

	pool.logger.Info("http server listening", slog.String("addr", server.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (pool *ControllerPool) Shutdown(ctx context.Context) error {
	pool.mu.Lock()
	server := pool.server
	pool.mu.Unlock()

	if server == nil {
		return nil
	}
	return server.Shutdown(ctx)
}
