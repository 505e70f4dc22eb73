package ws_room

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type Controller struct {
	hub   *Hub
	relay *Relay

	// ctx outlives any single request so handlers keep running after the
	// upgrade returns.
	ctx        context.Context
	sendBuffer int

	logger *slog.Logger
}

type ControllerOption func(*Controller)

func WithControllerLogger(logger *slog.Logger) ControllerOption {
	return func(c *Controller) {
		c.logger = logger
	}
}

func WithSendBuffer(size int) ControllerOption {
	return func(c *Controller) {
		c.sendBuffer = size
	}
}

func NewController(ctx context.Context, hub *Hub, relay *Relay, opts ...ControllerOption) *Controller {
	c := &Controller{
		hub:    hub,
		relay:  relay,
		ctx:    ctx,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Controller) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/ws", c.connect)
}

func (c *Controller) connect(ctx *gin.Context) {
	conn, err := upgrader.Upgrade(ctx.Writer, ctx.Request, nil)
	if err != nil {
		c.logger.Error("failed to upgrade to websocket",
			slog.String("error", err.Error()),
		)
		return
	}

	client := NewClient(conn, c.sendBuffer)
	if err := c.hub.RegisterClient(client); err != nil {
		_ = conn.Close()
		return
	}

	c.logger.Info("client connected",
		slog.String("connection_id", client.ID()),
		slog.String("remote", ctx.Request.RemoteAddr),
	)

	go client.StartWriting()
	go client.StartReading(c.ctx, c.hub, c.relay)
}
