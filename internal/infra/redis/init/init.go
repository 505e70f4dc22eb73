package infra_redis_init

import (
	"errors"
	"net"
	"time"

	"github.com/go-redis/redis"
	"github.com/humanbelnik/scribble-relay/internal/config"
)

var ErrConnect = errors.New("redis connection failed")

const dialTimeout = 5 * time.Second

// EstablishConn dials the cache and checks it answers. The client is closed
// when the ping fails.
func EstablishConn(cfg config.RedisCache) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:        net.JoinHostPort(cfg.Host, cfg.Port),
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: dialTimeout,
	})

	if err := client.Ping().Err(); err != nil {
		_ = client.Close()
		return nil, errors.Join(ErrConnect, err)
	}
	return client, nil
}
