package redis

import (
	"context"

	"todo-maistro/internal/config"

	"github.com/go-redis/redis/v8"
)

// redisNil aliases the driver's miss sentinel for the repositories here.
const redisNil = redis.Nil

// Client wraps the go-redis client; same-package repositories reach the
// underlying client directly for stream and list commands.
type Client struct {
	cli *redis.Client
}

func NewClient(ctx context.Context, cfg *config.RedisConfig) (*Client, error) {
	opts := &redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}
	c := redis.NewClient(opts)
	if err := c.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	return &Client{cli: c}, nil
}

func (c *Client) Ping(ctx context.Context) error { return c.cli.Ping(ctx).Err() }

func (c *Client) Close() error { return c.cli.Close() }
