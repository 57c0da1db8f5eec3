package publisher

import (
	"context"

	"github.com/joripage/lobsim/pkg/orderbook"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

type redisClient interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
	Close() error
}

// RedisPublisher PUBLISHes each trade as JSON on "<prefix>:<symbol>".
type RedisPublisher struct {
	client redisClient
	prefix string
}

func NewRedisPublisher(client *redis.Client, prefix string) *RedisPublisher {
	return newRedisPublisher(client, prefix)
}

func newRedisPublisher(client redisClient, prefix string) *RedisPublisher {
	if prefix == "" {
		prefix = "trades"
	}
	return &RedisPublisher{client: client, prefix: prefix}
}

func (p *RedisPublisher) Channel(symbol string) string {
	return p.prefix + ":" + symbol
}

func (p *RedisPublisher) Publish(ctx context.Context, symbol string, trades []orderbook.Trade) error {
	channel := p.Channel(symbol)
	for _, t := range trades {
		b, err := encode(symbol, t)
		if err != nil {
			return err
		}
		if err := p.client.Publish(ctx, channel, b).Err(); err != nil {
			return errors.Wrapf(err, "redis publish %s", channel)
		}
	}
	return nil
}

func (p *RedisPublisher) Close() error {
	return p.client.Close()
}
