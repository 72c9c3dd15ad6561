package report

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// DefaultRedisChannel is the pub/sub channel frame reports go to
const DefaultRedisChannel = "refdist:frames"

// Redis publishes JSON frame reports to a pub/sub channel and keeps the latest one under "<channel>:latest"
type Redis struct {
	client  redis.UniversalClient
	channel string
	ttl     time.Duration
}

// NewRedis creates sink over existing client
func NewRedis(client redis.UniversalClient, channel string, ttl time.Duration) *Redis {
	if channel == "" {
		channel = DefaultRedisChannel
	}
	return &Redis{
		client:  client,
		channel: channel,
		ttl:     ttl,
	}
}

// DialRedis connects to Redis and checks connection
func DialRedis(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, errors.Wrapf(err, "can't connect to Redis at %s", addr)
	}
	return client, nil
}

func (s *Redis) Publish(ctx context.Context, frame Frame) error {
	payload, err := json.Marshal(frame)
	if err != nil {
		return errors.Wrap(err, "can't encode frame report")
	}
	pipe := s.client.Pipeline()
	pipe.Publish(ctx, s.channel, payload)
	pipe.Set(ctx, s.channel+":latest", payload, s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return errors.Wrapf(err, "can't publish frame %d", frame.Sequence)
	}
	return nil
}
