package progress

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/soypete/autopilot/pkg/logger"
)

// RedisBus shares job progress between server instances. Each job has its
// own pub/sub channel; the last event is also stored under a key so late
// subscribers start from the current state.
type RedisBus struct {
	rdb redis.UniversalClient
	ttl time.Duration
	log *logger.Logger
}

// RedisOptions configures NewRedisBus.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// NewRedisBus connects to Redis and verifies the connection.
func NewRedisBus(opts RedisOptions, log *logger.Logger) (*RedisBus, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        opts.Addr,
		Password:    opts.Password,
		DB:          opts.DB,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return NewRedisBusFromClient(rdb, opts.TTL, log), nil
}

// NewRedisBusFromClient wraps an existing client.
func NewRedisBusFromClient(rdb redis.UniversalClient, ttl time.Duration, log *logger.Logger) *RedisBus {
	if ttl <= 0 {
		ttl = time.Hour
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &RedisBus{rdb: rdb, ttl: ttl, log: log.With("component", "redis_bus")}
}

func channelName(jobID string) string { return "autopilot:job:" + jobID }

func lastKey(jobID string) string { return "autopilot:job:" + jobID + ":last" }

// Publish stores e as the job's last event and broadcasts it.
func (b *RedisBus) Publish(ctx context.Context, jobID string, e Event) error {
	raw, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	pipe := b.rdb.TxPipeline()
	pipe.Set(ctx, lastKey(jobID), raw, b.ttl)
	pipe.Publish(ctx, channelName(jobID), raw)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis publish: %w", err)
	}
	return nil
}

// Subscribe listens on the job channel. The subscription is confirmed before
// the stored last event is read, so nothing published in between is lost.
func (b *RedisBus) Subscribe(ctx context.Context, jobID string) (<-chan Event, func(), error) {
	ctx, cancel := context.WithCancel(ctx)
	sub := b.rdb.Subscribe(ctx, channelName(jobID))

	if _, err := sub.Receive(ctx); err != nil {
		cancel()
		_ = sub.Close()
		return nil, nil, fmt.Errorf("redis subscribe: %w", err)
	}

	out := make(chan Event, 32)

	if raw, err := b.rdb.Get(ctx, lastKey(jobID)).Bytes(); err == nil {
		var e Event
		if err := json.Unmarshal(raw, &e); err == nil {
			out <- e
		}
	} else if !errors.Is(err, redis.Nil) {
		b.log.Warn("failed to read last event", "job_id", jobID, "error", err)
	}

	go func() {
		defer close(out)
		defer sub.Close()

		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-ch:
				if !ok || m == nil {
					return
				}
				var e Event
				if err := json.Unmarshal([]byte(m.Payload), &e); err != nil {
					b.log.Warn("bad progress payload", "job_id", jobID, "error", err)
					continue
				}
				select {
				case out <- e:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, cancel, nil
}

// Close closes the Redis client.
func (b *RedisBus) Close() error {
	return b.rdb.Close()
}
