package stats

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// listStore is the part of the redis client the sink uses.
type listStore interface {
	LPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
	LTrim(ctx context.Context, key string, start, stop int64) *redis.StatusCmd
}

// RedisSink keeps the most recent summaries in a capped list, newest first.
type RedisSink struct {
	client listStore
	closer func() error
	key    string
	keep   int64
}

// NewRedisSink connects to addr and pings it.
func NewRedisSink(ctx context.Context, addr, password string, db int, key string, keep int64) (*RedisSink, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	if keep <= 0 {
		keep = 1000
	}
	return &RedisSink{client: client, closer: client.Close, key: key, keep: keep}, nil
}

// Record implements Sink.
func (r *RedisSink) Record(ctx context.Context, summary *MatchSummary) error {
	data, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("marshal match summary: %w", err)
	}
	if err := r.client.LPush(ctx, r.key, data).Err(); err != nil {
		return fmt.Errorf("push match summary: %w", err)
	}
	if err := r.client.LTrim(ctx, r.key, 0, r.keep-1).Err(); err != nil {
		return fmt.Errorf("trim match list: %w", err)
	}
	return nil
}

// Close releases the client.
func (r *RedisSink) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer()
}
