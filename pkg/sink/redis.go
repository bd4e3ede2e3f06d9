package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	bqerrors "github.com/vnykmshr/boundq/pkg/common/errors"
	"github.com/vnykmshr/boundq/pkg/common/validation"
	"github.com/vnykmshr/boundq/pkg/supervisor"
)

// RedisConfig holds configuration for a RedisSink.
type RedisConfig struct {
	// Redis client results are pushed to
	Redis redis.UniversalClient

	// KeyPrefix prefixes every list key (defaults to "boundq")
	KeyPrefix string

	// Timeout bounds each push (defaults to 500ms)
	Timeout time.Duration

	// KeyTTL is how long result lists live after the last push (defaults to 24h)
	KeyTTL time.Duration
}

// DefaultRedisConfig returns a RedisConfig with defaults applied and no client.
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		KeyPrefix: "boundq",
		Timeout:   500 * time.Millisecond,
		KeyTTL:    24 * time.Hour,
	}
}

// RedisSink appends each result as JSON to the list <prefix>:<run_id>:results.
type RedisSink struct {
	config RedisConfig
}

// NewRedisSink validates config and returns a RedisSink.
func NewRedisSink(config RedisConfig) (*RedisSink, error) {
	if config.Redis == nil {
		return nil, bqerrors.NewValidationError("sink", "redis", nil, "cannot be nil").
			WithHint("provide a redis client")
	}

	defaults := DefaultRedisConfig()
	if config.KeyPrefix == "" {
		config.KeyPrefix = defaults.KeyPrefix
	}
	if config.Timeout <= 0 {
		config.Timeout = defaults.Timeout
	}
	if config.KeyTTL <= 0 {
		config.KeyTTL = defaults.KeyTTL
	}

	return &RedisSink{config: config}, nil
}

// Key returns the list key results of runID are pushed to.
func (s *RedisSink) Key(runID string) string {
	return fmt.Sprintf("%s:%s:results", s.config.KeyPrefix, runID)
}

// Record implements supervisor.Sink.
func (s *RedisSink) Record(ctx context.Context, r supervisor.Result) error {
	if err := validation.ValidateNotEmpty("sink", "run_id", r.RunID); err != nil {
		return err
	}

	payload, err := json.Marshal(newRecord(r))
	if err != nil {
		return bqerrors.NewOperationError("sink", "redis.encode", err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()

	key := s.Key(r.RunID)
	pipe := s.config.Redis.Pipeline()
	pipe.RPush(ctx, key, payload)
	pipe.Expire(ctx, key, s.config.KeyTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return bqerrors.NewOperationError("sink", "redis.push", err).WithContext(key)
	}
	return nil
}

// Results reads back every result recorded for runID, oldest first.
func (s *RedisSink) Results(ctx context.Context, runID string) ([]json.RawMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()

	items, err := s.config.Redis.LRange(ctx, s.Key(runID), 0, -1).Result()
	if err != nil && err != redis.Nil {
		return nil, bqerrors.NewOperationError("sink", "redis.read", err)
	}

	out := make([]json.RawMessage, len(items))
	for i, item := range items {
		out[i] = json.RawMessage(item)
	}
	return out, nil
}
