package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// Redis stores the flag as a string key and the log as a capped list.
// All keys are namespaced so several portals can share one server.
type Redis struct {
	rdb       *redis.Client
	namespace string
}

// NewRedis creates a Redis-backed store. namespace must not be empty.
func NewRedis(opts *redis.Options, namespace string) (*Redis, error) {
	if namespace == "" {
		return nil, errors.New("namespace cannot be empty")
	}
	return &Redis{rdb: redis.NewClient(opts), namespace: namespace}, nil
}

// Ping verifies Redis connectivity.
func (r *Redis) Ping(ctx context.Context) error {
	return r.rdb.Ping(ctx).Err()
}

func (r *Redis) Close() error {
	return r.rdb.Close()
}

func (r *Redis) key(name string) string {
	return fmt.Sprintf("pamong:%s:%s", r.namespace, name)
}

func (r *Redis) Enabled(ctx context.Context) (bool, error) {
	v, err := r.rdb.Get(ctx, r.key(EnabledKey)).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read enabled flag: %w", err)
	}
	enabled, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid enabled flag %q: %w", v, err)
	}
	return enabled, nil
}

func (r *Redis) SetEnabled(ctx context.Context, enabled bool) error {
	if err := r.rdb.Set(ctx, r.key(EnabledKey), strconv.FormatBool(enabled), 0).Err(); err != nil {
		return fmt.Errorf("failed to write enabled flag: %w", err)
	}
	return nil
}

func (r *Redis) Logs(ctx context.Context, limit int) ([]LogEntry, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit) - 1
	}
	raw, err := r.rdb.LRange(ctx, r.key(LogsKey), 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read logs: %w", err)
	}
	out := make([]LogEntry, 0, len(raw))
	for _, item := range raw {
		var entry LogEntry
		if err := json.Unmarshal([]byte(item), &entry); err != nil {
			return nil, fmt.Errorf("failed to decode log entry: %w", err)
		}
		out = append(out, entry)
	}
	return out, nil
}

func (r *Redis) AppendLog(ctx context.Context, entry LogEntry, limit int) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to encode log entry: %w", err)
	}
	key := r.key(LogsKey)
	_, err = r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LPush(ctx, key, data)
		if limit > 0 {
			pipe.LTrim(ctx, key, 0, int64(limit)-1)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to append log entry: %w", err)
	}
	return nil
}
