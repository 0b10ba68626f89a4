package facestore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/example/cubescan/internal/facecolor"
	"github.com/example/cubescan/internal/retry"
)

// HashClient abstracts the Redis hash operations used by the store to make
// testing easier.
type HashClient interface {
	// SetField writes one hash field and sets the key's TTL atomically.
	SetField(ctx context.Context, key, field, value string, ttl time.Duration) error
	GetAll(ctx context.Context, key string) (map[string]string, error)
	Delete(ctx context.Context, key string) (int64, error)
}

// RedisHashClient is a HashClient backed by go-redis.
type RedisHashClient struct {
	client *redis.Client
}

// NewRedisHashClient constructs a new Redis-backed hash adapter.
func NewRedisHashClient(client *redis.Client) *RedisHashClient {
	return &RedisHashClient{client: client}
}

// SetField runs HSET and EXPIRE in one MULTI/EXEC.
func (c *RedisHashClient) SetField(ctx context.Context, key, field, value string, ttl time.Duration) error {
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, field, value)
		pipe.Expire(ctx, key, ttl)
		return nil
	})
	return err
}

// GetAll returns every field of the hash; a missing key yields an empty map.
func (c *RedisHashClient) GetAll(ctx context.Context, key string) (map[string]string, error) {
	return c.client.HGetAll(ctx, key).Result()
}

// Delete removes the key and reports how many keys were deleted.
func (c *RedisHashClient) Delete(ctx context.Context, key string) (int64, error) {
	return c.client.Del(ctx, key).Result()
}

// Redis is a Store shared between processes. Each session is one hash
// keyed by face index, expiring ttl after its last write.
type Redis struct {
	client HashClient
	ttl    time.Duration
	policy retry.Policy
	logger *zap.Logger
}

var _ Store = (*Redis)(nil)

// NewRedis builds a Redis store. A non-positive ttl means DefaultTTL.
func NewRedis(client HashClient, ttl time.Duration, logger *zap.Logger) *Redis {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Redis{
		client: client,
		ttl:    ttl,
		policy: retry.DefaultPolicy,
		logger: logger.Named("face_store"),
	}
}

func (r *Redis) TTL() time.Duration { return r.ttl }

func sessionKey(sessionID string) string {
	return fmt.Sprintf("cubescan:session:%s:faces", sessionID)
}

// Record writes the slot and refreshes the TTL in one transaction.
func (r *Redis) Record(ctx context.Context, sessionID string, faceIndex int, grid facecolor.FaceGrid) error {
	if err := checkIndex(faceIndex); err != nil {
		return err
	}
	key := sessionKey(sessionID)
	return retry.Do(ctx, r.policy, r.logger, "facestore.record", sessionID, func() error {
		return r.client.SetField(ctx, key, strconv.Itoa(faceIndex), grid.String(), r.ttl)
	})
}

// Faces reads all slots of a session.
func (r *Redis) Faces(ctx context.Context, sessionID string) (FaceState, error) {
	var fields map[string]string
	err := retry.Do(ctx, r.policy, r.logger, "facestore.faces", sessionID, func() error {
		var err error
		fields, err = r.client.GetAll(ctx, sessionKey(sessionID))
		return err
	})
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return FaceState{}, ErrSessionNotFound
		}
		return FaceState{}, err
	}
	if len(fields) == 0 {
		return FaceState{}, ErrSessionNotFound
	}

	var state FaceState
	for field, value := range fields {
		idx, err := strconv.Atoi(field)
		if err != nil || checkIndex(idx) != nil {
			r.logger.Warn("ignoring unexpected face field", zap.String("session_id", sessionID), zap.String("field", field))
			continue
		}
		grid, err := facecolor.ParseFaceGrid(value)
		if err != nil {
			r.logger.Warn("ignoring corrupt face", zap.String("session_id", sessionID), zap.Int("face_index", idx), zap.Error(err))
			continue
		}
		state[idx] = &grid
	}
	return state, nil
}

// Delete removes the session hash.
func (r *Redis) Delete(ctx context.Context, sessionID string) error {
	var n int64
	err := retry.Do(ctx, r.policy, r.logger, "facestore.delete", sessionID, func() error {
		var err error
		n, err = r.client.Delete(ctx, sessionKey(sessionID))
		return err
	})
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrSessionNotFound
	}
	return nil
}
