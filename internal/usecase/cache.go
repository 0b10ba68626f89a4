package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/example/cubescan/internal/logging"
)

// Cache is the subset of Redis the use case needs. Get reports a missing
// key as redis.Nil.
type Cache interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Get(ctx context.Context, key string) (string, error)
}

// RedisCache adapts a go-redis client to Cache.
type RedisCache struct {
	client *redis.Client
}

func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

func (c *RedisCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	return c.client.Set(ctx, key, value, expiration).Err()
}

func (c *RedisCache) Get(ctx context.Context, key string) (string, error) {
	return c.client.Get(ctx, key).Result()
}

// Solutions are keyed by the normalized facelet string, solve records by
// request id.
func solutionKey(facelets string) string {
	return "cubescan:solution:" + facelets
}

func solveKey(requestID string) string {
	return "cubescan:solve:" + requestID
}

// cachedSolution looks up a previous solution for facelets. Any cache
// failure is treated as a miss.
func (uc *CubeUseCase) cachedSolution(ctx context.Context, requestID, facelets string) (string, bool) {
	if uc.cache == nil {
		return "", false
	}
	solution, err := uc.withRedisGet(ctx, requestID, "cache.get.solution", solutionKey(facelets))
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logging.WithOperation(uc.logger, "usecase.solve", requestID).Warn("failed to read solution cache", zap.Error(err))
		}
		return "", false
	}
	return solution, true
}

func (uc *CubeUseCase) cacheSolution(ctx context.Context, requestID, facelets, solution string) {
	if uc.cache == nil {
		return
	}
	if err := uc.withRedisRetry(ctx, requestID, "cache.set.solution", func() error {
		return uc.cache.Set(ctx, solutionKey(facelets), solution, uc.opts.SolutionCacheTTL)
	}); err != nil {
		logging.WithOperation(uc.logger, "usecase.solve", requestID).Warn("failed to cache solution", zap.Error(err))
	}
}

func (uc *CubeUseCase) cachedRecord(ctx context.Context, requestID string) (*SolveRecord, bool) {
	if uc.cache == nil {
		return nil, false
	}
	opLogger := logging.WithOperation(uc.logger, "usecase.get_solve", requestID)
	cached, err := uc.withRedisGet(ctx, requestID, "cache.get.solve", solveKey(requestID))
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			opLogger.Warn("failed to read cache", zap.Error(err))
		}
		return nil, false
	}
	var record SolveRecord
	if err := json.Unmarshal([]byte(cached), &record); err != nil {
		opLogger.Warn("failed to decode cached solve", zap.Error(err))
		return nil, false
	}
	return &record, true
}

func (uc *CubeUseCase) cacheRecord(ctx context.Context, record *SolveRecord) {
	if uc.cache == nil {
		return
	}
	serialized, err := json.Marshal(record)
	if err != nil {
		return
	}
	if err := uc.withRedisRetry(ctx, record.RequestID, "cache.set.solve", func() error {
		return uc.cache.Set(ctx, solveKey(record.RequestID), string(serialized), uc.opts.SolutionCacheTTL)
	}); err != nil {
		logging.WithOperation(uc.logger, "usecase.solve", record.RequestID).Warn("failed to cache solve record", zap.Error(err))
	}
}
