package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Compile-time check
var _ VersionedStore = (*RedisStore)(nil)

// casScript 比较版本号并写入，整个脚本在 Redis 端原子执行。
// KEYS[1] 版本键, KEYS[2] 数据键, ARGV[1] 期望版本, ARGV[2] 新数据。
// 版本匹配返回新版本号，不匹配返回空串哨兵。
const casScript = `
local v = redis.call('GET', KEYS[1])
if not v then
  v = '1'
end
if v ~= ARGV[1] then
  return ''
end
local nv = tostring(tonumber(v) + 1)
redis.call('SET', KEYS[1], nv)
redis.call('SET', KEYS[2], ARGV[2])
return nv
`

type RedisStore struct {
	client *redis.Client
	cas    *redis.Script
	logger *zap.Logger
}

func NewRedisStore(client *redis.Client, logger *zap.Logger) *RedisStore {
	return &RedisStore{
		client: client,
		cas:    redis.NewScript(casScript),
		logger: logger.Named("RedisStore"),
	}
}

func (s *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis get %s: %w", key, err)
	}
	return val, true, nil
}

func (s *RedisStore) Set(ctx context.Context, key, value string) error {
	if err := s.client.Set(ctx, key, value, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (s *RedisStore) MGet(ctx context.Context, keys ...string) ([]*string, error) {
	vals, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("redis mget: %w", err)
	}
	out := make([]*string, len(vals))
	for i, v := range vals {
		if v == nil {
			continue
		}
		if str, ok := v.(string); ok {
			out[i] = &str
		}
	}
	return out, nil
}

func (s *RedisStore) CompareAndSwap(ctx context.Context, versionKey, dataKey, expectedVersion, value string) (string, bool, error) {
	res, err := s.cas.Run(ctx, s.client, []string{versionKey, dataKey}, expectedVersion, value).Text()
	if err != nil {
		return "", false, fmt.Errorf("redis cas: %w", err)
	}
	if res == "" {
		s.logger.Debug("CAS 版本不匹配",
			zap.String("expected", expectedVersion),
			zap.String("dataKey", dataKey),
		)
		return "", false, nil
	}
	return res, true, nil
}
