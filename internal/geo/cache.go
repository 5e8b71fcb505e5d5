package geo

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	cacheKeyPrefix = "geo:"
	// unknownMarker 缓存"查不到"的结果，避免重复查库
	unknownMarker = "-"
	defaultTTL    = 24 * time.Hour
)

// CacheClient Redis 客户端中用到的方法，*redis.Client 满足该接口
type CacheClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// Cached 在 Resolver 前加一层 Redis 缓存
// Redis 不可用时直接回落到底层 Resolver
type Cached struct {
	client  CacheClient
	backend Resolver
	ttl     time.Duration
	logger  *zap.SugaredLogger
}

// NewCached 创建缓存解析器，ttl 为 0 时使用 24 小时
func NewCached(client CacheClient, backend Resolver, ttl time.Duration, logger *zap.SugaredLogger) *Cached {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Cached{
		client:  client,
		backend: backend,
		ttl:     ttl,
		logger:  logger.Named("geo_cache"),
	}
}

// Country 实现 Resolver
func (c *Cached) Country(ctx context.Context, ip string) (string, error) {
	key := cacheKeyPrefix + ip

	val, err := c.client.Get(ctx, key).Result()
	switch {
	case err == nil:
		if val == unknownMarker {
			return "", nil
		}
		return val, nil
	case !errors.Is(err, redis.Nil):
		c.logger.Warnf("读取地理缓存失败: %v", err)
	}

	country, err := c.backend.Country(ctx, ip)
	if err != nil {
		return "", err
	}

	cached := country
	if cached == "" {
		cached = unknownMarker
	}
	if err := c.client.Set(ctx, key, cached, c.ttl).Err(); err != nil {
		c.logger.Warnf("写入地理缓存失败: %v", err)
	}
	return country, nil
}
