package cache

import (
	"context"
	stdErrors "errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Qonfucius/herdb-arangodb/errors"
	"github.com/Qonfucius/herdb-arangodb/logging"
)

// redisClient 只包含用到的命令，方便测试替换
type redisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Close() error
}

// RedisConfig Redis 缓存配置
type RedisConfig struct {
	Client     redis.UniversalClient
	Addr       string
	Username   string
	Password   string
	DB         int
	Prefix     string
	DefaultTTL time.Duration
	Logger     logging.Logger
}

// DefaultRedisConfig 默认配置
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Addr:       "localhost:6379",
		Prefix:     "herdb:",
		DefaultTTL: 5 * time.Minute,
	}
}

// RedisStore 基于 Redis 的缓存
type RedisStore struct {
	client    redisClient
	ownClient bool
	prefix    string
	ttl       time.Duration
	logger    logging.Logger
}

// NewRedisStore 创建 Redis 缓存；未提供 Client 时按 Addr 建立连接
func NewRedisStore(cfg RedisConfig) *RedisStore {
	var cl redisClient
	own := false
	if cfg.Client != nil {
		cl = cfg.Client
	} else {
		cl = redis.NewClient(&redis.Options{Addr: cfg.Addr, Username: cfg.Username, Password: cfg.Password, DB: cfg.DB})
		own = true
	}
	return newRedisStore(cl, own, cfg)
}

func newRedisStore(cl redisClient, own bool, cfg RedisConfig) *RedisStore {
	if cfg.Logger == nil {
		cfg.Logger = logging.Component("cache.redis")
	}
	return &RedisStore{
		client:    cl,
		ownClient: own,
		prefix:    cfg.Prefix,
		ttl:       cfg.DefaultTTL,
		logger:    cfg.Logger,
	}
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if stdErrors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.WrapError(err, errors.ErrCodeCache, "redis get "+key)
	}
	return data, true, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = s.ttl
	}
	if err := s.client.Set(ctx, s.prefix+key, value, ttl).Err(); err != nil {
		return errors.WrapError(err, errors.ErrCodeCache, "redis set "+key)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.prefix+key).Err(); err != nil {
		return errors.WrapError(err, errors.ErrCodeCache, "redis del "+key)
	}
	return nil
}

// Close 只关闭自己创建的连接
func (s *RedisStore) Close() error {
	if !s.ownClient {
		return nil
	}
	return s.client.Close()
}

var _ Store = (*RedisStore)(nil)
