package cache

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

type RedisStoreOptions struct {
	// host:port 地址
	Endpoint string `cfg:"endpoint"`
	// 集群节点地址列表，非空时使用集群客户端
	Endpoints []string `cfg:"endpoints"`

	Username string `cfg:"username"`
	Password string `cfg:"password"`
	DB       int    `cfg:"db" def:"0"`

	// 所有键的前缀
	KeyPrefix  string        `cfg:"keyPrefix" def:"rdbx:"`
	DefaultTTL time.Duration `cfg:"defaultTTL" def:"1m"`

	MaxRetries   int           `cfg:"maxRetries" def:"3"`
	DialTimeout  time.Duration `cfg:"dialTimeout" def:"5s"`
	ReadTimeout  time.Duration `cfg:"readTimeout" def:"3s"`
	WriteTimeout time.Duration `cfg:"writeTimeout" def:"3s"`
	PoolSize     int           `cfg:"poolSize"`
}

// RedisStore redis 缓存
type RedisStore struct {
	client     redis.UniversalClient
	prefix     string
	defaultTTL time.Duration
}

func NewRedisStoreWithOptions(options *RedisStoreOptions) (*RedisStore, error) {
	if options == nil {
		return nil, errors.New("options is nil")
	}
	addrs := options.Endpoints
	if len(addrs) == 0 {
		if options.Endpoint == "" {
			return nil, errors.New("endpoint is required")
		}
		addrs = []string{options.Endpoint}
	}

	client := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:        addrs,
		Username:     options.Username,
		Password:     options.Password,
		DB:           options.DB,
		MaxRetries:   options.MaxRetries,
		DialTimeout:  options.DialTimeout,
		ReadTimeout:  options.ReadTimeout,
		WriteTimeout: options.WriteTimeout,
		PoolSize:     options.PoolSize,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, "redis ping failed")
	}

	return &RedisStore{
		client:     client,
		prefix:     options.KeyPrefix,
		defaultTTL: options.DefaultTTL,
	}, nil
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if err == redis.Nil {
		return nil, ErrKeyNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "redis get %s failed", key)
	}
	return val, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, val []byte, ttl time.Duration) error {
	if ttl == 0 {
		ttl = s.defaultTTL
	}
	if ttl < 0 {
		ttl = 0
	}
	if err := s.client.Set(ctx, s.prefix+key, val, ttl).Err(); err != nil {
		return errors.Wrapf(err, "redis set %s failed", key)
	}
	return nil
}

func (s *RedisStore) Del(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.prefix+key).Err(); err != nil {
		return errors.Wrapf(err, "redis del %s failed", key)
	}
	return nil
}

func (s *RedisStore) Incr(ctx context.Context, key string) (int64, error) {
	n, err := s.client.Incr(ctx, s.prefix+key).Result()
	if err != nil {
		return 0, errors.Wrapf(err, "redis incr %s failed", key)
	}
	return n, nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
