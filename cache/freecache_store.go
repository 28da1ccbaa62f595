package cache

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/coocood/freecache"
)

type FreeCacheStoreOptions struct {
	// 缓存容量，字节
	Size       int           `cfg:"size" def:"33554432"`
	DefaultTTL time.Duration `cfg:"defaultTTL" def:"1m"`
}

// FreeCacheStore 进程内缓存
type FreeCacheStore struct {
	cache      *freecache.Cache
	defaultTTL time.Duration
	mu         sync.Mutex
}

func NewFreeCacheStoreWithOptions(options *FreeCacheStoreOptions) (*FreeCacheStore, error) {
	if options == nil {
		options = &FreeCacheStoreOptions{}
	}
	size := options.Size
	if size <= 0 {
		size = 32 * 1024 * 1024
	}
	return &FreeCacheStore{
		cache:      freecache.NewCache(size),
		defaultTTL: options.DefaultTTL,
	}, nil
}

func (s *FreeCacheStore) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := s.cache.Get([]byte(key))
	if err != nil {
		return nil, ErrKeyNotFound
	}
	return val, nil
}

func (s *FreeCacheStore) Set(ctx context.Context, key string, val []byte, ttl time.Duration) error {
	return s.cache.Set([]byte(key), val, s.expireSeconds(ttl))
}

func (s *FreeCacheStore) Del(ctx context.Context, key string) error {
	s.cache.Del([]byte(key))
	return nil
}

// Incr 计数器以十进制文本保存，不过期
func (s *FreeCacheStore) Incr(ctx context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	if val, err := s.cache.Get([]byte(key)); err == nil {
		n, _ = strconv.ParseInt(string(val), 10, 64)
	}
	n++
	if err := s.cache.Set([]byte(key), []byte(strconv.FormatInt(n, 10)), 0); err != nil {
		return 0, err
	}
	return n, nil
}

func (s *FreeCacheStore) Close() error {
	s.cache.Clear()
	return nil
}

func (s *FreeCacheStore) expireSeconds(ttl time.Duration) int {
	if ttl == 0 {
		ttl = s.defaultTTL
	}
	if ttl <= 0 {
		return 0
	}
	if secs := int(ttl.Seconds()); secs > 0 {
		return secs
	}
	return 1
}
