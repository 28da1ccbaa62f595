package cache

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/fifo"
	"github.com/cockroachdb/pebble"
	"github.com/pkg/errors"
)

type PebbleStoreOptions struct {
	// Path 数据库目录
	Path string `cfg:"path" validate:"required"`
	// CacheSize 块缓存大小，字节，0 使用 pebble 默认值
	CacheSize int64 `cfg:"cacheSize"`
	// LoadBlockSema 并发加载块的上限，0 不限制
	LoadBlockSema int64         `cfg:"loadBlockSema"`
	DisableWAL    bool          `cfg:"disableWAL"`
	NoSync        bool          `cfg:"noSync"`
	DefaultTTL    time.Duration `cfg:"defaultTTL" def:"1m"`
}

// PebbleStore 基于 pebble 的本地持久化缓存
type PebbleStore struct {
	db         *pebble.DB
	writeOpts  *pebble.WriteOptions
	defaultTTL time.Duration
	now        func() time.Time
	mu         sync.Mutex
}

func NewPebbleStoreWithOptions(options *PebbleStoreOptions) (*PebbleStore, error) {
	if options == nil || options.Path == "" {
		return nil, errors.New("pebble path is required")
	}

	o := &pebble.Options{DisableWAL: options.DisableWAL}
	if options.CacheSize > 0 {
		c := pebble.NewCache(options.CacheSize)
		defer c.Unref()
		o.Cache = c
	}
	if options.LoadBlockSema > 0 {
		o.LoadBlockSema = fifo.NewSemaphore(options.LoadBlockSema)
	}

	db, err := pebble.Open(options.Path, o)
	if err != nil {
		return nil, errors.Wrapf(err, "open pebble %s failed", options.Path)
	}

	writeOpts := pebble.Sync
	if options.NoSync {
		writeOpts = pebble.NoSync
	}
	return &PebbleStore{db: db, writeOpts: writeOpts, defaultTTL: options.DefaultTTL, now: time.Now}, nil
}

func (s *PebbleStore) get(key string) ([]byte, bool, error) {
	buf, closer, err := s.db.Get([]byte(key))
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrap(err, "pebble get failed")
	}
	defer closer.Close()
	// buf 在 closer 关闭后失效
	raw := make([]byte, len(buf))
	copy(raw, buf)
	return raw, true, nil
}

func (s *PebbleStore) Get(ctx context.Context, key string) ([]byte, error) {
	raw, found, err := s.get(key)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrKeyNotFound
	}
	val, ok := decodeEntry(raw, s.now())
	if !ok {
		_ = s.db.Delete([]byte(key), pebble.NoSync)
		return nil, ErrKeyNotFound
	}
	return val, nil
}

func (s *PebbleStore) Set(ctx context.Context, key string, val []byte, ttl time.Duration) error {
	entry := encodeEntry(val, ttlOr(ttl, s.defaultTTL), s.now())
	return errors.Wrap(s.db.Set([]byte(key), entry, s.writeOpts), "pebble set failed")
}

func (s *PebbleStore) Del(ctx context.Context, key string) error {
	return errors.Wrap(s.db.Delete([]byte(key), s.writeOpts), "pebble delete failed")
}

func (s *PebbleStore) Incr(ctx context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, _, err := s.get(key)
	if err != nil {
		return 0, err
	}
	n, entry := nextCounter(raw, s.now())
	if err := s.db.Set([]byte(key), entry, pebble.Sync); err != nil {
		return 0, errors.Wrap(err, "pebble set failed")
	}
	return n, nil
}

func (s *PebbleStore) Close() error {
	return errors.Wrap(s.db.Close(), "close pebble failed")
}
