package cache

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
)

type LevelDBStoreOptions struct {
	// Path 数据库目录
	Path               string        `cfg:"path" validate:"required"`
	BlockCacheCapacity int           `cfg:"blockCacheCapacity"`
	Compression        string        `cfg:"compression" def:"snappy" validate:"omitempty,oneof=default snappy none"`
	DefaultTTL         time.Duration `cfg:"defaultTTL" def:"1m"`
}

// LevelDBStore 基于 goleveldb 的本地持久化缓存
type LevelDBStore struct {
	db         *leveldb.DB
	defaultTTL time.Duration
	now        func() time.Time
	// leveldb 没有读写事务，Incr 需要串行
	mu sync.Mutex
}

func NewLevelDBStoreWithOptions(options *LevelDBStoreOptions) (*LevelDBStore, error) {
	if options == nil || options.Path == "" {
		return nil, errors.New("leveldb path is required")
	}

	o := &opt.Options{BlockCacheCapacity: options.BlockCacheCapacity}
	switch options.Compression {
	case "", "default":
		o.Compression = opt.DefaultCompression
	case "snappy":
		o.Compression = opt.SnappyCompression
	case "none":
		o.Compression = opt.NoCompression
	default:
		return nil, errors.Errorf("unsupported compression: %s", options.Compression)
	}

	db, err := leveldb.OpenFile(options.Path, o)
	if err != nil {
		return nil, errors.Wrapf(err, "open leveldb %s failed", options.Path)
	}
	return &LevelDBStore{db: db, defaultTTL: options.DefaultTTL, now: time.Now}, nil
}

func (s *LevelDBStore) Get(ctx context.Context, key string) ([]byte, error) {
	buf, err := s.db.Get([]byte(key), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, ErrKeyNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "leveldb get failed")
	}
	val, ok := decodeEntry(buf, s.now())
	if !ok {
		_ = s.db.Delete([]byte(key), nil)
		return nil, ErrKeyNotFound
	}
	return val, nil
}

func (s *LevelDBStore) Set(ctx context.Context, key string, val []byte, ttl time.Duration) error {
	entry := encodeEntry(val, ttlOr(ttl, s.defaultTTL), s.now())
	return errors.Wrap(s.db.Put([]byte(key), entry, nil), "leveldb put failed")
}

func (s *LevelDBStore) Del(ctx context.Context, key string) error {
	return errors.Wrap(s.db.Delete([]byte(key), nil), "leveldb delete failed")
}

func (s *LevelDBStore) Incr(ctx context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	buf, err := s.db.Get([]byte(key), nil)
	if err != nil && !errors.Is(err, leveldb.ErrNotFound) {
		return 0, errors.Wrap(err, "leveldb get failed")
	}
	n, entry := nextCounter(buf, s.now())
	if err := s.db.Put([]byte(key), entry, &opt.WriteOptions{Sync: true}); err != nil {
		return 0, errors.Wrap(err, "leveldb put failed")
	}
	return n, nil
}

func (s *LevelDBStore) Close() error {
	return errors.Wrap(s.db.Close(), "close leveldb failed")
}
