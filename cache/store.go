package cache

import (
	"context"
	"strconv"
	"time"

	"github.com/pkg/errors"
)

var ErrKeyNotFound = errors.New("key not found")

// Store 字节缓存
type Store interface {
	// Get 键不存在或已过期时返回 ErrKeyNotFound
	Get(ctx context.Context, key string) ([]byte, error)
	// Set ttl 为 0 时使用默认过期时间
	Set(ctx context.Context, key string, val []byte, ttl time.Duration) error
	// Del 键不存在时也返回成功
	Del(ctx context.Context, key string) error
	// Incr 原子自增并返回新值，键不存在时从 0 开始，值以十进制文本保存
	Incr(ctx context.Context, key string) (int64, error)
	Close() error
}

// Options 缓存配置，Type 决定使用哪一个子配置
type Options struct {
	Type      string                 `cfg:"type" def:"freecache" validate:"oneof=freecache redis boltdb leveldb pebble tiered"`
	FreeCache *FreeCacheStoreOptions `cfg:"freecache"`
	Redis     *RedisStoreOptions     `cfg:"redis"`
	BoltDB    *BoltDBStoreOptions    `cfg:"boltdb"`
	LevelDB   *LevelDBStoreOptions   `cfg:"leveldb"`
	Pebble    *PebbleStoreOptions    `cfg:"pebble"`
	Tiered    *TieredStoreOptions    `cfg:"tiered"`
}

func NewStoreWithOptions(options *Options) (Store, error) {
	if options == nil {
		return nil, errors.New("options is nil")
	}
	switch options.Type {
	case "", "freecache":
		return NewFreeCacheStoreWithOptions(options.FreeCache)
	case "redis":
		return NewRedisStoreWithOptions(options.Redis)
	case "boltdb":
		return NewBoltDBStoreWithOptions(options.BoltDB)
	case "leveldb":
		return NewLevelDBStoreWithOptions(options.LevelDB)
	case "pebble":
		return NewPebbleStoreWithOptions(options.Pebble)
	case "tiered":
		return NewTieredStoreWithOptions(options.Tiered)
	default:
		return nil, errors.Errorf("unsupported cache type: %s", options.Type)
	}
}

type counterReader interface {
	Counter(ctx context.Context, key string) (int64, error)
}

// Counter 读取 Incr 维护的计数器，键不存在时返回 0
//
// 实现了 Counter 方法的存储（如 TieredStore）由存储自己决定从哪里读取
func Counter(ctx context.Context, store Store, key string) (int64, error) {
	if r, ok := store.(counterReader); ok {
		return r.Counter(ctx, key)
	}
	buf, err := store.Get(ctx, key)
	if errors.Is(err, ErrKeyNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	n, err := strconv.ParseInt(string(buf), 10, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid counter %s", key)
	}
	return n, nil
}
