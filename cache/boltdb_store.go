package cache

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"
)

type BoltDBStoreOptions struct {
	// Path 数据库文件路径，目录不存在时自动创建
	Path string `cfg:"path" validate:"required"`
	// Bucket 存放缓存的桶
	Bucket string `cfg:"bucket" def:"rdbx"`
	// Timeout 获取文件锁的等待时间，0 表示无限等待
	Timeout    time.Duration `cfg:"timeout" def:"1s"`
	NoSync     bool          `cfg:"noSync"`
	DefaultTTL time.Duration `cfg:"defaultTTL" def:"1m"`
}

// BoltDBStore 基于 bbolt 的本地持久化缓存，进程重启后仍然有效
type BoltDBStore struct {
	db         *bolt.DB
	bucket     []byte
	defaultTTL time.Duration
	now        func() time.Time
}

func NewBoltDBStoreWithOptions(options *BoltDBStoreOptions) (*BoltDBStore, error) {
	if options == nil || options.Path == "" {
		return nil, errors.New("boltdb path is required")
	}
	if err := os.MkdirAll(filepath.Dir(options.Path), 0755); err != nil {
		return nil, errors.Wrapf(err, "create directory for %s failed", options.Path)
	}

	db, err := bolt.Open(options.Path, 0600, &bolt.Options{
		Timeout: options.Timeout,
		NoSync:  options.NoSync,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "open boltdb %s failed", options.Path)
	}

	bucket := options.Bucket
	if bucket == "" {
		bucket = "rdbx"
	}
	s := &BoltDBStore{db: db, bucket: []byte(bucket), defaultTTL: options.DefaultTTL, now: time.Now}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(s.bucket)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "create bucket failed")
	}
	return s, nil
}

func (s *BoltDBStore) Get(ctx context.Context, key string) ([]byte, error) {
	var val []byte
	var found, expired bool
	err := s.db.View(func(tx *bolt.Tx) error {
		buf := tx.Bucket(s.bucket).Get([]byte(key))
		if buf == nil {
			return nil
		}
		// bbolt 返回的切片只在事务内有效，decodeEntry 会拷贝
		val, found = decodeEntry(buf, s.now())
		expired = !found
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "boltdb get failed")
	}
	if expired {
		_ = s.Del(ctx, key)
	}
	if !found {
		return nil, ErrKeyNotFound
	}
	return val, nil
}

func (s *BoltDBStore) Set(ctx context.Context, key string, val []byte, ttl time.Duration) error {
	entry := encodeEntry(val, ttlOr(ttl, s.defaultTTL), s.now())
	return errors.Wrap(s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(s.bucket).Put([]byte(key), entry)
	}), "boltdb put failed")
}

func (s *BoltDBStore) Del(ctx context.Context, key string) error {
	return errors.Wrap(s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(s.bucket).Delete([]byte(key))
	}), "boltdb delete failed")
}

// Incr 在同一个写事务中读取并写回
func (s *BoltDBStore) Incr(ctx context.Context, key string) (int64, error) {
	var n int64
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(s.bucket)
		var entry []byte
		n, entry = nextCounter(b.Get([]byte(key)), s.now())
		return b.Put([]byte(key), entry)
	})
	if err != nil {
		return 0, errors.Wrap(err, "boltdb incr failed")
	}
	return n, nil
}

func (s *BoltDBStore) Close() error {
	return errors.Wrap(s.db.Close(), "close boltdb failed")
}
