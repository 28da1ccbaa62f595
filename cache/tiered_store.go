package cache

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

type TieredStoreOptions struct {
	// Tiers 按访问速度从快到慢排列，最后一层是权威层
	Tiers []*Options `cfg:"tiers" validate:"required,min=1,dive,required"`
	// Promote 从下层命中后写回上层
	Promote bool `cfg:"promote" def:"true"`
}

// TieredStore 多级缓存
//
// 写入同步写所有层；计数器只在最后一层自增和读取（见 Counter），
// 因此跨进程共享的计数器应放在最后一层
type TieredStore struct {
	tiers   []Store
	promote bool
}

func NewTieredStoreWithOptions(options *TieredStoreOptions) (*TieredStore, error) {
	if options == nil || len(options.Tiers) == 0 {
		return nil, errors.New("at least one tier is required")
	}

	tiers := make([]Store, 0, len(options.Tiers))
	for i, tierOptions := range options.Tiers {
		if tierOptions != nil && tierOptions.Type == "tiered" {
			closeAll(tiers)
			return nil, errors.Errorf("tier %d: nested tiered store is not supported", i)
		}
		tier, err := NewStoreWithOptions(tierOptions)
		if err != nil {
			closeAll(tiers)
			return nil, errors.WithMessagef(err, "create tier %d failed", i)
		}
		tiers = append(tiers, tier)
	}
	return NewTieredStore(options.Promote, tiers...), nil
}

// NewTieredStore 由已创建的存储组成多级缓存
func NewTieredStore(promote bool, tiers ...Store) *TieredStore {
	return &TieredStore{tiers: tiers, promote: promote}
}

func closeAll(tiers []Store) {
	for _, tier := range tiers {
		_ = tier.Close()
	}
}

func (s *TieredStore) Get(ctx context.Context, key string) ([]byte, error) {
	var lastErr error
	for i, tier := range s.tiers {
		val, err := tier.Get(ctx, key)
		if err == nil {
			if s.promote {
				for _, upper := range s.tiers[:i] {
					_ = upper.Set(ctx, key, val, 0)
				}
			}
			return val, nil
		}
		if !errors.Is(err, ErrKeyNotFound) {
			// 某一层故障时继续查下一层
			lastErr = err
		}
	}
	if lastErr != nil {
		return nil, lastErr
	}
	return nil, ErrKeyNotFound
}

func (s *TieredStore) Set(ctx context.Context, key string, val []byte, ttl time.Duration) error {
	var lastErr error
	for i, tier := range s.tiers {
		if err := tier.Set(ctx, key, val, ttl); err != nil {
			lastErr = errors.WithMessagef(err, "tier %d", i)
		}
	}
	return lastErr
}

func (s *TieredStore) Del(ctx context.Context, key string) error {
	var lastErr error
	for i, tier := range s.tiers {
		if err := tier.Del(ctx, key); err != nil {
			lastErr = errors.WithMessagef(err, "tier %d", i)
		}
	}
	return lastErr
}

func (s *TieredStore) Incr(ctx context.Context, key string) (int64, error) {
	last := len(s.tiers) - 1
	n, err := s.tiers[last].Incr(ctx, key)
	if err != nil {
		return 0, err
	}
	for _, upper := range s.tiers[:last] {
		_ = upper.Del(ctx, key)
	}
	return n, nil
}

// Counter 只读最后一层，不提升到上层，其他进程的 Incr 立即可见
func (s *TieredStore) Counter(ctx context.Context, key string) (int64, error) {
	return Counter(ctx, s.tiers[len(s.tiers)-1], key)
}

func (s *TieredStore) Close() error {
	var lastErr error
	for i, tier := range s.tiers {
		if err := tier.Close(); err != nil {
			lastErr = errors.WithMessagef(err, "close tier %d failed", i)
		}
	}
	return lastErr
}
