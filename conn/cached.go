package conn

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/hatlonely/rdbx/cache"
	"github.com/hatlonely/rdbx/dialect"
	"github.com/hatlonely/rdbx/value"
)

type CachedOptions struct {
	// Namespace 缓存键前缀，共享缓存的多个连接需要不同的前缀
	Namespace string        `cfg:"namespace" def:"rdbx"`
	TTL       time.Duration `cfg:"ttl" def:"1m"`
}

// Cached 缓存 Query 的结果
//
// 任何 Exec、BatchExec 或事务提交都会递增代数，旧代数下的缓存随之失效
type Cached[V any] struct {
	conn       Conn[V]
	store      cache.Store
	serializer cache.Serializer[[]Row[V]]
	namespace  string
	ttl        time.Duration
}

func NewCachedWithOptions[V any](c Conn[V], store cache.Store, options *CachedOptions) (*Cached[V], error) {
	if c == nil || store == nil {
		return nil, errors.New("conn and store are required")
	}
	if options == nil {
		options = &CachedOptions{Namespace: "rdbx", TTL: time.Minute}
	}
	return &Cached[V]{
		conn:       c,
		store:      store,
		serializer: cache.NewMsgPackSerializer[[]Row[V]](),
		namespace:  options.Namespace,
		ttl:        options.TTL,
	}, nil
}

func (c *Cached[V]) Codec() value.Codec[V] {
	return c.conn.Codec()
}

func (c *Cached[V]) Dialect() *dialect.Dialect {
	return c.conn.Dialect()
}

func (c *Cached[V]) generationKey() string {
	return c.namespace + ":generation"
}

func (c *Cached[V]) generation(ctx context.Context) (string, error) {
	gen, err := cache.Counter(ctx, c.store, c.generationKey())
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(gen, 10), nil
}

func (c *Cached[V]) invalidate(ctx context.Context) error {
	if _, err := c.store.Incr(ctx, c.generationKey()); err != nil {
		return errors.WithMessage(err, "invalidate cache failed")
	}
	return nil
}

func (c *Cached[V]) key(gen string, stmt string, params Params[V]) (string, error) {
	buf, err := msgpack.Marshal(struct {
		Stmt   string
		Params Params[V]
	}{stmt, params})
	if err != nil {
		return "", errors.Wrap(err, "marshal cache key failed")
	}
	sum := sha256.Sum256(buf)
	return c.namespace + ":" + gen + ":" + hex.EncodeToString(sum[:]), nil
}

// Query 命中缓存时不访问数据库，缓存读写失败时退化为直接查询
func (c *Cached[V]) Query(ctx context.Context, stmt string, params Params[V]) ([]Row[V], error) {
	gen, err := c.generation(ctx)
	if err != nil {
		return c.conn.Query(ctx, stmt, params)
	}
	key, err := c.key(gen, stmt, params)
	if err != nil {
		return c.conn.Query(ctx, stmt, params)
	}

	if buf, err := c.store.Get(ctx, key); err == nil {
		if rows, err := c.serializer.Deserialize(buf); err == nil {
			return rows, nil
		}
	}

	rows, err := c.conn.Query(ctx, stmt, params)
	if err != nil {
		return nil, err
	}
	if buf, err := c.serializer.Serialize(rows); err == nil {
		_ = c.store.Set(ctx, key, buf, c.ttl)
	}
	return rows, nil
}

func (c *Cached[V]) Exec(ctx context.Context, stmt string, params Params[V]) (int64, error) {
	n, err := c.conn.Exec(ctx, stmt, params)
	if err != nil {
		return n, err
	}
	return n, c.invalidate(ctx)
}

func (c *Cached[V]) BatchExec(ctx context.Context, stmt string, params []Params[V]) error {
	err := c.conn.BatchExec(ctx, stmt, params)
	// 批量执行可能部分成功，失败时同样需要失效
	if ierr := c.invalidate(ctx); err == nil {
		err = ierr
	}
	return err
}

// Begin 事务内的查询不走缓存，提交后失效
func (c *Cached[V]) Begin(ctx context.Context) (Tx[V], error) {
	tx, err := c.conn.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return &cachedTx[V]{Tx: tx, cached: c, ctx: ctx}, nil
}

func (c *Cached[V]) Close() error {
	return c.conn.Close()
}

type cachedTx[V any] struct {
	Tx[V]
	cached *Cached[V]
	ctx    context.Context
}

func (t *cachedTx[V]) Commit() error {
	if err := t.Tx.Commit(); err != nil {
		return err
	}
	return t.cached.invalidate(t.ctx)
}
