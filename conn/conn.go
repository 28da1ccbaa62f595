// Package conn 定义后端连接契约，以及建立在契约之上的建表、写入、加载等通用操作
package conn

import (
	"context"

	"github.com/pkg/errors"

	"github.com/hatlonely/rdbx/derive"
	"github.com/hatlonely/rdbx/dialect"
	"github.com/hatlonely/rdbx/value"
)

// ErrNotFound First 没有查到记录
var ErrNotFound = errors.New("record not found")

type (
	Row[V any]    = derive.Row[V]
	Param[V any]  = derive.Param[V]
	Params[V any] = derive.Params[V]
)

// Executor 执行 SQL 的最小契约，Conn 与 Tx 都实现它
//
// Params 中名称为空的参数按位置绑定，其余按方言的占位符风格绑定
type Executor[V any] interface {
	Codec() value.Codec[V]
	Dialect() *dialect.Dialect
	// Exec 执行语句，返回影响的行数
	Exec(ctx context.Context, stmt string, params Params[V]) (int64, error)
	// Query 执行查询，每行为列名到线上值的映射
	Query(ctx context.Context, stmt string, params Params[V]) ([]Row[V], error)
	// BatchExec 同一语句依次绑定每组参数执行，不保证原子性
	BatchExec(ctx context.Context, stmt string, params []Params[V]) error
}

// Conn 后端连接
//
// 是否允许多个调用方并发使用由后端决定，未声明并发安全的后端一次只能由一个调用方使用
type Conn[V any] interface {
	Executor[V]
	Begin(ctx context.Context) (Tx[V], error)
	Close() error
}

// Tx 事务，不能并发使用
type Tx[V any] interface {
	Executor[V]
	Commit() error
	Rollback() error
}

// WithTx 在事务中执行 fn，fn 返回错误或 panic 时回滚
func WithTx[V any](ctx context.Context, c Conn[V], fn func(tx Tx[V]) error) (err error) {
	tx, err := c.Begin(ctx)
	if err != nil {
		return errors.WithMessage(err, "begin failed")
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rerr := tx.Rollback(); rerr != nil {
			return errors.WithMessagef(err, "rollback failed: %v", rerr)
		}
		return err
	}
	return errors.WithMessage(tx.Commit(), "commit failed")
}

// Args 把查询参数编码为按位置绑定的参数
func Args[V any](codec value.Codec[V], args []any) (Params[V], error) {
	params := make(Params[V], 0, len(args))
	for i, arg := range args {
		v, err := value.EncodeAny(codec, arg)
		if err != nil {
			return nil, errors.WithMessagef(err, "arg %d", i)
		}
		params = append(params, Param[V]{Value: v})
	}
	return params, nil
}
