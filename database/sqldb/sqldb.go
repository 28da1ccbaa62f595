// Package sqldb 基于 database/sql 的连接实现，由各后端提供驱动适配
package sqldb

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"

	"github.com/hatlonely/rdbx/conn"
	"github.com/hatlonely/rdbx/dialect"
	"github.com/hatlonely/rdbx/log/logger"
	"github.com/hatlonely/rdbx/value"
)

// Driver 后端驱动适配
type Driver[V any] interface {
	Codec() value.Codec[V]
	Dialect() *dialect.Dialect
	// Arg 把参数转换为 database/sql 接受的参数
	Arg(p conn.Param[V]) any
	// Scan 把扫描到 any 的列值转换为线上值
	Scan(src any) V
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
}

type executor[V any] struct {
	q      querier
	driver Driver[V]
	logger logger.Logger
}

func (e *executor[V]) Codec() value.Codec[V] {
	return e.driver.Codec()
}

func (e *executor[V]) Dialect() *dialect.Dialect {
	return e.driver.Dialect()
}

func (e *executor[V]) args(params conn.Params[V]) []any {
	args := make([]any, len(params))
	for i, p := range params {
		args[i] = e.driver.Arg(p)
	}
	return args
}

func (e *executor[V]) Exec(ctx context.Context, stmt string, params conn.Params[V]) (int64, error) {
	e.logger.DebugContext(ctx, "exec", "statement", stmt, "params", len(params))

	res, err := e.q.ExecContext(ctx, stmt, e.args(params)...)
	if err != nil {
		return 0, errors.Wrapf(err, "exec [%s] failed", stmt)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "rows affected failed")
	}
	return n, nil
}

func (e *executor[V]) Query(ctx context.Context, stmt string, params conn.Params[V]) ([]conn.Row[V], error) {
	e.logger.DebugContext(ctx, "query", "statement", stmt, "params", len(params))

	rows, err := e.q.QueryContext(ctx, stmt, e.args(params)...)
	if err != nil {
		return nil, errors.Wrapf(err, "query [%s] failed", stmt)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, errors.Wrap(err, "columns failed")
	}

	values := make([]any, len(columns))
	ptrs := make([]any, len(columns))
	for i := range values {
		ptrs[i] = &values[i]
	}

	var result []conn.Row[V]
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, errors.Wrap(err, "scan failed")
		}
		row := make(conn.Row[V], len(columns))
		for i, col := range columns {
			row[col] = e.driver.Scan(values[i])
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "rows failed")
	}
	return result, nil
}

// BatchExec 预编译一次，依次绑定每组参数执行，遇到错误立即返回，已执行的不回滚
func (e *executor[V]) BatchExec(ctx context.Context, stmt string, params []conn.Params[V]) error {
	e.logger.DebugContext(ctx, "batch exec", "statement", stmt, "batch", len(params))

	ps, err := e.q.PrepareContext(ctx, stmt)
	if err != nil {
		return errors.Wrapf(err, "prepare [%s] failed", stmt)
	}
	defer ps.Close()

	for i, p := range params {
		if _, err := ps.ExecContext(ctx, e.args(p)...); err != nil {
			return errors.Wrapf(err, "batch exec [%s] failed at %d", stmt, i)
		}
	}
	return nil
}

// Conn database/sql 连接，可以被多个调用方并发使用
type Conn[V any] struct {
	executor[V]
	db *sql.DB
}

// New l 为空时不输出日志
func New[V any](db *sql.DB, driver Driver[V], l logger.Logger) *Conn[V] {
	if l == nil {
		l = logger.Discard
	}
	return &Conn[V]{
		executor: executor[V]{q: db, driver: driver, logger: l},
		db:       db,
	}
}

// DB 底层连接池
func (c *Conn[V]) DB() *sql.DB {
	return c.db
}

func (c *Conn[V]) Begin(ctx context.Context) (conn.Tx[V], error) {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "begin tx failed")
	}
	return &Tx[V]{executor: executor[V]{q: tx, driver: c.driver, logger: c.logger}, tx: tx}, nil
}

func (c *Conn[V]) Close() error {
	return c.db.Close()
}

// Tx database/sql 事务
type Tx[V any] struct {
	executor[V]
	tx *sql.Tx
}

func (t *Tx[V]) Commit() error {
	return errors.Wrap(t.tx.Commit(), "commit failed")
}

func (t *Tx[V]) Rollback() error {
	return errors.Wrap(t.tx.Rollback(), "rollback failed")
}

var (
	_ conn.Conn[value.Native] = (*Conn[value.Native])(nil)
	_ conn.Tx[value.Native]   = (*Tx[value.Native])(nil)
)
