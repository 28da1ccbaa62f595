package conn

import (
	"context"
	"reflect"

	"github.com/pkg/errors"

	"github.com/hatlonely/rdbx/derive"
	"github.com/hatlonely/rdbx/query"
)

func modelOf[T any, V any](ex Executor[V]) (*derive.Model[V], error) {
	return derive.ModelOf[T](ex.Codec(), ex.Dialect())
}

// CreateTable 建表，并创建标签上声明的索引
func CreateTable[T any, V any](ctx context.Context, ex Executor[V]) error {
	m, err := modelOf[T](ex)
	if err != nil {
		return err
	}
	if _, err := ex.Exec(ctx, m.CreateTableSQL(), nil); err != nil {
		return errors.WithMessagef(err, "create table %s failed", m.Table().Name)
	}
	for _, stmt := range m.DeclaredIndexSQL() {
		if _, err := ex.Exec(ctx, stmt, nil); err != nil {
			return errors.WithMessagef(err, "create index on %s failed", m.Table().Name)
		}
	}
	return nil
}

func DropTable[T any, V any](ctx context.Context, ex Executor[V]) error {
	m, err := modelOf[T](ex)
	if err != nil {
		return err
	}
	if _, err := ex.Exec(ctx, m.DropTableSQL(), nil); err != nil {
		return errors.WithMessagef(err, "drop table %s failed", m.Table().Name)
	}
	return nil
}

func CreateIndex[T any, V any](ctx context.Context, ex Executor[V], name string, columns ...string) error {
	return createIndex[T](ctx, ex, name, false, columns)
}

func CreateUniqueIndex[T any, V any](ctx context.Context, ex Executor[V], name string, columns ...string) error {
	return createIndex[T](ctx, ex, name, true, columns)
}

func createIndex[T any, V any](ctx context.Context, ex Executor[V], name string, unique bool, columns []string) error {
	m, err := modelOf[T](ex)
	if err != nil {
		return err
	}
	stmt, err := m.CreateIndexSQL(name, unique, columns...)
	if err != nil {
		return err
	}
	if _, err := ex.Exec(ctx, stmt, nil); err != nil {
		return errors.WithMessagef(err, "create index %s failed", name)
	}
	return nil
}

func DropIndex[T any, V any](ctx context.Context, ex Executor[V], name string) error {
	m, err := modelOf[T](ex)
	if err != nil {
		return err
	}
	if _, err := ex.Exec(ctx, m.DropIndexSQL(name), nil); err != nil {
		return errors.WithMessagef(err, "drop index %s failed", name)
	}
	return nil
}

// Create 插入一条记录
func Create[T any, V any](ctx context.Context, ex Executor[V], rec T) error {
	m, err := modelOf[T](ex)
	if err != nil {
		return err
	}
	stmt, err := m.InsertStatement(rec)
	if err != nil {
		return err
	}
	if _, err := ex.Exec(ctx, stmt.SQL, stmt.Params); err != nil {
		return errors.WithMessagef(err, "insert into %s failed", m.Table().Name)
	}
	return nil
}

// CreateAll 批量插入，不保证原子性，需要原子性时在事务中调用
func CreateAll[T any, V any](ctx context.Context, ex Executor[V], recs []T) error {
	if len(recs) == 0 {
		return nil
	}
	m, err := modelOf[T](ex)
	if err != nil {
		return err
	}
	batch := make([]Params[V], 0, len(recs))
	for i := range recs {
		params, err := m.Encode(&recs[i])
		if err != nil {
			return errors.WithMessagef(err, "record %d", i)
		}
		batch = append(batch, params)
	}
	if err := ex.BatchExec(ctx, m.InsertSQL(), batch); err != nil {
		return errors.WithMessagef(err, "batch insert into %s failed", m.Table().Name)
	}
	return nil
}

// Save 先按主键更新，没有更新到行时插入
//
// 两条语句之间没有原子性保证，并发写同一主键时需要在事务中调用
func Save[T any, V any](ctx context.Context, ex Executor[V], rec T) error {
	m, err := modelOf[T](ex)
	if err != nil {
		return err
	}
	update, err := m.UpdateStatement(rec)
	if err != nil {
		return err
	}
	n, err := ex.Exec(ctx, update.SQL, update.Params)
	if err != nil {
		return errors.WithMessagef(err, "update %s failed", m.Table().Name)
	}
	if n > 0 {
		return nil
	}

	insert, err := m.InsertStatement(rec)
	if err != nil {
		return err
	}
	if _, err := ex.Exec(ctx, insert.SQL, insert.Params); err != nil {
		return errors.WithMessagef(err, "insert into %s failed", m.Table().Name)
	}
	return nil
}

// Query 执行任意查询并把每行映射为 T，T 实现 RowMapper 时使用手写映射
func Query[T any, V any](ctx context.Context, ex Executor[V], stmt string, params Params[V]) ([]T, error) {
	rows, err := ex.Query(ctx, stmt, params)
	if err != nil {
		return nil, err
	}
	return decodeRows[T](ex, rows)
}

func decodeRows[T any, V any](ex Executor[V], rows []Row[V]) ([]T, error) {
	// 不是 RowMapper 的类型提前推导模型，推导错误不必等到有数据时才暴露
	if _, ok := any(new(T)).(derive.RowMapper[V]); !ok {
		if _, err := derive.ModelOfType(reflect.TypeOf((*T)(nil)).Elem(), ex.Codec(), ex.Dialect()); err != nil {
			return nil, err
		}
	}
	out := make([]T, len(rows))
	for i, row := range rows {
		if err := derive.DecodeInto(ex.Codec(), ex.Dialect(), row, &out[i]); err != nil {
			return nil, errors.WithMessagef(err, "row %d", i)
		}
	}
	return out, nil
}

// Load 以 T 的表为主表执行查询，自动追加 T 的所有列
func Load[T any, V any](ctx context.Context, ex Executor[V], b query.Builder) ([]T, error) {
	return Load2[T, T](ctx, ex, b)
}

// Load2 以 T 的表与列执行查询，结果映射为 U
//
// 用于 join 视图：调用方在 b 中追加额外的列，U 通过 RowMapper 消费这些列
func Load2[T any, U any, V any](ctx context.Context, ex Executor[V], b query.Builder) ([]U, error) {
	m, err := modelOf[T](ex)
	if err != nil {
		return nil, err
	}
	if err := b.Err(); err != nil {
		return nil, err
	}
	b = b.Table(m.Table().Name).AppendSelects(m.QualifiedColumns()...)

	stmt, args := b.BuildWithArgs()
	params, err := Args(ex.Codec(), args)
	if err != nil {
		return nil, err
	}
	return Query[U](ctx, ex, ex.Dialect().Rebind(stmt), params)
}

// First 同 Load，限制一行，没有记录时返回 ErrNotFound
func First[T any, V any](ctx context.Context, ex Executor[V], b query.Builder) (T, error) {
	return First2[T, T](ctx, ex, b)
}

func First2[T any, U any, V any](ctx context.Context, ex Executor[V], b query.Builder) (U, error) {
	var zero U
	rows, err := Load2[T, U](ctx, ex, b.Limit(1))
	if err != nil {
		return zero, err
	}
	if len(rows) == 0 {
		m, _ := modelOf[T](ex)
		return zero, errors.Wrapf(ErrNotFound, "table %s", m.Table().Name)
	}
	return rows[0], nil
}
