package derive

import (
	"reflect"

	"github.com/pkg/errors"

	"github.com/hatlonely/rdbx/dialect"
	"github.com/hatlonely/rdbx/value"
)

// Param 具名参数
type Param[V any] struct {
	Name  string
	Value V
}

// Params 参数列表，顺序即字段声明顺序
type Params[V any] []Param[V]

func (p Params[V]) Names() []string {
	names := make([]string, len(p))
	for i := range p {
		names[i] = p[i].Name
	}
	return names
}

func (p Params[V]) Values() []V {
	values := make([]V, len(p))
	for i := range p {
		values[i] = p[i].Value
	}
	return values
}

// Get 按名称取参数值
func (p Params[V]) Get(name string) (V, bool) {
	for i := range p {
		if p[i].Name == name {
			return p[i].Value, true
		}
	}
	var zero V
	return zero, false
}

// Row 查询结果的一行，列名到线上值
type Row[V any] map[string]V

// RowMapper 手写的行映射，用于 join 视图等无法由标签推导的类型
type RowMapper[V any] interface {
	MapRow(codec value.Codec[V], d *dialect.Dialect, row Row[V]) error
}

func (m *Model[V]) record(rec any) (reflect.Value, error) {
	rv := reflect.ValueOf(rec)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return rv, errors.Errorf("nil %s", rv.Type())
		}
		rv = rv.Elem()
	}
	if rv.Type() != m.typ {
		return rv, errors.Errorf("expected %s, got %T", m.typ, rec)
	}
	return rv, nil
}

// Encode 写映射，按字段声明顺序输出 (列名, 线上值)
func (m *Model[V]) Encode(rec any) (Params[V], error) {
	rv, err := m.record(rec)
	if err != nil {
		return nil, err
	}
	params := make(Params[V], 0, len(m.fields))
	for _, f := range m.fields {
		v, err := value.Encode(m.codec, rv.FieldByIndex(f.index))
		if err != nil {
			return nil, withColumn(err, f.column)
		}
		params = append(params, Param[V]{Name: f.column, Value: v})
	}
	return params, nil
}

// Decode 读映射，row 缺少列时返回 *MissingColumnError
func (m *Model[V]) Decode(row Row[V], dst any) error {
	rv := reflect.ValueOf(dst)
	if rv.Kind() != reflect.Pointer || rv.IsNil() || rv.Elem().Type() != m.typ {
		return errors.Errorf("expected *%s, got %T", m.typ, dst)
	}
	rv = rv.Elem()
	for _, f := range m.fields {
		v, ok := row[f.column]
		if !ok {
			return &MissingColumnError{Table: m.table.Name, Column: f.column}
		}
		if err := value.Decode(m.codec, v, rv.FieldByIndex(f.index)); err != nil {
			return withColumn(err, f.column)
		}
	}
	return nil
}

// MapRow 把一行映射为记录
func MapRow[T any, V any](m *Model[V], row Row[V]) (T, error) {
	var t T
	err := m.Decode(row, &t)
	return t, err
}

// DecodeInto 解码一行到 dst，dst 实现 RowMapper 时使用手写映射
func DecodeInto[V any](codec value.Codec[V], d *dialect.Dialect, row Row[V], dst any) error {
	if rm, ok := dst.(RowMapper[V]); ok {
		return rm.MapRow(codec, d, row)
	}
	m, err := ModelOfType(reflect.TypeOf(dst), codec, d)
	if err != nil {
		return err
	}
	return m.Decode(row, dst)
}

func withColumn(err error, column string) error {
	var ce *value.ConversionError
	if errors.As(err, &ce) && ce.Column == "" {
		ce.Column = column
		return ce
	}
	return errors.WithMessagef(err, "column %s", column)
}
