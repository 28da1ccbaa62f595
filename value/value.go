package value

import (
	"fmt"
	"reflect"

	"github.com/pkg/errors"
)

// ErrUnsupportedType Go 类型没有对应的线上表示
var ErrUnsupportedType = errors.New("unsupported type")

// Codec 后端线上值编解码器
//
// V 为后端驱动交换的值类型，每个后端实现一次，覆盖所有支持的 Go 标量。
// 指针类型作为可空类型由 Encode/Decode/ColumnType 统一处理，实现方只需要处理非指针标量
type Codec[V any] interface {
	// Name 编解码器名称，参与模型缓存的 key
	Name() string
	// ColumnType Go 类型在该后端的列类型，t 不会是指针
	ColumnType(t reflect.Type, size int) (string, error)
	// Encode 序列化非指针标量
	Encode(rv reflect.Value) (V, error)
	// Decode 反序列化到可设置的非指针标量
	Decode(v V, rv reflect.Value) error
	// Null 空值
	Null() V
	// IsNull 是否为空值
	IsNull(v V) bool
}

// ConversionError 线上值与目标类型不兼容
type ConversionError struct {
	Column string
	Want   string
	Got    string
}

func (e *ConversionError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("column %s: cannot convert %s to %s", e.Column, e.Got, e.Want)
	}
	return fmt.Sprintf("cannot convert %s to %s", e.Got, e.Want)
}

// Mismatch 构造目标类型为 t 的转换错误
func Mismatch(t reflect.Type, got any) error {
	return &ConversionError{Want: t.String(), Got: describe(got)}
}

func describe(v any) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case string:
		return fmt.Sprintf("text %q", x)
	case []byte:
		return fmt.Sprintf("%d bytes", len(x))
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprintf("%T(%v)", v, v)
	}
}

// Indirect 去掉类型上的所有指针层
func Indirect(t reflect.Type) reflect.Type {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t
}

// IsBytes t 是否为字节切片
func IsBytes(t reflect.Type) bool {
	return t.Kind() == reflect.Slice && t.Elem().Kind() == reflect.Uint8
}

// ColumnType 可空类型与基础类型共用同一列类型
func ColumnType[V any](c Codec[V], t reflect.Type, size int) (string, error) {
	return c.ColumnType(Indirect(t), size)
}

// Encode nil 指针编码为空值，非 nil 指针编码其指向的值
func Encode[V any](c Codec[V], rv reflect.Value) (V, error) {
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return c.Null(), nil
		}
		rv = rv.Elem()
	}
	return c.Encode(rv)
}

// Decode 空值解码到指针得到 nil，解码到非指针类型是错误
func Decode[V any](c Codec[V], v V, rv reflect.Value) error {
	if rv.Kind() == reflect.Pointer {
		if c.IsNull(v) {
			rv.Set(reflect.Zero(rv.Type()))
			return nil
		}
		elem := reflect.New(rv.Type().Elem())
		if err := Decode(c, v, elem.Elem()); err != nil {
			return err
		}
		rv.Set(elem)
		return nil
	}
	if c.IsNull(v) {
		return Mismatch(rv.Type(), nil)
	}
	return c.Decode(v, rv)
}

// EncodeAny 编码查询参数，nil 编码为空值
func EncodeAny[V any](c Codec[V], arg any) (V, error) {
	if arg == nil {
		return c.Null(), nil
	}
	return Encode(c, reflect.ValueOf(arg))
}

// Serialize 把 Go 值编码为线上值
func Serialize[T any, V any](c Codec[V], v T) (V, error) {
	return Encode(c, reflect.ValueOf(&v).Elem())
}

// Deserialize 把线上值解码为 Go 值
func Deserialize[T any, V any](c Codec[V], v V) (T, error) {
	var t T
	err := Decode(c, v, reflect.ValueOf(&t).Elem())
	return t, err
}

func unsupported(t reflect.Type) error {
	return errors.Wrapf(ErrUnsupportedType, "%s", t)
}
