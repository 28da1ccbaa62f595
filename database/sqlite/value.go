package sqlite

import (
	"fmt"
	"math"
	"reflect"
	"time"
	"unicode/utf8"

	"github.com/pkg/errors"

	rvalue "github.com/hatlonely/rdbx/value"
)

// Kind sqlite 存储类型
type Kind int

const (
	Null Kind = iota
	Integer
	Real
	Text
	Blob
)

func (k Kind) String() string {
	switch k {
	case Integer:
		return "INTEGER"
	case Real:
		return "REAL"
	case Text:
		return "TEXT"
	case Blob:
		return "BLOB"
	default:
		return "NULL"
	}
}

// Value sqlite 线上值，Kind 决定哪个字段有效
type Value struct {
	Kind Kind
	Int  int64   `msgpack:",omitempty"`
	Real float64 `msgpack:",omitempty"`
	Text string  `msgpack:",omitempty"`
	Blob []byte  `msgpack:",omitempty"`
}

func IntegerValue(n int64) Value {
	return Value{Kind: Integer, Int: n}
}

func RealValue(f float64) Value {
	return Value{Kind: Real, Real: f}
}

func TextValue(s string) Value {
	return Value{Kind: Text, Text: s}
}

func BlobValue(b []byte) Value {
	return Value{Kind: Blob, Blob: b}
}

func (v Value) String() string {
	switch v.Kind {
	case Integer:
		return fmt.Sprintf("INTEGER(%d)", v.Int)
	case Real:
		return fmt.Sprintf("REAL(%v)", v.Real)
	case Text:
		return fmt.Sprintf("TEXT(%q)", v.Text)
	case Blob:
		return fmt.Sprintf("BLOB(%d bytes)", len(v.Blob))
	default:
		return "NULL"
	}
}

// Arg 转换为驱动参数
func (v Value) Arg() any {
	switch v.Kind {
	case Integer:
		return v.Int
	case Real:
		return v.Real
	case Text:
		return v.Text
	case Blob:
		return v.Blob
	default:
		return nil
	}
}

// FromDriver 把驱动返回的列值转换为线上值
func FromDriver(src any) Value {
	switch s := src.(type) {
	case nil:
		return Value{}
	case int64:
		return IntegerValue(s)
	case bool:
		if s {
			return IntegerValue(1)
		}
		return IntegerValue(0)
	case float64:
		return RealValue(s)
	case string:
		return TextValue(s)
	case []byte:
		return BlobValue(s)
	case time.Time:
		return TextValue(s.Format(time.RFC3339Nano))
	default:
		return TextValue(fmt.Sprint(s))
	}
}

// Codec sqlite 编解码器
//
// 整数只能从 INTEGER 解码，浮点数可以从 REAL 或 INTEGER 解码，
// 字符串与字节切片在 TEXT 与 BLOB 之间互通
var Codec rvalue.Codec[Value] = codec{}

type codec struct{}

func (codec) Name() string {
	return "sqlite"
}

func (codec) ColumnType(t reflect.Type, size int) (string, error) {
	switch t.Kind() {
	case reflect.Bool, reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return "INTEGER", nil
	case reflect.Float32, reflect.Float64:
		return "REAL", nil
	case reflect.String:
		return "TEXT", nil
	case reflect.Slice:
		if rvalue.IsBytes(t) {
			return "BLOB", nil
		}
	}
	return "", errors.Wrapf(rvalue.ErrUnsupportedType, "%s", t)
}

func (codec) Null() Value {
	return Value{}
}

func (codec) IsNull(v Value) bool {
	return v.Kind == Null
}

func (codec) Encode(rv reflect.Value) (Value, error) {
	switch rv.Kind() {
	case reflect.Bool:
		if rv.Bool() {
			return IntegerValue(1), nil
		}
		return IntegerValue(0), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return IntegerValue(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u := rv.Uint()
		if u > math.MaxInt64 {
			return Value{}, &rvalue.ConversionError{Want: "INTEGER", Got: fmt.Sprintf("%s(%d)", rv.Type(), u)}
		}
		return IntegerValue(int64(u)), nil
	case reflect.Float32, reflect.Float64:
		return RealValue(rv.Float()), nil
	case reflect.String:
		return TextValue(rv.String()), nil
	case reflect.Slice:
		if rvalue.IsBytes(rv.Type()) {
			b := make([]byte, rv.Len())
			copy(b, rv.Bytes())
			return BlobValue(b), nil
		}
	}
	return Value{}, errors.Wrapf(rvalue.ErrUnsupportedType, "%s", rv.Type())
}

func (codec) Decode(v Value, rv reflect.Value) error {
	t := rv.Type()
	switch t.Kind() {
	case reflect.Bool:
		if v.Kind != Integer {
			return rvalue.Mismatch(t, v)
		}
		rv.SetBool(v.Int != 0)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if v.Kind != Integer || rv.OverflowInt(v.Int) {
			return rvalue.Mismatch(t, v)
		}
		rv.SetInt(v.Int)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if v.Kind != Integer || v.Int < 0 || rv.OverflowUint(uint64(v.Int)) {
			return rvalue.Mismatch(t, v)
		}
		rv.SetUint(uint64(v.Int))
	case reflect.Float32, reflect.Float64:
		switch v.Kind {
		case Real:
			rv.SetFloat(v.Real)
		case Integer:
			rv.SetFloat(float64(v.Int))
		default:
			return rvalue.Mismatch(t, v)
		}
	case reflect.String:
		switch v.Kind {
		case Text:
			rv.SetString(v.Text)
		case Blob:
			if !utf8.Valid(v.Blob) {
				return rvalue.Mismatch(t, v)
			}
			rv.SetString(string(v.Blob))
		default:
			return rvalue.Mismatch(t, v)
		}
	case reflect.Slice:
		if !rvalue.IsBytes(t) {
			return errors.Wrapf(rvalue.ErrUnsupportedType, "%s", t)
		}
		switch v.Kind {
		case Blob:
			b := make([]byte, len(v.Blob))
			copy(b, v.Blob)
			rv.SetBytes(b)
		case Text:
			rv.SetBytes([]byte(v.Text))
		default:
			return rvalue.Mismatch(t, v)
		}
	default:
		return errors.Wrapf(rvalue.ErrUnsupportedType, "%s", t)
	}
	return nil
}
