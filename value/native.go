package value

import (
	"fmt"
	"math"
	"reflect"
	"strconv"

	"github.com/pkg/errors"
	"github.com/spf13/cast"
)

// Native 驱动原生值，V 为 nil 表示 NULL
//
// V 只会是 nil, bool, int64, uint64, float64, string, []byte 之一
type Native struct {
	V any
}

func (n Native) String() string {
	return describe(n.V)
}

// NativeTypes 后端的列类型名称表
type NativeTypes struct {
	Bool           string
	Int            string
	BigInt         string
	UnsignedInt    string
	UnsignedBigInt string
	Float          string
	Double         string
	VarChar        string // fmt 格式，参数为 size
	Text           string
	Blob           string
}

// NativeCodec 原生值编解码器
//
// 驱动可能把数字以 []byte 返回，解码时按目标类型解析；
// 同类数值之间宽松转换，跨类型（文本到整数）一律报错
type NativeCodec struct {
	name  string
	types NativeTypes
}

func NewNativeCodec(name string, types NativeTypes) *NativeCodec {
	return &NativeCodec{name: name, types: types}
}

func (c *NativeCodec) Name() string {
	return c.name
}

func (c *NativeCodec) ColumnType(t reflect.Type, size int) (string, error) {
	switch t.Kind() {
	case reflect.Bool:
		return c.types.Bool, nil
	case reflect.Int8, reflect.Int16, reflect.Int32:
		return c.types.Int, nil
	case reflect.Int, reflect.Int64:
		return c.types.BigInt, nil
	case reflect.Uint8, reflect.Uint16, reflect.Uint32:
		return c.types.UnsignedInt, nil
	case reflect.Uint, reflect.Uint64:
		return c.types.UnsignedBigInt, nil
	case reflect.Float32:
		return c.types.Float, nil
	case reflect.Float64:
		return c.types.Double, nil
	case reflect.String:
		if size > 0 {
			return fmt.Sprintf(c.types.VarChar, size), nil
		}
		return c.types.Text, nil
	case reflect.Slice:
		if IsBytes(t) {
			return c.types.Blob, nil
		}
	}
	return "", unsupported(t)
}

func (c *NativeCodec) Null() Native {
	return Native{}
}

func (c *NativeCodec) IsNull(v Native) bool {
	return v.V == nil
}

func (c *NativeCodec) Encode(rv reflect.Value) (Native, error) {
	switch rv.Kind() {
	case reflect.Bool:
		return Native{rv.Bool()}, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return Native{rv.Int()}, nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u := rv.Uint()
		if u <= math.MaxInt64 {
			return Native{int64(u)}, nil
		}
		// 超出 int64 的无符号数以十进制文本传给驱动
		return Native{strconv.FormatUint(u, 10)}, nil
	case reflect.Float32, reflect.Float64:
		return Native{rv.Float()}, nil
	case reflect.String:
		return Native{rv.String()}, nil
	case reflect.Slice:
		if IsBytes(rv.Type()) {
			b := make([]byte, rv.Len())
			copy(b, rv.Bytes())
			return Native{b}, nil
		}
	}
	return Native{}, unsupported(rv.Type())
}

func (c *NativeCodec) Decode(v Native, rv reflect.Value) error {
	t := rv.Type()
	switch t.Kind() {
	case reflect.Bool:
		b, err := nativeBool(v.V)
		if err != nil {
			return Mismatch(t, v.V)
		}
		rv.SetBool(b)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := nativeInt(v.V)
		if err != nil || rv.OverflowInt(n) {
			return Mismatch(t, v.V)
		}
		rv.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := nativeUint(v.V)
		if err != nil || rv.OverflowUint(n) {
			return Mismatch(t, v.V)
		}
		rv.SetUint(n)
	case reflect.Float32, reflect.Float64:
		f, err := nativeFloat(v.V)
		if err != nil {
			return Mismatch(t, v.V)
		}
		rv.SetFloat(f)
	case reflect.String:
		switch s := v.V.(type) {
		case string:
			rv.SetString(s)
		case []byte:
			rv.SetString(string(s))
		default:
			return Mismatch(t, v.V)
		}
	case reflect.Slice:
		if !IsBytes(t) {
			return unsupported(t)
		}
		switch s := v.V.(type) {
		case []byte:
			b := make([]byte, len(s))
			copy(b, s)
			rv.SetBytes(b)
		case string:
			rv.SetBytes([]byte(s))
		default:
			return Mismatch(t, v.V)
		}
	default:
		return unsupported(t)
	}
	return nil
}

var errNotNumeric = errors.New("not numeric")

func nativeBool(src any) (bool, error) {
	switch s := src.(type) {
	case bool:
		return s, nil
	case []byte:
		return strconv.ParseBool(string(s))
	case string, float32, float64:
		return false, errNotNumeric
	}
	n, err := cast.ToInt64E(src)
	if err != nil {
		return false, err
	}
	if n != 0 && n != 1 {
		return false, errNotNumeric
	}
	return n == 1, nil
}

func nativeInt(src any) (int64, error) {
	switch s := src.(type) {
	case []byte:
		return strconv.ParseInt(string(s), 10, 64)
	case uint64:
		if s > math.MaxInt64 {
			return 0, errNotNumeric
		}
		return int64(s), nil
	case uint:
		if uint64(s) > math.MaxInt64 {
			return 0, errNotNumeric
		}
		return int64(s), nil
	case bool, string, float32, float64:
		return 0, errNotNumeric
	}
	return cast.ToInt64E(src)
}

func nativeUint(src any) (uint64, error) {
	switch s := src.(type) {
	case []byte:
		return strconv.ParseUint(string(s), 10, 64)
	case uint64:
		return s, nil
	case string:
		// Encode 把超出 int64 的无符号数写成十进制文本，只接受这种形式
		u, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return 0, errNotNumeric
		}
		return u, nil
	case bool, float32, float64:
		return 0, errNotNumeric
	}
	n, err := cast.ToInt64E(src)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, errNotNumeric
	}
	return uint64(n), nil
}

func nativeFloat(src any) (float64, error) {
	switch s := src.(type) {
	case []byte:
		return strconv.ParseFloat(string(s), 64)
	case bool, string:
		return 0, errNotNumeric
	}
	return cast.ToFloat64E(src)
}
