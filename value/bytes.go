package value

import (
	"encoding/binary"
	"fmt"
	"math"
	"reflect"
	"unicode/utf8"
)

// Bytes 字节缓冲编解码器，线上值为 []byte，nil 表示 NULL
//
// 整数为定宽大端编码，有符号整数翻转符号位，浮点数翻转符号位或全部位，
// 编码结果的字节序与数值序一致
var Bytes Codec[[]byte] = BytesCodec{}

type BytesCodec struct{}

func (BytesCodec) Name() string {
	return "bytes"
}

func (BytesCodec) ColumnType(t reflect.Type, size int) (string, error) {
	switch t.Kind() {
	case reflect.Bool:
		return "bool", nil
	case reflect.Int8, reflect.Int16, reflect.Int32:
		return "int", nil
	case reflect.Int, reflect.Int64:
		return "bigint", nil
	case reflect.Uint8, reflect.Uint16, reflect.Uint32:
		return "int unsigned", nil
	case reflect.Uint, reflect.Uint64:
		return "bigint unsigned", nil
	case reflect.Float32, reflect.Float64:
		return "double", nil
	case reflect.String:
		if size > 0 {
			return fmt.Sprintf("varchar(%d)", size), nil
		}
		return "text", nil
	case reflect.Slice:
		if IsBytes(t) {
			return "blob", nil
		}
	}
	return "", unsupported(t)
}

func (BytesCodec) Null() []byte {
	return nil
}

func (BytesCodec) IsNull(v []byte) bool {
	return v == nil
}

func (BytesCodec) Encode(rv reflect.Value) ([]byte, error) {
	switch rv.Kind() {
	case reflect.Bool:
		if rv.Bool() {
			return []byte{1}, nil
		}
		return []byte{0}, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		bits := rv.Type().Bits()
		return putUint(uint64(rv.Int())^(1<<(bits-1)), bits/8), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return putUint(rv.Uint(), rv.Type().Bits()/8), nil
	case reflect.Float32:
		u := uint64(math.Float32bits(float32(rv.Float())))
		if u&(1<<31) != 0 {
			u = ^u & math.MaxUint32
		} else {
			u |= 1 << 31
		}
		return putUint(u, 4), nil
	case reflect.Float64:
		u := math.Float64bits(rv.Float())
		if u&(1<<63) != 0 {
			u = ^u
		} else {
			u |= 1 << 63
		}
		return putUint(u, 8), nil
	case reflect.String:
		b := make([]byte, rv.Len())
		copy(b, rv.String())
		return b, nil
	case reflect.Slice:
		if IsBytes(rv.Type()) {
			b := make([]byte, rv.Len())
			copy(b, rv.Bytes())
			return b, nil
		}
	}
	return nil, unsupported(rv.Type())
}

func (BytesCodec) Decode(v []byte, rv reflect.Value) error {
	t := rv.Type()
	switch t.Kind() {
	case reflect.Bool:
		if len(v) != 1 || v[0] > 1 {
			return Mismatch(t, v)
		}
		rv.SetBool(v[0] == 1)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		bits := t.Bits()
		if len(v) != bits/8 {
			return Mismatch(t, v)
		}
		u := getUint(v) ^ (1 << (bits - 1))
		shift := 64 - bits
		rv.SetInt(int64(u<<shift) >> shift)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if len(v) != t.Bits()/8 {
			return Mismatch(t, v)
		}
		rv.SetUint(getUint(v))
	case reflect.Float32:
		if len(v) != 4 {
			return Mismatch(t, v)
		}
		u := getUint(v)
		if u&(1<<31) != 0 {
			u &^= 1 << 31
		} else {
			u = ^u & math.MaxUint32
		}
		rv.SetFloat(float64(math.Float32frombits(uint32(u))))
	case reflect.Float64:
		if len(v) != 8 {
			return Mismatch(t, v)
		}
		u := getUint(v)
		if u&(1<<63) != 0 {
			u &^= 1 << 63
		} else {
			u = ^u
		}
		rv.SetFloat(math.Float64frombits(u))
	case reflect.String:
		if !utf8.Valid(v) {
			return Mismatch(t, v)
		}
		rv.SetString(string(v))
	case reflect.Slice:
		if !IsBytes(t) {
			return unsupported(t)
		}
		b := make([]byte, len(v))
		copy(b, v)
		rv.SetBytes(b)
	default:
		return unsupported(t)
	}
	return nil
}

func putUint(u uint64, width int) []byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], u)
	b := make([]byte, width)
	copy(b, buf[8-width:])
	return b
}

func getUint(b []byte) uint64 {
	var buf [8]byte
	copy(buf[8-len(b):], b)
	return binary.BigEndian.Uint64(buf[:])
}
