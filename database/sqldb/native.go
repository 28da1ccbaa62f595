package sqldb

import (
	"time"

	"github.com/hatlonely/rdbx/conn"
	"github.com/hatlonely/rdbx/dialect"
	"github.com/hatlonely/rdbx/value"
)

// NativeDriver 以驱动原生值为线上值的适配，参数按位置绑定
type NativeDriver struct {
	codec   value.Codec[value.Native]
	dialect *dialect.Dialect
}

func NewNativeDriver(codec value.Codec[value.Native], d *dialect.Dialect) *NativeDriver {
	return &NativeDriver{codec: codec, dialect: d}
}

func (d *NativeDriver) Codec() value.Codec[value.Native] {
	return d.codec
}

func (d *NativeDriver) Dialect() *dialect.Dialect {
	return d.dialect
}

func (d *NativeDriver) Arg(p conn.Param[value.Native]) any {
	return p.Value.V
}

// Scan 时间按 RFC3339Nano 文本返回，其他类型原样返回
func (d *NativeDriver) Scan(src any) value.Native {
	if t, ok := src.(time.Time); ok {
		return value.Native{V: t.Format(time.RFC3339Nano)}
	}
	return value.Native{V: src}
}
