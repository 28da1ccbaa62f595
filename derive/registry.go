package derive

import (
	"reflect"
	"sync"

	"github.com/hatlonely/rdbx/dialect"
	"github.com/hatlonely/rdbx/value"
)

type modelKey struct {
	typ     reflect.Type
	wire    reflect.Type
	codec   string
	dialect string
}

var models sync.Map

// ModelOf 推导 T 的表模型，同一类型、编解码器、方言只推导一次
func ModelOf[T any, V any](codec value.Codec[V], d *dialect.Dialect) (*Model[V], error) {
	return ModelOfType(reflect.TypeOf((*T)(nil)).Elem(), codec, d)
}

// MustModelOf 同 ModelOf，推导失败时 panic
func MustModelOf[T any, V any](codec value.Codec[V], d *dialect.Dialect) *Model[V] {
	m, err := ModelOf[T](codec, d)
	if err != nil {
		panic(err)
	}
	return m
}

// ModelOfType 推导 rt 的表模型，rt 为指针时取其元素类型
func ModelOfType[V any](rt reflect.Type, codec value.Codec[V], d *dialect.Dialect) (*Model[V], error) {
	rt = value.Indirect(rt)
	key := modelKey{
		typ:     rt,
		wire:    reflect.TypeOf((*V)(nil)).Elem(),
		codec:   codec.Name(),
		dialect: d.Name,
	}
	if m, ok := models.Load(key); ok {
		return m.(*Model[V]), nil
	}

	m, err := build(rt, codec, d)
	if err != nil {
		return nil, err
	}
	actual, _ := models.LoadOrStore(key, m)
	return actual.(*Model[V]), nil
}
