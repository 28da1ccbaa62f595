package cache

import (
	"github.com/vmihailenco/msgpack/v5"
)

type Serializer[T any] interface {
	Serialize(from T) ([]byte, error)
	Deserialize(to []byte) (T, error)
}

// MsgPackSerializer msgpack 序列化
type MsgPackSerializer[T any] struct{}

func NewMsgPackSerializer[T any]() *MsgPackSerializer[T] {
	return &MsgPackSerializer[T]{}
}

func (s *MsgPackSerializer[T]) Serialize(from T) ([]byte, error) {
	return msgpack.Marshal(from)
}

func (s *MsgPackSerializer[T]) Deserialize(to []byte) (T, error) {
	var result T
	err := msgpack.Unmarshal(to, &result)
	return result, err
}
