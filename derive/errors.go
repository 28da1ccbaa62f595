package derive

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrInvalidModel 结构体无法推导出表模型
var ErrInvalidModel = errors.New("invalid model")

// GenerationError 推导表模型失败，属于编码错误，任何对该类型的使用都会触发
type GenerationError struct {
	Type   string
	Field  string
	Reason string
	Err    error
}

func (e *GenerationError) Error() string {
	msg := e.Type
	if e.Field != "" {
		msg += "." + e.Field
	}
	msg += ": " + e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *GenerationError) Is(target error) bool {
	return target == ErrInvalidModel
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

// MissingColumnError 查询结果缺少模型需要的列
type MissingColumnError struct {
	Table  string
	Column string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("table %s: column %s is missing from row", e.Table, e.Column)
}
