// Package validator 基于 validate 标签校验配置结构体
package validator

import (
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
)

var (
	once     sync.Once
	validate *validator.Validate
)

// 错误信息中的字段名使用 cfg 标签，与配置文件中的键一致
func instance() *validator.Validate {
	once.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(field reflect.StructField) string {
			name, _, _ := strings.Cut(field.Tag.Get("cfg"), ",")
			switch name {
			case "-":
				return ""
			case "":
				return field.Name
			}
			return name
		})
	})
	return validate
}

// ValidateStruct 校验结构体，nil 与非结构体直接通过
func ValidateStruct(object any) error {
	rv := reflect.ValueOf(object)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct || rv.Type() == reflect.TypeOf(time.Time{}) {
		return nil
	}
	if err := instance().Struct(rv.Interface()); err != nil {
		return errors.Wrap(err, "validate failed")
	}
	return nil
}
