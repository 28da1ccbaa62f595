package log

import (
	"sync/atomic"

	"github.com/hatlonely/rdbx/log/logger"
)

var defaultLogger atomic.Pointer[logger.Logger]

func init() {
	l, err := logger.NewSLogWithOptions(&logger.SLogOptions{Level: "info", Format: "text"})
	if err != nil {
		panic("failed to initialize default logger: " + err.Error())
	}
	SetDefault(l)
}

// Default 进程级默认日志器
func Default() logger.Logger {
	return *defaultLogger.Load()
}

// SetDefault 替换默认日志器
func SetDefault(l logger.Logger) {
	defaultLogger.Store(&l)
}

// NewLoggerWithOptions options 为空时返回默认日志器
func NewLoggerWithOptions(options *logger.SLogOptions) (logger.Logger, error) {
	if options == nil {
		return Default(), nil
	}
	return logger.NewSLogWithOptions(options)
}
