package writer

import (
	"io"

	"github.com/pkg/errors"
)

// Writer 日志输出器接口
type Writer interface {
	io.Writer
	io.Closer
}

// Options 输出器配置，Type 取值 console, file, multi
type Options struct {
	Type    string                `cfg:"type" def:"console" validate:"oneof=console file multi"`
	Console *ConsoleWriterOptions `cfg:"console"`
	File    *FileWriterOptions    `cfg:"file"`
	Multi   []*Options            `cfg:"multi"`
}

// NewWriterWithOptions 按 Type 创建输出器
func NewWriterWithOptions(options *Options) (Writer, error) {
	if options == nil {
		return NewConsoleWriterWithOptions(nil)
	}
	switch options.Type {
	case "", "console":
		return NewConsoleWriterWithOptions(options.Console)
	case "file":
		return NewFileWriterWithOptions(options.File)
	case "multi":
		return NewMultiWriterWithOptions(options.Multi)
	default:
		return nil, errors.Errorf("unsupported writer type: %s", options.Type)
	}
}
