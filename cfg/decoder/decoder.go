// Package decoder 把配置文件内容解码为 map
package decoder

import (
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// Decoder 配置解码器
type Decoder interface {
	// Decode 将原始数据解码为嵌套的 map，空内容返回空 map
	Decode(data []byte) (map[string]any, error)
}

// NewDecoder 按格式名创建解码器，支持 json yaml yml toml ini
func NewDecoder(format string) (Decoder, error) {
	switch strings.ToLower(strings.TrimPrefix(format, ".")) {
	case "json":
		return NewJsonDecoder(), nil
	case "yaml", "yml":
		return NewYamlDecoder(), nil
	case "toml":
		return NewTomlDecoder(), nil
	case "ini":
		return NewIniDecoder(), nil
	}
	return nil, errors.Errorf("unsupported config format %q", format)
}

// NewDecoderForPath 按文件扩展名创建解码器
func NewDecoderForPath(path string) (Decoder, error) {
	return NewDecoder(filepath.Ext(path))
}
