package decoder

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/ini.v1"
)

// IniDecoder INI 解码器
//
// 默认 section 的键放在顶层，section 名中的 . 表示嵌套，如 [sqlite.logger]。
// 值按 bool、整数、浮点数、字符串的顺序尝试转换，重复的键合并为数组
type IniDecoder struct{}

func NewIniDecoder() *IniDecoder {
	return &IniDecoder{}
}

func (i *IniDecoder) Decode(data []byte) (map[string]any, error) {
	file, err := ini.LoadSources(ini.LoadOptions{
		AllowShadows:             true,
		SpaceBeforeInlineComment: true,
	}, data)
	if err != nil {
		return nil, errors.Wrap(err, "failed to decode INI")
	}

	result := map[string]any{}
	for _, section := range file.Sections() {
		target := result
		if name := section.Name(); name != ini.DefaultSection {
			for _, part := range strings.Split(name, ".") {
				child, ok := target[part].(map[string]any)
				if !ok {
					child = map[string]any{}
					target[part] = child
				}
				target = child
			}
		}
		for _, key := range section.Keys() {
			target[key.Name()] = iniValue(key)
		}
	}
	return result, nil
}

func iniValue(key *ini.Key) any {
	shadows := key.ValueWithShadows()
	if len(shadows) > 1 {
		values := make([]any, len(shadows))
		for i, s := range shadows {
			values[i] = iniScalar(s)
		}
		return values
	}
	return iniScalar(key.String())
}

func iniScalar(s string) any {
	switch strings.ToLower(s) {
	case "true":
		return true
	case "false":
		return false
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}
