package decoder

import (
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// YamlDecoder YAML 解码器
type YamlDecoder struct{}

func NewYamlDecoder() *YamlDecoder {
	return &YamlDecoder{}
}

func (y *YamlDecoder) Decode(data []byte) (map[string]any, error) {
	result := map[string]any{}
	if err := yaml.Unmarshal(data, &result); err != nil {
		return nil, errors.Wrap(err, "failed to decode YAML")
	}
	return result, nil
}
