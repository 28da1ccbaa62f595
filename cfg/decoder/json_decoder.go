package decoder

import (
	"bytes"
	"encoding/json"

	"github.com/pkg/errors"
)

// JsonDecoder JSON 解码器，数字保留为 json.Number 以免大整数丢失精度
type JsonDecoder struct{}

func NewJsonDecoder() *JsonDecoder {
	return &JsonDecoder{}
}

func (j *JsonDecoder) Decode(data []byte) (map[string]any, error) {
	result := map[string]any{}
	if len(bytes.TrimSpace(data)) == 0 {
		return result, nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&result); err != nil {
		return nil, errors.Wrap(err, "failed to decode JSON")
	}
	return result, nil
}
