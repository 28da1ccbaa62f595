package derive

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Tag rdb 标签解析结果
//
// 格式：`rdb:"column_name,type=varchar,size=50,unique,not_null,pk,index=idx_name"`，
// `rdb:"-"` 忽略该字段
type Tag struct {
	Column     string
	Ignore     bool
	Type       string
	Size       *int
	Unique     *bool
	NotNull    *bool
	PrimaryKey bool
	Indexes    []TagIndex
}

// TagIndex 标签上声明的索引，同名索引的列按字段声明顺序合并
type TagIndex struct {
	Name   string
	Unique bool
}

// ParseTag 解析 rdb 标签，未知的属性是错误
func ParseTag(tag string) (Tag, error) {
	var t Tag
	if tag == "-" {
		t.Ignore = true
		return t, nil
	}
	if tag == "" {
		return t, nil
	}

	parts := strings.Split(tag, ",")
	if first := strings.TrimSpace(parts[0]); !strings.Contains(first, "=") && !isFlag(first) {
		t.Column = first
		parts = parts[1:]
	}

	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		if key, val, ok := strings.Cut(part, "="); ok {
			key = strings.TrimSpace(key)
			val = strings.TrimSpace(val)
			switch key {
			case "type":
				t.Type = val
			case "size":
				size, err := strconv.Atoi(val)
				if err != nil || size <= 0 {
					return t, errors.Errorf("invalid size %q", val)
				}
				t.Size = &size
			case "unique", "not_null", "pk":
				b, err := strconv.ParseBool(val)
				if err != nil {
					return t, errors.Errorf("invalid %s %q", key, val)
				}
				t.setFlag(key, b)
			case "index":
				t.Indexes = append(t.Indexes, TagIndex{Name: val})
			case "unique_index":
				t.Indexes = append(t.Indexes, TagIndex{Name: val, Unique: true})
			default:
				return t, errors.Errorf("unsupported attribute %q", key)
			}
			continue
		}

		switch part {
		case "unique", "not_null", "required", "pk", "primary":
			t.setFlag(part, true)
		case "index":
			t.Indexes = append(t.Indexes, TagIndex{})
		default:
			return t, errors.Errorf("unsupported attribute %q", part)
		}
	}
	return t, nil
}

func isFlag(s string) bool {
	switch s {
	case "unique", "not_null", "required", "pk", "primary", "index":
		return true
	}
	return false
}

func (t *Tag) setFlag(key string, b bool) {
	switch key {
	case "unique":
		t.Unique = &b
	case "not_null", "required":
		t.NotNull = &b
	case "pk", "primary":
		t.PrimaryKey = b
	}
}
