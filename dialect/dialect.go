package dialect

import (
	"strconv"
	"strings"
	"unicode"
)

// PlaceholderStyle 参数占位符风格
type PlaceholderStyle int

const (
	// Named :col
	Named PlaceholderStyle = iota
	// Question ?
	Question
	// Dollar $n
	Dollar
)

// Render 渲染第 n 个参数（从 1 开始）的占位符
func (s PlaceholderStyle) Render(column string, n int) string {
	switch s {
	case Question:
		return "?"
	case Dollar:
		return "$" + strconv.Itoa(n)
	default:
		return ":" + column
	}
}

// Positional 参数是否按位置绑定
func (s PlaceholderStyle) Positional() bool {
	return s != Named
}

// Bindable 列名能否作为参数名绑定
//
// database/sql 要求具名参数以字母开头，后续只含字母、数字和下划线
func (s PlaceholderStyle) Bindable(column string) bool {
	if s.Positional() {
		return true
	}
	for i, r := range column {
		if i == 0 && !unicode.IsLetter(r) {
			return false
		}
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' {
			return false
		}
	}
	return column != ""
}

// PrimaryKeyStyle 主键声明风格
type PrimaryKeyStyle int

const (
	// PrimaryKeyConstraint 表尾 CONSTRAINT primary_key PRIMARY KEY(a,b)
	PrimaryKeyConstraint PrimaryKeyStyle = iota
	// PrimaryKeyInline 单列主键在列定义中声明，联合主键仍使用表尾约束
	PrimaryKeyInline
)

// Dialect SQL 方言
type Dialect struct {
	Name             string
	Placeholder      PlaceholderStyle
	PrimaryKey       PrimaryKeyStyle
	IndexIfNotExists bool
	DropIndexOnTable bool
}

var (
	Generic = &Dialect{
		Name:             "generic",
		Placeholder:      Named,
		PrimaryKey:       PrimaryKeyConstraint,
		IndexIfNotExists: true,
	}
	SQLite = &Dialect{
		Name:             "sqlite3",
		Placeholder:      Named,
		PrimaryKey:       PrimaryKeyConstraint,
		IndexIfNotExists: true,
	}
	MySQL = &Dialect{
		Name:             "mysql",
		Placeholder:      Question,
		PrimaryKey:       PrimaryKeyConstraint,
		DropIndexOnTable: true,
	}
	Postgres = &Dialect{
		Name:             "postgres",
		Placeholder:      Dollar,
		PrimaryKey:       PrimaryKeyInline,
		IndexIfNotExists: true,
	}
)

// Rebind 把引号外的 ? 改写为 $n，其他风格原样返回
func (d *Dialect) Rebind(query string) string {
	if d.Placeholder != Dollar {
		return query
	}

	var sb strings.Builder
	sb.Grow(len(query) + 8)
	n := 0
	var quote byte
	for i := 0; i < len(query); i++ {
		c := query[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"' || c == '`':
			quote = c
		case c == '?':
			n++
			sb.WriteString("$")
			sb.WriteString(strconv.Itoa(n))
			continue
		}
		sb.WriteByte(c)
	}
	return sb.String()
}
