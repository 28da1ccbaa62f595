package schema

import (
	"github.com/pkg/errors"
)

var (
	// ErrUnknownColumn 引用了表中不存在的列
	ErrUnknownColumn = errors.New("unknown column")
	// ErrInvalidTable 表定义不合法
	ErrInvalidTable = errors.New("invalid table")
)

// FieldAttribute 列属性，未设置的属性不出现在 DDL 中
type FieldAttribute struct {
	Size       *int
	Unique     *bool
	NotNull    *bool
	PrimaryKey *bool
}

func (a FieldAttribute) IsUnique() bool {
	return a.Unique != nil && *a.Unique
}

func (a FieldAttribute) IsNotNull() bool {
	return a.NotNull != nil && *a.NotNull
}

func (a FieldAttribute) IsPrimaryKey() bool {
	return a.PrimaryKey != nil && *a.PrimaryKey
}

// SizeOr size 未设置时返回 def
func (a FieldAttribute) SizeOr(def int) int {
	if a.Size == nil {
		return def
	}
	return *a.Size
}

// Column 列定义
type Column struct {
	Name string
	Type string
	Attr FieldAttribute
}

// Index 结构体标签上声明的索引
type Index struct {
	Name    string
	Columns []string
	Unique  bool
}

// Table 表模型
type Table struct {
	Name       string
	Columns    []Column
	PrimaryKey []string // 声明顺序即主键顺序
	Indexes    []Index
}

// Column 按列名查找
func (t *Table) Column(name string) (Column, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

func (t *Table) HasColumn(name string) bool {
	_, ok := t.Column(name)
	return ok
}

// ColumnNames 列名，按声明顺序
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// QualifiedColumnNames 带表名前缀的列名，用于 join 查询
func (t *Table) QualifiedColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = t.Name + "." + c.Name
	}
	return names
}

// IsPrimaryKey name 是否为主键列
func (t *Table) IsPrimaryKey(name string) bool {
	for _, pk := range t.PrimaryKey {
		if pk == name {
			return true
		}
	}
	return false
}

// Validate 校验表名、列名唯一、主键非空且均为表中的列、索引列存在
func (t *Table) Validate() error {
	if t.Name == "" {
		return errors.WithMessage(ErrInvalidTable, "table name is empty")
	}
	if len(t.Columns) == 0 {
		return errors.WithMessagef(ErrInvalidTable, "table %s has no columns", t.Name)
	}

	seen := make(map[string]struct{}, len(t.Columns))
	for _, c := range t.Columns {
		if c.Name == "" {
			return errors.WithMessagef(ErrInvalidTable, "table %s has a column with empty name", t.Name)
		}
		if _, ok := seen[c.Name]; ok {
			return errors.WithMessagef(ErrInvalidTable, "table %s: duplicate column %s", t.Name, c.Name)
		}
		seen[c.Name] = struct{}{}
	}

	if len(t.PrimaryKey) == 0 {
		return errors.WithMessagef(ErrInvalidTable, "table %s: at least one primary key must be specified", t.Name)
	}
	for _, pk := range t.PrimaryKey {
		if _, ok := seen[pk]; !ok {
			return errors.Wrapf(ErrUnknownColumn, "table %s: primary key %s is not a column", t.Name, pk)
		}
	}

	for _, idx := range t.Indexes {
		if err := t.checkColumns("index "+idx.Name, idx.Columns); err != nil {
			return err
		}
	}
	return nil
}

func (t *Table) checkColumns(what string, columns []string) error {
	if len(columns) == 0 {
		return errors.WithMessagef(ErrInvalidTable, "%s: no columns", what)
	}
	for _, c := range columns {
		if !t.HasColumn(c) {
			return errors.Wrapf(ErrUnknownColumn, "%s: column %s is not a field of %s", what, c, t.Name)
		}
	}
	return nil
}
