package schema

import (
	"fmt"
	"strings"

	"github.com/hatlonely/rdbx/dialect"
)

// ColumnSQL 列定义 <name> <type> [PRIMARY KEY] [UNIQUE] [NOT NULL]
//
// 主键只有在 inlinePK 时才出现在列定义中
func ColumnSQL(c Column, inlinePK bool) string {
	var sb strings.Builder
	sb.WriteString(c.Name)
	sb.WriteString(" ")
	sb.WriteString(c.Type)
	if inlinePK && c.Attr.IsPrimaryKey() {
		sb.WriteString(" PRIMARY KEY")
	}
	if c.Attr.IsUnique() {
		sb.WriteString(" UNIQUE")
	}
	if c.Attr.IsNotNull() {
		sb.WriteString(" NOT NULL")
	}
	return sb.String()
}

func (t *Table) inlinePrimaryKey(d *dialect.Dialect) bool {
	return d.PrimaryKey == dialect.PrimaryKeyInline && len(t.PrimaryKey) == 1
}

// PrimaryKeySQL 表尾主键约束
func (t *Table) PrimaryKeySQL() string {
	return fmt.Sprintf("CONSTRAINT primary_key PRIMARY KEY(%s)", strings.Join(t.PrimaryKey, ","))
}

// CreateSQL 建表语句，表已存在时不报错
func (t *Table) CreateSQL(d *dialect.Dialect) string {
	inline := t.inlinePrimaryKey(d)
	defs := make([]string, 0, len(t.Columns)+1)
	for _, c := range t.Columns {
		if inline && t.IsPrimaryKey(c.Name) {
			c.Attr.PrimaryKey = Bool(true)
		}
		defs = append(defs, ColumnSQL(c, inline))
	}
	if !inline {
		defs = append(defs, t.PrimaryKeySQL())
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", t.Name, strings.Join(defs, ", "))
}

// DropSQL 删表语句
func (t *Table) DropSQL() string {
	return fmt.Sprintf("DROP TABLE IF EXISTS %s", t.Name)
}

// CreateIndexSQL 建索引语句，每个列都必须是表中的列
func (t *Table) CreateIndexSQL(d *dialect.Dialect, name string, unique bool, columns ...string) (string, error) {
	if err := t.checkColumns("index "+name, columns); err != nil {
		return "", err
	}
	var sb strings.Builder
	sb.WriteString("CREATE ")
	if unique {
		sb.WriteString("UNIQUE ")
	}
	sb.WriteString("INDEX ")
	if d.IndexIfNotExists {
		sb.WriteString("IF NOT EXISTS ")
	}
	fmt.Fprintf(&sb, "%s ON %s(%s)", name, t.Name, strings.Join(columns, ","))
	return sb.String(), nil
}

// DropIndexSQL 删索引语句
func (t *Table) DropIndexSQL(d *dialect.Dialect, name string) string {
	if d.DropIndexOnTable {
		return fmt.Sprintf("DROP INDEX %s ON %s", name, t.Name)
	}
	return fmt.Sprintf("DROP INDEX IF EXISTS %s", name)
}

// AddColumnSQL 新增列
func (t *Table) AddColumnSQL(c Column) string {
	return fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s", t.Name, ColumnSQL(c, false))
}

// ModifyColumnSQL 修改列定义
func (t *Table) ModifyColumnSQL(c Column) string {
	return fmt.Sprintf("ALTER TABLE %s MODIFY COLUMN %s", t.Name, ColumnSQL(c, false))
}

// Int 返回 n 的指针，用于构造 FieldAttribute
func Int(n int) *int {
	return &n
}

// Bool 返回 b 的指针，用于构造 FieldAttribute
func Bool(b bool) *bool {
	return &b
}
