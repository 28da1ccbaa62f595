package derive

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/hatlonely/rdbx/dialect"
	"github.com/hatlonely/rdbx/schema"
	"github.com/hatlonely/rdbx/value"
)

// TableNamer 自定义表名，未实现时使用类型名
type TableNamer interface {
	TableName() string
}

type field struct {
	name   string
	column string
	index  []int
}

// Model 从结构体推导出的表模型与读写映射
type Model[V any] struct {
	typ      reflect.Type
	table    *schema.Table
	fields   []field
	byName   map[string]int
	byColumn map[string]int
	codec    value.Codec[V]
	dialect  *dialect.Dialect
}

func build[V any](rt reflect.Type, codec value.Codec[V], d *dialect.Dialect) (*Model[V], error) {
	if rt.Kind() != reflect.Struct {
		return nil, &GenerationError{Type: rt.String(), Reason: fmt.Sprintf("expected struct, got %s", rt.Kind())}
	}

	m := &Model[V]{
		typ:      rt,
		table:    &schema.Table{Name: tableName(rt)},
		byName:   map[string]int{},
		byColumn: map[string]int{},
		codec:    codec,
		dialect:  d,
	}
	indexes := map[string]*schema.Index{}
	var indexOrder []string

	if err := m.collect(rt, nil, indexes, &indexOrder); err != nil {
		return nil, err
	}
	for _, name := range indexOrder {
		m.table.Indexes = append(m.table.Indexes, *indexes[name])
	}

	if err := m.table.Validate(); err != nil {
		return nil, &GenerationError{Type: rt.String(), Reason: "invalid table", Err: err}
	}
	return m, nil
}

func (m *Model[V]) collect(rt reflect.Type, parent []int, indexes map[string]*schema.Index, indexOrder *[]string) error {
	for i := 0; i < rt.NumField(); i++ {
		sf := rt.Field(i)
		if !sf.IsExported() {
			continue
		}

		raw, hasTag := sf.Tag.Lookup("rdb")
		tag, err := ParseTag(raw)
		if err != nil {
			return &GenerationError{Type: rt.String(), Field: sf.Name, Reason: "invalid tag", Err: err}
		}
		if tag.Ignore {
			continue
		}

		index := append(append([]int{}, parent...), i)

		// 未打标签的匿名结构体字段展开到当前表
		if sf.Anonymous && !hasTag && sf.Type.Kind() == reflect.Struct {
			if err := m.collect(sf.Type, index, indexes, indexOrder); err != nil {
				return err
			}
			continue
		}

		col, err := m.column(rt, sf, tag)
		if err != nil {
			return err
		}
		if _, ok := m.byColumn[col.Name]; ok {
			return &GenerationError{Type: rt.String(), Field: sf.Name, Reason: fmt.Sprintf("duplicate column %s", col.Name)}
		}
		if !m.dialect.Placeholder.Bindable(col.Name) {
			return &GenerationError{Type: rt.String(), Field: sf.Name, Reason: fmt.Sprintf("column %s can not be bound as %s parameter", col.Name, m.dialect.Name)}
		}

		m.byName[sf.Name] = len(m.fields)
		m.byColumn[col.Name] = len(m.fields)
		m.fields = append(m.fields, field{name: sf.Name, column: col.Name, index: index})
		m.table.Columns = append(m.table.Columns, col)
		if tag.PrimaryKey {
			m.table.PrimaryKey = append(m.table.PrimaryKey, col.Name)
		}

		for _, ti := range tag.Indexes {
			name := ti.Name
			if name == "" {
				name = "idx_" + col.Name
			}
			if idx, ok := indexes[name]; ok {
				idx.Columns = append(idx.Columns, col.Name)
				idx.Unique = idx.Unique || ti.Unique
				continue
			}
			indexes[name] = &schema.Index{Name: name, Columns: []string{col.Name}, Unique: ti.Unique}
			*indexOrder = append(*indexOrder, name)
		}
	}
	return nil
}

func (m *Model[V]) column(rt reflect.Type, sf reflect.StructField, tag Tag) (schema.Column, error) {
	col := schema.Column{
		Name: tag.Column,
		Attr: schema.FieldAttribute{
			Size:    tag.Size,
			Unique:  tag.Unique,
			NotNull: tag.NotNull,
		},
	}
	if col.Name == "" {
		col.Name = sf.Name
	}
	if tag.PrimaryKey {
		col.Attr.PrimaryKey = schema.Bool(true)
	}

	size := col.Attr.SizeOr(0)
	switch {
	case strings.EqualFold(tag.Type, "varchar"):
		if size == 0 {
			return col, &GenerationError{Type: rt.String(), Field: sf.Name, Reason: "varchar requires size"}
		}
		col.Type = fmt.Sprintf("varchar(%d)", size)
	case tag.Type != "":
		col.Type = tag.Type
	default:
		ct, err := value.ColumnType(m.codec, sf.Type, size)
		if err != nil {
			return col, &GenerationError{Type: rt.String(), Field: sf.Name, Reason: "no column type", Err: err}
		}
		col.Type = ct
	}
	return col, nil
}

func tableName(rt reflect.Type) string {
	if namer, ok := reflect.New(rt).Interface().(TableNamer); ok {
		return namer.TableName()
	}
	return rt.Name()
}

// Table 表模型
func (m *Model[V]) Table() *schema.Table {
	return m.table
}

// Type 记录类型
func (m *Model[V]) Type() reflect.Type {
	return m.typ
}

func (m *Model[V]) Codec() value.Codec[V] {
	return m.codec
}

func (m *Model[V]) Dialect() *dialect.Dialect {
	return m.dialect
}

// Columns 列名，按字段声明顺序
func (m *Model[V]) Columns() []string {
	return m.table.ColumnNames()
}

// QualifiedColumns 带表名前缀的列名
func (m *Model[V]) QualifiedColumns() []string {
	return m.table.QualifiedColumnNames()
}

// Column 字段名对应的列名
func (m *Model[V]) Column(fieldName string) (string, error) {
	i, ok := m.byName[fieldName]
	if !ok {
		return "", &GenerationError{Type: m.typ.String(), Field: fieldName, Reason: "no such field", Err: schema.ErrUnknownColumn}
	}
	return m.fields[i].column, nil
}

// Qualified 字段名对应的 table.column
func (m *Model[V]) Qualified(fieldName string) (string, error) {
	col, err := m.Column(fieldName)
	if err != nil {
		return "", err
	}
	return m.table.Name + "." + col, nil
}

// MustColumn 同 Column，字段不存在时 panic
func (m *Model[V]) MustColumn(fieldName string) string {
	col, err := m.Column(fieldName)
	if err != nil {
		panic(err)
	}
	return col
}
