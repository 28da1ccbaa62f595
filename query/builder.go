package query

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// Order 排序方向
type Order int

const (
	Asc Order = iota
	Desc
)

func (o Order) String() string {
	if o == Desc {
		return "DESC"
	}
	return "ASC"
}

// On join 条件，左列属于主表，右列属于被 join 的表
type On struct {
	Left  string
	Right string
}

type join struct {
	kind  string
	table string
	on    On
}

type orderBy struct {
	column string
	order  Order
}

// Builder SELECT 语句构建器
//
// 每个方法返回修改后的副本，接收者本身不变，可以作为模板复用
type Builder struct {
	table    string
	selects  []string
	joins    []join
	wheres   []string
	args     []any
	groupBys []string
	orderBys []orderBy
	limit    *int
	offset   *int
	err      error
}

// New 空构建器
func New() Builder {
	return Builder{}
}

// From 以 table 为主表的构建器
func From(table string) Builder {
	return Builder{table: table}
}

func (b Builder) Table(name string) Builder {
	b.table = name
	return b
}

// Selects 替换 SELECT 列表
func (b Builder) Selects(columns ...string) Builder {
	b.selects = slices.Clone(columns)
	return b
}

// AppendSelects 追加 SELECT 列
func (b Builder) AppendSelects(columns ...string) Builder {
	b.selects = append(slices.Clip(b.selects), columns...)
	return b
}

// Filter 追加一个 WHERE 条件，args 按 ? 的顺序绑定
func (b Builder) Filter(pred string, args ...any) Builder {
	b.wheres = append(slices.Clip(b.wheres), pred)
	b.args = append(slices.Clip(b.args), args...)
	return b
}

// Wheres 追加多个不带参数的 WHERE 条件
func (b Builder) Wheres(preds ...string) Builder {
	b.wheres = append(slices.Clip(b.wheres), preds...)
	return b
}

// Where 追加一个条件节点，渲染失败的错误由 Err 返回
func (b Builder) Where(q Query) Builder {
	sql, args, err := q.ToSQL()
	if err != nil {
		if b.err == nil {
			b.err = err
		}
		return b
	}
	return b.Filter(sql, args...)
}

func (b Builder) Limit(n int) Builder {
	b.limit = &n
	return b
}

// Offset 只有设置了 Limit 时才输出
func (b Builder) Offset(n int) Builder {
	b.offset = &n
	return b
}

func (b Builder) OrderBy(column string, order Order) Builder {
	b.orderBys = append(slices.Clip(b.orderBys), orderBy{column: column, order: order})
	return b
}

func (b Builder) GroupBy(columns ...string) Builder {
	b.groupBys = append(slices.Clip(b.groupBys), columns...)
	return b
}

func (b Builder) InnerJoin(table string, on On) Builder {
	return b.join("INNER", table, on)
}

func (b Builder) LeftJoin(table string, on On) Builder {
	return b.join("LEFT", table, on)
}

func (b Builder) RightJoin(table string, on On) Builder {
	return b.join("RIGHT", table, on)
}

func (b Builder) join(kind string, table string, on On) Builder {
	b.joins = append(slices.Clip(b.joins), join{kind: kind, table: table, on: on})
	return b
}

// TableName 主表
func (b Builder) TableName() string {
	return b.table
}

// HasSelects 是否指定了 SELECT 列
func (b Builder) HasSelects() bool {
	return len(b.selects) > 0
}

// Args Filter 与 Where 累积的参数
func (b Builder) Args() []any {
	return slices.Clone(b.args)
}

// Err Where 渲染条件节点时遇到的第一个错误
func (b Builder) Err() error {
	return b.err
}

// Build 渲染 SELECT 语句，未设置主表时 panic
func (b Builder) Build() string {
	if b.table == "" {
		panic("query: table is not set")
	}

	var sb strings.Builder
	sb.WriteString("SELECT ")
	if len(b.selects) == 0 {
		sb.WriteString("*")
	} else {
		sb.WriteString(strings.Join(b.selects, ", "))
	}
	sb.WriteString(" FROM ")
	sb.WriteString(b.table)

	for _, j := range b.joins {
		fmt.Fprintf(&sb, " %s JOIN %s ON %s.%s = %s.%s", j.kind, j.table, b.table, j.on.Left, j.table, j.on.Right)
	}
	if len(b.wheres) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(b.wheres, " AND "))
	}
	if len(b.groupBys) > 0 {
		sb.WriteString(" GROUP BY ")
		sb.WriteString(strings.Join(b.groupBys, ", "))
	}
	if len(b.orderBys) > 0 {
		orders := make([]string, len(b.orderBys))
		for i, o := range b.orderBys {
			orders[i] = o.column + " " + o.order.String()
		}
		sb.WriteString(" ORDER BY ")
		sb.WriteString(strings.Join(orders, ", "))
	}
	if b.limit != nil {
		sb.WriteString(" LIMIT ")
		sb.WriteString(strconv.Itoa(*b.limit))
		if b.offset != nil {
			sb.WriteString(" OFFSET ")
			sb.WriteString(strconv.Itoa(*b.offset))
		}
	}
	return sb.String()
}

// BuildWithArgs 渲染 SELECT 语句并返回绑定参数
func (b Builder) BuildWithArgs() (string, []any) {
	return b.Build(), b.Args()
}

func (b Builder) String() string {
	if b.table == "" {
		return "<query without table>"
	}
	return b.Build()
}
