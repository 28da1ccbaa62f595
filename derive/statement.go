package derive

import (
	"fmt"
	"strings"
)

// Statement SQL 与绑定参数
//
// 位置占位符的方言按 SQL 中占位符出现的顺序给出参数，具名占位符每个名字只出现一次
type Statement[V any] struct {
	SQL    string
	Params Params[V]
}

// InsertStatement INSERT INTO t (a, b) VALUES (:a, :b)
func (m *Model[V]) InsertStatement(rec any) (Statement[V], error) {
	params, err := m.Encode(rec)
	if err != nil {
		return Statement[V]{}, err
	}
	return Statement[V]{SQL: m.InsertSQL(), Params: params}, nil
}

// InsertSQL 插入语句，不绑定参数，用于批量插入
func (m *Model[V]) InsertSQL() string {
	cols := m.Columns()
	placeholders := make([]string, len(cols))
	for i, c := range cols {
		placeholders[i] = m.dialect.Placeholder.Render(c, i+1)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", m.table.Name, strings.Join(cols, ", "), strings.Join(placeholders, ", "))
}

// UpdateStatement UPDATE t SET a = :a, b = :b WHERE pk = :pk
//
// SET 覆盖所有列（包括主键），WHERE 按主键声明顺序用 AND 连接
func (m *Model[V]) UpdateStatement(rec any) (Statement[V], error) {
	params, err := m.Encode(rec)
	if err != nil {
		return Statement[V]{}, err
	}

	n := 0
	sets := make([]string, len(params))
	for i, p := range params {
		n++
		sets[i] = fmt.Sprintf("%s = %s", p.Name, m.dialect.Placeholder.Render(p.Name, n))
	}
	conds := make([]string, len(m.table.PrimaryKey))
	for i, pk := range m.table.PrimaryKey {
		n++
		conds[i] = fmt.Sprintf("%s = %s", pk, m.dialect.Placeholder.Render(pk, n))
	}

	if m.dialect.Placeholder.Positional() {
		for _, pk := range m.table.PrimaryKey {
			v, _ := params.Get(pk)
			params = append(params, Param[V]{Name: pk, Value: v})
		}
	}

	sql := fmt.Sprintf("UPDATE %s SET %s WHERE %s", m.table.Name, strings.Join(sets, ", "), strings.Join(conds, " AND "))
	return Statement[V]{SQL: sql, Params: params}, nil
}

// CreateTableSQL 建表语句
func (m *Model[V]) CreateTableSQL() string {
	return m.table.CreateSQL(m.dialect)
}

// DropTableSQL 删表语句
func (m *Model[V]) DropTableSQL() string {
	return m.table.DropSQL()
}

// CreateIndexSQL 建索引语句，列名必须是表中的列
func (m *Model[V]) CreateIndexSQL(name string, unique bool, columns ...string) (string, error) {
	return m.table.CreateIndexSQL(m.dialect, name, unique, columns...)
}

// DropIndexSQL 删索引语句
func (m *Model[V]) DropIndexSQL(name string) string {
	return m.table.DropIndexSQL(m.dialect, name)
}

// DeclaredIndexSQL 标签上声明的索引的建索引语句
func (m *Model[V]) DeclaredIndexSQL() []string {
	stmts := make([]string, 0, len(m.table.Indexes))
	for _, idx := range m.table.Indexes {
		// 列在推导时已校验
		sql, _ := m.table.CreateIndexSQL(m.dialect, idx.Name, idx.Unique, idx.Columns...)
		stmts = append(stmts, sql)
	}
	return stmts
}
