package query

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// Query 过滤条件节点，渲染为带 ? 占位符的 WHERE 片段
type Query interface {
	ToSQL() (string, []any, error)
}

// RawQuery 原样输出的条件片段
type RawQuery struct {
	Pred string
	Args []any
}

func (q *RawQuery) ToSQL() (string, []any, error) {
	if q.Pred == "" {
		return "", nil, errors.New("empty predicate")
	}
	return q.Pred, q.Args, nil
}

// TermQuery 精确匹配
type TermQuery struct {
	Field string
	Value any
}

func (q *TermQuery) ToSQL() (string, []any, error) {
	if q.Value == nil {
		return fmt.Sprintf("%s IS NULL", q.Field), nil, nil
	}
	return fmt.Sprintf("%s = ?", q.Field), []any{q.Value}, nil
}

// InQuery 集合匹配，空集合不匹配任何行
type InQuery struct {
	Field  string
	Values []any
}

func (q *InQuery) ToSQL() (string, []any, error) {
	if len(q.Values) == 0 {
		return "1=0", nil, nil
	}
	marks := strings.TrimSuffix(strings.Repeat("?, ", len(q.Values)), ", ")
	return fmt.Sprintf("%s IN (%s)", q.Field, marks), q.Values, nil
}

// RangeQuery 范围查询，未设置的边界不参与
type RangeQuery struct {
	Field string
	Gt    any
	Gte   any
	Lt    any
	Lte   any
}

func (q *RangeQuery) ToSQL() (string, []any, error) {
	var conds []string
	var args []any
	for _, b := range []struct {
		op string
		v  any
	}{{">", q.Gt}, {">=", q.Gte}, {"<", q.Lt}, {"<=", q.Lte}} {
		if b.v == nil {
			continue
		}
		conds = append(conds, fmt.Sprintf("%s %s ?", q.Field, b.op))
		args = append(args, b.v)
	}
	if len(conds) == 0 {
		return "1=1", nil, nil
	}
	return strings.Join(conds, " AND "), args, nil
}

// ExistsQuery 字段非空
type ExistsQuery struct {
	Field string
}

func (q *ExistsQuery) ToSQL() (string, []any, error) {
	return fmt.Sprintf("%s IS NOT NULL", q.Field), nil, nil
}

// PrefixQuery 前缀匹配
type PrefixQuery struct {
	Field string
	Value string
}

func (q *PrefixQuery) ToSQL() (string, []any, error) {
	return fmt.Sprintf("%s LIKE ?", q.Field), []any{q.Value + "%"}, nil
}

// WildcardQuery 通配符匹配，* 匹配任意个字符，? 匹配单个字符
type WildcardQuery struct {
	Field string
	Value string
}

func (q *WildcardQuery) ToSQL() (string, []any, error) {
	pattern := strings.NewReplacer("*", "%", "?", "_").Replace(q.Value)
	return fmt.Sprintf("%s LIKE ?", q.Field), []any{pattern}, nil
}

// MatchQuery 包含匹配
type MatchQuery struct {
	Field string
	Value any
}

func (q *MatchQuery) ToSQL() (string, []any, error) {
	return fmt.Sprintf("%s LIKE ?", q.Field), []any{fmt.Sprintf("%%%v%%", q.Value)}, nil
}

// BoolQuery 布尔组合
//
// Must 与 Filter 用 AND 连接，Should 用 OR 连接，MustNot 逐个取反；
// MinShouldMatch 大于 1 时改为统计命中的 Should 条件个数
type BoolQuery struct {
	Must           []Query
	Should         []Query
	MustNot        []Query
	Filter         []Query
	MinShouldMatch *int
}

func (q *BoolQuery) ToSQL() (string, []any, error) {
	var conds []string
	var args []any

	for _, group := range [][]Query{q.Must, q.Filter} {
		parts, groupArgs, err := renderAll(group, "%s")
		if err != nil {
			return "", nil, err
		}
		if len(parts) > 0 {
			conds = append(conds, "("+strings.Join(parts, " AND ")+")")
			args = append(args, groupArgs...)
		}
	}

	should, shouldArgs, err := renderAll(q.Should, "%s")
	if err != nil {
		return "", nil, err
	}
	if len(should) > 0 {
		if q.MinShouldMatch != nil && *q.MinShouldMatch != 1 {
			cases := make([]string, len(should))
			for i, c := range should {
				cases[i] = fmt.Sprintf("CASE WHEN (%s) THEN 1 ELSE 0 END", c)
			}
			conds = append(conds, fmt.Sprintf("(%s) >= %d", strings.Join(cases, " + "), *q.MinShouldMatch))
		} else {
			conds = append(conds, "("+strings.Join(should, " OR ")+")")
		}
		args = append(args, shouldArgs...)
	}

	mustNot, mustNotArgs, err := renderAll(q.MustNot, "NOT (%s)")
	if err != nil {
		return "", nil, err
	}
	if len(mustNot) > 0 {
		conds = append(conds, "("+strings.Join(mustNot, " AND ")+")")
		args = append(args, mustNotArgs...)
	}

	if len(conds) == 0 {
		return "1=1", nil, nil
	}
	return strings.Join(conds, " AND "), args, nil
}

func renderAll(queries []Query, format string) ([]string, []any, error) {
	parts := make([]string, 0, len(queries))
	var args []any
	for _, q := range queries {
		sql, qargs, err := q.ToSQL()
		if err != nil {
			return nil, nil, err
		}
		parts = append(parts, fmt.Sprintf(format, sql))
		args = append(args, qargs...)
	}
	return parts, args, nil
}
