package mysql

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	"github.com/hatlonely/rdbx/conn"
	"github.com/hatlonely/rdbx/derive"
	"github.com/hatlonely/rdbx/schema"
	"github.com/hatlonely/rdbx/value"
)

const columnInfoSQL = "SELECT DATA_TYPE, COLUMN_TYPE, IS_NULLABLE, COLUMN_KEY FROM INFORMATION_SCHEMA.COLUMNS " +
	"WHERE TABLE_SCHEMA = DATABASE() AND TABLE_NAME = ? AND COLUMN_NAME = ?"

type columnInfo struct {
	DataType   string
	ColumnType string
	IsNullable string
	ColumnKey  string
}

func columnInfoOf(codec value.Codec[value.Native], row conn.Row[value.Native]) (columnInfo, error) {
	var ci columnInfo
	for name, dst := range map[string]*string{
		"DATA_TYPE":   &ci.DataType,
		"COLUMN_TYPE": &ci.ColumnType,
		"IS_NULLABLE": &ci.IsNullable,
		"COLUMN_KEY":  &ci.ColumnKey,
	} {
		s, err := value.Deserialize[string](codec, row[name])
		if err != nil {
			return ci, errors.WithMessagef(err, "column %s", name)
		}
		*dst = s
	}
	return ci, nil
}

// differs 库中的列与声明的列在类型、NOT NULL 或 UNIQUE 上不一致，主键列总是 NOT NULL
func (ci columnInfo) differs(c schema.Column, pk bool) bool {
	want := strings.ToLower(c.Type)
	if !strings.EqualFold(ci.DataType, want) && !strings.EqualFold(ci.ColumnType, want) && !isBoolColumn(ci, want) {
		return true
	}
	if (c.Attr.IsNotNull() || pk) != (ci.IsNullable == "NO") {
		return true
	}
	return c.Attr.IsUnique() != (ci.ColumnKey == "UNI")
}

// bool 在 mysql 中存储为 tinyint(1)
func isBoolColumn(ci columnInfo, want string) bool {
	return want == "bool" && strings.EqualFold(ci.ColumnType, "tinyint(1)")
}

// Migrate 建表后逐列比对 INFORMATION_SCHEMA，缺少的列 ADD COLUMN，定义不一致的列 MODIFY COLUMN
//
// 库中多出的列保持不变
func Migrate[T any](ctx context.Context, ex conn.Executor[value.Native]) error {
	if err := conn.CreateTable[T](ctx, ex); err != nil {
		return err
	}
	m, err := derive.ModelOf[T](ex.Codec(), ex.Dialect())
	if err != nil {
		return err
	}
	table := m.Table()

	for _, c := range table.Columns {
		params, err := conn.Args(ex.Codec(), []any{table.Name, c.Name})
		if err != nil {
			return err
		}
		rows, err := ex.Query(ctx, columnInfoSQL, params)
		if err != nil {
			return errors.WithMessagef(err, "describe column %s.%s failed", table.Name, c.Name)
		}

		var stmt string
		if len(rows) == 0 {
			stmt = table.AddColumnSQL(c)
		} else {
			ci, err := columnInfoOf(ex.Codec(), rows[0])
			if err != nil {
				return errors.WithMessagef(err, "describe column %s.%s failed", table.Name, c.Name)
			}
			if !ci.differs(c, table.IsPrimaryKey(c.Name)) {
				continue
			}
			stmt = table.ModifyColumnSQL(c)
		}
		if _, err := ex.Exec(ctx, stmt, nil); err != nil {
			return errors.WithMessagef(err, "migrate column %s.%s failed", table.Name, c.Name)
		}
	}
	return nil
}
