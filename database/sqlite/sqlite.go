// Package sqlite 嵌入式 sqlite 后端
package sqlite

import (
	"context"
	"database/sql"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"

	"github.com/hatlonely/rdbx/conn"
	"github.com/hatlonely/rdbx/database/sqldb"
	"github.com/hatlonely/rdbx/dialect"
	"github.com/hatlonely/rdbx/log"
	"github.com/hatlonely/rdbx/log/logger"
	rvalue "github.com/hatlonely/rdbx/value"
)

type Options struct {
	// 数据库文件路径，:memory: 为内存数据库
	Path     string `cfg:"path" def:":memory:" validate:"required"`
	MaxConns int    `cfg:"maxConns" def:"1"`
	MaxIdle  int    `cfg:"maxIdle" def:"1"`

	Logger *logger.SLogOptions `cfg:"logger"`
}

type driver struct{}

func (driver) Codec() rvalue.Codec[Value] {
	return Codec
}

func (driver) Dialect() *dialect.Dialect {
	return dialect.SQLite
}

// Arg 具名参数使用 sql.Named 绑定 :name 占位符
func (driver) Arg(p conn.Param[Value]) any {
	if p.Name == "" {
		return p.Value.Arg()
	}
	return sql.Named(p.Name, p.Value.Arg())
}

func (driver) Scan(src any) Value {
	return FromDriver(src)
}

// Conn sqlite 连接
type Conn = sqldb.Conn[Value]

func NewWithOptions(options *Options) (*Conn, error) {
	if options == nil {
		return nil, errors.New("options is nil")
	}
	path := options.Path
	if path == "" {
		path = ":memory:"
	}

	l, err := log.NewLoggerWithOptions(options.Logger)
	if err != nil {
		return nil, errors.WithMessage(err, "failed to create logger")
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.Wrapf(err, "open sqlite %s failed", path)
	}
	maxConns, maxIdle := options.MaxConns, options.MaxIdle
	// 每个连接各自持有一个内存数据库，连接关闭时数据库随之销毁
	if path == ":memory:" {
		maxConns, maxIdle = 1, 1
	}
	if maxConns > 0 {
		db.SetMaxOpenConns(maxConns)
	}
	db.SetMaxIdleConns(maxIdle)

	if err := db.PingContext(context.Background()); err != nil {
		_ = db.Close()
		return nil, errors.Wrapf(err, "ping sqlite %s failed", path)
	}

	return sqldb.New[Value](db, driver{}, l.WithGroup("sqlite")), nil
}

// NewWithDB 使用已打开的连接池
func NewWithDB(db *sql.DB, l logger.Logger) *Conn {
	return sqldb.New[Value](db, driver{}, l)
}
