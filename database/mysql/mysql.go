// Package mysql mysql 后端
package mysql

import (
	"context"
	"database/sql"
	"net"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/pkg/errors"

	"github.com/hatlonely/rdbx/database/sqldb"
	"github.com/hatlonely/rdbx/dialect"
	"github.com/hatlonely/rdbx/log"
	"github.com/hatlonely/rdbx/log/logger"
	"github.com/hatlonely/rdbx/value"
)

// Codec mysql 原生值编解码器
var Codec value.Codec[value.Native] = value.NewNativeCodec("mysql", value.NativeTypes{
	Bool:           "bool",
	Int:            "int",
	BigInt:         "bigint",
	UnsignedInt:    "int unsigned",
	UnsignedBigInt: "bigint unsigned",
	Float:          "float",
	Double:         "double",
	VarChar:        "varchar(%d)",
	Text:           "text",
	Blob:           "blob",
})

type Options struct {
	// DSN 不为空时忽略其他连接参数
	DSN      string `cfg:"dsn"`
	Host     string `cfg:"host" def:"localhost"`
	Port     string `cfg:"port" def:"3306"`
	Database string `cfg:"database"`
	Username string `cfg:"username"`
	Password string `cfg:"password"`
	Charset  string `cfg:"charset" def:"utf8mb4"`
	MaxConns int    `cfg:"maxConns" def:"10"`
	MaxIdle  int    `cfg:"maxIdle" def:"5"`

	ConnMaxLifetime time.Duration `cfg:"connMaxLifetime" def:"5m"`

	Logger *logger.SLogOptions `cfg:"logger"`
}

// Conn mysql 连接
type Conn = sqldb.Conn[value.Native]

// DSN 由连接参数生成 DSN
func DSN(options *Options) string {
	if options.DSN != "" {
		return options.DSN
	}
	c := mysql.NewConfig()
	c.User = options.Username
	c.Passwd = options.Password
	c.Net = "tcp"
	c.Addr = net.JoinHostPort(options.Host, options.Port)
	c.DBName = options.Database
	c.ParseTime = true
	c.Loc = time.Local
	// 影响行数按匹配的行计算，值未变化的 UPDATE 不会让 Save 误判为不存在
	c.ClientFoundRows = true
	if options.Charset != "" {
		c.Params = map[string]string{"charset": options.Charset}
	}
	return c.FormatDSN()
}

func NewWithOptions(options *Options) (*Conn, error) {
	if options == nil {
		return nil, errors.New("options is nil")
	}

	l, err := log.NewLoggerWithOptions(options.Logger)
	if err != nil {
		return nil, errors.WithMessage(err, "failed to create logger")
	}

	db, err := sql.Open("mysql", DSN(options))
	if err != nil {
		return nil, errors.Wrap(err, "open mysql failed")
	}
	db.SetMaxOpenConns(options.MaxConns)
	db.SetMaxIdleConns(options.MaxIdle)
	db.SetConnMaxLifetime(options.ConnMaxLifetime)

	if err := db.PingContext(context.Background()); err != nil {
		_ = db.Close()
		return nil, errors.Wrapf(err, "ping mysql %s:%s failed", options.Host, options.Port)
	}

	return NewWithDB(db, l.WithGroup("mysql")), nil
}

// NewWithDB 使用已打开的连接池
func NewWithDB(db *sql.DB, l logger.Logger) *Conn {
	return sqldb.New[value.Native](db, sqldb.NewNativeDriver(Codec, dialect.MySQL), l)
}
