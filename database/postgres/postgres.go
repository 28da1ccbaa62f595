// Package postgres postgres 后端
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/hatlonely/rdbx/database/sqldb"
	"github.com/hatlonely/rdbx/dialect"
	"github.com/hatlonely/rdbx/log"
	"github.com/hatlonely/rdbx/log/logger"
	"github.com/hatlonely/rdbx/value"
)

// Codec postgres 原生值编解码器，没有无符号类型，uint64 使用 NUMERIC(20)
var Codec value.Codec[value.Native] = value.NewNativeCodec("postgres", value.NativeTypes{
	Bool:           "BOOLEAN",
	Int:            "INTEGER",
	BigInt:         "BIGINT",
	UnsignedInt:    "BIGINT",
	UnsignedBigInt: "NUMERIC(20)",
	Float:          "REAL",
	Double:         "DOUBLE PRECISION",
	VarChar:        "VARCHAR(%d)",
	Text:           "TEXT",
	Blob:           "BYTEA",
})

type Options struct {
	// DSN 不为空时忽略其他连接参数，支持 key=value 与 postgres:// 两种形式
	DSN      string `cfg:"dsn"`
	Host     string `cfg:"host" def:"localhost"`
	Port     string `cfg:"port" def:"5432"`
	Database string `cfg:"database"`
	Username string `cfg:"username"`
	Password string `cfg:"password"`
	SSLMode  string `cfg:"sslMode" def:"disable" validate:"omitempty,oneof=disable require verify-ca verify-full"`
	MaxConns int    `cfg:"maxConns" def:"10"`
	MaxIdle  int    `cfg:"maxIdle" def:"5"`

	ConnMaxLifetime time.Duration `cfg:"connMaxLifetime" def:"5m"`

	Logger *logger.SLogOptions `cfg:"logger"`
}

// Conn postgres 连接
type Conn = sqldb.Conn[value.Native]

// DSN 由连接参数生成 key=value 形式的 DSN
func DSN(options *Options) (string, error) {
	if options.DSN == "" {
		var kvs []string
		for _, kv := range [][2]string{
			{"host", options.Host},
			{"port", options.Port},
			{"dbname", options.Database},
			{"user", options.Username},
			{"password", options.Password},
			{"sslmode", options.SSLMode},
		} {
			if kv[1] != "" {
				kvs = append(kvs, fmt.Sprintf("%s=%s", kv[0], quote(kv[1])))
			}
		}
		return strings.Join(kvs, " "), nil
	}
	if strings.HasPrefix(options.DSN, "postgres://") || strings.HasPrefix(options.DSN, "postgresql://") {
		dsn, err := pq.ParseURL(options.DSN)
		return dsn, errors.Wrap(err, "parse postgres url failed")
	}
	return options.DSN, nil
}

func quote(s string) string {
	if s != "" && !strings.ContainsAny(s, ` '\`) {
		return s
	}
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `'`, `\'`)
	return "'" + s + "'"
}

func NewWithOptions(options *Options) (*Conn, error) {
	if options == nil {
		return nil, errors.New("options is nil")
	}

	l, err := log.NewLoggerWithOptions(options.Logger)
	if err != nil {
		return nil, errors.WithMessage(err, "failed to create logger")
	}

	dsn, err := DSN(options)
	if err != nil {
		return nil, err
	}
	connector, err := pq.NewConnector(dsn)
	if err != nil {
		return nil, errors.Wrap(err, "invalid postgres dsn")
	}
	db := sql.OpenDB(connector)
	db.SetMaxOpenConns(options.MaxConns)
	db.SetMaxIdleConns(options.MaxIdle)
	db.SetConnMaxLifetime(options.ConnMaxLifetime)

	if err := db.PingContext(context.Background()); err != nil {
		_ = db.Close()
		return nil, errors.Wrapf(err, "ping postgres %s:%s failed", options.Host, options.Port)
	}

	return NewWithDB(db, l.WithGroup("postgres")), nil
}

// NewWithDB 使用已打开的连接池
func NewWithDB(db *sql.DB, l logger.Logger) *Conn {
	return sqldb.New[value.Native](db, sqldb.NewNativeDriver(Codec, dialect.Postgres), l)
}
