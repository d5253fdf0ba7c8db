package rdb

import (
	"context"
	"database/sql"
	"net"
	"net/url"
	"strconv"
	"time"

	"github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
	_ "github.com/microsoft/go-mssqldb"
	"github.com/pkg/errors"

	"github.com/hatlonely/dbstruct/cfg"
	"github.com/hatlonely/dbstruct/dialect"
)

type Options struct {
	// mysql, sqlite3, pgx(postgres), sqlserver
	Driver string `cfg:"driver" def:"mysql" validate:"required"`
	// 不为空时忽略下面的连接参数
	DSN      string `cfg:"dsn"`
	Host     string `cfg:"host" def:"localhost"`
	// 0 时使用驱动的默认端口
	Port     int               `cfg:"port"`
	Database string            `cfg:"database"`
	Username string            `cfg:"username"`
	Password string            `cfg:"password"`
	Charset  string            `cfg:"charset" def:"utf8mb4"`
	SSLMode  string            `cfg:"sslMode" def:"disable"`
	Params   map[string]string `cfg:"params"`

	MaxOpenConns    int           `cfg:"maxOpenConns" def:"10"`
	MaxIdleConns    int           `cfg:"maxIdleConns" def:"5"`
	ConnMaxLifetime time.Duration `cfg:"connMaxLifetime" def:"1h"`
	ConnMaxIdleTime time.Duration `cfg:"connMaxIdleTime" def:"10m"`
	PingTimeout     time.Duration `cfg:"pingTimeout" def:"5s"`
}

// DB 带方言的连接池
type DB struct {
	*sql.DB
	dialect dialect.Dialect
}

func (db *DB) Dialect() dialect.Dialect {
	return db.dialect
}

func NewDBWithOptions(options *Options) (*DB, error) {
	if options == nil {
		return nil, errors.New("db options are required")
	}
	d, dsn, err := BuildDSN(options)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(d.Driver(), dsn)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s failed", d.Driver())
	}
	db.SetMaxOpenConns(options.MaxOpenConns)
	db.SetMaxIdleConns(options.MaxIdleConns)
	db.SetConnMaxLifetime(options.ConnMaxLifetime)
	db.SetConnMaxIdleTime(options.ConnMaxIdleTime)

	ctx := context.Background()
	if options.PingTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, options.PingTimeout)
		defer cancel()
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errors.Wrapf(err, "ping %s failed", d.Driver())
	}

	return &DB{DB: db, dialect: d}, nil
}

// BuildDSN 填充默认值并按驱动拼接连接串
func BuildDSN(options *Options) (dialect.Dialect, string, error) {
	if err := cfg.SetDefaults(options); err != nil {
		return "", "", err
	}
	if err := cfg.Validate(options); err != nil {
		return "", "", err
	}
	d, err := dialect.Parse(options.Driver)
	if err != nil {
		return "", "", errors.Wrap(ErrUnknownDriver, err.Error())
	}
	if options.DSN != "" {
		return d, options.DSN, nil
	}

	switch d {
	case dialect.MySQL:
		c := mysql.NewConfig()
		c.User = options.Username
		c.Passwd = options.Password
		c.Net = "tcp"
		c.Addr = hostPort(options.Host, options.Port, 3306)
		c.DBName = options.Database
		c.ParseTime = true
		c.Params = map[string]string{"charset": options.Charset}
		for k, v := range options.Params {
			c.Params[k] = v
		}
		return d, c.FormatDSN(), nil
	case dialect.SQLite:
		if options.Database == "" {
			return "", "", errors.New("sqlite3 requires database")
		}
		q := url.Values{}
		for k, v := range options.Params {
			q.Set(k, v)
		}
		if len(q) == 0 {
			return d, options.Database, nil
		}
		return d, options.Database + "?" + q.Encode(), nil
	case dialect.Postgres:
		q := url.Values{}
		q.Set("sslmode", options.SSLMode)
		for k, v := range options.Params {
			q.Set(k, v)
		}
		u := url.URL{
			Scheme:   "postgres",
			User:     url.UserPassword(options.Username, options.Password),
			Host:     hostPort(options.Host, options.Port, 5432),
			Path:     "/" + options.Database,
			RawQuery: q.Encode(),
		}
		return d, u.String(), nil
	case dialect.SQLServer:
		q := url.Values{}
		if options.Database != "" {
			q.Set("database", options.Database)
		}
		for k, v := range options.Params {
			q.Set(k, v)
		}
		u := url.URL{
			Scheme:   "sqlserver",
			User:     url.UserPassword(options.Username, options.Password),
			Host:     hostPort(options.Host, options.Port, 1433),
			RawQuery: q.Encode(),
		}
		return d, u.String(), nil
	}
	return "", "", errors.Wrapf(ErrUnknownDriver, "%q", options.Driver)
}

func hostPort(host string, port, defaultPort int) string {
	if port == 0 {
		port = defaultPort
	}
	return net.JoinHostPort(host, strconv.Itoa(port))
}
