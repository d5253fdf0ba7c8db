package rdb

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/hatlonely/dbstruct/cfg"
	"github.com/hatlonely/dbstruct/dialect"
	"github.com/hatlonely/dbstruct/log/logger"
)

// GormStore 通过 gorm 执行语句，只支持 mysql 和 sqlite
type GormStore struct {
	*engine
	db *gorm.DB
}

// NewGormStore 方言由 db 的 Dialector 决定
func NewGormStore(db *gorm.DB, opts ...StoreOption) (*GormStore, error) {
	if db == nil {
		return nil, errors.New("db is nil")
	}
	d, err := dialect.Parse(db.Dialector.Name())
	if err != nil {
		return nil, errors.Wrap(ErrUnknownDriver, err.Error())
	}
	if !d.LastInsertID() {
		return nil, errors.Wrapf(ErrUnknownDriver, "gorm store does not support %s", d)
	}
	e, err := newEngine(gormRunner{db: db, dialect: d}, d, opts)
	if err != nil {
		return nil, err
	}
	return &GormStore{engine: e, db: db}, nil
}

func NewGormStoreWithOptions(options *StoreOptions) (*GormStore, error) {
	if options == nil {
		return nil, errors.New("store options are required")
	}
	if err := cfg.SetDefaults(options); err != nil {
		return nil, err
	}
	opts, err := storeOptionsFrom(options)
	if err != nil {
		return nil, err
	}
	d, dsn, err := BuildDSN(&options.DB)
	if err != nil {
		return nil, err
	}

	var dialector gorm.Dialector
	switch d {
	case dialect.MySQL:
		dialector = mysql.Open(dsn)
	case dialect.SQLite:
		dialector = sqlite.Open(dsn)
	default:
		return nil, errors.Wrapf(ErrUnknownDriver, "gorm store does not support %s", d)
	}

	o := &storeOptions{}
	for _, opt := range opts {
		opt(o)
	}
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: newGormLogger(o.logger, options.SlowThreshold),
	})
	if err != nil {
		return nil, errors.Wrapf(err, "open %s failed", d)
	}
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(options.DB.MaxOpenConns)
		sqlDB.SetMaxIdleConns(options.DB.MaxIdleConns)
		sqlDB.SetConnMaxLifetime(options.DB.ConnMaxLifetime)
		sqlDB.SetConnMaxIdleTime(options.DB.ConnMaxIdleTime)
	}
	return NewGormStore(db, opts...)
}

func (s *GormStore) DB() *gorm.DB {
	return s.db
}

func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return errors.Wrap(err, "failed to get underlying sql.DB")
	}
	return sqlDB.Close()
}

type gormRunner struct {
	db      *gorm.DB
	dialect dialect.Dialect
}

func (r gormRunner) query(ctx context.Context, stmt string, args []any) (*sql.Rows, error) {
	return r.db.WithContext(ctx).Raw(stmt, args...).Rows()
}

func (r gormRunner) exec(ctx context.Context, stmt string, args []any) error {
	return r.db.WithContext(ctx).Exec(stmt, args...).Error
}

// insert 插入和读取自增 id 必须在同一个连接上
func (r gormRunner) insert(ctx context.Context, stmt string, args []any) (int64, error) {
	lastID := "SELECT LAST_INSERT_ID()"
	if r.dialect == dialect.SQLite {
		lastID = "SELECT last_insert_rowid()"
	}

	var id int64
	err := r.db.WithContext(ctx).Connection(func(tx *gorm.DB) error {
		if err := tx.Exec(stmt, args...).Error; err != nil {
			return err
		}
		return tx.Raw(lastID).Scan(&id).Error
	})
	return id, err
}

// gormLogger 把 gorm 的日志转到 logger.Logger
type gormLogger struct {
	logger        logger.Logger
	level         gormlogger.LogLevel
	slowThreshold time.Duration
}

func newGormLogger(l logger.Logger, slowThreshold time.Duration) *gormLogger {
	if l == nil {
		l = logger.NewDiscard()
	}
	return &gormLogger{
		logger:        l.WithGroup("gorm"),
		level:         gormlogger.Warn,
		slowThreshold: slowThreshold,
	}
}

func (l *gormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	nl := *l
	nl.level = level
	return &nl
}

func (l *gormLogger) Info(ctx context.Context, msg string, data ...any) {
	if l.level >= gormlogger.Info {
		l.logger.InfoContext(ctx, fmt.Sprintf(msg, data...))
	}
}

func (l *gormLogger) Warn(ctx context.Context, msg string, data ...any) {
	if l.level >= gormlogger.Warn {
		l.logger.WarnContext(ctx, fmt.Sprintf(msg, data...))
	}
}

func (l *gormLogger) Error(ctx context.Context, msg string, data ...any) {
	if l.level >= gormlogger.Error {
		l.logger.ErrorContext(ctx, fmt.Sprintf(msg, data...))
	}
}

func (l *gormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= gormlogger.Silent {
		return
	}
	elapsed := time.Since(begin)
	switch {
	case err != nil && l.level >= gormlogger.Error && !errors.Is(err, gorm.ErrRecordNotFound):
		stmt, rows := fc()
		l.logger.ErrorContext(ctx, "gorm query failed", "statement", stmt, "rows", rows, "elapsed", elapsed, "error", err)
	case l.slowThreshold > 0 && elapsed > l.slowThreshold && l.level >= gormlogger.Warn:
		stmt, rows := fc()
		l.logger.WarnContext(ctx, "slow query", "statement", stmt, "rows", rows, "elapsed", elapsed, "threshold", l.slowThreshold)
	case l.level >= gormlogger.Info:
		stmt, rows := fc()
		l.logger.DebugContext(ctx, "gorm query", "statement", stmt, "rows", rows, "elapsed", elapsed)
	}
}
