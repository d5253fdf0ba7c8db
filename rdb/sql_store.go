package rdb

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"

	"github.com/hatlonely/dbstruct/dialect"
	"github.com/hatlonely/dbstruct/log"
	"github.com/hatlonely/dbstruct/ref"
	"github.com/hatlonely/dbstruct/uid"
)

const namespace = "github.com/hatlonely/dbstruct/rdb"

func init() {
	ref.MustRegister(namespace, "SQLStore", NewSQLStoreWithOptions)
	ref.MustRegister(namespace, "GormStore", NewGormStoreWithOptions)
	ref.MustRegister(namespace, "CachedStore", NewCachedStoreWithOptions)
	ref.MustRegister(namespace, "ObservableStore", NewObservableStoreWithOptions)
}

type StoreOptions struct {
	DB     Options          `cfg:"db"`
	Logger *ref.TypeOptions `cfg:"logger"`
	UUID   uid.UUIDOptions  `cfg:"uuid"`
	// 表名到 id 生成器，没有配置的表使用数据库自增
	IDGenerators map[string]*ref.TypeOptions `cfg:"idGenerators"`
	// 仅 GormStore 使用，超过阈值的语句记录为 warn
	SlowThreshold time.Duration `cfg:"slowThreshold" def:"200ms"`
}

// SQLStore 基于 database/sql 的 Store
type SQLStore struct {
	*engine
	db     *sql.DB
	closer func() error
}

func NewSQLStore(db *sql.DB, d dialect.Dialect, opts ...StoreOption) (*SQLStore, error) {
	if db == nil {
		return nil, errors.New("db is nil")
	}
	e, err := newEngine(sqlRunner{db: db}, d, opts)
	if err != nil {
		return nil, err
	}
	return &SQLStore{engine: e, db: db}, nil
}

// NewSQLStoreWithOptions 打开连接池，Close 时关闭
func NewSQLStoreWithOptions(options *StoreOptions) (*SQLStore, error) {
	if options == nil {
		return nil, errors.New("store options are required")
	}
	opts, err := storeOptionsFrom(options)
	if err != nil {
		return nil, err
	}
	db, err := NewDBWithOptions(&options.DB)
	if err != nil {
		return nil, err
	}
	store, err := NewSQLStore(db.DB, db.Dialect(), opts...)
	if err != nil {
		db.Close()
		return nil, err
	}
	store.closer = db.Close
	return store, nil
}

// storeOptionsFrom 把配置转换成 StoreOption
func storeOptionsFrom(options *StoreOptions) ([]StoreOption, error) {
	l, err := log.NewLoggerWithOptions(options.Logger)
	if err != nil {
		return nil, err
	}
	g, err := uid.NewUUIDGeneratorWithOptions(&options.UUID)
	if err != nil {
		return nil, err
	}
	opts := []StoreOption{WithLogger(l), WithUUIDGenerator(g)}
	for table, o := range options.IDGenerators {
		generator, err := uid.NewIDGeneratorWithOptions(o)
		if err != nil {
			return nil, errors.WithMessagef(err, "table %s", table)
		}
		opts = append(opts, WithIDGenerator(table, generator))
	}
	return opts, nil
}

func (s *SQLStore) DB() *sql.DB {
	return s.db
}

func (s *SQLStore) Close() error {
	if s.closer != nil {
		return s.closer()
	}
	return nil
}

type sqlRunner struct {
	db *sql.DB
}

func (r sqlRunner) query(ctx context.Context, stmt string, args []any) (*sql.Rows, error) {
	return r.db.QueryContext(ctx, stmt, args...)
}

func (r sqlRunner) exec(ctx context.Context, stmt string, args []any) error {
	_, err := r.db.ExecContext(ctx, stmt, args...)
	return err
}

func (r sqlRunner) insert(ctx context.Context, stmt string, args []any) (int64, error) {
	res, err := r.db.ExecContext(ctx, stmt, args...)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}
