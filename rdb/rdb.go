// Package rdb 按 schema 描述的表和视图读写记录
//
// 语句由 schema.Taew 缓存的列名串拼接，参数使用 :name 形式，执行前由 dialect 改写成驱动的占位符
package rdb

import (
	"context"

	"github.com/pkg/errors"

	"github.com/hatlonely/dbstruct/ref"
	"github.com/hatlonely/dbstruct/schema"
)

var (
	ErrRecordNotFound = errors.New("record not found")
	ErrNoIDColumn     = errors.New("table has no id column")
	ErrUnknownDriver  = errors.New("unknown driver")
	ErrColumnRange    = errors.New("column index out of range")
)

// IDNewInstance 尚未写入数据库的记录的 id
const IDNewInstance int64 = -1

// Binder 接收按列名绑定的参数
type Binder interface {
	BindValue(name string, value any)
}

// Scanner *sql.Rows 和 *sql.Row 都满足
type Scanner interface {
	Scan(dest ...any) error
}

// Record 一行数据，列的下标与创建它的 Taew 一致
type Record interface {
	ID() int64
	SetID(id int64)
	// IsNew id 小于 0
	IsNew() bool

	Value(i int) any
	SetValue(i int, value any) error

	// BindOne 绑定第 i 列
	BindOne(b Binder, i int)
	// Bind 绑定所有实际存储的列
	Bind(b Binder)

	// Retrieve 按 CommaColumns 的顺序读取一行
	Retrieve(rows Scanner) error
	// RetrieveRow 与 Retrieve 相同，值已经读出
	RetrieveRow(row []any) error
	// RetrieveMap 按列名读取，忽略大小写，缺少的列保持不变
	RetrieveMap(m map[string]any) error
	ToMap() map[string]any
}

// Store 记录的读写
type Store interface {
	// InitFromID 按 id 读取，失败时恢复原来的 id
	InitFromID(ctx context.Context, t schema.Taew, rec Record, id int64) error
	// InitFrom 以记录第 column 列当前的值为条件读取，没有结果时返回 ErrRecordNotFound
	InitFrom(ctx context.Context, t schema.Taew, rec Record, column int) error
	// Save 新记录插入并回填 id，已有记录按 id 更新
	Save(ctx context.Context, t schema.Taew, rec Record) error
	// Remove 以第 column 列的值为条件删除，之后记录变为新记录
	Remove(ctx context.Context, t schema.Taew, rec Record, column int) error
	RowsInTable(ctx context.Context, t schema.Taew) (int64, error)
}

// NamedArgs 按列名保存的参数，实现 Binder
type NamedArgs map[string]any

func (a NamedArgs) BindValue(name string, value any) {
	a[name] = value
}

func (a NamedArgs) lookup(name string) (any, bool) {
	v, ok := a[name]
	return v, ok
}

// storedColumns 实际存储的列的下标，顺序与 CommaColumns 一致
func storedColumns(t schema.Taew) []int {
	var indexes []int
	for i := 0; i < t.ColumnCount(); i++ {
		if !t.Column(i).IsVirtual() {
			indexes = append(indexes, i)
		}
	}
	return indexes
}

// NewStoreWithOptions 按名字构造 Store，namespace 为空时使用本包
//
//	type: CachedStore
//	options:
//	  store:
//	    type: SQLStore
//	    options:
//	      db: {driver: sqlite3, database: people.db}
func NewStoreWithOptions(options *ref.TypeOptions) (Store, error) {
	if options == nil || options.Type == "" {
		return nil, errors.New("store type is required")
	}
	ns := options.Namespace
	if ns == "" {
		ns = namespace
	}
	obj, err := ref.New(ns, options.Type, options.Options)
	if err != nil {
		return nil, errors.WithMessage(err, "create store failed")
	}
	store, ok := obj.(Store)
	if !ok {
		return nil, errors.Errorf("%T is not a store", obj)
	}
	return store, nil
}
