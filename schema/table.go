package schema

import (
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/text/cases"

	"github.com/hatlonely/dbstruct/dialect"
	"github.com/hatlonely/dbstruct/log/logger"
)

var (
	ErrDuplicateColumn = errors.New("duplicate column")
	ErrColumnNotFound  = errors.New("column not found")
	ErrTableNotFound   = errors.New("table not found")
	// 名字不能直接写进语句，例如含有空格或 -
	ErrInvalidName = errors.New("invalid name")
)

// columnSet 表和视图共用的列信息
type columnSet struct {
	columns  []Column
	folded   []string
	idColumn int

	commaColumns     string
	commaColumnsNoID string
	columnColumns    string
	assignColumns    string
}

// fold 大小写折叠，Caser 不是并发安全的，每次新建
func fold(s string) string {
	return cases.Fold().String(s)
}

func newColumnSet(columns []Column, idName string, lg logger.Logger) (*columnSet, error) {
	s := &columnSet{
		columns:  make([]Column, len(columns)),
		folded:   make([]string, len(columns)),
		idColumn: IDUnavailable,
	}
	seen := make(map[string]int, len(columns))
	for i, c := range columns {
		if c.position != i {
			lg.Warn("column position does not match its index", "column", c.name, "position", c.position, "index", i)
			c.position = i
		}
		if !c.IsVirtual() && c.realPosition != i {
			lg.Warn("column real position does not match its index", "column", c.name, "realPosition", c.realPosition, "index", i)
			c.realPosition = i
		}
		// 虚拟列不进入语句，名字不受限制
		if !c.IsVirtual() && !dialect.IsIdentifier(c.name) {
			return nil, errors.Wrapf(ErrInvalidName, "column %q", c.name)
		}
		key := fold(c.name)
		if j, ok := seen[key]; ok {
			return nil, errors.Wrapf(ErrDuplicateColumn, "%q at %d and %d", c.name, j, i)
		}
		seen[key] = i
		s.columns[i] = c
		s.folded[i] = key
	}

	if idName != "" {
		i, ok := seen[fold(idName)]
		if !ok || s.columns[i].IsVirtual() {
			return nil, errors.Wrapf(ErrColumnNotFound, "id column %q", idName)
		}
		s.idColumn = i
	} else if i, ok := seen["id"]; ok && !s.columns[i].IsVirtual() {
		s.idColumn = i
	}

	var comma, commaNoID, colcols, assign []string
	for i, c := range s.columns {
		if c.IsVirtual() {
			continue
		}
		comma = append(comma, c.name)
		if i == s.idColumn {
			continue
		}
		commaNoID = append(commaNoID, c.name)
		colcols = append(colcols, ":"+c.name)
		assign = append(assign, c.name+"=:"+c.name)
	}
	s.commaColumns = strings.Join(comma, ",")
	s.commaColumnsNoID = strings.Join(commaNoID, ",")
	s.columnColumns = strings.Join(colcols, ",")
	s.assignColumns = strings.Join(assign, ",")
	return s, nil
}

func (s *columnSet) ColumnCount() int {
	return len(s.columns)
}

func (s *columnSet) Column(i int) Column {
	if i < 0 || i >= len(s.columns) {
		return Column{}
	}
	return s.columns[i]
}

// Columns 返回列的副本
func (s *columnSet) Columns() []Column {
	out := make([]Column, len(s.columns))
	copy(out, s.columns)
	return out
}

func (s *columnSet) ColumnName(i int) string {
	return s.Column(i).name
}

func (s *columnSet) ColumnLabel(i int) string {
	return s.Column(i).label
}

func (s *columnSet) ColumnNames() []string {
	names := make([]string, len(s.columns))
	for i, c := range s.columns {
		names[i] = c.name
	}
	return names
}

func (s *columnSet) ColumnIndex(name string) int {
	key := fold(name)
	for i, f := range s.folded {
		if f == key {
			return i
		}
	}
	return -1
}

func (s *columnSet) HasColumn(name string) bool {
	return s.ColumnIndex(name) >= 0
}

func (s *columnSet) RealColumnIndex(name string) int {
	i := s.ColumnIndex(name)
	if i < 0 {
		return -1
	}
	return s.ToRealIndex(i)
}

// ToRealIndex 越界或虚拟列返回 -1，其它返回 realPosition，也就是 i 本身
func (s *columnSet) ToRealIndex(i int) int {
	if i < 0 || i >= len(s.columns) || s.columns[i].IsVirtual() {
		return -1
	}
	return s.columns[i].realPosition
}

func (s *columnSet) IDColumn() int {
	return s.idColumn
}

func (s *columnSet) CommaColumns() string {
	return s.commaColumns
}

func (s *columnSet) CommaColumnsNoID() string {
	return s.commaColumnsNoID
}

func (s *columnSet) ColumnColumns() string {
	return s.columnColumns
}

func (s *columnSet) AssignColumns() string {
	return s.assignColumns
}

// Table 数据库中的一张表
type Table struct {
	*columnSet
	name       string
	primaryKey string
}

type tableOptions struct {
	idColumn   string
	primaryKey string
	logger     logger.Logger
}

type TableOption func(*tableOptions)

// WithIDColumn 指定 id 列，默认使用名为 id 的列
func WithIDColumn(name string) TableOption {
	return func(o *tableOptions) {
		o.idColumn = name
	}
}

// WithPrimaryKey 建表语句中的主键，默认为 id 列
func WithPrimaryKey(name string) TableOption {
	return func(o *tableOptions) {
		o.primaryKey = name
	}
}

func WithTableLogger(l logger.Logger) TableOption {
	return func(o *tableOptions) {
		o.logger = l
	}
}

// NewTable 构造表，列的 position 会被修正为其在 columns 中的序号
func NewTable(name string, columns []Column, opts ...TableOption) (*Table, error) {
	if name == "" {
		return nil, errors.New("table name is required")
	}
	if !dialect.IsIdentifier(name) {
		return nil, errors.Wrapf(ErrInvalidName, "table %q", name)
	}
	options := &tableOptions{}
	for _, opt := range opts {
		opt(options)
	}
	lg := options.logger
	if lg == nil {
		lg = diagnostics()
	}

	set, err := newColumnSet(columns, options.idColumn, lg.With("table", name))
	if err != nil {
		return nil, errors.WithMessagef(err, "table %s", name)
	}

	t := &Table{columnSet: set, name: name}
	switch {
	case options.primaryKey != "":
		i := set.ColumnIndex(options.primaryKey)
		if i < 0 {
			return nil, errors.Wrapf(ErrColumnNotFound, "table %s primary key %q", name, options.primaryKey)
		}
		t.primaryKey = set.columns[i].name
	case set.idColumn >= 0:
		t.primaryKey = set.columns[set.idColumn].name
	}
	return t, nil
}

func (t *Table) Kind() Kind {
	return KindTable
}

func (t *Table) TableName() string {
	return t.name
}

func (t *Table) ModifyTableName() string {
	return t.name
}

// PrimaryKey 主键列名，没有时为空
func (t *Table) PrimaryKey() string {
	return t.primaryKey
}
