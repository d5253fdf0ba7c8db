package schema

import (
	"github.com/hatlonely/dbstruct/dialect"
)

// Kind 描述对象的角色
type Kind int

const (
	KindStruct Kind = iota
	KindColumn
	KindRecord
	KindTable
	KindView
)

func (k Kind) String() string {
	switch k {
	case KindStruct:
		return "struct"
	case KindColumn:
		return "column"
	case KindRecord:
		return "record"
	case KindTable:
		return "table"
	case KindView:
		return "view"
	}
	return "unknown"
}

// IDUnavailable 表中没有 id 列
const IDUnavailable = -2

// Taew 表或视图（table or view）
type Taew interface {
	Kind() Kind
	// TableName 表或视图的名字
	TableName() string
	// ModifyTableName 写入时使用的表，视图返回源表
	ModifyTableName() string

	ColumnCount() int
	// Column 越界时返回零值列
	Column(i int) Column
	Columns() []Column
	ColumnName(i int) string
	ColumnLabel(i int) string
	ColumnNames() []string
	// ColumnIndex 按名字查找列，忽略大小写，不存在时返回 -1
	ColumnIndex(name string) int
	HasColumn(name string) bool
	// RealColumnIndex 列的 realPosition，不存在或者是虚拟列时返回 -1
	// realPosition 等于列在所有列中的序号，虚拟列排在真实列之前时，
	// 它不是列在 CommaColumns 中的偏移
	RealColumnIndex(name string) int
	ToRealIndex(i int) int
	// IDColumn id 列的序号，没有时返回 IDUnavailable
	IDColumn() int

	// 以下字符串在构造时计算一次，不包含虚拟列
	//
	//	CommaColumns      id,name,age
	//	CommaColumnsNoID  name,age
	//	ColumnColumns     :name,:age
	//	AssignColumns     name=:name,age=:age
	CommaColumns() string
	CommaColumnsNoID() string
	ColumnColumns() string
	AssignColumns() string

	CreateSQL(d dialect.Dialect) string
}
