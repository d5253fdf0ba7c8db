package schema

import (
	"github.com/hatlonely/dbstruct/log/logger"
)

const (
	// Undefined 未定义的长度
	Undefined = -1
	// Virtual 虚拟列的 realPosition，虚拟列在数据库表中没有对应的列
	Virtual = -1
)

// Column 列描述
//
// 零值是一个无效列：类型为 DataTypeInvalid，允许 NULL，可写，没有长度和格式。
// 数据类型和格式串在构造后不可修改，复制 Column 会共享编译后的格式。
type Column struct {
	name         string
	label        string
	position     int
	realPosition int
	length       int
	lengthSet    bool
	dataType     DataType
	notNull      bool
	readOnly     bool
	rawFormat    string
	format       Format

	defaultValue  string
	autoIncrement bool
	sqlType       string
}

type columnOptions struct {
	label         string
	realPosition  *int
	length        *int
	allowNulls    bool
	readOnly      bool
	format        string
	defaultValue  string
	autoIncrement bool
	sqlType       string
	logger        logger.Logger
}

type ColumnOption func(*columnOptions)

// WithLabel 显示名，默认与列名相同
func WithLabel(label string) ColumnOption {
	return func(o *columnOptions) {
		o.label = label
	}
}

// WithRealPosition 在真实列中的序号，默认与 position 相同
func WithRealPosition(pos int) ColumnOption {
	return func(o *columnOptions) {
		o.realPosition = &pos
	}
}

func WithVirtual() ColumnOption {
	return WithRealPosition(Virtual)
}

func WithLength(length int) ColumnOption {
	return func(o *columnOptions) {
		o.length = &length
	}
}

func WithAllowNulls(allow bool) ColumnOption {
	return func(o *columnOptions) {
		o.allowNulls = allow
	}
}

func WithReadOnly(readOnly bool) ColumnOption {
	return func(o *columnOptions) {
		o.readOnly = readOnly
	}
}

// WithFormat 显示格式串，在构造时编译
func WithFormat(format string) ColumnOption {
	return func(o *columnOptions) {
		o.format = format
	}
}

// WithDefault 建表语句中的默认值表达式
func WithDefault(value string) ColumnOption {
	return func(o *columnOptions) {
		o.defaultValue = value
	}
}

func WithAutoIncrement() ColumnOption {
	return func(o *columnOptions) {
		o.autoIncrement = true
	}
}

// WithSQLType 覆盖建表语句中由数据类型推导出的类型名
func WithSQLType(sqlType string) ColumnOption {
	return func(o *columnOptions) {
		o.sqlType = sqlType
	}
}

// WithLogger 格式串诊断信息的输出，默认使用包级别的输出
func WithLogger(l logger.Logger) ColumnOption {
	return func(o *columnOptions) {
		o.logger = l
	}
}

func NewColumn(name string, dataType DataType, position int, opts ...ColumnOption) Column {
	options := &columnOptions{allowNulls: true}
	for _, opt := range opts {
		opt(options)
	}
	lg := options.logger
	if lg == nil {
		lg = diagnostics()
	}

	c := Column{
		name:          name,
		label:         options.label,
		position:      position,
		realPosition:  position,
		length:        Undefined,
		dataType:      dataType,
		notNull:       !options.allowNulls,
		readOnly:      options.readOnly,
		rawFormat:     options.format,
		defaultValue:  options.defaultValue,
		autoIncrement: options.autoIncrement,
		sqlType:       options.sqlType,
	}
	if c.label == "" {
		c.label = name
	}
	if options.realPosition != nil {
		c.realPosition = *options.realPosition
	}
	if options.length != nil && *options.length >= 0 {
		c.length = *options.length
		c.lengthSet = true
	}
	c.format = compileFormat(dataType, c.rawFormat, lg)
	return c
}

func (c Column) Name() string {
	return c.name
}

func (c Column) Label() string {
	return c.label
}

// Position 在所有列（包括虚拟列）中的序号
func (c Column) Position() int {
	return c.position
}

// RealPosition 在数据库表真实列中的序号，虚拟列返回 Virtual
func (c Column) RealPosition() int {
	return c.realPosition
}

func (c Column) IsVirtual() bool {
	return c.realPosition == Virtual
}

// Length 字段长度，未定义时返回 Undefined
func (c Column) Length() int {
	if !c.lengthSet {
		return Undefined
	}
	return c.length
}

func (c Column) DataType() DataType {
	return c.dataType
}

func (c Column) AllowNulls() bool {
	return !c.notNull
}

func (c Column) ReadOnly() bool {
	return c.readOnly
}

func (c Column) RawFormat() string {
	return c.rawFormat
}

// ParsedFormat 编译后的格式，零值列返回 NoFormat
func (c Column) ParsedFormat() Format {
	if c.format == nil {
		return NoFormat{}
	}
	return c.format
}

func (c Column) Default() string {
	return c.defaultValue
}

func (c Column) AutoIncrement() bool {
	return c.autoIncrement
}

func (c Column) SQLType() string {
	return c.sqlType
}

func (c Column) IsValid() bool {
	return c.dataType.Valid()
}

// SetName 修改列名，标签为空时同时设置标签
func (c *Column) SetName(name string) {
	c.name = name
	if c.label == "" {
		c.label = name
	}
}

func (c *Column) SetLabel(label string) {
	c.label = label
}

func (c *Column) SetPosition(pos int) {
	c.position = pos
}

func (c *Column) SetRealPosition(pos int) {
	c.realPosition = pos
}

func (c *Column) SetAllowNulls(allow bool) {
	c.notNull = !allow
}

func (c *Column) SetReadOnly(readOnly bool) {
	c.readOnly = readOnly
}

// SetProvider 设置回调列的取值函数，对其它类型的列不做任何事
func (c *Column) SetProvider(p Provider) {
	if c.dataType != DataTypeCallback {
		return
	}
	c.format = CallbackFormat{Provider: p}
}

// Provider 回调列的取值函数，没有时返回 nil
func (c Column) Provider() Provider {
	if f, ok := c.format.(CallbackFormat); ok {
		return f.Provider
	}
	return nil
}
