package rdb

import (
	"database/sql"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/hatlonely/dbstruct/schema"
)

// structField rdb 标签解析的结果
//
//	`rdb:"name,type=varchar,size=64,required,primary,default='x',autoincrement,readonly,virtual,label=Name"`
//	`table:"person"` 写在任意一个字段上指定表名
type structField struct {
	index         []int
	name          string
	dataType      schema.DataType
	size          int
	required      bool
	primary       bool
	autoIncrement bool
	readOnly      bool
	virtual       bool
	defaultValue  string
	label         string
}

var (
	timeType    = reflect.TypeOf(time.Time{})
	decimalType = reflect.TypeOf(decimal.Decimal{})
	scannerType = reflect.TypeOf((*sql.Scanner)(nil)).Elem()
)

func structType(v any) (reflect.Type, error) {
	rt := reflect.TypeOf(v)
	for rt != nil && rt.Kind() == reflect.Ptr {
		rt = rt.Elem()
	}
	if rt == nil || rt.Kind() != reflect.Struct {
		return nil, errors.Errorf("expected struct, got %T", v)
	}
	return rt, nil
}

func parseStructFields(rt reflect.Type) ([]structField, error) {
	var fields []structField
	for i := 0; i < rt.NumField(); i++ {
		field := rt.Field(i)
		if !field.IsExported() {
			continue
		}
		tag := field.Tag.Get("rdb")
		if tag == "-" {
			continue
		}
		sf, err := parseFieldTag(field, tag)
		if err != nil {
			return nil, errors.WithMessagef(err, "field %s", field.Name)
		}
		fields = append(fields, sf)
	}
	return fields, nil
}

func parseFieldTag(field reflect.StructField, tag string) (structField, error) {
	sf := structField{
		index:    field.Index,
		name:     field.Name,
		dataType: inferDataType(field.Type),
		size:     -1,
	}
	if tag == "" {
		return sf, nil
	}

	parts := strings.Split(tag, ",")
	if parts[0] != "" && !strings.Contains(parts[0], "=") {
		sf.name = parts[0]
		parts = parts[1:]
	}

	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if key, value, ok := strings.Cut(part, "="); ok {
			switch strings.TrimSpace(key) {
			case "type":
				dt, err := schema.ParseDataType(value)
				if err != nil {
					return sf, err
				}
				sf.dataType = dt
			case "size":
				size, err := strconv.Atoi(strings.TrimSpace(value))
				if err != nil {
					return sf, errors.Wrapf(err, "invalid size %q", value)
				}
				sf.size = size
			case "default":
				sf.defaultValue = value
			case "label":
				sf.label = value
			}
			continue
		}
		switch part {
		case "required", "not_null":
			sf.required = true
		case "primary", "pk":
			sf.primary = true
		case "autoincrement", "identity":
			sf.autoIncrement = true
		case "readonly":
			sf.readOnly = true
		case "virtual":
			sf.virtual = true
		}
	}
	return sf, nil
}

func inferDataType(t reflect.Type) schema.DataType {
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	switch t {
	case timeType:
		return schema.DataTypeDateTime
	case decimalType:
		return schema.DataTypeDecimal
	case reflect.TypeOf(sql.NullString{}):
		return schema.DataTypeVarChar
	case reflect.TypeOf(sql.NullInt64{}), reflect.TypeOf(sql.NullInt32{}):
		return schema.DataTypeBigInt
	case reflect.TypeOf(sql.NullFloat64{}):
		return schema.DataTypeFloat
	case reflect.TypeOf(sql.NullBool{}):
		return schema.DataTypeBit
	case reflect.TypeOf(sql.NullTime{}):
		return schema.DataTypeDateTime
	}

	switch t.Kind() {
	case reflect.String:
		return schema.DataTypeVarChar
	case reflect.Int8, reflect.Uint8:
		return schema.DataTypeTinyInt
	case reflect.Int16, reflect.Uint16:
		return schema.DataTypeSmallInt
	case reflect.Int32, reflect.Uint32:
		return schema.DataTypeInteger
	case reflect.Int, reflect.Int64, reflect.Uint, reflect.Uint64:
		return schema.DataTypeBigInt
	case reflect.Float32:
		return schema.DataTypeReal
	case reflect.Float64:
		return schema.DataTypeFloat
	case reflect.Bool:
		return schema.DataTypeBit
	case reflect.Slice:
		if t.Elem().Kind() == reflect.Uint8 {
			return schema.DataTypeVarBinary
		}
	}
	return schema.DataTypeText
}

func tableName(rt reflect.Type) string {
	for i := 0; i < rt.NumField(); i++ {
		if name := rt.Field(i).Tag.Get("table"); name != "" {
			return name
		}
	}
	return strings.ToLower(rt.Name())
}

// TableFromStruct 由结构体的 rdb 标签生成表描述
//
//	type Person struct {
//		ID   int64  `rdb:"id,primary,autoincrement" table:"person"`
//		Name string `rdb:"name,size=64,required"`
//	}
func TableFromStruct(v any, opts ...schema.TableOption) (*schema.Table, error) {
	rt, err := structType(v)
	if err != nil {
		return nil, err
	}
	fields, err := parseStructFields(rt)
	if err != nil {
		return nil, err
	}

	columns := make([]schema.Column, 0, len(fields))
	var primary string
	for i, sf := range fields {
		copts := []schema.ColumnOption{
			schema.WithLength(sf.size),
			schema.WithAllowNulls(!sf.required && !sf.primary),
			schema.WithReadOnly(sf.readOnly),
			schema.WithDefault(sf.defaultValue),
		}
		if sf.label != "" {
			copts = append(copts, schema.WithLabel(sf.label))
		}
		if sf.autoIncrement {
			copts = append(copts, schema.WithAutoIncrement())
		}
		if sf.virtual {
			copts = append(copts, schema.WithVirtual())
		}
		if sf.primary && primary == "" {
			primary = sf.name
		}
		columns = append(columns, schema.NewColumn(sf.name, sf.dataType, i, copts...))
	}

	if primary != "" {
		opts = append([]schema.TableOption{schema.WithIDColumn(primary)}, opts...)
	}
	return schema.NewTable(tableName(rt), columns, opts...)
}

// StructRecord 以结构体字段保存值的记录，字段按 rdb 标签或字段名与列对应，忽略大小写
type StructRecord struct {
	taew   schema.Taew
	rv     reflect.Value
	fields [][]int
}

// NewStructRecord ptr 必须是结构体指针
// id 字段为 0 时视为新记录，置为 IDNewInstance
func NewStructRecord(t schema.Taew, ptr any) (*StructRecord, error) {
	rv := reflect.ValueOf(ptr)
	if rv.Kind() != reflect.Ptr || rv.IsNil() || rv.Elem().Kind() != reflect.Struct {
		return nil, errors.Errorf("expected pointer to struct, got %T", ptr)
	}
	fields, err := parseStructFields(rv.Elem().Type())
	if err != nil {
		return nil, err
	}

	r := &StructRecord{
		taew:   t,
		rv:     rv.Elem(),
		fields: make([][]int, t.ColumnCount()),
	}
	for _, sf := range fields {
		if i := t.ColumnIndex(sf.name); i >= 0 {
			r.fields[i] = sf.index
		}
	}
	if i := t.IDColumn(); i >= 0 && r.fields[i] != nil {
		if f := r.rv.FieldByIndex(r.fields[i]); f.IsZero() {
			r.SetID(IDNewInstance)
		}
	}
	return r, nil
}

func (r *StructRecord) field(i int) (reflect.Value, bool) {
	if i < 0 || i >= len(r.fields) || r.fields[i] == nil {
		return reflect.Value{}, false
	}
	return r.rv.FieldByIndex(r.fields[i]), true
}

func (r *StructRecord) ID() int64 {
	f, ok := r.field(r.taew.IDColumn())
	if !ok {
		return IDNewInstance
	}
	switch f.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return f.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return int64(f.Uint())
	}
	return IDNewInstance
}

func (r *StructRecord) SetID(id int64) {
	if f, ok := r.field(r.taew.IDColumn()); ok {
		switch f.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			f.SetInt(id)
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			// 无符号 id 不能表示新记录
			if id >= 0 {
				f.SetUint(uint64(id))
			}
		}
	}
}

func (r *StructRecord) IsNew() bool {
	return r.ID() < 0
}

func (r *StructRecord) Value(i int) any {
	f, ok := r.field(i)
	if !ok {
		return nil
	}
	if f.Kind() == reflect.Ptr && f.IsNil() {
		return nil
	}
	return f.Interface()
}

// SetValue 没有对应字段的列忽略
func (r *StructRecord) SetValue(i int, value any) error {
	if i < 0 || i >= len(r.fields) {
		return errors.Wrapf(ErrColumnRange, "%d of %d", i, len(r.fields))
	}
	f, ok := r.field(i)
	if !ok {
		return nil
	}
	v, err := r.taew.Column(i).Coerce(value)
	if err != nil {
		return err
	}
	return errors.WithMessagef(setFieldValue(f, v), "set field for column %s failed", r.taew.ColumnName(i))
}

func (r *StructRecord) BindOne(b Binder, i int) {
	b.BindValue(r.taew.ColumnName(i), r.Value(i))
}

func (r *StructRecord) Bind(b Binder) {
	for _, i := range storedColumns(r.taew) {
		r.BindOne(b, i)
	}
}

func (r *StructRecord) Retrieve(rows Scanner) error {
	return retrieve(r, r.taew, rows)
}

func (r *StructRecord) RetrieveRow(row []any) error {
	return retrieveRow(r, r.taew, row)
}

func (r *StructRecord) RetrieveMap(m map[string]any) error {
	return retrieveMap(r, r.taew, m)
}

func (r *StructRecord) ToMap() map[string]any {
	m := make(map[string]any, len(r.fields))
	for i := range r.fields {
		if _, ok := r.field(i); ok {
			m[r.taew.ColumnName(i)] = r.Value(i)
		}
	}
	return m
}

// setFieldValue value 已经按列类型转换过
func setFieldValue(field reflect.Value, value any) error {
	if value == nil {
		field.Set(reflect.Zero(field.Type()))
		return nil
	}
	if field.CanAddr() && field.Addr().Type().Implements(scannerType) {
		return field.Addr().Interface().(sql.Scanner).Scan(driverValue(value))
	}
	if field.Kind() == reflect.Ptr {
		if field.IsNil() {
			field.Set(reflect.New(field.Type().Elem()))
		}
		return setFieldValue(field.Elem(), value)
	}

	fieldType := field.Type()
	switch v := value.(type) {
	case decimal.Decimal:
		switch {
		case fieldType == decimalType:
			field.Set(reflect.ValueOf(v))
			return nil
		case field.Kind() == reflect.Float32 || field.Kind() == reflect.Float64:
			f, _ := v.Float64()
			field.SetFloat(f)
			return nil
		case field.Kind() == reflect.String:
			field.SetString(v.String())
			return nil
		}
	case float64:
		if fieldType == decimalType {
			field.Set(reflect.ValueOf(decimal.NewFromFloat(v)))
			return nil
		}
	case int64:
		if field.Kind() == reflect.Bool {
			field.SetBool(v != 0)
			return nil
		}
	case []byte:
		if field.Kind() == reflect.String {
			field.SetString(string(v))
			return nil
		}
	}

	rv := reflect.ValueOf(value)
	if rv.Type().AssignableTo(fieldType) {
		field.Set(rv)
		return nil
	}
	if field.Kind() == reflect.String {
		field.SetString(fmt.Sprint(value))
		return nil
	}
	// string 转整数会得到字符而不是数值
	if (rv.Kind() != reflect.String || field.Kind() == reflect.Slice) && rv.Type().ConvertibleTo(fieldType) {
		field.Set(rv.Convert(fieldType))
		return nil
	}
	return errors.Errorf("cannot convert %T to %v", value, fieldType)
}

// driverValue sql.Scanner 只接受 driver.Value 的类型
func driverValue(value any) any {
	switch v := value.(type) {
	case decimal.Decimal:
		return v.String()
	case int64, float64, bool, []byte, string, time.Time:
		return v
	}
	return fmt.Sprint(value)
}
