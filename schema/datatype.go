package schema

import (
	"strings"

	"github.com/pkg/errors"
)

// DataType 列中数据的类型，零值为 DataTypeInvalid
type DataType int

const (
	DataTypeInvalid DataType = iota
	DataTypeBigInt
	DataTypeBinary
	DataTypeBit
	DataTypeTristate
	DataTypeChar
	DataTypeChoice
	DataTypeDate
	DataTypeDateTime
	DataTypeDateTime2
	DataTypeDateTimeOffset
	DataTypeDecimal
	DataTypeDecimalScale
	DataTypeFloat
	DataTypeHierarchyID
	DataTypeImage
	DataTypeInteger
	DataTypeMoney
	DataTypeNChar
	DataTypeNText
	DataTypeNumeric
	DataTypeNumericScale
	DataTypeNVarChar
	DataTypeReal
	DataTypeRowVersion
	DataTypeSmallDateTime
	DataTypeSmallInt
	DataTypeSmallMoney
	DataTypeSQLVariant
	DataTypeText
	DataTypeTime
	DataTypeTinyInt
	DataTypeUniqueIdentifier
	DataTypeVarBinary
	DataTypeVarChar
	DataTypeXML
	// 值由回调函数动态计算
	DataTypeCallback

	// 第一个无效值
	DataTypeMax
)

var ErrUnknownDataType = errors.New("unknown data type")

var dataTypeNames = [...]string{
	DataTypeInvalid:          "invalid",
	DataTypeBigInt:           "bigint",
	DataTypeBinary:           "binary",
	DataTypeBit:              "bit",
	DataTypeTristate:         "tristate",
	DataTypeChar:             "char",
	DataTypeChoice:           "choice",
	DataTypeDate:             "date",
	DataTypeDateTime:         "datetime",
	DataTypeDateTime2:        "datetime2",
	DataTypeDateTimeOffset:   "datetimeoffset",
	DataTypeDecimal:          "decimal",
	DataTypeDecimalScale:     "decimalscale",
	DataTypeFloat:            "float",
	DataTypeHierarchyID:      "hierarchyid",
	DataTypeImage:            "image",
	DataTypeInteger:          "integer",
	DataTypeMoney:            "money",
	DataTypeNChar:            "nchar",
	DataTypeNText:            "ntext",
	DataTypeNumeric:          "numeric",
	DataTypeNumericScale:     "numericscale",
	DataTypeNVarChar:         "nvarchar",
	DataTypeReal:             "real",
	DataTypeRowVersion:       "rowversion",
	DataTypeSmallDateTime:    "smalldatetime",
	DataTypeSmallInt:         "smallint",
	DataTypeSmallMoney:       "smallmoney",
	DataTypeSQLVariant:       "sql_variant",
	DataTypeText:             "text",
	DataTypeTime:             "time",
	DataTypeTinyInt:          "tinyint",
	DataTypeUniqueIdentifier: "uniqueidentifier",
	DataTypeVarBinary:        "varbinary",
	DataTypeVarChar:          "varchar",
	DataTypeXML:              "xml",
	DataTypeCallback:         "callback",
}

// 常见的别名，schema 文件里可以直接使用
var dataTypeAliases = map[string]DataType{
	"int":       DataTypeInteger,
	"long":      DataTypeBigInt,
	"short":     DataTypeSmallInt,
	"byte":      DataTypeTinyInt,
	"bool":      DataTypeBit,
	"boolean":   DataTypeBit,
	"double":    DataTypeFloat,
	"string":    DataTypeVarChar,
	"blob":      DataTypeVarBinary,
	"uuid":      DataTypeUniqueIdentifier,
	"guid":      DataTypeUniqueIdentifier,
	"timestamp": DataTypeDateTime,
	"sql":       DataTypeSQLVariant,
}

var dataTypeByName = func() map[string]DataType {
	m := make(map[string]DataType, len(dataTypeNames)+len(dataTypeAliases))
	for i, name := range dataTypeNames {
		if DataType(i) != DataTypeInvalid {
			m[name] = DataType(i)
		}
	}
	for name, dt := range dataTypeAliases {
		m[name] = dt
	}
	return m
}()

func (t DataType) String() string {
	if t.Valid() || t == DataTypeInvalid {
		return dataTypeNames[t]
	}
	return "invalid"
}

// ParseDataType 解析类型名，忽略大小写
func ParseDataType(name string) (DataType, error) {
	if dt, ok := dataTypeByName[strings.ToLower(strings.TrimSpace(name))]; ok {
		return dt, nil
	}
	return DataTypeInvalid, errors.Wrapf(ErrUnknownDataType, "%q", name)
}

func (t DataType) Valid() bool {
	return t > DataTypeInvalid && t < DataTypeMax
}

func (t DataType) IsInteger() bool {
	switch t {
	case DataTypeTinyInt, DataTypeSmallInt, DataTypeInteger, DataTypeBigInt:
		return true
	}
	return false
}

func (t DataType) IsReal() bool {
	switch t {
	case DataTypeReal, DataTypeFloat, DataTypeMoney, DataTypeSmallMoney,
		DataTypeNumeric, DataTypeNumericScale, DataTypeDecimal, DataTypeDecimalScale:
		return true
	}
	return false
}

// IsBoolean bit 和 tristate
func (t DataType) IsBoolean() bool {
	return t == DataTypeBit || t == DataTypeTristate
}

// IsDateTime 同时带日期和时间的类型
func (t DataType) IsDateTime() bool {
	switch t {
	case DataTypeDateTime, DataTypeDateTime2, DataTypeDateTimeOffset, DataTypeSmallDateTime:
		return true
	}
	return false
}

func (t DataType) IsText() bool {
	switch t {
	case DataTypeChar, DataTypeNChar, DataTypeVarChar, DataTypeNVarChar,
		DataTypeText, DataTypeNText, DataTypeXML, DataTypeChoice:
		return true
	}
	return false
}

func (t DataType) IsBinary() bool {
	switch t {
	case DataTypeBinary, DataTypeVarBinary, DataTypeImage, DataTypeRowVersion:
		return true
	}
	return false
}
