package schema

import (
	"strconv"
	"strings"

	"github.com/hatlonely/dbstruct/dialect"
)

// 各方言的类型名，未列出的类型直接使用大写的类型名
var sqlTypes = map[dialect.Dialect]map[DataType]string{
	dialect.SQLite: {
		DataTypeTinyInt: "INTEGER", DataTypeSmallInt: "INTEGER", DataTypeInteger: "INTEGER", DataTypeBigInt: "INTEGER",
		DataTypeBit: "INTEGER", DataTypeTristate: "INTEGER",
		DataTypeReal: "REAL", DataTypeFloat: "REAL",
		DataTypeDecimal: "NUMERIC", DataTypeDecimalScale: "NUMERIC", DataTypeNumeric: "NUMERIC", DataTypeNumericScale: "NUMERIC",
		DataTypeMoney: "NUMERIC", DataTypeSmallMoney: "NUMERIC",
		DataTypeChar: "TEXT", DataTypeNChar: "TEXT", DataTypeVarChar: "TEXT", DataTypeNVarChar: "TEXT",
		DataTypeText: "TEXT", DataTypeNText: "TEXT", DataTypeXML: "TEXT", DataTypeChoice: "TEXT",
		DataTypeDate: "TEXT", DataTypeTime: "TEXT", DataTypeDateTime: "TEXT", DataTypeDateTime2: "TEXT",
		DataTypeDateTimeOffset: "TEXT", DataTypeSmallDateTime: "TEXT",
		DataTypeUniqueIdentifier: "TEXT", DataTypeHierarchyID: "TEXT",
		DataTypeBinary: "BLOB", DataTypeVarBinary: "BLOB", DataTypeImage: "BLOB", DataTypeRowVersion: "BLOB",
		DataTypeSQLVariant: "BLOB", DataTypeCallback: "BLOB",
	},
	dialect.Postgres: {
		DataTypeTinyInt: "SMALLINT", DataTypeBit: "BOOLEAN", DataTypeTristate: "SMALLINT",
		DataTypeDecimalScale: "DECIMAL", DataTypeNumericScale: "NUMERIC",
		DataTypeFloat: "DOUBLE PRECISION", DataTypeMoney: "NUMERIC(19,4)", DataTypeSmallMoney: "NUMERIC(10,4)",
		DataTypeNChar: "CHAR", DataTypeNVarChar: "VARCHAR", DataTypeNText: "TEXT", DataTypeChoice: "VARCHAR",
		DataTypeDateTime: "TIMESTAMP", DataTypeDateTime2: "TIMESTAMP", DataTypeSmallDateTime: "TIMESTAMP",
		DataTypeDateTimeOffset: "TIMESTAMPTZ",
		DataTypeBinary: "BYTEA", DataTypeVarBinary: "BYTEA", DataTypeImage: "BYTEA", DataTypeRowVersion: "BYTEA",
		DataTypeUniqueIdentifier: "UUID", DataTypeHierarchyID: "TEXT", DataTypeSQLVariant: "BYTEA", DataTypeCallback: "TEXT",
	},
	dialect.SQLServer: {
		DataTypeInteger: "INT", DataTypeTristate: "TINYINT", DataTypeFloat: "FLOAT", DataTypeChoice: "NVARCHAR",
		DataTypeDecimalScale: "DECIMAL", DataTypeNumericScale: "NUMERIC", DataTypeCallback: "SQL_VARIANT",
	},
	dialect.MySQL: {
		DataTypeFloat: "DOUBLE", DataTypeTristate: "TINYINT", DataTypeChoice: "VARCHAR",
		DataTypeMoney: "DECIMAL(19,4)", DataTypeSmallMoney: "DECIMAL(10,4)",
		DataTypeDecimalScale: "DECIMAL", DataTypeNumericScale: "NUMERIC",
		DataTypeDateTime2: "DATETIME", DataTypeDateTimeOffset: "DATETIME", DataTypeSmallDateTime: "DATETIME",
		DataTypeNText: "LONGTEXT", DataTypeXML: "LONGTEXT", DataTypeImage: "LONGBLOB", DataTypeRowVersion: "BINARY(8)",
		DataTypeUniqueIdentifier: "CHAR(36)", DataTypeHierarchyID: "VARBINARY(892)",
		DataTypeSQLVariant: "BLOB", DataTypeCallback: "BLOB",
	},
}

// 需要长度的变长类型在没有长度时使用的默认值
var defaultLengths = map[dialect.Dialect]string{
	dialect.MySQL:     "255",
	dialect.SQLServer: "MAX",
}

func sqlTypeName(c Column, d dialect.Dialect) string {
	if c.sqlType != "" {
		return c.sqlType
	}
	name, ok := sqlTypes[d][c.dataType]
	if !ok {
		name = strings.ToUpper(c.dataType.String())
	}
	if strings.Contains(name, "(") {
		return name
	}

	length := ""
	if c.lengthSet {
		length = strconv.Itoa(c.length)
	} else if needsLength(name) {
		length = defaultLengths[d]
	}
	if length == "" || d == dialect.SQLite || name == "TEXT" || name == "BYTEA" {
		return name
	}
	return name + "(" + length + ")"
}

func needsLength(name string) bool {
	switch name {
	case "VARCHAR", "NVARCHAR", "VARBINARY":
		return true
	}
	return false
}

// CreateSQL 建表语句
func (t *Table) CreateSQL(d dialect.Dialect) string {
	var sb strings.Builder
	if d == dialect.SQLServer {
		sb.WriteString("IF OBJECT_ID(N'" + strings.ReplaceAll(t.name, "'", "''") + "', N'U') IS NULL\n")
		sb.WriteString("CREATE TABLE " + d.Quote(t.name) + " (\n")
	} else {
		sb.WriteString("CREATE TABLE IF NOT EXISTS " + d.Quote(t.name) + " (\n")
	}

	primaryKey := t.primaryKey
	var lines []string
	for _, c := range t.columns {
		if c.IsVirtual() {
			continue
		}
		line, inlineKey := columnDefinition(c, d, c.name == primaryKey)
		if inlineKey {
			primaryKey = ""
		}
		lines = append(lines, line)
	}
	if primaryKey != "" {
		lines = append(lines, "  PRIMARY KEY ("+d.Quote(primaryKey)+")")
	}
	sb.WriteString(strings.Join(lines, ",\n"))
	sb.WriteString("\n);\n")
	return sb.String()
}

// columnDefinition 返回列定义，sqlite 的自增主键只能写在列定义中，此时 inlineKey 为 true
func columnDefinition(c Column, d dialect.Dialect, primary bool) (line string, inlineKey bool) {
	parts := []string{"  " + d.Quote(c.name)}

	if c.autoIncrement {
		switch d {
		case dialect.SQLite:
			if primary {
				return strings.Join(append(parts, "INTEGER PRIMARY KEY AUTOINCREMENT"), " "), true
			}
		case dialect.Postgres:
			if c.dataType == DataTypeBigInt {
				parts = append(parts, "BIGSERIAL")
			} else {
				parts = append(parts, "SERIAL")
			}
			if !c.AllowNulls() {
				parts = append(parts, "NOT NULL")
			}
			return strings.Join(parts, " "), false
		}
	}

	parts = append(parts, sqlTypeName(c, d))
	if c.defaultValue != "" {
		parts = append(parts, "DEFAULT "+c.defaultValue)
	}
	if !c.AllowNulls() {
		parts = append(parts, "NOT NULL")
	}
	if c.autoIncrement && d != dialect.SQLite {
		parts = append(parts, d.AutoIncrement())
	}
	return strings.Join(parts, " "), false
}

// CreateSQL 建视图语句
func (v *View) CreateSQL(d dialect.Dialect) string {
	var sb strings.Builder
	switch d {
	case dialect.SQLite:
		sb.WriteString("CREATE VIEW IF NOT EXISTS ")
	case dialect.SQLServer:
		sb.WriteString("CREATE OR ALTER VIEW ")
	default:
		sb.WriteString("CREATE OR REPLACE VIEW ")
	}
	sb.WriteString(d.Quote(v.name) + " AS\n")

	s := v.subset
	if s.InTable == "" {
		sb.WriteString("  SELECT * FROM " + d.Quote(v.source.name) + " WHERE " + d.Quote(s.Column) + s.Op + s.Value + "\n")
	} else {
		sb.WriteString("  SELECT * FROM " + d.Quote(v.source.name) + " WHERE " + d.Quote(s.Column) + " IN (\n")
		sb.WriteString("    SELECT " + d.Quote(s.InColumn) + " FROM " + d.Quote(s.InTable) +
			" WHERE " + d.Quote(s.Where) + s.Op + s.Value + ")\n")
	}
	sb.WriteString(";\n")
	return sb.String()
}
