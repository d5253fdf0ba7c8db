// Package dialect 封装不同数据库在标识符引用、参数占位符和自增主键上的差异
package dialect

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/pkg/errors"
)

type Dialect string

const (
	MySQL     Dialect = "mysql"
	SQLite    Dialect = "sqlite"
	Postgres  Dialect = "postgres"
	SQLServer Dialect = "sqlserver"
)

var (
	ErrUnknownDialect   = errors.New("unknown dialect")
	ErrMissingParameter = errors.New("missing parameter")
)

// Parse 解析方言名，同时接受 database/sql 的驱动名
func Parse(name string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "mysql", "mariadb":
		return MySQL, nil
	case "sqlite", "sqlite3":
		return SQLite, nil
	case "postgres", "postgresql", "pgx", "pg":
		return Postgres, nil
	case "sqlserver", "mssql":
		return SQLServer, nil
	}
	return "", errors.Wrapf(ErrUnknownDialect, "%q", name)
}

// Driver 返回 database/sql 注册的驱动名
func (d Dialect) Driver() string {
	switch d {
	case SQLite:
		return "sqlite3"
	case Postgres:
		return "pgx"
	default:
		return string(d)
	}
}

func (d Dialect) Quote(ident string) string {
	switch d {
	case Postgres:
		return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
	case SQLServer:
		return "[" + strings.ReplaceAll(ident, "]", "]]") + "]"
	default:
		return "`" + strings.ReplaceAll(ident, "`", "``") + "`"
	}
}

// Placeholder 第 n 个参数的占位符，n 从 1 开始
func (d Dialect) Placeholder(n int) string {
	switch d {
	case Postgres:
		return "$" + strconv.Itoa(n)
	case SQLServer:
		return "@p" + strconv.Itoa(n)
	default:
		return "?"
	}
}

// numbered 占位符带序号时，同名参数可以复用同一个位置
func (d Dialect) numbered() bool {
	return d == Postgres || d == SQLServer
}

// LastInsertID 驱动是否支持 sql.Result.LastInsertId
func (d Dialect) LastInsertID() bool {
	return d == MySQL || d == SQLite
}

// AutoIncrement 建表语句中自增列的关键字，postgres 使用 SERIAL 类型，没有关键字
func (d Dialect) AutoIncrement() string {
	switch d {
	case SQLite:
		return "AUTOINCREMENT"
	case SQLServer:
		return "IDENTITY(1,1)"
	case Postgres:
		return ""
	default:
		return "AUTO_INCREMENT"
	}
}

// Returning 插入语句取回主键的子句
// output 放在 VALUES 之前（sqlserver），returning 放在语句末尾（postgres）
func (d Dialect) Returning(idColumn string) (output string, returning string) {
	switch d {
	case Postgres:
		return "", " RETURNING " + idColumn
	case SQLServer:
		return " OUTPUT INSERTED." + idColumn, ""
	}
	return "", ""
}

// Rewrite 把语句中的 :name 参数替换成方言占位符，并按出现顺序返回参数值
// 引号内的内容和 postgres 的 :: 类型转换不会被替换
func (d Dialect) Rewrite(stmt string, lookup func(name string) (any, bool)) (string, []any, error) {
	var (
		sb      strings.Builder
		args    []any
		indexes = map[string]int{}
		quote   byte
	)
	sb.Grow(len(stmt))

	for i := 0; i < len(stmt); i++ {
		c := stmt[i]
		if quote != 0 {
			sb.WriteByte(c)
			if c == quote {
				quote = 0
			}
			continue
		}
		switch c {
		case '\'', '"', '`':
			quote = c
			sb.WriteByte(c)
			continue
		case '[':
			if d == SQLServer {
				quote = ']'
			}
			sb.WriteByte(c)
			continue
		}
		if c != ':' || (i > 0 && stmt[i-1] == ':') {
			sb.WriteByte(c)
			continue
		}
		j := i + 1
		for j < len(stmt) {
			r, size := utf8.DecodeRuneInString(stmt[j:])
			if !isIdentRune(r, j == i+1) {
				break
			}
			j += size
		}
		if j == i+1 {
			sb.WriteByte(c)
			continue
		}
		name := stmt[i+1 : j]
		i = j - 1

		if n, ok := indexes[name]; ok && d.numbered() {
			sb.WriteString(d.Placeholder(n))
			continue
		}
		value, ok := lookup(name)
		if !ok {
			return "", nil, errors.Wrapf(ErrMissingParameter, ":%s", name)
		}
		args = append(args, value)
		indexes[name] = len(args)
		sb.WriteString(d.Placeholder(len(args)))
	}
	return sb.String(), args, nil
}

// IsIdentifier 名字能否不加引号写进语句并作为 :name 参数绑定
// 首字符是字母或下划线，其余是字母、数字或下划线，字母包括非 ASCII 字母
func IsIdentifier(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		if !isIdentRune(r, i == 0) {
			return false
		}
	}
	return true
}

func isIdentRune(r rune, first bool) bool {
	if r == '_' || unicode.IsLetter(r) {
		return true
	}
	return !first && unicode.IsDigit(r)
}
