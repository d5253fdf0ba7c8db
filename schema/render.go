package schema

import (
	"database/sql/driver"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// 数据库和驱动里常见的日期时间文本格式，依次尝试
var dateTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04",
	"2006-01-02",
	"2006/01/02 15:04:05",
	"2006/01/02",
}

var timeLayouts = []string{
	"15:04:05.999999999",
	"15:04",
	"15:04:05Z07:00",
}

// Render 按列的类型和格式返回用于显示的值，使用 DefaultLocale
func (c Column) Render(value any) any {
	return c.RenderLocale(DefaultLocale, value)
}

// RenderLocale 同 Render，日期和时间按 loc 的格式输出
//
// 渲染不会返回错误：无法解释的值输出空串或原样返回。
// 回调列没有所在的表和行，取值函数收到 nil 的 Taew 和 Row、RoleDisplay，
// value 作为 userData 传入；需要整行数据时直接调用 Callback。
func (c Column) RenderLocale(loc *Locale, value any) any {
	if loc == nil {
		loc = DefaultLocale
	}
	value = unwrap(value)

	dt := c.dataType
	switch {
	case dt == DataTypeDate:
		return renderDate(value, loc.DateLayout)
	case dt == DataTypeTime:
		return renderTime(value, loc.TimeLayout)
	case dt.IsDateTime():
		return renderDate(value, loc.DateTimeLayout())
	case dt.IsInteger():
		return c.renderInteger(value)
	case dt.IsReal():
		return c.renderReal(value)
	case dt == DataTypeBit:
		return c.renderBit(value)
	case dt == DataTypeTristate:
		return c.renderTristate(value)
	case dt == DataTypeCallback:
		return c.Callback(nil, nil, RoleDisplay, value)
	}
	return value
}

// Text 渲染结果的字符串形式，nil 为空串
func (c Column) Text(value any) string {
	switch v := c.Render(value).(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

// Callback 调用回调列的取值函数，不是回调列或者没有设置取值函数时返回 nil
func (c Column) Callback(t Taew, row Row, role Role, userData any) any {
	if c.dataType != DataTypeCallback {
		return nil
	}
	p := c.Provider()
	if p == nil {
		return nil
	}
	return p(t, c, row, role, userData)
}

func (c Column) renderInteger(value any) any {
	if value == nil {
		return ""
	}
	n, ok := toInt64(value)
	if !ok {
		return value
	}
	if f, ok := c.format.(IntegerFormat); ok && c.rawFormat != "" {
		return f.FormatInt(n)
	}
	return strconv.FormatInt(n, 10)
}

func (c Column) renderReal(value any) any {
	if value == nil {
		return ""
	}
	f, hasFormat := c.format.(RealFormat)
	hasFormat = hasFormat && c.rawFormat != ""

	switch v := value.(type) {
	case float64:
		return renderFloat(v, 64, f, hasFormat)
	case float32:
		return renderFloat(float64(v), 32, f, hasFormat)
	}

	d, ok := toDecimal(value)
	if !ok {
		// "NaN" 之类的文本 decimal 无法解析
		if s, ok := value.(string); ok {
			if x, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
				return renderFloat(x, 64, f, hasFormat)
			}
		}
		return value
	}
	if hasFormat {
		return f.FormatDecimal(d)
	}
	return d.String()
}

func renderFloat(v float64, bits int, f RealFormat, hasFormat bool) string {
	if math.IsNaN(v) {
		return ""
	}
	if bits == 32 {
		// 先取 float32 的最短表示，避免 0.1 展开成 0.10000000149
		v, _ = strconv.ParseFloat(strconv.FormatFloat(v, 'g', -1, 32), 64)
	}
	if hasFormat {
		return f.FormatFloat(v)
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func (c Column) boolFormat() BoolFormat {
	if f, ok := c.format.(BoolFormat); ok {
		return f
	}
	return BoolFormat{Raw: c.rawFormat}
}

func (c Column) renderBit(value any) any {
	if value == nil {
		return c.boolFormat().Word(false)
	}
	b, ok := toBool(value)
	if !ok {
		return value
	}
	return c.boolFormat().Word(b)
}

func (c Column) renderTristate(value any) any {
	b, ok := toTristate(value)
	if !ok {
		return ""
	}
	return c.boolFormat().Word(b)
}

func renderDate(value any, layout string) string {
	t, ok := toTime(value, dateTimeLayouts)
	if !ok || isEpochDate(t) {
		return ""
	}
	return t.Format(layout)
}

func renderTime(value any, layout string) string {
	t, ok := toTime(value, append(timeLayouts[:len(timeLayouts):len(timeLayouts)], dateTimeLayouts...))
	if !ok {
		return ""
	}
	return t.Format(layout)
}

// isEpochDate 1970-01-01 表示日期未设置
func isEpochDate(t time.Time) bool {
	y, m, d := t.Date()
	return y == 1970 && m == time.January && d == 1
}

// unwrap 展开 sql.Null* 等 driver.Valuer 以及指针
func unwrap(value any) any {
	if value == nil {
		return nil
	}
	if v, ok := value.(driver.Valuer); ok {
		if rv := reflect.ValueOf(value); rv.Kind() == reflect.Ptr && rv.IsNil() {
			return nil
		}
		x, err := v.Value()
		if err != nil {
			return value
		}
		return x
	}
	rv := reflect.ValueOf(value)
	if rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return nil
		}
		return unwrap(rv.Elem().Interface())
	}
	return value
}

func toTime(value any, layouts []string) (time.Time, bool) {
	var s string
	switch v := value.(type) {
	case time.Time:
		return v, !v.IsZero()
	case string:
		s = v
	case []byte:
		s = string(v)
	default:
		return time.Time{}, false
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func toInt64(value any) (int64, bool) {
	switch v := value.(type) {
	case int:
		return int64(v), true
	case int8:
		return int64(v), true
	case int16:
		return int64(v), true
	case int32:
		return int64(v), true
	case int64:
		return v, true
	case uint:
		return int64(v), uint64(v) <= math.MaxInt64
	case uint8:
		return int64(v), true
	case uint16:
		return int64(v), true
	case uint32:
		return int64(v), true
	case uint64:
		return int64(v), v <= math.MaxInt64
	case float32:
		return int64(v), float64(v) == math.Trunc(float64(v))
	case float64:
		return int64(v), v == math.Trunc(v) && !math.IsInf(v, 0)
	case bool:
		if v {
			return 1, true
		}
		return 0, true
	case decimal.Decimal:
		return v.IntPart(), v.IsInteger()
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		return n, err == nil
	case []byte:
		n, err := strconv.ParseInt(strings.TrimSpace(string(v)), 10, 64)
		return n, err == nil
	}
	return 0, false
}

func toDecimal(value any) (decimal.Decimal, bool) {
	switch v := value.(type) {
	case decimal.Decimal:
		return v, true
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(v))
		return d, err == nil
	case []byte:
		d, err := decimal.NewFromString(strings.TrimSpace(string(v)))
		return d, err == nil
	}
	if n, ok := toInt64(value); ok {
		return decimal.NewFromInt(n), true
	}
	return decimal.Decimal{}, false
}

func toBool(value any) (bool, bool) {
	switch v := value.(type) {
	case bool:
		return v, true
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		return b, err == nil
	case []byte:
		b, err := strconv.ParseBool(strings.TrimSpace(string(v)))
		return b, err == nil
	}
	if n, ok := toInt64(value); ok {
		return n != 0, true
	}
	return false, false
}

// toTristate 0 为假，1 为真，nil 和其它值都是不确定状态
func toTristate(value any) (bool, bool) {
	switch v := value.(type) {
	case nil:
		return false, false
	case bool:
		return v, true
	case string:
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			return b, true
		}
		return false, false
	}
	n, ok := toInt64(value)
	if !ok || (n != 0 && n != 1) {
		return false, false
	}
	return n == 1, true
}
