package schema

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/hatlonely/dbstruct/log/logger"
)

// Format 编译后的格式，具体类型由列的数据类型决定
//
//	NoFormat        不需要格式
//	BoolFormat      bit, tristate
//	IntegerFormat   整数类
//	RealFormat      浮点与定点数类
//	CallbackFormat  回调列
type Format interface {
	isFormat()
}

type NoFormat struct{}

// BoolMode 真值/假值使用的词
type BoolMode int

const (
	// BoolRaw 真值输出原始格式串，假值输出空串
	BoolRaw BoolMode = iota
	BoolYesNo
	BoolYesNoLower
	BoolYesNoUpper
	BoolOnOff
	BoolOnOffLower
	BoolOnOffUpper
	BoolTrueFalse
	BoolTrueFalseLower
	BoolTrueFalseUpper
	BoolYN
	BoolTF
)

var boolWords = [...]struct {
	yes string
	no  string
}{
	BoolYesNo:          {"Yes", "No"},
	BoolYesNoLower:     {"yes", "no"},
	BoolYesNoUpper:     {"YES", "NO"},
	BoolOnOff:          {"On", "Off"},
	BoolOnOffLower:     {"on", "off"},
	BoolOnOffUpper:     {"ON", "OFF"},
	BoolTrueFalse:      {"True", "False"},
	BoolTrueFalseLower: {"true", "false"},
	BoolTrueFalseUpper: {"TRUE", "FALSE"},
	BoolYN:             {"Y", "N"},
	BoolTF:             {"T", "F"},
}

type BoolFormat struct {
	Mode BoolMode
	Raw  string
}

func (f BoolFormat) Word(v bool) string {
	if f.Mode <= BoolRaw || int(f.Mode) >= len(boolWords) {
		if v {
			return f.Raw
		}
		return ""
	}
	if v {
		return boolWords[f.Mode].yes
	}
	return boolWords[f.Mode].no
}

// IntegerFormat width`precision`fill，precision 是输出的进制
type IntegerFormat struct {
	Width     int
	Precision int
	Fill      rune
}

var defaultIntegerFormat = IntegerFormat{Width: 0, Precision: 10, Fill: ' '}

func (f IntegerFormat) FormatInt(n int64) string {
	base := f.Precision
	if base < 2 || base > 36 {
		base = 10
	}
	return pad(strconv.FormatInt(n, base), f.Width, f.Fill)
}

// RealFormat width`verb`precision`fill，verb 为 e E f g G 之一
type RealFormat struct {
	Width     int
	Verb      byte
	Precision int
	Fill      rune
}

var defaultRealFormat = RealFormat{Width: 0, Verb: 'f', Precision: 8, Fill: ' '}

func (f RealFormat) FormatFloat(v float64) string {
	return pad(strconv.FormatFloat(v, f.Verb, f.Precision, 64), f.Width, f.Fill)
}

// FormatDecimal 定点格式不经过 float64，避免精度损失
func (f RealFormat) FormatDecimal(d decimal.Decimal) string {
	if f.Verb == 'f' && f.Precision >= 0 {
		return pad(d.StringFixed(int32(f.Precision)), f.Width, f.Fill)
	}
	v, _ := d.Float64()
	return f.FormatFloat(v)
}

type CallbackFormat struct {
	Provider Provider
}

func (NoFormat) isFormat()       {}
func (BoolFormat) isFormat()     {}
func (IntegerFormat) isFormat()  {}
func (RealFormat) isFormat()     {}
func (CallbackFormat) isFormat() {}

const formatSeparator = "`"

// compileFormat 按数据类型解析格式串，格式串有误时记录诊断信息并使用默认值
func compileFormat(dt DataType, raw string, lg logger.Logger) Format {
	switch {
	case dt.IsBoolean():
		return compileBoolFormat(raw)
	case dt.IsInteger():
		return compileIntegerFormat(raw, lg)
	case dt.IsReal():
		return compileRealFormat(raw, lg)
	case dt == DataTypeCallback:
		return CallbackFormat{}
	}
	return NoFormat{}
}

func compileBoolFormat(raw string) BoolFormat {
	for mode, w := range boolWords {
		if BoolMode(mode) != BoolRaw && w.yes == raw {
			return BoolFormat{Mode: BoolMode(mode), Raw: raw}
		}
	}
	return BoolFormat{Mode: BoolRaw, Raw: raw}
}

func compileIntegerFormat(raw string, lg logger.Logger) IntegerFormat {
	f := defaultIntegerFormat
	if raw == "" {
		return f
	}
	fields := strings.Split(raw, formatSeparator)
	if len(fields) != 3 {
		lg.Warn("integer format expects width`precision`fill", "format", raw, "fields", len(fields))
		return f
	}

	width, err := strconv.Atoi(strings.TrimSpace(fields[0]))
	if err != nil {
		lg.Warn("invalid integer format width", "format", raw, "error", err)
		return defaultIntegerFormat
	}
	precision, err := strconv.Atoi(strings.TrimSpace(fields[1]))
	if err != nil {
		lg.Warn("invalid integer format precision", "format", raw, "error", err)
		return defaultIntegerFormat
	}
	f.Width = width
	if precision < 2 || precision > 36 {
		lg.Warn("integer format precision out of range", "format", raw, "precision", precision)
	} else {
		f.Precision = precision
	}
	f.Fill = compileFill(fields[2], f.Fill, raw, lg)
	return f
}

func compileRealFormat(raw string, lg logger.Logger) RealFormat {
	f := defaultRealFormat
	if raw == "" {
		return f
	}
	fields := strings.Split(raw, formatSeparator)
	if len(fields) != 4 {
		lg.Warn("real format expects width`verb`precision`fill", "format", raw, "fields", len(fields))
		return f
	}

	width, err := strconv.Atoi(strings.TrimSpace(fields[0]))
	if err != nil {
		lg.Warn("invalid real format width", "format", raw, "error", err)
		return defaultRealFormat
	}
	precision, err := strconv.Atoi(strings.TrimSpace(fields[2]))
	if err != nil {
		lg.Warn("invalid real format precision", "format", raw, "error", err)
		return defaultRealFormat
	}
	f.Width = width
	f.Precision = precision

	verb := strings.TrimSpace(fields[1])
	if len(verb) == 1 && strings.Contains("eEfgG", verb) {
		f.Verb = verb[0]
	} else {
		lg.Warn("invalid real format verb", "format", raw, "verb", verb)
	}
	f.Fill = compileFill(fields[3], f.Fill, raw, lg)
	return f
}

// 填充字符不做 trim，空格本身就是合法的填充字符
func compileFill(field string, def rune, raw string, lg logger.Logger) rune {
	if utf8.RuneCountInString(field) != 1 {
		lg.Warn("format fill must be a single character", "format", raw, "fill", field)
		return def
	}
	r, _ := utf8.DecodeRuneInString(field)
	return r
}

// pad 按宽度补齐，负宽度左对齐；用 0 填充时符号保持在最前面
func pad(s string, width int, fill rune) string {
	left := width < 0
	if left {
		width = -width
	}
	n := width - utf8.RuneCountInString(s)
	if n <= 0 {
		return s
	}
	padding := strings.Repeat(string(fill), n)
	if left {
		return s + padding
	}
	if fill == '0' && s != "" && (s[0] == '-' || s[0] == '+') {
		return s[:1] + padding + s[1:]
	}
	return padding + s
}
