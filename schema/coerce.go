package schema

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

var ErrUnconvertible = errors.New("value does not fit column type")

// Coerce 把驱动或缓存返回的值转换成列类型对应的 Go 类型
//
//	integer   int64
//	bit       bool
//	tristate  bool，不确定状态为 nil
//	real      float64，money/decimal/numeric 为 decimal.Decimal
//	日期时间  time.Time
//	文本      string
//	二进制    []byte
//
// 其它类型原样返回
func (c Column) Coerce(value any) (any, error) {
	value = unwrap(value)
	if value == nil {
		return nil, nil
	}
	if n, ok := value.(json.Number); ok {
		value = string(n)
	}

	dt := c.dataType
	switch {
	case dt.IsInteger():
		if n, ok := toInt64(value); ok {
			return n, nil
		}
	case dt == DataTypeBit:
		if b, ok := toBool(value); ok {
			return b, nil
		}
	case dt == DataTypeTristate:
		if b, ok := toTristate(value); ok {
			return b, nil
		}
		return nil, nil
	case dt == DataTypeReal || dt == DataTypeFloat:
		switch v := value.(type) {
		case float64:
			return v, nil
		case float32:
			return float64(v), nil
		}
		if d, ok := toDecimal(value); ok {
			f, _ := d.Float64()
			return f, nil
		}
		if s, ok := value.(string); ok && s == "NaN" {
			return math.NaN(), nil
		}
	case dt.IsReal():
		switch v := value.(type) {
		case float64:
			return decimal.NewFromFloat(v), nil
		case float32:
			return decimal.NewFromFloat32(v), nil
		}
		if d, ok := toDecimal(value); ok {
			return d, nil
		}
	case dt == DataTypeDate || dt == DataTypeTime || dt.IsDateTime():
		if t, ok := value.(time.Time); ok {
			return t, nil
		}
		layouts := dateTimeLayouts
		if dt == DataTypeTime {
			layouts = append(timeLayouts[:len(timeLayouts):len(timeLayouts)], dateTimeLayouts...)
		}
		if t, ok := toTime(value, layouts); ok {
			return t, nil
		}
	case dt.IsText() || dt == DataTypeUniqueIdentifier:
		switch v := value.(type) {
		case string:
			return v, nil
		case []byte:
			return string(v), nil
		}
		return fmt.Sprint(value), nil
	case dt.IsBinary():
		switch v := value.(type) {
		case []byte:
			return append([]byte(nil), v...), nil
		case string:
			return []byte(v), nil
		}
	default:
		return value, nil
	}
	return nil, errors.Wrapf(ErrUnconvertible, "%T %v as %s for column %s", value, value, dt, c.name)
}
