package cfg

import (
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

var (
	timeType     = reflect.TypeOf(time.Time{})
	durationType = reflect.TypeOf(time.Duration(0))
)

// 时间默认值依次尝试这些格式，都失败时按 unix 秒解析
var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"15:04:05",
}

// SetDefaults 按 def 标签填充零值字段，已经有值的字段保持不变
//
// 嵌套结构体和结构体切片会递归处理；结构体指针只有带 def 标签时才会被分配
func SetDefaults(object any) error {
	rv := reflect.ValueOf(object)
	if !rv.IsValid() {
		return errors.New("object cannot be nil")
	}
	if rv.Kind() != reflect.Ptr {
		return errors.Errorf("object must be a pointer, got %v", rv.Kind())
	}
	if rv.IsNil() {
		return errors.New("object cannot be nil")
	}
	return fill(rv.Elem())
}

func fill(rv reflect.Value) error {
	switch {
	case !rv.IsValid():
		return nil
	case rv.Kind() == reflect.Ptr:
		if rv.IsNil() {
			return nil
		}
		return fill(rv.Elem())
	case rv.Kind() == reflect.Slice:
		for i := 0; i < rv.Len(); i++ {
			if err := fill(rv.Index(i)); err != nil {
				return errors.WithMessagef(err, "index %d", i)
			}
		}
		return nil
	case rv.Kind() == reflect.Struct && rv.Type() != timeType:
		return fillStruct(rv)
	}
	return nil
}

func fillStruct(rv reflect.Value) error {
	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		sf := rt.Field(i)
		fv := rv.Field(i)
		if !fv.CanSet() {
			continue
		}
		tag, tagged := sf.Tag.Lookup("def")

		if isNested(fv.Type()) {
			if fv.Kind() == reflect.Ptr && fv.IsNil() && tagged {
				fv.Set(reflect.New(fv.Type().Elem()))
			}
			if err := fill(fv); err != nil {
				return errors.WithMessagef(err, "field %s", sf.Name)
			}
			continue
		}

		if tag == "" || !fv.IsZero() {
			continue
		}
		target := fv
		if target.Kind() == reflect.Ptr {
			target = reflect.New(fv.Type().Elem())
		}
		val, err := parseDefault(target.Type(), tag)
		if err != nil {
			return errors.WithMessagef(err, "field %s", sf.Name)
		}
		if fv.Kind() == reflect.Ptr {
			target.Elem().Set(val)
			fv.Set(target)
		} else {
			fv.Set(val)
		}
	}
	return nil
}

// isNested 结构体、结构体指针和结构体切片需要递归，time.Time 除外
func isNested(rt reflect.Type) bool {
	switch rt.Kind() {
	case reflect.Struct:
		return rt != timeType
	case reflect.Ptr:
		return rt.Elem().Kind() == reflect.Struct && rt.Elem() != timeType
	case reflect.Slice:
		elem := rt.Elem()
		for elem.Kind() == reflect.Ptr {
			elem = elem.Elem()
		}
		return elem.Kind() == reflect.Struct && elem != timeType
	}
	return false
}

// parseDefault 把标签里的字符串转成 rt 类型的值
func parseDefault(rt reflect.Type, s string) (reflect.Value, error) {
	if rt.Kind() == reflect.Ptr {
		rt = rt.Elem()
	}
	v := reflect.New(rt).Elem()

	switch {
	case rt == durationType:
		d, err := parseDuration(s)
		if err != nil {
			return v, err
		}
		v.SetInt(int64(d))
	case rt == timeType:
		t, err := parseTime(s)
		if err != nil {
			return v, err
		}
		v.Set(reflect.ValueOf(t))
	default:
		switch rt.Kind() {
		case reflect.String:
			v.SetString(s)
		case reflect.Bool:
			b, err := strconv.ParseBool(s)
			if err != nil {
				return v, errors.Errorf("invalid bool default %q", s)
			}
			v.SetBool(b)
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			n, err := strconv.ParseInt(s, 0, rt.Bits())
			if err != nil {
				return v, errors.Errorf("invalid int default %q", s)
			}
			v.SetInt(n)
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			n, err := strconv.ParseUint(s, 0, rt.Bits())
			if err != nil {
				return v, errors.Errorf("invalid uint default %q", s)
			}
			v.SetUint(n)
		case reflect.Float32, reflect.Float64:
			f, err := strconv.ParseFloat(s, rt.Bits())
			if err != nil {
				return v, errors.Errorf("invalid float default %q", s)
			}
			v.SetFloat(f)
		case reflect.Slice:
			// 逗号分隔
			parts := strings.Split(s, ",")
			slice := reflect.MakeSlice(rt, len(parts), len(parts))
			for i, part := range parts {
				elem, err := parseDefault(rt.Elem(), strings.TrimSpace(part))
				if err != nil {
					return v, errors.WithMessagef(err, "element %d", i)
				}
				slice.Index(i).Set(elem)
			}
			v.Set(slice)
		default:
			return v, errors.Errorf("default value not supported for type %v", rt)
		}
	}
	return v, nil
}

// parseDuration 支持 "5s" 这样的写法，也支持纳秒整数
func parseDuration(s string) (time.Duration, error) {
	if d, err := time.ParseDuration(s); err == nil {
		return d, nil
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Duration(n), nil
	}
	return 0, errors.Errorf("invalid duration default %q", s)
}

func parseTime(s string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(n, 0), nil
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		sec := int64(f)
		return time.Unix(sec, int64((f-float64(sec))*1e9)), nil
	}
	return time.Time{}, errors.Errorf("invalid time default %q", s)
}
