package cfg

import (
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Node 是解码后的原始配置数据（map/slice/标量）
// 它实现 ref.Convertable，interface 类型的字段会先保存为 Node，等到构造对象时再按参数类型转换
type Node struct {
	data any
}

func NewNode(data any) *Node {
	return &Node{data: data}
}

func (n *Node) Data() any {
	return n.data
}

// Sub 按点号分隔的路径取子节点，例如 "database.tables"
func (n *Node) Sub(path string) *Node {
	current := n.data
	for _, key := range strings.Split(path, ".") {
		if key == "" {
			continue
		}
		m, ok := current.(map[string]any)
		if !ok {
			return NewNode(nil)
		}
		current = lookupKey(m, key)
	}
	return NewNode(current)
}

func (n *Node) ConvertTo(object any) error {
	rv := reflect.ValueOf(object)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return errors.New("object must be a non-nil pointer")
	}
	return convertValue(n.data, rv.Elem())
}

// tagName 返回字段在配置中的名字，依次查找 cfg、json、yaml、toml、ini 标签
func tagName(field reflect.StructField) string {
	for _, key := range []string{"cfg", "json", "yaml", "toml", "ini"} {
		if tag := field.Tag.Get(key); tag != "" {
			name := strings.Split(tag, ",")[0]
			if name == "-" {
				return "-"
			}
			if name != "" {
				return name
			}
		}
	}
	return ""
}

// lookupKey 先精确匹配，再忽略大小写匹配
func lookupKey(m map[string]any, key string) any {
	if v, ok := m[key]; ok {
		return v
	}
	for k, v := range m {
		if strings.EqualFold(k, key) {
			return v
		}
	}
	return nil
}

func convertValue(src any, dst reflect.Value) error {
	if src == nil {
		return nil
	}
	if node, ok := src.(*Node); ok {
		return convertValue(node.data, dst)
	}

	if dst.Kind() == reflect.Ptr {
		if dst.IsNil() {
			dst.Set(reflect.New(dst.Type().Elem()))
		}
		return convertValue(src, dst.Elem())
	}

	sv := reflect.ValueOf(src)

	if dst.Kind() == reflect.Interface {
		if dst.Type().NumMethod() == 0 && (sv.Kind() == reflect.Map || sv.Kind() == reflect.Slice) {
			dst.Set(reflect.ValueOf(NewNode(src)))
			return nil
		}
		if sv.Type().AssignableTo(dst.Type()) {
			dst.Set(sv)
			return nil
		}
		return errors.Errorf("cannot convert %v to %v", sv.Type(), dst.Type())
	}

	switch dst.Type() {
	case reflect.TypeOf(time.Duration(0)):
		return convertDuration(sv, dst)
	case timeType:
		return convertTime(sv, dst)
	}

	switch dst.Kind() {
	case reflect.Struct:
		m, ok := src.(map[string]any)
		if !ok {
			return errors.Errorf("cannot convert %T to struct %v", src, dst.Type())
		}
		return convertStruct(m, dst)
	case reflect.Map:
		if sv.Kind() != reflect.Map {
			return errors.Errorf("cannot convert %T to map %v", src, dst.Type())
		}
		if dst.IsNil() {
			dst.Set(reflect.MakeMap(dst.Type()))
		}
		iter := sv.MapRange()
		for iter.Next() {
			key := reflect.New(dst.Type().Key()).Elem()
			if err := convertValue(iter.Key().Interface(), key); err != nil {
				return err
			}
			val := reflect.New(dst.Type().Elem()).Elem()
			if err := convertValue(iter.Value().Interface(), val); err != nil {
				return errors.WithMessagef(err, "key %v", iter.Key().Interface())
			}
			dst.SetMapIndex(key, val)
		}
		return nil
	case reflect.Slice:
		if sv.Kind() != reflect.Slice && sv.Kind() != reflect.Array {
			// 单个值当作只有一个元素的列表
			sv = reflect.ValueOf([]any{src})
		}
		out := reflect.MakeSlice(dst.Type(), sv.Len(), sv.Len())
		for i := 0; i < sv.Len(); i++ {
			if err := convertValue(sv.Index(i).Interface(), out.Index(i)); err != nil {
				return errors.WithMessagef(err, "index %d", i)
			}
		}
		dst.Set(out)
		return nil
	}

	return convertScalar(sv, dst)
}

func convertStruct(m map[string]any, dst reflect.Value) error {
	rt := dst.Type()
	for i := 0; i < rt.NumField(); i++ {
		field := rt.Field(i)
		if !dst.Field(i).CanSet() {
			continue
		}
		name := tagName(field)
		if name == "-" {
			continue
		}
		if name == "" {
			name = field.Name
		}
		v := lookupKey(m, name)
		if v == nil {
			continue
		}
		if err := convertValue(v, dst.Field(i)); err != nil {
			return errors.WithMessagef(err, "field %s", name)
		}
	}
	return nil
}

// convertScalar 处理 ini/环境变量里常见的字符串形式的数字和布尔
func convertScalar(sv reflect.Value, dst reflect.Value) error {
	if sv.Type().AssignableTo(dst.Type()) {
		dst.Set(sv)
		return nil
	}
	if sv.Kind() == dst.Kind() && sv.Type().ConvertibleTo(dst.Type()) {
		dst.Set(sv.Convert(dst.Type()))
		return nil
	}

	if sv.Kind() == reflect.String {
		s := strings.TrimSpace(sv.String())
		switch dst.Kind() {
		case reflect.Bool:
			b, err := strconv.ParseBool(s)
			if err != nil {
				return errors.Wrapf(err, "parse bool %q failed", s)
			}
			dst.SetBool(b)
			return nil
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			n, err := strconv.ParseInt(s, 0, dst.Type().Bits())
			if err != nil {
				return errors.Wrapf(err, "parse int %q failed", s)
			}
			dst.SetInt(n)
			return nil
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			n, err := strconv.ParseUint(s, 0, dst.Type().Bits())
			if err != nil {
				return errors.Wrapf(err, "parse uint %q failed", s)
			}
			dst.SetUint(n)
			return nil
		case reflect.Float32, reflect.Float64:
			f, err := strconv.ParseFloat(s, dst.Type().Bits())
			if err != nil {
				return errors.Wrapf(err, "parse float %q failed", s)
			}
			dst.SetFloat(f)
			return nil
		}
	}

	if dst.Kind() == reflect.String {
		switch sv.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			dst.SetString(strconv.FormatInt(sv.Int(), 10))
			return nil
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			dst.SetString(strconv.FormatUint(sv.Uint(), 10))
			return nil
		case reflect.Float32, reflect.Float64:
			dst.SetString(strconv.FormatFloat(sv.Float(), 'f', -1, 64))
			return nil
		case reflect.Bool:
			dst.SetString(strconv.FormatBool(sv.Bool()))
			return nil
		}
	}

	if isNumber(sv.Kind()) && isNumber(dst.Kind()) {
		dst.Set(sv.Convert(dst.Type()))
		return nil
	}

	return errors.Errorf("cannot convert %v to %v", sv.Type(), dst.Type())
}

func isNumber(k reflect.Kind) bool {
	return (k >= reflect.Int && k <= reflect.Uint64) || k == reflect.Float32 || k == reflect.Float64
}

func convertDuration(sv reflect.Value, dst reflect.Value) error {
	switch {
	case sv.Kind() == reflect.String:
		d, err := time.ParseDuration(sv.String())
		if err != nil {
			return errors.Wrapf(err, "parse duration %q failed", sv.String())
		}
		dst.SetInt(int64(d))
	case sv.Kind() >= reflect.Int && sv.Kind() <= reflect.Int64:
		dst.SetInt(sv.Int())
	case sv.Kind() >= reflect.Uint && sv.Kind() <= reflect.Uint64:
		dst.SetInt(int64(sv.Uint()))
	case sv.Kind() == reflect.Float64 || sv.Kind() == reflect.Float32:
		// 浮点数按秒处理
		dst.SetInt(int64(sv.Float() * float64(time.Second)))
	default:
		return errors.Errorf("cannot convert %v to time.Duration", sv.Type())
	}
	return nil
}

func convertTime(sv reflect.Value, dst reflect.Value) error {
	if t, ok := sv.Interface().(time.Time); ok {
		dst.Set(reflect.ValueOf(t))
		return nil
	}
	if sv.Kind() != reflect.String {
		return errors.Errorf("cannot convert %v to time.Time", sv.Type())
	}
	t, err := parseTime(sv.String())
	if err != nil {
		return err
	}
	dst.Set(reflect.ValueOf(t))
	return nil
}
