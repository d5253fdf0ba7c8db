package ref

import (
	"reflect"
	"sync"

	"github.com/pkg/errors"
)

// TypeOptions 通过名字描述一个可构造的对象
// 配置文件里的 writer、缓存后端、编解码器、回调列都用它来声明
type TypeOptions struct {
	Namespace string `cfg:"namespace"`
	Type      string `cfg:"type"`
	Options   any    `cfg:"options"`
}

// Convertable 可以把自身转换成构造函数需要的参数类型
// 从配置文件解出来的原始数据（map/slice）就是通过这个接口落到具体的 Options 上
type Convertable interface {
	ConvertTo(object any) error
}

var errorType = reflect.TypeOf((*error)(nil)).Elem()

type constructor struct {
	fn           reflect.Value
	paramType    reflect.Type
	returnsError bool
}

// newConstructor 校验构造函数签名：0 或 1 个参数，返回 T 或 (T, error)
func newConstructor(fn any) (*constructor, error) {
	fv := reflect.ValueOf(fn)
	if fv.Kind() != reflect.Func {
		return nil, errors.Errorf("constructor must be a function, got %T", fn)
	}

	ft := fv.Type()
	if ft.NumIn() > 1 {
		return nil, errors.Errorf("constructor must have 0 or 1 input parameters, got %d", ft.NumIn())
	}
	if ft.NumOut() != 1 && ft.NumOut() != 2 {
		return nil, errors.Errorf("constructor must have 1 or 2 return values, got %d", ft.NumOut())
	}
	if ft.NumOut() == 2 && !ft.Out(1).Implements(errorType) {
		return nil, errors.New("second return value must be error type")
	}

	c := &constructor{fn: fv, returnsError: ft.NumOut() == 2}
	if ft.NumIn() == 1 {
		c.paramType = ft.In(0)
	}
	return c, nil
}

func (c *constructor) call(options any) (any, error) {
	var args []reflect.Value
	if c.paramType != nil {
		arg, err := c.argument(options)
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
	}

	results := c.fn.Call(args)
	if c.returnsError && !results[1].IsNil() {
		return nil, results[1].Interface().(error)
	}
	return results[0].Interface(), nil
}

// argument 把 options 适配到构造函数的参数类型
func (c *constructor) argument(options any) (reflect.Value, error) {
	if options == nil {
		// 指针参数允许 nil，由构造函数决定默认值
		if c.paramType.Kind() == reflect.Ptr {
			return reflect.Zero(c.paramType), nil
		}
		return reflect.Value{}, errors.Errorf("constructor requires %v but got nil", c.paramType)
	}

	if conv, ok := options.(Convertable); ok {
		isPtr := c.paramType.Kind() == reflect.Ptr
		target := c.paramType
		if isPtr {
			target = target.Elem()
		}
		pv := reflect.New(target)
		if err := conv.ConvertTo(pv.Interface()); err != nil {
			return reflect.Value{}, errors.WithMessagef(err, "convert options to %v failed", c.paramType)
		}
		if isPtr {
			return pv, nil
		}
		return pv.Elem(), nil
	}

	ov := reflect.ValueOf(options)
	if ov.Type().AssignableTo(c.paramType) {
		return ov, nil
	}
	if ov.Kind() == reflect.Ptr && !ov.IsNil() && ov.Elem().Type().AssignableTo(c.paramType) {
		return ov.Elem(), nil
	}
	return reflect.Value{}, errors.Errorf("options type %T does not match %v", options, c.paramType)
}

type registry struct {
	mu           sync.RWMutex
	constructors map[string]*constructor
	origins      map[string]uintptr
}

var defaultRegistry = &registry{
	constructors: map[string]*constructor{},
	origins:      map[string]uintptr{},
}

func key(namespace, typ string) string {
	return namespace + ":" + typ
}

// Register 注册构造函数，同一个函数重复注册不报错
func Register(namespace string, typ string, fn any) error {
	c, err := newConstructor(fn)
	if err != nil {
		return errors.WithMessagef(err, "register %s:%s failed", namespace, typ)
	}

	k := key(namespace, typ)
	ptr := reflect.ValueOf(fn).Pointer()

	defaultRegistry.mu.Lock()
	defer defaultRegistry.mu.Unlock()
	if origin, ok := defaultRegistry.origins[k]; ok {
		if origin == ptr {
			return nil
		}
		return errors.Errorf("constructor for %s already registered with different function", k)
	}
	defaultRegistry.constructors[k] = c
	defaultRegistry.origins[k] = ptr
	return nil
}

func MustRegister(namespace string, typ string, fn any) {
	if err := Register(namespace, typ, fn); err != nil {
		panic(err)
	}
}

// RegisterT 以 T 的包路径和类型名作为 namespace 和 type 注册
func RegisterT[T any](fn any) error {
	namespace, typ, err := typeKey[T]()
	if err != nil {
		return err
	}
	return Register(namespace, typ, fn)
}

func MustRegisterT[T any](fn any) {
	if err := RegisterT[T](fn); err != nil {
		panic(err)
	}
}

// Registered 判断构造函数是否存在
func Registered(namespace string, typ string) bool {
	defaultRegistry.mu.RLock()
	defer defaultRegistry.mu.RUnlock()
	_, ok := defaultRegistry.constructors[key(namespace, typ)]
	return ok
}

// New 按名字构造对象
func New(namespace string, typ string, options any) (any, error) {
	defaultRegistry.mu.RLock()
	c, ok := defaultRegistry.constructors[key(namespace, typ)]
	defaultRegistry.mu.RUnlock()
	if !ok {
		return nil, errors.Errorf("constructor not found for %s", key(namespace, typ))
	}
	return c.call(options)
}

// NewT 按 T 的类型名构造对象并断言为 T
func NewT[T any](options any) (T, error) {
	var zero T
	namespace, typ, err := typeKey[T]()
	if err != nil {
		return zero, err
	}
	obj, err := New(namespace, typ, options)
	if err != nil {
		return zero, err
	}
	t, ok := obj.(T)
	if !ok {
		return zero, errors.Errorf("created object %T is not of type %T", obj, zero)
	}
	return t, nil
}

// NewWithTypeOptions 是 New 的便捷形式
func NewWithTypeOptions(options *TypeOptions) (any, error) {
	if options == nil {
		return nil, errors.New("type options cannot be nil")
	}
	return New(options.Namespace, options.Type, options.Options)
}

func typeKey[T any]() (string, string, error) {
	rt := reflect.TypeOf((*T)(nil)).Elem()
	for rt.Kind() == reflect.Ptr {
		rt = rt.Elem()
	}
	if rt.PkgPath() == "" || rt.Name() == "" {
		return "", "", errors.Errorf("cannot determine package path or type name for %v", rt)
	}
	return rt.PkgPath(), rt.Name(), nil
}
