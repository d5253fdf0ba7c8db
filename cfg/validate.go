package cfg

import (
	"reflect"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		// 错误信息里使用 cfg 标签的名字，和配置文件保持一致
		validate.RegisterTagNameFunc(func(field reflect.StructField) string {
			if name := tagName(field); name != "" {
				return name
			}
			return field.Name
		})
	})
	return validate
}

// Validate 按 validate 标签校验结构体，非结构体和 nil 直接通过
func Validate(object any) error {
	rv := reflect.ValueOf(object)
	for rv.IsValid() && rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	if !rv.IsValid() || rv.Kind() != reflect.Struct || rv.Type() == timeType {
		return nil
	}
	return validatorInstance().Struct(rv.Interface())
}
