package schema

import (
	"sync"

	"github.com/pkg/errors"
)

// Role 回调取值的用途
type Role int

const (
	RoleDisplay Role = iota
	RoleEdit
	RoleToolTip
	RoleSort
	RoleUser
)

// Row 一行数据，键为列名
type Row map[string]any

// Provider 回调列的取值函数
type Provider func(t Taew, c Column, row Row, role Role, userData any) any

var ErrProviderNotFound = errors.New("provider not found")

// 回调函数按名字注册，schema 文件通过名字引用
var providers sync.Map

func RegisterProvider(name string, p Provider) error {
	if name == "" || p == nil {
		return errors.New("provider name and function are required")
	}
	if _, loaded := providers.LoadOrStore(name, p); loaded {
		return errors.Errorf("provider %q already registered", name)
	}
	return nil
}

func MustRegisterProvider(name string, p Provider) {
	if err := RegisterProvider(name, p); err != nil {
		panic(err)
	}
}

func LookupProvider(name string) (Provider, error) {
	v, ok := providers.Load(name)
	if !ok {
		return nil, errors.Wrapf(ErrProviderNotFound, "%q", name)
	}
	return v.(Provider), nil
}
