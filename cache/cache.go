// Package cache 提供 rdb.CachedStore 使用的字节缓存后端和编解码器
package cache

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/hatlonely/dbstruct/ref"
)

var ErrKeyNotFound = errors.New("key not found")

const namespace = "github.com/hatlonely/dbstruct/cache"

type setOptions struct {
	Expiration time.Duration
}

type SetOption func(*setOptions)

// WithExpiration 覆盖后端的默认过期时间
func WithExpiration(expiration time.Duration) SetOption {
	return func(options *setOptions) {
		options.Expiration = expiration
	}
}

func newSetOptions(defaultTTL time.Duration, opts []SetOption) *setOptions {
	options := &setOptions{Expiration: defaultTTL}
	for _, opt := range opts {
		opt(options)
	}
	return options
}

type Store interface {
	// Get 键不存在或已过期时返回 ErrKeyNotFound
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, opts ...SetOption) error
	// Del 键不存在时也返回成功
	Del(ctx context.Context, key string) error
	Close() error
}

func init() {
	ref.MustRegister(namespace, "MapStore", NewMapStoreWithOptions)
	ref.MustRegister(namespace, "FreeCacheStore", NewFreeCacheStoreWithOptions)
	ref.MustRegister(namespace, "RedisStore", NewRedisStoreWithOptions)
	ref.MustRegister(namespace, "TieredStore", NewTieredStoreWithOptions)
	ref.MustRegister(namespace, "MsgPackCodec", NewMsgPackCodec)
	ref.MustRegister(namespace, "JSONCodec", NewJSONCodec)
}

// NewStoreWithOptions 按名字构造缓存后端，namespace 为空时使用本包
//
//	type: FreeCacheStore
//	options:
//	  size: 33554432
//	  defaultTTL: 5m
func NewStoreWithOptions(options *ref.TypeOptions) (Store, error) {
	if options == nil || options.Type == "" {
		return NewMapStoreWithOptions(nil), nil
	}
	obj, err := ref.New(namespaceOf(options), options.Type, options.Options)
	if err != nil {
		return nil, errors.WithMessage(err, "create cache store failed")
	}
	store, ok := obj.(Store)
	if !ok {
		return nil, errors.Errorf("%T is not a cache store", obj)
	}
	return store, nil
}

// NewCodecWithOptions 按名字构造编解码器，默认 msgpack
func NewCodecWithOptions(options *ref.TypeOptions) (Codec, error) {
	if options == nil || options.Type == "" {
		return NewMsgPackCodec(), nil
	}
	obj, err := ref.New(namespaceOf(options), options.Type, options.Options)
	if err != nil {
		return nil, errors.WithMessage(err, "create cache codec failed")
	}
	codec, ok := obj.(Codec)
	if !ok {
		return nil, errors.Errorf("%T is not a cache codec", obj)
	}
	return codec, nil
}

func namespaceOf(options *ref.TypeOptions) string {
	if options.Namespace == "" {
		return namespace
	}
	return options.Namespace
}
