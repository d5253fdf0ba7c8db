// Package uid 生成记录的主键和 uniqueidentifier 列的值
package uid

import (
	"context"

	"github.com/pkg/errors"

	"github.com/hatlonely/dbstruct/ref"
)

const namespace = "github.com/hatlonely/dbstruct/uid"

func init() {
	ref.MustRegister(namespace, "SnowflakeGenerator", NewSnowflakeGeneratorWithOptions)
	ref.MustRegister(namespace, "RedisSequenceGenerator", NewRedisSequenceGeneratorWithOptions)
}

// IDGenerator 代替数据库自增生成新记录的 id
type IDGenerator interface {
	NextID(ctx context.Context) (int64, error)
}

// NewIDGeneratorWithOptions 按名字构造 id 生成器，namespace 为空时使用本包
func NewIDGeneratorWithOptions(options *ref.TypeOptions) (IDGenerator, error) {
	if options == nil || options.Type == "" {
		return nil, errors.New("id generator type is required")
	}
	ns := options.Namespace
	if ns == "" {
		ns = namespace
	}
	obj, err := ref.New(ns, options.Type, options.Options)
	if err != nil {
		return nil, errors.WithMessage(err, "create id generator failed")
	}
	generator, ok := obj.(IDGenerator)
	if !ok {
		return nil, errors.Errorf("%T is not an id generator", obj)
	}
	return generator, nil
}
