package cache

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	"github.com/hatlonely/dbstruct/cfg"
	"github.com/hatlonely/dbstruct/ref"
)

type TieredStoreOptions struct {
	// Tiers 按优先级从高到低，例如进程内 FreeCacheStore 在前，RedisStore 在后
	Tiers []*ref.TypeOptions `cfg:"tiers" validate:"required,min=1,dive,required"`
	// writeThrough 同步写入所有层，writeBack 只同步写第一层
	WritePolicy string `cfg:"writePolicy" def:"writeThrough" validate:"oneof=writeThrough writeBack"`
	// 默认从下层读到的值会写回上层
	DisablePromote bool `cfg:"disablePromote"`
}

// TieredStore 多级缓存
type TieredStore struct {
	tiers       []Store
	writePolicy string
	promote     bool
}

func NewTieredStore(tiers ...Store) *TieredStore {
	return &TieredStore{tiers: tiers, writePolicy: "writeThrough", promote: true}
}

func NewTieredStoreWithOptions(options *TieredStoreOptions) (*TieredStore, error) {
	if options == nil {
		return nil, errors.New("options is nil")
	}
	if err := cfg.SetDefaults(options); err != nil {
		return nil, err
	}
	if err := cfg.Validate(options); err != nil {
		return nil, err
	}

	tiers := make([]Store, 0, len(options.Tiers))
	for i, tierOptions := range options.Tiers {
		tier, err := NewStoreWithOptions(tierOptions)
		if err != nil {
			for _, created := range tiers {
				created.Close()
			}
			return nil, errors.WithMessagef(err, "failed to create tier %d", i)
		}
		tiers = append(tiers, tier)
	}
	return &TieredStore{
		tiers:       tiers,
		writePolicy: options.WritePolicy,
		promote:     !options.DisablePromote,
	}, nil
}

func (ts *TieredStore) Get(ctx context.Context, key string) ([]byte, error) {
	for i, tier := range ts.tiers {
		value, err := tier.Get(ctx, key)
		if err != nil {
			// 某一层出错时继续读下一层
			continue
		}
		if ts.promote && i > 0 {
			for _, upper := range ts.tiers[:i] {
				_ = upper.Set(ctx, key, value)
			}
		}
		return value, nil
	}
	return nil, ErrKeyNotFound
}

func (ts *TieredStore) Set(ctx context.Context, key string, value []byte, opts ...SetOption) error {
	if len(ts.tiers) == 0 {
		return errors.New("no tiers available")
	}
	if ts.writePolicy == "writeBack" {
		if err := ts.tiers[0].Set(ctx, key, value, opts...); err != nil {
			return err
		}
		go func() {
			for _, tier := range ts.tiers[1:] {
				_ = tier.Set(context.Background(), key, value, opts...)
			}
		}()
		return nil
	}

	var lastErr error
	success := false
	for _, tier := range ts.tiers {
		if err := tier.Set(ctx, key, value, opts...); err != nil {
			lastErr = err
		} else {
			success = true
		}
	}
	if !success {
		return lastErr
	}
	return nil
}

// Del 删除所有层，返回最后一个错误
func (ts *TieredStore) Del(ctx context.Context, key string) error {
	var lastErr error
	for _, tier := range ts.tiers {
		if err := tier.Del(ctx, key); err != nil {
			lastErr = err
		}
	}
	return lastErr
}

func (ts *TieredStore) Close() error {
	var errs []string
	for i, tier := range ts.tiers {
		if err := tier.Close(); err != nil {
			errs = append(errs, errors.WithMessagef(err, "failed to close tier %d", i).Error())
		}
	}
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}
