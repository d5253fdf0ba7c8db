package cache

import (
	"context"
	"math"
	"time"

	"github.com/coocood/freecache"
	"github.com/pkg/errors"

	"github.com/hatlonely/dbstruct/cfg"
)

type FreeCacheStoreOptions struct {
	// 字节数，freecache 最小 512KB
	Size       int           `cfg:"size" def:"33554432"`
	DefaultTTL time.Duration `cfg:"defaultTTL"`
}

type FreeCacheStore struct {
	cache      *freecache.Cache
	defaultTTL time.Duration
}

func NewFreeCacheStoreWithOptions(options *FreeCacheStoreOptions) (*FreeCacheStore, error) {
	if options == nil {
		options = &FreeCacheStoreOptions{}
	}
	if err := cfg.SetDefaults(options); err != nil {
		return nil, err
	}
	return &FreeCacheStore{
		cache:      freecache.NewCache(options.Size),
		defaultTTL: options.DefaultTTL,
	}, nil
}

func (s *FreeCacheStore) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := s.cache.Get([]byte(key))
	if err != nil {
		if errors.Is(err, freecache.ErrNotFound) {
			return nil, ErrKeyNotFound
		}
		return nil, errors.Wrap(err, "freecache get failed")
	}
	return value, nil
}

func (s *FreeCacheStore) Set(ctx context.Context, key string, value []byte, opts ...SetOption) error {
	options := newSetOptions(s.defaultTTL, opts)
	if err := s.cache.Set([]byte(key), value, expireSeconds(options.Expiration)); err != nil {
		return errors.Wrap(err, "freecache set failed")
	}
	return nil
}

func (s *FreeCacheStore) Del(ctx context.Context, key string) error {
	s.cache.Del([]byte(key))
	return nil
}

func (s *FreeCacheStore) Close() error {
	s.cache.Clear()
	return nil
}

// expireSeconds 不足一秒按一秒算，0 表示不过期
func expireSeconds(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(math.Ceil(d.Seconds()))
}
