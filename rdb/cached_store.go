package rdb

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"

	"github.com/hatlonely/dbstruct/cache"
	"github.com/hatlonely/dbstruct/cfg"
	"github.com/hatlonely/dbstruct/log"
	"github.com/hatlonely/dbstruct/log/logger"
	"github.com/hatlonely/dbstruct/ref"
	"github.com/hatlonely/dbstruct/schema"
)

type CachedStoreOptions struct {
	// 被缓存的 Store，例如 SQLStore
	Store *ref.TypeOptions `cfg:"store" validate:"required"`
	// 为空时使用进程内的 MapStore
	Cache *ref.TypeOptions `cfg:"cache"`
	// 为空时使用 msgpack
	Codec     *ref.TypeOptions `cfg:"codec"`
	TTL       time.Duration    `cfg:"ttl" def:"5m"`
	KeyPrefix string           `cfg:"keyPrefix" def:"dbstruct:"`
	Logger    *ref.TypeOptions `cfg:"logger"`
}

type CachedStoreOption func(*CachedStore)

func WithTTL(ttl time.Duration) CachedStoreOption {
	return func(s *CachedStore) {
		s.ttl = ttl
	}
}

func WithKeyPrefix(prefix string) CachedStoreOption {
	return func(s *CachedStore) {
		s.keyPrefix = prefix
	}
}

func WithCacheLogger(l logger.Logger) CachedStoreOption {
	return func(s *CachedStore) {
		s.logger = l
	}
}

// CachedStore 按 id 缓存记录
//
// 只有 InitFromID 读缓存，Save 和 Remove 之后删除对应的键。
// 缓存值是实际存储列的 map，通过视图写入时同时删除视图和源表的键，
// 同一张表的其它视图依赖过期时间
type CachedStore struct {
	store     Store
	cache     cache.Store
	codec     cache.Codec
	ttl       time.Duration
	keyPrefix string
	logger    logger.Logger
	group     singleflight.Group
}

func NewCachedStore(store Store, c cache.Store, codec cache.Codec, opts ...CachedStoreOption) *CachedStore {
	s := &CachedStore{
		store:     store,
		cache:     c,
		codec:     codec,
		ttl:       5 * time.Minute,
		keyPrefix: "dbstruct:",
		logger:    logger.NewDiscard(),
	}
	if s.cache == nil {
		s.cache = cache.NewMapStoreWithOptions(nil)
	}
	if s.codec == nil {
		s.codec = cache.NewMsgPackCodec()
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func NewCachedStoreWithOptions(options *CachedStoreOptions) (*CachedStore, error) {
	if options == nil {
		return nil, errors.New("options is nil")
	}
	if err := cfg.SetDefaults(options); err != nil {
		return nil, err
	}
	if err := cfg.Validate(options); err != nil {
		return nil, err
	}

	store, err := NewStoreWithOptions(options.Store)
	if err != nil {
		return nil, errors.WithMessage(err, "failed to create underlying store")
	}
	c, err := cache.NewStoreWithOptions(options.Cache)
	if err != nil {
		return nil, err
	}
	codec, err := cache.NewCodecWithOptions(options.Codec)
	if err != nil {
		return nil, err
	}
	l, err := log.NewLoggerWithOptions(options.Logger)
	if err != nil {
		return nil, err
	}
	return NewCachedStore(store, c, codec,
		WithTTL(options.TTL),
		WithKeyPrefix(options.KeyPrefix),
		WithCacheLogger(l.WithGroup("cachedStore")),
	), nil
}

func (s *CachedStore) key(table string, id int64) string {
	return s.keyPrefix + strings.ToLower(table) + ":" + strconv.FormatInt(id, 10)
}

func (s *CachedStore) InitFromID(ctx context.Context, t schema.Taew, rec Record, id int64) error {
	if t.IDColumn() < 0 {
		return s.store.InitFromID(ctx, t, rec, id)
	}
	key := s.key(t.TableName(), id)

	if buf, err := s.cache.Get(ctx, key); err == nil {
		values := map[string]any{}
		if err := s.codec.Unmarshal(buf, &values); err == nil {
			return s.fill(rec, id, values)
		}
		s.logger.WarnContext(ctx, "decode cached record failed", "key", key, "error", err)
	} else if !errors.Is(err, cache.ErrKeyNotFound) {
		s.logger.WarnContext(ctx, "get cached record failed", "key", key, "error", err)
	}

	v, err, _ := s.group.Do(key, func() (any, error) {
		tmp := NewMapRecord(t)
		if err := s.store.InitFromID(ctx, t, tmp, id); err != nil {
			return nil, err
		}
		values := map[string]any{}
		for _, i := range storedColumns(t) {
			values[t.ColumnName(i)] = cacheable(tmp.Value(i))
		}
		if buf, err := s.codec.Marshal(values); err != nil {
			s.logger.WarnContext(ctx, "encode record failed", "key", key, "error", err)
		} else if err := s.cache.Set(ctx, key, buf, cache.WithExpiration(s.ttl)); err != nil {
			s.logger.WarnContext(ctx, "set cached record failed", "key", key, "error", err)
		}
		return values, nil
	})
	if err != nil {
		return err
	}
	return s.fill(rec, id, v.(map[string]any))
}

func (s *CachedStore) fill(rec Record, id int64, values map[string]any) error {
	previous := rec.ID()
	if err := rec.RetrieveMap(values); err != nil {
		rec.SetID(previous)
		return err
	}
	rec.SetID(id)
	return nil
}

func (s *CachedStore) InitFrom(ctx context.Context, t schema.Taew, rec Record, column int) error {
	return s.store.InitFrom(ctx, t, rec, column)
}

func (s *CachedStore) Save(ctx context.Context, t schema.Taew, rec Record) error {
	isNew := rec.IsNew()
	if err := s.store.Save(ctx, t, rec); err != nil {
		return err
	}
	if !isNew {
		s.invalidate(ctx, t, rec.ID())
	}
	return nil
}

func (s *CachedStore) Remove(ctx context.Context, t schema.Taew, rec Record, column int) error {
	id := rec.ID()
	if err := s.store.Remove(ctx, t, rec, column); err != nil {
		return err
	}
	if id >= 0 {
		s.invalidate(ctx, t, id)
	}
	return nil
}

func (s *CachedStore) RowsInTable(ctx context.Context, t schema.Taew) (int64, error) {
	return s.store.RowsInTable(ctx, t)
}

func (s *CachedStore) invalidate(ctx context.Context, t schema.Taew, id int64) {
	keys := []string{s.key(t.TableName(), id)}
	if t.Kind() == schema.KindView {
		keys = append(keys, s.key(t.ModifyTableName(), id))
	}
	for _, key := range keys {
		if err := s.cache.Del(ctx, key); err != nil {
			s.logger.WarnContext(ctx, "delete cached record failed", "key", key, "error", err)
		}
	}
}

func (s *CachedStore) Close() error {
	var errs []string
	for _, c := range []any{s.store, s.cache} {
		if closer, ok := c.(interface{ Close() error }); ok {
			if err := closer.Close(); err != nil {
				errs = append(errs, err.Error())
			}
		}
	}
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

// cacheable decimal 编码为字符串，读取时按列类型还原
func cacheable(v any) any {
	if d, ok := v.(decimal.Decimal); ok {
		return d.String()
	}
	return v
}
