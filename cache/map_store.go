package cache

import (
	"context"
	"sync"
	"time"
)

type MapStoreOptions struct {
	// 0 表示不过期
	DefaultTTL time.Duration `cfg:"defaultTTL"`
}

type mapEntry struct {
	value    []byte
	expireAt time.Time
}

// MapStore 进程内缓存，过期的键在读取时清理
type MapStore struct {
	mu         sync.RWMutex
	m          map[string]mapEntry
	defaultTTL time.Duration
	now        func() time.Time
}

func NewMapStoreWithOptions(options *MapStoreOptions) *MapStore {
	if options == nil {
		options = &MapStoreOptions{}
	}
	return &MapStore{
		m:          map[string]mapEntry{},
		defaultTTL: options.DefaultTTL,
		now:        time.Now,
	}
}

func (s *MapStore) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	entry, ok := s.m[key]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrKeyNotFound
	}
	if !entry.expireAt.IsZero() && !s.now().Before(entry.expireAt) {
		s.mu.Lock()
		if cur, ok := s.m[key]; ok && cur.expireAt.Equal(entry.expireAt) {
			delete(s.m, key)
		}
		s.mu.Unlock()
		return nil, ErrKeyNotFound
	}
	return entry.value, nil
}

func (s *MapStore) Set(ctx context.Context, key string, value []byte, opts ...SetOption) error {
	options := newSetOptions(s.defaultTTL, opts)

	entry := mapEntry{value: append([]byte(nil), value...)}
	if options.Expiration > 0 {
		entry.expireAt = s.now().Add(options.Expiration)
	}

	s.mu.Lock()
	s.m[key] = entry
	s.mu.Unlock()
	return nil
}

func (s *MapStore) Del(ctx context.Context, key string) error {
	s.mu.Lock()
	delete(s.m, key)
	s.mu.Unlock()
	return nil
}

func (s *MapStore) Close() error {
	s.mu.Lock()
	s.m = map[string]mapEntry{}
	s.mu.Unlock()
	return nil
}
