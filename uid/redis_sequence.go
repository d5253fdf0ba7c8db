package uid

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/hatlonely/dbstruct/cfg"
)

type RedisSequenceOptions struct {
	Endpoint string `cfg:"endpoint" validate:"required"`
	Password string `cfg:"password"`
	DB       int    `cfg:"db"`
	// 计数器的键，通常每个表一个
	Key     string        `cfg:"key" validate:"required"`
	Timeout time.Duration `cfg:"timeout" def:"3s"`
}

// RedisSequenceGenerator 用 INCR 生成多个进程共享的连续 id
type RedisSequenceGenerator struct {
	client  *redis.Client
	key     string
	timeout time.Duration
}

func NewRedisSequenceGeneratorWithOptions(options *RedisSequenceOptions) (*RedisSequenceGenerator, error) {
	if options == nil {
		return nil, errors.New("redis sequence options are required")
	}
	if err := cfg.SetDefaults(options); err != nil {
		return nil, err
	}
	if err := cfg.Validate(options); err != nil {
		return nil, err
	}

	return &RedisSequenceGenerator{
		client: redis.NewClient(&redis.Options{
			Addr:     options.Endpoint,
			Password: options.Password,
			DB:       options.DB,
		}),
		key:     options.Key,
		timeout: options.Timeout,
	}, nil
}

func (g *RedisSequenceGenerator) NextID(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	id, err := g.client.Incr(ctx, g.key).Result()
	if err != nil {
		return 0, errors.Wrapf(err, "incr %s failed", g.key)
	}
	return id, nil
}

func (g *RedisSequenceGenerator) Close() error {
	return g.client.Close()
}
