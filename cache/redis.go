package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

type ConnectionInfo struct {
	Addr        string
	Password    string
	DB          int
	MaxRetries  int
	DialTimeout time.Duration
	Timeout     time.Duration
}

// NewRedisConnection connects and pings.
func NewRedisConnection(info ConnectionInfo) (*goredis.Client, error) {
	opts := &goredis.Options{
		Addr:         info.Addr,
		Password:     info.Password,
		DB:           info.DB,
		MaxRetries:   info.MaxRetries,
		DialTimeout:  info.DialTimeout,
		ReadTimeout:  info.Timeout,
		WriteTimeout: info.Timeout,
	}

	rdb := goredis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), info.Timeout)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, err
	}

	return rdb, nil
}

// Redis is a ResultCache backed by a shared redis instance.
type Redis struct {
	client *goredis.Client
	prefix string
	ttl    time.Duration
}

var _ ResultCache = (*Redis)(nil)

func NewRedis(client *goredis.Client, prefix string, ttl time.Duration) *Redis {
	return &Redis{client: client, prefix: prefix, ttl: ttl}
}

func (r *Redis) generationKey() string { return r.prefix + ":generation" }

func (r *Redis) generation(ctx context.Context) (Generation, error) {
	gen, err := r.client.Get(ctx, r.generationKey()).Int64()
	if errors.Is(err, goredis.Nil) {
		return 0, nil
	}
	return Generation(gen), err
}

func (r *Redis) entryKey(gen Generation, key string) string {
	return fmt.Sprintf("%s:%d:%s", r.prefix, gen, key)
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, Generation, bool, error) {
	gen, err := r.generation(ctx)
	if err != nil {
		return nil, 0, false, fmt.Errorf("failed to read cache generation: %w", err)
	}
	data, err := r.client.Get(ctx, r.entryKey(gen, key)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, gen, false, nil
	}
	if err != nil {
		return nil, gen, false, fmt.Errorf("failed to read cache entry: %w", err)
	}
	return data, gen, true, nil
}

// Set writes under gen, the generation seen by the preceding Get. After an
// Invalidate that key is never read again and expires through the TTL.
func (r *Redis) Set(ctx context.Context, gen Generation, key string, value []byte) error {
	if err := r.client.Set(ctx, r.entryKey(gen, key), value, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write cache entry: %w", err)
	}
	return nil
}

func (r *Redis) Invalidate(ctx context.Context) error {
	if err := r.client.Incr(ctx, r.generationKey()).Err(); err != nil {
		return fmt.Errorf("failed to bump cache generation: %w", err)
	}
	return nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}
