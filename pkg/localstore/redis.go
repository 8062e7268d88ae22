package localstore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/akenterprises/storefront/pkg/config"
	"github.com/redis/go-redis/v9"
)

// Redis persists state in a redis instance. Keys are namespaced
// "<ns>:state:<key>" and carry no TTL: the cache must survive reloads.
type Redis struct {
	raw *redis.Client
	ns  string
}

// OpenRedis connects and verifies connectivity before returning.
func OpenRedis(ctx context.Context, cfg config.LocalStoreConfig) (*Redis, error) {
	opts, err := redisOptions(cfg)
	if err != nil {
		return nil, err
	}
	raw := redis.NewClient(opts)
	if err := raw.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	ns := strings.TrimSpace(cfg.Namespace)
	if ns == "" {
		ns = "sf"
	}
	return &Redis{raw: raw, ns: ns}, nil
}

func redisOptions(cfg config.LocalStoreConfig) (*redis.Options, error) {
	if cfg.RedisURL == "" && cfg.RedisAddr == "" {
		return nil, errors.New("redis url or address is required")
	}
	var opts *redis.Options
	if cfg.RedisURL != "" {
		parsed, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("parsing redis url: %w", err)
		}
		opts = parsed
	} else {
		opts = &redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}
	}
	if opts.DialTimeout == 0 {
		opts.DialTimeout = cfg.RedisDialTimeout
	}
	if opts.ReadTimeout == 0 {
		opts.ReadTimeout = cfg.RedisReadTimeout
	}
	if opts.WriteTimeout == 0 {
		opts.WriteTimeout = cfg.RedisWriteTimeout
	}
	return opts, nil
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, error) {
	raw, err := r.raw.Get(ctx, r.buildKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return raw, nil
}

func (r *Redis) Set(ctx context.Context, key string, value []byte) error {
	return r.raw.Set(ctx, r.buildKey(key), value, 0).Err()
}

func (r *Redis) Delete(ctx context.Context, key string) error {
	return r.raw.Del(ctx, r.buildKey(key)).Err()
}

func (r *Redis) Close() error {
	return r.raw.Close()
}

func (r *Redis) buildKey(key string) string {
	return strings.Join([]string{r.ns, "state", key}, ":")
}
