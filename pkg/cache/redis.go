package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"golang-storefront-backend/pkg/logging"

	"github.com/go-redis/redis/v8"
)

var ErrCacheMiss = errors.New("cache miss")

// RedisCache stores JSON values under "<prefix>:<key>" names.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache connects to url, either host:port or a redis:// URL. A
// password or db given here overrides the URL's. It returns nil when the
// server does not answer a ping, so callers can run without a cache.
func NewRedisCache(url, password string, db int) *RedisCache {
	opts, err := options(url)
	if err != nil {
		logging.Logger().WithError(err).Error("invalid redis url")
		return nil
	}
	if password != "" {
		opts.Password = password
	}
	if db != 0 {
		opts.DB = db
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logging.Logger().WithError(err).WithField("addr", opts.Addr).Error("failed to connect to redis")
		client.Close()
		return nil
	}

	logging.Logger().WithField("addr", opts.Addr).Info("connected to redis")
	return &RedisCache{client: client}
}

func options(url string) (*redis.Options, error) {
	if strings.HasPrefix(url, "redis://") || strings.HasPrefix(url, "rediss://") {
		return redis.ParseURL(url)
	}
	return &redis.Options{Addr: url}, nil
}

func (r *RedisCache) set(ctx context.Context, name string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, name, data, ttl).Err()
}

// get decodes the stored JSON into dest. A missing key is ErrCacheMiss.
func (r *RedisCache) get(ctx context.Context, name string, dest interface{}) error {
	raw, err := r.client.Get(ctx, name).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrCacheMiss
	}
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dest)
}

func (r *RedisCache) SetWithPrefix(ctx context.Context, prefix, key string, value interface{}, ttl time.Duration) error {
	return r.set(ctx, prefix+":"+key, value, ttl)
}

func (r *RedisCache) GetWithPrefix(ctx context.Context, prefix, key string, dest interface{}) error {
	return r.get(ctx, prefix+":"+key, dest)
}

func (r *RedisCache) Close() error {
	return r.client.Close()
}
