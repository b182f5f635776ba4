package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	rgerr "github.com/RealmGate/realmgate-core/pkg/errors"
)

// RedisConfig holds connection settings for a Redis-backed cache.
type RedisConfig struct {
	Addr     string `env:"ADDR" envDefault:"localhost:6379" yaml:"addr"`
	Password string `env:"PASSWORD" yaml:"password"`
	DB       int    `env:"DB" envDefault:"0" yaml:"db"`

	DialTimeout  time.Duration `env:"DIAL_TIMEOUT" envDefault:"5s" yaml:"dial_timeout"`
	ReadTimeout  time.Duration `env:"READ_TIMEOUT" envDefault:"3s" yaml:"read_timeout"`
	WriteTimeout time.Duration `env:"WRITE_TIMEOUT" envDefault:"3s" yaml:"write_timeout"`
}

// Redis is a [Cache] backed by a Redis server. Entries are shared across
// processes, which keeps key-set fetches down when several instances sit
// behind the same load balancer.
type Redis struct {
	client redis.UniversalClient
}

// NewRedis connects to Redis and verifies the connection with a ping.
func NewRedis(ctx context.Context, cfg RedisConfig) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, wrapRedisError(err, "failed to connect to redis at "+cfg.Addr)
	}

	return &Redis{client: client}, nil
}

// NewRedisFromClient wraps an existing client. Useful in tests and when the
// composition root shares one client across components.
func NewRedisFromClient(client redis.UniversalClient) *Redis {
	return &Redis{client: client}
}

// Get implements [Cache].
func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	value, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, wrapRedisError(err, "redis get failed for key "+key)
	}
	return value, true, nil
}

// Set implements [Cache]. A non-positive ttl becomes 0, which go-redis
// treats as no expiry.
func (r *Redis) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	if err := r.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return wrapRedisError(err, "redis set failed for key "+key)
	}
	return nil
}

// Delete implements [Cache].
func (r *Redis) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return wrapRedisError(err, "redis delete failed for key "+key)
	}
	return nil
}

// Health pings the server.
func (r *Redis) Health(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return wrapRedisError(err, "redis health check failed")
	}
	return nil
}

// Close releases the underlying connection pool.
func (r *Redis) Close() error {
	return r.client.Close()
}

func wrapRedisError(err error, message string) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return rgerr.Wrap(err, rgerr.CodeTimeout, message)
	default:
		return rgerr.Wrap(err, rgerr.CodeUnavailableDependency, message)
	}
}
