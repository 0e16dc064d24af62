package utils

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig controls redis client behavior. Zero fields get defaults.
type RedisConfig struct {
	Addr string

	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	PingTimeout  time.Duration

	PoolSize        int
	MinIdleConns    int
	PoolTimeout     time.Duration
	ConnMaxIdleTime time.Duration
	ConnMaxLifetime time.Duration
}

func (c RedisConfig) withDefaults() RedisConfig {
	durationOr(&c.DialTimeout, 3*time.Second)
	durationOr(&c.ReadTimeout, 2*time.Second)
	durationOr(&c.WriteTimeout, 2*time.Second)
	durationOr(&c.PingTimeout, 2*time.Second)
	durationOr(&c.PoolTimeout, 4*time.Second)
	durationOr(&c.ConnMaxIdleTime, 5*time.Minute)
	durationOr(&c.ConnMaxLifetime, 30*time.Minute)
	if c.PoolSize <= 0 {
		c.PoolSize = 20
	}
	if c.MinIdleConns < 0 {
		c.MinIdleConns = 0
	}
	return c
}

func durationOr(d *time.Duration, def time.Duration) {
	if *d <= 0 {
		*d = def
	}
}

// OpenRedis returns a pinged client.
func OpenRedis(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("redis addr is required")
	}
	cfg = cfg.withDefaults()

	rdb := redis.NewClient(&redis.Options{
		Addr:            cfg.Addr,
		DialTimeout:     cfg.DialTimeout,
		ReadTimeout:     cfg.ReadTimeout,
		WriteTimeout:    cfg.WriteTimeout,
		PoolSize:        cfg.PoolSize,
		MinIdleConns:    cfg.MinIdleConns,
		PoolTimeout:     cfg.PoolTimeout,
		ConnMaxIdleTime: cfg.ConnMaxIdleTime,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
	})

	pingCtx, cancel := context.WithTimeout(ctx, cfg.PingTimeout)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.Addr, err)
	}
	return rdb, nil
}

// releaseLeaseScript deletes the key only while owner still holds it, so a
// late release cannot free a lease that expired and was taken by someone else.
var releaseLeaseScript = redis.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
  return redis.call('DEL', KEYS[1])
end
return 0
`)

// AcquireLease sets key to owner unless it is already held. The TTL bounds
// how long a crashed holder keeps the lease.
func AcquireLease(ctx context.Context, rdb *redis.Client, key, owner string, ttl time.Duration) (bool, error) {
	if err := checkLease(rdb, key, owner); err != nil {
		return false, err
	}
	if ttl <= 0 {
		return false, fmt.Errorf("lease ttl must be > 0")
	}
	return rdb.SetNX(ctx, key, owner, ttl).Result()
}

// ReleaseLease frees key if owner holds it. Releasing a lease held by
// another owner, or one already expired, is not an error.
func ReleaseLease(ctx context.Context, rdb *redis.Client, key, owner string) (bool, error) {
	if err := checkLease(rdb, key, owner); err != nil {
		return false, err
	}
	n, err := releaseLeaseScript.Run(ctx, rdb, []string{key}, owner).Int()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func checkLease(rdb *redis.Client, key, owner string) error {
	switch {
	case rdb == nil:
		return fmt.Errorf("redis client is nil")
	case key == "":
		return fmt.Errorf("lease key is required")
	case owner == "":
		return fmt.Errorf("lease owner is required")
	}
	return nil
}
