package utils

import (
	"context"
	"testing"
	"time"
)

func TestLease_ValidatesArguments(t *testing.T) {
	ctx := context.Background()
	if _, err := AcquireLease(ctx, nil, "k", "owner", time.Second); err == nil {
		t.Fatalf("expected error for nil client")
	}
	if _, err := ReleaseLease(ctx, nil, "k", "owner"); err == nil {
		t.Fatalf("expected error for nil client")
	}
	if releaseLeaseScript == nil {
		t.Fatalf("expected release script initialized")
	}
}

func TestRedisConfig_Defaults(t *testing.T) {
	c := RedisConfig{Addr: "localhost:6379", PoolSize: 4}.withDefaults()
	if c.PoolSize != 4 {
		t.Fatalf("expected explicit pool size kept, got %d", c.PoolSize)
	}
	if c.DialTimeout != 3*time.Second || c.PingTimeout != 2*time.Second {
		t.Fatalf("unexpected defaults %+v", c)
	}
	if c.ConnMaxLifetime != 30*time.Minute {
		t.Fatalf("expected 30m conn lifetime, got %v", c.ConnMaxLifetime)
	}
}

func TestOpenRedis_RequiresAddr(t *testing.T) {
	if _, err := OpenRedis(context.Background(), RedisConfig{}); err == nil {
		t.Fatalf("expected error without addr")
	}
}
