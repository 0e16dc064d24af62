package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// RevocationStore records account-wide "log out everywhere" instants.
type RevocationStore interface {
	RevokeAllBefore(ctx context.Context, accountID string, at time.Time) error
	RevokedAt(ctx context.Context, accountID string) (time.Time, bool, error)
}

// Revoker invalidates every credential an account currently holds.
// It is the credential store collaborator used by suspension escalation.
type Revoker struct {
	store RevocationStore
	clock func() time.Time
}

func NewRevoker(store RevocationStore) *Revoker {
	return &Revoker{store: store, clock: time.Now}
}

// RevokeAll must succeed or report; it never silently no-ops.
func (r *Revoker) RevokeAll(ctx context.Context, accountID string) error {
	if r == nil || r.store == nil {
		return errors.New("auth: revocation store not configured")
	}
	if accountID == "" {
		return errors.New("auth: account id required")
	}
	return r.store.RevokeAllBefore(ctx, accountID, r.clock().UTC())
}

/* ===================== REDIS ===================== */

const revokedKeyPrefix = "auth:revoked:"

// RedisRevocations keeps one key per revoked account holding a unix timestamp.
// Keys expire after ttl; by then every token issued before the revocation has expired too.
type RedisRevocations struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisRevocations(rdb *redis.Client, ttl time.Duration) *RedisRevocations {
	return &RedisRevocations{rdb: rdb, ttl: ttl}
}

func (s *RedisRevocations) RevokeAllBefore(ctx context.Context, accountID string, at time.Time) error {
	if s.rdb == nil {
		return fmt.Errorf("redis client is nil")
	}
	return s.rdb.Set(ctx, revokedKeyPrefix+accountID, at.Unix(), s.ttl).Err()
}

func (s *RedisRevocations) RevokedAt(ctx context.Context, accountID string) (time.Time, bool, error) {
	if s.rdb == nil {
		return time.Time{}, false, fmt.Errorf("redis client is nil")
	}
	v, err := s.rdb.Get(ctx, revokedKeyPrefix+accountID).Result()
	if errors.Is(err, redis.Nil) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}
	sec, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("auth: bad revocation value for %s: %w", accountID, err)
	}
	return time.Unix(sec, 0).UTC(), true, nil
}

/* ===================== MEMORY ===================== */

// MemoryRevocations is an in-memory store for tests and local development.
type MemoryRevocations struct {
	mu      sync.Mutex
	revoked map[string]time.Time
	calls   map[string]int
}

func NewMemoryRevocations() *MemoryRevocations {
	return &MemoryRevocations{revoked: map[string]time.Time{}, calls: map[string]int{}}
}

func (s *MemoryRevocations) RevokeAllBefore(ctx context.Context, accountID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.revoked[accountID] = at.Truncate(time.Second)
	s.calls[accountID]++
	return nil
}

func (s *MemoryRevocations) RevokedAt(ctx context.Context, accountID string) (time.Time, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	at, ok := s.revoked[accountID]
	return at, ok, nil
}

// Calls returns how many times accountID was revoked.
func (s *MemoryRevocations) Calls(accountID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[accountID]
}
