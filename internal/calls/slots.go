package calls

import (
	"context"
	"sync"
	"time"

	"talkline/pkg/utils"

	"github.com/redis/go-redis/v9"
)

func responderSlotKey(responderID string) string { return "talkline:responder:busy:" + responderID }

// RedisSlots holds a per-responder lease owned by the live session.
type RedisSlots struct {
	rdb *redis.Client
}

func NewRedisSlots(rdb *redis.Client) *RedisSlots { return &RedisSlots{rdb: rdb} }

func (s *RedisSlots) Acquire(ctx context.Context, responderID, sessionID string, ttl time.Duration) (bool, error) {
	return utils.AcquireLease(ctx, s.rdb, responderSlotKey(responderID), sessionID, ttl)
}

func (s *RedisSlots) Release(ctx context.Context, responderID, sessionID string) error {
	_, err := utils.ReleaseLease(ctx, s.rdb, responderSlotKey(responderID), sessionID)
	return err
}

// MemorySlots is the in-process equivalent of RedisSlots. TTLs are ignored.
type MemorySlots struct {
	mu    sync.Mutex
	owner map[string]string
}

func NewMemorySlots() *MemorySlots { return &MemorySlots{owner: map[string]string{}} }

func (s *MemorySlots) Acquire(_ context.Context, responderID, sessionID string, _ time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, held := s.owner[responderID]; held {
		return false, nil
	}
	s.owner[responderID] = sessionID
	return true, nil
}

func (s *MemorySlots) Release(_ context.Context, responderID, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.owner[responderID] == sessionID {
		delete(s.owner, responderID)
	}
	return nil
}
