package calls

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// LogNotifier writes events to the structured log. It is the default notifier.
type LogNotifier struct {
	log *slog.Logger
}

func NewLogNotifier(l *slog.Logger) *LogNotifier {
	if l == nil {
		l = slog.Default()
	}
	return &LogNotifier{log: l}
}

func (n *LogNotifier) Notify(ctx context.Context, e Event) error {
	n.log.Info("session event", "type", e.Type, "session_id", e.SessionID, "remaining_minutes", e.Remaining.String())
	return nil
}

// RedisNotifier publishes events as JSON on a per-session channel.
// The real-time transport subscribes to talkline:session:<id> and pushes to both participants.
type RedisNotifier struct {
	rdb *redis.Client
}

func NewRedisNotifier(rdb *redis.Client) *RedisNotifier { return &RedisNotifier{rdb: rdb} }

func SessionChannel(sessionID string) string { return "talkline:session:" + sessionID }

func (n *RedisNotifier) Notify(ctx context.Context, e Event) error {
	if n.rdb == nil {
		return fmt.Errorf("redis client is nil")
	}
	b, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return n.rdb.Publish(ctx, SessionChannel(e.SessionID), b).Err()
}
