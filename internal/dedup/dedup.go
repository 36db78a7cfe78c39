// Package dedup provides first-delivery detection for webhook messages. The
// chat platform retries deliveries it did not get a timely 200 for, so every
// message id must be claimed exactly once before its side effects run.
//
// Claims fail open: when the backing store is unreachable the message is
// treated as new. A duplicated reply is annoying, a silently dropped user
// message is broken.
package dedup

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/madu12/whatsapp-chatbot-webhook/internal/pkg/envutil"
	"github.com/madu12/whatsapp-chatbot-webhook/internal/pkg/logger"
)

type Deduplicator interface {
	// ShouldProcess claims the id and reports whether this delivery is the
	// first one seen inside the retention window and should run its effects.
	ShouldProcess(ctx context.Context, messageID string) bool
	Close() error
}

const DefaultTTL = 24 * time.Hour

// ---------- redis ----------

type redisDedup struct {
	log    *logger.Logger
	rdb    *goredis.Client
	prefix string
	ttl    time.Duration
}

func NewRedis(log *logger.Logger) (Deduplicator, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	addr := strings.TrimSpace(envutil.String("REDIS_ADDR", ""))
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}
	ttl := envutil.Duration("DEDUP_TTL", DefaultTTL)

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &redisDedup{
		log:    log.With("service", "MessageDedup"),
		rdb:    rdb,
		prefix: "wamid:",
		ttl:    ttl,
	}, nil
}

func (d *redisDedup) ShouldProcess(ctx context.Context, messageID string) bool {
	messageID = strings.TrimSpace(messageID)
	if messageID == "" {
		return false
	}
	if d == nil || d.rdb == nil {
		return true
	}
	claimed, err := d.rdb.SetNX(ctx, d.prefix+messageID, 1, d.ttl).Result()
	if err != nil {
		d.log.Warn("dedup store unavailable, treating message as new",
			"message_id", messageID,
			"error", err.Error(),
		)
		return true
	}
	return claimed
}

func (d *redisDedup) Close() error {
	if d == nil || d.rdb == nil {
		return nil
	}
	return d.rdb.Close()
}

// ---------- in-memory ----------

// memoryDedup keeps claims in process memory. Used when REDIS_ADDR is not
// configured and in tests; claims do not survive a restart.
type memoryDedup struct {
	mu   sync.Mutex
	seen map[string]time.Time
	ttl  time.Duration
	now  func() time.Time
}

func NewMemory(ttl time.Duration) Deduplicator {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &memoryDedup{
		seen: make(map[string]time.Time),
		ttl:  ttl,
		now:  time.Now,
	}
}

func (d *memoryDedup) ShouldProcess(_ context.Context, messageID string) bool {
	messageID = strings.TrimSpace(messageID)
	if messageID == "" {
		return false
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	for id, expiry := range d.seen {
		if now.After(expiry) {
			delete(d.seen, id)
		}
	}
	if expiry, ok := d.seen[messageID]; ok && now.Before(expiry) {
		return false
	}
	d.seen[messageID] = now.Add(d.ttl)
	return true
}

func (d *memoryDedup) Close() error { return nil }
