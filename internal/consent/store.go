package consent

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/shopaway/orchestrator/internal/corelog"
	"github.com/shopaway/orchestrator/internal/resilience"
)

// HaltStore persists and retrieves HaltRecords keyed by session id, per
// spec.md §4.7's halt lifecycle. ctx governs the call's own deadline,
// not the record's TTL.
type HaltStore interface {
	Save(ctx context.Context, rec HaltRecord, ttl time.Duration) error
	Load(ctx context.Context, sessionID string) (HaltRecord, bool, error)
	Delete(ctx context.Context, sessionID string) error
}

// InMemoryHaltStore is a process-local HaltStore, suitable for tests and
// single-process deployments. It does not enforce TTL expiry proactively;
// Load reports a record absent once its deadline has passed.
type InMemoryHaltStore struct {
	mu      sync.Mutex
	records map[string]inMemoryEntry
	clock   corelog.Clock
}

type inMemoryEntry struct {
	rec      HaltRecord
	deadline time.Time
}

// NewInMemoryHaltStore builds an InMemoryHaltStore. A nil clock defaults
// to the system clock.
func NewInMemoryHaltStore(clock corelog.Clock) *InMemoryHaltStore {
	if clock == nil {
		clock = corelog.SystemClock{}
	}
	return &InMemoryHaltStore{records: map[string]inMemoryEntry{}, clock: clock}
}

func (s *InMemoryHaltStore) Save(ctx context.Context, rec HaltRecord, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.SessionID] = inMemoryEntry{rec: rec, deadline: s.clock.Now().Add(ttl)}
	return nil
}

func (s *InMemoryHaltStore) Load(ctx context.Context, sessionID string) (HaltRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.records[sessionID]
	if !ok {
		return HaltRecord{}, false, nil
	}
	if s.clock.Now().After(entry.deadline) {
		delete(s.records, sessionID)
		return HaltRecord{}, false, nil
	}
	return entry.rec, true, nil
}

func (s *InMemoryHaltStore) Delete(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, sessionID)
	return nil
}

var _ HaltStore = (*InMemoryHaltStore)(nil)

// RedisHaltStore is the production HaltStore, grounded on the teacher's
// RedisCheckpointStore (orchestration/hitl_checkpoint_store.go):
// functional-options construction, redis.ParseURL, JSON-marshaled values
// under a prefixed key, redis.Nil mapped to "not found", and
// resilience.Retry wrapping the network round trip so a blip while
// persisting a halt doesn't immediately fall back to the degrade path
// spec.md §4.7 describes for a hard persistence failure.
type RedisHaltStore struct {
	client    *redis.Client
	keyPrefix string
	logger    corelog.Logger
	retry     resilience.RetryConfig
}

type redisHaltStoreConfig struct {
	redisURL  string
	db        int
	keyPrefix string
	logger    corelog.ComponentAwareLogger
	retry     resilience.RetryConfig
}

// RedisHaltStoreOption configures NewRedisHaltStore, mirroring the
// teacher's RedisCheckpointStoreOption pattern.
type RedisHaltStoreOption func(*redisHaltStoreConfig)

func WithHaltRedisURL(url string) RedisHaltStoreOption {
	return func(c *redisHaltStoreConfig) { c.redisURL = url }
}

func WithHaltRedisDB(db int) RedisHaltStoreOption {
	return func(c *redisHaltStoreConfig) { c.db = db }
}

func WithHaltKeyPrefix(prefix string) RedisHaltStoreOption {
	return func(c *redisHaltStoreConfig) { c.keyPrefix = prefix }
}

func WithHaltStoreLogger(logger corelog.ComponentAwareLogger) RedisHaltStoreOption {
	return func(c *redisHaltStoreConfig) { c.logger = logger }
}

func WithHaltStoreRetry(retry resilience.RetryConfig) RedisHaltStoreOption {
	return func(c *redisHaltStoreConfig) { c.retry = retry }
}

// NewRedisHaltStore connects to Redis and returns a ready-to-use
// RedisHaltStore. It pings once at construction so a misconfigured URL
// fails fast rather than on the first halted orchestration.
func NewRedisHaltStore(opts ...RedisHaltStoreOption) (*RedisHaltStore, error) {
	cfg := &redisHaltStoreConfig{
		redisURL:  "redis://localhost:6379",
		db:        0,
		keyPrefix: "orchestrator:halt",
		logger:    corelog.NoOpLogger{},
		retry:     resilience.DefaultRetryConfig(),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	redisOpts, err := redis.ParseURL(cfg.redisURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url %q: %w", cfg.redisURL, err)
	}
	redisOpts.DB = cfg.db
	client := redis.NewClient(redisOpts)

	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("connecting to redis at %q: %w", cfg.redisURL, err)
	}

	return &RedisHaltStore{
		client:    client,
		keyPrefix: cfg.keyPrefix,
		logger:    cfg.logger.WithComponent("consent.halt_store"),
		retry:     cfg.retry,
	}, nil
}

func (s *RedisHaltStore) key(sessionID string) string {
	return fmt.Sprintf("%s:%s", s.keyPrefix, sessionID)
}

func (s *RedisHaltStore) Save(ctx context.Context, rec HaltRecord, ttl time.Duration) error {
	if ttl < MinHaltTTL {
		ttl = MinHaltTTL
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshaling halt record for session %s: %w", rec.SessionID, err)
	}

	key := s.key(rec.SessionID)
	err = resilience.Retry(ctx, s.retry, func() error {
		return s.client.Set(ctx, key, data, ttl).Err()
	})
	if err != nil {
		s.logger.Warn("failed to persist halt record", map[string]interface{}{
			"session_id": rec.SessionID,
			"error":      err.Error(),
		})
		return fmt.Errorf("saving halt record for session %s: %w", rec.SessionID, err)
	}
	return nil
}

func (s *RedisHaltStore) Load(ctx context.Context, sessionID string) (HaltRecord, bool, error) {
	var data string
	var notFound bool
	err := resilience.Retry(ctx, s.retry, func() error {
		var err error
		data, err = s.client.Get(ctx, s.key(sessionID)).Result()
		if err == redis.Nil {
			// Key genuinely absent, not a transient fault — retrying
			// would just waste the backoff budget on a cache miss.
			notFound = true
			return nil
		}
		return err
	})
	if notFound {
		return HaltRecord{}, false, nil
	}
	if err != nil {
		return HaltRecord{}, false, fmt.Errorf("loading halt record for session %s: %w", sessionID, err)
	}

	var rec HaltRecord
	if err := json.Unmarshal([]byte(data), &rec); err != nil {
		return HaltRecord{}, false, fmt.Errorf("unmarshaling halt record for session %s: %w", sessionID, err)
	}
	return rec, true, nil
}

func (s *RedisHaltStore) Delete(ctx context.Context, sessionID string) error {
	err := resilience.Retry(ctx, s.retry, func() error {
		return s.client.Del(ctx, s.key(sessionID)).Err()
	})
	if err != nil {
		return fmt.Errorf("deleting halt record for session %s: %w", sessionID, err)
	}
	return nil
}

var _ HaltStore = (*RedisHaltStore)(nil)
