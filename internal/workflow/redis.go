package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"eventease/internal/ids"
	appLog "eventease/internal/log"
	"eventease/internal/model"
)

const (
	defaultRedisPrefix = "eventease:selection:"
	defaultLockPrefix  = "eventease:selection-lock:"

	// DefaultLockTTL bounds how long a crashed holder blocks a session.
	DefaultLockTTL = 15 * time.Second
	// DefaultLockWait bounds how long Lock waits for another holder.
	DefaultLockWait = 5 * time.Second

	lockRetry = 10 * time.Millisecond
)

// releaseLock deletes the lock only if it still carries our token, so an
// expired holder cannot release a lock someone else has since taken.
var releaseLock = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisSessionStore keeps selections in Redis so several API processes can
// share them. Expiry is delegated to key TTLs, refreshed on every Save.
// Lock gives per-session mutual exclusion across those processes.
type RedisSessionStore struct {
	client     *redis.Client
	prefix     string
	lockPrefix string
	ttl        time.Duration
	lockTTL    time.Duration
	lockWait   time.Duration
}

// NewRedisSessionStore wraps client. A non-positive ttl stores keys without
// expiry.
func NewRedisSessionStore(client *redis.Client, ttl time.Duration) *RedisSessionStore {
	return &RedisSessionStore{
		client:     client,
		prefix:     defaultRedisPrefix,
		lockPrefix: defaultLockPrefix,
		ttl:        ttl,
		lockTTL:    DefaultLockTTL,
		lockWait:   DefaultLockWait,
	}
}

// WithLockTiming overrides the lock lease and the maximum wait for it.
// Non-positive values keep the defaults.
func (s *RedisSessionStore) WithLockTiming(ttl, wait time.Duration) *RedisSessionStore {
	if ttl > 0 {
		s.lockTTL = ttl
	}
	if wait > 0 {
		s.lockWait = wait
	}
	return s
}

// Ping checks connectivity.
func (s *RedisSessionStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the underlying client.
func (s *RedisSessionStore) Close() error {
	return s.client.Close()
}

// Lock takes the per-session lock with SET NX PX, polling until it is free,
// ctx ends or the configured wait elapses (ErrSessionBusy).
func (s *RedisSessionStore) Lock(ctx context.Context, key string) (func(), error) {
	token, err := ids.New()
	if err != nil {
		return nil, fmt.Errorf("lock token: %w", err)
	}
	lockKey := s.lockPrefix + key
	deadline := time.Now().Add(s.lockWait)

	for {
		ok, err := s.client.SetNX(ctx, lockKey, token, s.lockTTL).Result()
		if err != nil {
			return nil, fmt.Errorf("lock selection: %w", err)
		}
		if ok {
			break
		}
		if time.Now().After(deadline) {
			return nil, ErrSessionBusy
		}
		t := time.NewTimer(lockRetry)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil, ctx.Err()
		case <-t.C:
		}
	}

	return func() {
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
		defer cancel()
		if err := releaseLock.Run(rctx, s.client, []string{lockKey}, token).Err(); err != nil {
			appLog.Error("release selection lock failed", err, "session", key)
		}
	}, nil
}

func (s *RedisSessionStore) Load(ctx context.Context, key string) (model.Selection, bool, error) {
	data, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return model.Selection{}, false, nil
	}
	if err != nil {
		return model.Selection{}, false, fmt.Errorf("load selection: %w", err)
	}
	var sel model.Selection
	if err := json.Unmarshal(data, &sel); err != nil {
		return model.Selection{}, false, fmt.Errorf("decode selection: %w", err)
	}
	return sel, true, nil
}

func (s *RedisSessionStore) Save(ctx context.Context, key string, sel model.Selection) error {
	data, err := json.Marshal(sel)
	if err != nil {
		return fmt.Errorf("encode selection: %w", err)
	}
	ttl := s.ttl
	if ttl < 0 {
		ttl = 0
	}
	if err := s.client.Set(ctx, s.prefix+key, data, ttl).Err(); err != nil {
		return fmt.Errorf("save selection: %w", err)
	}
	return nil
}

func (s *RedisSessionStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.prefix+key).Err(); err != nil {
		return fmt.Errorf("delete selection: %w", err)
	}
	return nil
}
