// Package lock serialises invoice generation runs per period.
package lock

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrHeld is returned when another run holds the key.
var ErrHeld = errors.New("lock: already held")

type Release func(ctx context.Context) error

type Locker interface {
	TryAcquire(ctx context.Context, key string) (Release, error)
}

// Redis is a single-instance SET NX lock with a token-checked release.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

func NewRedis(client *redis.Client, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Redis{client: client, ttl: ttl, prefix: "eventflow:lock:"}
}

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

func (l *Redis) TryAcquire(ctx context.Context, key string) (Release, error) {
	token, err := newToken()
	if err != nil {
		return nil, err
	}
	full := l.prefix + key
	ok, err := l.client.SetNX(ctx, full, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire %s: %w", key, err)
	}
	if !ok {
		return nil, ErrHeld
	}
	return func(ctx context.Context) error {
		n, err := releaseScript.Run(ctx, l.client, []string{full}, token).Int()
		if err != nil {
			return fmt.Errorf("release %s: %w", key, err)
		}
		if n == 0 {
			return fmt.Errorf("release %s: lock expired or taken over", key)
		}
		return nil
	}, nil
}

func newToken() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// Local guards keys inside one process, for deployments without Redis.
type Local struct {
	mu   sync.Mutex
	held map[string]struct{}
}

func NewLocal() *Local {
	return &Local{held: map[string]struct{}{}}
}

func (l *Local) TryAcquire(_ context.Context, key string) (Release, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.held[key]; ok {
		return nil, ErrHeld
	}
	l.held[key] = struct{}{}
	return func(context.Context) error {
		l.mu.Lock()
		delete(l.held, key)
		l.mu.Unlock()
		return nil
	}, nil
}
