// Package distlock guards scheduled routines against overlapping runs.
package distlock

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Lock is the interface for routine locks. Implementations must be
// safe for use from a single goroutine; concurrent use across
// goroutines requires separate lock instances.
type Lock interface {
	// Acquire tries to acquire the lock. Returns true if successful.
	Acquire(ctx context.Context) (bool, error)
	// Release releases the lock if we still own it.
	Release(ctx context.Context) error
}

// New creates a routine lock using the best available backend. With a
// Redis client the lock holds across hosts; without one it only guards
// the current process, which is enough for a single-machine install.
func New(redisClient *redis.Client, key string, ttl time.Duration) Lock {
	if redisClient != nil {
		return NewRedisLock(redisClient, key, ttl)
	}
	return NewLocalLock(key)
}

var (
	localMu    sync.Mutex
	localLocks = map[string]bool{}
)

// LocalLock implements Lock with an in-process registry keyed by name.
// Two LocalLock instances for the same key exclude each other.
type LocalLock struct {
	key  string
	held bool
}

// NewLocalLock creates an in-process lock for the given key.
func NewLocalLock(key string) *LocalLock {
	return &LocalLock{key: key}
}

// Acquire tries to take the key. Non-blocking.
func (l *LocalLock) Acquire(ctx context.Context) (bool, error) {
	localMu.Lock()
	defer localMu.Unlock()
	if localLocks[l.key] {
		return false, nil
	}
	localLocks[l.key] = true
	l.held = true
	return true, nil
}

// Release frees the key if this instance holds it.
func (l *LocalLock) Release(ctx context.Context) error {
	localMu.Lock()
	defer localMu.Unlock()
	if l.held {
		delete(localLocks, l.key)
		l.held = false
	}
	return nil
}
