// Package lock provides advisory per-document locks which are held for the duration of one workflow call.
package lock

import (
	"context"
	"sync"
)

// Unlock releases a lock. Calling it more than once is harmless.
type Unlock func()

type Locker interface {
	// Lock blocks until key is locked or ctx is done.
	Lock(ctx context.Context, key string) (Unlock, error)
}

// Memory is a Locker for a single process.
type Memory struct {
	mu   sync.Mutex
	held map[string]chan struct{} // closed on release
}

func NewMemory() *Memory {
	return &Memory{
		held: make(map[string]chan struct{}),
	}
}

func (m *Memory) Lock(ctx context.Context, key string) (Unlock, error) {
	for {
		m.mu.Lock()
		released, busy := m.held[key]
		if !busy {
			released = make(chan struct{})
			m.held[key] = released
			m.mu.Unlock()
			var once sync.Once
			return func() {
				once.Do(func() {
					m.mu.Lock()
					delete(m.held, key)
					m.mu.Unlock()
					close(released)
				})
			}, nil
		}
		m.mu.Unlock()

		select {
		case <-released:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}
