package infra

import (
	"context"
	"sync"
	"time"

	"privacy-advisor/middleware/ratelimit/domain"
)

// MemoryCounter é uma implementação de domain.WindowCounter em memória.
//
// O estado vive só enquanto o processo vive: reiniciar zera todos os
// orçamentos. Um único mutex protege o map, a contenção esperada é baixa.
type MemoryCounter struct {
	mu           sync.Mutex
	windows      map[domain.Key]*domain.Window
	cleanupEvery time.Duration
}

type MemoryCounterOption func(*MemoryCounter)

func WithCleanupEvery(d time.Duration) MemoryCounterOption {
	return func(c *MemoryCounter) { c.cleanupEvery = d }
}

func NewMemoryCounter(opts ...MemoryCounterOption) *MemoryCounter {
	c := &MemoryCounter{
		windows:      make(map[domain.Key]*domain.Window),
		cleanupEvery: 10 * time.Minute,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Take implementa domain.WindowCounter.
func (c *MemoryCounter) Take(_ context.Context, key domain.Key, p domain.Policy, now time.Time) (domain.Decision, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	w, ok := c.windows[key]
	if !ok || w.Expired(now, p.Window) {
		c.windows[key] = &domain.Window{Start: now, Count: 1}
		return domain.Decision{Allowed: true, Remaining: p.Limit - 1}, nil
	}

	if w.Count < p.Limit {
		w.Count++
		return domain.Decision{Allowed: true, Remaining: p.Limit - w.Count}, nil
	}

	return domain.Decision{
		Allowed:    false,
		RetryAfter: w.Start.Add(p.Window).Sub(now),
	}, nil
}

// Window devolve uma cópia do estado da chave.
func (c *MemoryCounter) Window(key domain.Key) (domain.Window, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	w, ok := c.windows[key]
	if !ok {
		return domain.Window{}, false
	}
	return *w, true
}

// Len retorna quantas chaves estão em memória.
func (c *MemoryCounter) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.windows)
}

// Cleanup remove janelas já expiradas em now.
func (c *MemoryCounter) Cleanup(now time.Time, window time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for k, w := range c.windows {
		if w.Expired(now, window) {
			delete(c.windows, k)
		}
	}
}

// StartJanitor inicia uma goroutine que remove janelas expiradas periodicamente.
// Pare cancelando o contexto.
func (c *MemoryCounter) StartJanitor(ctx context.Context, window time.Duration) {
	if c.cleanupEvery <= 0 {
		return
	}

	t := time.NewTicker(c.cleanupEvery)
	go func() {
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-t.C:
				c.Cleanup(now, window)
			}
		}
	}()
}
