package infra

import (
	"context"
	"sync"
	"testing"
	"time"

	"privacy-advisor/middleware/ratelimit/domain"
)

func TestMemoryCounter_AdmitsLimitThenRejects(t *testing.T) {
	c := NewMemoryCounter()
	p := domain.DefaultPolicy()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	ctx := context.Background()

	for i := 1; i <= 20; i++ {
		dec, err := c.Take(ctx, "10.0.0.1", p, now.Add(time.Duration(i)*time.Second))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !dec.Allowed {
			t.Fatalf("expected request %d to be allowed", i)
		}
		if dec.Remaining != 20-i {
			t.Fatalf("expected remaining=%d, got %d", 20-i, dec.Remaining)
		}
	}

	dec, _ := c.Take(ctx, "10.0.0.1", p, now.Add(30*time.Minute))
	if dec.Allowed {
		t.Fatalf("expected 21st request to be rejected")
	}
	if dec.RetryAfter != 30*time.Minute {
		t.Fatalf("expected RetryAfter=30m, got %s", dec.RetryAfter)
	}

	w, ok := c.Window("10.0.0.1")
	if !ok || w.Count != 20 {
		t.Fatalf("rejection must not increment the window, got %+v", w)
	}
}

func TestMemoryCounter_ResetsAfterWindow(t *testing.T) {
	c := NewMemoryCounter()
	p := domain.Policy{Limit: 2, Window: time.Hour}
	start := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if dec, _ := c.Take(ctx, "k", p, start); !dec.Allowed {
			t.Fatalf("expected request %d to be allowed", i+1)
		}
	}
	if dec, _ := c.Take(ctx, "k", p, start.Add(59*time.Minute)); dec.Allowed {
		t.Fatalf("expected rejection inside the window")
	}

	// exatamente 1h depois do início a janela é nova
	dec, _ := c.Take(ctx, "k", p, start.Add(time.Hour))
	if !dec.Allowed {
		t.Fatalf("expected allowed once the window elapsed")
	}
	w, _ := c.Window("k")
	if w.Count != 1 || !w.Start.Equal(start.Add(time.Hour)) {
		t.Fatalf("expected fresh window, got %+v", w)
	}
}

func TestMemoryCounter_KeysAreIndependent(t *testing.T) {
	c := NewMemoryCounter()
	p := domain.Policy{Limit: 1, Window: time.Hour}
	now := time.Now()
	ctx := context.Background()

	if dec, _ := c.Take(ctx, "a", p, now); !dec.Allowed {
		t.Fatalf("expected a allowed")
	}
	if dec, _ := c.Take(ctx, "b", p, now); !dec.Allowed {
		t.Fatalf("expected b allowed (own budget)")
	}
	if dec, _ := c.Take(ctx, "a", p, now); dec.Allowed {
		t.Fatalf("expected a rejected")
	}
}

func TestMemoryCounter_ConcurrentTakesDoNotLoseUpdates(t *testing.T) {
	c := NewMemoryCounter()
	p := domain.Policy{Limit: 50, Window: time.Hour}
	now := time.Now()

	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed := 0
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			dec, _ := c.Take(context.Background(), "shared", p, now)
			if dec.Allowed {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if allowed != 50 {
		t.Fatalf("expected exactly 50 admissions, got %d", allowed)
	}
}

func TestMemoryCounter_CleanupRemovesExpiredWindows(t *testing.T) {
	c := NewMemoryCounter(WithCleanupEvery(0))
	p := domain.Policy{Limit: 5, Window: time.Hour}
	start := time.Now()

	_, _ = c.Take(context.Background(), "old", p, start)
	_, _ = c.Take(context.Background(), "new", p, start.Add(50*time.Minute))

	c.Cleanup(start.Add(time.Hour), p.Window)

	if _, ok := c.Window("old"); ok {
		t.Fatalf("expected expired window to be removed")
	}
	if _, ok := c.Window("new"); !ok {
		t.Fatalf("expected live window to be kept")
	}
	if c.Len() != 1 {
		t.Fatalf("expected 1 key left, got %d", c.Len())
	}
}
