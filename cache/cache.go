// Package cache é o cache de resultados de análise por domínio.
//
// Uma entrada vale por Freshness (7 dias por padrão). Entrada vencida é
// tratada como ausente e removida de forma best-effort. O cache é apenas
// consultivo: quem chama pode ignorá-lo e forçar uma nova análise.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"privacy-advisor/assessment"
	"privacy-advisor/kvstore"
)

const DefaultFreshness = 7 * 24 * time.Hour

// Entry é o que fica guardado por domínio.
type Entry struct {
	Domain    string            `json:"-"`
	Record    assessment.Record `json:"record"`
	FetchedAt time.Time         `json:"fetchedAt"`
}

// Fresh indica se a entrada ainda vale em now.
func (e Entry) Fresh(now time.Time, freshness time.Duration) bool {
	return now.Sub(e.FetchedAt) <= freshness
}

type Cache struct {
	store     kvstore.Store
	prefix    string
	freshness time.Duration
	now       func() time.Time
	// purge remove entradas vencidas quando encontradas.
	purge bool
}

type Option func(*Cache)

// WithPrefix define o prefixo das chaves no store (ex: "cache_").
func WithPrefix(prefix string) Option {
	return func(c *Cache) { c.prefix = prefix }
}

func WithFreshness(d time.Duration) Option {
	return func(c *Cache) {
		if d > 0 {
			c.freshness = d
		}
	}
}

// WithClock permite injetar o relógio nos testes.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

func WithPurgeStale(purge bool) Option {
	return func(c *Cache) { c.purge = purge }
}

func New(store kvstore.Store, opts ...Option) *Cache {
	c := &Cache{
		store:     store,
		freshness: DefaultFreshness,
		now:       time.Now,
		purge:     true,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Cache) Freshness() time.Duration { return c.freshness }

func (c *Cache) key(domain string) string { return c.prefix + domain }

// Get devolve a entrada do domínio se existir e estiver fresca.
// Um valor ilegível no store conta como ausente.
func (c *Cache) Get(ctx context.Context, domain string) (Entry, bool, error) {
	raw, ok, err := c.store.Get(ctx, c.key(domain))
	if err != nil {
		return Entry{}, false, fmt.Errorf("cache get %q: %w", domain, err)
	}
	if !ok {
		return Entry{}, false, nil
	}

	var e Entry
	if err := json.Unmarshal(raw, &e); err != nil {
		return Entry{}, false, nil
	}
	e.Domain = domain

	if !e.Fresh(c.now(), c.freshness) {
		if c.purge {
			_ = c.store.Delete(ctx, c.key(domain))
		}
		return Entry{}, false, nil
	}
	return e, true, nil
}

// Put grava (sobrescreve) o registro do domínio com fetchedAt = agora.
func (c *Cache) Put(ctx context.Context, domain string, rec assessment.Record) (Entry, error) {
	e := Entry{
		Domain:    domain,
		Record:    rec.Normalize(),
		FetchedAt: c.now().UTC(),
	}
	raw, err := json.Marshal(e)
	if err != nil {
		return Entry{}, fmt.Errorf("cache put %q: %w", domain, err)
	}
	if err := c.store.Set(ctx, c.key(domain), raw); err != nil {
		return Entry{}, fmt.Errorf("cache put %q: %w", domain, err)
	}
	return e, nil
}

// Invalidate remove o domínio do cache.
func (c *Cache) Invalidate(ctx context.Context, domain string) error {
	return c.store.Delete(ctx, c.key(domain))
}
