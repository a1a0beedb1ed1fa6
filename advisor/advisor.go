// Package advisor é o lado cliente: preferências, cache local por domínio e
// a chamada ao relay quando o cache não serve.
package advisor

import (
	"context"
	"errors"
	"time"

	"privacy-advisor/assessment"
	"privacy-advisor/cache"
	"privacy-advisor/kvstore"

	"go.uber.org/zap"
)

// CachePrefix é o prefixo das chaves de resultado no store local.
const CachePrefix = "cache_"

// ErrNoDomain é devolvido quando não há domínio para analisar.
var ErrNoDomain = errors.New("no valid website detected")

// Analyst é quem produz a análise (normalmente *Client). Com forceRefresh
// o relay também ignora o cache dele.
type Analyst interface {
	Analyze(ctx context.Context, domain string, prefs Prefs, forceRefresh bool) (assessment.Record, error)
}

type Result struct {
	Domain    string
	Record    assessment.Record
	FetchedAt time.Time
	FromCache bool
}

type Advisor struct {
	store   kvstore.Store
	cache   *cache.Cache
	analyst Analyst
	log     *zap.Logger
}

type Option func(*Advisor)

func WithLogger(l *zap.Logger) Option {
	return func(a *Advisor) { a.log = l }
}

// WithCacheOptions repassa opções ao cache local (ex: relógio nos testes).
func WithCacheOptions(opts ...cache.Option) Option {
	return func(a *Advisor) {
		a.cache = cache.New(a.store, append([]cache.Option{cache.WithPrefix(CachePrefix)}, opts...)...)
	}
}

func New(store kvstore.Store, analyst Analyst, opts ...Option) *Advisor {
	a := &Advisor{
		store:   store,
		analyst: analyst,
		log:     zap.NewNop(),
	}
	a.cache = cache.New(store, cache.WithPrefix(CachePrefix))
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Advisor) Prefs(ctx context.Context) (Prefs, error) {
	return LoadPrefs(ctx, a.store)
}

// Cached devolve o resultado guardado para o domínio, se ainda fresco.
func (a *Advisor) Cached(ctx context.Context, domain string) (Result, bool, error) {
	e, ok, err := a.cache.Get(ctx, domain)
	if err != nil || !ok {
		return Result{}, false, err
	}
	return Result{Domain: domain, Record: e.Record, FetchedAt: e.FetchedAt, FromCache: true}, true, nil
}

// Analyze serve do cache local quando possível; com bypass sempre chama o
// relay pedindo uma análise nova. Um resultado novo sempre sobrescreve o cache.
func (a *Advisor) Analyze(ctx context.Context, domain string, bypass bool) (Result, error) {
	if domain == "" {
		return Result{}, ErrNoDomain
	}

	if !bypass {
		res, ok, err := a.Cached(ctx, domain)
		if err != nil {
			a.log.Warn("local cache read failed", zap.String("domain", domain), zap.Error(err))
		} else if ok {
			return res, nil
		}
	}

	prefs, err := a.Prefs(ctx)
	if err != nil {
		return Result{}, err
	}

	rec, err := a.analyst.Analyze(ctx, domain, prefs, bypass)
	if err != nil {
		return Result{}, err
	}

	e, err := a.cache.Put(ctx, domain, rec)
	if err != nil {
		a.log.Warn("local cache write failed", zap.String("domain", domain), zap.Error(err))
		return Result{Domain: domain, Record: rec, FetchedAt: time.Now()}, nil
	}
	return Result{Domain: domain, Record: e.Record, FetchedAt: e.FetchedAt}, nil
}
