// Package relay recebe um pedido de análise, aplica o orçamento por cliente,
// chama o motor externo uma única vez e devolve o registro extraído da
// resposta.
package relay

import (
	"context"
	"errors"

	"privacy-advisor/assessment"
	"privacy-advisor/cache"
	"privacy-advisor/engine"
	"privacy-advisor/extract"
	"privacy-advisor/middleware/ratelimit/domain"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultMaxTokens = 2048

	// maxLoggedReply limita quanto da resposta bruta vai para o log.
	maxLoggedReply = 2 << 10
)

// Admitter decide se o cliente ainda tem orçamento.
// application.Service satisfaz esta interface.
type Admitter interface {
	Decide(ctx context.Context, key domain.Key) (domain.Decision, error)
}

// ResultCache é o cache opcional do lado servidor. *cache.Cache satisfaz.
type ResultCache interface {
	Get(ctx context.Context, key string) (cache.Entry, bool, error)
	Put(ctx context.Context, key string, rec assessment.Record) (cache.Entry, error)
}

// Input são os campos crus vindos do cliente.
type Input struct {
	Domain       string
	UserType     string
	Region       string
	ForceRefresh bool
}

type Config struct {
	Engine    engine.Engine
	Admitter  Admitter
	Cache     ResultCache
	Logger    *zap.Logger
	MaxTokens int
	// System substitui SystemPrompt (testes).
	System string
}

type Service struct {
	engine    engine.Engine
	admitter  Admitter
	cache     ResultCache
	log       *zap.Logger
	maxTokens int
	system    string

	group singleflight.Group
}

func New(cfg Config) *Service {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	if cfg.System == "" {
		cfg.System = SystemPrompt
	}
	return &Service{
		engine:    cfg.Engine,
		admitter:  cfg.Admitter,
		cache:     cfg.Cache,
		log:       log,
		maxTokens: cfg.MaxTokens,
		system:    cfg.System,
	}
}

// Analyze valida o pedido, consome uma unidade do orçamento de callerID e
// devolve o registro. Erros são sempre *Error.
func (s *Service) Analyze(ctx context.Context, in Input, callerID string) (assessment.Record, error) {
	req, err := assessment.NewRequest(in.Domain, in.UserType, in.Region)
	if err != nil {
		msg := MsgInvalidDomain
		if errors.Is(err, assessment.ErrMissingDomain) {
			msg = MsgMissingDomain
		}
		return assessment.Record{}, &Error{Kind: KindInvalidInput, Msg: msg, Err: err}
	}
	req.ForceRefresh = in.ForceRefresh

	if err := s.admit(ctx, callerID); err != nil {
		return assessment.Record{}, err
	}

	if s.cache != nil && !req.ForceRefresh {
		e, ok, err := s.cache.Get(ctx, req.CacheKey())
		if err != nil {
			s.log.Warn("cache lookup failed", zap.String("key", req.CacheKey()), zap.Error(err))
		} else if ok {
			s.log.Debug("cache hit", zap.String("domain", req.Domain), zap.Time("fetched_at", e.FetchedAt))
			return e.Record.Clone(), nil
		}
	}

	// pedidos iguais em paralelo dividem a mesma chamada ao motor
	v, err, shared := s.group.Do(req.CacheKey(), func() (any, error) {
		return s.fetch(context.WithoutCancel(ctx), req)
	})
	if err != nil {
		return assessment.Record{}, err
	}
	if shared {
		s.log.Debug("coalesced analysis", zap.String("key", req.CacheKey()))
	}
	return v.(assessment.Record).Clone(), nil
}

func (s *Service) admit(ctx context.Context, callerID string) error {
	if s.admitter == nil {
		return nil
	}
	if callerID == "" {
		callerID = "unknown"
	}
	dec, err := s.admitter.Decide(ctx, domain.Key(callerID))
	switch {
	case errors.Is(err, domain.ErrStatsRecord):
		s.log.Warn("rate limit stats record failed", zap.String("caller", callerID), zap.Error(err))
	case err != nil:
		// orçamento best-effort: falha do contador não bloqueia
		s.log.Warn("rate limit check failed", zap.String("caller", callerID), zap.Error(err))
	}
	if dec.Allowed {
		return nil
	}
	s.log.Info("rate limited",
		zap.String("caller", callerID),
		zap.Duration("retry_after", dec.RetryAfter),
	)
	return &Error{Kind: KindRateLimited, Msg: MsgRateLimited, RetryAfter: dec.RetryAfter}
}

func (s *Service) fetch(ctx context.Context, req assessment.Request) (assessment.Record, error) {
	if s.engine == nil {
		return assessment.Record{}, &Error{Kind: KindMisconfiguration, Msg: MsgNotConfigured, Err: engine.ErrNotConfigured}
	}

	resp, err := s.engine.Generate(ctx, engine.Request{
		System:    s.system,
		User:      UserMessage(req),
		MaxTokens: s.maxTokens,
		WebSearch: true,
	})
	if err != nil {
		return assessment.Record{}, s.upstreamError(req, err)
	}

	raw := resp.Text()
	rec, strategy, err := extract.ExtractWith(raw)
	if err != nil {
		s.log.Warn("unusable engine reply",
			zap.String("domain", req.Domain),
			zap.Error(err),
			zap.String("reply", truncate(raw, maxLoggedReply)),
		)
		if errors.Is(err, extract.ErrIncompleteRecord) {
			return assessment.Record{}, &Error{Kind: KindIncompleteUpstreamReply, Msg: MsgIncompleteReceived, Err: err}
		}
		return assessment.Record{}, &Error{Kind: KindMalformedUpstreamReply, Msg: MsgAnalysisFailed, Err: err}
	}
	s.log.Debug("analysis extracted",
		zap.String("domain", req.Domain),
		zap.String("strategy", strategy),
		zap.String("verdict", string(rec.Verdict)),
	)

	if s.cache != nil {
		if _, err := s.cache.Put(ctx, req.CacheKey(), rec); err != nil {
			s.log.Warn("cache store failed", zap.String("key", req.CacheKey()), zap.Error(err))
		}
	}
	return rec, nil
}

func (s *Service) upstreamError(req assessment.Request, err error) error {
	if errors.Is(err, engine.ErrNotConfigured) {
		s.log.Error("engine api key not configured")
		return &Error{Kind: KindMisconfiguration, Msg: MsgNotConfigured, Err: err}
	}

	var se *engine.StatusError
	if errors.As(err, &se) {
		s.log.Error("engine returned error status",
			zap.String("domain", req.Domain),
			zap.Int("status", se.StatusCode),
			zap.String("body", truncate(se.Body, maxLoggedReply)),
		)
	} else {
		s.log.Error("engine call failed", zap.String("domain", req.Domain), zap.Error(err))
	}
	return &Error{Kind: KindUpstreamUnavailable, Msg: MsgUnavailable, Err: err}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "...(truncated)"
}
