package ratelimit

import (
	"errors"
	"net/http"
	"time"

	"privacy-advisor/middleware/ratelimit/application"
	"privacy-advisor/middleware/ratelimit/domain"
	"privacy-advisor/middleware/ratelimit/infra"
)

type ConcurrencyOptions struct {
	Max            int
	RejectStatus   int
	AcquireTimeout time.Duration
	// OnReject escreve a resposta quando não há vaga.
	// Sem ele, responde com http.Error e RejectStatus.
	OnReject http.HandlerFunc
}

// Limiter limita quantas requisições rodam ao mesmo tempo.
type Limiter struct {
	svc  application.ConcurrencyService
	opts ConcurrencyOptions
}

// NewLimiter devolve nil quando Max <= 0 (sem limite).
func NewLimiter(opts ConcurrencyOptions) *Limiter {
	if opts.Max <= 0 {
		return nil
	}
	if opts.RejectStatus == 0 {
		opts.RejectStatus = http.StatusServiceUnavailable
	}
	return &Limiter{
		svc: application.ConcurrencyService{
			Pool:           infra.NewChanPool(opts.Max),
			AcquireTimeout: opts.AcquireTimeout,
		},
		opts: opts,
	}
}

// InUse retorna quantas vagas estão ocupadas.
func (l *Limiter) InUse() int {
	if l == nil {
		return 0
	}
	return l.svc.InUse()
}

// Available retorna quantas vagas estão livres.
func (l *Limiter) Available() int {
	if l == nil {
		return 0
	}
	return l.svc.Available()
}

func (l *Limiter) Middleware(next http.Handler) http.Handler {
	if l == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		release, err := l.svc.Acquire(r.Context())
		if err != nil {
			if !errors.Is(err, domain.ErrNoSlot) {
				// o chamador desistiu; não há para quem responder
				return
			}
			if l.opts.OnReject != nil {
				l.opts.OnReject(w, r)
				return
			}
			http.Error(w, http.StatusText(l.opts.RejectStatus), l.opts.RejectStatus)
			return
		}
		defer release()

		next.ServeHTTP(w, r)
	})
}

func ConcurrencyMiddleware(opts ConcurrencyOptions) func(next http.Handler) http.Handler {
	return NewLimiter(opts).Middleware
}
