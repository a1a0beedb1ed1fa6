package application

import (
	"context"
	"errors"
	"time"

	"privacy-advisor/middleware/ratelimit/domain"
)

// ConcurrencyService aplica o prazo de espera por uma vaga de análise.
type ConcurrencyService struct {
	Pool domain.SlotPool
	// AcquireTimeout <= 0 espera enquanto o chamador esperar.
	AcquireTimeout time.Duration
}

// Acquire devolve domain.ErrNoSlot quando o prazo vence e ctx.Err() quando
// o próprio chamador desistiu. Sem Pool sempre admite.
func (s ConcurrencyService) Acquire(ctx context.Context) (func(), error) {
	if s.Pool == nil {
		return func() {}, nil
	}
	if s.AcquireTimeout <= 0 {
		return s.Pool.Acquire(ctx)
	}

	acqCtx, cancel := context.WithTimeout(ctx, s.AcquireTimeout)
	defer cancel()
	release, err := s.Pool.Acquire(acqCtx)
	if err == nil {
		return release, nil
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return nil, domain.ErrNoSlot
	}
	return nil, err
}

// InUse retorna as vagas ocupadas (0 sem pool).
func (s ConcurrencyService) InUse() int {
	if s.Pool == nil {
		return 0
	}
	return s.Pool.InUse()
}

// Available retorna as vagas livres (0 sem pool).
func (s ConcurrencyService) Available() int {
	if s.Pool == nil {
		return 0
	}
	return s.Pool.Cap() - s.Pool.InUse()
}
