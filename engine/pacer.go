package engine

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

// Pacer espaça as chamadas ao motor: no máximo uma a cada interval, com
// rajada de burst. Não é o orçamento por cliente, é proteção da cota do
// provedor.
type Pacer struct {
	next    Engine
	limiter *rate.Limiter
}

func NewPacer(next Engine, interval time.Duration, burst int) Engine {
	if interval <= 0 {
		return next
	}
	if burst <= 0 {
		burst = 1
	}
	return &Pacer{next: next, limiter: rate.NewLimiter(rate.Every(interval), burst)}
}

func (p *Pacer) Generate(ctx context.Context, req Request) (*Response, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("engine: pacing: %w", err)
	}
	return p.next.Generate(ctx, req)
}
