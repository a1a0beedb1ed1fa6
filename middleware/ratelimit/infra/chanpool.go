package infra

import (
	"context"
	"sync"

	"privacy-advisor/middleware/ratelimit/domain"
)

// ChanPool é um semáforo sobre channel bufferizado.
type ChanPool struct {
	sem chan struct{}
}

var _ domain.SlotPool = (*ChanPool)(nil)

func NewChanPool(max int) *ChanPool {
	return &ChanPool{sem: make(chan struct{}, max)}
}

func (p *ChanPool) Acquire(ctx context.Context) (func(), error) {
	// vaga livre ganha mesmo com ctx já encerrado
	select {
	case p.sem <- struct{}{}:
		return p.releaser(), nil
	default:
	}

	select {
	case p.sem <- struct{}{}:
		return p.releaser(), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (p *ChanPool) releaser() func() {
	var once sync.Once
	return func() { once.Do(func() { <-p.sem }) }
}

func (p *ChanPool) InUse() int { return len(p.sem) }

func (p *ChanPool) Cap() int { return cap(p.sem) }
