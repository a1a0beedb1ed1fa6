package application

import (
	"context"
	"fmt"
	"time"

	"privacy-advisor/middleware/ratelimit/domain"
)

// Service concentra a regra de aplicação do rate limit.
//
// Ele não sabe nada sobre HTTP (headers/status), apenas retorna uma decisão.
type Service struct {
	Counter domain.WindowCounter
	Policy  domain.Policy
	Stats   domain.StatsStore
	// Scope é gravado nos eventos de estatística.
	Scope string
	// Now permite injetar o relógio nos testes.
	Now func() time.Time
}

// Decide admite ou rejeita uma requisição da chave.
//
// Sem Counter (ou com Limit <= 0) tudo é admitido. Se o Counter falhar a
// requisição é admitida e o erro é devolvido para quem chamou registrar:
// o orçamento é best-effort. Falha ao gravar estatística devolve a decisão
// do Counter junto com um erro que casa com domain.ErrStatsRecord.
func (s Service) Decide(ctx context.Context, key domain.Key) (domain.Decision, error) {
	if s.Counter == nil || s.Policy.Limit <= 0 {
		return domain.Decision{Allowed: true}, nil
	}

	now := time.Now()
	if s.Now != nil {
		now = s.Now()
	}

	dec, err := s.Counter.Take(ctx, key, s.Policy, now)
	if err != nil {
		return domain.Decision{Allowed: true}, err
	}

	if s.Stats != nil {
		err := s.Stats.Record(ctx, domain.StatsEvent{
			Key:     key,
			Allowed: dec.Allowed,
			Scope:   s.Scope,
			At:      now,
		})
		if err != nil {
			return dec, fmt.Errorf("%w: %w", domain.ErrStatsRecord, err)
		}
	}
	return dec, nil
}

// Admit é o atalho booleano de Decide.
func (s Service) Admit(ctx context.Context, key domain.Key) bool {
	dec, _ := s.Decide(ctx, key)
	return dec.Allowed
}
