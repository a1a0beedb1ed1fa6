package domain

// Camada de domínio do rate limit.
//
// Regras e contratos (interfaces/tipos) sem dependência de net/http.

import (
	"context"
	"time"
)

type Key string

// Policy descreve o orçamento de uma chave: no máximo Limit requisições a
// cada janela de duração Window.
type Policy struct {
	Limit  int
	Window time.Duration
}

// DefaultPolicy: 20 requisições por hora.
func DefaultPolicy() Policy {
	return Policy{Limit: 20, Window: time.Hour}
}

// Window é o estado de uma chave: início da janela atual e quantas
// requisições já foram admitidas nela.
type Window struct {
	Start time.Time
	Count int
}

// Expired indica se a janela já passou em now (elapsed >= duração).
func (w Window) Expired(now time.Time, d time.Duration) bool {
	return now.Sub(w.Start) >= d
}

type Decision struct {
	Allowed bool
	// Remaining é quantas requisições ainda cabem na janela.
	Remaining int
	// RetryAfter é o tempo até a janela zerar quando bloqueado.
	// Se 0, não há recomendação.
	RetryAfter time.Duration
}

// WindowCounter decide e contabiliza uma requisição para a chave.
//
// A leitura-modificação-escrita deve ser atômica por chave; não há
// ordenação entre chaves diferentes. Implementações em memória usam now,
// implementações remotas podem usar o relógio do backend.
type WindowCounter interface {
	Take(ctx context.Context, key Key, p Policy, now time.Time) (Decision, error)
}
