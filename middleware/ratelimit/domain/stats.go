package domain

import (
	"context"
	"errors"
	"time"
)

// ErrStatsRecord marca uma falha ao gravar estatística. A decisão que
// acompanha o erro continua válida.
var ErrStatsRecord = errors.New("ratelimit stats record failed")

// StatsEvent representa um evento de decisão do rate limit.
//
// Scope identifica o que foi limitado (ex.: "analyze"). Ele é
// propositalmente genérico para não acoplar ao HTTP.
//
// Observação: cuidado com cardinalidade (ex.: salvar Key sem controle pode
// explodir o número de chaves em uma base como Redis).
type StatsEvent struct {
	Key     Key
	Allowed bool
	Scope   string
	At      time.Time
}

// StatsStore é a estratégia de persistência para estatísticas do rate limit.
//
// Implementações podem armazenar em Redis, memória, etc.
// Quem chama deve tratar erro como best-effort (não derrubar request).
type StatsStore interface {
	Record(ctx context.Context, ev StatsEvent) error
}
