package domain

import (
	"context"
	"errors"
)

// ErrNoSlot indica que nenhuma vaga abriu dentro do prazo.
var ErrNoSlot = errors.New("no analysis slot available")

// SlotPool limita quantas análises rodam ao mesmo tempo.
//
// Acquire bloqueia até abrir uma vaga ou o ctx encerrar; nesse caso devolve
// ctx.Err(). O release devolvido pode ser chamado mais de uma vez, só a
// primeira chamada libera a vaga.
type SlotPool interface {
	Acquire(ctx context.Context) (release func(), err error)
	InUse() int
	Cap() int
}
