package domain

// Proteções de transporte na frente do gateway: throttle de rajada para
// submissões anônimas e vagas de concorrência. Não substituem a cota por
// hora e nunca produzem um Outcome.

import (
	"context"
	"time"
)

// Kinds usados só em StatsEvent para contar o que as proteções barraram.
// Nunca aparecem em um Outcome do gateway.
const (
	KindThrottled Kind = "throttled"
	KindBusy      Kind = "busy"
)

// Key identifica uma origem anônima no throttle (endereço já normalizado).
type Key string

// BurstLimiter mantém um token bucket por origem.
//
// Take consome um token de key no instante now. Sem token disponível, nada é
// consumido e wait diz quanto falta para o próximo.
type BurstLimiter interface {
	Take(key Key, now time.Time) (ok bool, wait time.Duration)
}

type Decision struct {
	Allowed bool
	// RetryAfter é o valor de Retry-After quando bloquear.
	RetryAfter time.Duration
}

// SlotPool representa as submissões que podem percorrer o pipeline ao mesmo tempo.
//
// Acquire bloqueia até conseguir uma vaga ou até o ctx encerrar. Ao adquirir,
// devolve um release que deve ser chamado exatamente uma vez.
type SlotPool interface {
	Acquire(ctx context.Context) (release func(), ok bool)
	InFlight() int
	Capacity() int
}
