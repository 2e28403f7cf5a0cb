package domain

import (
	"context"
	"time"
)

// StatsEvent representa o resultado de uma submissão para fins de contagem.
//
// Não carrega mensagem nem endereço de origem: só o suficiente para séries
// agregadas sem risco de cardinalidade alta.
type StatsEvent struct {
	Status    OutcomeStatus
	Kind      Kind
	Anonymous bool

	At time.Time
}

// OutcomeStats é a estratégia de persistência das estatísticas.
//
// O gateway trata erro como best-effort (não derruba a submissão).
type OutcomeStats interface {
	Record(ctx context.Context, ev StatsEvent) error
}
