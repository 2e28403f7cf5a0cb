package infra

import (
	"context"
	"sync/atomic"

	"guestbook-gateway/guestbook/domain"
)

// SubmissionSlots é o domain.SlotPool das submissões: um semáforo em channel
// com contagem das vagas ocupadas para log e diagnóstico.
type SubmissionSlots struct {
	sem      chan struct{}
	inFlight atomic.Int64
}

var _ domain.SlotPool = (*SubmissionSlots)(nil)

// NewSlotPool cria max vagas; max < 1 vira 1.
func NewSlotPool(max int) *SubmissionSlots {
	if max < 1 {
		max = 1
	}
	return &SubmissionSlots{sem: make(chan struct{}, max)}
}

func (p *SubmissionSlots) Acquire(ctx context.Context) (func(), bool) {
	select {
	case p.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, false
	}
	p.inFlight.Add(1)

	var once atomic.Bool
	return func() {
		if once.CompareAndSwap(false, true) {
			p.inFlight.Add(-1)
			<-p.sem
		}
	}, true
}

func (p *SubmissionSlots) InFlight() int { return int(p.inFlight.Load()) }

func (p *SubmissionSlots) Capacity() int { return cap(p.sem) }
