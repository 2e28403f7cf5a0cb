package application

import (
	"context"
	"log/slog"
	"time"

	"guestbook-gateway/guestbook/domain"
)

// SlotService limita quantas submissões percorrem o pipeline ao mesmo tempo.
// Uma submissão sem vaga é contada em Stats como KindBusy.
type SlotService struct {
	Pool domain.SlotPool
	// AcquireTimeout <= 0 espera até o ctx da requisição encerrar.
	AcquireTimeout time.Duration
	Stats          domain.OutcomeStats
	Logger         *slog.Logger
}

// Acquire tenta reservar uma vaga para env. Se ok=false, nenhuma vaga foi adquirida.
func (s SlotService) Acquire(ctx context.Context, env domain.Envelope) (func(), bool) {
	if s.Pool == nil {
		return func() {}, true
	}

	acqCtx := ctx
	if s.AcquireTimeout > 0 {
		var cancel context.CancelFunc
		acqCtx, cancel = context.WithTimeout(ctx, s.AcquireTimeout)
		defer cancel()
	}

	release, ok := s.Pool.Acquire(acqCtx)
	if ok {
		return release, true
	}

	if s.Logger != nil {
		s.Logger.WarnContext(ctx, "no submission slot",
			"in_flight", s.Pool.InFlight(),
			"capacity", s.Pool.Capacity(),
			"anonymous", env.IsAnonymous,
		)
	}
	if s.Stats != nil {
		_ = s.Stats.Record(ctx, domain.StatsEvent{
			Status:    domain.StatusFailed,
			Kind:      domain.KindBusy,
			Anonymous: env.IsAnonymous,
			At:        time.Now(),
		})
	}
	return nil, false
}
