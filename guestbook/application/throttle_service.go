package application

import (
	"context"
	"log/slog"
	"time"

	"guestbook-gateway/guestbook/domain"
)

// ThrottleService contém rajadas de submissões anônimas por origem.
//
// Envelopes autenticados nunca passam pelo bucket: eles não têm limite de
// taxa. Bloqueios são contados em Stats como KindThrottled.
type ThrottleService struct {
	Limiter domain.BurstLimiter
	// MinRetryAfter é o piso do Retry-After; o valor real vem do bucket.
	MinRetryAfter time.Duration
	Stats         domain.OutcomeStats
	Now           func() time.Time
	Logger        *slog.Logger
}

func (s ThrottleService) Decide(ctx context.Context, env domain.Envelope) domain.Decision {
	if s.Limiter == nil || !env.IsAnonymous || env.SourceAddress == nil {
		return domain.Decision{Allowed: true}
	}
	now := time.Now()
	if s.Now != nil {
		now = s.Now()
	}

	ok, wait := s.Limiter.Take(domain.Key(*env.SourceAddress), now)
	if ok {
		return domain.Decision{Allowed: true}
	}

	if s.Stats != nil {
		err := s.Stats.Record(ctx, domain.StatsEvent{
			Status:    domain.StatusRejected,
			Kind:      domain.KindThrottled,
			Anonymous: true,
			At:        now,
		})
		if err != nil && s.Logger != nil {
			s.Logger.WarnContext(ctx, "stats record failed", "error", err)
		}
	}
	return domain.Decision{Allowed: false, RetryAfter: retryAfter(wait, s.MinRetryAfter)}
}

// retryAfter arredonda para segundos inteiros (Retry-After não tem fração), com piso de 1s.
func retryAfter(wait, floor time.Duration) time.Duration {
	if floor < time.Second {
		floor = time.Second
	}
	if wait < floor {
		wait = floor
	}
	if rem := wait % time.Second; rem != 0 {
		wait += time.Second - rem
	}
	return wait
}
