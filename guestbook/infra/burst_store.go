package infra

import (
	"context"
	"sync"
	"time"

	"guestbook-gateway/guestbook/domain"

	"golang.org/x/time/rate"
)

// BurstStore implementa domain.BurstLimiter com um rate.Limiter por origem
// anônima. Origens sem submissão há mais de idleTTL são esquecidas pelo janitor.
type BurstStore struct {
	mu      sync.Mutex
	sources map[domain.Key]*sourceBucket

	rps   rate.Limit
	burst int

	idleTTL      time.Duration
	cleanupEvery time.Duration
}

type sourceBucket struct {
	lim      *rate.Limiter
	lastTake time.Time
}

type BurstOption func(*BurstStore)

func WithIdleTTL(d time.Duration) BurstOption {
	return func(s *BurstStore) { s.idleTTL = d }
}

func WithCleanupEvery(d time.Duration) BurstOption {
	return func(s *BurstStore) { s.cleanupEvery = d }
}

// NewBurstStore cria o store com rps submissões por segundo e rajada burst por origem.
func NewBurstStore(rps float64, burst int, opts ...BurstOption) *BurstStore {
	if burst < 1 {
		burst = 1
	}
	s := &BurstStore{
		sources:      make(map[domain.Key]*sourceBucket),
		rps:          rate.Limit(rps),
		burst:        burst,
		idleTTL:      15 * time.Minute,
		cleanupEvery: 2 * time.Minute,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Take implementa domain.BurstLimiter. Em bloqueio a reserva é devolvida, então
// tentativas barradas não empurram a próxima liberação para frente.
func (s *BurstStore) Take(key domain.Key, now time.Time) (bool, time.Duration) {
	b := s.bucket(key, now)

	r := b.lim.ReserveN(now, 1)
	if !r.OK() {
		return false, time.Second
	}
	wait := r.DelayFrom(now)
	if wait == 0 {
		return true, 0
	}
	r.CancelAt(now)
	return false, wait
}

func (s *BurstStore) bucket(key domain.Key, now time.Time) *sourceBucket {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.sources[key]
	if !ok {
		b = &sourceBucket{lim: rate.NewLimiter(s.rps, s.burst)}
		s.sources[key] = b
	}
	b.lastTake = now
	return b
}

func (s *BurstStore) RPS() float64 { return float64(s.rps) }
func (s *BurstStore) Burst() int   { return s.burst }

// Sources devolve quantas origens estão em memória.
func (s *BurstStore) Sources() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sources)
}

// Forget remove origens cuja última submissão é anterior a now - idleTTL.
func (s *BurstStore) Forget(now time.Time) int {
	cutoff := now.Add(-s.idleTTL)

	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for k, b := range s.sources {
		if b.lastTake.Before(cutoff) {
			delete(s.sources, k)
			n++
		}
	}
	return n
}

// StartJanitor chama Forget a cada cleanupEvery até o ctx encerrar.
func (s *BurstStore) StartJanitor(ctx context.Context) {
	if s.cleanupEvery <= 0 {
		return
	}

	t := time.NewTicker(s.cleanupEvery)
	go func() {
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-t.C:
				s.Forget(now)
			}
		}
	}()
}
