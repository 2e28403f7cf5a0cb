package infra

import (
	"context"
	"sync"

	"guestbook-gateway/guestbook/domain"
)

type Counters struct {
	Accepted int64 `json:"accepted"`
	Rejected int64 `json:"rejected"`
	Failed   int64 `json:"failed"`
}

func (c *Counters) add(status domain.OutcomeStatus) {
	switch status {
	case domain.StatusAccepted:
		c.Accepted++
	case domain.StatusRejected:
		c.Rejected++
	case domain.StatusFailed:
		c.Failed++
	}
}

// MemoryStatsStore é uma implementação simples em memória do domain.OutcomeStats.
// É o backend de STATS_ENABLED quando não há Redis; os contadores somem no restart.
type MemoryStatsStore struct {
	mu         sync.Mutex
	total      Counters
	byKind     map[domain.Kind]int64
	byAudience map[string]Counters
}

func NewMemoryStatsStore() *MemoryStatsStore {
	return &MemoryStatsStore{
		byKind:     make(map[domain.Kind]int64),
		byAudience: make(map[string]Counters),
	}
}

func audience(anonymous bool) string {
	if anonymous {
		return "anonymous"
	}
	return "authenticated"
}

func (s *MemoryStatsStore) Record(_ context.Context, ev domain.StatsEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.total.add(ev.Status)

	a := s.byAudience[audience(ev.Anonymous)]
	a.add(ev.Status)
	s.byAudience[audience(ev.Anonymous)] = a

	if ev.Kind != "" {
		s.byKind[ev.Kind]++
	}
	return nil
}

func (s *MemoryStatsStore) Total() Counters {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.total
}

func (s *MemoryStatsStore) ByKind() map[domain.Kind]int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[domain.Kind]int64, len(s.byKind))
	for k, v := range s.byKind {
		out[k] = v
	}
	return out
}

func (s *MemoryStatsStore) ByAudience() map[string]Counters {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]Counters, len(s.byAudience))
	for k, v := range s.byAudience {
		out[k] = v
	}
	return out
}

// StatsSnapshot é a visão JSON dos contadores em memória.
type StatsSnapshot struct {
	Total      Counters              `json:"total"`
	ByKind     map[domain.Kind]int64 `json:"by_kind"`
	ByAudience map[string]Counters   `json:"by_audience"`
}

func (s *MemoryStatsStore) Snapshot() StatsSnapshot {
	return StatsSnapshot{
		Total:      s.Total(),
		ByKind:     s.ByKind(),
		ByAudience: s.ByAudience(),
	}
}
