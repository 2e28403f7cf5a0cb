package infra

import (
	"context"
	"sort"
	"sync"
	"time"

	"guestbook-gateway/guestbook/domain"

	"github.com/google/uuid"
)

// MemoryStore é uma implementação simples em memória do domain.EntryStore.
// Útil para testes e desenvolvimento.
//
// Não persiste nada entre reinícios e não é indicada para produção.
type MemoryStore struct {
	mu      sync.Mutex
	entries []domain.Entry
	now     func() time.Time
}

type MemoryStoreOption func(*MemoryStore)

// WithMemoryClock troca o relógio usado para CreatedAt.
func WithMemoryClock(now func() time.Time) MemoryStoreOption {
	return func(s *MemoryStore) { s.now = now }
}

func NewMemoryStore(opts ...MemoryStoreOption) *MemoryStore {
	s := &MemoryStore{now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryStore) Insert(ctx context.Context, e domain.NewEntry) (domain.Entry, error) {
	if err := ctx.Err(); err != nil {
		return domain.Entry{}, storeErr("insert", err)
	}
	e = e.ForStorage()

	entry := domain.Entry{
		ID:            uuid.NewString(),
		Message:       e.Message,
		AuthorName:    cloneString(e.AuthorName),
		AuthorAvatar:  cloneString(e.AuthorAvatar),
		IsAnonymous:   e.IsAnonymous,
		SourceAddress: cloneString(e.SourceAddress),
		IdentityID:    cloneString(e.IdentityID),
		CreatedAt:     s.now().UTC(),
	}

	s.mu.Lock()
	s.entries = append(s.entries, entry)
	s.mu.Unlock()
	return entry, nil
}

func (s *MemoryStore) CountAnonymousSince(ctx context.Context, sourceAddress string, since time.Time) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, storeErr("count", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, e := range s.entries {
		if !e.IsAnonymous || e.SourceAddress == nil || *e.SourceAddress != sourceAddress {
			continue
		}
		if e.CreatedAt.Before(since) {
			continue
		}
		n++
	}
	return n, nil
}

func (s *MemoryStore) ListRecent(ctx context.Context, limit int) ([]domain.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, storeErr("list", err)
	}
	limit = clampLimit(limit)

	s.mu.Lock()
	out := make([]domain.Entry, 0, len(s.entries))
	for i := len(s.entries) - 1; i >= 0; i-- {
		out = append(out, s.entries[i])
	}
	s.mu.Unlock()

	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
