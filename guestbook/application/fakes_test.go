package application

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"guestbook-gateway/guestbook/domain"
)

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

type fakeClassifier struct {
	verdict domain.Verdict
	calls   int
}

func (f *fakeClassifier) Classify(context.Context, string) domain.Verdict {
	f.calls++
	return f.verdict
}

type fakeStore struct {
	mu        sync.Mutex
	inserted  []domain.NewEntry
	count     int
	countErr  error
	insertErr error
	counted   int
	since     time.Time
}

func (s *fakeStore) Insert(_ context.Context, e domain.NewEntry) (domain.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.insertErr != nil {
		return domain.Entry{}, s.insertErr
	}
	e = e.ForStorage()
	s.inserted = append(s.inserted, e)
	return domain.Entry{
		ID:            "entry-1",
		Message:       e.Message,
		AuthorName:    e.AuthorName,
		AuthorAvatar:  e.AuthorAvatar,
		IsAnonymous:   e.IsAnonymous,
		SourceAddress: e.SourceAddress,
		IdentityID:    e.IdentityID,
		CreatedAt:     time.Now(),
	}, nil
}

func (s *fakeStore) CountAnonymousSince(_ context.Context, _ string, since time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counted++
	s.since = since
	return s.count, s.countErr
}

func (s *fakeStore) ListRecent(context.Context, int) ([]domain.Entry, error) {
	return nil, errors.New("boom")
}

type recordingStats struct {
	events []domain.StatsEvent
	err    error
}

func (r *recordingStats) Record(_ context.Context, ev domain.StatsEvent) error {
	r.events = append(r.events, ev)
	return r.err
}
