package infra

import (
	"context"
	"errors"
	"testing"
	"time"

	"guestbook-gateway/guestbook/domain"

	"github.com/stretchr/testify/require"
)

type stepClock struct {
	now time.Time
}

func (c *stepClock) Now() time.Time { return c.now }

func (c *stepClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func anonymous(msg, source string) domain.NewEntry {
	return domain.NewEntry{Message: msg, IsAnonymous: true, SourceAddress: domain.StringPtr(source)}
}

func TestMemoryStore_InsertAssignsIDAndTime(t *testing.T) {
	clock := &stepClock{now: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
	s := NewMemoryStore(WithMemoryClock(clock.Now))

	e, err := s.Insert(context.Background(), anonymous("hello", "203.0.113.7"))
	require.NoError(t, err)
	require.NotEmpty(t, e.ID)
	require.Equal(t, clock.now, e.CreatedAt)
	require.Equal(t, "203.0.113.7", *e.SourceAddress)

	e2, err := s.Insert(context.Background(), anonymous("hello", "203.0.113.7"))
	require.NoError(t, err)
	require.NotEqual(t, e.ID, e2.ID)
}

func TestMemoryStore_DropsSourceForAuthenticated(t *testing.T) {
	s := NewMemoryStore()

	e, err := s.Insert(context.Background(), domain.NewEntry{
		Message:       "hi",
		IdentityID:    domain.StringPtr("user-1"),
		SourceAddress: domain.StringPtr("203.0.113.7"),
	})
	require.NoError(t, err)
	require.Nil(t, e.SourceAddress)

	n, err := s.CountAnonymousSince(context.Background(), "203.0.113.7", time.Time{})
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestMemoryStore_CountUsesSlidingWindow(t *testing.T) {
	clock := &stepClock{now: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
	s := NewMemoryStore(WithMemoryClock(clock.Now))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := s.Insert(ctx, anonymous("m", "203.0.113.7"))
		require.NoError(t, err)
		clock.Advance(10 * time.Minute)
	}
	_, err := s.Insert(ctx, anonymous("m", "198.51.100.1"))
	require.NoError(t, err)

	// agora = 10:30; entradas em 10:00, 10:10, 10:20
	n, err := s.CountAnonymousSince(ctx, "203.0.113.7", clock.now.Add(-60*time.Minute))
	require.NoError(t, err)
	require.Equal(t, 3, n)

	n, err = s.CountAnonymousSince(ctx, "203.0.113.7", clock.now.Add(-15*time.Minute))
	require.NoError(t, err)
	require.Equal(t, 1, n)

	// limite inclusivo
	n, err = s.CountAnonymousSince(ctx, "203.0.113.7", time.Date(2026, 3, 1, 10, 10, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Equal(t, 2, n)
}

func TestMemoryStore_ListRecentNewestFirst(t *testing.T) {
	clock := &stepClock{now: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
	s := NewMemoryStore(WithMemoryClock(clock.Now))
	ctx := context.Background()

	for _, msg := range []string{"a", "b", "c"} {
		_, err := s.Insert(ctx, anonymous(msg, "203.0.113.7"))
		require.NoError(t, err)
		clock.Advance(time.Second)
	}

	got, err := s.ListRecent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, "c", got[0].Message)
	require.Equal(t, "b", got[1].Message)
}

func TestMemoryStore_CanceledContext(t *testing.T) {
	s := NewMemoryStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Insert(ctx, anonymous("m", "203.0.113.7"))
	require.True(t, errors.Is(err, domain.ErrStoreUnavailable))
}

func TestClampLimit(t *testing.T) {
	require.Equal(t, DefaultListLimit, clampLimit(0))
	require.Equal(t, DefaultListLimit, clampLimit(-3))
	require.Equal(t, 10, clampLimit(10))
	require.Equal(t, MaxListLimit, clampLimit(10_000))
}
