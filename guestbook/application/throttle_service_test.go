package application

import (
	"context"
	"testing"
	"time"

	"guestbook-gateway/guestbook/domain"
)

type scriptedLimiter struct {
	ok    bool
	wait  time.Duration
	taken []domain.Key
}

func (l *scriptedLimiter) Take(key domain.Key, _ time.Time) (bool, time.Duration) {
	l.taken = append(l.taken, key)
	return l.ok, l.wait
}

func TestThrottleService_Decide_AllowsWhenNoLimiter(t *testing.T) {
	dec := ThrottleService{}.Decide(context.Background(), anonymousEnvelope("hi", "10.0.0.1"))
	if !dec.Allowed || dec.RetryAfter != 0 {
		t.Fatalf("expected allowed without RetryAfter, got %+v", dec)
	}
}

func TestThrottleService_Decide_AuthenticatedNeverTouchesBucket(t *testing.T) {
	lim := &scriptedLimiter{ok: false, wait: time.Minute}
	svc := ThrottleService{Limiter: lim}

	env := authenticatedEnvelope("hi", "user-1")
	env.SourceAddress = domain.StringPtr("10.0.0.1")
	for i := 0; i < 10; i++ {
		if !svc.Decide(context.Background(), env).Allowed {
			t.Fatalf("authenticated submission %d was throttled", i+1)
		}
	}
	if len(lim.taken) != 0 {
		t.Fatalf("expected no bucket use for authenticated, got %v", lim.taken)
	}
}

func TestThrottleService_Decide_KeysOnSourceAddress(t *testing.T) {
	lim := &scriptedLimiter{ok: true}
	svc := ThrottleService{Limiter: lim}

	if !svc.Decide(context.Background(), anonymousEnvelope("hi", "2001:db8::1")).Allowed {
		t.Fatalf("expected allowed")
	}
	if len(lim.taken) != 1 || lim.taken[0] != "2001:db8::1" {
		t.Fatalf("unexpected keys %v", lim.taken)
	}
}

func TestThrottleService_Decide_BlockRecordsStatsAndRoundsRetryAfter(t *testing.T) {
	stats := &recordingStats{}
	svc := ThrottleService{
		Limiter: &scriptedLimiter{ok: false, wait: 1500 * time.Millisecond},
		Stats:   stats,
		Logger:  discardLogger,
	}

	dec := svc.Decide(context.Background(), anonymousEnvelope("hi", "10.0.0.1"))
	if dec.Allowed {
		t.Fatalf("expected blocked")
	}
	if dec.RetryAfter != 2*time.Second {
		t.Fatalf("expected RetryAfter rounded up to 2s, got %s", dec.RetryAfter)
	}
	if len(stats.events) != 1 || stats.events[0].Kind != domain.KindThrottled || !stats.events[0].Anonymous {
		t.Fatalf("unexpected stats %+v", stats.events)
	}
}

func TestRetryAfter(t *testing.T) {
	cases := []struct {
		wait, floor, want time.Duration
	}{
		{0, 0, time.Second},
		{200 * time.Millisecond, 0, time.Second},
		{3 * time.Second, 0, 3 * time.Second},
		{3100 * time.Millisecond, 0, 4 * time.Second},
		{time.Second, 5 * time.Second, 5 * time.Second},
	}
	for _, tc := range cases {
		if got := retryAfter(tc.wait, tc.floor); got != tc.want {
			t.Fatalf("retryAfter(%s, %s) = %s, want %s", tc.wait, tc.floor, got, tc.want)
		}
	}
}
