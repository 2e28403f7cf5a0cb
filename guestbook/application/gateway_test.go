package application

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"guestbook-gateway/guestbook/domain"
	"guestbook-gateway/guestbook/infra"
)

func newTestGateway(c domain.Classifier, s domain.EntryStore) *Gateway {
	return NewGateway(GatewayConfig{
		Credentials: Credentials{ModerationAPIKey: "sk-test", StoreDSN: "memory://"},
		Classifier:  c,
		Store:       s,
		Logger:      discardLogger,
	})
}

func anonymousEnvelope(msg, source string) domain.Envelope {
	return domain.Envelope{
		Message:       msg,
		AuthorName:    domain.StringPtr("Ana"),
		IsAnonymous:   true,
		SourceAddress: domain.StringPtr(source),
	}
}

func authenticatedEnvelope(msg, user string) domain.Envelope {
	return domain.Envelope{
		Message:    msg,
		AuthorName: domain.StringPtr("Bia"),
		IdentityID: domain.StringPtr(user),
	}
}

func TestGateway_AcceptsAnonymousSubmission(t *testing.T) {
	store := &fakeStore{count: 2}
	gw := newTestGateway(&fakeClassifier{verdict: domain.Allow()}, store)

	out := gw.Submit(context.Background(), anonymousEnvelope("Hello!", "203.0.113.7"))
	if !out.IsAccepted() {
		t.Fatalf("expected accepted, got %+v", out)
	}
	if out.Entry == nil || out.Entry.Message != "Hello!" {
		t.Fatalf("unexpected entry %+v", out.Entry)
	}
	if out.Entry.SourceAddress == nil || *out.Entry.SourceAddress != "203.0.113.7" {
		t.Fatalf("expected source kept for anonymous entry, got %v", out.Entry.SourceAddress)
	}
	if len(store.inserted) != 1 {
		t.Fatalf("expected one insert, got %d", len(store.inserted))
	}
}

func TestGateway_TooLongMessageNeverReachesClassifier(t *testing.T) {
	cls := &fakeClassifier{verdict: domain.Allow()}
	store := &fakeStore{}
	gw := newTestGateway(cls, store)

	out := gw.Submit(context.Background(), anonymousEnvelope(strings.Repeat("a", 501), "203.0.113.7"))
	if out.Status != domain.StatusRejected || out.Kind != domain.KindValidation {
		t.Fatalf("expected validation rejection, got %+v", out)
	}
	if cls.calls != 0 || store.counted != 0 || len(store.inserted) != 0 {
		t.Fatalf("expected no collaborator calls, got classify=%d count=%d insert=%d", cls.calls, store.counted, len(store.inserted))
	}
}

func TestGateway_ModerationRejectionCarriesReason(t *testing.T) {
	store := &fakeStore{}
	cls := &fakeClassifier{verdict: domain.Deny("Content violates guidelines: hate, violence", "hate", "violence")}
	gw := newTestGateway(cls, store)

	out := gw.Submit(context.Background(), anonymousEnvelope("something bad", "203.0.113.7"))
	if out.Status != domain.StatusRejected || out.Kind != domain.KindModerationFailed {
		t.Fatalf("expected moderation rejection, got %+v", out)
	}
	if out.Reason != "Content violates guidelines: hate, violence" {
		t.Fatalf("unexpected reason %q", out.Reason)
	}
	if store.counted != 0 || len(store.inserted) != 0 {
		t.Fatalf("expected no quota check nor insert after moderation rejection")
	}
}

func TestGateway_EmptyDenyReasonGetsDefault(t *testing.T) {
	gw := newTestGateway(&fakeClassifier{verdict: domain.Verdict{}}, &fakeStore{})
	out := gw.Submit(context.Background(), anonymousEnvelope("hi", "203.0.113.7"))
	if out.Reason == "" {
		t.Fatalf("expected non-empty moderation reason")
	}
}

func TestGateway_SixthAnonymousSubmissionIsRateLimited(t *testing.T) {
	store := &fakeStore{count: 5}
	gw := newTestGateway(&fakeClassifier{verdict: domain.Allow()}, store)

	out := gw.Submit(context.Background(), anonymousEnvelope("one more", "198.51.100.1"))
	if out.Status != domain.StatusRejected || out.Kind != domain.KindRateLimitExceeded {
		t.Fatalf("expected rate limit rejection, got %+v", out)
	}
	if !strings.Contains(out.Reason, "5 messages per hour") {
		t.Fatalf("unexpected reason %q", out.Reason)
	}
	if len(store.inserted) != 0 {
		t.Fatalf("expected no insert")
	}
}

func TestGateway_AuthenticatedIsExemptFromQuota(t *testing.T) {
	store := &fakeStore{count: 100}
	gw := newTestGateway(&fakeClassifier{verdict: domain.Allow()}, store)

	for i := 0; i < 10; i++ {
		out := gw.Submit(context.Background(), authenticatedEnvelope("hey", "user-1"))
		if !out.IsAccepted() {
			t.Fatalf("submission %d: expected accepted, got %+v", i, out)
		}
	}
	if store.counted != 0 {
		t.Fatalf("expected no quota queries for authenticated submissions, got %d", store.counted)
	}
}

func TestGateway_AuthenticatedNeverStoresSource(t *testing.T) {
	store := &fakeStore{}
	gw := newTestGateway(&fakeClassifier{verdict: domain.Allow()}, store)

	env := authenticatedEnvelope("hey", "user-1")
	env.SourceAddress = domain.StringPtr("203.0.113.7")

	out := gw.Submit(context.Background(), env)
	if !out.IsAccepted() {
		t.Fatalf("expected accepted, got %+v", out)
	}
	if out.Entry.SourceAddress != nil || store.inserted[0].SourceAddress != nil {
		t.Fatalf("expected source address dropped for authenticated entry")
	}
}

func TestGateway_QuotaFailureFailsClosed(t *testing.T) {
	store := &fakeStore{countErr: errors.New("connection refused")}
	gw := newTestGateway(&fakeClassifier{verdict: domain.Allow()}, store)

	out := gw.Submit(context.Background(), anonymousEnvelope("hi", "203.0.113.7"))
	if out.Kind != domain.KindRateLimitExceeded {
		t.Fatalf("expected rate limit rejection on quota failure, got %+v", out)
	}
}

func TestGateway_InsertFailureIsDatabaseError(t *testing.T) {
	store := &fakeStore{insertErr: errors.New("unique violation on users_pkey")}
	gw := newTestGateway(&fakeClassifier{verdict: domain.Allow()}, store)

	out := gw.Submit(context.Background(), anonymousEnvelope("hi", "203.0.113.7"))
	if out.Status != domain.StatusFailed || out.Kind != domain.KindDatabaseError {
		t.Fatalf("expected database failure, got %+v", out)
	}
	if out.Reason != ReasonDatabaseError {
		t.Fatalf("expected generic reason, got %q", out.Reason)
	}
	if out.Entry != nil {
		t.Fatalf("failure must not carry an entry")
	}
}

func TestGateway_MissingCredentialsIsConfigurationError(t *testing.T) {
	cls := &fakeClassifier{verdict: domain.Allow()}
	store := &fakeStore{}
	gw := NewGateway(GatewayConfig{
		Credentials: Credentials{StoreDSN: "memory://"},
		Classifier:  cls,
		Store:       store,
		Logger:      discardLogger,
	})

	if !errors.Is(gw.ConfigErr(), domain.ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", gw.ConfigErr())
	}

	// nem um envelope inválido chega na validação
	out := gw.Submit(context.Background(), domain.Envelope{})
	if out.Status != domain.StatusFailed || out.Kind != domain.KindConfigurationError {
		t.Fatalf("expected configuration failure, got %+v", out)
	}
	if cls.calls != 0 || store.counted != 0 || len(store.inserted) != 0 {
		t.Fatalf("expected no collaborator calls")
	}
}

func TestGateway_CanceledContextAbortsBeforeInsert(t *testing.T) {
	store := &fakeStore{}
	gw := newTestGateway(&fakeClassifier{verdict: domain.Allow()}, store)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out := gw.Submit(ctx, authenticatedEnvelope("hi", "user-1"))
	if out.Status != domain.StatusFailed || out.Kind != domain.KindServerError {
		t.Fatalf("expected server failure, got %+v", out)
	}
	if len(store.inserted) != 0 {
		t.Fatalf("expected no insert after cancellation")
	}
}

func TestGateway_ClassifiesTrimmedMessage(t *testing.T) {
	var seen string
	cls := classifierFunc(func(_ context.Context, text string) domain.Verdict {
		seen = text
		return domain.Allow()
	})
	store := &fakeStore{}
	gw := newTestGateway(cls, store)

	gw.Submit(context.Background(), authenticatedEnvelope("   hello   ", "user-1"))
	if seen != "hello" {
		t.Fatalf("expected trimmed text at classifier, got %q", seen)
	}
	if store.inserted[0].Message != "hello" {
		t.Fatalf("expected trimmed text persisted, got %q", store.inserted[0].Message)
	}
}

func TestGateway_RecordsEveryOutcome(t *testing.T) {
	stats := &recordingStats{err: errors.New("redis down")}
	gw := NewGateway(GatewayConfig{
		Credentials: Credentials{ModerationAPIKey: "sk-test", StoreDSN: "memory://"},
		Classifier:  &fakeClassifier{verdict: domain.Allow()},
		Store:       &fakeStore{},
		Stats:       stats,
		Logger:      discardLogger,
	})

	ok := gw.Submit(context.Background(), anonymousEnvelope("hi", "203.0.113.7"))
	bad := gw.Submit(context.Background(), anonymousEnvelope("", "203.0.113.7"))

	if !ok.IsAccepted() || bad.Kind != domain.KindValidation {
		t.Fatalf("stats failure must not change outcomes: %+v %+v", ok, bad)
	}
	if len(stats.events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(stats.events))
	}
	if stats.events[0].Status != domain.StatusAccepted || !stats.events[0].Anonymous {
		t.Fatalf("unexpected first event %+v", stats.events[0])
	}
	if stats.events[1].Kind != domain.KindValidation {
		t.Fatalf("unexpected second event %+v", stats.events[1])
	}
}

func TestGateway_RecentWrapsStoreErrors(t *testing.T) {
	gw := newTestGateway(&fakeClassifier{}, &fakeStore{})
	if _, err := gw.Recent(context.Background(), 10); !errors.Is(err, domain.ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}

	gw = NewGateway(GatewayConfig{Logger: discardLogger})
	if _, err := gw.Recent(context.Background(), 10); !errors.Is(err, domain.ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func TestGateway_RecentUsesConfigurationGuard(t *testing.T) {
	store := infra.NewMemoryStore()
	gw := NewGateway(GatewayConfig{
		Credentials: Credentials{StoreDSN: "memory://"},
		Classifier:  &fakeClassifier{verdict: domain.Allow()},
		Store:       store,
		Logger:      discardLogger,
	})

	if _, err := gw.Recent(context.Background(), 10); !errors.Is(err, domain.ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured without moderation key, got %v", err)
	}
}

func TestGateway_ModerationOutageStillAccepts(t *testing.T) {
	var calls int32
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, `{"error":"upstream down"}`, http.StatusInternalServerError)
	}))
	defer upstream.Close()

	store := infra.NewMemoryStore()
	gw := NewGateway(GatewayConfig{
		Credentials: Credentials{ModerationAPIKey: "sk-test", StoreDSN: "memory://"},
		Classifier: infra.NewModerationClient("sk-test",
			infra.WithModerationURL(upstream.URL),
			infra.WithModerationLogger(discardLogger),
		),
		Store:  store,
		Logger: discardLogger,
	})

	out := gw.Submit(context.Background(), anonymousEnvelope("anything at all", "203.0.113.7"))
	if !out.IsAccepted() {
		t.Fatalf("expected accepted when moderation is down, got %+v", out)
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Fatalf("expected one moderation call, got %d", calls)
	}

	entries, err := store.ListRecent(context.Background(), 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 1 || entries[0].ID != out.Entry.ID {
		t.Fatalf("expected exactly the accepted entry stored, got %+v", entries)
	}
}

type classifierFunc func(ctx context.Context, text string) domain.Verdict

func (f classifierFunc) Classify(ctx context.Context, text string) domain.Verdict { return f(ctx, text) }
