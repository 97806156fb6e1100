package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/firsthalfhero/OzBargain/internal/authenticity"
	"github.com/firsthalfhero/OzBargain/internal/domain"
	"github.com/firsthalfhero/OzBargain/internal/filter"
	"github.com/firsthalfhero/OzBargain/internal/normalizer"
)

// memStore is a minimal in-memory seen-store for pipeline tests.
type memStore struct {
	mu   sync.Mutex
	seen map[string]bool
}

func newMemStore() *memStore { return &memStore{seen: map[string]bool{}} }

func (m *memStore) IsNew(_ context.Context, key string, publishedAt, now time.Time) domain.DedupDecision {
	if now.Sub(publishedAt) > 24*time.Hour {
		return domain.DecisionStale
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.seen[key] {
		return domain.DecisionDuplicate
	}
	m.seen[key] = true
	return domain.DecisionNew
}

func (m *memStore) Close() error { return nil }

type recordingDispatcher struct {
	deals []domain.Deal
	err   error
}

func (d *recordingDispatcher) Dispatch(_ context.Context, deal domain.Deal, _ domain.FilterResult) error {
	d.deals = append(d.deals, deal)
	return d.err
}

func newTestPipeline(dispatcher *recordingDispatcher) *Pipeline {
	engine := filter.New(newMemStore(), nil, authenticity.NewScorer(5, 2), filter.Config{
		MinAuthenticityScore: 0.3,
		FallbackDefaultPass:  true,
	}, nil)
	return NewPipeline(normalizer.New(), engine, dispatcher, nil)
}

func TestHandleEntriesDispatchesPassingDeals(t *testing.T) {
	t.Parallel()

	dispatcher := &recordingDispatcher{}
	pipeline := newTestPipeline(dispatcher)

	now := time.Now()
	entries := []domain.RawEntry{
		{Title: "Mechanical keyboard $99.00", Link: "https://example.org/deal/1", PublishedAt: now.Add(-time.Hour)},
		{Link: "https://example.org/deal/untitled", PublishedAt: now}, // malformed: no title
		{Title: "Mechanical keyboard $99.00", Link: "https://example.org/deal/1", PublishedAt: now.Add(-time.Hour)},
		{Title: "Ancient deal", Link: "https://example.org/deal/old", PublishedAt: now.Add(-48 * time.Hour)},
	}

	pipeline.HandleEntries(context.Background(), "https://example.org/feed", entries)

	if len(dispatcher.deals) != 1 {
		t.Fatalf("expected exactly one dispatched deal, got %d", len(dispatcher.deals))
	}
	if dispatcher.deals[0].Title != "Mechanical keyboard $99.00" {
		t.Fatalf("unexpected deal dispatched: %+v", dispatcher.deals[0])
	}
}

func TestHandleEntriesSurvivesDispatchFailure(t *testing.T) {
	t.Parallel()

	dispatcher := &recordingDispatcher{err: errors.New("telegram down")}
	pipeline := newTestPipeline(dispatcher)

	now := time.Now()
	entries := []domain.RawEntry{
		{Title: "Deal one", Link: "https://example.org/a", PublishedAt: now.Add(-time.Minute)},
		{Title: "Deal two", Link: "https://example.org/b", PublishedAt: now.Add(-time.Minute)},
	}

	pipeline.HandleEntries(context.Background(), "https://example.org/feed", entries)

	// Both deals were still attempted despite every delivery failing.
	if len(dispatcher.deals) != 2 {
		t.Fatalf("expected both deals attempted, got %d", len(dispatcher.deals))
	}
}
