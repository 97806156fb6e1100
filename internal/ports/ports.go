package ports

import (
	"context"
	"time"

	"github.com/firsthalfhero/OzBargain/internal/domain"
)

// SeenStore is the deduplication and age gate. IsNew decides Stale, Duplicate,
// or New for one identity key; returning New records the key as a side effect,
// atomically from the caller's perspective. Implementations never surface
// persistence errors to the caller; the in-memory decision stands.
type SeenStore interface {
	IsNew(ctx context.Context, identityKey string, publishedAt, now time.Time) domain.DedupDecision
	Close() error
}

// RelevanceEvaluator asks an LLM whether a deal matches the user's interests.
// Implementations return domain.ErrRelevanceUnavailable (possibly wrapped)
// when no judgment could be produced within the caller's deadline.
type RelevanceEvaluator interface {
	Evaluate(ctx context.Context, deal domain.Deal) (domain.Judgment, error)
}

// AlertDispatcher delivers a passing deal to the user.
type AlertDispatcher interface {
	Dispatch(ctx context.Context, deal domain.Deal, result domain.FilterResult) error
}

// EntryHandler consumes one batch of raw entries from a feed poll cycle.
type EntryHandler interface {
	HandleEntries(ctx context.Context, feedURL string, entries []domain.RawEntry)
}
