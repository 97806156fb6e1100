package domain

import "time"

// RawEntry is a feed item as delivered by the RSS collaborator, before any
// normalization. Fields mirror what RSS/Atom feeds actually provide.
type RawEntry struct {
	Title       string
	Link        string
	Description string
	PublishedAt time.Time
	Category    string
}

// Deal is the canonical, de-duplicatable unit extracted from a feed entry.
// IdentityKey is immutable once assigned and is the sole key used for
// deduplication and audit logs.
type Deal struct {
	IdentityKey        string
	Title              string
	Description        string
	Price              *float64
	OriginalPrice      *float64
	DiscountPercentage *float64
	Category           string
	URL                string
	PublishedAt        time.Time
	Votes              *int
	Comments           *int
	UrgencyIndicators  []string
}

// ExpirationText returns the combined free text scanned for expiration
// markers. Feeds often flag expiry only in the title or body, never in a
// structured field.
func (d Deal) ExpirationText() string {
	return d.Title + " " + d.Description
}

// SeenRecord is one persisted dedup entry. Records are created once and only
// ever read or evicted, never mutated.
type SeenRecord struct {
	IdentityKey string    `json:"identity_key"`
	FirstSeenAt time.Time `json:"first_seen_at"`
}

// DedupDecision is the outcome of consulting the seen-store for one entry.
type DedupDecision int

const (
	// DecisionStale means the entry is older than the freshness window. It is
	// returned before the seen-set is consulted, so old entries never pollute
	// the store regardless of whether they were seen before.
	DecisionStale DedupDecision = iota
	// DecisionDuplicate means the identity key is already recorded.
	DecisionDuplicate
	// DecisionNew means the entry was recorded as a side effect of the check.
	DecisionNew
)

func (d DedupDecision) String() string {
	switch d {
	case DecisionStale:
		return "stale"
	case DecisionDuplicate:
		return "duplicate"
	case DecisionNew:
		return "new"
	}
	return "unknown"
}

// UrgencyLevel classifies how time-sensitive a deal is.
type UrgencyLevel int

const (
	UrgencyLow UrgencyLevel = iota
	UrgencyMedium
	UrgencyHigh
	UrgencyCritical
)

func (u UrgencyLevel) String() string {
	switch u {
	case UrgencyLow:
		return "low"
	case UrgencyMedium:
		return "medium"
	case UrgencyHigh:
		return "high"
	case UrgencyCritical:
		return "critical"
	}
	return "unknown"
}

// RejectionReason identifies which filter step rejected a deal.
type RejectionReason string

const (
	ReasonStale            RejectionReason = "stale"
	ReasonDuplicate        RejectionReason = "duplicate"
	ReasonExpired          RejectionReason = "expired"
	ReasonNotRelevant      RejectionReason = "not_relevant"
	ReasonOverMaxPrice     RejectionReason = "over_max_price"
	ReasonBelowMinDiscount RejectionReason = "below_min_discount"
	ReasonLowAuthenticity  RejectionReason = "low_authenticity"
)

// FilterResult is the pass/fail decision for one evaluated deal. It is
// ephemeral: computed per evaluation and handed to the dispatcher, never
// persisted.
type FilterResult struct {
	Passes            bool
	Reasons           []RejectionReason
	AuthenticityScore float64
	Urgency           UrgencyLevel
	IsExpired         bool
}

// Judgment is the relevance verdict supplied by the LLM evaluator.
type Judgment struct {
	IsRelevant bool
	Confidence float64
	Reasoning  string
}
