package filter

import (
	"strings"
	"time"

	"github.com/firsthalfhero/OzBargain/internal/domain"
)

// recencyWindow is how fresh a deal must be for its urgency to escalate one
// level: very new deals are the ones worth jumping on.
const recencyWindow = 15 * time.Minute

// Markers whose presence in feed text asserts high urgency on its own.
var highUrgencyMarkers = []string{
	"flash sale",
	"lightning deal",
	"expires today",
	"ends in",
	"only",
}

// ClassifyUrgency maps deal attributes to an ordinal urgency level. It
// combines feed-provided urgency markers (passed through, never invented),
// discount magnitude, and recency. Conflicts always resolve toward the higher
// level so a feed-asserted marker is never silently downgraded.
func ClassifyUrgency(deal domain.Deal, now time.Time) domain.UrgencyLevel {
	level := domain.UrgencyLow

	for _, indicator := range deal.UrgencyIndicators {
		level = maxLevel(level, markerLevel(indicator))
	}

	if deal.DiscountPercentage != nil {
		switch {
		case *deal.DiscountPercentage >= 70:
			level = maxLevel(level, domain.UrgencyHigh)
		case *deal.DiscountPercentage >= 50:
			level = maxLevel(level, domain.UrgencyMedium)
		}
	}

	if age := now.Sub(deal.PublishedAt); age >= 0 && age <= recencyWindow {
		level = escalate(level)
	}

	return level
}

func markerLevel(indicator string) domain.UrgencyLevel {
	normalized := strings.ToLower(indicator)
	for _, marker := range highUrgencyMarkers {
		if strings.Contains(normalized, marker) {
			return domain.UrgencyHigh
		}
	}
	return domain.UrgencyMedium
}

func maxLevel(a, b domain.UrgencyLevel) domain.UrgencyLevel {
	if b > a {
		return b
	}
	return a
}

func escalate(level domain.UrgencyLevel) domain.UrgencyLevel {
	if level >= domain.UrgencyCritical {
		return domain.UrgencyCritical
	}
	return level + 1
}
