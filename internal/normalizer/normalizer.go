// Package normalizer converts raw feed entries into canonical Deals with a
// stable identity key. The key is what the dedup store and audit logs hang
// off, so the same logical deal must map to the same key across polls even if
// feed ordering, tracking parameters, or whitespace change.
package normalizer

import (
	"crypto/sha256"
	"fmt"
	"math"
	"net/url"
	"strings"
	"time"

	"github.com/firsthalfhero/OzBargain/internal/domain"
)

// Normalizer parses and validates feed entries. Safe for concurrent use: all
// state is immutable after construction.
type Normalizer struct {
	extractor *textExtractor
}

// New builds a Normalizer with compiled extraction patterns.
func New() *Normalizer {
	return &Normalizer{extractor: newTextExtractor()}
}

// Normalize converts a raw entry into a canonical Deal. It returns a
// MalformedEntryError when the entry carries no usable title, since without
// one neither a display name nor a fallback identity exists. Price, discount,
// votes, and comments are all optional and extracted from the entry text on a
// best-effort basis.
func (n *Normalizer) Normalize(entry domain.RawEntry) (domain.Deal, error) {
	title := collapseWhitespace(entry.Title)
	if title == "" && strings.TrimSpace(entry.Link) == "" {
		return domain.Deal{}, &domain.MalformedEntryError{Reason: "entry has neither title nor link"}
	}
	if title == "" {
		return domain.Deal{}, &domain.MalformedEntryError{Reason: "entry has no usable title"}
	}

	description := n.extractor.plainText(entry.Description)
	combined := title + " " + description

	price, originalPrice := n.extractor.extractPrices(combined)
	discount := n.extractor.extractDiscount(combined)
	if discount == nil {
		discount = deriveDiscount(price, originalPrice)
	}

	votes, comments := n.extractor.extractCommunityData(description)

	category := strings.TrimSpace(entry.Category)
	if category == "" {
		category = "Unknown"
	}

	return domain.Deal{
		IdentityKey:        identityKey(entry.Link, title, entry.PublishedAt),
		Title:              title,
		Description:        description,
		Price:              price,
		OriginalPrice:      originalPrice,
		DiscountPercentage: discount,
		Category:           category,
		URL:                strings.TrimSpace(entry.Link),
		PublishedAt:        entry.PublishedAt,
		Votes:              votes,
		Comments:           comments,
		UrgencyIndicators:  n.extractor.extractUrgencyIndicators(combined),
	}, nil
}

// identityKey prefers a hash of the canonicalized URL; entries without a link
// fall back to a hash of the normalized title plus publication time.
func identityKey(link, title string, publishedAt time.Time) string {
	link = strings.TrimSpace(link)
	if link != "" {
		return hashKey("url|" + canonicalizeURL(link))
	}
	return hashKey("title|" + title + "|" + publishedAt.UTC().Format(time.RFC3339))
}

// canonicalizeURL strips query strings (where tracking parameters live) and
// fragments, lowercases the host, and trims trailing slashes so cosmetic URL
// variants collapse to one identity.
func canonicalizeURL(raw string) string {
	parsed, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	parsed.RawQuery = ""
	parsed.Fragment = ""
	parsed.Host = strings.ToLower(parsed.Host)
	parsed.Path = strings.TrimRight(parsed.Path, "/")
	return parsed.String()
}

func hashKey(content string) string {
	sum := sha256.Sum256([]byte(content))
	return fmt.Sprintf("%x", sum[:16])
}

// deriveDiscount computes the discount from the two prices when the feed did
// not state one. Nonsensical results (negative, over 100) yield no discount
// rather than propagating garbage into threshold checks.
func deriveDiscount(price, originalPrice *float64) *float64 {
	if price == nil || originalPrice == nil || *originalPrice <= 0 {
		return nil
	}
	discount := math.Round((1-*price / *originalPrice)*1000) / 10
	if discount < 0 || discount > 100 {
		return nil
	}
	return &discount
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
