package normalizer

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// textExtractor pulls prices, discounts, community counts, and urgency
// phrases out of deal text. Patterns are compiled once at construction.
type textExtractor struct {
	currentPrice  []*regexp.Regexp
	originalPrice []*regexp.Regexp
	discount      []*regexp.Regexp
	votes         []*regexp.Regexp
	comments      []*regexp.Regexp
	urgency       []*regexp.Regexp
}

const amount = `(\d{1,4}(?:,\d{3})*(?:\.\d{2})?)`

func newTextExtractor() *textExtractor {
	return &textExtractor{
		currentPrice: compileAll(
			`(?i)(?:starting\s+from|from)\s*\$`+amount,
			`(?i)(?:AU\$|AUD)\s*`+amount,
			`(?i)\$`+amount,
			`(?i)(?:price|cost|now|sale|deal)\s*:?\s*`+amount,
		),
		originalPrice: compileAll(
			`(?i)\(was\s*\$?`+amount+`\)`,
			`(?i)(?:was|originally|rrp|retail)\s*:?\s*\$?`+amount,
		),
		discount: compileAll(
			`(?i)(\d{1,2})%\s*(?:off|discount|save)`,
			`(?i)(?:save|savings?)\s*(\d{1,2})%`,
			`(?i)\((\d{1,2})%\s*off\)`,
		),
		votes: compileAll(
			`(?i)(\d+)\s*(?:votes?|ups?)`,
			`(?i)voted?\s*(\d+)`,
			`(?i)score[:\s]\s*(\d+)`,
		),
		comments: compileAll(
			`(?i)(\d+)\s*comments?`,
			`(?i)(\d+)\s*replies?`,
			`(?i)discuss\s*\((\d+)\)`,
		),
		urgency: compileAll(
			`(?i)limited\s*time`,
			`(?i)expires?\s*(?:today|tomorrow|soon)`,
			`(?i)while\s*stocks?\s*last`,
			`(?i)limited\s*stock`,
			`(?i)flash\s*sale`,
			`(?i)lightning\s*deal`,
			`(?i)ends?\s*(?:in\s*)?\d+\s*(?:hours?|mins?|minutes?)`,
			`(?i)only\s*\d+\s*(?:left|remaining)`,
			`(?i)today\s*only`,
		),
	}
}

func compileAll(patterns ...string) []*regexp.Regexp {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		compiled = append(compiled, regexp.MustCompile(p))
	}
	return compiled
}

// plainText strips HTML markup from feed descriptions and collapses
// whitespace. OzBargain feeds embed the deal body as HTML.
func (e *textExtractor) plainText(text string) string {
	if strings.Contains(text, "<") && strings.Contains(text, ">") {
		if doc, err := goquery.NewDocumentFromReader(strings.NewReader(text)); err == nil {
			text = doc.Text()
		}
	}
	return collapseWhitespace(text)
}

// extractPrices returns (current, original). The original price is matched
// first since "was $X" phrasing would otherwise be swallowed by the generic
// dollar-amount pattern.
func (e *textExtractor) extractPrices(text string) (*float64, *float64) {
	original := firstAmount(e.originalPrice, text)
	current := firstAmount(e.currentPrice, text)
	return current, original
}

// extractDiscount returns an explicitly stated discount percentage, if any.
func (e *textExtractor) extractDiscount(text string) *float64 {
	for _, re := range e.discount {
		if m := re.FindStringSubmatch(text); m != nil {
			if v, err := strconv.ParseFloat(m[1], 64); err == nil && v >= 0 && v <= 100 {
				return &v
			}
		}
	}
	return nil
}

// extractCommunityData parses vote and comment counts that OzBargain embeds
// in description text.
func (e *textExtractor) extractCommunityData(description string) (*int, *int) {
	return firstCount(e.votes, description), firstCount(e.comments, description)
}

// extractUrgencyIndicators returns the distinct urgency phrases present in
// the text, lowercased, in match order. Only phrases the feed actually
// carries are reported; nothing is invented.
func (e *textExtractor) extractUrgencyIndicators(text string) []string {
	var indicators []string
	seen := map[string]struct{}{}
	for _, re := range e.urgency {
		for _, match := range re.FindAllString(text, -1) {
			normalized := strings.ToLower(collapseWhitespace(match))
			if normalized == "" {
				continue
			}
			if _, ok := seen[normalized]; ok {
				continue
			}
			seen[normalized] = struct{}{}
			indicators = append(indicators, normalized)
		}
	}
	return indicators
}

func firstAmount(patterns []*regexp.Regexp, text string) *float64 {
	for _, re := range patterns {
		if m := re.FindStringSubmatch(text); m != nil {
			raw := strings.ReplaceAll(m[1], ",", "")
			if v, err := strconv.ParseFloat(raw, 64); err == nil {
				return &v
			}
		}
	}
	return nil
}

func firstCount(patterns []*regexp.Regexp, text string) *int {
	for _, re := range patterns {
		if m := re.FindStringSubmatch(text); m != nil {
			if v, err := strconv.Atoi(m[1]); err == nil {
				return &v
			}
		}
	}
	return nil
}
