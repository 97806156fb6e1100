// Package filter implements the decision pipeline that turns a normalized
// deal into an accept/reject verdict with reasons, an authenticity score, and
// an urgency classification.
package filter

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/firsthalfhero/OzBargain/internal/authenticity"
	"github.com/firsthalfhero/OzBargain/internal/domain"
	"github.com/firsthalfhero/OzBargain/internal/ports"
)

// defaultExpirationPatterns are always active; configured patterns extend
// this list, they never replace it.
var defaultExpirationPatterns = []string{
	"expired",
	"ended",
	"[expired]",
	"sold out",
	"deal has ended",
}

const defaultEvaluateTimeout = 10 * time.Second

// Config carries the tunable thresholds of the engine. Nil price and discount
// limits disable the corresponding check.
type Config struct {
	MaxPrice              *float64
	MinDiscountPercentage *float64
	MinAuthenticityScore  float64
	ExpirationPatterns    []string
	Keywords              []string
	FallbackDefaultPass   bool
	EvaluateTimeout       time.Duration
}

// Engine runs each deal through a fixed sequence of checks: freshness,
// duplicate, expiration text, relevance, price and discount limits, and
// authenticity. Checks short-circuit on the first rejection, and stale or
// duplicate deals skip every later step including scoring.
type Engine struct {
	store     ports.SeenStore
	evaluator ports.RelevanceEvaluator
	scorer    *authenticity.Scorer
	cfg       Config
	patterns  []string
	keywords  []string
	logger    *slog.Logger
	now       func() time.Time
}

// New builds an engine. evaluator may be nil, in which case relevance always
// falls back to keyword matching.
func New(store ports.SeenStore, evaluator ports.RelevanceEvaluator, scorer *authenticity.Scorer, cfg Config, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.EvaluateTimeout <= 0 {
		cfg.EvaluateTimeout = defaultEvaluateTimeout
	}

	patterns := make([]string, 0, len(defaultExpirationPatterns)+len(cfg.ExpirationPatterns))
	patterns = append(patterns, defaultExpirationPatterns...)
	for _, p := range cfg.ExpirationPatterns {
		patterns = append(patterns, strings.ToLower(p))
	}

	keywords := make([]string, 0, len(cfg.Keywords))
	for _, k := range cfg.Keywords {
		if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
			keywords = append(keywords, k)
		}
	}

	return &Engine{
		store:     store,
		evaluator: evaluator,
		scorer:    scorer,
		cfg:       cfg,
		patterns:  patterns,
		keywords:  keywords,
		logger:    logger,
		now:       time.Now,
	}
}

// Evaluate runs the full check sequence for one deal.
func (e *Engine) Evaluate(ctx context.Context, deal domain.Deal) domain.FilterResult {
	now := e.now()

	switch e.store.IsNew(ctx, deal.IdentityKey, deal.PublishedAt, now) {
	case domain.DecisionStale:
		return domain.FilterResult{Reasons: []domain.RejectionReason{domain.ReasonStale}}
	case domain.DecisionDuplicate:
		return domain.FilterResult{Reasons: []domain.RejectionReason{domain.ReasonDuplicate}}
	}

	result := domain.FilterResult{
		AuthenticityScore: e.scorer.Score(deal.Votes, deal.Comments),
		Urgency:           ClassifyUrgency(deal, now),
	}

	if e.isExpired(deal) {
		result.IsExpired = true
		result.Reasons = append(result.Reasons, domain.ReasonExpired)
		return result
	}

	if !e.isRelevant(ctx, deal) {
		result.Reasons = append(result.Reasons, domain.ReasonNotRelevant)
		return result
	}

	if reasons := e.checkLimits(deal); len(reasons) > 0 {
		result.Reasons = append(result.Reasons, reasons...)
		return result
	}

	if authenticity.IsQuestionable(result.AuthenticityScore, e.cfg.MinAuthenticityScore) {
		result.Reasons = append(result.Reasons, domain.ReasonLowAuthenticity)
		return result
	}

	result.Passes = true
	return result
}

func (e *Engine) isExpired(deal domain.Deal) bool {
	text := strings.ToLower(deal.ExpirationText())
	for _, pattern := range e.patterns {
		if strings.Contains(text, pattern) {
			return true
		}
	}
	return false
}

// isRelevant asks the evaluator first and falls back to deterministic keyword
// matching when no judgment is available. The fallback outcome is logged so
// degraded operation is visible in the logs.
func (e *Engine) isRelevant(ctx context.Context, deal domain.Deal) bool {
	if e.evaluator != nil {
		evalCtx, cancel := context.WithTimeout(ctx, e.cfg.EvaluateTimeout)
		judgment, err := e.evaluator.Evaluate(evalCtx, deal)
		cancel()
		if err == nil {
			e.logger.Debug("relevance judgment",
				"identity_key", deal.IdentityKey,
				"relevant", judgment.IsRelevant,
				"confidence", judgment.Confidence)
			return judgment.IsRelevant
		}
		e.logger.Warn("relevance evaluator unavailable, using keyword fallback",
			"identity_key", deal.IdentityKey, "error", err)
	}

	relevant := e.keywordMatch(deal)
	e.logger.Info("relevance decided by keyword fallback",
		"identity_key", deal.IdentityKey, "relevant", relevant)
	return relevant
}

// keywordMatch is the degraded-mode relevance check: any configured keyword
// appearing in the deal's text counts as relevant. With no keywords
// configured the configured default polarity applies.
func (e *Engine) keywordMatch(deal domain.Deal) bool {
	if len(e.keywords) == 0 {
		return e.cfg.FallbackDefaultPass
	}

	text := strings.ToLower(deal.Title + " " + deal.Description + " " + deal.Category)
	for _, keyword := range e.keywords {
		if strings.Contains(text, keyword) {
			return true
		}
	}
	return false
}

// checkLimits applies the price ceiling and discount floor. Deals missing a
// value skip the corresponding check rather than failing it; both reasons can
// surface together since the limits are evaluated as one step.
func (e *Engine) checkLimits(deal domain.Deal) []domain.RejectionReason {
	var reasons []domain.RejectionReason
	if e.cfg.MaxPrice != nil && deal.Price != nil && *deal.Price > *e.cfg.MaxPrice {
		reasons = append(reasons, domain.ReasonOverMaxPrice)
	}
	if e.cfg.MinDiscountPercentage != nil && deal.DiscountPercentage != nil &&
		*deal.DiscountPercentage < *e.cfg.MinDiscountPercentage {
		reasons = append(reasons, domain.ReasonBelowMinDiscount)
	}
	return reasons
}
