// Package usecase wires normalization, filtering, and alert dispatch into the
// per-batch processing pipeline.
package usecase

import (
	"context"
	"log/slog"

	"github.com/firsthalfhero/OzBargain/internal/domain"
	"github.com/firsthalfhero/OzBargain/internal/filter"
	"github.com/firsthalfhero/OzBargain/internal/normalizer"
	"github.com/firsthalfhero/OzBargain/internal/ports"
)

// Pipeline consumes raw feed entries and pushes passing deals to the
// dispatcher. One malformed entry or failed delivery never aborts the batch.
type Pipeline struct {
	normalizer *normalizer.Normalizer
	engine     *filter.Engine
	dispatcher ports.AlertDispatcher
	logger     *slog.Logger
}

var _ ports.EntryHandler = (*Pipeline)(nil)

// NewPipeline assembles the processing chain.
func NewPipeline(n *normalizer.Normalizer, engine *filter.Engine, dispatcher ports.AlertDispatcher, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		normalizer: n,
		engine:     engine,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// HandleEntries runs one poll cycle's entries through the full chain.
func (p *Pipeline) HandleEntries(ctx context.Context, feedURL string, entries []domain.RawEntry) {
	var malformed, passed, rejected, undelivered int

	for _, entry := range entries {
		deal, err := p.normalizer.Normalize(entry)
		if err != nil {
			malformed++
			p.logger.Warn("entry skipped", "feed", feedURL, "title", entry.Title, "error", err)
			continue
		}

		result := p.engine.Evaluate(ctx, deal)
		if !result.Passes {
			rejected++
			p.logger.Debug("deal rejected",
				"identity_key", deal.IdentityKey,
				"reasons", reasonStrings(result.Reasons))
			continue
		}

		passed++
		if err := p.dispatcher.Dispatch(ctx, deal, result); err != nil {
			undelivered++
			p.logger.Error("alert delivery failed", "identity_key", deal.IdentityKey, "error", err)
		}
	}

	p.logger.Info("batch processed",
		"feed", feedURL,
		"entries", len(entries),
		"passed", passed,
		"rejected", rejected,
		"malformed", malformed,
		"undelivered", undelivered)
}

func reasonStrings(reasons []domain.RejectionReason) []string {
	out := make([]string, len(reasons))
	for i, r := range reasons {
		out[i] = string(r)
	}
	return out
}
