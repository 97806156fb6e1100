// Package feed polls RSS/Atom feeds and hands raw entries to the pipeline.
package feed

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/firsthalfhero/OzBargain/internal/domain"
	"github.com/firsthalfhero/OzBargain/internal/ports"
)

// Monitor periodically pulls every configured feed using concurrent workers
// and pushes the parsed entries to the handler. A failing feed is logged and
// skipped; it never aborts the cycle.
type Monitor struct {
	urls         []string
	handler      ports.EntryHandler
	parser       *gofeed.Parser
	pollInterval time.Duration
	fetchTimeout time.Duration
	logger       *slog.Logger
}

type fetchResult struct {
	url     string
	entries []domain.RawEntry
	err     error
}

// NewMonitor returns a Monitor that polls urls every pollInterval.
func NewMonitor(urls []string, handler ports.EntryHandler, pollInterval, fetchTimeout time.Duration, logger *slog.Logger) *Monitor {
	if logger == nil {
		logger = slog.Default()
	}
	if pollInterval <= 0 {
		pollInterval = 5 * time.Minute
	}
	if fetchTimeout <= 0 {
		fetchTimeout = 30 * time.Second
	}
	return &Monitor{
		urls:         urls,
		handler:      handler,
		parser:       gofeed.NewParser(),
		pollInterval: pollInterval,
		fetchTimeout: fetchTimeout,
		logger:       logger,
	}
}

// Start begins the background polling loop. It blocks until ctx is cancelled.
// The first cycle runs immediately.
func (m *Monitor) Start(ctx context.Context) {
	m.logger.Info("feed monitor started", "feeds", len(m.urls), "interval", m.pollInterval)

	m.pollAll(ctx)

	ticker := time.NewTicker(m.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("feed monitor stopped")
			return
		case <-ticker.C:
			m.pollAll(ctx)
		}
	}
}

// pollAll fans out one goroutine per feed and feeds results to the handler as
// they arrive.
func (m *Monitor) pollAll(ctx context.Context) {
	if len(m.urls) == 0 {
		return
	}

	results := make(chan fetchResult, len(m.urls))

	var wg sync.WaitGroup
	for _, url := range m.urls {
		wg.Add(1)
		go func(url string) {
			defer wg.Done()
			entries, err := m.fetchFeed(ctx, url)
			results <- fetchResult{url: url, entries: entries, err: err}
		}(url)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	for res := range results {
		if res.err != nil {
			m.logger.Error("feed fetch failed", "feed", res.url, "error", res.err)
			continue
		}
		m.logger.Debug("feed fetched", "feed", res.url, "entries", len(res.entries))
		m.handler.HandleEntries(ctx, res.url, res.entries)
	}
}

func (m *Monitor) fetchFeed(ctx context.Context, url string) ([]domain.RawEntry, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, m.fetchTimeout)
	defer cancel()

	parsed, err := m.parser.ParseURLWithContext(url, fetchCtx)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", url, err)
	}

	entries := make([]domain.RawEntry, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		entries = append(entries, itemToEntry(item))
	}
	return entries, nil
}

// itemToEntry maps a gofeed item to a raw entry. Feeds without a publish date
// get the fetch time, which keeps them inside the freshness window for
// exactly one cycle of scrutiny.
func itemToEntry(item *gofeed.Item) domain.RawEntry {
	published := time.Now()
	if item.PublishedParsed != nil {
		published = *item.PublishedParsed
	}

	var category string
	if len(item.Categories) > 0 {
		category = item.Categories[0]
	}

	return domain.RawEntry{
		Title:       item.Title,
		Link:        item.Link,
		Description: item.Description,
		PublishedAt: published,
		Category:    category,
	}
}
