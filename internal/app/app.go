// Package app wires configuration to the pipeline and owns the process
// lifecycle.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/firsthalfhero/OzBargain/internal/authenticity"
	"github.com/firsthalfhero/OzBargain/internal/config"
	"github.com/firsthalfhero/OzBargain/internal/dedup"
	"github.com/firsthalfhero/OzBargain/internal/domain"
	"github.com/firsthalfhero/OzBargain/internal/filter"
	"github.com/firsthalfhero/OzBargain/internal/infrastructure/feed"
	"github.com/firsthalfhero/OzBargain/internal/infrastructure/llm"
	"github.com/firsthalfhero/OzBargain/internal/infrastructure/telegram"
	"github.com/firsthalfhero/OzBargain/internal/logging"
	"github.com/firsthalfhero/OzBargain/internal/normalizer"
	"github.com/firsthalfhero/OzBargain/internal/ports"
	"github.com/firsthalfhero/OzBargain/internal/usecase"
)

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg     config.Config
	logger  *slog.Logger
	store   ports.SeenStore
	monitor *feed.Monitor
}

// New builds a runnable application instance.
func New(cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	store, err := newStore(cfg.Store, baseLogger.With("component", "store"))
	if err != nil {
		return nil, err
	}

	evaluator, err := llm.NewEvaluator(cfg.LLM)
	if err != nil {
		return nil, fmt.Errorf("build relevance evaluator: %w", err)
	}
	if evaluator == nil {
		baseLogger.Info("relevance model disabled, keyword fallback only")
	}

	dispatcher := newDispatcher(cfg.Telegram, baseLogger)

	engine := filter.New(
		store,
		evaluator,
		authenticity.NewScorer(cfg.Scoring.MinVotesThreshold, cfg.Scoring.MinCommentsThreshold),
		filter.Config{
			MaxPrice:              cfg.Filter.MaxPrice,
			MinDiscountPercentage: cfg.Filter.MinDiscountPercentage,
			MinAuthenticityScore:  cfg.Filter.MinAuthenticityScore,
			ExpirationPatterns:    cfg.Filter.ExpirationPatterns,
			Keywords:              cfg.Relevance.Keywords,
			FallbackDefaultPass:   cfg.Relevance.FallbackDefaultPass,
			EvaluateTimeout:       cfg.Relevance.EvaluateTimeout.Std(),
		},
		baseLogger.With("component", "filter"),
	)

	pipeline := usecase.NewPipeline(normalizer.New(), engine, dispatcher, baseLogger.With("component", "pipeline"))

	monitor := feed.NewMonitor(
		cfg.Feeds.URLs,
		pipeline,
		cfg.Feeds.PollInterval.Std(),
		cfg.Feeds.FetchTimeout.Std(),
		baseLogger.With("component", "monitor"),
	)

	return &Application{cfg: cfg, logger: baseLogger, store: store, monitor: monitor}, nil
}

// Run polls feeds until ctx is cancelled, then flushes the seen-store.
func (a *Application) Run(ctx context.Context) error {
	a.monitor.Start(ctx)

	if err := a.store.Close(); err != nil {
		return fmt.Errorf("close seen-store: %w", err)
	}
	return nil
}

func newStore(cfg config.StoreConfig, logger *slog.Logger) (ports.SeenStore, error) {
	switch cfg.Backend {
	case "postgres":
		store, err := dedup.OpenPostgresStore(cfg.DSN, cfg.MaxAge.Std(), cfg.Retention.Std(), logger)
		if err != nil {
			return nil, fmt.Errorf("open postgres seen-store: %w", err)
		}
		return store, nil
	default:
		return dedup.NewFileStore(cfg.Path, cfg.MaxAge.Std(), cfg.Retention.Std(), logger), nil
	}
}

func newDispatcher(cfg config.TelegramConfig, logger *slog.Logger) ports.AlertDispatcher {
	if cfg.BotToken != "" && cfg.ChatID != "" {
		return telegram.NewNotifier(cfg.BotToken, cfg.ChatID, logger.With("component", "telegram"))
	}
	logger.Info("telegram not configured, alerts go to the log")
	return logDispatcher{logger: logger.With("component", "alerts")}
}

// logDispatcher is the fallback delivery channel when no Telegram chat is
// configured.
type logDispatcher struct {
	logger *slog.Logger
}

func (d logDispatcher) Dispatch(_ context.Context, deal domain.Deal, result domain.FilterResult) error {
	d.logger.Info("deal alert",
		"identity_key", deal.IdentityKey,
		"title", deal.Title,
		"url", deal.URL,
		"urgency", result.Urgency,
		"authenticity", result.AuthenticityScore)
	return nil
}
