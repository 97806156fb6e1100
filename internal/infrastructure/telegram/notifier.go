// Package telegram delivers deal alerts to a Telegram chat via the bot API.
package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/firsthalfhero/OzBargain/internal/domain"
	"github.com/firsthalfhero/OzBargain/internal/ports"
)

// Notifier sends one message per passing deal. Each alert carries a generated
// id so delivery failures can be correlated in the logs.
type Notifier struct {
	botToken string
	chatID   string
	client   *http.Client
	logger   *slog.Logger
}

var _ ports.AlertDispatcher = (*Notifier)(nil)

// NewNotifier registers bot token and chat identifier.
func NewNotifier(botToken, chatID string, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{
		botToken: botToken,
		chatID:   chatID,
		client:   &http.Client{Timeout: 5 * time.Second},
		logger:   logger,
	}
}

// Dispatch posts a Markdown alert to Telegram.
func (n *Notifier) Dispatch(ctx context.Context, deal domain.Deal, result domain.FilterResult) error {
	if n.botToken == "" || n.chatID == "" {
		return fmt.Errorf("telegram notifier misconfigured")
	}

	alertID := uuid.NewString()

	endpoint := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", n.botToken)
	form := url.Values{}
	form.Set("chat_id", n.chatID)
	form.Set("text", formatAlert(deal, result))
	form.Set("parse_mode", "Markdown")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send alert %s: %w", alertID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("send alert %s: telegram error: %s", alertID, resp.Status)
	}

	n.logger.Info("alert delivered",
		"alert_id", alertID,
		"identity_key", deal.IdentityKey,
		"urgency", result.Urgency)
	return nil
}

func formatAlert(deal domain.Deal, result domain.FilterResult) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s *%s*\n", urgencyTag(result.Urgency), deal.Title)
	if deal.Price != nil {
		fmt.Fprintf(&b, "Price: $%.2f", *deal.Price)
		if deal.OriginalPrice != nil {
			fmt.Fprintf(&b, " (was $%.2f)", *deal.OriginalPrice)
		}
		b.WriteString("\n")
	}
	if deal.DiscountPercentage != nil {
		fmt.Fprintf(&b, "Discount: %.0f%%\n", *deal.DiscountPercentage)
	}
	fmt.Fprintf(&b, "Authenticity: %.2f\n", result.AuthenticityScore)
	if deal.URL != "" {
		fmt.Fprintf(&b, "%s\n", deal.URL)
	}

	return b.String()
}

func urgencyTag(level domain.UrgencyLevel) string {
	switch level {
	case domain.UrgencyCritical:
		return "🔴"
	case domain.UrgencyHigh:
		return "🟠"
	case domain.UrgencyMedium:
		return "🟡"
	}
	return "🟢"
}
