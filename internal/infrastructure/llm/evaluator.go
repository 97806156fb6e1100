// Package llm implements the relevance evaluator backed by chat-completion
// APIs (OpenAI-compatible hosted models or a local Ollama-style endpoint).
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/firsthalfhero/OzBargain/internal/config"
	"github.com/firsthalfhero/OzBargain/internal/domain"
	"github.com/firsthalfhero/OzBargain/internal/ports"
)

// Evaluator asks a chat model whether a deal is relevant. Every failure mode
// is reported as domain.ErrRelevanceUnavailable so the filter engine can drop
// to its keyword fallback.
type Evaluator struct {
	endpoint     string
	model        string
	apiKey       string
	systemPrompt string
	httpClient   *http.Client
}

var _ ports.RelevanceEvaluator = (*Evaluator)(nil)

// NewEvaluator builds an evaluator for the configured provider. The "none"
// provider returns nil, which the engine treats as permanent fallback mode.
func NewEvaluator(cfg config.LLMConfig) (ports.RelevanceEvaluator, error) {
	switch cfg.Provider {
	case "none":
		return nil, nil
	case "openai":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("llm provider %q requires an api key", cfg.Provider)
		}
	case "local":
		// Local endpoints need no key.
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}

	return &Evaluator{
		endpoint:     cfg.Endpoint,
		model:        cfg.Model,
		apiKey:       cfg.APIKey,
		systemPrompt: cfg.SystemPrompt,
		httpClient: &http.Client{
			Timeout: 20 * time.Second,
		},
	}, nil
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// judgmentPayload is what the model is instructed to answer with.
type judgmentPayload struct {
	Relevant   bool    `json:"relevant"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
}

// Evaluate posts the deal summary as a user message and parses the model's
// JSON verdict.
func (e *Evaluator) Evaluate(ctx context.Context, deal domain.Deal) (domain.Judgment, error) {
	if e == nil || e.endpoint == "" || e.model == "" {
		return domain.Judgment{}, fmt.Errorf("%w: evaluator misconfigured", domain.ErrRelevanceUnavailable)
	}

	body, err := json.Marshal(chatRequest{
		Model: e.model,
		Messages: []chatMessage{
			{Role: "system", Content: e.systemPrompt},
			{Role: "user", Content: dealSummary(deal)},
		},
	})
	if err != nil {
		return domain.Judgment{}, fmt.Errorf("%w: marshal request: %v", domain.ErrRelevanceUnavailable, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint, bytes.NewReader(body))
	if err != nil {
		return domain.Judgment{}, fmt.Errorf("%w: new request: %v", domain.ErrRelevanceUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if e.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.apiKey)
	}

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return domain.Judgment{}, fmt.Errorf("%w: %v", domain.ErrRelevanceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return domain.Judgment{}, fmt.Errorf("%w: %s: %s",
			domain.ErrRelevanceUnavailable, resp.Status, strings.TrimSpace(string(detail)))
	}

	var chat chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chat); err != nil {
		return domain.Judgment{}, fmt.Errorf("%w: decode response: %v", domain.ErrRelevanceUnavailable, err)
	}
	if len(chat.Choices) == 0 {
		return domain.Judgment{}, fmt.Errorf("%w: empty response", domain.ErrRelevanceUnavailable)
	}

	return parseJudgment(chat.Choices[0].Message.Content)
}

// parseJudgment extracts the JSON verdict from the model's reply, tolerating
// markdown code fences around it.
func parseJudgment(content string) (domain.Judgment, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)

	var payload judgmentPayload
	if err := json.Unmarshal([]byte(content), &payload); err != nil {
		return domain.Judgment{}, fmt.Errorf("%w: unparseable verdict: %v", domain.ErrRelevanceUnavailable, err)
	}

	return domain.Judgment{
		IsRelevant: payload.Relevant,
		Confidence: payload.Confidence,
		Reasoning:  payload.Reasoning,
	}, nil
}

// dealSummary renders the fields the model needs to judge relevance.
func dealSummary(deal domain.Deal) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Title: %s\n", deal.Title)
	if deal.Description != "" {
		fmt.Fprintf(&b, "Description: %s\n", deal.Description)
	}
	if deal.Category != "" {
		fmt.Fprintf(&b, "Category: %s\n", deal.Category)
	}
	if deal.Price != nil {
		fmt.Fprintf(&b, "Price: $%.2f\n", *deal.Price)
	}
	if deal.DiscountPercentage != nil {
		fmt.Fprintf(&b, "Discount: %.0f%%\n", *deal.DiscountPercentage)
	}
	return b.String()
}
