package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/firsthalfhero/OzBargain/internal/config"
	"github.com/firsthalfhero/OzBargain/internal/domain"
)

func chatServer(t *testing.T, reply string, status int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method %s", r.Method)
		}
		w.WriteHeader(status)
		if status == http.StatusOK {
			_ = json.NewEncoder(w).Encode(map[string]any{
				"choices": []map[string]any{
					{"message": map[string]string{"role": "assistant", "content": reply}},
				},
			})
		}
	}))
}

func localEvaluator(t *testing.T, endpoint string) *Evaluator {
	t.Helper()
	eval, err := NewEvaluator(config.LLMConfig{
		Provider: "local",
		Endpoint: endpoint,
		Model:    "llama3",
	})
	if err != nil {
		t.Fatalf("new evaluator: %v", err)
	}
	return eval.(*Evaluator)
}

func TestEvaluateParsesVerdict(t *testing.T) {
	t.Parallel()

	srv := chatServer(t, `{"relevant": true, "confidence": 0.85, "reasoning": "matches laptop interest"}`, http.StatusOK)
	defer srv.Close()

	judgment, err := localEvaluator(t, srv.URL).Evaluate(context.Background(), domain.Deal{Title: "gaming laptop"})
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if !judgment.IsRelevant || judgment.Confidence != 0.85 {
		t.Fatalf("unexpected judgment: %+v", judgment)
	}
}

func TestEvaluateToleratesCodeFences(t *testing.T) {
	t.Parallel()

	srv := chatServer(t, "```json\n{\"relevant\": false, \"confidence\": 0.6, \"reasoning\": \"off topic\"}\n```", http.StatusOK)
	defer srv.Close()

	judgment, err := localEvaluator(t, srv.URL).Evaluate(context.Background(), domain.Deal{Title: "garden gnome"})
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if judgment.IsRelevant {
		t.Fatalf("expected not relevant, got %+v", judgment)
	}
}

func TestEvaluateFailuresAreUnavailable(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		reply  string
		status int
	}{
		{"server error", "", http.StatusInternalServerError},
		{"garbage verdict", "certainly! here is my answer", http.StatusOK},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			srv := chatServer(t, tc.reply, tc.status)
			defer srv.Close()

			_, err := localEvaluator(t, srv.URL).Evaluate(context.Background(), domain.Deal{Title: "x"})
			if !errors.Is(err, domain.ErrRelevanceUnavailable) {
				t.Fatalf("expected ErrRelevanceUnavailable, got %v", err)
			}
		})
	}
}

func TestNewEvaluatorProviders(t *testing.T) {
	t.Parallel()

	if eval, err := NewEvaluator(config.LLMConfig{Provider: "none"}); err != nil || eval != nil {
		t.Fatalf("none provider should yield nil evaluator, got %v, %v", eval, err)
	}

	if _, err := NewEvaluator(config.LLMConfig{Provider: "openai"}); err == nil {
		t.Fatal("openai provider without api key should fail")
	}

	if _, err := NewEvaluator(config.LLMConfig{Provider: "openai", APIKey: "sk-test", Endpoint: "https://x", Model: "m"}); err != nil {
		t.Fatalf("configured openai provider should build: %v", err)
	}
}
