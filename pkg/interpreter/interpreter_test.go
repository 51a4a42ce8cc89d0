package interpreter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shunichi-ikebuchi/paylog/pkg/ledger"
)

const transactionJSON = `{"amount": "450", "category": "food", "description": "pizza", "merchant": "Dominos", "time_reference": "yesterday", "transaction_type": "expense", "wallet_type": "wallet"}`

// fakeProvider counts calls and answers with handler.
type fakeProvider struct {
	*httptest.Server
	calls atomic.Int32
}

func newFakeProvider(t *testing.T, handler http.HandlerFunc) *fakeProvider {
	t.Helper()
	f := &fakeProvider{}
	f.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.calls.Add(1)
		handler(w, r)
	}))
	t.Cleanup(f.Close)
	return f
}

func geminiReply(text string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"candidates": []any{
				map[string]any{"content": map[string]any{"parts": []any{map[string]any{"text": text}}}},
			},
		})
	}
}

func chatReply(text string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []any{map[string]any{"message": map[string]any{"role": "assistant", "content": text}}},
		})
	}
}

func status(code int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(code), code)
	}
}

func newTestInterpreter(t *testing.T, cfg Config) *Interpreter {
	t.Helper()
	if cfg.MinInterval == 0 {
		cfg.MinInterval = -1
	}
	in, err := New(cfg)
	require.NoError(t, err)
	return in
}

func TestConfigOrder(t *testing.T) {
	all := Config{GoogleAPIKey: "g", GroqAPIKey: "q", OpenRouterAPIKey: "o"}

	tests := []struct {
		name string
		cfg  Config
		want []Provider
	}{
		{"google primary", withPrimary(all, ProviderGoogle), []Provider{ProviderGoogle, ProviderGroq, ProviderOpenRouter}},
		{"groq primary", withPrimary(all, ProviderGroq), []Provider{ProviderGroq, ProviderGoogle, ProviderOpenRouter}},
		{"openrouter primary", withPrimary(all, ProviderOpenRouter), []Provider{ProviderOpenRouter, ProviderGoogle, ProviderGroq}},
		{"no primary picks first key", Config{GroqAPIKey: "q", OpenRouterAPIKey: "o"}, []Provider{ProviderGroq, ProviderOpenRouter}},
		{"primary without key", Config{Primary: ProviderGoogle, OpenRouterAPIKey: "o"}, []Provider{ProviderOpenRouter}},
		{"keys only", Config{Primary: ProviderGroq, GoogleAPIKey: "g"}, []Provider{ProviderGoogle}},
		{"no keys", Config{Primary: ProviderGoogle}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.cfg.order())
		})
	}
}

func withPrimary(c Config, p Provider) Config {
	c.Primary = p
	return c
}

func TestNewRejectsUnknownProvider(t *testing.T) {
	_, err := New(Config{Primary: "anthropic"})
	assert.ErrorContains(t, err, "unknown provider")
}

func TestParseWithGoogle(t *testing.T) {
	var got geminiRequest
	google := newFakeProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "secret", r.URL.Query().Get("key"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		geminiReply("```json\n"+transactionJSON+"\n```")(w, r)
	})

	in := newTestInterpreter(t, Config{GoogleAPIKey: "secret", GoogleURL: google.URL})

	p := in.Parse(context.Background(), "pizza 450 yesterday at dominos", Context{
		LastMerchant: "DMart",
		UsualAmounts: map[string]float64{"food": 300},
	})

	assert.Equal(t, ProviderGoogle, p.Provider)
	assert.False(t, p.Fallback())
	assert.Equal(t, "450", p.Amount)
	assert.Equal(t, "Dominos", p.Merchant)
	assert.Equal(t, "yesterday", p.TimeReference)

	assert.InDelta(t, 0.2, got.GenerationConfig.Temperature, 1e-9)
	assert.Equal(t, 2048, got.GenerationConfig.MaxOutputTokens)
	require.Len(t, got.Contents, 1)
	prompt := got.Contents[0].Parts[0].Text
	assert.Contains(t, prompt, "Transaction text: 'pizza 450 yesterday at dominos'")
	assert.Contains(t, prompt, "User's last merchant: DMart")
	assert.Contains(t, prompt, `User's usual amounts by category: {"food":300}`)
}

func TestParseFallsThroughProviders(t *testing.T) {
	google := newFakeProvider(t, status(http.StatusInternalServerError))
	groq := newFakeProvider(t, status(http.StatusTooManyRequests))
	openrouter := newFakeProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer or-key", r.Header.Get("Authorization"))
		assert.Equal(t, "https://github.com/paylog-ai", r.Header.Get("HTTP-Referer"))
		assert.Equal(t, "PayLog AI", r.Header.Get("X-Title"))

		var req chatRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, DefaultOpenRouterModel, req.Model)
		if assert.Len(t, req.Messages, 1) {
			assert.Equal(t, "user", req.Messages[0].Role)
		}

		chatReply(transactionJSON)(w, r)
	})

	in := newTestInterpreter(t, Config{
		Primary:          ProviderGoogle,
		GoogleAPIKey:     "g-key",
		GroqAPIKey:       "q-key",
		OpenRouterAPIKey: "or-key",
		GoogleURL:        google.URL,
		GroqURL:          groq.URL,
		OpenRouterURL:    openrouter.URL,
	})

	p := in.Parse(context.Background(), "pizza 450", Context{})
	assert.Equal(t, ProviderOpenRouter, p.Provider)
	assert.Equal(t, "pizza", p.Description)

	assert.EqualValues(t, 1, google.calls.Load())
	assert.EqualValues(t, 1, groq.calls.Load())
	assert.EqualValues(t, 1, openrouter.calls.Load())
}

func TestParseFallsBackOnUnusableReply(t *testing.T) {
	groq := newFakeProvider(t, chatReply("Sorry, I can't help with that."))

	in := newTestInterpreter(t, Config{GroqAPIKey: "q", GroqURL: groq.URL})

	p := in.Parse(context.Background(), "Spent 300 on petrol", Context{})
	assert.True(t, p.Fallback())
	assert.Equal(t, "300", p.Amount)
	assert.Equal(t, "fuel", p.Category)
}

func TestParseWithoutProviders(t *testing.T) {
	in := newTestInterpreter(t, Config{})
	assert.Empty(t, in.Providers())

	p := in.Parse(context.Background(), "uber 180", Context{})
	assert.True(t, p.Fallback())
	assert.Equal(t, "transport", p.Category)
}

func TestCompleteUnavailable(t *testing.T) {
	groq := newFakeProvider(t, chatReply("   "))
	in := newTestInterpreter(t, Config{GroqAPIKey: "q", GroqURL: groq.URL})

	_, _, err := in.Complete(context.Background(), "hi", 0.7)
	assert.ErrorIs(t, err, ErrInterpreterUnavailable)
	assert.EqualValues(t, 1, groq.calls.Load())
}

func TestCompleteTimeoutMovesOn(t *testing.T) {
	slow := newFakeProvider(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})
	fast := newFakeProvider(t, chatReply("ok"))

	in := newTestInterpreter(t, Config{
		Primary:      ProviderGoogle,
		GoogleURL:    slow.URL,
		GroqURL:      fast.URL,
		Timeout:      50 * time.Millisecond,
		GoogleAPIKey: "g",
		GroqAPIKey:   "q",
	})

	reply, provider, err := in.Complete(context.Background(), "hi", 0.7)
	require.NoError(t, err)
	assert.Equal(t, "ok", reply)
	assert.Equal(t, ProviderGroq, provider)
}

func TestCompleteSpacesCalls(t *testing.T) {
	groq := newFakeProvider(t, chatReply("ok"))
	in := newTestInterpreter(t, Config{GroqAPIKey: "q", GroqURL: groq.URL, MinInterval: 40 * time.Millisecond})

	start := time.Now()
	for range 3 {
		_, _, err := in.Complete(context.Background(), "hi", 0.7)
		require.NoError(t, err)
	}
	assert.GreaterOrEqual(t, time.Since(start), 80*time.Millisecond)
}

func TestCompleteCancelled(t *testing.T) {
	groq := newFakeProvider(t, chatReply("ok"))
	in := newTestInterpreter(t, Config{GroqAPIKey: "q", GroqURL: groq.URL})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := in.Complete(ctx, "hi", 0.7)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestProviderErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		code    ProviderErrorCode
		status  int
	}{
		{"rate limited", status(http.StatusTooManyRequests), CodeRateLimited, http.StatusTooManyRequests},
		{"server error", status(http.StatusBadGateway), CodeUnavailable, http.StatusBadGateway},
		{"bad json", func(w http.ResponseWriter, r *http.Request) { fmt.Fprint(w, "<html>") }, CodeBadResponse, http.StatusOK},
		{"no choices", func(w http.ResponseWriter, r *http.Request) { fmt.Fprint(w, `{"choices": []}`) }, CodeBadResponse, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newFakeProvider(t, tt.handler)
			c := &chatClient{name: ProviderGroq, httpClient: srv.Client(), baseURL: srv.URL, apiKey: "k", model: DefaultGroqModel}

			_, err := c.complete(context.Background(), "hi", 0.7)
			var pe *ProviderError
			require.True(t, errors.As(err, &pe), "got %v", err)
			assert.Equal(t, tt.code, pe.Code)
			assert.Equal(t, tt.status, pe.Status)
			assert.Equal(t, ProviderGroq, pe.Provider)
			assert.Contains(t, pe.Error(), string(tt.code))
		})
	}
}

func TestTextFallbacks(t *testing.T) {
	in := newTestInterpreter(t, Config{})
	ctx := context.Background()

	txns := []ledger.Transaction{{Type: ledger.KindSubtract, Amount: decimal.NewFromInt(100), Category: "food"}}

	assert.Equal(t, FallbackQuery, in.AnswerQuery(ctx, "how much on food?", txns, QueryContext{}))
	assert.Equal(t, FallbackInsights, in.SpendingInsights(ctx, "01/03/2026: ₹100 food", "month"))
	assert.Equal(t, FallbackAdvice, in.FinancialAdvice(ctx, AdviceInput{}))
	assert.Equal(t, FallbackCuts, in.BudgetCuts(ctx, map[string]float64{"food": 100}, 0))
	assert.Equal(t, FallbackLending, in.LendingInsights(ctx, "Ravi: ₹500 (lent)"))
	assert.Equal(t, NoLendingData, in.LendingInsights(ctx, "  "))
	assert.Equal(t, "groceries", in.SuggestCategory(ctx, "dmart run", 800, nil))
	assert.Equal(t, "food", in.SuggestCategory(ctx, "team lunch", 800, []FrequentTransaction{{Description: "x", Category: "bills"}}))
}

func TestAnswerQueryPrompt(t *testing.T) {
	var prompt string
	groq := newFakeProvider(t, func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		if assert.NoError(t, json.NewDecoder(r.Body).Decode(&req)) && len(req.Messages) > 0 {
			prompt = req.Messages[0].Content
		}
		assert.InDelta(t, 0.7, req.Temperature, 1e-9)
		chatReply("You spent ₹1,100 on food.")(w, r)
	})
	in := newTestInterpreter(t, Config{GroqAPIKey: "q", GroqURL: groq.URL})

	day := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	txns := []ledger.Transaction{
		{Date: day, Type: ledger.KindSubtract, Amount: decimal.NewFromInt(1000), Description: "dinner", Category: "food"},
		{Date: day, Type: ledger.KindSubtract, Amount: decimal.NewFromInt(100), Description: "tea", Category: "food"},
		{Date: day, Type: ledger.KindAdd, Amount: decimal.NewFromInt(5000), Description: "salary", Category: "income"},
	}

	reply := in.AnswerQuery(context.Background(), "how much on food?", txns, QueryContext{TotalBalance: 20000, Goals: []string{"trip"}})
	assert.Equal(t, "You spent ₹1,100 on food.", reply)
	assert.Contains(t, prompt, `User Question: "how much on food?"`)
	assert.Contains(t, prompt, "01/03/2026: subtract ₹1000 - dinner (food)")
	assert.Contains(t, prompt, "- Total Expenses: ₹1,100")
	assert.Contains(t, prompt, "- Total Income: ₹5,000")
	assert.Contains(t, prompt, "- Category Breakdown: food: ₹1,100")
	assert.Contains(t, prompt, "- Total Balance: ₹20,000")
	assert.Contains(t, prompt, "- Goals: trip")
}
