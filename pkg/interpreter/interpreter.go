package interpreter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/shunichi-ikebuchi/paylog/pkg/analytics"
	"github.com/shunichi-ikebuchi/paylog/pkg/ledger"
)

// Replies used when no provider answers.
const (
	FallbackQuery    = "I couldn't analyze that query. Try asking about specific spending categories or time periods."
	FallbackInsights = "Unable to generate insights. Your spending appears normal."
	FallbackAdvice   = "Keep tracking your expenses and try to save at least 20% of your income!"
	FallbackCuts     = "Consider reducing discretionary spending on entertainment and dining out."
	FallbackLending  = "Unable to analyze lending patterns at the moment."
	NoLendingData    = "No lending data available to analyze."
)

// Interpreter asks the configured providers in order and falls back to the
// keyword table.
type Interpreter struct {
	clients  []completer
	limiter  *rate.Limiter
	timeout  time.Duration
	keywords *KeywordTable
}

// New builds an Interpreter. A config without keys is valid; every call
// then uses the offline parser or the fixed fallback replies.
func New(cfg Config) (*Interpreter, error) {
	switch cfg.Primary {
	case "", ProviderGoogle, ProviderGroq, ProviderOpenRouter:
	default:
		return nil, fmt.Errorf("unknown provider %q (expected google, groq or openrouter)", cfg.Primary)
	}

	if cfg.MinInterval == 0 {
		cfg.MinInterval = DefaultMinInterval
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	keywords := cfg.Keywords
	if keywords == nil {
		keywords = DefaultKeywords()
	}

	limit := rate.Inf
	if cfg.MinInterval > 0 {
		limit = rate.Every(cfg.MinInterval)
	}

	in := &Interpreter{
		limiter:  rate.NewLimiter(limit, 1),
		timeout:  cfg.Timeout,
		keywords: keywords,
	}

	for _, p := range cfg.order() {
		switch p {
		case ProviderGoogle:
			in.clients = append(in.clients, &googleClient{
				httpClient: httpClient,
				baseURL:    orDefault(cfg.GoogleURL, DefaultGoogleURL),
				apiKey:     cfg.GoogleAPIKey,
			})
		case ProviderGroq:
			in.clients = append(in.clients, &chatClient{
				name:       ProviderGroq,
				httpClient: httpClient,
				baseURL:    orDefault(cfg.GroqURL, DefaultGroqURL),
				apiKey:     cfg.GroqAPIKey,
				model:      DefaultGroqModel,
			})
		case ProviderOpenRouter:
			in.clients = append(in.clients, &chatClient{
				name:       ProviderOpenRouter,
				httpClient: httpClient,
				baseURL:    orDefault(cfg.OpenRouterURL, DefaultOpenRouterURL),
				apiKey:     cfg.OpenRouterAPIKey,
				model:      DefaultOpenRouterModel,
				headers: map[string]string{
					"HTTP-Referer": "https://github.com/paylog-ai",
					"X-Title":      "PayLog AI",
				},
			})
		}
	}

	if len(in.clients) > 0 {
		slog.Info("Interpreter initialized", "provider", in.clients[0].provider(), "providers", len(in.clients))
	} else {
		slog.Info("Interpreter initialized without providers, using offline parser")
	}
	return in, nil
}

// Providers returns the providers in the order they are tried.
func (in *Interpreter) Providers() []Provider {
	out := make([]Provider, len(in.clients))
	for i, c := range in.clients {
		out[i] = c.provider()
	}
	return out
}

// Keywords returns the keyword table used by the offline parser.
func (in *Interpreter) Keywords() *KeywordTable {
	return in.keywords
}

// Complete sends prompt to each provider in turn until one returns a
// non-empty reply. A failed provider is not retried.
func (in *Interpreter) Complete(ctx context.Context, prompt string, temperature float64) (string, Provider, error) {
	for _, c := range in.clients {
		if err := in.limiter.Wait(ctx); err != nil {
			return "", "", fmt.Errorf("failed to wait for rate limiter: %w", err)
		}

		reply, err := in.call(ctx, c, prompt, temperature)
		if err == nil && strings.TrimSpace(reply) != "" {
			return reply, c.provider(), nil
		}
		if err == nil {
			err = &ProviderError{Code: CodeBadResponse, Provider: c.provider(), Message: "empty reply"}
		}

		var pe *ProviderError
		if errors.As(err, &pe) && pe.Code == CodeRateLimited {
			slog.Warn("Provider rate limit hit", "provider", c.provider())
		} else {
			slog.Warn("Provider failed, trying next", "provider", c.provider(), "error", err)
		}
		if ctx.Err() != nil {
			return "", "", ctx.Err()
		}
	}

	if len(in.clients) > 0 {
		slog.Warn("All providers failed")
	}
	return "", "", ErrInterpreterUnavailable
}

func (in *Interpreter) call(ctx context.Context, c completer, prompt string, temperature float64) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, in.timeout)
	defer cancel()
	return c.complete(ctx, prompt, temperature)
}

// Parse reads a transaction from text. It never fails: without a usable
// model reply the offline parser answers.
func (in *Interpreter) Parse(ctx context.Context, text string, uc Context) Parsed {
	reply, provider, err := in.Complete(ctx, parsePrompt(text, uc), 0.2)
	if err != nil {
		return in.keywords.Parse(text)
	}

	p, err := decodeParsed(reply)
	if err != nil {
		slog.Debug("Model reply was not a transaction, using offline parser", "provider", provider, "error", err)
		return in.keywords.Parse(text)
	}
	p.Provider = provider
	return p
}

func parsePrompt(text string, uc Context) string {
	return fmt.Sprintf(`You are a Parser Agent for an expense tracking bot. Parse this transaction and extract structured data.

Transaction text: '%s'
%s

CONTEXT-AWARE RULES:
- "same place" or "same shop" → use the last merchant from context
- "usual amount" or "regular" → infer from user's typical spending in that category
- "morning coffee" or similar shortcuts → recognize as food category, ~₹50-100
- Relative dates: "yesterday", "last week", "2 days ago" → calculate actual date

Extract:
1. amount (numeric, if "usual amount" use category average from context)
2. category (groceries, food, transport, shopping, bills, entertainment, fuel, health, lending, income, transfer, other)
3. description (what was bought/paid for)
4. merchant (store/place name, use context if "same place")
5. time_reference (today, yesterday, X days ago, specific date)
6. transaction_type (expense, income, lend, borrow, transfer)
7. wallet_type (wallet, total, or infer from context)

Return ONLY a JSON object with these keys: amount, category, description, merchant, time_reference, transaction_type, wallet_type
Use empty string for missing values.

Example: {"amount": "500", "category": "groceries", "description": "weekly groceries", "merchant": "DMart", "time_reference": "today", "transaction_type": "expense", "wallet_type": "wallet"}`,
		text, uc.prompt())
}

// completeOr returns the model reply or fallback.
func (in *Interpreter) completeOr(ctx context.Context, prompt string, temperature float64, fallback string) string {
	reply, _, err := in.Complete(ctx, prompt, temperature)
	if err != nil {
		return fallback
	}
	return reply
}

// QueryContext is account state included with a question.
type QueryContext struct {
	TotalBalance  float64
	WalletBalance float64
	Budget        float64
	Goals         []string
}

// AnswerQuery answers a question about the ledger.
func (in *Interpreter) AnswerQuery(ctx context.Context, query string, txns []ledger.Transaction, qc QueryContext) string {
	recent := txns
	if len(recent) > 50 {
		recent = recent[len(recent)-50:]
	}
	lines := make([]string, 0, len(recent))
	for _, t := range recent {
		lines = append(lines, fmt.Sprintf("%s: %s ₹%s - %s (%s)",
			t.Date.Format(ledger.DateLayout), t.Type, t.Amount.String(), t.Description, t.CategoryOrOther()))
	}

	var expenses, income float64
	byCategory := make(map[string]float64)
	for _, t := range txns {
		switch {
		case t.IsDebit():
			expenses += t.Amount.InexactFloat64()
			byCategory[t.CategoryOrOther()] += t.Amount.InexactFloat64()
		case t.IsCredit():
			income += t.Amount.InexactFloat64()
		}
	}

	prompt := fmt.Sprintf(`You are a Query Agent for personal finance. Answer the user's question based on their financial data.

User Question: "%s"

Recent Transactions (last 50):
%s

Summary Stats:
- Total Expenses: %s
- Total Income: %s
- Category Breakdown: %s

User Context:
- Total Balance: %s
- Wallet Balance: %s
- Monthly Budget: %s
- Goals: %s

Rules:
1. Answer conversationally and helpfully
2. Use specific numbers from their data
3. If comparing periods, calculate accurately
4. Provide actionable insights when relevant
5. Use ₹ symbol for amounts
6. Keep response concise (under 150 words)

If the question cannot be answered from the data, say so politely and suggest what data is needed.`,
		query,
		strings.Join(lines, "\n"),
		analytics.Rupees(expenses),
		analytics.Rupees(income),
		formatTotals(byCategory),
		analytics.Rupees(qc.TotalBalance),
		analytics.Rupees(qc.WalletBalance),
		analytics.Rupees(qc.Budget),
		strings.Join(qc.Goals, "; "),
	)
	return in.completeOr(ctx, prompt, 0.7, FallbackQuery)
}

// SpendingInsights summarizes a block of transaction lines for a period.
func (in *Interpreter) SpendingInsights(ctx context.Context, transactions, period string) string {
	prompt := fmt.Sprintf(`You are an Analyst Agent for personal finance. Analyze these transactions and provide actionable insights.

Period: %s
Transactions:
%s

Provide a concise analysis covering:
1. 📊 Spending patterns and trends
2. 📈 Category breakdown with percentages
3. ⚠️ Any concerning patterns or overspending
4. 💡 One specific actionable recommendation

Keep response under 200 words. Use ₹ symbol. Be conversational and helpful.`, period, transactions)
	return in.completeOr(ctx, prompt, 0.7, FallbackInsights)
}

// AdviceInput is the financial picture behind personal advice.
type AdviceInput struct {
	Income        float64
	Expenses      float64
	Savings       float64
	TopCategories []string
	Trend         string
	Goals         []string
}

// FinancialAdvice gives short personal advice.
func (in *Interpreter) FinancialAdvice(ctx context.Context, a AdviceInput) string {
	trend := a.Trend
	if trend == "" {
		trend = analytics.TrendStable
	}
	prompt := fmt.Sprintf(`You are a Financial Advisor Agent. Based on this user's financial data, provide personalized advice.

User Data:
- Monthly income: %s
- Monthly expenses: %s
- Current savings: %s
- Top spending categories: %s
- Spending trend: %s
- Financial goals: %s

Provide:
1. One specific praise for good behavior (if any)
2. One specific concern to address
3. One actionable tip to improve finances

Keep response conversational, under 150 words. Use ₹ symbol.`,
		analytics.Rupees(a.Income), analytics.Rupees(a.Expenses), analytics.Rupees(a.Savings),
		strings.Join(a.TopCategories, ", "), trend, strings.Join(a.Goals, "; "))
	return in.completeOr(ctx, prompt, 0.7, FallbackAdvice)
}

// BudgetCuts suggests where to spend less.
func (in *Interpreter) BudgetCuts(ctx context.Context, categoryTotals map[string]float64, targetSavings float64) string {
	var lines []string
	for _, ct := range sortedTotals(categoryTotals) {
		lines = append(lines, fmt.Sprintf("- %s: %s", ct.Category, analytics.Rupees(ct.Amount)))
	}
	prompt := fmt.Sprintf(`You are a Budget Advisor. Suggest specific cuts based on this spending:

Category breakdown (monthly):
%s

Target savings: %s (if 0, suggest general improvements)

Provide 2-3 specific, actionable suggestions to reduce spending. Be realistic.
Example: "Cut ₹2000 from dining out by cooking 3 more meals at home per week"

Keep response under 100 words. Use ₹ symbol.`, strings.Join(lines, "\n"), analytics.Rupees(targetSavings))
	return in.completeOr(ctx, prompt, 0.7, FallbackCuts)
}

// LendingInsights comments on a block of lending lines.
func (in *Interpreter) LendingInsights(ctx context.Context, lending string) string {
	if strings.TrimSpace(lending) == "" {
		return NoLendingData
	}
	prompt := fmt.Sprintf(`Analyze these lending records and provide insights:

%s

Provide:
1. Pattern observation (who borrows most, frequency)
2. Risk assessment (long outstanding loans)
3. One recommendation for better lending management

Keep response under 100 words. Be helpful and conversational.`, lending)
	return in.completeOr(ctx, prompt, 0.7, FallbackLending)
}

// SuggestCategory guesses a category from past patterns, or from keywords
// when there are none or no provider answers.
func (in *Interpreter) SuggestCategory(ctx context.Context, description string, amount float64, patterns []FrequentTransaction) string {
	if len(patterns) == 0 {
		return in.keywords.Category(description)
	}
	if len(patterns) > 10 {
		patterns = patterns[:10]
	}
	lines := make([]string, len(patterns))
	for i, p := range patterns {
		lines[i] = fmt.Sprintf("- %s: %s", p.Description, p.Category)
	}

	prompt := fmt.Sprintf(`Based on these past transactions, suggest the most likely category:

Past patterns:
%s

New transaction:
Description: %s
Amount: ₹%v

Return ONLY the category name (groceries, food, transport, shopping, bills, entertainment, fuel, health, other)`,
		strings.Join(lines, "\n"), description, amount)

	reply, _, err := in.Complete(ctx, prompt, 0.3)
	if err != nil {
		return in.keywords.Category(description)
	}
	return strings.ToLower(strings.TrimSpace(reply))
}

func sortedTotals(totals map[string]float64) []analytics.CategoryAmount {
	out := make([]analytics.CategoryAmount, 0, len(totals))
	for cat, amt := range totals {
		out = append(out, analytics.CategoryAmount{Category: cat, Amount: amt})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Amount != out[j].Amount {
			return out[i].Amount > out[j].Amount
		}
		return out[i].Category < out[j].Category
	})
	return out
}

func formatTotals(totals map[string]float64) string {
	parts := make([]string, 0, len(totals))
	for _, ct := range sortedTotals(totals) {
		parts = append(parts, fmt.Sprintf("%s: %s", ct.Category, analytics.Rupees(ct.Amount)))
	}
	return strings.Join(parts, ", ")
}
