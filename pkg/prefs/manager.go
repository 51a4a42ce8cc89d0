package prefs

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	historyLimit       = 200
	usualAmountWindow  = 20
	healthHistoryLimit = 30
	recentMerchants    = 5
	dateLayout         = "2006-01-02"
)

// Manager reads and mutates one user's document. Every mutating call
// persists the whole document before returning. A Manager is not safe for
// concurrent use.
type Manager struct {
	store  Store
	userID string
	doc    *Document
	now    func() time.Time
}

// Load returns the manager for userID, creating and saving a default
// document on first use.
func Load(ctx context.Context, store Store, userID string) (*Manager, error) {
	return LoadWithClock(ctx, store, userID, time.Now)
}

// LoadWithClock is Load with an explicit clock.
func LoadWithClock(ctx context.Context, store Store, userID string, now func() time.Time) (*Manager, error) {
	m := &Manager{store: store, userID: userID, now: now}

	doc, err := store.Load(ctx, userID)
	switch {
	case errors.Is(err, ErrNotFound):
		m.doc = Default()
		if err := m.save(ctx); err != nil {
			return nil, err
		}
	case err != nil:
		return nil, fmt.Errorf("failed to load preferences for %s: %w", userID, err)
	default:
		m.doc = doc
	}

	return m, nil
}

// UserID returns the owner of the document.
func (m *Manager) UserID() string {
	return m.userID
}

// Document returns the in-memory document. Callers must not modify it.
func (m *Manager) Document() *Document {
	return m.doc
}

func (m *Manager) save(ctx context.Context) error {
	if err := m.store.Save(ctx, m.userID, m.doc); err != nil {
		return fmt.Errorf("failed to save preferences for %s: %w", m.userID, err)
	}
	return nil
}

// ----------------------------------------------------------------------
// Aliases

// AddAlias maps a shortcut word to its expansion. Both are lower-cased.
func (m *Manager) AddAlias(ctx context.Context, shortcut, full string) error {
	m.doc.Aliases[strings.ToLower(shortcut)] = strings.ToLower(full)
	return m.save(ctx)
}

// Alias returns the expansion of a shortcut.
func (m *Manager) Alias(shortcut string) (string, bool) {
	full, ok := m.doc.Aliases[strings.ToLower(shortcut)]
	return full, ok
}

// Aliases returns a copy of every alias.
func (m *Manager) Aliases() map[string]string {
	return maps.Clone(m.doc.Aliases)
}

// RemoveAlias deletes a shortcut and reports whether it existed.
func (m *Manager) RemoveAlias(ctx context.Context, shortcut string) (bool, error) {
	key := strings.ToLower(shortcut)
	if _, ok := m.doc.Aliases[key]; !ok {
		return false, nil
	}
	delete(m.doc.Aliases, key)
	return true, m.save(ctx)
}

// ApplyAliases replaces whole-word shortcuts in text with their expansions
// in a single pass, so an expansion is never expanded again. Longer
// shortcuts win where two could match at the same position.
func (m *Manager) ApplyAliases(text string) string {
	if len(m.doc.Aliases) == 0 {
		return text
	}
	shortcuts := slices.SortedFunc(maps.Keys(m.doc.Aliases), func(a, b string) int {
		if n := len(b) - len(a); n != 0 {
			return n
		}
		return strings.Compare(a, b)
	})
	quoted := make([]string, len(shortcuts))
	for i, s := range shortcuts {
		quoted[i] = regexp.QuoteMeta(s)
	}
	re := regexp.MustCompile(`(?i)\b(?:` + strings.Join(quoted, "|") + `)\b`)
	return re.ReplaceAllStringFunc(text, func(match string) string {
		if full, ok := m.doc.Aliases[strings.ToLower(match)]; ok {
			return full
		}
		return match
	})
}

// ----------------------------------------------------------------------
// Budgets

// SetBudget sets the budget of a category for a period.
func (m *Manager) SetBudget(ctx context.Context, category string, amount float64, period string) error {
	if m.doc.Budgets[period] == nil {
		m.doc.Budgets[period] = map[string]float64{}
	}
	m.doc.Budgets[period][strings.ToLower(category)] = amount
	return m.save(ctx)
}

// Budget returns the budget of a category, or 0 when none is set.
func (m *Manager) Budget(category, period string) float64 {
	return m.doc.Budgets[period][strings.ToLower(category)]
}

// Budgets returns a copy of every budget of a period.
func (m *Manager) Budgets(period string) map[string]float64 {
	out := maps.Clone(m.doc.Budgets[period])
	if out == nil {
		out = map[string]float64{}
	}
	return out
}

// TotalBudget sums the budgets of a period.
func (m *Manager) TotalBudget(period string) float64 {
	var total float64
	for _, v := range m.doc.Budgets[period] {
		total += v
	}
	return total
}

// RemoveBudget deletes a category budget and reports whether it existed.
func (m *Manager) RemoveBudget(ctx context.Context, category, period string) (bool, error) {
	key := strings.ToLower(category)
	if _, ok := m.doc.Budgets[period][key]; !ok {
		return false, nil
	}
	delete(m.doc.Budgets[period], key)
	return true, m.save(ctx)
}

// SetSpendingLimit sets a legacy spending limit.
func (m *Manager) SetSpendingLimit(ctx context.Context, category string, limit float64, period string) error {
	m.doc.SpendingLimits[category] = SpendingLimit{Limit: limit, Period: period}
	return m.save(ctx)
}

// SpendingLimit returns a legacy spending limit.
func (m *Manager) SpendingLimit(category string) (SpendingLimit, bool) {
	limit, ok := m.doc.SpendingLimits[category]
	return limit, ok
}

// ----------------------------------------------------------------------
// Goals

// AddGoal creates a goal and returns its ID. IDs are time-ordered.
func (m *Manager) AddGoal(ctx context.Context, goalType string, target float64, description, deadline string, current float64) (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("failed to generate goal id: %w", err)
	}

	goal := Goal{
		ID:          "goal_" + id.String(),
		Type:        goalType,
		Target:      target,
		Current:     current,
		Description: description,
		Deadline:    deadline,
		Created:     m.now().Format(dateLayout),
		Milestones:  []Milestone{},
		Notes:       []string{},
	}

	m.doc.Goals = append(m.doc.Goals, goal)
	if err := m.save(ctx); err != nil {
		return "", err
	}
	return goal.ID, nil
}

// UpdateGoalProgress sets a goal's current value and completes it once
// the target is reached.
func (m *Manager) UpdateGoalProgress(ctx context.Context, id string, current float64) (bool, error) {
	goal := m.goal(id)
	if goal == nil {
		return false, nil
	}

	goal.Current = current
	if !goal.Completed && current >= goal.Target {
		goal.Completed = true
		goal.CompletedDate = m.now().Format(dateLayout)
	}
	return true, m.save(ctx)
}

// ActiveGoals returns the goals not yet completed.
func (m *Manager) ActiveGoals() []Goal {
	var active []Goal
	for _, g := range m.doc.Goals {
		if !g.Completed {
			active = append(active, g)
		}
	}
	return active
}

// Goals returns every goal.
func (m *Manager) Goals() []Goal {
	return slices.Clone(m.doc.Goals)
}

// Goal returns a goal by ID.
func (m *Manager) Goal(id string) (Goal, bool) {
	if g := m.goal(id); g != nil {
		return *g, true
	}
	return Goal{}, false
}

// DeleteGoal removes a goal and reports whether it existed.
func (m *Manager) DeleteGoal(ctx context.Context, id string) (bool, error) {
	for i, g := range m.doc.Goals {
		if g.ID == id {
			m.doc.Goals = slices.Delete(m.doc.Goals, i, i+1)
			return true, m.save(ctx)
		}
	}
	return false, nil
}

// AddGoalMilestone appends a milestone to a goal.
func (m *Manager) AddGoalMilestone(ctx context.Context, id, description, targetDate string) (bool, error) {
	goal := m.goal(id)
	if goal == nil {
		return false, nil
	}
	goal.Milestones = append(goal.Milestones, Milestone{
		Description: description,
		TargetDate:  targetDate,
	})
	return true, m.save(ctx)
}

// MarkMilestoneAchieved marks the milestone at index as achieved.
func (m *Manager) MarkMilestoneAchieved(ctx context.Context, id string, index int) (bool, error) {
	goal := m.goal(id)
	if goal == nil || index < 0 || index >= len(goal.Milestones) {
		return false, nil
	}
	ms := &goal.Milestones[index]
	if !ms.Achieved {
		ms.Achieved = true
		ms.AchievedDate = m.now().Format(dateLayout)
	}
	return true, m.save(ctx)
}

// AddGoalNote appends a free-text note to a goal.
func (m *Manager) AddGoalNote(ctx context.Context, id, note string) (bool, error) {
	goal := m.goal(id)
	if goal == nil {
		return false, nil
	}
	goal.Notes = append(goal.Notes, note)
	return true, m.save(ctx)
}

func (m *Manager) goal(id string) *Goal {
	for i := range m.doc.Goals {
		if m.doc.Goals[i].ID == id {
			return &m.doc.Goals[i]
		}
	}
	return nil
}

// ----------------------------------------------------------------------
// Context and history

// ContextUpdate carries the fields of a new transaction. Empty fields leave
// the stored context unchanged.
type ContextUpdate struct {
	Category    string
	Amount      float64
	Wallet      string
	Merchant    string
	Description string
}

// UpdateContext records the latest transaction context.
func (m *Manager) UpdateContext(ctx context.Context, u ContextUpdate) error {
	c := &m.doc.Context
	if u.Category != "" {
		c.LastCategory = u.Category
	}
	if u.Amount != 0 {
		c.LastAmount = u.Amount
	}
	if u.Wallet != "" {
		c.LastWallet = u.Wallet
	}
	if u.Merchant != "" {
		c.LastMerchant = u.Merchant
	}
	if u.Description != "" {
		c.LastDescription = u.Description
	}
	c.LastTransactionTime = m.now()
	return m.save(ctx)
}

// Context returns the last transaction context.
func (m *Manager) Context() Context {
	return m.doc.Context
}

// Pattern is a repeated transaction learned from history.
type Pattern struct {
	Description string  `json:"description"`
	Category    string  `json:"category"`
	Amount      float64 `json:"amount"`
	Merchant    string  `json:"merchant"`
	Count       int     `json:"count"`
}

// FullContext is the context handed to the interpreter.
type FullContext struct {
	Context
	UsualAmounts         map[string]float64
	FrequentTransactions []Pattern
	LastMerchants        []string
}

// FullContext returns the context plus learned amounts, the top five
// patterns and recent merchants.
func (m *Manager) FullContext() FullContext {
	patterns := m.FrequentPatterns(10)
	if len(patterns) > 5 {
		patterns = patterns[:5]
	}
	return FullContext{
		Context:              m.doc.Context,
		UsualAmounts:         m.UsualAmounts(),
		FrequentTransactions: patterns,
		LastMerchants:        m.recentMerchants(recentMerchants),
	}
}

func (m *Manager) recentMerchants(limit int) []string {
	var merchants []string
	history := m.doc.TransactionHistory
	for i := len(history) - 1; i >= 0 && len(merchants) < limit; i-- {
		merchant := history[i].Merchant
		if merchant != "" && !slices.Contains(merchants, merchant) {
			merchants = append(merchants, merchant)
		}
	}
	return merchants
}

// AddToHistory remembers a transaction and updates the category's usual
// amount. History keeps the last 200 entries.
func (m *Manager) AddToHistory(ctx context.Context, description, category string, amount float64, merchant, wallet string) error {
	if wallet == "" {
		wallet = "wallet"
	}
	m.doc.TransactionHistory = append(m.doc.TransactionHistory, HistoryEntry{
		Desc:     description,
		Cat:      category,
		Amt:      amount,
		Merchant: merchant,
		Wallet:   wallet,
		Time:     m.now(),
	})
	if n := len(m.doc.TransactionHistory); n > historyLimit {
		m.doc.TransactionHistory = slices.Clone(m.doc.TransactionHistory[n-historyLimit:])
	}

	usual := m.doc.UsualAmounts[category]
	usual.Amounts = append(usual.Amounts, amount)
	if n := len(usual.Amounts); n > usualAmountWindow {
		usual.Amounts = slices.Clone(usual.Amounts[n-usualAmountWindow:])
	}
	var sum float64
	for _, a := range usual.Amounts {
		sum += a
	}
	usual.Average = sum / float64(len(usual.Amounts))
	m.doc.UsualAmounts[category] = usual

	return m.save(ctx)
}

// History returns the remembered transactions, oldest first.
func (m *Manager) History() []HistoryEntry {
	return slices.Clone(m.doc.TransactionHistory)
}

// UsualAmounts returns the average amount per category.
func (m *Manager) UsualAmounts() map[string]float64 {
	out := make(map[string]float64, len(m.doc.UsualAmounts))
	for cat, u := range m.doc.UsualAmounts {
		out[cat] = u.Average
	}
	return out
}

// UsualAmount returns the average amount of a category, or 0.
func (m *Manager) UsualAmount(category string) float64 {
	return m.doc.UsualAmounts[category].Average
}

// FrequentPatterns groups history by description prefix, category and
// whole amount and returns up to limit groups seen at least twice, most
// frequent first.
func (m *Manager) FrequentPatterns(limit int) []Pattern {
	counts := map[string]int{}
	details := map[string]Pattern{}
	var order []string

	for _, h := range m.doc.TransactionHistory {
		desc := []rune(h.Desc)
		if len(desc) > 30 {
			desc = desc[:30]
		}
		key := fmt.Sprintf("%s_%s_%d", string(desc), h.Cat, int64(h.Amt))
		if _, seen := counts[key]; !seen {
			order = append(order, key)
		}
		counts[key]++
		details[key] = Pattern{
			Description: h.Desc,
			Category:    h.Cat,
			Amount:      h.Amt,
			Merchant:    h.Merchant,
		}
	}

	slices.SortStableFunc(order, func(a, b string) int {
		return counts[b] - counts[a]
	})

	var result []Pattern
	for i, key := range order {
		if i >= limit {
			break
		}
		if counts[key] < 2 {
			continue
		}
		p := details[key]
		p.Count = counts[key]
		result = append(result, p)
	}
	return result
}

// ----------------------------------------------------------------------
// Income

// SetIncome sets the monthly income and the day of month it arrives.
func (m *Manager) SetIncome(ctx context.Context, monthly float64, incomeDate int) error {
	m.doc.Income.Monthly = monthly
	m.doc.Income.IncomeDate = incomeDate
	return m.save(ctx)
}

// Income returns the income settings.
func (m *Manager) Income() Income {
	return m.doc.Income
}

// AddIncomeSource records an additional income stream.
func (m *Manager) AddIncomeSource(ctx context.Context, source string, amount float64, frequency string) error {
	if frequency == "" {
		frequency = PeriodMonthly
	}
	m.doc.Income.Sources = append(m.doc.Income.Sources, IncomeSource{
		Source:    source,
		Amount:    amount,
		Frequency: frequency,
	})
	return m.save(ctx)
}

// ----------------------------------------------------------------------
// Alerts

// ToggleAlert enables or disables a named alert.
func (m *Manager) ToggleAlert(ctx context.Context, name string, enabled bool) error {
	a := &m.doc.AlertSettings
	switch name {
	case "weekly_summary":
		a.WeeklySummary = enabled
	case "monthly_warning":
		a.MonthlyWarning = enabled
	case "budget_alerts":
		a.BudgetAlerts = enabled
	case "goal_reminders":
		a.GoalReminders = enabled
	case "anomaly_detection":
		a.AnomalyDetection = enabled
	default:
		return fmt.Errorf("unknown alert %q", name)
	}
	return m.save(ctx)
}

// AlertSettings returns the alert settings.
func (m *Manager) AlertSettings() AlertSettings {
	return m.doc.AlertSettings
}

// SetSpikeMultiplier sets the multiplier used for spending spike alerts.
func (m *Manager) SetSpikeMultiplier(ctx context.Context, multiplier float64) error {
	m.doc.AlertSettings.SpikeMultiplier = multiplier
	return m.save(ctx)
}

// ----------------------------------------------------------------------
// Financial health

// UpdateHealthScore stores a new score and appends it to the history,
// which keeps the last 30 entries.
func (m *Manager) UpdateHealthScore(ctx context.Context, score int, factors []string) error {
	now := m.now()
	h := &m.doc.FinancialHealth
	h.Score = score
	h.LastCalculated = now

	if factors == nil {
		factors = []string{}
	}
	h.History = append(h.History, HealthEntry{
		Score:   score,
		Date:    now.Format(dateLayout),
		Factors: factors,
	})
	if n := len(h.History); n > healthHistoryLimit {
		h.History = slices.Clone(h.History[n-healthHistoryLimit:])
	}
	return m.save(ctx)
}

// HealthScore returns the stored health section.
func (m *Manager) HealthScore() FinancialHealth {
	return m.doc.FinancialHealth
}

// HealthTrend compares the last two scores: a move of more than five
// points is improving or declining.
func (m *Manager) HealthTrend() string {
	history := m.doc.FinancialHealth.History
	if len(history) < 2 {
		return "stable"
	}

	recent := history[len(history)-1].Score
	previous := history[len(history)-2].Score
	switch {
	case recent > previous+5:
		return "improving"
	case recent < previous-5:
		return "declining"
	default:
		return "stable"
	}
}

// ----------------------------------------------------------------------
// Notifications

// AddNotification queues a message.
func (m *Manager) AddNotification(ctx context.Context, message, kind string) error {
	if kind == "" {
		kind = "info"
	}
	m.doc.Notifications.Pending = append(m.doc.Notifications.Pending, Notification{
		Message:   message,
		Type:      kind,
		Timestamp: m.now(),
	})
	return m.save(ctx)
}

// PendingNotifications returns unread notifications.
func (m *Manager) PendingNotifications() []Notification {
	var pending []Notification
	for _, n := range m.doc.Notifications.Pending {
		if !n.Read {
			pending = append(pending, n)
		}
	}
	return pending
}

// MarkNotificationsRead marks every queued notification as read.
func (m *Manager) MarkNotificationsRead(ctx context.Context) error {
	for i := range m.doc.Notifications.Pending {
		m.doc.Notifications.Pending[i].Read = true
	}
	return m.save(ctx)
}

// ClearOldNotifications drops notifications older than days.
func (m *Manager) ClearOldNotifications(ctx context.Context, days int) error {
	cutoff := m.now().AddDate(0, 0, -days)
	m.doc.Notifications.Pending = slices.DeleteFunc(m.doc.Notifications.Pending, func(n Notification) bool {
		return n.Timestamp.Before(cutoff)
	})
	return m.save(ctx)
}

// UpdateSummaryTimestamp records that a daily, weekly or monthly summary
// was sent now.
func (m *Manager) UpdateSummaryTimestamp(ctx context.Context, kind string) error {
	slot, err := m.summarySlot(kind)
	if err != nil {
		return err
	}
	*slot = m.now()
	return m.save(ctx)
}

// ShouldSendSummary reports whether enough whole days have passed since
// the last summary of this kind: 1 for daily, 7 for weekly, 30 for monthly.
func (m *Manager) ShouldSendSummary(kind string) bool {
	slot, err := m.summarySlot(kind)
	if err != nil {
		return false
	}
	if slot.IsZero() {
		return true
	}

	days := int(m.now().Sub(*slot).Hours() / 24)
	switch kind {
	case PeriodDaily:
		return days >= 1
	case PeriodWeekly:
		return days >= 7
	default:
		return days >= 30
	}
}

func (m *Manager) summarySlot(kind string) (*time.Time, error) {
	n := &m.doc.Notifications
	switch kind {
	case PeriodDaily:
		return &n.LastDailySummary, nil
	case PeriodWeekly:
		return &n.LastWeeklySummary, nil
	case PeriodMonthly:
		return &n.LastMonthlySummary, nil
	}
	return nil, fmt.Errorf("unknown summary type %q", kind)
}
