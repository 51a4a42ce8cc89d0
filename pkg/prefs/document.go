// Package prefs keeps per-user preferences: aliases, budgets, goals,
// conversation context, learned amounts, income, health history and
// notifications.
package prefs

import (
	"encoding/json"
	"fmt"
	"time"
)

// Budget periods.
const (
	PeriodMonthly = "monthly"
	PeriodWeekly  = "weekly"
	PeriodDaily   = "daily"
)

// Goal types.
const (
	GoalSavings       = "savings"
	GoalSpendingLimit = "spending_limit"
	GoalInvestment    = "investment"
	GoalDebtPayoff    = "debt_payoff"
)

// Document is the full preference document of one user.
type Document struct {
	Aliases            map[string]string             `json:"aliases"`
	SpendingLimits     map[string]SpendingLimit      `json:"spending_limits"`
	Budgets            map[string]map[string]float64 `json:"budgets"`
	Goals              []Goal                        `json:"goals"`
	AlertSettings      AlertSettings                 `json:"alert_settings"`
	Context            Context                       `json:"context"`
	TransactionHistory []HistoryEntry                `json:"transaction_history"`
	UsualAmounts       map[string]UsualAmount        `json:"usual_amounts"`
	Income             Income                        `json:"income"`
	FinancialHealth    FinancialHealth               `json:"financial_health"`
	Notifications      Notifications                 `json:"notifications"`
}

// SpendingLimit is the legacy per-category limit.
type SpendingLimit struct {
	Limit  float64 `json:"limit"`
	Period string  `json:"period"`
}

// Goal is a financial goal. Completed only ever moves to true.
type Goal struct {
	ID            string      `json:"id"`
	Type          string      `json:"type"`
	Target        float64     `json:"target"`
	Current       float64     `json:"current"`
	Description   string      `json:"description"`
	Deadline      string      `json:"deadline"` // yyyy-mm-dd, empty when none
	Created       string      `json:"created"`
	Completed     bool        `json:"completed"`
	CompletedDate string      `json:"completed_date"`
	Milestones    []Milestone `json:"milestones"`
	Notes         []string    `json:"notes"`
}

// Milestone is an intermediate step of a goal.
type Milestone struct {
	Description  string `json:"description"`
	TargetDate   string `json:"target_date"`
	Achieved     bool   `json:"achieved"`
	AchievedDate string `json:"achieved_date"`
}

// AlertSettings controls which proactive messages are sent.
type AlertSettings struct {
	SpikeMultiplier  float64 `json:"spike_multiplier"`
	WeeklySummary    bool    `json:"weekly_summary"`
	MonthlyWarning   bool    `json:"monthly_warning"`
	BudgetAlerts     bool    `json:"budget_alerts"`
	GoalReminders    bool    `json:"goal_reminders"`
	AnomalyDetection bool    `json:"anomaly_detection"`
}

// Context is a snapshot of the last recorded transaction.
type Context struct {
	LastCategory        string    `json:"last_category"`
	LastAmount          float64   `json:"last_amount"`
	LastWallet          string    `json:"last_wallet"`
	LastMerchant        string    `json:"last_merchant"`
	LastDescription     string    `json:"last_description"`
	LastTransactionTime time.Time `json:"last_transaction_time,omitzero"`
}

// HistoryEntry is one transaction remembered for pattern learning.
type HistoryEntry struct {
	Desc     string    `json:"desc"`
	Cat      string    `json:"cat"`
	Amt      float64   `json:"amt"`
	Merchant string    `json:"merchant"`
	Wallet   string    `json:"wallet"`
	Time     time.Time `json:"time"`
}

// UsualAmount is the recent amount window of a category and its mean.
type UsualAmount struct {
	Amounts []float64 `json:"amounts"`
	Average float64   `json:"average"`
}

// Income describes the user's income.
type Income struct {
	Monthly    float64        `json:"monthly"`
	IncomeDate int            `json:"income_date"`
	Sources    []IncomeSource `json:"sources"`
}

// IncomeSource is one named income stream.
type IncomeSource struct {
	Source    string  `json:"source"`
	Amount    float64 `json:"amount"`
	Frequency string  `json:"frequency"`
}

// FinancialHealth keeps the latest health score and its history.
type FinancialHealth struct {
	Score          int           `json:"score"`
	LastCalculated time.Time     `json:"last_calculated,omitzero"`
	History        []HealthEntry `json:"history"`
}

// HealthEntry is one recorded health score.
type HealthEntry struct {
	Score   int      `json:"score"`
	Date    string   `json:"date"`
	Factors []string `json:"factors"`
}

// Notifications holds pending messages and summary send times.
type Notifications struct {
	LastDailySummary   time.Time      `json:"last_daily_summary,omitzero"`
	LastWeeklySummary  time.Time      `json:"last_weekly_summary,omitzero"`
	LastMonthlySummary time.Time      `json:"last_monthly_summary,omitzero"`
	Pending            []Notification `json:"pending"`
}

// Notification is a queued message for the user.
type Notification struct {
	Message   string    `json:"message"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Read      bool      `json:"read"`
}

// Default returns a new document with every section present.
func Default() *Document {
	return &Document{
		Aliases:        map[string]string{},
		SpendingLimits: map[string]SpendingLimit{},
		Budgets: map[string]map[string]float64{
			PeriodMonthly: {},
			PeriodWeekly:  {},
			PeriodDaily:   {},
		},
		Goals: []Goal{},
		AlertSettings: AlertSettings{
			SpikeMultiplier:  3,
			WeeklySummary:    true,
			MonthlyWarning:   true,
			BudgetAlerts:     true,
			GoalReminders:    true,
			AnomalyDetection: true,
		},
		Context: Context{
			LastWallet: "wallet",
		},
		TransactionHistory: []HistoryEntry{},
		UsualAmounts:       map[string]UsualAmount{},
		Income: Income{
			IncomeDate: 1,
			Sources:    []IncomeSource{},
		},
		FinancialHealth: FinancialHealth{
			Score:   50,
			History: []HealthEntry{},
		},
		Notifications: Notifications{
			Pending: []Notification{},
		},
	}
}

// Decode parses a stored document on top of the defaults, so sections and
// fields missing from data keep their default values while present ones
// win.
func Decode(data []byte) (*Document, error) {
	doc := Default()
	if err := json.Unmarshal(data, doc); err != nil {
		return nil, fmt.Errorf("failed to decode preferences: %w", err)
	}
	doc.normalize()
	return doc, nil
}

// Encode serializes the document.
func Encode(doc *Document) ([]byte, error) {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode preferences: %w", err)
	}
	return data, nil
}

// normalize replaces explicit nulls in stored data with empty values.
func (d *Document) normalize() {
	if d.Aliases == nil {
		d.Aliases = map[string]string{}
	}
	if d.SpendingLimits == nil {
		d.SpendingLimits = map[string]SpendingLimit{}
	}
	if d.Budgets == nil {
		d.Budgets = map[string]map[string]float64{}
	}
	for _, period := range []string{PeriodMonthly, PeriodWeekly, PeriodDaily} {
		if d.Budgets[period] == nil {
			d.Budgets[period] = map[string]float64{}
		}
	}
	if d.Goals == nil {
		d.Goals = []Goal{}
	}
	for i := range d.Goals {
		if d.Goals[i].Milestones == nil {
			d.Goals[i].Milestones = []Milestone{}
		}
		if d.Goals[i].Notes == nil {
			d.Goals[i].Notes = []string{}
		}
	}
	if d.TransactionHistory == nil {
		d.TransactionHistory = []HistoryEntry{}
	}
	if d.UsualAmounts == nil {
		d.UsualAmounts = map[string]UsualAmount{}
	}
	if d.Income.Sources == nil {
		d.Income.Sources = []IncomeSource{}
	}
	if d.FinancialHealth.History == nil {
		d.FinancialHealth.History = []HealthEntry{}
	}
	if d.Notifications.Pending == nil {
		d.Notifications.Pending = []Notification{}
	}
}
