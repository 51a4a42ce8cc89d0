package prefs

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	doc := Default()

	assert.Equal(t, float64(3), doc.AlertSettings.SpikeMultiplier)
	assert.True(t, doc.AlertSettings.WeeklySummary)
	assert.Equal(t, "wallet", doc.Context.LastWallet)
	assert.Equal(t, 1, doc.Income.IncomeDate)
	assert.Equal(t, 50, doc.FinancialHealth.Score)
	assert.Contains(t, doc.Budgets, PeriodMonthly)
	assert.Contains(t, doc.Budgets, PeriodWeekly)
	assert.Contains(t, doc.Budgets, PeriodDaily)
}

func TestDecodeFillsMissingKeys(t *testing.T) {
	// an old document with only some sections, some of them partial
	data := []byte(`{
		"aliases": {"gro": "groceries"},
		"budgets": {"monthly": {"food": 5000}},
		"alert_settings": {"weekly_summary": false},
		"income": {"monthly": 40000}
	}`)

	doc, err := Decode(data)
	require.NoError(t, err)

	// existing values win
	assert.Equal(t, "groceries", doc.Aliases["gro"])
	assert.Equal(t, 5000.0, doc.Budgets[PeriodMonthly]["food"])
	assert.False(t, doc.AlertSettings.WeeklySummary)
	assert.Equal(t, 40000.0, doc.Income.Monthly)

	// missing nested keys are filled
	assert.NotNil(t, doc.Budgets[PeriodWeekly])
	assert.Equal(t, float64(3), doc.AlertSettings.SpikeMultiplier)
	assert.True(t, doc.AlertSettings.BudgetAlerts)
	assert.Equal(t, 1, doc.Income.IncomeDate)
	assert.NotNil(t, doc.Income.Sources)

	// missing top-level sections are filled
	assert.Equal(t, 50, doc.FinancialHealth.Score)
	assert.Equal(t, "wallet", doc.Context.LastWallet)
	assert.NotNil(t, doc.Goals)
	assert.NotNil(t, doc.Notifications.Pending)
}

func TestDecodeNullSections(t *testing.T) {
	doc, err := Decode([]byte(`{"aliases": null, "goals": null, "budgets": {"weekly": null}}`))
	require.NoError(t, err)
	assert.NotNil(t, doc.Aliases)
	assert.NotNil(t, doc.Goals)
	assert.NotNil(t, doc.Budgets[PeriodWeekly])
}

func TestDecodeInvalid(t *testing.T) {
	_, err := Decode([]byte(`{"aliases": [`))
	assert.Error(t, err)
}

func TestEncodeDecodeIsIdempotent(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t, NewMemoryStore())

	require.NoError(t, m.AddAlias(ctx, "Gro", "Groceries"))
	require.NoError(t, m.SetBudget(ctx, "Food", 5000, PeriodMonthly))
	_, err := m.AddGoal(ctx, GoalSavings, 10000, "trip", "2026-12-31", 0)
	require.NoError(t, err)
	require.NoError(t, m.AddToHistory(ctx, "coffee", "food", 50, "Starbucks", "wallet"))
	require.NoError(t, m.UpdateHealthScore(ctx, 70, []string{"Savings Rate: +20"}))
	require.NoError(t, m.AddNotification(ctx, "hello", ""))
	require.NoError(t, m.UpdateSummaryTimestamp(ctx, PeriodWeekly))

	first, err := Encode(m.Document())
	require.NoError(t, err)

	doc, err := Decode(first)
	require.NoError(t, err)
	assert.Equal(t, m.Document(), doc)

	second, err := Encode(doc)
	require.NoError(t, err)
	assert.JSONEq(t, string(first), string(second))
}

func TestBoltStore(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "prefs.db")

	store, err := OpenBoltStore(path)
	require.NoError(t, err)

	_, err = store.Load(ctx, "u1")
	assert.ErrorIs(t, err, ErrNotFound)

	doc := Default()
	doc.Aliases["cf"] = "coffee"
	require.NoError(t, store.Save(ctx, "u1", doc))
	require.NoError(t, store.Close())

	// reopen to check the document survived
	store, err = OpenBoltStore(path)
	require.NoError(t, err)
	defer store.Close()

	loaded, err := store.Load(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, doc, loaded)

	_, err = store.Load(ctx, "u2")
	assert.ErrorIs(t, err, ErrNotFound)
}
