package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/shunichi-ikebuchi/paylog/pkg/ledger"
)

// RepaymentResult is the outcome of applying a repayment to open loans.
type RepaymentResult struct {
	Success   bool
	Message   string
	Applied   decimal.Decimal
	Unmatched decimal.Decimal // part of the repayment larger than what was owed
	Closed    int
	Partial   int
}

// RecordLoan appends a lending row for money given to person.
func (e *Engine) RecordLoan(ctx context.Context, person string, amount decimal.Decimal, description string) error {
	person = strings.TrimSpace(person)
	if person == "" {
		return fmt.Errorf("loan needs a person")
	}
	if !amount.IsPositive() {
		return fmt.Errorf("%w: %s", ErrInvalidAmount, amount)
	}

	record := ledger.LendingRecord{
		Date:        e.today(),
		Person:      person,
		Amount:      amount,
		Status:      ledger.StatusLent,
		Description: description,
		Remaining:   amount,
	}

	if err := e.store.AppendRow(ctx, ledger.SheetLending, ledger.EncodeLending(record)); err != nil {
		return storeError("append loan", err)
	}

	slog.Debug("Recorded loan", "person", person, "amount", amount.String())
	return nil
}

// ApplyRepayment allocates amount to person's open loans, oldest first. A
// loan is closed when the remaining pool covers it; otherwise it is reduced
// and allocation stops. The applied total is credited to targetWallet as a
// lending income row before any loan is updated, so a failed store call
// never leaves a reduced loan without its credit.
func (e *Engine) ApplyRepayment(ctx context.Context, person string, amount decimal.Decimal, targetWallet ledger.Wallet) (RepaymentResult, error) {
	if !amount.IsPositive() {
		return RepaymentResult{Message: "Amount must be positive"}, fmt.Errorf("%w: %s", ErrInvalidAmount, amount)
	}
	if !targetWallet.Valid() {
		return RepaymentResult{Message: "Unknown wallet"}, fmt.Errorf("%w: %q", ErrInvalidWallet, targetWallet)
	}

	loans, err := e.Lending(ctx)
	if err != nil {
		return RepaymentResult{Message: "Could not read lending records"}, err
	}

	today := ledger.FormatDate(e.today())
	plan, result := allocate(loans, person, amount, today, targetWallet)

	if result.Applied.IsZero() {
		result.Message = fmt.Sprintf("No outstanding loans found for %s", person)
		return result, fmt.Errorf("%w: %s", ErrNoOutstandingLoan, person)
	}

	_, err = e.RecordTransaction(ctx, Entry{
		Kind:        ledger.KindAdd,
		Wallet:      targetWallet,
		Amount:      result.Applied,
		Description: "Returned by " + person,
		Category:    "lending",
	})
	if err != nil {
		result.Message = "Could not record the repayment"
		return result, err
	}

	for _, u := range plan {
		if err := e.updateLoan(ctx, u.row, u.cells); err != nil {
			result.Message = "Repayment recorded but the loans could not be updated"
			slog.Error("Loan update failed after repayment credit", "person", person, "row", u.row, "error", err)
			return result, err
		}
	}

	result.Success = true
	result.Message = fmt.Sprintf("₹%s applied to %s's loans", result.Applied.String(), person)
	if result.Unmatched.IsPositive() {
		result.Message += fmt.Sprintf(" (₹%s more than owed)", result.Unmatched.String())
	}

	return result, nil
}

type loanUpdate struct {
	row   int
	cells map[int]string
}

// allocate works out the cell updates for a repayment without writing them.
func allocate(loans []ledger.LendingRecord, person string, amount decimal.Decimal, today string, targetWallet ledger.Wallet) ([]loanUpdate, RepaymentResult) {
	pool := amount
	result := RepaymentResult{Applied: decimal.Zero}
	var plan []loanUpdate

	for _, loan := range loans {
		if !pool.IsPositive() {
			break
		}
		if !loan.Status.Outstanding() || !samePerson(loan.Person, person) {
			continue
		}

		if pool.GreaterThanOrEqual(loan.Remaining) {
			plan = append(plan, loanUpdate{row: loan.Row, cells: map[int]string{
				ledger.LendColStatus:     string(ledger.StatusReturned),
				ledger.LendColReturnDate: today,
				ledger.LendColReturnTo:   string(targetWallet),
				ledger.LendColRemaining:  "0",
			}})
			pool = pool.Sub(loan.Remaining)
			result.Applied = result.Applied.Add(loan.Remaining)
			result.Closed++
			continue
		}

		plan = append(plan, loanUpdate{row: loan.Row, cells: map[int]string{
			ledger.LendColStatus:    string(ledger.StatusPartial),
			ledger.LendColRemaining: loan.Remaining.Sub(pool).String(),
		}})
		result.Applied = result.Applied.Add(pool)
		result.Partial++
		pool = decimal.Zero
	}

	result.Unmatched = pool
	return plan, result
}

// OutstandingBalance sums the remaining amount of person's open loans.
func (e *Engine) OutstandingBalance(ctx context.Context, person string) (decimal.Decimal, error) {
	loans, err := e.Lending(ctx)
	if err != nil {
		return decimal.Zero, err
	}

	total := decimal.Zero
	for _, loan := range loans {
		if loan.Status.Outstanding() && samePerson(loan.Person, person) {
			total = total.Add(loan.Remaining)
		}
	}
	return total, nil
}

// updateLoan writes cells in column order so a partial failure leaves the
// status cell written first.
func (e *Engine) updateLoan(ctx context.Context, row int, updates map[int]string) error {
	for col := ledger.LendColDate; col <= ledger.LendColRemaining; col++ {
		value, ok := updates[col]
		if !ok {
			continue
		}
		if err := e.store.UpdateCell(ctx, ledger.SheetLending, row, col, value); err != nil {
			return storeError("update loan", err)
		}
	}
	return nil
}
