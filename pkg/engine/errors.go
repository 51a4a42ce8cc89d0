package engine

import (
	"errors"
	"fmt"
)

var (
	// ErrInsufficientFunds is returned when a transfer source holds less than the amount.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrInvalidDirection is returned for a transfer between the same or unknown wallets.
	ErrInvalidDirection = errors.New("invalid transfer direction")

	// ErrNoOutstandingLoan is returned when a repayment matches no open loan.
	ErrNoOutstandingLoan = errors.New("no outstanding loan")

	// ErrStoreUnavailable wraps every failure of the underlying row store.
	ErrStoreUnavailable = errors.New("ledger store unavailable")

	ErrInvalidAmount = errors.New("amount must be positive")
	ErrInvalidWallet = errors.New("wallet must be total or wallet")
	ErrInvalidKind   = errors.New("transaction type must be add or subtract")
	ErrNothingToUndo = errors.New("no transactions to undo")
)

func storeError(op string, err error) error {
	return fmt.Errorf("%w: failed to %s: %w", ErrStoreUnavailable, op, err)
}
