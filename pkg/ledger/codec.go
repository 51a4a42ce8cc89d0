package ledger

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Column positions on the transactions sheet.
const (
	TxnColDate = iota
	TxnColType
	TxnColWalletType
	TxnColAmount
	TxnColDescription
	TxnColBalanceTotal
	TxnColBalanceWallet
	TxnColCategory
	TxnColMerchant
)

// Column positions on the lending sheet.
const (
	LendColDate = iota
	LendColPerson
	LendColAmount
	LendColStatus
	LendColDescription
	LendColReturnDate
	LendColReturnTo
	LendColRemaining
)

// TransactionHeader is the header row of the transactions sheet.
var TransactionHeader = []string{
	"date", "type", "wallet_type", "amount", "description",
	"balance_total", "balance_wallet", "category", "merchant",
}

// LendingHeader is the header row of the lending sheet.
var LendingHeader = []string{
	"date", "person", "amount", "status", "description",
	"return_date", "return_to", "remaining",
}

// Header returns the header row for a sheet.
func Header(sheet Sheet) []string {
	if sheet == SheetLending {
		return LendingHeader
	}
	return TransactionHeader
}

// Decoded holds the records that parsed cleanly and the number of rows that
// were skipped because they did not.
type Decoded[T any] struct {
	Records []T
	Skipped int
}

// FormatDate formats a date for a row cell.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// ParseDate parses a row date cell. The result is a UTC calendar date.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, strings.TrimSpace(s))
}

// EncodeTransaction converts a transaction into its row cells.
func EncodeTransaction(t Transaction) []string {
	return []string{
		FormatDate(t.Date),
		string(t.Type),
		t.WalletType,
		t.Amount.String(),
		t.Description,
		t.Balances.Total.String(),
		t.Balances.Wallet.String(),
		t.Category,
		t.Merchant,
	}
}

// DecodeTransaction parses a row of the transactions sheet.
func DecodeTransaction(row []string) (Transaction, error) {
	if len(row) < TxnColBalanceWallet+1 {
		return Transaction{}, fmt.Errorf("transaction row has %d cells, expected at least %d", len(row), TxnColBalanceWallet+1)
	}

	date, err := ParseDate(row[TxnColDate])
	if err != nil {
		return Transaction{}, fmt.Errorf("invalid date %q: %w", row[TxnColDate], err)
	}

	kind := Kind(strings.TrimSpace(row[TxnColType]))
	switch kind {
	case KindAdd, KindSubtract, KindTransfer:
	default:
		return Transaction{}, fmt.Errorf("invalid transaction type %q", row[TxnColType])
	}

	walletType := strings.TrimSpace(row[TxnColWalletType])
	if !validWalletType(kind, walletType) {
		return Transaction{}, fmt.Errorf("invalid wallet_type %q for %s", row[TxnColWalletType], kind)
	}

	amount, err := parseAmount(row[TxnColAmount])
	if err != nil {
		return Transaction{}, fmt.Errorf("invalid amount: %w", err)
	}
	if !amount.IsPositive() {
		return Transaction{}, fmt.Errorf("amount must be positive, got %s", amount)
	}
	total, err := parseAmount(row[TxnColBalanceTotal])
	if err != nil {
		return Transaction{}, fmt.Errorf("invalid balance_total: %w", err)
	}
	wallet, err := parseAmount(row[TxnColBalanceWallet])
	if err != nil {
		return Transaction{}, fmt.Errorf("invalid balance_wallet: %w", err)
	}

	return Transaction{
		Date:        date,
		Type:        kind,
		WalletType:  walletType,
		Amount:      amount,
		Description: row[TxnColDescription],
		Balances:    Balances{Total: total, Wallet: wallet},
		Category:    cell(row, TxnColCategory),
		Merchant:    cell(row, TxnColMerchant),
	}, nil
}

// validWalletType reports whether walletType names a wallet for add and
// subtract rows, or a "<from>_to_<to>" pair of distinct wallets for transfers.
func validWalletType(kind Kind, walletType string) bool {
	if kind != KindTransfer {
		return Wallet(walletType).Valid()
	}
	from, to, ok := strings.Cut(walletType, "_to_")
	return ok && Wallet(from).Valid() && Wallet(to).Valid() && from != to
}

// DecodeTransactions parses every row, skipping the ones that fail. Row keeps
// the store position of each record.
func DecodeTransactions(rows [][]string) Decoded[Transaction] {
	var out Decoded[Transaction]
	for i, row := range rows {
		t, err := DecodeTransaction(row)
		if err != nil {
			out.Skipped++
			continue
		}
		t.Row = i
		out.Records = append(out.Records, t)
	}
	return out
}

// EncodeLending converts a lending record into its row cells.
func EncodeLending(r LendingRecord) []string {
	returnDate := ""
	if !r.ReturnDate.IsZero() {
		returnDate = FormatDate(r.ReturnDate)
	}
	return []string{
		FormatDate(r.Date),
		r.Person,
		r.Amount.String(),
		string(r.Status),
		r.Description,
		returnDate,
		r.ReturnTo,
		r.Remaining.String(),
	}
}

// DecodeLending parses a row of the lending sheet. A missing remaining cell
// means nothing has been repaid yet.
func DecodeLending(row []string) (LendingRecord, error) {
	if len(row) < LendColStatus+1 {
		return LendingRecord{}, fmt.Errorf("lending row has %d cells, expected at least %d", len(row), LendColStatus+1)
	}

	date, err := ParseDate(row[LendColDate])
	if err != nil {
		return LendingRecord{}, fmt.Errorf("invalid date %q: %w", row[LendColDate], err)
	}

	amount, err := parseAmount(row[LendColAmount])
	if err != nil {
		return LendingRecord{}, fmt.Errorf("invalid amount: %w", err)
	}

	status := Status(strings.TrimSpace(row[LendColStatus]))
	switch status {
	case StatusLent, StatusPartial, StatusReturned:
	default:
		return LendingRecord{}, fmt.Errorf("invalid status %q", row[LendColStatus])
	}

	remaining := amount
	if raw := cell(row, LendColRemaining); raw != "" {
		remaining, err = parseAmount(raw)
		if err != nil {
			return LendingRecord{}, fmt.Errorf("invalid remaining: %w", err)
		}
	}
	if remaining.IsNegative() {
		return LendingRecord{}, fmt.Errorf("negative remaining %s", remaining)
	}

	var returnDate time.Time
	if raw := cell(row, LendColReturnDate); raw != "" {
		if parsed, err := ParseDate(raw); err == nil {
			returnDate = parsed
		}
	}

	return LendingRecord{
		Date:        date,
		Person:      strings.TrimSpace(row[LendColPerson]),
		Amount:      amount,
		Status:      status,
		Description: cell(row, LendColDescription),
		ReturnDate:  returnDate,
		ReturnTo:    cell(row, LendColReturnTo),
		Remaining:   remaining,
	}, nil
}

// DecodeLendingRows parses every lending row, skipping the ones that fail.
func DecodeLendingRows(rows [][]string) Decoded[LendingRecord] {
	var out Decoded[LendingRecord]
	for i, row := range rows {
		r, err := DecodeLending(row)
		if err != nil {
			out.Skipped++
			continue
		}
		r.Row = i
		out.Records = append(out.Records, r)
	}
	return out
}

func parseAmount(s string) (decimal.Decimal, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return decimal.Zero, fmt.Errorf("empty amount")
	}
	return decimal.NewFromString(s)
}

func cell(row []string, i int) string {
	if i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}
