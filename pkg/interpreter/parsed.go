package interpreter

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Transaction types a Parsed result may carry.
const (
	TypeExpense  = "expense"
	TypeIncome   = "income"
	TypeLend     = "lend"
	TypeBorrow   = "borrow"
	TypeTransfer = "transfer"
)

// Parsed is a best-effort structured reading of a message. Every field is
// optional and empty when unknown.
type Parsed struct {
	Amount          string `json:"amount"`
	Category        string `json:"category"`
	Description     string `json:"description"`
	Merchant        string `json:"merchant"`
	TimeReference   string `json:"time_reference"`
	TransactionType string `json:"transaction_type"`
	WalletType      string `json:"wallet_type"`

	// Provider is the model that produced the result; empty when the
	// offline parser did.
	Provider Provider `json:"-"`
}

// Fallback reports whether the offline parser produced the result.
func (p Parsed) Fallback() bool {
	return p.Provider == ""
}

// AmountValue returns the amount as a positive decimal.
func (p Parsed) AmountValue() (decimal.Decimal, bool) {
	s := strings.NewReplacer("₹", "", ",", "", " ", "").Replace(p.Amount)
	if s == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil || !d.IsPositive() {
		return decimal.Zero, false
	}
	return d, true
}

var daysAgoPattern = regexp.MustCompile(`(\d+)\s*days?\s*ago`)

// Date resolves the time reference against now. Unknown references
// resolve to today.
func (p Parsed) Date(now time.Time) time.Time {
	ref := strings.ToLower(strings.TrimSpace(p.TimeReference))
	switch {
	case ref == "" || ref == "today":
		return now
	case strings.Contains(ref, "yesterday"):
		return now.AddDate(0, 0, -1)
	case strings.Contains(ref, "last week"):
		return now.AddDate(0, 0, -7)
	}

	if m := daysAgoPattern.FindStringSubmatch(ref); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			return now.AddDate(0, 0, -n)
		}
	}
	for _, layout := range []string{time.DateOnly, "02/01/2006"} {
		if d, err := time.ParseInLocation(layout, ref, now.Location()); err == nil {
			return d
		}
	}
	return now
}

// FrequentTransaction is a repeated transaction shown to the model.
type FrequentTransaction struct {
	Description string  `json:"description"`
	Category    string  `json:"category"`
	Amount      float64 `json:"amount"`
	Merchant    string  `json:"merchant"`
	Count       int     `json:"count"`
}

// Context is what the interpreter knows about the user's recent activity.
type Context struct {
	LastMerchant         string
	LastCategory         string
	UsualAmounts         map[string]float64
	FrequentTransactions []FrequentTransaction
}

func (c Context) prompt() string {
	var b strings.Builder
	if c.LastMerchant != "" {
		fmt.Fprintf(&b, "\nUser's last merchant: %s", c.LastMerchant)
	}
	if c.LastCategory != "" {
		fmt.Fprintf(&b, "\nUser's last category: %s", c.LastCategory)
	}
	if len(c.UsualAmounts) > 0 {
		data, _ := json.Marshal(c.UsualAmounts)
		fmt.Fprintf(&b, "\nUser's usual amounts by category: %s", data)
	}
	if len(c.FrequentTransactions) > 0 {
		ft := c.FrequentTransactions
		if len(ft) > 5 {
			ft = ft[:5]
		}
		data, _ := json.Marshal(ft)
		fmt.Fprintf(&b, "\nUser's frequent transactions: %s", data)
	}
	return b.String()
}

var jsonObjectPattern = regexp.MustCompile(`\{[^}]+\}`)

// decodeParsed extracts the first flat JSON object from a model reply.
// Non-string values are stringified.
func decodeParsed(reply string) (Parsed, error) {
	raw := jsonObjectPattern.FindString(reply)
	if raw == "" {
		return Parsed{}, fmt.Errorf("no JSON object in reply")
	}

	var fields map[string]any
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return Parsed{}, fmt.Errorf("failed to decode reply: %w", err)
	}

	str := func(key string) string {
		switch v := fields[key].(type) {
		case nil:
			return ""
		case string:
			return strings.TrimSpace(v)
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		default:
			return fmt.Sprint(v)
		}
	}

	return Parsed{
		Amount:          str("amount"),
		Category:        strings.ToLower(str("category")),
		Description:     str("description"),
		Merchant:        str("merchant"),
		TimeReference:   str("time_reference"),
		TransactionType: strings.ToLower(str("transaction_type")),
		WalletType:      strings.ToLower(str("wallet_type")),
	}, nil
}
