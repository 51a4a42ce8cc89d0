package analytics

import (
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Rupees formats v as a whole rupee amount with thousands separators,
// e.g. "₹12,500".
func Rupees(v float64) string {
	return message.NewPrinter(language.English).Sprintf("₹%.0f", v)
}

// Title capitalizes each word of s.
func Title(s string) string {
	// a Caser keeps state, so it is not shared
	return cases.Title(language.English).String(s)
}

// RupeesExact formats v with paise and thousands separators,
// e.g. "₹12,500.50".
func RupeesExact(v float64) string {
	return message.NewPrinter(language.English).Sprintf("₹%.2f", v)
}
