package interpreter

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	amountPattern = regexp.MustCompile(`₹?\s*(\d[\d,]*(?:\.\d+)?)`)

	merchantMarkers = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\bat\b(.*)`),
		regexp.MustCompile(`(?i)\bfrom\b(.*)`),
		regexp.MustCompile(`(?i)\bin\b(.*)`),
		regexp.MustCompile(`@(.*)`),
	}
)

// Parse reads text without a language model.
func (kt *KeywordTable) Parse(text string) Parsed {
	p := Parsed{
		Category:        kt.Category(text),
		Description:     text,
		Merchant:        merchantOf(text),
		TimeReference:   timeReferenceOf(text),
		TransactionType: kt.TransactionType(text),
		WalletType:      "wallet",
	}
	if m := amountPattern.FindStringSubmatch(text); m != nil {
		p.Amount = strings.ReplaceAll(m[1], ",", "")
	}
	return p
}

// merchantOf returns the word after the first merchant marker present in
// text, when it is longer than two characters.
func merchantOf(text string) string {
	for _, re := range merchantMarkers {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		fields := strings.Fields(m[1])
		if len(fields) == 0 {
			return ""
		}
		word := strings.Trim(fields[0], ".,!?;:")
		if len([]rune(word)) <= 2 {
			return ""
		}
		return cases.Title(language.English).String(word)
	}
	return ""
}

func timeReferenceOf(text string) string {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "yesterday"):
		return "yesterday"
	case strings.Contains(lower, "last week"):
		return "7 days ago"
	}
	if m := daysAgoPattern.FindString(lower); m != "" {
		return m
	}
	return "today"
}
