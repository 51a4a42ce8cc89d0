package interpreter

import (
	_ "embed"
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed keywords.yaml
var defaultKeywordsYAML []byte

// Intent is what a free-text message asks for.
type Intent string

const (
	IntentQuery    Intent = "query"
	IntentTransfer Intent = "transfer"
	IntentExpense  Intent = "expense"
	IntentIncome   Intent = "income"
	IntentLend     Intent = "lend"
	IntentReturn   Intent = "return"
	IntentRepeat   Intent = "repeat"
	IntentUnknown  Intent = ""
)

// intentOrder is the routing precedence. Return is checked before expense
// and income because "paid back" and "got back" contain their words.
var intentOrder = []Intent{
	IntentQuery,
	IntentTransfer,
	IntentReturn,
	IntentExpense,
	IntentIncome,
	IntentLend,
}

// CategoryKeywords maps a category to the words that select it.
type CategoryKeywords struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
}

// QuickAdd is a one-tap expense preset.
type QuickAdd struct {
	Amount      float64 `yaml:"amount"`
	Description string  `yaml:"description"`
	Category    string  `yaml:"category"`
}

// KeywordConfig is the YAML layout of a keyword table.
type KeywordConfig struct {
	Categories  []CategoryKeywords  `yaml:"categories"`
	IncomeWords []string            `yaml:"income_words"`
	LendWords   []string            `yaml:"lend_words"`
	Intents     map[Intent][]string `yaml:"intents"`
	QuickAdd    []QuickAdd          `yaml:"quick_add"`
}

// KeywordTable matches keywords as whole words.
type KeywordTable struct {
	config     KeywordConfig
	categories []compiledCategory
	income     *regexp.Regexp
	lend       *regexp.Regexp
	intents    map[Intent]*regexp.Regexp
}

type compiledCategory struct {
	name string
	re   *regexp.Regexp
}

// DefaultKeywords returns the built-in keyword table.
func DefaultKeywords() *KeywordTable {
	kt, err := ParseKeywords(defaultKeywordsYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded keyword table is invalid: %v", err))
	}
	return kt
}

// LoadKeywords reads a keyword table from a YAML file.
func LoadKeywords(path string) (*KeywordTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read keyword file: %w", err)
	}
	return ParseKeywords(data)
}

// ParseKeywords builds a keyword table from YAML.
func ParseKeywords(data []byte) (*KeywordTable, error) {
	var config KeywordConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if len(config.Categories) == 0 {
		return nil, fmt.Errorf("keyword table has no categories")
	}

	kt := &KeywordTable{
		config:  config,
		income:  wordMatcher(config.IncomeWords),
		lend:    wordMatcher(config.LendWords),
		intents: make(map[Intent]*regexp.Regexp, len(config.Intents)),
	}
	for _, c := range config.Categories {
		if c.Name == "" {
			return nil, fmt.Errorf("keyword table has a category without a name")
		}
		kt.categories = append(kt.categories, compiledCategory{
			name: strings.ToLower(c.Name),
			re:   wordMatcher(c.Keywords),
		})
	}
	for intent, words := range config.Intents {
		kt.intents[intent] = wordMatcher(words)
	}
	return kt, nil
}

// wordMatcher returns a case-insensitive whole-word alternation, or nil
// when words is empty.
func wordMatcher(words []string) *regexp.Regexp {
	var parts []string
	for _, w := range words {
		w = strings.TrimSpace(w)
		if w != "" {
			parts = append(parts, regexp.QuoteMeta(strings.ToLower(w)))
		}
	}
	if len(parts) == 0 {
		return nil
	}
	return regexp.MustCompile(`(?i)\b(?:` + strings.Join(parts, "|") + `)\b`)
}

func matches(re *regexp.Regexp, text string) bool {
	return re != nil && re.MatchString(text)
}

// Category returns the first category with a keyword in text, or "other".
func (kt *KeywordTable) Category(text string) string {
	for _, c := range kt.categories {
		if matches(c.re, text) {
			return c.name
		}
	}
	return "other"
}

// Categories returns the category names in table order.
func (kt *KeywordTable) Categories() []string {
	out := make([]string, len(kt.categories))
	for i, c := range kt.categories {
		out[i] = c.name
	}
	return out
}

// TransactionType classifies text as income, lend or expense.
func (kt *KeywordTable) TransactionType(text string) string {
	switch {
	case matches(kt.income, text):
		return "income"
	case matches(kt.lend, text):
		return "lend"
	}
	return "expense"
}

// Has reports whether text contains a keyword of the intent.
func (kt *KeywordTable) Has(intent Intent, text string) bool {
	return matches(kt.intents[intent], text)
}

// Intent returns the first intent with a keyword in text. Repeat is not
// part of the precedence; callers check it with Has.
func (kt *KeywordTable) Intent(text string) Intent {
	for _, intent := range intentOrder {
		if kt.Has(intent, text) {
			return intent
		}
	}
	return IntentUnknown
}

// QuickAdds returns the one-tap presets.
func (kt *KeywordTable) QuickAdds() []QuickAdd {
	return append([]QuickAdd(nil), kt.config.QuickAdd...)
}
