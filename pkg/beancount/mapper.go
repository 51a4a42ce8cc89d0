package beancount

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// AccountMapping maps a ledger category to a Beancount account.
type AccountMapping struct {
	Category string `yaml:"category"`
	Account  string `yaml:"account"`
}

// AccountMappingConfig represents the complete account mapping configuration.
//
//	wallets:
//	  total: Assets:Bank:Savings
//	  wallet: Assets:Cash
//	income:
//	  - category: income
//	    account: Income:Salary
//	expenses:
//	  - category: food
//	    account: Expenses:Food:Dining
type AccountMappingConfig struct {
	Wallets  map[string]string `yaml:"wallets"`
	Income   []AccountMapping  `yaml:"income"`
	Expenses []AccountMapping  `yaml:"expenses"`
}

// Mapper maps wallets and categories to Beancount account names.
type Mapper struct {
	wallets  map[string]string
	income   map[string]string
	expenses map[string]string
}

// NewMapper creates a new Mapper from a YAML configuration file.
func NewMapper(configPath string) (*Mapper, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return ParseMapper(data)
}

// ParseMapper creates a Mapper from YAML data.
func ParseMapper(data []byte) (*Mapper, error) {
	var config AccountMappingConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	m := &Mapper{
		wallets:  make(map[string]string),
		income:   make(map[string]string),
		expenses: make(map[string]string),
	}
	for wallet, account := range config.Wallets {
		if err := checkAccount(account, "Assets"); err != nil {
			return nil, fmt.Errorf("wallet %s: %w", wallet, err)
		}
		m.wallets[strings.ToLower(wallet)] = account
	}
	if err := addMappings(m.income, config.Income, "Income"); err != nil {
		return nil, err
	}
	if err := addMappings(m.expenses, config.Expenses, "Expenses"); err != nil {
		return nil, err
	}
	return m, nil
}

func addMappings(dst map[string]string, mappings []AccountMapping, root string) error {
	for _, mapping := range mappings {
		if mapping.Category == "" {
			return fmt.Errorf("%s mapping for %q has no category", strings.ToLower(root), mapping.Account)
		}
		if err := checkAccount(mapping.Account, root); err != nil {
			return fmt.Errorf("category %s: %w", mapping.Category, err)
		}
		dst[strings.ToLower(mapping.Category)] = mapping.Account
	}
	return nil
}

func checkAccount(account, root string) error {
	if !strings.HasPrefix(account, root+":") {
		return fmt.Errorf("account %q must be under %s", account, root)
	}
	return nil
}

// WalletAccount returns the account for a wallet, or fallback.
func (m *Mapper) WalletAccount(wallet, fallback string) string {
	return lookup(m.wallets, wallet, fallback)
}

// IncomeAccount returns the account for an income category, or fallback.
func (m *Mapper) IncomeAccount(category, fallback string) string {
	return lookup(m.income, category, fallback)
}

// ExpenseAccount returns the account for an expense category, or fallback.
func (m *Mapper) ExpenseAccount(category, fallback string) string {
	return lookup(m.expenses, category, fallback)
}

func lookup(accounts map[string]string, key, fallback string) string {
	if m := accounts[strings.ToLower(key)]; m != "" {
		return m
	}
	return fallback
}
