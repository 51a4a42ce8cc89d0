// Package interpreter turns free text into a structured transaction guess.
// It asks hosted language models first and falls back to a keyword and
// regex parser when none is configured or all of them fail.
package interpreter

import (
	"net/http"
	"time"
)

// Provider names a hosted language model API.
type Provider string

const (
	ProviderGoogle     Provider = "google"
	ProviderGroq       Provider = "groq"
	ProviderOpenRouter Provider = "openrouter"
)

// Default endpoints and models.
const (
	DefaultGoogleURL       = "https://generativelanguage.googleapis.com/v1beta/models/gemini-2.0-flash:generateContent"
	DefaultGroqURL         = "https://api.groq.com/openai/v1/chat/completions"
	DefaultGroqModel       = "llama-3.1-8b-instant"
	DefaultOpenRouterURL   = "https://openrouter.ai/api/v1/chat/completions"
	DefaultOpenRouterModel = "google/gemini-2.0-flash-exp:free"

	DefaultMinInterval = 500 * time.Millisecond
	DefaultTimeout     = 30 * time.Second
)

// Config is built once at startup and handed to New.
type Config struct {
	// Primary is tried first. When empty, the first provider with a key
	// (google, groq, openrouter) is primary.
	Primary Provider

	GoogleAPIKey     string
	GroqAPIKey       string
	OpenRouterAPIKey string

	// MinInterval is the minimum spacing between any two provider calls.
	MinInterval time.Duration
	// Timeout bounds each provider call.
	Timeout time.Duration

	// Endpoint overrides; empty means the default.
	GoogleURL     string
	GroqURL       string
	OpenRouterURL string

	HTTPClient *http.Client

	// Keywords drives the fallback parser. Nil means DefaultKeywords.
	Keywords *KeywordTable
}

// order returns the providers with a key, primary first, in the fixed
// preference order for that primary.
func (c Config) order() []Provider {
	primary := c.Primary
	if primary == "" || c.key(primary) == "" {
		for _, p := range []Provider{ProviderGoogle, ProviderGroq, ProviderOpenRouter} {
			if c.key(p) != "" {
				primary = p
				break
			}
		}
	}

	var seq []Provider
	switch primary {
	case ProviderGoogle:
		seq = []Provider{ProviderGoogle, ProviderGroq, ProviderOpenRouter}
	case ProviderGroq:
		seq = []Provider{ProviderGroq, ProviderGoogle, ProviderOpenRouter}
	default:
		seq = []Provider{ProviderOpenRouter, ProviderGoogle, ProviderGroq}
	}

	var out []Provider
	for _, p := range seq {
		if c.key(p) != "" {
			out = append(out, p)
		}
	}
	return out
}

func (c Config) key(p Provider) string {
	switch p {
	case ProviderGoogle:
		return c.GoogleAPIKey
	case ProviderGroq:
		return c.GroqAPIKey
	case ProviderOpenRouter:
		return c.OpenRouterAPIKey
	}
	return ""
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
