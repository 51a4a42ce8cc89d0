package interpreter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// completer sends one prompt to one provider.
type completer interface {
	provider() Provider
	complete(ctx context.Context, prompt string, temperature float64) (string, error)
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ----------------------------------------------------------------------
// Google AI Studio (Gemini)

type googleClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	Contents         []geminiContent  `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type generationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

func (c *googleClient) provider() Provider { return ProviderGoogle }

func (c *googleClient) complete(ctx context.Context, prompt string, temperature float64) (string, error) {
	body := geminiRequest{
		Contents: []geminiContent{{Parts: []geminiPart{{Text: "user: " + prompt}}}},
		GenerationConfig: generationConfig{
			Temperature:     temperature,
			MaxOutputTokens: 2048,
		},
	}

	endpoint := fmt.Sprintf("%s?key=%s", c.baseURL, url.QueryEscape(c.apiKey))
	var resp geminiResponse
	if err := postJSON(ctx, c.httpClient, ProviderGoogle, endpoint, nil, body, &resp); err != nil {
		return "", err
	}

	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", &ProviderError{Code: CodeBadResponse, Provider: ProviderGoogle, Message: "no candidates in response"}
	}
	return resp.Candidates[0].Content.Parts[0].Text, nil
}

// ----------------------------------------------------------------------
// OpenAI-compatible chat completions (Groq, OpenRouter)

type chatClient struct {
	name       Provider
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
	headers    map[string]string
}

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []message `json:"messages"`
	Temperature float64   `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message message `json:"message"`
	} `json:"choices"`
}

func (c *chatClient) provider() Provider { return c.name }

func (c *chatClient) complete(ctx context.Context, prompt string, temperature float64) (string, error) {
	body := chatRequest{
		Model:       c.model,
		Messages:    []message{{Role: "user", Content: prompt}},
		Temperature: temperature,
	}

	headers := map[string]string{"Authorization": "Bearer " + c.apiKey}
	for k, v := range c.headers {
		headers[k] = v
	}

	var resp chatResponse
	if err := postJSON(ctx, c.httpClient, c.name, c.baseURL, headers, body, &resp); err != nil {
		return "", err
	}

	if len(resp.Choices) == 0 {
		return "", &ProviderError{Code: CodeBadResponse, Provider: c.name, Message: "no choices in response"}
	}
	return resp.Choices[0].Message.Content, nil
}

// postJSON posts body to endpoint and decodes a 200 response into out.
func postJSON(ctx context.Context, client *http.Client, p Provider, endpoint string, headers map[string]string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		code := CodeUnavailable
		if errors.Is(err, context.DeadlineExceeded) {
			code = CodeTimeout
		}
		return &ProviderError{Code: code, Provider: p, Message: "request failed", Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return parseError(p, resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &ProviderError{Code: CodeBadResponse, Provider: p, Status: resp.StatusCode, Message: "failed to decode response", Cause: err}
	}
	return nil
}

// parseError turns a non-200 response into a ProviderError.
func parseError(p Provider, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	code := CodeUnavailable
	if resp.StatusCode == http.StatusTooManyRequests {
		code = CodeRateLimited
	}
	return &ProviderError{
		Code:     code,
		Provider: p,
		Status:   resp.StatusCode,
		Message:  "API error: " + strings.TrimSpace(string(body)),
	}
}
