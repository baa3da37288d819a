// Package ollama provides an LLM client for Ollama models.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/xostack/xoblog/apierr"
	"github.com/xostack/xoblog/config"
)

const (
	defaultOllamaModel = "llama3.1:8b"
	providerName       = "ollama"
	generateAPIPath    = "/api/generate"
)

// Client implements the xoblog.Client interface for Ollama.
type Client struct {
	httpClient  *http.Client
	baseURL     string // e.g., "http://localhost:11434"
	modelName   string
	temperature float64
	maxTokens   int
}

// ollamaOptions carries the sampling parameters understood by Ollama.
type ollamaOptions struct {
	Temperature *float64 `json:"temperature,omitempty"`
	NumPredict  *int     `json:"num_predict,omitempty"`
}

// ollamaGenerateRequest is the request body for /api/generate.
type ollamaGenerateRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	Stream  bool           `json:"stream"`
	Options *ollamaOptions `json:"options,omitempty"`
}

// ollamaGenerateResponse is the response from /api/generate when stream is false.
type ollamaGenerateResponse struct {
	Model     string    `json:"model"`
	CreatedAt time.Time `json:"created_at"`
	Response  string    `json:"response"`
	Done      bool      `json:"done"`
	EvalCount int       `json:"eval_count,omitempty"`
	Error     string    `json:"error,omitempty"`
}

// NewClient creates a new Ollama client for the server at baseURL
// (e.g., "http://localhost:11434"). When requestTimeoutSeconds is 0 the
// deadline of ctx, if any, bounds every request instead.
func NewClient(ctx context.Context, baseURL string, mc config.ModelConfig, requestTimeoutSeconds int) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("Ollama base URL is required")
	}
	parsedURL, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid Ollama base URL '%s': %w", baseURL, err)
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return nil, fmt.Errorf("Ollama base URL scheme must be http or https, got '%s'", parsedURL.Scheme)
	}
	cleanedBaseURL := strings.TrimSuffix(parsedURL.String(), "/")

	modelToUse := defaultOllamaModel
	if mc.Model != "" {
		modelToUse = mc.Model
	}

	timeout := time.Duration(requestTimeoutSeconds) * time.Second
	if requestTimeoutSeconds <= 0 {
		if deadline, ok := ctx.Deadline(); ok {
			timeout = time.Until(deadline)
		} else {
			timeout = 60 * time.Second
		}
	}
	log.Debug().Str("provider", providerName).Str("model", modelToUse).Dur("timeout", timeout).Msg("client configured")

	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL:     cleanedBaseURL,
		modelName:   modelToUse,
		temperature: mc.Temperature,
		maxTokens:   mc.MaxTokens,
	}, nil
}

// Generate sends the prompt to the Ollama model and returns the text response.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	if c.httpClient == nil {
		return "", fmt.Errorf("Ollama client not initialized")
	}

	payload := ollamaGenerateRequest{
		Model:  c.modelName,
		Prompt: prompt,
		Stream: false,
	}
	payload.Options = &ollamaOptions{Temperature: &c.temperature}
	if c.maxTokens > 0 {
		payload.Options.NumPredict = &c.maxTokens
	}

	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal Ollama request payload: %w", err)
	}

	requestURL := c.baseURL + generateAPIPath
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, requestURL, bytes.NewReader(payloadBytes))
	if err != nil {
		return "", fmt.Errorf("failed to create Ollama request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", apierr.FromTransport(ctx, providerName, err)
	}
	defer resp.Body.Close()

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", apierr.FromTransport(ctx, providerName, fmt.Errorf("failed to read Ollama response body: %w", err))
	}

	if resp.StatusCode != http.StatusOK {
		message := strings.TrimSpace(string(responseBody))
		var errResp ollamaGenerateResponse
		if json.Unmarshal(responseBody, &errResp) == nil && errResp.Error != "" {
			message = errResp.Error
		}
		return "", apierr.FromStatus(providerName, resp.StatusCode, message, resp.Header.Get("Retry-After"))
	}

	var ollamaResp ollamaGenerateResponse
	if err := json.Unmarshal(responseBody, &ollamaResp); err != nil {
		return "", apierr.New(apierr.ErrUnknownProvider, providerName,
			fmt.Sprintf("failed to unmarshal response JSON: %v. Raw response: %s", err, string(responseBody)))
	}

	if ollamaResp.Error != "" {
		return "", apierr.New(apierr.ErrUnknownProvider, providerName, ollamaResp.Error)
	}

	text := strings.TrimSpace(ollamaResp.Response)
	if text == "" {
		return "", apierr.New(apierr.ErrUnknownProvider, providerName, "response contained no text")
	}

	log.Debug().Str("provider", providerName).Str("model", ollamaResp.Model).Int("eval_count", ollamaResp.EvalCount).Msg("completion received")
	return text, nil
}

// ProviderName returns the name of this provider.
func (c *Client) ProviderName() string {
	return providerName
}

// Close is a no-op; the default transport needs no cleanup.
func (c *Client) Close() error {
	return nil
}
