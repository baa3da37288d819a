// Package groq provides an LLM client for Groq's cloud API.
package groq

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/xostack/xoblog/apierr"
	"github.com/xostack/xoblog/config"
)

const (
	defaultGroqModel = "llama-3.1-8b-instant"
	providerName     = "groq"
	groqAPIEndpoint  = "https://api.groq.com/openai/v1/chat/completions"
)

// Client implements the xoblog.Client interface for Groq.
type Client struct {
	httpClient  *http.Client
	endpoint    string
	apiKey      string
	modelName   string
	temperature float64
	maxTokens   int
}

// groqChatMessage represents a single message in the chat completion request.
type groqChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// groqChatCompletionRequest is the structure for the request body to Groq's API.
type groqChatCompletionRequest struct {
	Messages    []groqChatMessage `json:"messages"`
	Model       string            `json:"model"`
	Temperature *float64          `json:"temperature,omitempty"`
	MaxTokens   *int              `json:"max_tokens,omitempty"`
	Stream      bool              `json:"stream"`
}

type groqChatCompletionResponseChoice struct {
	Index   int `json:"index"`
	Message struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"message"`
	FinishReason string `json:"finish_reason"`
}

type groqUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// groqChatCompletionResponse is the structure for the response from Groq's API.
type groqChatCompletionResponse struct {
	ID      string                             `json:"id"`
	Model   string                             `json:"model"`
	Choices []groqChatCompletionResponseChoice `json:"choices"`
	Usage   groqUsage                          `json:"usage"`
	Error   *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code,omitempty"`
	} `json:"error,omitempty"`
}

// NewClient creates a new Groq client. baseURL overrides the public
// endpoint (an OpenAI-compatible chat completions URL) and may be empty.
func NewClient(apiKey string, baseURL string, mc config.ModelConfig, requestTimeoutSeconds int) (*Client, error) {
	if apiKey == "" {
		return nil, apierr.New(apierr.ErrAuthentication, providerName, "groq API key is required")
	}

	modelToUse := defaultGroqModel
	if mc.Model != "" {
		modelToUse = mc.Model
	}
	endpoint := groqAPIEndpoint
	if baseURL != "" {
		endpoint = baseURL
	}
	if requestTimeoutSeconds <= 0 {
		requestTimeoutSeconds = 60
	}
	log.Debug().Str("provider", providerName).Str("model", modelToUse).Str("endpoint", endpoint).Msg("client configured")

	return &Client{
		httpClient: &http.Client{
			Timeout: time.Duration(requestTimeoutSeconds) * time.Second,
		},
		endpoint:    endpoint,
		apiKey:      apiKey,
		modelName:   modelToUse,
		temperature: mc.Temperature,
		maxTokens:   mc.MaxTokens,
	}, nil
}

// Generate sends the prompt to the Groq model as a single user message and
// returns the text response. Retrying is left to the caller.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	if c.httpClient == nil {
		return "", fmt.Errorf("groq client not initialized")
	}

	payload := groqChatCompletionRequest{
		Messages:    []groqChatMessage{{Role: "user", Content: prompt}},
		Model:       c.modelName,
		Stream:      false,
		Temperature: &c.temperature,
	}
	if c.maxTokens > 0 {
		payload.MaxTokens = &c.maxTokens
	}

	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal Groq request payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payloadBytes))
	if err != nil {
		return "", fmt.Errorf("failed to create Groq request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", apierr.FromTransport(ctx, providerName, err)
	}
	defer resp.Body.Close()

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", apierr.FromTransport(ctx, providerName, fmt.Errorf("failed to read Groq response body: %w", err))
	}

	var groqResp groqChatCompletionResponse
	jsonErr := json.Unmarshal(responseBody, &groqResp)

	if resp.StatusCode != http.StatusOK {
		message := strings.TrimSpace(string(responseBody))
		if jsonErr == nil && groqResp.Error != nil {
			message = groqResp.Error.Message
		}
		return "", apierr.FromStatus(providerName, resp.StatusCode, message, resp.Header.Get("Retry-After"))
	}

	if jsonErr != nil {
		return "", apierr.New(apierr.ErrUnknownProvider, providerName,
			fmt.Sprintf("failed to unmarshal response JSON: %v. Body: %s", jsonErr, string(responseBody)))
	}
	if groqResp.Error != nil {
		return "", apierr.New(apierr.ErrUnknownProvider, providerName,
			fmt.Sprintf("%s (type: %s, code: %s)", groqResp.Error.Message, groqResp.Error.Type, groqResp.Error.Code))
	}

	if len(groqResp.Choices) == 0 || strings.TrimSpace(groqResp.Choices[0].Message.Content) == "" {
		finishReason := "N/A"
		if len(groqResp.Choices) > 0 {
			finishReason = groqResp.Choices[0].FinishReason
		}
		log.Warn().Str("provider", providerName).Str("id", groqResp.ID).Str("finish_reason", finishReason).
			Int("total_tokens", groqResp.Usage.TotalTokens).Msg("empty completion")
		return "", apierr.New(apierr.ErrUnknownProvider, providerName, "response contained no choices or empty message content")
	}

	log.Debug().Str("provider", providerName).Str("model", groqResp.Model).
		Int("completion_tokens", groqResp.Usage.CompletionTokens).Msg("completion received")

	return strings.TrimSpace(groqResp.Choices[0].Message.Content), nil
}

// ProviderName returns the name of this provider.
func (c *Client) ProviderName() string {
	return providerName
}

// Close is a no-op; the default transport needs no cleanup.
func (c *Client) Close() error {
	return nil
}
