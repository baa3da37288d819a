// Package openai provides an LLM client for OpenAI and OpenAI-compatible
// chat completion endpoints, built on the official openai-go SDK.
package openai

import (
	"context"
	"errors"
	"strings"
	"time"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/rs/zerolog/log"

	"github.com/xostack/xoblog/apierr"
	"github.com/xostack/xoblog/config"
)

const (
	defaultOpenAIModel = "gpt-4o-mini"
	providerName       = "openai"
)

// Client implements the xoblog.Client interface for OpenAI.
type Client struct {
	client      *openai.Client
	modelName   string
	temperature float64
	maxTokens   int
}

// NewClient creates a new OpenAI client. baseURL points the SDK at a
// compatible gateway and may be empty.
func NewClient(apiKey string, baseURL string, mc config.ModelConfig, requestTimeoutSeconds int) (*Client, error) {
	if apiKey == "" {
		return nil, apierr.New(apierr.ErrAuthentication, providerName, "openai API key is required")
	}

	// Retries are owned by xoblog.WithRetry.
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if requestTimeoutSeconds > 0 {
		opts = append(opts, option.WithRequestTimeout(time.Duration(requestTimeoutSeconds)*time.Second))
	}

	modelToUse := defaultOpenAIModel
	if mc.Model != "" {
		modelToUse = mc.Model
	}
	log.Debug().Str("provider", providerName).Str("model", modelToUse).Msg("client configured")

	client := openai.NewClient(opts...)
	return &Client{
		client:      &client,
		modelName:   modelToUse,
		temperature: mc.Temperature,
		maxTokens:   mc.MaxTokens,
	}, nil
}

// Generate sends the prompt as a single user message and returns the
// content of the first choice.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	if c.client == nil {
		return "", errors.New("openai client not initialized")
	}

	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.modelName),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
	}
	params.Temperature = openai.Float(c.temperature)
	if c.maxTokens > 0 {
		params.MaxTokens = openai.Int(int64(c.maxTokens))
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", classifyError(ctx, err)
	}
	if len(resp.Choices) == 0 {
		return "", apierr.New(apierr.ErrUnknownProvider, providerName, "empty choices")
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", apierr.New(apierr.ErrUnknownProvider, providerName,
			"empty message content, finish reason: "+string(resp.Choices[0].FinishReason))
	}

	log.Debug().Str("provider", providerName).Str("model", resp.Model).
		Int64("completion_tokens", resp.Usage.CompletionTokens).Msg("completion received")
	return text, nil
}

func classifyError(ctx context.Context, err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		message := apiErr.Message
		if message == "" {
			message = apiErr.Error()
		}
		retryAfter := ""
		if apiErr.Response != nil {
			retryAfter = apiErr.Response.Header.Get("Retry-After")
		}
		return apierr.FromStatus(providerName, apiErr.StatusCode, message, retryAfter)
	}
	return apierr.FromTransport(ctx, providerName, err)
}

// ProviderName returns the name of this provider.
func (c *Client) ProviderName() string {
	return providerName
}

// Close is a no-op; the SDK holds no resources that need releasing.
func (c *Client) Close() error {
	return nil
}
