// Package gemini provides an LLM client for Google's Gemini models.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/rs/zerolog/log"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/xostack/xoblog/apierr"
	"github.com/xostack/xoblog/config"
)

const (
	defaultGeminiModel = "gemini-1.5-flash-latest"
	providerName       = "gemini"
)

// Client implements the xoblog.Client interface for Gemini.
type Client struct {
	genaiClient *genai.Client
	modelName   string
	temperature float64
	maxTokens   int
	timeout     time.Duration
}

// NewClient creates a new Gemini client. baseURL overrides the API
// endpoint and may be empty. requestTimeoutSeconds bounds every
// Generate call; 0 leaves the caller's context in charge.
func NewClient(ctx context.Context, apiKey string, baseURL string, mc config.ModelConfig, requestTimeoutSeconds int) (*Client, error) {
	if apiKey == "" {
		return nil, apierr.New(apierr.ErrAuthentication, providerName, "Gemini API key is required")
	}

	opts := []option.ClientOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithEndpoint(baseURL))
	}

	genaiClient, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	modelToUse := defaultGeminiModel
	if mc.Model != "" {
		modelToUse = mc.Model
	}
	log.Debug().Str("provider", providerName).Str("model", modelToUse).Msg("client configured")

	return &Client{
		genaiClient: genaiClient,
		modelName:   modelToUse,
		temperature: mc.Temperature,
		maxTokens:   mc.MaxTokens,
		timeout:     time.Duration(requestTimeoutSeconds) * time.Second,
	}, nil
}

// Generate sends the prompt to the Gemini model and returns the text response.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	if c.genaiClient == nil {
		return "", fmt.Errorf("Gemini client not initialized")
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	model := c.genaiClient.GenerativeModel(c.modelName)
	model.SetTemperature(float32(c.temperature))
	if c.maxTokens > 0 {
		model.SetMaxOutputTokens(int32(c.maxTokens))
	}

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", classifyError(ctx, err)
	}

	// Use the first candidate and concatenate its text parts.
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		if len(resp.Candidates) > 0 && resp.Candidates[0].FinishReason == genai.FinishReasonSafety {
			return "", apierr.New(apierr.ErrUnknownProvider, providerName, "content generation blocked due to safety settings")
		}
		if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != genai.BlockReasonUnspecified {
			return "", apierr.New(apierr.ErrUnknownProvider, providerName, "prompt blocked: "+resp.PromptFeedback.BlockReason.String())
		}
		return "", apierr.New(apierr.ErrUnknownProvider, providerName, "response was empty or malformed")
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			sb.WriteString(string(txt))
		} else {
			log.Debug().Str("provider", providerName).Str("part", fmt.Sprintf("%T", part)).Msg("ignoring non-text part")
		}
	}

	resultText := strings.TrimSpace(sb.String())
	if resultText == "" {
		return "", apierr.New(apierr.ErrUnknownProvider, providerName, "response contained no usable text content")
	}

	return resultText, nil
}

// classifyError maps SDK failures, REST or gRPC, onto the apierr kinds.
func classifyError(ctx context.Context, err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		// An invalid key is reported as 400 INVALID_ARGUMENT.
		if gerr.Code == 400 && strings.Contains(gerr.Message, "API key") {
			return apierr.New(apierr.ErrAuthentication, providerName, gerr.Message)
		}
		return apierr.FromStatus(providerName, gerr.Code, gerr.Message, gerr.Header.Get("Retry-After"))
	}

	if s, ok := status.FromError(err); ok {
		switch s.Code() {
		case codes.Unauthenticated, codes.PermissionDenied:
			return apierr.New(apierr.ErrAuthentication, providerName, s.Message())
		case codes.InvalidArgument:
			if strings.Contains(s.Message(), "API key") {
				return apierr.New(apierr.ErrAuthentication, providerName, s.Message())
			}
		case codes.ResourceExhausted:
			return apierr.New(apierr.ErrRateLimited, providerName, s.Message())
		case codes.DeadlineExceeded:
			return apierr.New(apierr.ErrGenerationTimeout, providerName, s.Message())
		}
	}

	return apierr.FromTransport(ctx, providerName, err)
}

// ProviderName returns the name of this provider.
func (c *Client) ProviderName() string {
	return providerName
}

// Close releases the underlying genai client.
func (c *Client) Close() error {
	if c.genaiClient != nil {
		return c.genaiClient.Close()
	}
	return nil
}
