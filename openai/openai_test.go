package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/xostack/xoblog/apierr"
	"github.com/xostack/xoblog/config"
)

const okBody = `{
	"id": "chatcmpl-1",
	"object": "chat.completion",
	"created": 1700000000,
	"model": "gpt-4o-mini",
	"choices": [
		{"index": 0, "message": {"role": "assistant", "content": " A conclusion. "}, "finish_reason": "stop"}
	],
	"usage": {"prompt_tokens": 5, "completion_tokens": 3, "total_tokens": 8}
}`

func newTestClient(t *testing.T, mc config.ModelConfig, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient("test-api-key", server.URL+"/", mc, 10)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	return client
}

func TestNewClient_EmptyAPIKey(t *testing.T) {
	client, err := NewClient("", "", config.ModelConfig{}, 30)
	if client != nil {
		t.Error("Expected client to be nil when error occurs")
	}
	if !errors.Is(err, apierr.ErrAuthentication) {
		t.Errorf("Expected ErrAuthentication, got %v", err)
	}
}

func TestNewClient_DefaultModel(t *testing.T) {
	client, err := NewClient("k", "", config.ModelConfig{}, 30)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if client.modelName != defaultOpenAIModel {
		t.Errorf("Expected default model '%s', got '%s'", defaultOpenAIModel, client.modelName)
	}
	if client.ProviderName() != "openai" {
		t.Errorf("Expected provider name 'openai', got '%s'", client.ProviderName())
	}
}

func TestOpenAIClient_Generate_Success(t *testing.T) {
	var body map[string]any
	client := newTestClient(t, config.ModelConfig{Model: "gpt-4o", Temperature: 0.5, MaxTokens: 300}, func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-api-key" {
			t.Errorf("Expected Bearer token, got %s", r.Header.Get("Authorization"))
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("Failed to decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(okBody))
	})

	text, err := client.Generate(context.Background(), "Write a conclusion")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if text != "A conclusion." {
		t.Errorf("Expected 'A conclusion.', got '%s'", text)
	}

	if body["model"] != "gpt-4o" {
		t.Errorf("Expected model 'gpt-4o', got %v", body["model"])
	}
	if body["temperature"] != 0.5 {
		t.Errorf("Expected temperature 0.5, got %v", body["temperature"])
	}
	if body["max_tokens"] != float64(300) {
		t.Errorf("Expected max_tokens 300, got %v", body["max_tokens"])
	}
}

func TestOpenAIClient_Generate_ZeroTemperatureIsSent(t *testing.T) {
	var body map[string]any
	client := newTestClient(t, config.ModelConfig{Temperature: 0}, func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("Failed to decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(okBody))
	})

	if _, err := client.Generate(context.Background(), "Write a conclusion"); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	temp, ok := body["temperature"]
	if !ok {
		t.Fatalf("Expected temperature in request body, got %v", body)
	}
	if temp != float64(0) {
		t.Errorf("Expected temperature 0, got %v", temp)
	}
}

func TestOpenAIClient_Generate_StatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   error
	}{
		{"unauthorized", http.StatusUnauthorized, apierr.ErrAuthentication},
		{"rate limited", http.StatusTooManyRequests, apierr.ErrRateLimited},
		{"bad request", http.StatusBadRequest, apierr.ErrUnknownProvider},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			client := newTestClient(t, config.ModelConfig{}, func(w http.ResponseWriter, r *http.Request) {
				calls++
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("Retry-After", "1")
				w.WriteHeader(tt.status)
				w.Write([]byte(`{"error":{"message":"nope","type":"invalid_request_error"}}`))
			})

			_, err := client.Generate(context.Background(), "prompt")
			if !errors.Is(err, tt.want) {
				t.Fatalf("Expected %v, got %v", tt.want, err)
			}
			if calls != 1 {
				t.Errorf("Expected exactly one request (SDK retries disabled), got %d", calls)
			}
		})
	}
}

func TestOpenAIClient_Generate_EmptyChoices(t *testing.T) {
	client := newTestClient(t, config.ModelConfig{}, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"x","object":"chat.completion","created":1,"model":"gpt-4o-mini","choices":[]}`))
	})

	_, err := client.Generate(context.Background(), "prompt")
	if !errors.Is(err, apierr.ErrUnknownProvider) {
		t.Errorf("Expected ErrUnknownProvider, got %v", err)
	}
}

func TestOpenAIClient_Generate_Timeout(t *testing.T) {
	client := newTestClient(t, config.ModelConfig{}, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := client.Generate(ctx, "prompt")
	if !errors.Is(err, apierr.ErrGenerationTimeout) {
		t.Errorf("Expected ErrGenerationTimeout, got %v", err)
	}
}

func TestOpenAIClient_Generate_NilClient(t *testing.T) {
	client := &Client{modelName: "m"}
	_, err := client.Generate(context.Background(), "prompt")
	if err == nil || err.Error() != "openai client not initialized" {
		t.Errorf("Expected 'openai client not initialized', got %v", err)
	}
}
