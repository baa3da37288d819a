package xoblog

import (
	"context"
	"fmt"

	"github.com/xostack/xoblog/apierr"
	"github.com/xostack/xoblog/config"
	"github.com/xostack/xoblog/gemini"
	"github.com/xostack/xoblog/groq"
	"github.com/xostack/xoblog/ollama"
	"github.com/xostack/xoblog/openai"
)

// GetClient returns an LLM client for cfg.DefaultProvider, bound to the
// provider's ModelConfig (model, temperature, max tokens).
//
// A cloud provider without an API key fails with apierr.ErrAuthentication
// before any network call is made.
//
// It is a variable so that tests can substitute a fake client.
var GetClient func(cfg config.Config) (Client, error) = func(cfg config.Config) (Client, error) {
	providerName := cfg.DefaultProvider
	if providerName == "" {
		return nil, fmt.Errorf("no default LLM provider specified in configuration")
	}

	llmCfg, exists := cfg.GetLLMConfig(providerName)
	if !exists {
		return nil, fmt.Errorf("configuration for provider '%s' not found", providerName)
	}

	requestTimeout := cfg.RequestTimeoutSeconds
	if requestTimeout <= 0 {
		requestTimeout = 60
	}
	mc := cfg.ModelFor(providerName)

	var (
		client Client
		err    error
	)
	switch providerName {
	case "groq":
		if llmCfg.APIKey == "" {
			return nil, missingKey(providerName)
		}
		client, err = groq.NewClient(llmCfg.APIKey, llmCfg.BaseURL, mc, requestTimeout)
	case "gemini":
		if llmCfg.APIKey == "" {
			return nil, missingKey(providerName)
		}
		client, err = gemini.NewClient(context.Background(), llmCfg.APIKey, llmCfg.BaseURL, mc, requestTimeout)
	case "openai":
		if llmCfg.APIKey == "" {
			return nil, missingKey(providerName)
		}
		client, err = openai.NewClient(llmCfg.APIKey, llmCfg.BaseURL, mc, requestTimeout)
	case "ollama":
		if llmCfg.BaseURL == "" {
			return nil, fmt.Errorf("base URL for Ollama not found in configuration")
		}
		client, err = ollama.NewClient(context.Background(), llmCfg.BaseURL, mc, requestTimeout)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", providerName)
	}
	// Keep a typed nil pointer out of the interface.
	if err != nil {
		return nil, err
	}
	return client, nil
}

func missingKey(provider string) error {
	return apierr.New(apierr.ErrAuthentication, provider,
		fmt.Sprintf("API key for %s not found in configuration or environment", provider))
}
