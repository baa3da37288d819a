package config

import "os"

// Environment variables read by ApplyEnv.
const (
	EnvProvider       = "XOBLOG_PROVIDER"
	EnvGroqAPIKey     = "GROQ_API_KEY"
	EnvGeminiAPIKey   = "GEMINI_API_KEY"
	EnvOpenAIAPIKey   = "OPENAI_API_KEY"
	EnvOpenAIBaseURL  = "OPENAI_BASE_URL"
	EnvOllamaHost     = "OLLAMA_HOST"
	EnvGoogleAPIKey   = "GOOGLE_API_KEY"
	EnvGoogleCSEID    = "GOOGLE_CSE_ID"
	EnvSearXNGURL     = "SEARXNG_URL"
	EnvSearchProvider = "XOBLOG_SEARCH_PROVIDER"
)

// ApplyEnv overrides cfg with the credentials and endpoints found in the
// environment. Unset or empty variables leave cfg untouched.
func ApplyEnv(cfg *Config) {
	if v := os.Getenv(EnvProvider); v != "" {
		cfg.DefaultProvider = v
	}

	setLLM := func(provider string, apply func(*LLMConfig)) {
		llmCfg, _ := cfg.GetLLMConfig(provider)
		apply(&llmCfg)
		cfg.SetLLMConfig(provider, llmCfg)
	}
	if v := os.Getenv(EnvGroqAPIKey); v != "" {
		setLLM("groq", func(l *LLMConfig) { l.APIKey = v })
	}
	if v := os.Getenv(EnvGeminiAPIKey); v != "" {
		setLLM("gemini", func(l *LLMConfig) { l.APIKey = v })
	}
	if v := os.Getenv(EnvOpenAIAPIKey); v != "" {
		setLLM("openai", func(l *LLMConfig) { l.APIKey = v })
	}
	if v := os.Getenv(EnvOpenAIBaseURL); v != "" {
		setLLM("openai", func(l *LLMConfig) { l.BaseURL = v })
	}
	if v := os.Getenv(EnvOllamaHost); v != "" {
		setLLM("ollama", func(l *LLMConfig) { l.BaseURL = v })
	}

	search := &cfg.Sources.Search
	if v := os.Getenv(EnvGoogleAPIKey); v != "" {
		search.APIKey = v
	}
	if v := os.Getenv(EnvGoogleCSEID); v != "" {
		search.EngineID = v
	}
	if v := os.Getenv(EnvSearXNGURL); v != "" {
		search.BaseURL = v
		// A SearXNG instance without Google credentials is an explicit choice.
		if search.APIKey == "" {
			search.Provider = "searxng"
		}
	}
	if v := os.Getenv(EnvSearchProvider); v != "" {
		search.Provider = v
	}
}
