package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/BurntSushi/toml"

	"github.com/xostack/xoblog/apierr"
)

// clearEnv blanks every variable ApplyEnv reads so that the host
// environment cannot leak into a test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		EnvProvider, EnvGroqAPIKey, EnvGeminiAPIKey, EnvOpenAIAPIKey, EnvOpenAIBaseURL,
		EnvOllamaHost, EnvGoogleAPIKey, EnvGoogleCSEID, EnvSearXNGURL, EnvSearchProvider,
	} {
		t.Setenv(key, "")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if cfg.DefaultProvider != "groq" {
		t.Errorf("Expected default provider 'groq', got '%s'", cfg.DefaultProvider)
	}

	if cfg.RequestTimeoutSeconds != 60 {
		t.Errorf("Expected default timeout 60, got %d", cfg.RequestTimeoutSeconds)
	}

	for _, provider := range SupportedProviders() {
		if _, exists := cfg.LLMs[provider]; !exists {
			t.Errorf("Expected provider '%s' to be configured by default", provider)
		}
	}

	if cfg.LLMs["ollama"].BaseURL != "http://localhost:11434" {
		t.Errorf("Expected ollama default URL 'http://localhost:11434', got '%s'", cfg.LLMs["ollama"].BaseURL)
	}

	if cfg.Generation.Temperature != 0.7 || cfg.Generation.MaxTokens != 4000 || cfg.Generation.WordCount != 1500 {
		t.Errorf("Unexpected generation defaults: %+v", cfg.Generation)
	}

	if cfg.Sources.Wikipedia.TopK != 2 || cfg.Sources.Wikipedia.MaxChars != 4000 {
		t.Errorf("Unexpected wikipedia defaults: %+v", cfg.Sources.Wikipedia)
	}

	if cfg.Sources.Search.Results != 5 {
		t.Errorf("Expected 5 search results by default, got %d", cfg.Sources.Search.Results)
	}
}

func TestConfig_GetLLMConfig(t *testing.T) {
	cfg := Config{
		LLMs: map[string]LLMConfig{
			"test-provider": {
				APIKey: "test-key",
				Model:  "test-model",
			},
		},
	}

	llmCfg, exists := cfg.GetLLMConfig("test-provider")
	if !exists {
		t.Error("Expected provider to exist")
	}
	if llmCfg.APIKey != "test-key" {
		t.Errorf("Expected API key 'test-key', got '%s'", llmCfg.APIKey)
	}

	_, exists = cfg.GetLLMConfig("non-existent")
	if exists {
		t.Error("Expected provider to not exist")
	}
}

func TestConfig_ModelFor(t *testing.T) {
	cfg := NewConfig("groq", 30, map[string]LLMConfig{
		"groq": {APIKey: "k", Model: "llama-3.3-70b-versatile"},
	})
	cfg.Generation.Temperature = 0.2
	cfg.Generation.MaxTokens = 512

	mc := cfg.ModelFor("groq")
	if mc.Model != "llama-3.3-70b-versatile" {
		t.Errorf("Expected model override, got '%s'", mc.Model)
	}
	if mc.Temperature != 0.2 || mc.MaxTokens != 512 {
		t.Errorf("Expected sampling settings from generation section, got %+v", mc)
	}

	if mc := cfg.ModelFor("unknown"); mc.Model != "" {
		t.Errorf("Expected empty model for unknown provider, got '%s'", mc.Model)
	}
}

func TestGetConfigFilePath_WithXDGConfigHome(t *testing.T) {
	testDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", testDir)

	path, err := GetConfigFilePath()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	expected := filepath.Join(testDir, "xoblog", "config.toml")
	if path != expected {
		t.Errorf("Expected path '%s', got '%s'", expected, path)
	}
}

func TestGetConfigFilePath_NoXDGConfigHome(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "")

	path, err := GetConfigFilePath()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if !strings.HasSuffix(path, filepath.Join(".config", "xoblog", "config.toml")) {
		t.Errorf("Expected path to end with '.config/xoblog/config.toml', got '%s'", path)
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv(EnvGroqAPIKey, "env-groq-key")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if cfg.DefaultProvider != "groq" {
		t.Errorf("Expected default provider 'groq', got '%s'", cfg.DefaultProvider)
	}
	if cfg.LLMs["groq"].APIKey != "env-groq-key" {
		t.Errorf("Expected API key from environment, got '%s'", cfg.LLMs["groq"].APIKey)
	}
}

func TestLoadFromFile(t *testing.T) {
	clearEnv(t)

	configPath := filepath.Join(t.TempDir(), "config.toml")
	configContent := `default_provider = "ollama"
request_timeout_seconds = 45

[llms.ollama]
base_url = "http://localhost:11434"
model = "llama3.1:8b"

[llms.gemini]
api_key = "test-key"

[generation]
temperature = 0.3
word_count = 900

[sources.search]
provider = "searxng"
base_url = "http://localhost:8888"
`
	if err := os.WriteFile(configPath, []byte(configContent), 0600); err != nil {
		t.Fatalf("Failed to create test config file: %v", err)
	}

	cfg, err := LoadFromFile(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.DefaultProvider != "ollama" {
		t.Errorf("Expected default provider 'ollama', got '%s'", cfg.DefaultProvider)
	}
	if cfg.RequestTimeoutSeconds != 45 {
		t.Errorf("Expected timeout 45, got %d", cfg.RequestTimeoutSeconds)
	}
	if cfg.Generation.Temperature != 0.3 {
		t.Errorf("Expected temperature 0.3, got %v", cfg.Generation.Temperature)
	}
	if cfg.Generation.WordCount != 900 {
		t.Errorf("Expected word count 900, got %d", cfg.Generation.WordCount)
	}
	// Keys absent from the file keep their defaults.
	if cfg.Generation.MaxTokens != 4000 {
		t.Errorf("Expected default max tokens 4000, got %d", cfg.Generation.MaxTokens)
	}
	if cfg.Sources.Search.Provider != "searxng" {
		t.Errorf("Expected search provider 'searxng', got '%s'", cfg.Sources.Search.Provider)
	}
	if cfg.LLMs["ollama"].Model != "llama3.1:8b" {
		t.Errorf("Expected ollama model 'llama3.1:8b', got '%s'", cfg.LLMs["ollama"].Model)
	}
}

func TestLoadFromFile_ProviderTableKeepsDefaults(t *testing.T) {
	clearEnv(t)

	configPath := filepath.Join(t.TempDir(), "config.toml")
	configContent := `default_provider = "ollama"

[llms.ollama]
model = "llama3.1:8b"
`
	if err := os.WriteFile(configPath, []byte(configContent), 0600); err != nil {
		t.Fatalf("Failed to create test config file: %v", err)
	}

	cfg, err := LoadFromFile(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	ollama := cfg.LLMs["ollama"]
	if ollama.Model != "llama3.1:8b" {
		t.Errorf("Expected ollama model 'llama3.1:8b', got '%s'", ollama.Model)
	}
	if ollama.BaseURL != "http://localhost:11434" {
		t.Errorf("Expected default ollama base URL, got '%s'", ollama.BaseURL)
	}
	if _, ok := cfg.LLMs["groq"]; !ok {
		t.Error("Expected groq entry to survive decoding")
	}
	if err := Validate(cfg); err != nil {
		t.Errorf("Expected valid config, got: %v", err)
	}
}

func TestLoadFromFile_NotFound(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "missing.toml"))
	if err == nil {
		t.Fatal("Expected error for missing file")
	}
	if !strings.Contains(err.Error(), "configuration file not found") {
		t.Errorf("Unexpected error: %v", err)
	}
}

func TestLoadFromFile_InvalidTOML(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "invalid.toml")
	if err := os.WriteFile(configPath, []byte("default_provider = \"groq\n[llms.groq"), 0600); err != nil {
		t.Fatalf("Failed to create test config file: %v", err)
	}

	_, err := LoadFromFile(configPath)
	if err == nil {
		t.Fatal("Expected error for invalid TOML")
	}
	if !strings.Contains(err.Error(), "failed to decode TOML") {
		t.Errorf("Unexpected error: %v", err)
	}
}

func TestApplyEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvProvider, "gemini")
	t.Setenv(EnvGeminiAPIKey, "gem-key")
	t.Setenv(EnvOllamaHost, "http://ollama:11434")
	t.Setenv(EnvGoogleAPIKey, "google-key")
	t.Setenv(EnvGoogleCSEID, "cse-id")

	cfg := defaultConfig()
	ApplyEnv(&cfg)

	if cfg.DefaultProvider != "gemini" {
		t.Errorf("Expected provider 'gemini', got '%s'", cfg.DefaultProvider)
	}
	if cfg.LLMs["gemini"].APIKey != "gem-key" {
		t.Errorf("Expected gemini key from env, got '%s'", cfg.LLMs["gemini"].APIKey)
	}
	if cfg.LLMs["ollama"].BaseURL != "http://ollama:11434" {
		t.Errorf("Expected ollama host from env, got '%s'", cfg.LLMs["ollama"].BaseURL)
	}
	if cfg.Sources.Search.APIKey != "google-key" || cfg.Sources.Search.EngineID != "cse-id" {
		t.Errorf("Expected google search credentials from env, got %+v", cfg.Sources.Search)
	}
	if cfg.Sources.Search.Provider != "google" {
		t.Errorf("Expected search provider to stay 'google', got '%s'", cfg.Sources.Search.Provider)
	}
}

func TestApplyEnv_SearXNGWithoutGoogleKey(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvSearXNGURL, "http://searx:8080")

	cfg := defaultConfig()
	ApplyEnv(&cfg)

	if cfg.Sources.Search.Provider != "searxng" {
		t.Errorf("Expected search provider 'searxng', got '%s'", cfg.Sources.Search.Provider)
	}
	if cfg.Sources.Search.BaseURL != "http://searx:8080" {
		t.Errorf("Expected SearXNG URL from env, got '%s'", cfg.Sources.Search.BaseURL)
	}
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return NewConfig("groq", 30, map[string]LLMConfig{"groq": {APIKey: "k"}})
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"no provider", func(c *Config) { c.DefaultProvider = "" }, "no default LLM provider"},
		{"provider not configured", func(c *Config) { c.DefaultProvider = "gemini" }, "configuration for provider 'gemini' not found"},
		{"missing api key", func(c *Config) { c.LLMs["groq"] = LLMConfig{} }, "API key for groq not found"},
		{"unsupported provider", func(c *Config) {
			c.DefaultProvider = "acme"
			c.LLMs["acme"] = LLMConfig{APIKey: "k"}
		}, "unsupported LLM provider: acme"},
		{"ollama without url", func(c *Config) {
			c.DefaultProvider = "ollama"
			c.LLMs["ollama"] = LLMConfig{}
		}, "base URL for ollama"},
		{"temperature too high", func(c *Config) { c.Generation.Temperature = 2.5 }, "invalid temperature"},
		{"zero max tokens", func(c *Config) { c.Generation.MaxTokens = 0 }, "invalid max tokens"},
		{"word count too small", func(c *Config) { c.Generation.WordCount = 100 }, "invalid word count"},
		{"negative retries", func(c *Config) { c.Retry.TimeoutRetries = -1 }, "retry settings"},
		{"unknown search provider", func(c *Config) { c.Sources.Search.Provider = "bing" }, "unsupported search provider"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := Validate(cfg)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Expected no error, got: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Expected error containing '%s'", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error containing '%s', got '%s'", tt.wantErr, err.Error())
			}
		})
	}
}

func TestValidate_MissingKeyIsAuthentication(t *testing.T) {
	cfg := NewConfig("openai", 30, map[string]LLMConfig{"openai": {}})
	err := Validate(cfg)
	if !errors.Is(err, apierr.ErrAuthentication) {
		t.Errorf("Expected ErrAuthentication, got %v", err)
	}
}

func TestTemplate_DecodesToValidConfig(t *testing.T) {
	cfg := defaultConfig()
	meta, err := toml.Decode(Template(), &cfg)
	if err != nil {
		t.Fatalf("Template is not valid TOML: %v", err)
	}
	if len(meta.Undecoded()) > 0 {
		t.Errorf("Template contains unknown keys: %v", meta.Undecoded())
	}

	cfg.LLMs["groq"] = LLMConfig{APIKey: "k", Model: cfg.LLMs["groq"].Model}
	if err := Validate(cfg); err != nil {
		t.Errorf("Expected template to validate once a key is set, got: %v", err)
	}
}

func TestWriteTemplate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")

	if err := WriteTemplate(path); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Expected config file to exist: %v", err)
	}
	if info.Mode().Perm() != DefaultFilePerm {
		t.Errorf("Expected permissions %o, got %o", DefaultFilePerm, info.Mode().Perm())
	}

	if err := WriteTemplate(path); err == nil {
		t.Error("Expected error when the file already exists")
	}
}
