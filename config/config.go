// Package config handles loading and managing xoblog configuration.
//
// Configuration is layered: built-in defaults, then an optional TOML file
// following the XDG Base Directory specification, then environment
// variables. Command-line flags are applied on top by the CLI.
//
// Example TOML configuration:
//
//	default_provider = "groq"
//	request_timeout_seconds = 60
//
//	[llms.groq]
//	api_key = "your-groq-api-key"
//	model = "llama-3.1-8b-instant"
//
//	[generation]
//	temperature = 0.7
//	max_tokens = 4000
//	word_count = 1500
//
//	[sources.search]
//	provider = "google"
//	api_key = "your-google-api-key"
//	engine_id = "your-cse-id"
//
// Example programmatic usage:
//
//	cfg := config.NewConfig("groq", 30, map[string]config.LLMConfig{
//		"groq": {APIKey: "key"},
//	})
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/rs/zerolog/log"

	"github.com/xostack/xoblog/apierr"
)

const (
	appName         = "xoblog"
	configFileName  = "config.toml"
	DefaultDirPerm  = 0750 // rwxr-x---
	DefaultFilePerm = 0600 // rw------- (contains secrets)
)

// Word count bounds accepted for a generated post.
const (
	MinWordCount     = 500
	MaxWordCount     = 3000
	DefaultWordCount = 1500
)

// Config holds the application's configuration.
type Config struct {
	// DefaultProvider selects the LLM provider. Must match a key in LLMs.
	DefaultProvider string `toml:"default_provider"`

	// RequestTimeoutSeconds bounds a single generation request.
	// If <= 0, a default of 60 seconds is used.
	RequestTimeoutSeconds int `toml:"request_timeout_seconds"`

	// LLMs contains provider-specific settings keyed by provider name.
	LLMs map[string]LLMConfig `toml:"llms"`

	Generation GenerationConfig `toml:"generation"`
	Retry      RetryConfig      `toml:"retry"`
	Sources    SourcesConfig    `toml:"sources"`
}

// LLMConfig holds configuration specific to an LLM provider.
//
// Cloud providers (groq, gemini, openai) require APIKey, ollama requires
// BaseURL. Model is an optional override of the provider's default model.
// BaseURL on a cloud provider points it at a compatible gateway.
type LLMConfig struct {
	BaseURL string `toml:"base_url,omitempty"`
	APIKey  string `toml:"api_key,omitempty"`
	Model   string `toml:"model,omitempty"`
}

// GenerationConfig holds the sampling settings shared by all providers.
type GenerationConfig struct {
	Temperature float64 `toml:"temperature"`
	MaxTokens   int     `toml:"max_tokens"`
	// WordCount is the target length of the whole post.
	WordCount int `toml:"word_count"`
	// Sequential disables concurrent section generation.
	Sequential bool `toml:"sequential"`
}

// RetryConfig bounds how often a failed generation is tried again.
type RetryConfig struct {
	MaxRateLimitRetries int `toml:"max_rate_limit_retries"`
	BackoffSeconds      int `toml:"backoff_seconds"`
	TimeoutRetries      int `toml:"timeout_retries"`
}

// SourcesConfig configures the content sources used to enrich prompts.
type SourcesConfig struct {
	Wikipedia WikipediaConfig `toml:"wikipedia"`
	Search    SearchConfig    `toml:"search"`
}

// WikipediaConfig configures the encyclopedia lookup.
type WikipediaConfig struct {
	Language string `toml:"language"`
	TopK     int    `toml:"top_k"`
	MaxChars int    `toml:"max_chars"`
	// BaseURL overrides the MediaWiki API endpoint derived from Language.
	BaseURL string `toml:"base_url,omitempty"`
}

// SearchConfig configures the web search backend.
type SearchConfig struct {
	// Provider is "google" (Programmable Search) or "searxng".
	Provider string `toml:"provider"`
	APIKey   string `toml:"api_key,omitempty"`
	EngineID string `toml:"engine_id,omitempty"`
	// BaseURL is the SearXNG instance, or an endpoint override for google.
	BaseURL string `toml:"base_url,omitempty"`
	Results int    `toml:"results"`
	// FetchPages is the number of top results whose pages are downloaded
	// and reduced to readable text. 0 keeps the search snippets only.
	FetchPages int `toml:"fetch_pages"`
}

// ModelConfig is the model selection and sampling used for one client.
type ModelConfig struct {
	Model       string
	Temperature float64
	MaxTokens   int
}

// SupportedProviders lists the LLM providers known to xoblog.
func SupportedProviders() []string {
	return []string{"groq", "gemini", "ollama", "openai"}
}

// Default configuration values.
func defaultConfig() Config {
	return Config{
		DefaultProvider:       "groq",
		RequestTimeoutSeconds: 60,
		LLMs: map[string]LLMConfig{
			"groq":   {},
			"gemini": {},
			"openai": {},
			"ollama": {
				BaseURL: "http://localhost:11434",
			},
		},
		Generation: GenerationConfig{
			Temperature: 0.7,
			MaxTokens:   4000,
			WordCount:   DefaultWordCount,
		},
		Retry: RetryConfig{
			MaxRateLimitRetries: 3,
			BackoffSeconds:      1,
			TimeoutRetries:      1,
		},
		Sources: SourcesConfig{
			Wikipedia: WikipediaConfig{
				Language: "en",
				TopK:     2,
				MaxChars: 4000,
			},
			Search: SearchConfig{
				Provider: "google",
				Results:  5,
			},
		},
	}
}

// Default returns the built-in configuration.
func Default() Config {
	return defaultConfig()
}

// GetConfigFilePath determines the configuration file path based on XDG specs:
// $XDG_CONFIG_HOME/xoblog/config.toml, or $HOME/.config/xoblog/config.toml.
//
// The returned path may not exist.
func GetConfigFilePath() (string, error) {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("could not determine user home directory: %w", err)
		}
		configHome = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(configHome, appName, configFileName), nil
}

// Load reads the default configuration file if it exists, merges it over
// the defaults and applies environment overrides. A missing file is not an
// error: a run configured purely through the environment is valid.
func Load() (Config, error) {
	cfgPath, err := GetConfigFilePath()
	if err != nil {
		return Config{}, fmt.Errorf("failed to determine config path: %w", err)
	}

	cfg := defaultConfig()

	if _, err := os.Stat(cfgPath); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("failed to access config file %s: %w", cfgPath, err)
		}
		log.Debug().Str("path", cfgPath).Msg("configuration file not found, using defaults")
	} else if err := decodeFile(cfgPath, &cfg); err != nil {
		return Config{}, err
	}

	ApplyEnv(&cfg)
	return cfg, nil
}

// LoadFromFile loads configuration from a specific file path, merges it
// over the defaults and applies environment overrides. Unlike Load, the
// file must exist.
func LoadFromFile(filePath string) (Config, error) {
	cfg := defaultConfig()

	if _, err := os.Stat(filePath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("configuration file not found at %s", filePath)
		}
		return Config{}, fmt.Errorf("failed to access config file %s: %w", filePath, err)
	}

	if err := decodeFile(filePath, &cfg); err != nil {
		return Config{}, err
	}

	ApplyEnv(&cfg)
	return cfg, nil
}

func decodeFile(path string, cfg *Config) error {
	log.Debug().Str("path", path).Msg("loading configuration")
	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return fmt.Errorf("failed to decode TOML config file %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		log.Warn().Str("path", path).Msgf("unknown configuration keys: %v", undecoded)
	}
	if cfg.LLMs == nil {
		cfg.LLMs = map[string]LLMConfig{}
	}
	mergeProviderDefaults(cfg.LLMs)
	return nil
}

// mergeProviderDefaults fills fields a provider table leaves empty. The
// decoder replaces whole map entries, so [llms.ollama] with only a model
// would otherwise lose the default base URL.
func mergeProviderDefaults(llms map[string]LLMConfig) {
	for name, def := range defaultConfig().LLMs {
		cur, ok := llms[name]
		if !ok {
			llms[name] = def
			continue
		}
		if cur.BaseURL == "" {
			cur.BaseURL = def.BaseURL
		}
		if cur.APIKey == "" {
			cur.APIKey = def.APIKey
		}
		if cur.Model == "" {
			cur.Model = def.Model
		}
		llms[name] = cur
	}
}

// NewConfig creates a configuration programmatically, without file I/O.
// Sections other than the providers keep their defaults.
func NewConfig(defaultProvider string, timeoutSeconds int, providers map[string]LLMConfig) Config {
	cfg := defaultConfig()
	cfg.DefaultProvider = defaultProvider
	cfg.RequestTimeoutSeconds = timeoutSeconds
	cfg.LLMs = providers
	return cfg
}

// GetLLMConfig retrieves the specific configuration for a given provider.
func (c *Config) GetLLMConfig(provider string) (LLMConfig, bool) {
	llmCfg, exists := c.LLMs[provider]
	return llmCfg, exists
}

// SetLLMConfig replaces the configuration of a provider.
func (c *Config) SetLLMConfig(provider string, llmCfg LLMConfig) {
	if c.LLMs == nil {
		c.LLMs = map[string]LLMConfig{}
	}
	c.LLMs[provider] = llmCfg
}

// ModelFor returns the model selection and sampling settings for provider.
// An empty Model means the provider's default model.
func (c *Config) ModelFor(provider string) ModelConfig {
	llmCfg, _ := c.GetLLMConfig(provider)
	return ModelConfig{
		Model:       llmCfg.Model,
		Temperature: c.Generation.Temperature,
		MaxTokens:   c.Generation.MaxTokens,
	}
}

// Validate checks that the configuration can drive a run. A missing API key
// for the selected cloud provider is reported as apierr.ErrAuthentication.
func Validate(cfg Config) error {
	if cfg.DefaultProvider == "" {
		return errors.New("no default LLM provider specified in configuration")
	}
	if cfg.RequestTimeoutSeconds < 0 {
		return fmt.Errorf("invalid timeout: must not be negative, got %d", cfg.RequestTimeoutSeconds)
	}

	llmCfg, exists := cfg.LLMs[cfg.DefaultProvider]
	if !exists {
		return fmt.Errorf("configuration for provider '%s' not found", cfg.DefaultProvider)
	}

	switch cfg.DefaultProvider {
	case "groq", "gemini", "openai":
		if llmCfg.APIKey == "" {
			return apierr.New(apierr.ErrAuthentication, cfg.DefaultProvider,
				fmt.Sprintf("API key for %s not found in configuration or environment", cfg.DefaultProvider))
		}
	case "ollama":
		if llmCfg.BaseURL == "" {
			return errors.New("base URL for ollama not found in configuration")
		}
	default:
		return fmt.Errorf("unsupported LLM provider: %s", cfg.DefaultProvider)
	}

	g := cfg.Generation
	if g.Temperature < 0 || g.Temperature > 2 {
		return fmt.Errorf("invalid temperature %.2f: must be between 0 and 2", g.Temperature)
	}
	if g.MaxTokens <= 0 {
		return fmt.Errorf("invalid max tokens %d: must be positive", g.MaxTokens)
	}
	if g.WordCount < MinWordCount || g.WordCount > MaxWordCount {
		return fmt.Errorf("invalid word count %d: must be between %d and %d", g.WordCount, MinWordCount, MaxWordCount)
	}

	r := cfg.Retry
	if r.MaxRateLimitRetries < 0 || r.TimeoutRetries < 0 || r.BackoffSeconds < 0 {
		return errors.New("retry settings must not be negative")
	}

	switch cfg.Sources.Search.Provider {
	case "", "google", "searxng":
	default:
		return fmt.Errorf("unsupported search provider: %s", cfg.Sources.Search.Provider)
	}

	return nil
}
