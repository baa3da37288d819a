package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Template returns a commented TOML configuration with the defaults.
func Template() string {
	return `# xoblog configuration
# Environment variables (GROQ_API_KEY, GEMINI_API_KEY, OPENAI_API_KEY,
# OLLAMA_HOST, GOOGLE_API_KEY, GOOGLE_CSE_ID, SEARXNG_URL) override this file.

# LLM provider used to write the post: groq, gemini, ollama or openai
default_provider = "groq"

# Timeout in seconds for a single generation request
request_timeout_seconds = 60

[llms.groq]
api_key = ""
model = "llama-3.1-8b-instant"

[llms.gemini]
api_key = ""
# model = "gemini-1.5-flash-latest"

[llms.openai]
api_key = ""
# model = "gpt-4o-mini"
# base_url = "https://api.openai.com/v1/"

[llms.ollama]
base_url = "http://localhost:11434"
# model = "llama3.1:8b"

[generation]
temperature = 0.7
max_tokens = 4000
# Target length of the whole post, 500 to 3000 words
word_count = 1500
# Generate the three sections one after another instead of concurrently
sequential = false

[retry]
max_rate_limit_retries = 3
backoff_seconds = 1
timeout_retries = 1

[sources.wikipedia]
language = "en"
top_k = 2
max_chars = 4000

[sources.search]
# google (Programmable Search) or searxng
provider = "google"
api_key = ""
engine_id = ""
# base_url = "http://localhost:8888"
results = 5
# Download and extract the text of the top N result pages
fetch_pages = 0
`
}

// WriteTemplate writes Template to path, creating parent directories.
// An existing file is never overwritten.
func WriteTemplate(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("configuration file already exists at %s", path)
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to access config file %s: %w", path, err)
	}

	configDir := filepath.Dir(path)
	if err := os.MkdirAll(configDir, DefaultDirPerm); err != nil {
		return fmt.Errorf("failed to create config directory %s: %w", configDir, err)
	}

	if err := os.WriteFile(path, []byte(Template()), DefaultFilePerm); err != nil {
		return fmt.Errorf("failed to create config file %s: %w", path, err)
	}
	return nil
}
