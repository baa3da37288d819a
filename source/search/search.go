// Package search fetches web-search snippets for a topic from Google
// Programmable Search or a SearXNG instance.
package search

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/xostack/xoblog/apierr"
	"github.com/xostack/xoblog/config"
	"github.com/xostack/xoblog/source"
)

const (
	defaultResults = 5
	// Google's API returns at most ten results per page.
	maxResults   = 10
	pageMaxChars = 2000
)

// New returns the search fetcher selected by cfg.Provider. It fails with
// apierr.ErrSourceUnavailable when the backend is not fully configured.
func New(ctx context.Context, cfg config.SearchConfig, requestTimeoutSeconds int) (source.Fetcher, error) {
	timeout := time.Duration(requestTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	var (
		fetcher source.Fetcher
		err     error
	)
	switch strings.ToLower(cfg.Provider) {
	case "", "google":
		if cfg.APIKey == "" || cfg.EngineID == "" {
			return nil, apierr.New(apierr.ErrSourceUnavailable, "google",
				"Google search needs an API key and a search engine id (GOOGLE_API_KEY, GOOGLE_CSE_ID)")
		}
		fetcher, err = NewGoogle(ctx, cfg.APIKey, cfg.EngineID, cfg.BaseURL, cfg.Results)
	case "searxng":
		if cfg.BaseURL == "" {
			return nil, apierr.New(apierr.ErrSourceUnavailable, "searxng", "SearXNG needs a base URL (SEARXNG_URL)")
		}
		fetcher = NewSearXNG(cfg.BaseURL, cfg.Results, timeout)
	default:
		return nil, fmt.Errorf("unsupported search provider: %s", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}

	if cfg.FetchPages > 0 {
		fetcher = NewPageReader(fetcher, cfg.FetchPages, pageMaxChars, timeout)
	}
	return fetcher, nil
}

func clampResults(n int) int {
	switch {
	case n <= 0:
		return defaultResults
	case n > maxResults:
		return maxResults
	default:
		return n
	}
}

func validTopic(provider, topic string) (string, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return "", apierr.New(apierr.ErrInvalidInput, provider, "topic must not be empty")
	}
	return topic, nil
}
