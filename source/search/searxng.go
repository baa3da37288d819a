package search

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/xostack/xoblog/apierr"
	"github.com/xostack/xoblog/source"
)

// SearXNG queries the JSON API of a SearXNG metasearch instance.
type SearXNG struct {
	httpClient *http.Client
	endpoint   string
	results    int
}

type searxResponse struct {
	Results []struct {
		Title   string `json:"title"`
		URL     string `json:"url"`
		Content string `json:"content"`
	} `json:"results"`
}

// NewSearXNG creates a SearXNG fetcher for the instance at baseURL, with or
// without the trailing /search path.
func NewSearXNG(baseURL string, results int, timeout time.Duration) *SearXNG {
	endpoint := strings.TrimSuffix(baseURL, "/")
	if !strings.HasSuffix(endpoint, "/search") {
		endpoint += "/search"
	}
	return &SearXNG{
		httpClient: &http.Client{Timeout: timeout},
		endpoint:   endpoint,
		results:    clampResults(results),
	}
}

// Fetch returns the top results for topic.
func (s *SearXNG) Fetch(ctx context.Context, topic string) ([]source.Snippet, error) {
	topic, err := validTopic("searxng", topic)
	if err != nil {
		return nil, err
	}

	requestURL := fmt.Sprintf("%s?q=%s&format=json", s.endpoint, url.QueryEscape(topic))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create SearXNG request: %w", err)
	}
	req.Header.Set("User-Agent", source.UserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("searxng request canceled: %w", ctx.Err())
		}
		return nil, apierr.Wrap(apierr.ErrSourceUnavailable, "searxng", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &apierr.Error{
			Kind:       apierr.ErrSourceUnavailable,
			Provider:   "searxng",
			StatusCode: resp.StatusCode,
			Message:    strings.TrimSpace(string(body)),
		}
	}

	var searxResp searxResponse
	if err := json.NewDecoder(resp.Body).Decode(&searxResp); err != nil {
		return nil, apierr.New(apierr.ErrSourceUnavailable, "searxng", fmt.Sprintf("failed to decode response: %v", err))
	}

	snippets := make([]source.Snippet, 0, s.results)
	for _, r := range searxResp.Results {
		if len(snippets) == s.results {
			break
		}
		text := source.CleanHTML(r.Content)
		if text == "" {
			continue
		}
		snippets = append(snippets, source.Snippet{
			Origin: source.Search,
			Title:  r.Title,
			Text:   text,
			URL:    r.URL,
		})
	}
	return snippets, nil
}
