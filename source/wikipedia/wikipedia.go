// Package wikipedia fetches introductory extracts from Wikipedia through
// the MediaWiki Action API.
package wikipedia

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/xostack/xoblog/apierr"
	"github.com/xostack/xoblog/config"
	"github.com/xostack/xoblog/source"
)

const (
	providerName    = "wikipedia"
	defaultLanguage = "en"
	defaultTopK     = 2
	defaultMaxChars = 4000
	maxBodyBytes    = 2 << 20
)

// Client is a source.Fetcher backed by Wikipedia.
type Client struct {
	httpClient *http.Client
	endpoint   string // .../w/api.php
	articleURL string // .../wiki/
	topK       int
	maxChars   int
}

type searchResponse struct {
	Query struct {
		Search []struct {
			Title   string `json:"title"`
			Snippet string `json:"snippet"`
		} `json:"search"`
	} `json:"query"`
	Error *apiError `json:"error,omitempty"`
}

type extractResponse struct {
	Query struct {
		Pages []struct {
			Title   string `json:"title"`
			Extract string `json:"extract"`
			Missing bool   `json:"missing,omitempty"`
		} `json:"pages"`
	} `json:"query"`
	Error *apiError `json:"error,omitempty"`
}

type apiError struct {
	Code string `json:"code"`
	Info string `json:"info"`
}

// NewClient creates a Wikipedia client. An empty cfg.BaseURL selects the
// API of the cfg.Language edition.
func NewClient(cfg config.WikipediaConfig, requestTimeoutSeconds int) *Client {
	lang := cfg.Language
	if lang == "" {
		lang = defaultLanguage
	}
	endpoint := cfg.BaseURL
	if endpoint == "" {
		endpoint = fmt.Sprintf("https://%s.wikipedia.org/w/api.php", lang)
	}
	topK := cfg.TopK
	if topK <= 0 {
		topK = defaultTopK
	}
	maxChars := cfg.MaxChars
	if maxChars <= 0 {
		maxChars = defaultMaxChars
	}
	timeout := time.Duration(requestTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		endpoint:   endpoint,
		articleURL: strings.TrimSuffix(endpoint, "/w/api.php") + "/wiki/",
		topK:       topK,
		maxChars:   maxChars,
	}
}

// Fetch searches Wikipedia for topic and returns the introduction of each
// of the top results, truncated to the configured length.
func (c *Client) Fetch(ctx context.Context, topic string) ([]source.Snippet, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return nil, apierr.New(apierr.ErrInvalidInput, providerName, "topic must not be empty")
	}

	var found searchResponse
	err := c.query(ctx, url.Values{
		"list":     {"search"},
		"srsearch": {topic},
		"srlimit":  {fmt.Sprint(c.topK)},
	}, &found)
	if err != nil {
		return nil, err
	}
	if found.Error != nil {
		return nil, apierr.New(apierr.ErrSourceUnavailable, providerName, found.Error.Info)
	}

	snippets := make([]source.Snippet, 0, len(found.Query.Search))
	for _, hit := range found.Query.Search {
		text, err := c.extract(ctx, hit.Title)
		if err != nil {
			if ctx.Err() != nil {
				return nil, err
			}
			log.Debug().Err(err).Str("title", hit.Title).Msg("extract unavailable, using search snippet")
		}
		if text == "" {
			text = source.CleanHTML(hit.Snippet)
		}
		if text == "" {
			continue
		}
		snippets = append(snippets, source.Snippet{
			Origin: source.Encyclopedia,
			Title:  hit.Title,
			Text:   source.Truncate(text, c.maxChars),
			URL:    c.articleURL + url.PathEscape(strings.ReplaceAll(hit.Title, " ", "_")),
		})
	}
	return snippets, nil
}

func (c *Client) extract(ctx context.Context, title string) (string, error) {
	var resp extractResponse
	err := c.query(ctx, url.Values{
		"prop":        {"extracts"},
		"explaintext": {"1"},
		"exintro":     {"1"},
		"redirects":   {"1"},
		"titles":      {title},
	}, &resp)
	if err != nil {
		return "", err
	}
	if resp.Error != nil {
		return "", apierr.New(apierr.ErrSourceUnavailable, providerName, resp.Error.Info)
	}
	for _, page := range resp.Query.Pages {
		if !page.Missing && strings.TrimSpace(page.Extract) != "" {
			return strings.TrimSpace(page.Extract), nil
		}
	}
	return "", nil
}

func (c *Client) query(ctx context.Context, params url.Values, out any) error {
	params.Set("action", "query")
	params.Set("format", "json")
	params.Set("formatversion", "2")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("failed to create Wikipedia request: %w", err)
	}
	req.Header.Set("User-Agent", source.UserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("wikipedia request canceled: %w", ctx.Err())
		}
		return apierr.Wrap(apierr.ErrSourceUnavailable, providerName, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return apierr.Wrap(apierr.ErrSourceUnavailable, providerName, err)
	}
	if resp.StatusCode != http.StatusOK {
		return &apierr.Error{
			Kind:       apierr.ErrSourceUnavailable,
			Provider:   providerName,
			StatusCode: resp.StatusCode,
			Message:    strings.TrimSpace(string(body)),
		}
	}
	if err := json.Unmarshal(body, out); err != nil {
		return apierr.New(apierr.ErrSourceUnavailable, providerName, fmt.Sprintf("failed to decode response: %v", err))
	}
	return nil
}
