package search

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	readability "github.com/go-shiori/go-readability"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/xostack/xoblog/source"
)

const (
	maxPageBytes    = 1 << 20
	minArticleChars = 200
	pageWorkers     = 3
)

// PageReader expands the first results of another fetcher with the
// readable text of the pages they link to. A page that cannot be read
// keeps its original snippet.
type PageReader struct {
	next       source.Fetcher
	pages      int
	maxChars   int
	httpClient *http.Client
}

// NewPageReader wraps next, expanding up to pages results to at most
// maxChars characters each.
func NewPageReader(next source.Fetcher, pages, maxChars int, timeout time.Duration) *PageReader {
	return &PageReader{
		next:       next,
		pages:      pages,
		maxChars:   maxChars,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Fetch implements source.Fetcher.
func (p *PageReader) Fetch(ctx context.Context, topic string) ([]source.Snippet, error) {
	snippets, err := p.next.Fetch(ctx, topic)
	if err != nil {
		return nil, err
	}

	n := min(p.pages, len(snippets))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(pageWorkers)
	for i := 0; i < n; i++ {
		if snippets[i].URL == "" {
			continue
		}
		i := i
		g.Go(func() error {
			text, err := p.read(gctx, snippets[i].URL)
			if err != nil {
				log.Debug().Err(err).Str("url", snippets[i].URL).Msg("page unreadable, keeping snippet")
				return nil
			}
			snippets[i].Text = source.Truncate(text, p.maxChars)
			return nil
		})
	}
	g.Wait()

	if ctx.Err() != nil {
		return nil, fmt.Errorf("page reading canceled: %w", ctx.Err())
	}
	return snippets, nil
}

func (p *PageReader) read(ctx context.Context, pageURL string) (string, error) {
	parsedURL, err := url.Parse(pageURL)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", source.UserAgent)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "" && !strings.Contains(ct, "html") {
		return "", fmt.Errorf("unsupported content type %q", ct)
	}

	article, err := readability.FromReader(io.LimitReader(resp.Body, maxPageBytes), parsedURL)
	if err != nil {
		return "", err
	}

	text := strings.Join(strings.Fields(article.TextContent), " ")
	if len(text) < minArticleChars {
		return "", fmt.Errorf("article too short (%d chars)", len(text))
	}
	return text, nil
}
