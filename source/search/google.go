package search

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/api/customsearch/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/xostack/xoblog/apierr"
	"github.com/xostack/xoblog/source"
)

// Google queries the Custom Search JSON API of a Programmable Search Engine.
type Google struct {
	service  *customsearch.Service
	engineID string
	results  int
}

// NewGoogle creates a Google search fetcher. baseURL overrides the API
// endpoint and may be empty.
func NewGoogle(ctx context.Context, apiKey, engineID, baseURL string, results int) (*Google, error) {
	opts := []option.ClientOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithEndpoint(baseURL))
	}

	svc, err := customsearch.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create custom search service: %w", err)
	}

	return &Google{
		service:  svc,
		engineID: engineID,
		results:  clampResults(results),
	}, nil
}

// Fetch returns the title and snippet of the top results for topic.
func (g *Google) Fetch(ctx context.Context, topic string) ([]source.Snippet, error) {
	topic, err := validTopic("google", topic)
	if err != nil {
		return nil, err
	}

	resp, err := g.service.Cse.List().
		Cx(g.engineID).
		Q(topic).
		Num(int64(g.results)).
		Context(ctx).
		Do()
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("google search canceled: %w", ctx.Err())
		}
		var gerr *googleapi.Error
		if errors.As(err, &gerr) {
			return nil, &apierr.Error{
				Kind:       apierr.ErrSourceUnavailable,
				Provider:   "google",
				StatusCode: gerr.Code,
				Message:    gerr.Message,
			}
		}
		return nil, apierr.Wrap(apierr.ErrSourceUnavailable, "google", err)
	}

	snippets := make([]source.Snippet, 0, len(resp.Items))
	for _, item := range resp.Items {
		text := item.Snippet
		if text == "" {
			text = source.CleanHTML(item.HtmlSnippet)
		}
		if text == "" {
			continue
		}
		snippets = append(snippets, source.Snippet{
			Origin: source.Search,
			Title:  item.Title,
			Text:   text,
			URL:    item.Link,
		})
	}
	return snippets, nil
}
