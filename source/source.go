// Package source gathers short background snippets about a topic from
// external services such as an encyclopedia or a web-search API.
//
// Fetching is best effort: a source that fails is logged and skipped, and
// the caller carries on with whatever snippets were collected.
package source

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog/log"

	"github.com/xostack/xoblog/apierr"
)

// UserAgent identifies xoblog to the services it queries.
const UserAgent = "xoblog/1.0 (+https://github.com/xostack/xoblog)"

// Origin tags where a snippet came from.
type Origin int

const (
	Encyclopedia Origin = iota
	Search
)

// Origins lists every origin in the order sources are queried.
var Origins = []Origin{Encyclopedia, Search}

func (o Origin) String() string {
	switch o {
	case Encyclopedia:
		return "encyclopedia"
	case Search:
		return "search"
	default:
		return "unknown"
	}
}

// Snippet is a short text fragment retrieved from an external source.
type Snippet struct {
	Origin Origin
	Title  string
	Text   string
	URL    string
}

// Set is a set of origins to query. The zero value is the empty set.
type Set map[Origin]struct{}

// NewSet returns a Set holding origins.
func NewSet(origins ...Origin) Set {
	s := make(Set, len(origins))
	for _, o := range origins {
		s[o] = struct{}{}
	}
	return s
}

// Has reports whether o is in the set.
func (s Set) Has(o Origin) bool {
	_, ok := s[o]
	return ok
}

// Fetcher retrieves snippets about a topic from one external service.
//
// Implementations return apierr.ErrInvalidInput for an empty topic and
// apierr.ErrSourceUnavailable when the service cannot be used.
type Fetcher interface {
	Fetch(ctx context.Context, topic string) ([]Snippet, error)
}

// Gather queries the fetchers for every origin in sources, in the order of
// Origins, and returns the snippets in that order.
//
// Gather never fails. A fetch error is logged as a warning and the origin
// is skipped, as is a requested origin with no fetcher. An empty set
// returns nil without calling any fetcher.
func Gather(ctx context.Context, topic string, sources Set, fetchers map[Origin]Fetcher) []Snippet {
	if len(sources) == 0 {
		return nil
	}

	var snippets []Snippet
	for _, origin := range Origins {
		if !sources.Has(origin) {
			continue
		}
		if ctx.Err() != nil {
			break
		}

		fetcher := fetchers[origin]
		if fetcher == nil {
			log.Warn().Stringer("origin", origin).Msg("no source configured, continuing without it")
			continue
		}

		start := time.Now()
		got, err := fetcher.Fetch(ctx, topic)
		if err != nil {
			log.Warn().Err(unavailable(origin, err)).Stringer("origin", origin).Msg("source unavailable, continuing without it")
			continue
		}
		log.Debug().Stringer("origin", origin).Int("snippets", len(got)).Dur("elapsed", time.Since(start)).Msg("source fetched")
		snippets = append(snippets, got...)
	}
	return snippets
}

func unavailable(origin Origin, err error) error {
	if errors.Is(err, apierr.ErrSourceUnavailable) {
		return err
	}
	return apierr.Wrap(apierr.ErrSourceUnavailable, origin.String(), err)
}

// CleanHTML returns the visible text of an HTML fragment with whitespace
// collapsed, as used for search-result snippets that carry markup.
func CleanHTML(fragment string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return collapse(fragment)
	}
	doc.Find("script, style, noscript").Remove()
	return collapse(doc.Text())
}

// Truncate shortens text to at most maxChars runes, cutting at the last
// word boundary and marking the cut with an ellipsis. maxChars <= 0 means
// no limit.
func Truncate(text string, maxChars int) string {
	runes := []rune(text)
	if maxChars <= 0 || len(runes) <= maxChars {
		return text
	}
	cut := string(runes[:maxChars])
	if i := strings.LastIndexAny(cut, " \n\t"); i > 0 {
		cut = cut[:i]
	}
	return strings.TrimSpace(cut) + "..."
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
