// Package blog composes section prompts, drives the LLM client and
// assembles the generated sections into a post.
package blog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/xostack/xoblog"
	"github.com/xostack/xoblog/apierr"
	"github.com/xostack/xoblog/source"
)

// Builder generates blog posts with one LLM client.
type Builder struct {
	Client xoblog.Client
	// Fetchers provides background snippets per origin. It may be nil.
	Fetchers map[source.Origin]source.Fetcher
	Composer Composer
	// Sequential generates the sections one after another instead of
	// concurrently, stopping at the first error.
	Sequential bool
}

// NewBuilder returns a Builder for client and fetchers with the default
// Composer.
func NewBuilder(client xoblog.Client, fetchers map[source.Origin]source.Fetcher) *Builder {
	return &Builder{Client: client, Fetchers: fetchers}
}

// Build generates a post about topic, enriched with snippets from sources.
//
// Snippets are fetched once and shared by all sections; a source that
// fails only degrades the prompts. Any generation error aborts the build
// and cancels the sections still running. Build returns either a post
// with every section filled in or an error, never both.
func (b *Builder) Build(ctx context.Context, topic string, sources source.Set) (*Post, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return nil, apierr.New(apierr.ErrInvalidInput, "", "topic must not be empty")
	}
	if b.Client == nil {
		return nil, errors.New("blog builder has no LLM client")
	}

	start := time.Now()
	snippets := source.Gather(ctx, topic, sources, b.Fetchers)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	log.Debug().Int("snippets", len(snippets)).Dur("elapsed", time.Since(start)).Msg("background gathered")

	var (
		sections [len(Sections)]string
		err      error
	)
	if b.Sequential {
		err = b.generateSequential(ctx, topic, snippets, &sections)
	} else {
		err = b.generateConcurrent(ctx, topic, snippets, &sections)
	}
	if err != nil {
		return nil, err
	}

	post := &Post{
		Topic:      topic,
		Sections:   sections,
		Provider:   b.Client.ProviderName(),
		WordTarget: b.Composer.TargetWords(),
	}
	log.Info().Str("provider", post.Provider).Int("words", post.WordCount()).
		Dur("elapsed", time.Since(start)).Msg("blog post generated")
	return post, nil
}

func (b *Builder) generateSequential(ctx context.Context, topic string, snippets []source.Snippet, out *[len(Sections)]string) error {
	for _, s := range Sections {
		text, err := b.generate(ctx, topic, s, snippets)
		if err != nil {
			return err
		}
		out[s] = text
	}
	return nil
}

// generateConcurrent runs one pipeline per section. Each writes only its
// own slot of out.
func (b *Builder) generateConcurrent(ctx context.Context, topic string, snippets []source.Snippet, out *[len(Sections)]string) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, s := range Sections {
		s := s
		g.Go(func() error {
			text, err := b.generate(gctx, topic, s, snippets)
			if err != nil {
				return err
			}
			out[s] = text
			return nil
		})
	}
	return g.Wait()
}

func (b *Builder) generate(ctx context.Context, topic string, s Section, snippets []source.Snippet) (string, error) {
	prompt := b.Composer.Compose(topic, s, snippets)

	start := time.Now()
	log.Debug().Stringer("section", s).Int("prompt_chars", len(prompt)).Msg("generating section")

	text, err := b.Client.Generate(ctx, string(prompt))
	if err != nil {
		return "", fmt.Errorf("generating %s: %w", s, err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", apierr.New(apierr.ErrUnknownProvider, b.Client.ProviderName(), fmt.Sprintf("empty %s generated", s))
	}

	log.Debug().Stringer("section", s).Int("words", len(strings.Fields(text))).
		Dur("elapsed", time.Since(start)).Msg("section generated")
	return text, nil
}
