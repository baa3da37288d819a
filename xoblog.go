// Package xoblog writes structured blog posts with a hosted large language
// model.
//
// The root package holds the provider abstraction: the Client interface
// implemented by every LLM backend, the GetClient factory that builds one
// from configuration, and WithRetry, which applies the bounded retry policy
// for rate limits and timeouts. Post assembly lives in package blog, the
// content sources in package source.
//
// Example usage:
//
//	cfg, err := config.Load()
//	if err != nil {
//		log.Fatal(err)
//	}
//	client, err := xoblog.GetClient(cfg)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer client.Close()
//
//	builder := blog.NewBuilder(xoblog.WithRetry(client, xoblog.PolicyFromConfig(cfg)), nil)
//	post, err := builder.Build(ctx, "Quantum Computing", nil)
package xoblog

import (
	"context"
)

// Client is the interface that all LLM provider clients implement.
//
// Implementations must be safe for concurrent use: the blog builder calls
// Generate from one goroutine per section.
type Client interface {
	// Generate sends a complete prompt and returns the generated text.
	//
	// Failures are classified with the apierr kinds (authentication, rate
	// limit, timeout, unknown provider error). Cancellation of ctx aborts
	// the in-flight request.
	Generate(ctx context.Context, prompt string) (string, error)

	// ProviderName returns the lowercase provider identifier, matching its
	// configuration key (e.g. "groq").
	ProviderName() string

	// Close releases any resources held by the client.
	Close() error
}
