// Package apierr defines the error taxonomy shared by the LLM providers,
// the content sources and the blog builder.
//
// Every failure that crosses a package boundary is classified into one of
// a small set of kinds so that callers can decide, with errors.Is, whether
// to retry, degrade or abort:
//
//	ErrInvalidInput       fatal, reported before any network call
//	ErrSourceUnavailable  recoverable, the section proceeds without snippets
//	ErrAuthentication     fatal
//	ErrRateLimited        recoverable with bounded backoff
//	ErrGenerationTimeout  recoverable once
//	ErrUnknownProvider    fatal, carries the raw provider message
package apierr

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"
)

var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrSourceUnavailable = errors.New("source unavailable")
	ErrAuthentication    = errors.New("authentication failed")
	ErrRateLimited       = errors.New("rate limited")
	ErrGenerationTimeout = errors.New("generation timed out")
	ErrUnknownProvider   = errors.New("provider error")
)

// Error is a classified failure reported by an external collaborator.
type Error struct {
	// Kind is one of the sentinel errors of this package.
	Kind error
	// Provider names the collaborator, e.g. "groq" or "wikipedia".
	Provider string
	// StatusCode is the HTTP status when one was received, 0 otherwise.
	StatusCode int
	// Message is the raw message returned by the collaborator.
	Message string
	// RetryAfter is the delay requested by the collaborator, if any.
	RetryAfter time.Duration
	// Err is the underlying cause, if any.
	Err error
}

func (e *Error) Error() string {
	var sb strings.Builder
	if e.Provider != "" {
		sb.WriteString(e.Provider)
		sb.WriteString(": ")
	}
	sb.WriteString(e.Kind.Error())
	if e.StatusCode != 0 {
		fmt.Fprintf(&sb, " (status %d)", e.StatusCode)
	}
	if e.Message != "" {
		sb.WriteString(": ")
		sb.WriteString(e.Message)
	} else if e.Err != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Err.Error())
	}
	return sb.String()
}

// Is reports whether target is the kind of this error.
func (e *Error) Is(target error) bool {
	return target == e.Kind
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New returns a classified error without an HTTP status.
func New(kind error, provider, message string) *Error {
	return &Error{Kind: kind, Provider: provider, Message: message}
}

// Wrap classifies err under kind.
func Wrap(kind error, provider string, err error) *Error {
	return &Error{Kind: kind, Provider: provider, Err: err}
}

// FromStatus maps an HTTP status returned by a provider to an error kind.
// retryAfter is the raw Retry-After header value and may be empty.
func FromStatus(provider string, status int, message string, retryAfter string) *Error {
	e := &Error{Provider: provider, StatusCode: status, Message: message}
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		e.Kind = ErrAuthentication
	case status == http.StatusTooManyRequests:
		e.Kind = ErrRateLimited
		e.RetryAfter = ParseRetryAfter(retryAfter)
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		e.Kind = ErrGenerationTimeout
	default:
		e.Kind = ErrUnknownProvider
	}
	return e
}

// FromTransport classifies an error returned while sending a request.
// Cancellation of ctx is returned as-is so that callers stop immediately.
func FromTransport(ctx context.Context, provider string, err error) error {
	if errors.Is(ctx.Err(), context.Canceled) {
		return fmt.Errorf("%s request canceled: %w", provider, ctx.Err())
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return Wrap(ErrGenerationTimeout, provider, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return Wrap(ErrGenerationTimeout, provider, err)
	}
	return Wrap(ErrUnknownProvider, provider, err)
}

// ParseRetryAfter understands both the delay-seconds and the HTTP-date
// forms of the Retry-After header. It returns 0 when v is empty or invalid.
func ParseRetryAfter(v string) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

// RetryAfter returns the delay requested by the provider behind err.
func RetryAfter(err error) time.Duration {
	var e *Error
	if errors.As(err, &e) {
		return e.RetryAfter
	}
	return 0
}

// IsRetryable reports whether err may succeed when tried again.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrRateLimited) || errors.Is(err, ErrGenerationTimeout)
}
