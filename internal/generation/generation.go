// Package generation provides the clients that send a prompt to a remote
// text-generation provider and return the raw text or a typed failure.
//
// Clients apply a bounded timeout to every call and never retry; retry
// policy belongs to the caller.
package generation

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Request is one generation call.
type Request struct {
	Stage       string
	Model       string
	System      string
	Prompt      string
	Temperature float64
	TopP        float64
	MaxTokens   int
	// Timeout bounds this call. Zero uses the client default.
	Timeout time.Duration
}

type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response is the raw provider output.
type Response struct {
	Text    string        `json:"text"`
	Model   string        `json:"model"`
	Usage   Usage         `json:"usage"`
	Latency time.Duration `json:"latency"`
}

// Generator is implemented by every provider client.
type Generator interface {
	Name() string
	Generate(ctx context.Context, req Request) (*Response, error)
}

// Func adapts a function to Generator.
type Func func(ctx context.Context, req Request) (*Response, error)

func (f Func) Name() string { return "func" }

func (f Func) Generate(ctx context.Context, req Request) (*Response, error) {
	return f(ctx, req)
}

// Kind classifies a generation failure.
type Kind string

const (
	KindTimeout         Kind = "timeout"
	KindRateLimited     Kind = "rate_limited"
	KindInvalidResponse Kind = "invalid_response_shape"
	KindProvider        Kind = "provider_error"
	KindAuth            Kind = "auth_error"
)

// Error is the typed failure returned by clients.
type Error struct {
	Kind     Kind
	Provider string
	// Code is the HTTP status or provider error code, when known.
	Code    int
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Provider, e.Kind)
	if e.Code != 0 {
		msg += fmt.Sprintf(" (%d)", e.Code)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Transient reports whether the failure may succeed on retry.
func (e *Error) Transient() bool {
	return e.Kind == KindTimeout || e.Kind == KindRateLimited
}

// KindOf extracts the Kind from err.
func KindOf(err error) (Kind, bool) {
	var gerr *Error
	if errors.As(err, &gerr) {
		return gerr.Kind, true
	}
	return "", false
}

// IsTransient reports whether err is a retryable generation failure.
func IsTransient(err error) bool {
	var gerr *Error
	return errors.As(err, &gerr) && gerr.Transient()
}

// statusError maps a non-success HTTP status onto an Error.
func statusError(provider string, status int, message string) *Error {
	e := &Error{Provider: provider, Code: status, Message: message}
	switch status {
	case http.StatusTooManyRequests:
		e.Kind = KindRateLimited
	case http.StatusUnauthorized, http.StatusForbidden, http.StatusPaymentRequired:
		e.Kind = KindAuth
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		e.Kind = KindTimeout
	default:
		e.Kind = KindProvider
	}
	return e
}

// transportError converts a failed round trip. Cancellation of the caller's
// context is returned as the context error so it is never mistaken for a
// provider failure.
func transportError(provider string, parent, call context.Context, err error) error {
	if parent.Err() != nil {
		return parent.Err()
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(call.Err(), context.DeadlineExceeded) {
		return &Error{Kind: KindTimeout, Provider: provider, Message: "deadline exceeded", Err: err}
	}
	var te interface{ Timeout() bool }
	if errors.As(err, &te) && te.Timeout() {
		return &Error{Kind: KindTimeout, Provider: provider, Message: "request timed out", Err: err}
	}
	return &Error{Kind: KindProvider, Provider: provider, Message: "request failed", Err: err}
}

func invalidShape(provider, message string) *Error {
	return &Error{Kind: KindInvalidResponse, Provider: provider, Message: message}
}

// options are shared by the HTTP clients.
type options struct {
	baseURL string
	client  *http.Client
	timeout time.Duration
	referer string
	title   string
}

type Option func(*options)

func WithBaseURL(u string) Option {
	return func(o *options) { o.baseURL = u }
}

// WithHTTPClient sets the client used for every call. It is the only state
// shared between concurrent runs and must be safe for concurrent use.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.client = c }
}

// WithTimeout sets the default per-call timeout.
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

// WithAttribution sets the HTTP-Referer and X-Title headers sent to OpenRouter.
func WithAttribution(referer, title string) Option {
	return func(o *options) { o.referer, o.title = referer, title }
}

func buildOptions(defaultBase string, opts []Option) options {
	o := options{
		baseURL: defaultBase,
		timeout: 60 * time.Second,
		referer: "https://contentgate.local",
		title:   "ContentGate",
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.client == nil {
		o.client = &http.Client{}
	}
	return o
}

func callTimeout(req Request, def time.Duration) time.Duration {
	if req.Timeout > 0 {
		return req.Timeout
	}
	return def
}
