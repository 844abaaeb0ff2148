package generation

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newOpenRouterServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testRequest() Request {
	return Request{Stage: "stylist", Model: "test/model", System: "sys", Prompt: "hello", Temperature: 0.2, MaxTokens: 256}
}

func TestOpenRouter_Success(t *testing.T) {
	var got chatRequest
	var headers http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		headers = r.Header.Clone()
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"model":"test/model-2025","choices":[{"message":{"role":"assistant","content":"@@GATE v1"}}],"usage":{"prompt_tokens":10,"completion_tokens":3,"total_tokens":13}}`))
	}))
	defer srv.Close()

	c := NewOpenRouter("sk-secret", WithBaseURL(srv.URL), WithAttribution("https://example.test", "Test"))
	resp, err := c.Generate(context.Background(), testRequest())
	require.NoError(t, err)

	assert.Equal(t, "@@GATE v1", resp.Text)
	assert.Equal(t, "test/model-2025", resp.Model)
	assert.Equal(t, 13, resp.Usage.TotalTokens)

	assert.Equal(t, "Bearer sk-secret", headers.Get("Authorization"))
	assert.Equal(t, "https://example.test", headers.Get("HTTP-Referer"))
	assert.Equal(t, "Test", headers.Get("X-Title"))

	assert.Equal(t, "test/model", got.Model)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, "hello", got.Messages[1].Content)
	assert.InDelta(t, 0.2, got.Temperature, 1e-9)
	assert.Equal(t, 256, got.MaxTokens)
}

func TestOpenRouter_ErrorKinds(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		kind   Kind
		code   int
	}{
		{"rate limited", 429, `{"error":{"message":"slow down","code":429}}`, KindRateLimited, 429},
		{"unauthorized", 401, `{"error":{"message":"bad key"}}`, KindAuth, 401},
		{"forbidden", 403, `nope`, KindAuth, 403},
		{"gateway timeout", 504, ``, KindTimeout, 504},
		{"server error", 500, `{"error":{"message":"boom"}}`, KindProvider, 500},
		{"empty choices", 200, `{"choices":[]}`, KindInvalidResponse, 0},
		{"empty content", 200, `{"choices":[{"message":{"content":"   "}}]}`, KindInvalidResponse, 0},
		{"non-string content", 200, `{"choices":[{"message":{"content":null}}]}`, KindInvalidResponse, 0},
		{"malformed json", 200, `{"choices":[`, KindInvalidResponse, 0},
		{"error in 200", 200, `{"error":{"message":"upstream","code":429}}`, KindRateLimited, 429},
		{"error string in 200", 200, `{"error":"upstream unavailable"}`, KindProvider, 502},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newOpenRouterServer(t, tt.status, tt.body)
			c := NewOpenRouter("key", WithBaseURL(srv.URL))

			resp, err := c.Generate(context.Background(), testRequest())
			require.Error(t, err)
			assert.Nil(t, resp)

			var gerr *Error
			require.True(t, errors.As(err, &gerr), "got %T", err)
			assert.Equal(t, tt.kind, gerr.Kind)
			assert.Equal(t, tt.code, gerr.Code)
			assert.Equal(t, "openrouter", gerr.Provider)
		})
	}
}

func TestOpenRouter_NullErrorField(t *testing.T) {
	srv := newOpenRouterServer(t, 200, `{"error":null,"choices":[{"message":{"content":"@@GATE v1\n@@VERDICT pass\n@@END"}}]}`)
	c := NewOpenRouter("key", WithBaseURL(srv.URL))

	resp, err := c.Generate(context.Background(), testRequest())
	require.NoError(t, err)
	assert.Equal(t, PassResponse, resp.Text)
}

func TestErrorMessage_TruncatesByRune(t *testing.T) {
	msg := errorMessage([]byte(strings.Repeat("é", 300)))
	assert.True(t, utf8.ValidString(msg))
	assert.Equal(t, maxMessageRunes, utf8.RuneCountInString(msg))

	assert.Equal(t, "bad key", errorMessage([]byte(`{"error":{"message":"bad key"}}`)))
}

func TestOpenRouter_ErrorDoesNotLeakKey(t *testing.T) {
	srv := newOpenRouterServer(t, 401, `{"error":{"message":"invalid key"}}`)
	c := NewOpenRouter("sk-very-secret", WithBaseURL(srv.URL))

	_, err := c.Generate(context.Background(), testRequest())
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "sk-very-secret")
}

func TestOpenRouter_NoKey(t *testing.T) {
	c := NewOpenRouter("")
	_, err := c.Generate(context.Background(), testRequest())
	kind, ok := KindOf(err)
	require.True(t, ok)
	assert.Equal(t, KindAuth, kind)
}

func TestOpenRouter_PerCallTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c := NewOpenRouter("key", WithBaseURL(srv.URL), WithTimeout(50*time.Millisecond))
	_, err := c.Generate(context.Background(), testRequest())

	require.Error(t, err)
	assert.True(t, IsTransient(err))
	kind, _ := KindOf(err)
	assert.Equal(t, KindTimeout, kind)
}

func TestOpenRouter_ParentCancel(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(30 * time.Millisecond)
		cancel()
	}()

	c := NewOpenRouter("key", WithBaseURL(srv.URL), WithTimeout(5*time.Second))
	_, err := c.Generate(ctx, testRequest())

	assert.ErrorIs(t, err, context.Canceled)
	_, isGen := KindOf(err)
	assert.False(t, isGen)
}

func TestError_Transient(t *testing.T) {
	assert.True(t, (&Error{Kind: KindTimeout}).Transient())
	assert.True(t, (&Error{Kind: KindRateLimited}).Transient())
	assert.False(t, (&Error{Kind: KindAuth}).Transient())
	assert.False(t, (&Error{Kind: KindProvider}).Transient())
	assert.False(t, (&Error{Kind: KindInvalidResponse}).Transient())
	assert.False(t, IsTransient(errors.New("plain")))
}

func TestError_Message(t *testing.T) {
	err := &Error{Kind: KindProvider, Provider: "openrouter", Code: 500, Message: "boom"}
	assert.Equal(t, "openrouter: provider_error (500): boom", err.Error())
}
