package generation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/valpere/contentgate/internal/logger"
)

const (
	DefaultOpenRouterURL = "https://openrouter.ai/api/v1"

	// maxResponseBytes caps how much of a provider body is read.
	maxResponseBytes = 4 << 20

	// maxMessageRunes caps a raw body quoted in an error.
	maxMessageRunes = 200
)

// OpenRouter calls an OpenAI-compatible chat/completions endpoint.
type OpenRouter struct {
	apiKey string
	opts   options
}

// NewOpenRouter creates a client. The key is sent as a bearer token and is
// never logged.
func NewOpenRouter(apiKey string, opts ...Option) *OpenRouter {
	return &OpenRouter{
		apiKey: apiKey,
		opts:   buildOptions(DefaultOpenRouterURL, opts),
	}
}

func (c *OpenRouter) Name() string {
	return "openrouter"
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	TopP        float64       `json:"top_p,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

func (c *OpenRouter) Generate(ctx context.Context, req Request) (*Response, error) {
	if c.apiKey == "" {
		return nil, &Error{Kind: KindAuth, Provider: c.Name(), Message: "API key required"}
	}
	if req.Model == "" {
		return nil, &Error{Kind: KindProvider, Provider: c.Name(), Message: "model required"}
	}

	log := logger.FromContext(ctx).With("provider", c.Name(), "model", req.Model, "stage", req.Stage)
	start := time.Now()

	callCtx, cancel := context.WithTimeout(ctx, callTimeout(req, c.opts.timeout))
	defer cancel()

	var messages []chatMessage
	if req.System != "" {
		messages = append(messages, chatMessage{Role: "system", Content: req.System})
	}
	messages = append(messages, chatMessage{Role: "user", Content: req.Prompt})

	payload, err := json.Marshal(chatRequest{
		Model:       req.Model,
		Messages:    messages,
		Temperature: req.Temperature,
		TopP:        req.TopP,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(callCtx, http.MethodPost, strings.TrimRight(c.opts.baseURL, "/")+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("HTTP-Referer", c.opts.referer)
	httpReq.Header.Set("X-Title", c.opts.title)

	log.Debug("generation request", "prompt_chars", len(req.Prompt))

	resp, err := c.opts.client.Do(httpReq)
	if err != nil {
		return nil, transportError(c.Name(), ctx, callCtx, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, transportError(c.Name(), ctx, callCtx, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		gerr := statusError(c.Name(), resp.StatusCode, errorMessage(body))
		log.Warn("generation failed", "status", resp.StatusCode, "kind", gerr.Kind)
		return nil, gerr
	}

	if !gjson.ValidBytes(body) {
		return nil, invalidShape(c.Name(), "response is not valid JSON")
	}

	// Some upstream failures arrive as 200 with an error object. Gateways
	// also send "error": null on success.
	if e := gjson.GetBytes(body, "error"); e.IsObject() || e.Type == gjson.String {
		code := int(e.Get("code").Int())
		if code == 0 {
			code = http.StatusBadGateway
		}
		return nil, statusError(c.Name(), code, errorMessage(body))
	}

	content := gjson.GetBytes(body, "choices.0.message.content")
	if !content.Exists() || content.Type != gjson.String {
		return nil, invalidShape(c.Name(), "missing choices[0].message.content")
	}
	if strings.TrimSpace(content.String()) == "" {
		return nil, invalidShape(c.Name(), "empty content")
	}

	model := gjson.GetBytes(body, "model").String()
	if model == "" {
		model = req.Model
	}

	out := &Response{
		Text:  content.String(),
		Model: model,
		Usage: Usage{
			PromptTokens:     int(gjson.GetBytes(body, "usage.prompt_tokens").Int()),
			CompletionTokens: int(gjson.GetBytes(body, "usage.completion_tokens").Int()),
			TotalTokens:      int(gjson.GetBytes(body, "usage.total_tokens").Int()),
		},
		Latency: time.Since(start),
	}
	log.Debug("generation finished", "latency", out.Latency, "tokens", out.Usage.TotalTokens)
	return out, nil
}

// errorMessage pulls a readable message out of a provider error body.
func errorMessage(body []byte) string {
	if gjson.ValidBytes(body) {
		for _, path := range []string{"error.message", "error", "message"} {
			if v := gjson.GetBytes(body, path); v.Exists() && v.Type == gjson.String {
				return v.String()
			}
		}
	}
	msg := []rune(strings.ToValidUTF8(strings.TrimSpace(string(body)), ""))
	if len(msg) > maxMessageRunes {
		msg = msg[:maxMessageRunes]
	}
	return string(msg)
}
