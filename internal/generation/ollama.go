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

const DefaultOllamaURL = "http://localhost:11434"

// Ollama calls a self-hosted Ollama /api/generate endpoint.
type Ollama struct {
	opts options
}

func NewOllama(opts ...Option) *Ollama {
	return &Ollama{opts: buildOptions(DefaultOllamaURL, opts)}
}

func (c *Ollama) Name() string {
	return "ollama"
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature"`
	TopP        float64 `json:"top_p,omitempty"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type ollamaRequest struct {
	Model   string        `json:"model"`
	System  string        `json:"system,omitempty"`
	Prompt  string        `json:"prompt"`
	Stream  bool          `json:"stream"`
	Options ollamaOptions `json:"options"`
}

func (c *Ollama) Generate(ctx context.Context, req Request) (*Response, error) {
	if req.Model == "" {
		return nil, &Error{Kind: KindProvider, Provider: c.Name(), Message: "model required"}
	}

	log := logger.FromContext(ctx).With("provider", c.Name(), "model", req.Model, "stage", req.Stage)
	start := time.Now()

	callCtx, cancel := context.WithTimeout(ctx, callTimeout(req, c.opts.timeout))
	defer cancel()

	payload, err := json.Marshal(ollamaRequest{
		Model:  req.Model,
		System: req.System,
		Prompt: req.Prompt,
		Options: ollamaOptions{
			Temperature: req.Temperature,
			TopP:        req.TopP,
			NumPredict:  req.MaxTokens,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(callCtx, http.MethodPost, strings.TrimRight(c.opts.baseURL, "/")+"/api/generate", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.opts.client.Do(httpReq)
	if err != nil {
		return nil, transportError(c.Name(), ctx, callCtx, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, transportError(c.Name(), ctx, callCtx, err)
	}

	if resp.StatusCode != http.StatusOK {
		gerr := statusError(c.Name(), resp.StatusCode, errorMessage(body))
		log.Warn("generation failed", "status", resp.StatusCode, "kind", gerr.Kind)
		return nil, gerr
	}

	if !gjson.ValidBytes(body) {
		return nil, invalidShape(c.Name(), "response is not valid JSON")
	}
	text := gjson.GetBytes(body, "response")
	if !text.Exists() || text.Type != gjson.String || strings.TrimSpace(text.String()) == "" {
		return nil, invalidShape(c.Name(), "missing or empty response field")
	}

	prompt := int(gjson.GetBytes(body, "prompt_eval_count").Int())
	completion := int(gjson.GetBytes(body, "eval_count").Int())
	out := &Response{
		Text:  text.String(),
		Model: req.Model,
		Usage: Usage{
			PromptTokens:     prompt,
			CompletionTokens: completion,
			TotalTokens:      prompt + completion,
		},
		Latency: time.Since(start),
	}
	log.Debug("generation finished", "latency", out.Latency)
	return out, nil
}

// IsAvailable checks that the Ollama server answers /api/tags.
func (c *Ollama) IsAvailable(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(c.opts.baseURL, "/")+"/api/tags", nil)
	if err != nil {
		return err
	}
	resp, err := c.opts.client.Do(req)
	if err != nil {
		return fmt.Errorf("ollama not available: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ollama returned status %d", resp.StatusCode)
	}
	return nil
}
