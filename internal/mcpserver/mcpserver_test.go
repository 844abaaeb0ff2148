package mcpserver

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/valpere/contentgate/internal"
	"github.com/valpere/contentgate/internal/config"
	"github.com/valpere/contentgate/internal/gate"
	"github.com/valpere/contentgate/internal/generation/generationtest"
	"github.com/valpere/contentgate/internal/orchestrator"
)

const page = "# Answer Engines\n\nShort intro paragraph."

// ─── Test helpers ────────────────────────────────────────────────────────────

func makeReq(args map[string]interface{}) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

func resultText(r *mcp.CallToolResult) string {
	if r == nil || len(r.Content) == 0 {
		return ""
	}
	for _, c := range r.Content {
		if tc, ok := c.(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func baseConfig() config.Config {
	cfg := config.ForProfile(config.ProfileBlog, config.ModeLite)
	cfg.Retry.BaseDelay = time.Millisecond
	cfg.Retry.MaxDelay = 5 * time.Millisecond
	return cfg
}

type memRecorder struct {
	mu   sync.Mutex
	runs []*internal.RunRecord
}

func (m *memRecorder) SaveRun(_ context.Context, rec *internal.RunRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs = append(m.runs, rec)
	return nil
}

// captureRunner records the configuration it was called with.
type captureRunner struct {
	cfg config.Config
}

func (c *captureRunner) Run(_ context.Context, raw string, cfg config.Config) (*orchestrator.Report, error) {
	c.cfg = cfg
	return &orchestrator.Report{Profile: cfg.Profile, Mode: cfg.Mode, Source: raw, Markdown: raw}, nil
}

// ─── OptimizeTool Tests ──────────────────────────────────────────────────────

func TestOptimizeTool_Definition(t *testing.T) {
	tool := NewOptimizeTool(&captureRunner{}, baseConfig(), nil)
	def := tool.Definition()

	if def.Name != "optimize_content" {
		t.Errorf("tool name = %q, want optimize_content", def.Name)
	}
	for _, p := range []string{"content", "profile", "mode", "keyword", "format"} {
		if _, ok := def.InputSchema.Properties[p]; !ok {
			t.Errorf("missing %q parameter", p)
		}
	}
	if len(def.InputSchema.Required) != 1 || def.InputSchema.Required[0] != "content" {
		t.Errorf("required = %v, want [content]", def.InputSchema.Required)
	}
}

func TestOptimizeTool_Markdown(t *testing.T) {
	gen := generationtest.New()
	rec := &memRecorder{}
	tool := NewOptimizeTool(orchestrator.NewDefault(gate.Deps{Generator: gen}), baseConfig(), rec)

	result, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{
		"content": page,
		"keyword": "answer engines",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected tool error: %s", resultText(result))
	}

	text := resultText(result)
	for _, want := range []string{"# Content report", "| Status | **PASSED** |", "| Keyword | answer engines |"} {
		if !strings.Contains(text, want) {
			t.Errorf("report missing %q:\n%s", want, text)
		}
	}
	if gen.Total() != len(config.Stages) {
		t.Errorf("generation calls = %d, want %d", gen.Total(), len(config.Stages))
	}

	if len(rec.runs) != 1 {
		t.Fatalf("recorded runs = %d, want 1", len(rec.runs))
	}
	if rec.runs[0].Status != orchestrator.StatusPassed || rec.runs[0].Source != page {
		t.Errorf("unexpected record: %+v", rec.runs[0])
	}
}

func TestOptimizeTool_JSON(t *testing.T) {
	tool := NewOptimizeTool(orchestrator.NewDefault(gate.Deps{Generator: generationtest.New()}), baseConfig(), nil)

	result, _ := tool.Handle(context.Background(), makeReq(map[string]interface{}{
		"content": page,
		"format":  "json",
	}))
	if result.IsError {
		t.Fatalf("unexpected tool error: %s", resultText(result))
	}
	text := resultText(result)
	if !strings.HasPrefix(text, "{") || !strings.Contains(text, `"run_id"`) {
		t.Errorf("expected a JSON report, got:\n%s", text)
	}
}

func TestOptimizeTool_ProfileOverride(t *testing.T) {
	runner := &captureRunner{}
	tool := NewOptimizeTool(runner, baseConfig(), nil)

	_, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{
		"content": page,
		"profile": "Thought Leadership",
		"mode":    "strict",
		"keyword": "answer engines",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if runner.cfg.Profile != config.ProfileThoughtLeadership {
		t.Errorf("profile = %q", runner.cfg.Profile)
	}
	if runner.cfg.Mode != config.ModeStrict {
		t.Errorf("mode = %q", runner.cfg.Mode)
	}
	if runner.cfg.Keyword != "answer engines" {
		t.Errorf("keyword = %q", runner.cfg.Keyword)
	}
	if runner.cfg.Thresholds != config.ThresholdsFor(config.ProfileThoughtLeadership) {
		t.Error("thresholds were not switched to the requested profile")
	}
	if runner.cfg.Retry != baseConfig().Retry {
		t.Error("retry policy must come from the base configuration")
	}
}

func TestOptimizeTool_Errors(t *testing.T) {
	tests := []struct {
		name string
		args map[string]interface{}
		want string
	}{
		{"missing content", map[string]interface{}{}, "required"},
		{"unknown profile", map[string]interface{}{"content": page, "profile": "newsletter"}, "unknown profile"},
		{"unknown mode", map[string]interface{}{"content": page, "mode": "loose"}, "unknown mode"},
		{"html format", map[string]interface{}{"content": page, "format": "html"}, "unsupported format"},
		{"empty document", map[string]interface{}{"content": "  \n\n "}, "optimization failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := generationtest.New()
			tool := NewOptimizeTool(orchestrator.NewDefault(gate.Deps{Generator: gen}), baseConfig(), nil)

			result, err := tool.Handle(context.Background(), makeReq(tt.args))
			if err != nil {
				t.Fatalf("unexpected Go error: %v", err)
			}
			if !result.IsError {
				t.Fatalf("expected a tool error, got:\n%s", resultText(result))
			}
			if !strings.Contains(resultText(result), tt.want) {
				t.Errorf("error %q should mention %q", resultText(result), tt.want)
			}
			if gen.Total() != 0 {
				t.Errorf("no generation call expected, got %d", gen.Total())
			}
		})
	}
}

// ─── ProfilesTool Tests ──────────────────────────────────────────────────────

func TestProfilesTool_Handle(t *testing.T) {
	tool := NewProfilesTool()
	if tool.Definition().Name != "list_profiles" {
		t.Errorf("tool name = %q", tool.Definition().Name)
	}

	result, err := tool.Handle(context.Background(), makeReq(nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	text := resultText(result)
	for _, p := range config.Profiles {
		if !strings.Contains(text, "`"+string(p)+"`") {
			t.Errorf("missing profile %s", p)
		}
	}
	if !strings.Contains(text, config.Catalog[0]) {
		t.Error("missing model catalog")
	}
}

func TestNew_RegistersTools(t *testing.T) {
	s := New(&captureRunner{}, baseConfig(), nil)
	if s == nil {
		t.Fatal("New returned nil")
	}
	tools := s.ListTools()
	for _, name := range []string{"optimize_content", "list_profiles"} {
		if _, ok := tools[name]; !ok {
			t.Errorf("tool %s not registered", name)
		}
	}
}
