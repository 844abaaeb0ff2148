package mcpserver

import (
	"context"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/valpere/contentgate/internal/config"
	"github.com/valpere/contentgate/internal/logger"
	"github.com/valpere/contentgate/internal/render"
)

// OptimizeTool handles the optimize_content MCP tool.
type OptimizeTool struct {
	runner Runner
	base   config.Config
	rec    Recorder
}

func NewOptimizeTool(runner Runner, base config.Config, rec Recorder) *OptimizeTool {
	return &OptimizeTool{runner: runner, base: base, rec: rec}
}

// Definition returns the MCP tool definition for optimize_content.
func (t *OptimizeTool) Definition() mcp.Tool {
	profiles := make([]string, len(config.Profiles))
	for i, p := range config.Profiles {
		profiles[i] = string(p)
	}

	return mcp.NewTool("optimize_content",
		mcp.WithDescription(
			"Run a markdown draft through the five content gates and return the report with the optimized text, "+
				"findings per gate and the generated title, meta description and FAQ schema.",
		),
		mcp.WithString("content",
			mcp.Required(),
			mcp.Description("The markdown document to optimize"),
		),
		mcp.WithString("profile",
			mcp.Description("Content profile"),
			mcp.Enum(profiles...),
			mcp.DefaultString(string(t.base.Profile)),
		),
		mcp.WithString("mode",
			mcp.Description("strict halts at the first failing gate; lite records the failure and continues"),
			mcp.Enum(string(config.ModeStrict), string(config.ModeLite)),
			mcp.DefaultString(string(t.base.Mode)),
		),
		mcp.WithString("keyword",
			mcp.Description("Primary keyword the page should rank and be cited for"),
		),
		mcp.WithString("format",
			mcp.Description("Report format"),
			mcp.Enum(string(render.FormatMarkdown), string(render.FormatJSON), string(render.FormatYAML)),
			mcp.DefaultString(string(render.FormatMarkdown)),
		),
	)
}

// Handle processes the optimize_content tool call.
func (t *OptimizeTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	content := req.GetString("content", "")
	if content == "" {
		return mcp.NewToolResultError("'content' is required"), nil
	}

	cfg, err := t.config(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	format, err := render.ParseFormat(req.GetString("format", string(render.FormatMarkdown)))
	if err != nil || format == render.FormatHTML {
		return mcp.NewToolResultError(fmt.Sprintf("unsupported format %q", req.GetString("format", ""))), nil
	}

	rep, err := t.runner.Run(ctx, content, cfg)
	if err != nil && (rep == nil || len(rep.Results) == 0) {
		return mcp.NewToolResultError(fmt.Sprintf("optimization failed: %v", err)), nil
	}

	if t.rec != nil && !errors.Is(err, context.Canceled) {
		if err := t.rec.SaveRun(ctx, rep.Record()); err != nil {
			logger.FromContext(ctx).Warn("failed to record run", "run_id", rep.RunID, "err", err)
		}
	}

	out, err := render.String(rep, format)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to render report: %v", err)), nil
	}
	return mcp.NewToolResultText(out), nil
}

func (t *OptimizeTool) config(req mcp.CallToolRequest) (config.Config, error) {
	cfg := t.base.Clone()

	if s := req.GetString("profile", ""); s != "" {
		p, err := config.ParseProfile(s)
		if err != nil {
			return cfg, err
		}
		if p != cfg.Profile {
			cfg.Profile = p
			cfg.Thresholds = config.ThresholdsFor(p)
		}
	}
	if s := req.GetString("mode", ""); s != "" {
		m, err := config.ParseMode(s)
		if err != nil {
			return cfg, err
		}
		cfg.Mode = m
	}
	if kw := req.GetString("keyword", ""); kw != "" {
		cfg.Keyword = kw
	}
	return cfg, nil
}
