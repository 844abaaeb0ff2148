// Package mcpserver exposes the pipeline as MCP tools over stdio.
package mcpserver

import (
	"context"

	"github.com/mark3labs/mcp-go/server"

	"github.com/valpere/contentgate/internal"
	"github.com/valpere/contentgate/internal/config"
	"github.com/valpere/contentgate/internal/orchestrator"
)

// Version is reported to MCP clients.
var Version = "dev"

// Runner runs the pipeline on one document.
type Runner interface {
	Run(ctx context.Context, raw string, cfg config.Config) (*orchestrator.Report, error)
}

// Recorder stores finished runs. It may be nil.
type Recorder interface {
	SaveRun(ctx context.Context, rec *internal.RunRecord) error
}

// New creates the MCP server with every tool registered. base supplies the
// models, generation parameters and retry policy; tool arguments select the
// profile, mode and keyword per call.
func New(runner Runner, base config.Config, rec Recorder) *server.MCPServer {
	s := server.NewMCPServer(
		"contentgate",
		Version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions("Use optimize_content to run a draft through the structure, chunking, style, authority and metadata gates. Use list_profiles to see the rules each content profile enforces."),
	)

	optimize := NewOptimizeTool(runner, base, rec)
	s.AddTool(optimize.Definition(), optimize.Handle)

	profiles := NewProfilesTool()
	s.AddTool(profiles.Definition(), profiles.Handle)

	return s
}

// Serve runs s on stdin/stdout until the client disconnects.
func Serve(s *server.MCPServer) error {
	return server.ServeStdio(s)
}
