package mcpserver

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/valpere/contentgate/internal/config"
)

// ProfilesTool handles the list_profiles MCP tool.
type ProfilesTool struct{}

func NewProfilesTool() *ProfilesTool {
	return &ProfilesTool{}
}

// Definition returns the MCP tool definition for list_profiles.
func (t *ProfilesTool) Definition() mcp.Tool {
	return mcp.NewTool("list_profiles",
		mcp.WithDescription("List the content profiles with the thresholds each one enforces, and the models available per gate."),
	)
}

// Handle processes the list_profiles tool call.
func (t *ProfilesTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var sb strings.Builder
	sb.WriteString("## Content Profiles\n")

	for _, p := range config.Profiles {
		th := config.ThresholdsFor(p)
		fmt.Fprintf(&sb, "\n### %s (`%s`)\n\n", p.Title(), p)
		fmt.Fprintf(&sb, "- **Question H2s**: %t\n", th.RequireH2Questions)
		fmt.Fprintf(&sb, "- **Answer-first intro**: %t (%d-%d words)\n", th.RequireAnswerFirstIntro, th.IntroMinWords, th.IntroMaxWords)
		fmt.Fprintf(&sb, "- **FAQ**: %t (at least %d entries)\n", th.RequireFAQ, th.MinFAQEntries)
		fmt.Fprintf(&sb, "- **Chunks**: %d-%d words\n", th.ChunkMinWords, th.ChunkMaxWords)
		fmt.Fprintf(&sb, "- **Sentences**: at most %d words, SVO preference %s\n", th.MaxSentenceWords, th.SVOPreference)
		fmt.Fprintf(&sb, "- **Citations**: from %d\n", th.MinCitationYear)
		fmt.Fprintf(&sb, "- **Title / meta**: %d / %d-%d characters\n", th.TitleMaxChars, th.MetaMinChars, th.MetaMaxChars)
	}

	sb.WriteString("\n## Models\n\n")
	for _, m := range config.Catalog {
		fmt.Fprintf(&sb, "- %s\n", m)
	}

	return mcp.NewToolResultText(sb.String()), nil
}
