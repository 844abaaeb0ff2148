package gate

import (
	"fmt"

	"github.com/valpere/contentgate/internal/chunker"
	"github.com/valpere/contentgate/internal/config"
	"github.com/valpere/contentgate/internal/document"
)

// NewChunkOptimizer returns the gate that shapes section bodies into
// self-contained Answer, Evidence, Context chunks. It owns paragraphs that
// sit under an H2.
func NewChunkOptimizer(d Deps) Stage {
	return &gate{deps: d, variant: variant{
		stage:    config.StageChunkOptimizer,
		template: "chunk_optimizer.tmpl",
		expect:   Expect{Rewrites: true},
		owns:     sectionParagraph,
		check:    chunkChecks,
	}}
}

func sectionParagraph(b document.Block) bool {
	return b.Type == document.Paragraph && b.Section != ""
}

func chunkChecks(doc *document.Document, cfg config.Config) []Finding {
	t := cfg.Thresholds
	var out []Finding

	for _, b := range doc.Select(sectionParagraph) {
		text := document.PlainText(b.CurrentText)
		words := chunker.Words(text)

		switch {
		case words < t.ChunkMinWords:
			out = append(out, Finding{
				Rule:       "chunk-length",
				Severity:   SeverityMedium,
				Message:    fmt.Sprintf("chunk has %d words, want at least %d", words, t.ChunkMinWords),
				Element:    b.Section,
				Suggestion: "Expand the chunk with the evidence and context that support its answer.",
				Blocks:     []int{b.ID},
				Source:     SourceRule,
			})
		case words > t.ChunkMaxWords:
			parts := chunker.Chunk(text, t.ChunkMaxWords)
			out = append(out, Finding{
				Rule:       "chunk-length",
				Severity:   SeverityHigh,
				Message:    fmt.Sprintf("chunk has %d words, want at most %d", words, t.ChunkMaxWords),
				Element:    b.Section,
				Suggestion: fmt.Sprintf("Split into %d focused chunks or tighten the wording.", len(parts)),
				Blocks:     []int{b.ID},
				Source:     SourceRule,
			})
		}

		if n := len(chunker.Sentences(text)); n < t.MinAECSentences {
			out = append(out, Finding{
				Rule:       "answer-evidence-context",
				Severity:   SeverityMedium,
				Message:    fmt.Sprintf("chunk has %d sentence(s), too few for answer, evidence and context", n),
				Element:    b.Section,
				Suggestion: "Answer the heading first, then give evidence, then explain why it matters.",
				Blocks:     []int{b.ID},
				Source:     SourceRule,
			})
		}
	}
	return out
}
