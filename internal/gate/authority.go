package gate

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/valpere/contentgate/internal/config"
	"github.com/valpere/contentgate/internal/document"
)

var (
	reURL   = regexp.MustCompile(`https?://[^\s)\]>]+`)
	reYear  = regexp.MustCompile(`\b(19|20)\d{2}\b`)
	reClaim = regexp.MustCompile(`\d+(\.\d+)?\s*(%|percent|x\b|times\b)`)
)

// NewAuthorityBuilder returns the gate that adds trust signals: sourced
// claims, fresh dates and first-hand experience. It owns paragraphs and
// lists.
func NewAuthorityBuilder(d Deps) Stage {
	return &gate{deps: d, variant: variant{
		stage:    config.StageAuthorityBuilder,
		template: "authority_builder.tmpl",
		base:     85,
		expect:   Expect{Rewrites: true},
		owns:     prose,
		check:    authorityChecks,
	}}
}

func authorityChecks(doc *document.Document, cfg config.Config) []Finding {
	t := cfg.Thresholds
	blocks := doc.Select(prose)
	if len(blocks) == 0 {
		return nil
	}

	var out []Finding
	cited, fresh := false, false
	for _, b := range blocks {
		if reURL.MatchString(b.CurrentText) {
			cited = true
		}
		if hasYearSince(b.CurrentText, t.MinCitationYear) {
			fresh = true
		}
		if reClaim.MatchString(b.CurrentText) && !reURL.MatchString(b.CurrentText) {
			out = append(out, Finding{
				Rule:       "unsourced-claim",
				Severity:   SeverityMedium,
				Message:    "quantified claim without a source link",
				Element:    element(b),
				Suggestion: "Link the figure to the study or dataset it comes from.",
				Blocks:     []int{b.ID},
				Source:     SourceRule,
			})
		}
	}

	if !cited {
		out = append(out, Finding{
			Rule:       "citations",
			Severity:   SeverityHigh,
			Message:    "content cites no external source",
			Suggestion: "Cite reputable sources (.gov, .edu, .org) with links.",
			Source:     SourceRule,
		})
	}
	if !fresh {
		out = append(out, Finding{
			Rule:       "freshness",
			Severity:   SeverityMedium,
			Message:    fmt.Sprintf("no date from %d or later", t.MinCitationYear),
			Suggestion: "State when the data was published or last reviewed.",
			Source:     SourceRule,
		})
	}
	return out
}

func hasYearSince(text string, min int) bool {
	for _, m := range reYear.FindAllString(text, -1) {
		if y, err := strconv.Atoi(m); err == nil && y >= min {
			return true
		}
	}
	return false
}
