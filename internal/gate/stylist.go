package gate

import (
	"fmt"
	"regexp"
	"unicode"
	"unicode/utf8"

	"github.com/valpere/contentgate/internal/chunker"
	"github.com/valpere/contentgate/internal/config"
	"github.com/valpere/contentgate/internal/document"
)

var rePassive = regexp.MustCompile(`(?i)\b(be|been|being|is|are|was|were)\s+\w+ed\b`)

// NewStylist returns the gate that tunes sentences for extraction: short,
// active, subject-verb-object and entity dense. It owns paragraphs and
// lists.
func NewStylist(d Deps) Stage {
	return &gate{deps: d, variant: variant{
		stage:    config.StageStylist,
		template: "stylist.tmpl",
		base:     90,
		expect:   Expect{Rewrites: true},
		owns:     prose,
		check:    stylistChecks,
	}}
}

func prose(b document.Block) bool {
	return b.Type == document.Paragraph || b.Type == document.List
}

func stylistChecks(doc *document.Document, cfg config.Config) []Finding {
	t := cfg.Thresholds
	var out []Finding

	passiveSeverity := SeverityLow
	if t.SVOPreference == "high" {
		passiveSeverity = SeverityMedium
	}

	for _, b := range doc.Select(prose) {
		text := document.PlainText(b.CurrentText)
		sentences := chunker.Sentences(text)

		long := 0
		for _, s := range sentences {
			if chunker.Words(s) > t.MaxSentenceWords {
				long++
			}
		}
		if long > 0 {
			out = append(out, Finding{
				Rule:       "sentence-length",
				Severity:   SeverityMedium,
				Message:    fmt.Sprintf("%d sentence(s) longer than %d words", long, t.MaxSentenceWords),
				Element:    element(b),
				Suggestion: "Break long sentences into short subject-verb-object statements.",
				Blocks:     []int{b.ID},
				Source:     SourceRule,
			})
		}

		if m := rePassive.FindString(text); m != "" && t.SVOPreference != "low" {
			out = append(out, Finding{
				Rule:       "active-voice",
				Severity:   passiveSeverity,
				Message:    fmt.Sprintf("passive construction %q", m),
				Element:    element(b),
				Suggestion: "Name the actor and put it first.",
				Blocks:     []int{b.ID},
				Source:     SourceRule,
			})
		}

		if t.EvidenceDensityCheck && b.Type == document.Paragraph && lowDensity(sentences) {
			out = append(out, Finding{
				Rule:       "entity-density",
				Severity:   SeverityLow,
				Message:    "paragraph names too few entities or facts",
				Element:    element(b),
				Suggestion: "Add named entities, figures and quantified comparisons.",
				Blocks:     []int{b.ID},
				Source:     SourceRule,
			})
		}
	}
	return out
}

// lowDensity reports a paragraph with fewer than three sentences or fewer
// than two capitalised words outside sentence starts.
func lowDensity(sentences []string) bool {
	if len(sentences) < 3 {
		return true
	}
	entities := 0
	for _, s := range sentences {
		for i, w := range splitWords(s) {
			if i == 0 {
				continue
			}
			if r, _ := utf8.DecodeRuneInString(w); unicode.IsUpper(r) {
				entities++
			}
		}
	}
	return entities < 2
}

func splitWords(s string) []string {
	var out []string
	start := -1
	for i, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			out = append(out, s[start:i])
			start = -1
		}
	}
	if start >= 0 {
		out = append(out, s[start:])
	}
	return out
}

func element(b document.Block) string {
	if b.Section != "" {
		return b.Section
	}
	return fmt.Sprintf("%s %d", b.Type, b.ID)
}
