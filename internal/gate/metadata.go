package gate

import (
	"fmt"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/valpere/contentgate/internal/config"
	"github.com/valpere/contentgate/internal/document"
)

// NewMetadataOptimizer returns the gate that produces the title, meta
// description and FAQ schema. It rewrites no blocks; its output is the run's
// artifact.
func NewMetadataOptimizer(d Deps) Stage {
	return &gate{deps: d, variant: variant{
		stage:    config.StageMetadataOptimizer,
		template: "metadata_optimizer.tmpl",
		base:     90,
		expect:   Expect{Metadata: true},
		check:    metadataChecks,
		finish:   buildArtifact,
	}}
}

func metadataChecks(doc *document.Document, cfg config.Config) []Finding {
	t := cfg.Thresholds
	var out []Finding

	title := document.PlainText(doc.Title())
	switch n := utf8.RuneCountInString(title); {
	case n == 0:
		out = append(out, Finding{
			Rule:       "title",
			Severity:   SeverityHigh,
			Message:    "page has no title",
			Element:    "Title",
			Suggestion: fmt.Sprintf("Provide an answer-first title under %d characters.", t.TitleMaxChars),
			Source:     SourceRule,
		})
	case n > t.TitleMaxChars:
		out = append(out, Finding{
			Rule:       "title",
			Severity:   SeverityHigh,
			Message:    fmt.Sprintf("title has %d characters, want at most %d", n, t.TitleMaxChars),
			Element:    "Title",
			Suggestion: "Shorten the title and lead with the answer.",
			Source:     SourceRule,
		})
	}

	desc := document.PlainText(doc.Metadata.Description)
	if n := utf8.RuneCountInString(desc); n < t.MetaMinChars || n > t.MetaMaxChars {
		msg := fmt.Sprintf("meta description has %d characters, want %d-%d", n, t.MetaMinChars, t.MetaMaxChars)
		if n == 0 {
			msg = "no meta description declared"
		}
		out = append(out, Finding{
			Rule:       "meta-description",
			Severity:   SeverityMedium,
			Message:    msg,
			Element:    "Meta description",
			Suggestion: "Summarise the answer and the evidence in one or two sentences.",
			Source:     SourceRule,
		})
	}

	if t.RequireFAQ {
		if n := len(document.FAQEntries(doc)); n < t.MinFAQEntries {
			out = append(out, Finding{
				Rule:       "faq-schema",
				Severity:   SeverityMedium,
				Message:    fmt.Sprintf("%d FAQ entries available for FAQPage schema, want at least %d", n, t.MinFAQEntries),
				Element:    "Schema",
				Suggestion: "Answer each FAQ question so the FAQPage schema can be generated.",
				Source:     SourceRule,
			})
		}
	}
	return out
}

// buildArtifact merges the model's metadata over the locally derived one.
// Fields the model left out keep their derived values.
func buildArtifact(doc *document.Document, cfg config.Config, p *Parsed, res *Result) {
	t := cfg.Thresholds
	a := document.DeriveArtifact(doc, t)
	if a.Title == "" {
		a.Title = synthesizeTitle(keyword(doc, cfg), t.TitleMaxChars)
	}

	fromModel := false
	if p.Title != "" {
		title := document.PlainText(p.Title)
		if n := utf8.RuneCountInString(title); n > t.TitleMaxChars {
			res.Findings = append(res.Findings, Finding{
				Rule:     "title",
				Severity: SeverityLow,
				Message:  fmt.Sprintf("generated title has %d characters and was truncated to %d", n, t.TitleMaxChars),
				Element:  "Title",
				Source:   SourceGate,
			})
			title = document.Truncate(title, t.TitleMaxChars)
		}
		a.Title = title
		fromModel = true
	}
	if p.Description != "" {
		desc := document.Truncate(document.PlainText(p.Description), t.MetaMaxChars)
		if n := utf8.RuneCountInString(desc); n < t.MetaMinChars {
			res.Findings = append(res.Findings, Finding{
				Rule:     "meta-description",
				Severity: SeverityLow,
				Message:  fmt.Sprintf("generated meta description has %d characters, want at least %d", n, t.MetaMinChars),
				Element:  "Meta description",
				Source:   SourceGate,
			})
		}
		a.Description = desc
		fromModel = true
	}
	if len(p.FAQ) > 0 {
		a.FAQ = p.FAQ
		fromModel = true
	}

	a.Schema = document.FAQSchema(a.FAQ)
	a.Derived = !fromModel
	res.Artifact = a
}

// synthesizeTitle builds a fallback title from the primary keyword.
func synthesizeTitle(kw string, max int) string {
	if kw == "" {
		return ""
	}
	title := cases.Title(language.English).String(kw) + " – Answer, Evidence, Authority"
	return document.Truncate(title, max)
}
