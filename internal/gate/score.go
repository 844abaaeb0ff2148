package gate

import (
	"fmt"

	"github.com/valpere/contentgate/internal/config"
)

// ScoreLabel names the 0-100 scale gates report on.
const ScoreLabel = "AI Readiness"

// penalty is subtracted from a gate's base score per finding.
var penalty = map[Severity]int{
	SeverityCritical: 40,
	SeverityHigh:     20,
	SeverityMedium:   10,
	SeverityLow:      5,
}

// impact is the default impact of a finding that carries none.
var impact = map[Severity]int{
	SeverityCritical: 95,
	SeverityHigh:     85,
	SeverityMedium:   60,
	SeverityLow:      30,
}

// Score is a gate's readiness estimate. It is informational; the verdict
// still decides whether the pipeline continues.
type Score struct {
	Value int    `json:"value" yaml:"value"`
	Label string `json:"label" yaml:"label"`
	Note  string `json:"note" yaml:"note"`
}

// Summary counts findings per severity.
type Summary struct {
	Decision Verdict `json:"decision" yaml:"decision"`
	Critical int     `json:"critical" yaml:"critical"`
	High     int     `json:"high" yaml:"high"`
	Medium   int     `json:"medium" yaml:"medium"`
	Low      int     `json:"low" yaml:"low"`
}

func (s Summary) String() string {
	return fmt.Sprintf("Decision: %s. Issues -> Critical %d, High %d, Medium %d, Low %d.",
		s.Decision, s.Critical, s.High, s.Medium, s.Low)
}

// Summarize counts findings by severity under verdict v.
func Summarize(v Verdict, findings []Finding) Summary {
	s := Summary{Decision: v}
	for _, f := range findings {
		switch f.Severity {
		case SeverityCritical:
			s.Critical++
		case SeverityHigh:
			s.High++
		case SeverityMedium:
			s.Medium++
		case SeverityLow:
			s.Low++
		}
	}
	return s
}

// ScoreFindings subtracts a severity penalty per finding from base and
// clamps the result to 0..100.
func ScoreFindings(base int, findings []Finding) int {
	v := base
	for _, f := range findings {
		v -= penalty[f.Severity]
	}
	return min(max(v, 0), 100)
}

// finalize fills the score, summary and missing impacts of res.
func (g *gate) finalize(res *Result, cfg config.Config) {
	for i := range res.Findings {
		if res.Findings[i].Impact == 0 {
			res.Findings[i].Impact = impact[res.Findings[i].Severity]
		}
	}
	base := g.base
	if base == 0 {
		base = 100
	}
	res.Score = Score{
		Value: ScoreFindings(base, res.Findings),
		Label: ScoreLabel,
		Note:  fmt.Sprintf("Profile: %s; Mode: %s", cfg.Profile, cfg.Mode),
	}
	res.Summary = Summarize(res.Verdict, res.Findings)
}
