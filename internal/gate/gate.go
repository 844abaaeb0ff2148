// Package gate implements the five quality gates of the pipeline. Each gate
// runs deterministic rule checks, asks a generation provider for a verdict
// and rewrites, parses the reply with a strict grammar and returns an
// immutable Result. Gates never mutate the document; the orchestrator
// applies accepted rewrites.
package gate

import (
	"context"
	"time"

	"github.com/valpere/contentgate/internal/config"
	"github.com/valpere/contentgate/internal/detector"
	"github.com/valpere/contentgate/internal/document"
	"github.com/valpere/contentgate/internal/generation"
	"github.com/valpere/contentgate/internal/validator"
)

type Verdict string

const (
	VerdictPass     Verdict = "pass"
	VerdictFail     Verdict = "fail"
	VerdictFailSoft Verdict = "fail-soft"
)

type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

func (s Severity) valid() bool {
	switch s {
	case SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow:
		return true
	}
	return false
}

// Source tells whether a finding came from a local rule or from the model.
type Source string

const (
	SourceRule  Source = "rule"
	SourceModel Source = "model"
	SourceGate  Source = "gate"
)

// Finding is one human-readable observation keyed to a rule.
type Finding struct {
	Rule       string   `json:"rule" yaml:"rule"`
	Severity   Severity `json:"severity" yaml:"severity"`
	Message    string   `json:"message" yaml:"message"`
	Element    string   `json:"element,omitempty" yaml:"element,omitempty"`
	Suggestion string   `json:"suggestion,omitempty" yaml:"suggestion,omitempty"`
	Blocks     []int    `json:"blocks,omitempty" yaml:"blocks,omitempty"`
	Source     Source   `json:"source" yaml:"source"`
	// Impact estimates 0-100 how much fixing the finding would help.
	Impact int `json:"impact" yaml:"impact"`
}

// Result is the outcome of one gate run. It is not modified after Run
// returns.
type Result struct {
	Stage    config.Stage       `json:"stage" yaml:"stage"`
	Verdict  Verdict            `json:"verdict" yaml:"verdict"`
	Findings []Finding          `json:"findings" yaml:"findings"`
	Rewrites map[int]string     `json:"rewrites,omitempty" yaml:"rewrites,omitempty"`
	Artifact *document.Artifact `json:"artifact,omitempty" yaml:"artifact,omitempty"`
	Model    string             `json:"model" yaml:"model"`
	Attempts int                `json:"attempts" yaml:"attempts"`
	Duration time.Duration      `json:"duration" yaml:"duration"`
	// Reason explains a fail or fail-soft verdict that did not come from
	// the model: a generation error or a malformed response.
	Reason string `json:"reason,omitempty" yaml:"reason,omitempty"`
	// ErrorKind is set when the generation call failed.
	ErrorKind generation.Kind `json:"error_kind,omitempty" yaml:"error_kind,omitempty"`

	Score   Score   `json:"score" yaml:"score"`
	Summary Summary `json:"summary" yaml:"summary"`
}

// Stage is the capability shared by every gate.
type Stage interface {
	Name() config.Stage
	// Owns reports whether the gate may rewrite b.
	Owns(b document.Block) bool
	Run(ctx context.Context, doc *document.Document, cfg config.Config) Result
}

// Deps are the collaborators shared by all gates. Generator is required;
// a nil Validator only checks that rewrites are non-empty and a nil
// Detector leaves the prompt language unspecified.
type Deps struct {
	Generator generation.Generator
	Validator *validator.Validator
	Detector  *detector.Detector
}

// All returns the gates in pipeline order.
func All(d Deps) []Stage {
	return []Stage{
		NewStrategist(d),
		NewChunkOptimizer(d),
		NewStylist(d),
		NewAuthorityBuilder(d),
		NewMetadataOptimizer(d),
	}
}
