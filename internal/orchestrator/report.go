package orchestrator

import (
	"fmt"
	"time"

	"github.com/valpere/contentgate/internal"
	"github.com/valpere/contentgate/internal/config"
	"github.com/valpere/contentgate/internal/document"
	"github.com/valpere/contentgate/internal/gate"
)

// Run statuses.
const (
	StatusPassed   = "passed"
	StatusWarnings = "warnings"
	StatusHalted   = "halted"
)

// Report is the outcome of one pipeline run.
type Report struct {
	RunID    string         `json:"run_id" yaml:"run_id"`
	Profile  config.Profile `json:"profile" yaml:"profile"`
	Mode     config.Mode    `json:"mode" yaml:"mode"`
	Keyword  string         `json:"keyword,omitempty" yaml:"keyword,omitempty"`
	Results  []gate.Result  `json:"results" yaml:"results"`
	Warnings []string       `json:"warnings,omitempty" yaml:"warnings,omitempty"`
	Halted   bool           `json:"halted" yaml:"halted"`
	HaltedAt config.Stage   `json:"halted_at,omitempty" yaml:"halted_at,omitempty"`
	Reason   string         `json:"reason,omitempty" yaml:"reason,omitempty"`

	Artifact *document.Artifact `json:"artifact,omitempty" yaml:"artifact,omitempty"`
	Blocks   []document.Block   `json:"blocks" yaml:"blocks"`
	Markdown string             `json:"markdown" yaml:"markdown"`

	// Source is the input text. It is kept for history records and not
	// serialized with the report.
	Source string `json:"-" yaml:"-"`

	StartedAt time.Time     `json:"started_at" yaml:"started_at"`
	Duration  time.Duration `json:"duration" yaml:"duration"`
}

// Status summarizes the run: halted, passed (every stage passed) or
// warnings.
func (r *Report) Status() string {
	if r.Halted {
		return StatusHalted
	}
	for _, res := range r.Results {
		if res.Verdict != gate.VerdictPass {
			return StatusWarnings
		}
	}
	if len(r.Warnings) > 0 {
		return StatusWarnings
	}
	return StatusPassed
}

// Score averages the scores of the stages that ran, 0 when none did.
func (r *Report) Score() int {
	if len(r.Results) == 0 {
		return 0
	}
	total := 0
	for _, res := range r.Results {
		total += res.Score.Value
	}
	return total / len(r.Results)
}

// Result returns the result of stage, if it ran.
func (r *Report) Result(stage config.Stage) (gate.Result, bool) {
	for _, res := range r.Results {
		if res.Stage == stage {
			return res, true
		}
	}
	return gate.Result{}, false
}

func (r *Report) halt(stage config.Stage, reason string) {
	r.Halted = true
	r.HaltedAt = stage
	r.Reason = reason
}

func (r *Report) warn(stage config.Stage, msg string) {
	r.Warnings = append(r.Warnings, fmt.Sprintf("%s: %s", stage, msg))
}

// Record converts the report into a history record.
func (r *Report) Record() *internal.RunRecord {
	rec := &internal.RunRecord{
		ID:        r.RunID,
		Source:    r.Source,
		Profile:   string(r.Profile),
		Mode:      string(r.Mode),
		Keyword:   r.Keyword,
		Status:    r.Status(),
		HaltedAt:  string(r.HaltedAt),
		Reason:    r.Reason,
		Output:    r.Markdown,
		Warnings:  r.Warnings,
		CreatedAt: r.StartedAt,
		Duration:  r.Duration,
	}
	if a := r.Artifact; a != nil {
		rec.Title = a.Title
		rec.Description = a.Description
		rec.Schema = a.Schema
	}
	for _, res := range r.Results {
		rec.Stages = append(rec.Stages, internal.StageRecord{
			Stage:    string(res.Stage),
			Verdict:  string(res.Verdict),
			Model:    res.Model,
			Attempts: res.Attempts,
			Findings: len(res.Findings),
			Rewrites: len(res.Rewrites),
			Score:    res.Score.Value,
			Summary:  res.Summary.String(),
			Reason:   res.Reason,
			Duration: res.Duration,
		})
	}
	return rec
}
