// Package orchestrator runs a document through the gate pipeline and applies
// the enforcement policy of the configured mode.
package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/valpere/contentgate/internal/config"
	"github.com/valpere/contentgate/internal/document"
	"github.com/valpere/contentgate/internal/gate"
	"github.com/valpere/contentgate/internal/logger"
)

// ReasonCancelled is the halt reason recorded when the caller's context ends
// during a run.
const ReasonCancelled = "cancelled"

type Orchestrator struct {
	stages []gate.Stage
}

// New returns an orchestrator that runs stages in the given order.
func New(stages []gate.Stage) *Orchestrator {
	return &Orchestrator{stages: stages}
}

// NewDefault returns an orchestrator over the five standard gates.
func NewDefault(d gate.Deps) *Orchestrator {
	return New(gate.All(d))
}

// Run optimizes raw under cfg. The returned report is never nil. An error is
// returned only when the run could not start (invalid configuration, empty
// document) or was cancelled; gate failures are reported, not returned.
//
// Run keeps no state between calls and may be used concurrently.
func (o *Orchestrator) Run(ctx context.Context, raw string, cfg config.Config) (*Report, error) {
	rep := &Report{
		RunID:     uuid.NewString(),
		Profile:   cfg.Profile,
		Mode:      cfg.Mode,
		Keyword:   cfg.Keyword,
		Source:    raw,
		StartedAt: time.Now(),
	}
	defer func() { rep.Duration = time.Since(rep.StartedAt) }()

	log := logger.FromContext(ctx).With("run_id", rep.RunID)
	ctx = logger.ContextWithLogger(ctx, log)

	if err := cfg.Validate(); err != nil {
		rep.Halted = true
		rep.Reason = err.Error()
		log.Error("configuration rejected", "err", err)
		return rep, err
	}

	doc, err := document.New(raw, cfg.Profile, cfg.Mode)
	if err != nil {
		rep.Halted = true
		rep.Reason = fmt.Sprintf("segmentation: %v", err)
		log.Error("segmentation failed", "err", err)
		return rep, fmt.Errorf("segment document: %w", err)
	}
	if rep.Keyword == "" {
		rep.Keyword = doc.Metadata.Keyword
	}

	log.Info("run started", "profile", cfg.Profile, "mode", cfg.Mode, "blocks", len(doc.Blocks), "stages", len(o.stages))

	runErr := o.runStages(ctx, doc, cfg, rep, log)

	rep.Artifact = artifactOf(rep)
	if rep.Artifact == nil {
		rep.Artifact = document.DeriveArtifact(doc, cfg.Thresholds)
	}
	rep.Blocks = doc.Snapshot()
	rep.Markdown = doc.Markdown()

	log.Info("run finished", "status", rep.Status(), "stages_run", len(rep.Results), "warnings", len(rep.Warnings))
	return rep, runErr
}

func (o *Orchestrator) runStages(ctx context.Context, doc *document.Document, cfg config.Config, rep *Report, log logger.Logger) error {
	for _, st := range o.stages {
		if err := ctx.Err(); err != nil {
			rep.halt(st.Name(), ReasonCancelled)
			log.Warn("run cancelled before stage", "stage", st.Name())
			return err
		}

		res := st.Run(ctx, doc, cfg)
		rep.Results = append(rep.Results, res)

		if err := ctx.Err(); err != nil {
			rep.halt(st.Name(), ReasonCancelled)
			log.Warn("run cancelled during stage", "stage", st.Name())
			return err
		}

		switch res.Verdict {
		case gate.VerdictPass:
			o.apply(doc, st, res, rep, log)
		case gate.VerdictFailSoft:
			rep.warn(st.Name(), "response rejected, stage skipped: "+res.Reason)
		default:
			if cfg.Mode == config.ModeStrict {
				rep.halt(st.Name(), failReason(st.Name(), res))
				log.Warn("run halted", "stage", st.Name(), "reason", rep.Reason)
				return nil
			}
			rep.warn(st.Name(), failReason(st.Name(), res))
			o.apply(doc, st, res, rep, log)
		}
	}
	return nil
}

func (o *Orchestrator) apply(doc *document.Document, st gate.Stage, res gate.Result, rep *Report, log logger.Logger) {
	if len(res.Rewrites) == 0 {
		return
	}
	if err := doc.Apply(st.Owns, res.Rewrites); err != nil {
		rep.warn(st.Name(), "rewrites discarded: "+err.Error())
		log.Warn("rewrites discarded", "stage", st.Name(), "err", err)
		return
	}
	log.Debug("rewrites applied", "stage", st.Name(), "blocks", len(res.Rewrites))
}

func failReason(stage config.Stage, res gate.Result) string {
	why := res.Reason
	if why == "" {
		for _, f := range res.Findings {
			if f.Severity == gate.SeverityCritical || f.Severity == gate.SeverityHigh {
				why = f.Message
				break
			}
		}
	}
	if why == "" && len(res.Findings) > 0 {
		why = res.Findings[0].Message
	}
	if why == "" {
		why = "verdict fail"
	}
	return fmt.Sprintf("%s failed: %s", stage.Title(), why)
}

func artifactOf(rep *Report) *document.Artifact {
	for i := len(rep.Results) - 1; i >= 0; i-- {
		if a := rep.Results[i].Artifact; a != nil {
			return a
		}
	}
	return nil
}
