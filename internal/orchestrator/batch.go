package orchestrator

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/valpere/contentgate/internal/config"
	"github.com/valpere/contentgate/internal/logger"
)

// Input is one document of a batch.
type Input struct {
	Name string
	Text string
}

// BatchResult pairs an input with its report. Err is the error Run returned.
type BatchResult struct {
	Name   string
	Report *Report
	Err    error
}

// RunBatch runs independent documents with at most concurrency runs in
// flight. Results are returned in input order. A failing document does not
// stop the others; cancelling ctx does.
func (o *Orchestrator) RunBatch(ctx context.Context, docs []Input, cfg config.Config, concurrency int) []BatchResult {
	if concurrency < 1 {
		concurrency = 1
	}
	out := make([]BatchResult, len(docs))

	var g errgroup.Group
	g.SetLimit(concurrency)
	for i, d := range docs {
		g.Go(func() error {
			log := logger.FromContext(ctx).With("document", d.Name)
			rep, err := o.Run(logger.ContextWithLogger(ctx, log), d.Text, cfg.Clone())
			out[i] = BatchResult{Name: d.Name, Report: rep, Err: err}
			return nil
		})
	}
	_ = g.Wait()
	return out
}
