// Package generationtest provides a scripted Generator for tests.
package generationtest

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/valpere/contentgate/internal/generation"
)

// Step is one scripted reply: either Text or Err. Delay holds the reply
// back and honours cancellation while waiting.
type Step struct {
	Text  string
	Err   error
	Delay time.Duration
}

// Pass replies with a passing verdict and no rewrites.
func Pass() Step { return Step{Text: generation.PassResponse} }

// Fail replies with a failing verdict and one finding.
func Fail(rule, message string) Step {
	return Step{Text: "@@GATE v1\n@@VERDICT fail\n@@FINDING " + rule + " | high | " + message + "\n@@END"}
}

// Reply wraps raw lines into a response body.
func Reply(lines ...string) Step {
	return Step{Text: strings.Join(lines, "\n")}
}

// Timeout replies with a timeout error.
func Timeout() Step {
	return Step{Err: &generation.Error{Kind: generation.KindTimeout, Provider: "scripted"}}
}

// RateLimited replies with a rate-limit error.
func RateLimited() Step {
	return Step{Err: &generation.Error{Kind: generation.KindRateLimited, Provider: "scripted", Code: 429}}
}

// Failure replies with an error of the given kind.
func Failure(kind generation.Kind) Step {
	return Step{Err: &generation.Error{Kind: kind, Provider: "scripted"}}
}

// Scripted replays steps per stage. Once a stage's script is exhausted the
// last step repeats. Stages without a script use the default script, which
// is Pass when none was given. Safe for concurrent use.
type Scripted struct {
	mu       sync.Mutex
	def      []Step
	byStage  map[string][]Step
	calls    map[string]int
	requests []generation.Request
}

func New(steps ...Step) *Scripted {
	if len(steps) == 0 {
		steps = []Step{Pass()}
	}
	return &Scripted{
		def:     steps,
		byStage: make(map[string][]Step),
		calls:   make(map[string]int),
	}
}

// On sets the script for one stage.
func (s *Scripted) On(stage string, steps ...Step) *Scripted {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byStage[stage] = steps
	return s
}

func (s *Scripted) Name() string { return "scripted" }

func (s *Scripted) Generate(ctx context.Context, req generation.Request) (*generation.Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	script, ok := s.byStage[req.Stage]
	if !ok || len(script) == 0 {
		script = s.def
	}
	idx := s.calls[req.Stage]
	s.calls[req.Stage]++
	s.requests = append(s.requests, req)
	s.mu.Unlock()

	if idx >= len(script) {
		idx = len(script) - 1
	}
	step := script[idx]

	if step.Delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(step.Delay):
		}
	}
	if step.Err != nil {
		return nil, step.Err
	}
	return &generation.Response{Text: step.Text, Model: req.Model}, nil
}

// Calls returns how many requests a stage made.
func (s *Scripted) Calls(stage string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[stage]
}

// Total returns the number of requests across all stages.
func (s *Scripted) Total() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

// Requests returns a copy of every request received, in order.
func (s *Scripted) Requests() []generation.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]generation.Request, len(s.requests))
	copy(out, s.requests)
	return out
}
