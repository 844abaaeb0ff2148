package gate

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/valpere/contentgate/internal/chunker"
	"github.com/valpere/contentgate/internal/config"
	"github.com/valpere/contentgate/internal/document"
	"github.com/valpere/contentgate/internal/generation"
	"github.com/valpere/contentgate/internal/logger"
	"github.com/valpere/contentgate/internal/placeholder"
	"github.com/valpere/contentgate/internal/postprocess"
)

// contextWords is the size of the preceding-text snippet shown with each
// target block.
const contextWords = 30

// variant is what distinguishes one gate from another.
type variant struct {
	stage    config.Stage
	template string
	// base is the score of a finding-free run; zero means 100.
	base     int
	expect   Expect
	owns     func(document.Block) bool
	check    func(doc *document.Document, cfg config.Config) []Finding
	// finish post-processes a parsed response (metadata artifact).
	finish func(doc *document.Document, cfg config.Config, p *Parsed, res *Result)
}

type gate struct {
	variant
	deps Deps
}

func (g *gate) Name() config.Stage { return g.stage }

func (g *gate) Owns(b document.Block) bool {
	if g.owns == nil {
		return false
	}
	return g.owns(b)
}

// Run executes the gate. It always returns a well-formed Result; generation
// and parse failures become fail and fail-soft verdicts.
func (g *gate) Run(ctx context.Context, doc *document.Document, cfg config.Config) (res Result) {
	start := time.Now()
	log := logger.FromContext(ctx).With("stage", g.stage)

	res = Result{Stage: g.stage, Model: cfg.ModelFor(g.stage)}
	defer func() {
		res.Duration = time.Since(start)
		g.finalize(&res, cfg)
	}()

	findings := g.check(doc, cfg)
	targets := g.targets(doc, cfg.Thresholds, findings)

	var ph placeholder.Set
	protected := make(map[int]string, len(targets))
	for _, b := range targets {
		protected[b.ID] = ph.Protect(b.CurrentText)
	}

	system, prompt, err := render(g.template, g.promptData(doc, cfg, findings, targets, protected, ph.Len() > 0))
	if err != nil {
		res.Verdict = VerdictFail
		res.Reason = fmt.Sprintf("prompt: %v", err)
		res.Findings = findings
		return res
	}

	req := generation.Request{
		Stage:       string(g.stage),
		Model:       res.Model,
		System:      system,
		Prompt:      prompt,
		Temperature: cfg.Generation.Temperature,
		TopP:        cfg.Generation.TopP,
		MaxTokens:   cfg.Generation.MaxTokens,
		Timeout:     cfg.Generation.Timeout,
	}

	log.Debug("gate started", "targets", len(targets), "rule_findings", len(findings))

	resp, attempts, err := generate(ctx, g.deps.Generator, req, cfg.Retry, log)
	res.Attempts = attempts
	if err != nil {
		res.Verdict = VerdictFail
		res.Reason = err.Error()
		if kind, ok := generation.KindOf(err); ok {
			res.ErrorKind = kind
		}
		res.Findings = append(findings, Finding{
			Rule:     "generation",
			Severity: SeverityCritical,
			Message:  fmt.Sprintf("generation failed after %d attempt(s): %v", attempts, err),
			Source:   SourceGate,
		})
		log.Warn("gate generation failed", "attempts", attempts, "err", err)
		return res
	}
	if resp.Model != "" {
		res.Model = resp.Model
	}

	parsed, err := Parse(postprocess.Clean(resp.Text), g.expect)
	if err != nil {
		res.Verdict = VerdictFailSoft
		res.Reason = err.Error()
		res.Findings = append(findings, Finding{
			Rule:     "response-shape",
			Severity: SeverityMedium,
			Message:  err.Error(),
			Source:   SourceGate,
		})
		log.Warn("gate response rejected", "err", err)
		return res
	}

	res.Verdict = parsed.Verdict
	res.Findings = append(findings, parsed.Findings...)

	if g.expect.Rewrites {
		res.Rewrites, res.Findings = g.acceptRewrites(doc, parsed.Rewrites, protected, &ph, res.Findings)
	}
	if g.finish != nil {
		g.finish(doc, cfg, parsed, &res)
	}

	log.Info("gate finished", "verdict", res.Verdict, "findings", len(res.Findings), "rewrites", len(res.Rewrites), "attempts", attempts)
	return res
}

// targets picks the blocks offered for rewriting: owned blocks flagged by a
// rule first, then, if nothing was flagged, every owned block. The list is
// capped and returned in document order.
func (g *gate) targets(doc *document.Document, t config.Thresholds, findings []Finding) []document.Block {
	if !g.expect.Rewrites {
		return nil
	}
	owned := doc.Select(g.Owns)
	flagged := make(map[int]bool)
	for _, f := range findings {
		for _, id := range f.Blocks {
			flagged[id] = true
		}
	}

	var out []document.Block
	for _, b := range owned {
		if flagged[b.ID] {
			out = append(out, b)
		}
	}
	if len(out) == 0 {
		out = owned
	}
	if max := t.MaxRewritesPerStage; max > 0 && len(out) > max {
		out = out[:max]
	}
	return out
}

var reHeadingMarker = regexp.MustCompile(`^#{1,6}[ \t]+`)

// acceptRewrites keeps rewrites that target an offered block, keep every
// placeholder, and pass the validator. Rejections become findings.
func (g *gate) acceptRewrites(doc *document.Document, rewrites map[int]string, protected map[int]string, ph *placeholder.Set, findings []Finding) (map[int]string, []Finding) {
	accepted := make(map[int]string)
	reject := func(id int, msg string) {
		findings = append(findings, Finding{
			Rule:     "rewrite-rejected",
			Severity: SeverityLow,
			Message:  msg,
			Blocks:   []int{id},
			Source:   SourceGate,
		})
	}

	for _, id := range sortedIDs(rewrites) {
		text := rewrites[id]
		orig, offered := protected[id]
		if !offered {
			reject(id, fmt.Sprintf("block %d was not offered for rewriting", id))
			continue
		}
		block, _ := doc.Block(id)

		text = postprocess.Unquote(text)
		if block.Type == document.Heading || (block.Type == document.FAQ && block.Level > 0) {
			text = reHeadingMarker.ReplaceAllString(text, "")
			if strings.Contains(text, "\n") {
				reject(id, fmt.Sprintf("heading rewrite for block %d spans several lines", id))
				continue
			}
		}

		if missing, foreign := placeholder.Check(orig, text); len(missing) > 0 || len(foreign) > 0 {
			reject(id, fmt.Sprintf("rewrite for block %d altered protected markup (missing %v, unexpected %v)", id, missing, foreign))
			continue
		}
		restored := ph.Restore(text)

		if g.deps.Validator != nil {
			if err := g.deps.Validator.Check(block.CurrentText, restored); err != nil {
				reject(id, fmt.Sprintf("rewrite for block %d: %v", id, err))
				continue
			}
		} else if strings.TrimSpace(restored) == "" {
			reject(id, fmt.Sprintf("rewrite for block %d is empty", id))
			continue
		}

		if restored == block.CurrentText {
			continue
		}
		accepted[id] = restored
	}
	if len(accepted) == 0 {
		return nil, findings
	}
	return accepted, findings
}

// generate calls the provider, retrying transient failures with exponential
// backoff. It returns the number of attempts made.
func generate(ctx context.Context, gen generation.Generator, req generation.Request, policy config.RetryPolicy, log logger.Logger) (*generation.Response, int, error) {
	if gen == nil {
		return nil, 0, errors.New("no generator configured")
	}

	backoff := retry.NewExponential(policy.BaseDelay)
	if policy.MaxDelay > 0 {
		backoff = retry.WithCappedDuration(policy.MaxDelay, backoff)
	}
	backoff = retry.WithMaxRetries(uint64(policy.MaxRetries), backoff)

	var resp *generation.Response
	attempts := 0
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempts++
		r, err := gen.Generate(ctx, req)
		if err != nil {
			if generation.IsTransient(err) && ctx.Err() == nil {
				log.Warn("transient generation failure", "attempt", attempts, "err", err)
				return retry.RetryableError(err)
			}
			return err
		}
		resp = r
		return nil
	})
	if err != nil {
		return nil, attempts, err
	}
	return resp, attempts, nil
}

func (g *gate) promptData(doc *document.Document, cfg config.Config, findings []Finding, targets []document.Block, protected map[int]string, hasMarkers bool) promptData {
	data := promptData{
		Stage:      g.stage.Title(),
		Grammar:    GrammarVersion,
		Profile:    cfg.Profile.Title(),
		Mode:       string(cfg.Mode),
		Keyword:    keyword(doc, cfg),
		Thresholds: cfg.Thresholds,
		Findings:   findings,
		Rewrites:   g.expect.Rewrites,
		Metadata:   g.expect.Metadata,
		Title:      doc.Title(),
		Outline:    outline(doc),
	}
	if g.expect.Metadata {
		if intro, ok := doc.Intro(); ok {
			data.Intro = document.PlainText(intro.CurrentText)
		}
		data.Description = doc.Metadata.Description
		data.Body = doc.Markdown()
	}
	if hasMarkers {
		data.PlaceholderHint = placeholder.InstructionHint()
	}
	if g.deps.Detector != nil {
		data.Language = g.deps.Detector.DetectName(document.PlainText(doc.Markdown()), "")
	}
	for _, b := range targets {
		pb := promptBlock{
			ID:      b.ID,
			Type:    string(b.Type),
			Level:   b.Level,
			Section: b.Section,
			Words:   chunker.Words(document.PlainText(b.CurrentText)),
			Text:    protected[b.ID],
		}
		if b.ID > 0 {
			prev := doc.Blocks[b.ID-1]
			pb.Context = chunker.ExtractContext(document.PlainText(prev.CurrentText), contextWords)
		}
		data.Targets = append(data.Targets, pb)
	}
	return data
}

func keyword(doc *document.Document, cfg config.Config) string {
	if cfg.Keyword != "" {
		return cfg.Keyword
	}
	return doc.Metadata.Keyword
}

func outline(doc *document.Document) []string {
	var out []string
	for _, b := range doc.Blocks {
		if b.Type == document.Heading {
			out = append(out, strings.Repeat("#", b.Level)+" "+b.CurrentText)
		}
	}
	return out
}

func sortedIDs(m map[int]string) []int {
	ids := make([]int, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
