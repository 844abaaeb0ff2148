package generation

import "context"

// PassResponse is a well-formed passing gate response with no rewrites.
const PassResponse = "@@GATE v1\n@@VERDICT pass\n@@END"

// Echo answers every request with PassResponse without any network call.
// It lets the pipeline run offline so the deterministic checks and the
// derived artifact can be inspected.
type Echo struct{}

func (Echo) Name() string { return "echo" }

func (Echo) Generate(ctx context.Context, req Request) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &Response{Text: PassResponse, Model: req.Model}, nil
}
