package generator

import "context"

// GenerationParams are passed through to the completion endpoint per call.
type GenerationParams struct {
	Temperature     float64
	TopK            int
	TopP            float64
	MaxOutputTokens int
	// SafetyThreshold is the block threshold applied to every harm
	// category, e.g. "BLOCK_MEDIUM_AND_ABOVE".
	SafetyThreshold string
}

// CompletionProvider sends a prompt to an LLM and returns the raw text
// response. Used only by the Generator; not exported to the rest of the
// system.
type CompletionProvider interface {
	Complete(ctx context.Context, prompt string, params GenerationParams) (string, error)
}
