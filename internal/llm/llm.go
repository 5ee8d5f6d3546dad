// Package llm abstracts the external text-generation capability. The core
// treats it as an opaque collaborator: prompt in, text out.
package llm

import "context"

// Generator produces text for a prompt. Implementations must honor
// context cancellation; the orchestrator wraps calls in a deadline so a
// stuck backend cannot stall the polling loop.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// GeneratorFunc adapts a plain function to the Generator interface.
type GeneratorFunc func(ctx context.Context, prompt string) (string, error)

// Generate implements Generator.
func (f GeneratorFunc) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}
