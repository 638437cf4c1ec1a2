package classify

import "context"

// Provider sends a prompt to an LLM and returns the raw text response.
type Provider interface {
	Complete(ctx context.Context, prompt string) (string, error)
}
