package generation

import "context"

// Completer sends a single prompt to a language model and returns the raw
// text of its answer. Implementations map provider failures onto the errors
// in this package and honor ctx cancellation.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// CompleterFunc adapts a function to Completer.
type CompleterFunc func(ctx context.Context, prompt string) (string, error)

// Complete calls f.
func (f CompleterFunc) Complete(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// Unavailable is the Completer used when no provider is configured.
type Unavailable struct{}

// Complete always fails with ErrUnavailable.
func (Unavailable) Complete(context.Context, string) (string, error) {
	return "", ErrUnavailable
}
