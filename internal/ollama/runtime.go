// Package ollama provides the model-serving runtime abstraction and an
// HTTP client for a local Ollama instance.
package ollama

import (
	"context"
	"time"
)

// Model describes a model known to the runtime.
type Model struct {
	Name       string    `json:"name"`
	ModifiedAt time.Time `json:"modified_at"`
	Size       int64     `json:"size"`
}

// GenerateOptions are inference parameters for a single generation.
type GenerateOptions struct {
	Temperature float64 `json:"temperature,omitempty"`
	TopP        float64 `json:"top_p,omitempty"`
	TopK        int     `json:"top_k,omitempty"`
	NumCtx      int     `json:"num_ctx,omitempty"`
}

// Runtime is the narrow model-serving surface the learning core
// consumes. All calls block until completion or their timeout.
type Runtime interface {
	// List returns every model the runtime can serve.
	List(ctx context.Context) ([]Model, error)

	// Pull downloads a base model, bounded by timeout. Pulling an
	// already-present model is a cheap no-op on the runtime side.
	Pull(ctx context.Context, name string, timeout time.Duration) error

	// Create builds a new model from a model definition, bounded by
	// timeout. This is the long-running training invocation.
	Create(ctx context.Context, name, modelfile string, timeout time.Duration) error

	// Generate runs a single prompt against a model and returns the
	// response text.
	Generate(ctx context.Context, model, prompt string, opts *GenerateOptions) (string, error)

	// Delete removes a model from the runtime.
	Delete(ctx context.Context, name string) error
}
