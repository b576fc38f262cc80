package ollama

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Fake is an in-memory Runtime for deterministic tests. Zero value is
// usable; configure failure toggles and canned responses as needed.
type Fake struct {
	mu     sync.Mutex
	models map[string]Model

	// Failure toggles per operation.
	ListErr     error
	PullErr     error
	CreateErr   error
	GenerateErr error
	DeleteErr   error

	// CreateAddsModel controls whether a successful Create registers
	// the model in the listing. Disabling it simulates a runtime that
	// reports success without producing a servable artifact.
	CreateAddsModel bool

	// GenerateResponse is returned by Generate on success.
	GenerateResponse string

	// Recorded calls, most recent last.
	Pulled    []string
	Created   []string
	Deleted   []string
	Prompts   []string
	Modelfile string
}

// NewFake creates a fake runtime pre-seeded with the given model names.
func NewFake(models ...string) *Fake {
	f := &Fake{
		models:           make(map[string]Model),
		CreateAddsModel:  true,
		GenerateResponse: "ok",
	}
	for _, name := range models {
		f.models[name] = Model{Name: name, ModifiedAt: time.Now()}
	}
	return f
}

// AddModel registers a model in the fake's listing.
func (f *Fake) AddModel(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.models[name] = Model{Name: name, ModifiedAt: time.Now()}
}

// List implements Runtime.
func (f *Fake) List(ctx context.Context) ([]Model, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.ListErr != nil {
		return nil, f.ListErr
	}

	models := make([]Model, 0, len(f.models))
	for _, m := range f.models {
		models = append(models, m)
	}
	return models, nil
}

// Pull implements Runtime.
func (f *Fake) Pull(ctx context.Context, name string, timeout time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.PullErr != nil {
		return f.PullErr
	}
	f.Pulled = append(f.Pulled, name)
	f.models[name] = Model{Name: name, ModifiedAt: time.Now()}
	return nil
}

// Create implements Runtime.
func (f *Fake) Create(ctx context.Context, name, modelfile string, timeout time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.CreateErr != nil {
		return f.CreateErr
	}
	f.Created = append(f.Created, name)
	f.Modelfile = modelfile
	if f.CreateAddsModel {
		f.models[name] = Model{Name: name, ModifiedAt: time.Now()}
	}
	return nil
}

// Generate implements Runtime.
func (f *Fake) Generate(ctx context.Context, model, prompt string, opts *GenerateOptions) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.GenerateErr != nil {
		return "", f.GenerateErr
	}
	if _, ok := f.models[model]; !ok {
		return "", fmt.Errorf("model not found: %s", model)
	}
	f.Prompts = append(f.Prompts, prompt)
	return f.GenerateResponse, nil
}

// Delete implements Runtime.
func (f *Fake) Delete(ctx context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.DeleteErr != nil {
		return f.DeleteErr
	}
	if _, ok := f.models[name]; !ok {
		return fmt.Errorf("model not found: %s", name)
	}
	delete(f.models, name)
	f.Deleted = append(f.Deleted, name)
	return nil
}
