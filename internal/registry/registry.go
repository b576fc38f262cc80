// Package registry tracks trained model versions and the single
// active deployment pointer.
package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/srmops/logibot/internal/logging"
	"github.com/srmops/logibot/internal/ollama"
)

// ErrNotFound indicates the named model is not registered.
var ErrNotFound = errors.New("model not registered")

// Record describes one registered model version. Metadata carries
// free-form provenance such as the training method, dataset reference,
// and smoke-test metrics.
type Record struct {
	Name        string         `json:"name"`
	BaseModel   string         `json:"base_model"`
	DatasetPath string         `json:"dataset_path,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// registryFile is the on-disk layout. ActiveModel is empty when no
// model is deployed.
type registryFile struct {
	ActiveModel string   `json:"active_model"`
	Models      []Record `json:"models"`
}

// Registry persists model records to a JSON file. Writes go through a
// temp file and rename so a crash never leaves a partial registry.
type Registry struct {
	mu      sync.Mutex
	path    string
	runtime ollama.Runtime
	log     *slog.Logger
}

// New creates a registry backed by the given file path.
func New(path string, rt ollama.Runtime) *Registry {
	return &Registry{
		path:    path,
		runtime: rt,
		log:     logging.WithComponent("registry"),
	}
}

func (r *Registry) logger(ctx context.Context) *slog.Logger {
	return logging.WithContext(logging.ContextWithComponent(ctx, "registry"))
}

// Register records a newly trained model. Re-registering a name
// replaces the existing record. With setActive the model is verified
// against the runtime and deployed in the same persisted write, so a
// crash cannot leave it registered but undeployed.
func (r *Registry) Register(ctx context.Context, rec Record, setActive bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	state, err := r.load()
	if err != nil {
		return err
	}

	if setActive {
		if err := r.runtimeServes(ctx, rec.Name); err != nil {
			return err
		}
	}

	replaced := false
	for i, m := range state.Models {
		if m.Name == rec.Name {
			state.Models[i] = rec
			replaced = true
			break
		}
	}
	if !replaced {
		state.Models = append(state.Models, rec)
	}
	if setActive {
		state.ActiveModel = rec.Name
	}

	if err := r.save(state); err != nil {
		return err
	}

	r.logger(ctx).Info("registered model",
		"model", rec.Name,
		"base", rec.BaseModel,
		"active", setActive,
	)
	return nil
}

// List returns every registered model, newest first.
func (r *Registry) List() ([]Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	state, err := r.load()
	if err != nil {
		return nil, err
	}

	models := make([]Record, len(state.Models))
	copy(models, state.Models)
	sort.Slice(models, func(i, j int) bool {
		return models[i].CreatedAt.After(models[j].CreatedAt)
	})
	return models, nil
}

// Active returns the currently deployed model, or ok=false when no
// model is active.
func (r *Registry) Active() (Record, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	state, err := r.load()
	if err != nil {
		return Record{}, false, err
	}
	if state.ActiveModel == "" {
		return Record{}, false, nil
	}
	for _, m := range state.Models {
		if m.Name == state.ActiveModel {
			return m, true, nil
		}
	}
	return Record{}, false, nil
}

// SetActive deploys a registered model after confirming the runtime
// can actually serve it.
func (r *Registry) SetActive(ctx context.Context, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	state, err := r.load()
	if err != nil {
		return err
	}
	if !hasModel(state.Models, name) {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err := r.runtimeServes(ctx, name); err != nil {
		return err
	}

	state.ActiveModel = name
	if err := r.save(state); err != nil {
		return err
	}

	r.logger(ctx).Info("activated model", "model", name)
	return nil
}

// Delete removes a model from the runtime first, then from the
// registry. Deleting the active model clears the active pointer.
func (r *Registry) Delete(ctx context.Context, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	state, err := r.load()
	if err != nil {
		return err
	}
	if !hasModel(state.Models, name) {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}

	if err := r.runtime.Delete(ctx, name); err != nil {
		return fmt.Errorf("failed to delete model from runtime: %w", err)
	}

	kept := state.Models[:0]
	for _, m := range state.Models {
		if m.Name != name {
			kept = append(kept, m)
		}
	}
	state.Models = kept
	if state.ActiveModel == name {
		state.ActiveModel = ""
	}

	if err := r.save(state); err != nil {
		return err
	}

	r.logger(ctx).Info("deleted model", "model", name)
	return nil
}

// Cleanup deletes old model versions, keeping the keepLastN most
// recent plus the active model regardless of age. Returns the names
// deleted.
func (r *Registry) Cleanup(ctx context.Context, keepLastN int) ([]string, error) {
	if keepLastN < 0 {
		keepLastN = 0
	}

	models, err := r.List()
	if err != nil {
		return nil, err
	}
	active, hasActive, err := r.Active()
	if err != nil {
		return nil, err
	}

	var deleted []string
	for i, m := range models {
		if i < keepLastN {
			continue
		}
		if hasActive && m.Name == active.Name {
			continue
		}
		if err := r.Delete(ctx, m.Name); err != nil {
			return deleted, fmt.Errorf("cleanup failed at %s: %w", m.Name, err)
		}
		deleted = append(deleted, m.Name)
	}

	if len(deleted) > 0 {
		r.logger(ctx).Info("cleaned up old models", "deleted", len(deleted), "kept", len(models)-len(deleted))
	}
	return deleted, nil
}

// Stats summarizes the registry.
type Stats struct {
	TotalModels int       `json:"total_models"`
	ActiveModel string    `json:"active_model,omitempty"`
	Newest      time.Time `json:"newest,omitempty"`
	Oldest      time.Time `json:"oldest,omitempty"`
}

// Summary returns registry statistics.
func (r *Registry) Summary() (Stats, error) {
	models, err := r.List()
	if err != nil {
		return Stats{}, err
	}

	stats := Stats{TotalModels: len(models)}
	if active, ok, err := r.Active(); err != nil {
		return Stats{}, err
	} else if ok {
		stats.ActiveModel = active.Name
	}
	if len(models) > 0 {
		stats.Newest = models[0].CreatedAt
		stats.Oldest = models[len(models)-1].CreatedAt
	}
	return stats, nil
}

// Get returns one registered model by name.
func (r *Registry) Get(name string) (Record, error) {
	models, err := r.List()
	if err != nil {
		return Record{}, err
	}
	for _, m := range models {
		if m.Name == name {
			return m, nil
		}
	}
	return Record{}, fmt.Errorf("%w: %s", ErrNotFound, name)
}

// Compare returns the records for two model versions for side-by-side
// inspection.
func (r *Registry) Compare(a, b string) (Record, Record, error) {
	recA, err := r.Get(a)
	if err != nil {
		return Record{}, Record{}, err
	}
	recB, err := r.Get(b)
	if err != nil {
		return Record{}, Record{}, err
	}
	return recA, recB, nil
}

// exportFile is the per-model export layout.
type exportFile struct {
	Record     Record    `json:"record"`
	Active     bool      `json:"active"`
	ExportedAt time.Time `json:"exported_at"`
}

// Export writes one model's record to <dir>/<name>_export.json and
// returns the path.
func (r *Registry) Export(name, dir string) (string, error) {
	rec, err := r.Get(name)
	if err != nil {
		return "", err
	}
	active, hasActive, err := r.Active()
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create export directory: %w", err)
	}

	data, err := json.MarshalIndent(exportFile{
		Record:     rec,
		Active:     hasActive && active.Name == name,
		ExportedAt: time.Now().UTC(),
	}, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal export: %w", err)
	}

	path := filepath.Join(dir, name+"_export.json")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write export: %w", err)
	}
	return path, nil
}

// runtimeServes confirms the runtime lists the named model. Callers
// hold the mutex.
func (r *Registry) runtimeServes(ctx context.Context, name string) error {
	served, err := r.runtime.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to verify model with runtime: %w", err)
	}
	for _, m := range served {
		if m.Name == name {
			return nil
		}
	}
	return fmt.Errorf("runtime does not serve model %s", name)
}

func hasModel(models []Record, name string) bool {
	for _, m := range models {
		if m.Name == name {
			return true
		}
	}
	return false
}

// load reads the registry file. A missing file is an empty registry.
func (r *Registry) load() (*registryFile, error) {
	data, err := os.ReadFile(r.path)
	if os.IsNotExist(err) {
		return &registryFile{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read registry: %w", err)
	}

	var state registryFile
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to parse registry: %w", err)
	}
	return &state, nil
}

// save writes atomically via temp file and rename.
func (r *Registry) save(state *registryFile) error {
	if err := os.MkdirAll(filepath.Dir(r.path), 0755); err != nil {
		return fmt.Errorf("failed to create registry directory: %w", err)
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal registry: %w", err)
	}

	tmp := r.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write registry: %w", err)
	}
	if err := os.Rename(tmp, r.path); err != nil {
		return fmt.Errorf("failed to replace registry: %w", err)
	}
	return nil
}
