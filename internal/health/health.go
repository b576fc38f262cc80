// Package health checks the pipeline's dependencies: the model
// runtime, the document store, and the on-disk layout.
package health

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/srmops/logibot/internal/config"
	"github.com/srmops/logibot/internal/docstore"
	"github.com/srmops/logibot/internal/ollama"
)

// Status represents a check outcome
type Status int

const (
	StatusOK Status = iota
	StatusWarning
	StatusError
)

// Symbol returns the terminal marker for a status.
func (s Status) Symbol() string {
	switch s {
	case StatusOK:
		return "✅"
	case StatusWarning:
		return "⚠️ "
	default:
		return "❌"
	}
}

// Check represents a single health check result
type Check struct {
	Name    string
	Status  Status
	Message string
	Fix     string
}

// Report contains all health check results
type Report struct {
	Runtime []Check
	Storage []Check
}

// Healthy reports whether no check errored.
func (r *Report) Healthy() bool {
	for _, c := range append(r.Runtime, r.Storage...) {
		if c.Status == StatusError {
			return false
		}
	}
	return true
}

// RunChecks probes the runtime and storage the pipeline depends on.
func RunChecks(ctx context.Context, cfg *config.Config, store docstore.Store, rt ollama.Runtime) *Report {
	return &Report{
		Runtime: checkRuntime(ctx, cfg, rt),
		Storage: checkStorage(ctx, cfg, store),
	}
}

func checkRuntime(ctx context.Context, cfg *config.Config, rt ollama.Runtime) []Check {
	checks := []Check{}

	listCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	models, err := rt.List(listCtx)
	if err != nil {
		checks = append(checks, Check{
			Name:    "ollama",
			Status:  StatusError,
			Message: fmt.Sprintf("unreachable at %s", cfg.Ollama.BaseURL),
			Fix:     "start the Ollama service: ollama serve",
		})
		return checks
	}
	checks = append(checks, Check{
		Name:    "ollama",
		Status:  StatusOK,
		Message: fmt.Sprintf("serving %d models at %s", len(models), cfg.Ollama.BaseURL),
	})

	base := cfg.Ollama.BaseModel
	found := false
	for _, m := range models {
		if m.Name == base || strings.SplitN(m.Name, ":", 2)[0] == base {
			found = true
			break
		}
	}
	if found {
		checks = append(checks, Check{
			Name:    "base model",
			Status:  StatusOK,
			Message: base,
		})
	} else {
		checks = append(checks, Check{
			Name:    "base model",
			Status:  StatusWarning,
			Message: fmt.Sprintf("%s not pulled yet", base),
			Fix:     fmt.Sprintf("ollama pull %s (or let the next training cycle pull it)", base),
		})
	}

	return checks
}

func checkStorage(ctx context.Context, cfg *config.Config, store docstore.Store) []Check {
	checks := []Check{}

	if _, err := store.ListAll(ctx, cfg.PublicCollection("drivers")); err != nil {
		checks = append(checks, Check{
			Name:    "document store",
			Status:  StatusError,
			Message: err.Error(),
			Fix:     fmt.Sprintf("check %s is writable", cfg.Store.Path),
		})
	} else {
		checks = append(checks, Check{
			Name:    "document store",
			Status:  StatusOK,
			Message: cfg.Store.Path,
		})
	}

	for _, dir := range []struct{ name, path string }{
		{"dataset dir", cfg.Paths.DatasetDir},
		{"model dir", cfg.Paths.ModelDir},
	} {
		if err := os.MkdirAll(dir.path, 0755); err != nil {
			checks = append(checks, Check{
				Name:    dir.name,
				Status:  StatusError,
				Message: err.Error(),
			})
			continue
		}
		checks = append(checks, Check{
			Name:    dir.name,
			Status:  StatusOK,
			Message: dir.path,
		})
	}

	return checks
}
