package main

import (
	"fmt"
	"path/filepath"

	"github.com/srmops/logibot/internal/config"
	"github.com/srmops/logibot/internal/dataset"
	"github.com/srmops/logibot/internal/docstore"
	"github.com/srmops/logibot/internal/learner"
	"github.com/srmops/logibot/internal/logging"
	"github.com/srmops/logibot/internal/ollama"
	"github.com/srmops/logibot/internal/registry"
	"github.com/srmops/logibot/internal/trainer"
)

// app holds the wired components shared by the commands.
type app struct {
	cfg      *config.Config
	store    *docstore.SQLite
	runtime  ollama.Runtime
	builder  *dataset.Builder
	trainer  *trainer.Trainer
	registry *registry.Registry
	learner  *learner.Learner
}

// newApp loads configuration, initializes logging, and wires the
// pipeline components.
func newApp() (*app, error) {
	path := configPath
	if path == "" {
		path = config.DefaultConfigPath()
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	if quiet {
		logging.Suppress()
	} else if cfg.Logging != nil {
		if err := logging.Init(cfg.Logging); err != nil {
			return nil, fmt.Errorf("failed to initialize logging: %w", err)
		}
	}

	store, err := docstore.NewSQLite(cfg.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open document store: %w", err)
	}

	rt := ollama.NewClient(cfg.Ollama.BaseURL)

	builder, err := dataset.NewBuilder(store, cfg)
	if err != nil {
		store.Close()
		return nil, err
	}

	tr := trainer.New(rt, cfg)
	reg := registry.New(filepath.Join(cfg.Paths.ModelDir, "registry.json"), rt)

	return &app{
		cfg:      cfg,
		store:    store,
		runtime:  rt,
		builder:  builder,
		trainer:  tr,
		registry: reg,
		learner:  learner.New(cfg, builder, tr, reg, rt),
	}, nil
}

func (a *app) Close() {
	if a.store != nil {
		a.store.Close()
	}
}
