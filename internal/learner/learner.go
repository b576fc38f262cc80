// Package learner orchestrates the continuous-learning loop: decide
// when to retrain, rebuild datasets, train a new model version, and
// register it.
package learner

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/srmops/logibot/internal/config"
	"github.com/srmops/logibot/internal/dataset"
	"github.com/srmops/logibot/internal/logging"
	"github.com/srmops/logibot/internal/ollama"
	"github.com/srmops/logibot/internal/registry"
	"github.com/srmops/logibot/internal/trainer"
)

// Outcome classifies a learning cycle.
type Outcome string

const (
	// OutcomeCompleted means a new model was trained and registered.
	OutcomeCompleted Outcome = "completed"
	// OutcomeSkippedInterval means the retrain interval has not elapsed.
	OutcomeSkippedInterval Outcome = "skipped_interval"
	// OutcomeSkippedInsufficientData means too few new examples exist.
	OutcomeSkippedInsufficientData Outcome = "skipped_insufficient_data"
	// OutcomeFailed means a cycle stage failed.
	OutcomeFailed Outcome = "failed"
)

// CycleResult describes one learning cycle.
type CycleResult struct {
	CycleID           string
	Outcome           Outcome
	ModelName         string
	EstimatedExamples int
	StartedAt         time.Time
	Duration          time.Duration
}

// Learner runs learning cycles against its collaborators.
type Learner struct {
	cfg       *config.Config
	builder   *dataset.Builder
	trainer   *trainer.Trainer
	registry  *registry.Registry
	runtime   ollama.Runtime
	statePath string
	log       *slog.Logger
	now       func() time.Time
	metrics   *Metrics
}

// New wires a learner from its collaborators. State is persisted in
// the dataset directory.
func New(cfg *config.Config, b *dataset.Builder, tr *trainer.Trainer, reg *registry.Registry, rt ollama.Runtime) *Learner {
	return &Learner{
		cfg:       cfg,
		builder:   b,
		trainer:   tr,
		registry:  reg,
		runtime:   rt,
		statePath: filepath.Join(cfg.Paths.DatasetDir, "learner_state.json"),
		log:       logging.WithComponent("learner"),
		now:       time.Now,
		metrics:   &Metrics{},
	}
}

// SetClock overrides the time source for tests.
func (l *Learner) SetClock(now func() time.Time) {
	l.now = now
}

func (l *Learner) logger(ctx context.Context) *slog.Logger {
	return logging.WithContext(logging.ContextWithComponent(ctx, "learner"))
}

// Metrics returns a snapshot of cycle counters.
func (l *Learner) Metrics() MetricsSnapshot {
	return l.metrics.snapshot()
}

// shouldRetrain reports whether the retrain interval has elapsed. A
// system that has never trained is always due.
func (l *Learner) shouldRetrain(state *State) bool {
	if state.LastTrainTime.IsZero() {
		return true
	}
	return l.now().Sub(state.LastTrainTime) >= l.cfg.Learner.RetrainInterval.Std()
}

// estimateNewExamples approximates how many examples a build would
// produce: three per driver plus one per plant. A coarse proxy, but it
// gates retraining on the same records the builder would consume.
func (l *Learner) estimateNewExamples(ctx context.Context) (int, error) {
	drivers, _, err := l.builder.FetchDrivers(ctx)
	if err != nil {
		return 0, err
	}
	plants, _, err := l.builder.FetchPlants(ctx)
	if err != nil {
		return 0, err
	}
	return len(drivers)*3 + len(plants), nil
}

// RunOnce executes a single learning cycle. The returned error is
// non-nil exactly when the outcome is OutcomeFailed; skips are normal
// results, not errors.
func (l *Learner) RunOnce(ctx context.Context) (*CycleResult, error) {
	result := &CycleResult{
		CycleID:   uuid.NewString(),
		StartedAt: l.now(),
	}

	// The cycle ID rides the context so every component's log lines
	// correlate across the build, train, and register stages.
	ctx = logging.ContextWithCycleID(ctx, result.CycleID)
	log := l.logger(ctx)
	log.Info("starting learning cycle")

	res, err := l.runCycle(ctx, log, result)
	result.Duration = l.now().Sub(result.StartedAt)
	l.metrics.record(result)

	if err != nil {
		log.Error("learning cycle failed", "error", err, "duration", result.Duration.Round(time.Second))
		return result, err
	}
	log.Info("learning cycle finished",
		"outcome", string(res.Outcome),
		"model", res.ModelName,
		"duration", result.Duration.Round(time.Second),
	)
	return result, nil
}

func (l *Learner) runCycle(ctx context.Context, log *slog.Logger, result *CycleResult) (*CycleResult, error) {
	state, err := loadState(l.statePath)
	if err != nil {
		result.Outcome = OutcomeFailed
		return result, err
	}

	if !l.shouldRetrain(state) {
		result.Outcome = OutcomeSkippedInterval
		log.Info("retrain interval not elapsed",
			"last_train", state.LastTrainTime.Format(time.RFC3339),
			"interval", l.cfg.Learner.RetrainInterval.Std(),
		)
		return result, nil
	}

	estimate, err := l.estimateNewExamples(ctx)
	if err != nil {
		result.Outcome = OutcomeFailed
		return result, fmt.Errorf("failed to estimate training data: %w", err)
	}
	result.EstimatedExamples = estimate

	if estimate < l.cfg.Learner.MinNewExamples {
		result.Outcome = OutcomeSkippedInsufficientData
		log.Info("insufficient training data",
			"estimated", estimate,
			"required", l.cfg.Learner.MinNewExamples,
		)
		return result, nil
	}

	if _, err := l.builder.BuildAll(ctx); err != nil {
		result.Outcome = OutcomeFailed
		return result, fmt.Errorf("dataset build failed: %w", err)
	}

	trained, err := l.trainer.Train(ctx)
	if err != nil {
		result.Outcome = OutcomeFailed
		return result, fmt.Errorf("training failed: %w", err)
	}
	result.ModelName = trained.ModelName

	// The runtime can report a successful create without producing a
	// servable model. Confirm before registering.
	if err := l.verifyServable(ctx, trained.ModelName); err != nil {
		result.Outcome = OutcomeFailed
		return result, err
	}

	smokeFailures := 0
	for _, st := range trained.SmokeTests {
		if st.Error != "" {
			smokeFailures++
		}
	}

	// Register and (with autoDeploy) activate in one persisted write,
	// so a crash cannot leave the version registered but undeployed.
	err = l.registry.Register(ctx, registry.Record{
		Name:        trained.ModelName,
		BaseModel:   trained.BaseModel,
		DatasetPath: trained.DatasetPath,
		CreatedAt:   l.now().UTC(),
		Metadata: map[string]any{
			"training_method":  "ollama_modelfile",
			"dataset":          filepath.Base(trained.DatasetPath),
			"duration_seconds": trained.Duration.Seconds(),
			"smoke_tests":      len(trained.SmokeTests),
			"smoke_failures":   smokeFailures,
		},
	}, l.cfg.Learner.AutoDeploy)
	if err != nil {
		result.Outcome = OutcomeFailed
		return result, fmt.Errorf("failed to register model: %w", err)
	}
	if l.cfg.Learner.AutoDeploy {
		log.Info("deployed new model", "model", trained.ModelName)
	}

	state.LastTrainTime = l.now().UTC()
	state.LastModel = trained.ModelName
	if err := saveState(l.statePath, state); err != nil {
		result.Outcome = OutcomeFailed
		return result, err
	}

	result.Outcome = OutcomeCompleted
	return result, nil
}

// verifyServable confirms the runtime lists the newly created model.
func (l *Learner) verifyServable(ctx context.Context, name string) error {
	models, err := l.runtime.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to verify new model: %w", err)
	}
	for _, m := range models {
		if m.Name == name {
			return nil
		}
	}
	return fmt.Errorf("model %s was created but the runtime does not serve it", name)
}

// RunContinuous runs cycles until the context is cancelled, sleeping
// the check interval between cycles and the error backoff after a
// failure.
func (l *Learner) RunContinuous(ctx context.Context) error {
	l.log.Info("starting continuous learning",
		"check_interval", l.cfg.Learner.CheckInterval.Std(),
		"retrain_interval", l.cfg.Learner.RetrainInterval.Std(),
	)

	for {
		_, err := l.RunOnce(ctx)

		wait := l.cfg.Learner.CheckInterval.Std()
		if err != nil {
			wait = l.cfg.Learner.ErrorBackoff.Std()
			l.log.Warn("backing off after failed cycle", "backoff", wait)
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			l.log.Info("continuous learning stopped")
			return ctx.Err()
		case <-timer.C:
		}
	}
}
