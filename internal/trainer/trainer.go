// Package trainer creates fine-tuned dispatch models on a local
// Ollama runtime from the latest training dataset.
package trainer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/srmops/logibot/internal/config"
	"github.com/srmops/logibot/internal/logging"
	"github.com/srmops/logibot/internal/ollama"
)

// ErrNoDataset indicates no training dataset exists yet. Callers treat
// this as a skip, not a failure.
var ErrNoDataset = errors.New("no training dataset available")

// SmokeTest records one post-build diagnostic prompt and its outcome.
// Smoke test failures never fail a training run.
type SmokeTest struct {
	Prompt   string `json:"prompt"`
	Response string `json:"response,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Result describes a completed training run.
type Result struct {
	ModelName   string        `json:"model_name"`
	BaseModel   string        `json:"base_model"`
	DatasetPath string        `json:"dataset_path"`
	Duration    time.Duration `json:"-"`
	SmokeTests  []SmokeTest   `json:"smoke_tests,omitempty"`
}

// Trainer builds new model versions via the Ollama runtime.
type Trainer struct {
	runtime ollama.Runtime
	cfg     *config.Config
	now     func() time.Time
}

// New creates a trainer.
func New(rt ollama.Runtime, cfg *config.Config) *Trainer {
	return &Trainer{
		runtime: rt,
		cfg:     cfg,
		now:     time.Now,
	}
}

// SetClock overrides the time source for stable model names in tests.
func (t *Trainer) SetClock(now func() time.Time) {
	t.now = now
}

func (t *Trainer) logger(ctx context.Context) *slog.Logger {
	return logging.WithContext(logging.ContextWithComponent(ctx, "trainer"))
}

// Train runs a full training cycle: verify the runtime, ensure the
// base model is present, locate the latest training dataset, build the
// Modelfile, create the model, run the diagnostic battery, and write
// provenance metadata.
func (t *Trainer) Train(ctx context.Context) (*Result, error) {
	start := t.now()

	models, err := t.runtime.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("ollama runtime unreachable: %w", err)
	}

	if err := t.ensureBaseModel(ctx, models); err != nil {
		return nil, err
	}

	datasetPath, err := t.latestTrainingDataset()
	if err != nil {
		return nil, err
	}

	modelName := fmt.Sprintf("%s-%s", t.cfg.Ollama.ModelPrefix, t.now().UTC().Format("20060102_150405"))
	ctx = logging.ContextWithModel(ctx, modelName)
	log := t.logger(ctx)
	log.Info("starting model training",
		"base", t.cfg.Ollama.BaseModel,
		"dataset", datasetPath,
	)

	modelfile := t.buildModelfile()
	if err := t.writeModelfile(modelName, modelfile); err != nil {
		return nil, err
	}

	if err := t.runtime.Create(ctx, modelName, modelfile, t.cfg.Ollama.CreateTimeout.Std()); err != nil {
		return nil, fmt.Errorf("model creation failed: %w", err)
	}

	result := &Result{
		ModelName:   modelName,
		BaseModel:   t.cfg.Ollama.BaseModel,
		DatasetPath: datasetPath,
		Duration:    t.now().Sub(start),
		SmokeTests:  t.runSmokeTests(ctx, modelName),
	}

	if err := t.writeMetadata(result); err != nil {
		log.Warn("failed to write training metadata", "error", err)
	}

	log.Info("model training complete",
		"duration", result.Duration.Round(time.Second),
	)
	return result, nil
}

// ensureBaseModel pulls the configured base model if the runtime does
// not already have it.
func (t *Trainer) ensureBaseModel(ctx context.Context, models []ollama.Model) error {
	base := t.cfg.Ollama.BaseModel
	for _, m := range models {
		if m.Name == base || strings.SplitN(m.Name, ":", 2)[0] == base {
			return nil
		}
	}

	t.logger(ctx).Info("pulling base model", "base", base)
	if err := t.runtime.Pull(ctx, base, t.cfg.Ollama.PullTimeout.Std()); err != nil {
		return fmt.Errorf("failed to pull base model %s: %w", base, err)
	}
	return nil
}

// latestTrainingDataset returns the newest *_train_*.jsonl file in the
// dataset directory. Timestamped names sort lexicographically.
func (t *Trainer) latestTrainingDataset() (string, error) {
	matches, err := filepath.Glob(filepath.Join(t.cfg.Paths.DatasetDir, "*_train_*.jsonl"))
	if err != nil {
		return "", fmt.Errorf("failed to glob training datasets: %w", err)
	}
	if len(matches) == 0 {
		return "", ErrNoDataset
	}

	sort.Strings(matches)
	return matches[len(matches)-1], nil
}

// buildModelfile renders the Modelfile for a new model version.
func (t *Trainer) buildModelfile() string {
	r := t.cfg.HaulRate

	var sb strings.Builder
	fmt.Fprintf(&sb, "FROM %s\n\n", t.cfg.Ollama.BaseModel)
	sb.WriteString("SYSTEM \"\"\"")
	fmt.Fprintf(&sb, `You are LogiBot, the dispatch assistant for SRM Operations.

Core knowledge:
- Haul Rate = ($%.0f / %.0f minutes) × Round Trip Minutes / %.0f tons
- Rates round up to the nearest $%.2f with a minimum of $%.2f
- Public data lives at artifacts/{appId}/public/data/{collection}
- No complex document queries: fetch all and filter in memory

Communication protocol:
- Mandatory directness. No apologies, no filler, no summaries.
- Prioritize actionable dispatch recommendations.
`, r.Base, r.TimeBase, r.TonBase, r.RoundIncrement, r.Minimum)
	sb.WriteString("\"\"\"\n\n")

	sb.WriteString("PARAMETER temperature 0.3\n")
	sb.WriteString("PARAMETER top_p 0.9\n")
	sb.WriteString("PARAMETER top_k 40\n")
	sb.WriteString("PARAMETER num_ctx 4096\n")
	sb.WriteString("PARAMETER stop \"Human:\"\n")
	sb.WriteString("PARAMETER stop \"Assistant:\"\n")

	return sb.String()
}

// writeModelfile persists the Modelfile before creation so a failed
// build can be reproduced by hand.
func (t *Trainer) writeModelfile(modelName, modelfile string) error {
	dir := t.cfg.Paths.ModelDir
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create model directory: %w", err)
	}

	path := filepath.Join(dir, modelName+".modelfile")
	if err := os.WriteFile(path, []byte(modelfile), 0644); err != nil {
		return fmt.Errorf("failed to write modelfile: %w", err)
	}
	return nil
}

// runSmokeTests sends a small prompt battery to the new model. Results
// are recorded for diagnosis only.
func (t *Trainer) runSmokeTests(ctx context.Context, modelName string) []SmokeTest {
	prompts := []string{
		"Calculate the haul rate for a 90 minute round trip.",
		"Which driver should I assign to the next load?",
		"What is the minimum haul rate?",
	}

	opts := &ollama.GenerateOptions{
		Temperature: 0.3,
		TopP:        0.9,
		TopK:        40,
		NumCtx:      4096,
	}

	log := t.logger(ctx)
	results := make([]SmokeTest, 0, len(prompts))
	for _, prompt := range prompts {
		st := SmokeTest{Prompt: prompt}
		genCtx, cancel := context.WithTimeout(ctx, t.cfg.Ollama.GenerateTimeout.Std())
		response, err := t.runtime.Generate(genCtx, modelName, prompt, opts)
		cancel()
		if err != nil {
			st.Error = err.Error()
			log.Warn("smoke test failed", "prompt", prompt, "error", err)
		} else {
			st.Response = response
		}
		results = append(results, st)
	}
	return results
}
