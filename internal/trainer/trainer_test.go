package trainer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/srmops/logibot/internal/config"
	"github.com/srmops/logibot/internal/ollama"
)

func newTestTrainer(t *testing.T, rt ollama.Runtime) *Trainer {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.Paths.DatasetDir = t.TempDir()
	cfg.Paths.ModelDir = t.TempDir()

	tr := New(rt, cfg)
	tr.SetClock(func() time.Time { return time.Date(2025, 6, 15, 10, 30, 0, 0, time.UTC) })
	return tr
}

func writeTrainingDataset(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	content := `{"instruction":"q","input":"","output":"a","context":"c"}` + "\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}

func TestTrainCreatesModel(t *testing.T) {
	fake := ollama.NewFake("llama3.2")
	tr := newTestTrainer(t, fake)
	writeTrainingDataset(t, tr.cfg.Paths.DatasetDir, "legacy_ai_complete_train_20250615_103000.jsonl")

	result, err := tr.Train(context.Background())
	if err != nil {
		t.Fatalf("Train() error = %v", err)
	}

	want := "legacy-ai-srm-20250615_103000"
	if result.ModelName != want {
		t.Errorf("ModelName = %q, want %q", result.ModelName, want)
	}
	if len(fake.Created) != 1 || fake.Created[0] != want {
		t.Errorf("Created = %v, want [%s]", fake.Created, want)
	}
	if len(fake.Pulled) != 0 {
		t.Errorf("Pulled = %v, want no pulls for a present base model", fake.Pulled)
	}
}

func TestTrainPullsMissingBaseModel(t *testing.T) {
	fake := ollama.NewFake()
	tr := newTestTrainer(t, fake)
	writeTrainingDataset(t, tr.cfg.Paths.DatasetDir, "legacy_ai_complete_train_20250615_103000.jsonl")

	if _, err := tr.Train(context.Background()); err != nil {
		t.Fatalf("Train() error = %v", err)
	}

	if len(fake.Pulled) != 1 || fake.Pulled[0] != "llama3.2" {
		t.Errorf("Pulled = %v, want [llama3.2]", fake.Pulled)
	}
}

func TestTrainNoDataset(t *testing.T) {
	fake := ollama.NewFake("llama3.2")
	tr := newTestTrainer(t, fake)

	_, err := tr.Train(context.Background())
	if !errors.Is(err, ErrNoDataset) {
		t.Errorf("Train() error = %v, want ErrNoDataset", err)
	}
	if len(fake.Created) != 0 {
		t.Errorf("Created = %v, want no models", fake.Created)
	}
}

func TestTrainRuntimeUnreachable(t *testing.T) {
	fake := ollama.NewFake("llama3.2")
	fake.ListErr = errors.New("connection refused")
	tr := newTestTrainer(t, fake)
	writeTrainingDataset(t, tr.cfg.Paths.DatasetDir, "legacy_ai_complete_train_20250615_103000.jsonl")

	if _, err := tr.Train(context.Background()); err == nil {
		t.Fatal("Train() error = nil, want unreachable error")
	}
}

func TestTrainPicksLatestDataset(t *testing.T) {
	fake := ollama.NewFake("llama3.2")
	tr := newTestTrainer(t, fake)
	writeTrainingDataset(t, tr.cfg.Paths.DatasetDir, "legacy_ai_complete_train_20250101_000000.jsonl")
	latest := writeTrainingDataset(t, tr.cfg.Paths.DatasetDir, "legacy_ai_complete_train_20250615_103000.jsonl")

	result, err := tr.Train(context.Background())
	if err != nil {
		t.Fatalf("Train() error = %v", err)
	}
	if result.DatasetPath != latest {
		t.Errorf("DatasetPath = %q, want %q", result.DatasetPath, latest)
	}
}

func TestTrainModelfileContents(t *testing.T) {
	fake := ollama.NewFake("llama3.2")
	tr := newTestTrainer(t, fake)
	writeTrainingDataset(t, tr.cfg.Paths.DatasetDir, "legacy_ai_complete_train_20250615_103000.jsonl")

	result, err := tr.Train(context.Background())
	if err != nil {
		t.Fatalf("Train() error = %v", err)
	}

	for _, want := range []string{
		"FROM llama3.2",
		"PARAMETER temperature 0.3",
		"PARAMETER top_p 0.9",
		"PARAMETER top_k 40",
		"PARAMETER num_ctx 4096",
		`PARAMETER stop "Human:"`,
		`PARAMETER stop "Assistant:"`,
	} {
		if !strings.Contains(fake.Modelfile, want) {
			t.Errorf("Modelfile missing %q", want)
		}
	}

	// The Modelfile is persisted before creation.
	path := filepath.Join(tr.cfg.Paths.ModelDir, result.ModelName+".modelfile")
	if _, err := os.Stat(path); err != nil {
		t.Errorf("expected persisted modelfile at %s: %v", path, err)
	}
}

func TestTrainSmokeTestFailuresAreDiagnosticOnly(t *testing.T) {
	fake := ollama.NewFake("llama3.2")
	fake.GenerateErr = errors.New("generation timed out")
	tr := newTestTrainer(t, fake)
	writeTrainingDataset(t, tr.cfg.Paths.DatasetDir, "legacy_ai_complete_train_20250615_103000.jsonl")

	result, err := tr.Train(context.Background())
	if err != nil {
		t.Fatalf("Train() error = %v, smoke test failures must not fail training", err)
	}

	if len(result.SmokeTests) == 0 {
		t.Fatal("expected smoke test results")
	}
	for _, st := range result.SmokeTests {
		if st.Error == "" {
			t.Errorf("smoke test %q recorded no error", st.Prompt)
		}
	}
}

// hangingRuntime simulates a runtime whose generate endpoint never
// responds. Every other operation behaves like the fake.
type hangingRuntime struct {
	*ollama.Fake
}

func (h *hangingRuntime) Generate(ctx context.Context, model, prompt string, opts *ollama.GenerateOptions) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func TestTrainBoundsSmokeTestGeneration(t *testing.T) {
	rt := &hangingRuntime{Fake: ollama.NewFake("llama3.2")}
	tr := newTestTrainer(t, rt)
	tr.cfg.Ollama.GenerateTimeout = config.Duration(20 * time.Millisecond)
	writeTrainingDataset(t, tr.cfg.Paths.DatasetDir, "legacy_ai_complete_train_20250615_103000.jsonl")

	start := time.Now()
	result, err := tr.Train(context.Background())
	if err != nil {
		t.Fatalf("Train() error = %v, a hung generate must only degrade diagnostics", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("Train() took %v, smoke tests are not bounded by the generate timeout", elapsed)
	}

	if len(result.SmokeTests) == 0 {
		t.Fatal("expected smoke test results")
	}
	for _, st := range result.SmokeTests {
		if st.Error == "" {
			t.Errorf("smoke test %q recorded no timeout error", st.Prompt)
		}
	}
}

func TestTrainWritesProvenanceMetadata(t *testing.T) {
	fake := ollama.NewFake("llama3.2")
	tr := newTestTrainer(t, fake)
	writeTrainingDataset(t, tr.cfg.Paths.DatasetDir, "legacy_ai_complete_train_20250615_103000.jsonl")

	result, err := tr.Train(context.Background())
	if err != nil {
		t.Fatalf("Train() error = %v", err)
	}

	path := filepath.Join(tr.cfg.Paths.ModelDir, result.ModelName+"_metadata.json")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("expected metadata file: %v", err)
	}
	for _, want := range []string{result.ModelName, "llama3.2", "dataset_path"} {
		if !strings.Contains(string(data), want) {
			t.Errorf("metadata missing %q", want)
		}
	}
}
