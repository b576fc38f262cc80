package trainer

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"
)

// metadata is the provenance record written alongside each model.
type metadata struct {
	ModelName       string      `json:"model_name"`
	BaseModel       string      `json:"base_model"`
	DatasetPath     string      `json:"dataset_path"`
	CreatedAt       time.Time   `json:"created_at"`
	DurationSeconds float64     `json:"duration_seconds"`
	Host            string      `json:"host"`
	Platform        string      `json:"platform"`
	SmokeTests      []SmokeTest `json:"smoke_tests,omitempty"`
}

// writeMetadata records provenance for a finished training run next to
// the model's Modelfile.
func (t *Trainer) writeMetadata(result *Result) error {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}

	meta := metadata{
		ModelName:       result.ModelName,
		BaseModel:       result.BaseModel,
		DatasetPath:     result.DatasetPath,
		CreatedAt:       t.now().UTC(),
		DurationSeconds: result.Duration.Seconds(),
		Host:            hostname,
		Platform:        runtime.GOOS + "/" + runtime.GOARCH,
		SmokeTests:      result.SmokeTests,
	}

	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	path := filepath.Join(t.cfg.Paths.ModelDir, result.ModelName+"_metadata.json")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write metadata: %w", err)
	}
	return nil
}
