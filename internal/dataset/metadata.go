package dataset

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// FileInfo summarizes one dataset file.
type FileInfo struct {
	Examples  int   `json:"examples"`
	SizeBytes int64 `json:"size_bytes"`
}

// Metadata summarizes a completed dataset build.
type Metadata struct {
	CreatedAt     time.Time           `json:"created_at"`
	DatasetCount  int                 `json:"dataset_count"`
	TotalExamples int                 `json:"total_examples"`
	Files         map[string]FileInfo `json:"files"`
}

// WriteMetadata scans the dataset directory and writes a summary of
// every JSON-Lines file to dataset_metadata.json.
func (b *Builder) WriteMetadata() (*Metadata, error) {
	matches, err := filepath.Glob(filepath.Join(b.dir, "*.jsonl"))
	if err != nil {
		return nil, fmt.Errorf("failed to glob datasets: %w", err)
	}

	meta := &Metadata{
		CreatedAt: b.now().UTC(),
		Files:     make(map[string]FileInfo),
	}

	for _, path := range matches {
		examples, err := readJSONL(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("failed to stat %s: %w", path, err)
		}

		meta.Files[filepath.Base(path)] = FileInfo{
			Examples:  len(examples),
			SizeBytes: info.Size(),
		}
		meta.DatasetCount++
		meta.TotalExamples += len(examples)
	}

	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal metadata: %w", err)
	}

	path := filepath.Join(b.dir, "dataset_metadata.json")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return nil, fmt.Errorf("failed to write metadata: %w", err)
	}

	return meta, nil
}
