package learner

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// State is the persisted learning state. LastTrainTime drives the
// retrain-interval check; it only advances on a completed cycle.
type State struct {
	LastTrainTime time.Time `json:"last_train_time"`
	LastModel     string    `json:"last_model,omitempty"`
}

// loadState reads the state file. A missing file means the system has
// never trained, which makes the first cycle due immediately.
func loadState(path string) (*State, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &State{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read learner state: %w", err)
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to parse learner state: %w", err)
	}
	return &state, nil
}

// saveState writes atomically via temp file and rename.
func saveState(path string, state *State) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal learner state: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write learner state: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to replace learner state: %w", err)
	}
	return nil
}
