package main

import (
	"errors"
	"fmt"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/srmops/logibot/internal/registry"
	"github.com/srmops/logibot/internal/trainer"
)

func newTrainCmd() *cobra.Command {
	var deploy bool

	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train a new model version from the latest dataset",
		Long: `Trains a new model version regardless of the retrain interval. Run
"logibot dataset build" first if operational records changed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp()
			if err != nil {
				return err
			}
			defer app.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			result, err := app.trainer.Train(ctx)
			if errors.Is(err, trainer.ErrNoDataset) {
				return fmt.Errorf("no training dataset found, run \"logibot dataset build\" first")
			}
			if err != nil {
				return fmt.Errorf("training failed: %w", err)
			}

			smokeFailures := 0
			for _, st := range result.SmokeTests {
				if st.Error != "" {
					smokeFailures++
				}
			}

			if err := app.registry.Register(ctx, registry.Record{
				Name:        result.ModelName,
				BaseModel:   result.BaseModel,
				DatasetPath: result.DatasetPath,
				CreatedAt:   time.Now().UTC(),
				Metadata: map[string]any{
					"training_method":  "ollama_modelfile",
					"dataset":          filepath.Base(result.DatasetPath),
					"duration_seconds": result.Duration.Seconds(),
					"smoke_tests":      len(result.SmokeTests),
					"smoke_failures":   smokeFailures,
				},
			}, deploy); err != nil {
				return fmt.Errorf("failed to register model: %w", err)
			}

			fmt.Printf("✅ Trained %s in %s\n", result.ModelName, result.Duration.Round(time.Second))
			for _, st := range result.SmokeTests {
				if st.Error != "" {
					fmt.Printf("  ⚠️  smoke test failed: %s\n", st.Prompt)
				}
			}
			if deploy {
				fmt.Printf("🚀 Deployed %s\n", result.ModelName)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&deploy, "deploy", false, "activate the new model after training")
	return cmd
}
