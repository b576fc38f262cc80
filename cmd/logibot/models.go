package main

import (
	"fmt"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/srmops/logibot/internal/registry"
)

func newModelsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "models",
		Short: "Manage trained model versions",
	}

	cmd.AddCommand(
		newModelsListCmd(),
		newModelsActiveCmd(),
		newModelsSetActiveCmd(),
		newModelsDeleteCmd(),
		newModelsCleanupCmd(),
		newModelsStatsCmd(),
		newModelsCompareCmd(),
		newModelsExportCmd(),
	)
	return cmd
}

func newModelsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered model versions",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp()
			if err != nil {
				return err
			}
			defer app.Close()

			models, err := app.registry.List()
			if err != nil {
				return err
			}
			if len(models) == 0 {
				fmt.Println("No models registered yet. Run \"logibot train\" or \"logibot learn once\".")
				return nil
			}

			active, hasActive, err := app.registry.Active()
			if err != nil {
				return err
			}

			for _, m := range models {
				marker := "  "
				if hasActive && m.Name == active.Name {
					marker = "* "
				}
				fmt.Printf("%s%-40s %s  (base %s)\n", marker, m.Name, m.CreatedAt.Format("2006-01-02 15:04"), m.BaseModel)
			}
			return nil
		},
	}
}

func newModelsActiveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "active",
		Short: "Show the currently deployed model",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp()
			if err != nil {
				return err
			}
			defer app.Close()

			active, ok, err := app.registry.Active()
			if err != nil {
				return err
			}
			if !ok {
				fmt.Println("No active model.")
				return nil
			}
			fmt.Printf("%s (base %s, trained %s)\n", active.Name, active.BaseModel, active.CreatedAt.Format(time.RFC3339))
			return nil
		},
	}
}

func newModelsSetActiveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set-active <model>",
		Short: "Deploy a registered model version",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp()
			if err != nil {
				return err
			}
			defer app.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if err := app.registry.SetActive(ctx, args[0]); err != nil {
				return err
			}
			fmt.Printf("🚀 Deployed %s\n", args[0])
			return nil
		},
	}
}

func newModelsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <model>",
		Short: "Delete a model from the runtime and the registry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp()
			if err != nil {
				return err
			}
			defer app.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if err := app.registry.Delete(ctx, args[0]); err != nil {
				return err
			}
			fmt.Printf("🗑  Deleted %s\n", args[0])
			return nil
		},
	}
}

func newModelsCleanupCmd() *cobra.Command {
	var keep int

	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Delete old model versions, keeping the most recent and the active one",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp()
			if err != nil {
				return err
			}
			defer app.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			deleted, err := app.registry.Cleanup(ctx, keep)
			if err != nil {
				return err
			}
			if len(deleted) == 0 {
				fmt.Println("Nothing to clean up.")
				return nil
			}
			for _, name := range deleted {
				fmt.Printf("🗑  Deleted %s\n", name)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&keep, "keep", 3, "number of recent versions to keep")
	return cmd
}

func newModelsStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show registry statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp()
			if err != nil {
				return err
			}
			defer app.Close()

			stats, err := app.registry.Summary()
			if err != nil {
				return err
			}

			fmt.Printf("Models:  %d\n", stats.TotalModels)
			if stats.ActiveModel != "" {
				fmt.Printf("Active:  %s\n", stats.ActiveModel)
			} else {
				fmt.Println("Active:  none")
			}
			if stats.TotalModels > 0 {
				fmt.Printf("Newest:  %s\n", stats.Newest.Format(time.RFC3339))
				fmt.Printf("Oldest:  %s\n", stats.Oldest.Format(time.RFC3339))
			}
			return nil
		},
	}
}

func newModelsExportCmd() *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "export <model>",
		Short: "Export a model's registry record as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp()
			if err != nil {
				return err
			}
			defer app.Close()

			outDir := dir
			if outDir == "" {
				outDir = app.cfg.Paths.ModelDir
			}

			path, err := app.registry.Export(args[0], outDir)
			if err != nil {
				return err
			}
			fmt.Printf("📄 Exported %s to %s\n", args[0], path)
			return nil
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "", "output directory (default model dir)")
	return cmd
}

func newModelsCompareCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "compare <model-a> <model-b>",
		Short: "Compare two registered model versions",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp()
			if err != nil {
				return err
			}
			defer app.Close()

			a, b, err := app.registry.Compare(args[0], args[1])
			if err != nil {
				return err
			}

			printRecord := func(rec registry.Record) {
				fmt.Printf("%s\n", rec.Name)
				fmt.Printf("  base:    %s\n", rec.BaseModel)
				fmt.Printf("  trained: %s\n", rec.CreatedAt.Format(time.RFC3339))
				fmt.Printf("  dataset: %s\n", rec.DatasetPath)
				for _, k := range sortedKeys(rec.Metadata) {
					fmt.Printf("  %s: %v\n", k, rec.Metadata[k])
				}
			}

			printRecord(a)
			fmt.Println()
			printRecord(b)

			if age := b.CreatedAt.Sub(a.CreatedAt); age > 0 {
				fmt.Printf("\n%s is newer by %s\n", b.Name, age.Round(time.Minute))
			} else if age < 0 {
				fmt.Printf("\n%s is newer by %s\n", a.Name, (-age).Round(time.Minute))
			}
			return nil
		},
	}
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
