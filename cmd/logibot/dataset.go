package main

import (
	"fmt"
	"os/signal"
	"sort"
	"syscall"

	"github.com/spf13/cobra"
)

func newDatasetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dataset",
		Short: "Manage training datasets",
	}

	cmd.AddCommand(newDatasetBuildCmd(), newDatasetStatsCmd())
	return cmd
}

func newDatasetBuildCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "build",
		Short: "Build all training datasets from operational records",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp()
			if err != nil {
				return err
			}
			defer app.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			results, err := app.builder.BuildAll(ctx)
			if err != nil {
				return fmt.Errorf("dataset build failed: %w", err)
			}

			names := make([]string, 0, len(results))
			for name := range results {
				names = append(names, name)
			}
			sort.Strings(names)

			fmt.Println("📦 Datasets built:")
			for _, name := range names {
				fmt.Printf("  %-24s %s\n", name, results[name])
			}
			return nil
		},
	}
}

func newDatasetStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Summarize the dataset directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp()
			if err != nil {
				return err
			}
			defer app.Close()

			meta, err := app.builder.WriteMetadata()
			if err != nil {
				return err
			}

			fmt.Printf("📊 %d datasets, %d examples in %s\n", meta.DatasetCount, meta.TotalExamples, app.builder.Dir())
			names := make([]string, 0, len(meta.Files))
			for name := range meta.Files {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				info := meta.Files[name]
				fmt.Printf("  %-48s %5d examples  %8d bytes\n", name, info.Examples, info.SizeBytes)
			}
			return nil
		},
	}
}
