package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "0.1.0"

var (
	configPath string
	quiet      bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "logibot",
		Short: "Self-improving dispatch AI for SRM Operations",
		Long: `LogiBot runs a continuous-learning pipeline for a local dispatch model:
it builds training datasets from operational records, fine-tunes new model
versions on a local Ollama runtime, and manages the deployed version.`,
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.logibot/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&quiet, "quiet", false, "suppress log output")

	rootCmd.AddCommand(
		newInitCmd(),
		newLearnCmd(),
		newDatasetCmd(),
		newTrainCmd(),
		newModelsCmd(),
		newDoctorCmd(),
		newVersionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show LogiBot version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("logibot %s\n", version)
		},
	}
}
