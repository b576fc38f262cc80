package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/srmops/logibot/internal/health"
)

func newDoctorCmd() *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check pipeline health and configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp()
			if err != nil {
				return err
			}
			defer app.Close()

			report := health.RunChecks(cmd.Context(), app.cfg, app.store, app.runtime)

			fmt.Println()
			fmt.Println("LogiBot Health Check")
			fmt.Println("====================")
			fmt.Println()

			fmt.Println("Model Runtime:")
			printChecks(report.Runtime, verbose)
			fmt.Println()

			fmt.Println("Storage:")
			printChecks(report.Storage, verbose)
			fmt.Println()

			if !report.Healthy() {
				return fmt.Errorf("health check failed")
			}
			fmt.Println("All checks passed.")
			return nil
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "show fix suggestions")
	return cmd
}

func printChecks(checks []health.Check, verbose bool) {
	for _, c := range checks {
		fmt.Printf("  %s %-16s %s\n", c.Status.Symbol(), c.Name, c.Message)
		if verbose && c.Fix != "" && c.Status != health.StatusOK {
			fmt.Printf("                      → %s\n", c.Fix)
		}
	}
}
