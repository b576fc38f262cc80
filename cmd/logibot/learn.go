package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/srmops/logibot/internal/learner"
)

func newLearnCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "learn",
		Short: "Run the continuous-learning pipeline",
		Args:  cobra.NoArgs,
		// Bare "logibot learn" behaves like "learn once".
		RunE: runLearnOnce,
	}

	cmd.AddCommand(newLearnOnceCmd(), newLearnContinuousCmd())
	return cmd
}

func newLearnOnceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "once",
		Short: "Run a single learning cycle",
		RunE:  runLearnOnce,
	}
}

func runLearnOnce(cmd *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	result, err := app.learner.RunOnce(ctx)
	if err != nil {
		return fmt.Errorf("learning cycle failed: %w", err)
	}

	switch result.Outcome {
	case learner.OutcomeCompleted:
		fmt.Printf("✅ Trained and registered %s\n", result.ModelName)
	case learner.OutcomeSkippedInterval:
		fmt.Println("⏭  Skipped: retrain interval not elapsed")
	case learner.OutcomeSkippedInsufficientData:
		fmt.Printf("⏭  Skipped: %d examples available, %d required\n",
			result.EstimatedExamples, app.cfg.Learner.MinNewExamples)
	}
	return nil
}

func newLearnContinuousCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "continuous",
		Short: "Run learning cycles until interrupted",
		Long: `Runs learning cycles forever. With learner.schedule configured, cycles
fire on the cron schedule; otherwise they repeat on the check interval.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp()
			if err != nil {
				return err
			}
			defer app.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if app.cfg.Learner.Schedule != "" {
				sched := learner.NewScheduler(app.learner)
				if err := sched.Start(ctx); err != nil {
					return err
				}
				fmt.Printf("📅 Learning on schedule %q, Ctrl-C to stop\n", app.cfg.Learner.Schedule)
				<-ctx.Done()
				sched.Stop()
				return nil
			}

			fmt.Printf("🔄 Learning every %s, Ctrl-C to stop\n", app.cfg.Learner.CheckInterval.Std())
			if err := app.learner.RunContinuous(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}
}
