package main

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/brewtrail/brewtrail/internal/jobs"
)

var jobsListLimit int

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Inspect and run async import jobs",
}

var jobsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent import jobs",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initPipeline(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		list, err := env.Queue.List(cmd.Context(), jobsListLimit)
		if err != nil {
			return err
		}

		for _, job := range list {
			fmt.Printf("%-40s %-10s attempts=%d user=%s %s\n",
				job.ID, job.Status, job.Attempts, job.UserID,
				job.CreatedAt.Format(time.RFC3339))
		}
		fmt.Printf("%d jobs\n", len(list))
		return nil
	},
}

var jobsWorkCmd = &cobra.Command{
	Use:   "work",
	Short: "Run the job worker pool until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		worker := jobs.NewWorker(env.JobStore, env.Pipeline, workerConfig())

		zap.L().Info("worker pool starting",
			zap.Int("concurrency", cfg.Jobs.Concurrency))
		if err := worker.Start(ctx); err != nil && ctx.Err() == nil {
			return err
		}
		return nil
	},
}

func workerConfig() jobs.WorkerConfig {
	return jobs.WorkerConfig{
		Concurrency:    cfg.Jobs.Concurrency,
		MaxAttempts:    cfg.Jobs.MaxAttempts,
		InitialBackoff: time.Duration(cfg.Jobs.InitialBackoffSecs) * time.Second,
		PollInterval:   time.Duration(cfg.Jobs.PollIntervalSecs) * time.Second,
	}
}

func init() {
	jobsListCmd.Flags().IntVar(&jobsListLimit, "limit", 50, "max jobs to list")
	jobsCmd.AddCommand(jobsListCmd)
	jobsCmd.AddCommand(jobsWorkCmd)
	rootCmd.AddCommand(jobsCmd)
}
