package main

import (
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/brewtrail/brewtrail/internal/api"
	"github.com/brewtrail/brewtrail/internal/jobs"
)

var (
	servePort    int
	serveWorkers bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the import API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		if serveWorkers {
			worker := jobs.NewWorker(env.JobStore, env.Pipeline, workerConfig())
			go func() {
				if err := worker.Start(ctx); err != nil && ctx.Err() == nil {
					zap.L().Error("worker pool stopped", zap.Error(err))
				}
			}()
		}

		server := api.NewServer(env.Service, env.Queue, env.Cache, env.Trackers,
			cfg.Import.MaxPayloadBytes)

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: server.Router(),
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			srv.Shutdown(ctx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	serveCmd.Flags().BoolVar(&serveWorkers, "workers", true, "run the async job workers in-process")
	rootCmd.AddCommand(serveCmd)
}
