package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/pablobfonseca/go-room-qa/config"
	"github.com/pablobfonseca/go-room-qa/database"
	"github.com/pablobfonseca/go-room-qa/logging"
	"github.com/pablobfonseca/go-room-qa/metrics"
	"github.com/pablobfonseca/go-room-qa/queue"
	"github.com/pablobfonseca/go-room-qa/repository"
	"github.com/pablobfonseca/go-room-qa/rooms"
	"github.com/pablobfonseca/go-room-qa/services"
	"github.com/pablobfonseca/go-room-qa/worker"
	"github.com/spf13/cobra"
)

func main() {
	var envFile string

	cmd := &cobra.Command{
		Use:           "worker",
		Short:         "Process queued audio uploads",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(envFile)
		},
	}
	cmd.Flags().StringVar(&envFile, "env-file", ".env", "path to the env file")

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(envFile string) error {
	cfg, err := config.Load(envFile)
	if err != nil {
		slog.Error("invalid configuration", slog.Any("error", err))
		return err
	}

	logger := logging.New(cfg.Logging.Level, cfg.Logging.Format).With(slog.String("component", "worker"))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Connect(cfg.Database, logger)
	if err != nil {
		logger.Error("database connection failed", slog.Any("error", err))
		return err
	}
	defer database.Close(db)

	client, err := queue.Connect(ctx, cfg.Redis)
	if err != nil {
		logger.Error("redis connection failed", slog.Any("error", err))
		return err
	}
	defer client.Close()

	provider, err := services.NewProvider(cfg.AI)
	if err != nil {
		logger.Error("ai provider setup failed", slog.Any("error", err))
		return err
	}

	m := metrics.New()
	service := rooms.NewService(
		services.WithMetrics(provider, m),
		repository.NewGormRepository(db),
		rooms.PolicyFromConfig(cfg.Policy),
		logger,
		m,
	)

	pool := worker.New(queue.New(client, queue.AudioProcessingQueue, cfg.JobTTL), service, cfg.WorkerCount, logger, m)
	pool.Start(ctx)

	<-ctx.Done()

	logger.Info("stopping workers")
	pool.Stop()
	return nil
}
