package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pablobfonseca/go-room-qa/api"
	"github.com/pablobfonseca/go-room-qa/config"
	"github.com/pablobfonseca/go-room-qa/database"
	"github.com/pablobfonseca/go-room-qa/logging"
	"github.com/pablobfonseca/go-room-qa/metrics"
	"github.com/pablobfonseca/go-room-qa/queue"
	"github.com/pablobfonseca/go-room-qa/repository"
	"github.com/pablobfonseca/go-room-qa/rooms"
	"github.com/pablobfonseca/go-room-qa/services"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 15 * time.Second

func main() {
	if err := newRootCommand().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var envFile string

	root := &cobra.Command{
		Use:           "rooms",
		Short:         "Room audio transcription and question answering server",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), envFile)
		},
	}
	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "path to the env file")

	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), envFile)
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "migrate",
		Short: "Create the vector extension, tables and indexes",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(envFile)
		},
	})

	return root
}

func setup(envFile string) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(envFile)
	if err != nil {
		slog.Error("invalid configuration", slog.Any("error", err))
		return nil, nil, err
	}

	logger := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	slog.SetDefault(logger)

	return cfg, logger, nil
}

func runMigrate(envFile string) error {
	cfg, logger, err := setup(envFile)
	if err != nil {
		return err
	}

	db, err := database.Connect(cfg.Database, logger)
	if err != nil {
		logger.Error("database connection failed", slog.Any("error", err))
		return err
	}
	defer database.Close(db)

	if err := database.Migrate(db); err != nil {
		logger.Error("migration failed", slog.Any("error", err))
		return err
	}

	logger.Info("migration completed")
	return nil
}

func runServe(ctx context.Context, envFile string) error {
	cfg, logger, err := setup(envFile)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Connect(cfg.Database, logger)
	if err != nil {
		logger.Error("database connection failed", slog.Any("error", err))
		return err
	}
	defer database.Close(db)

	if err := database.Migrate(db); err != nil {
		logger.Error("migration failed", slog.Any("error", err))
		return err
	}

	m := metrics.New()

	provider, err := services.NewProvider(cfg.AI)
	if err != nil {
		logger.Error("ai provider setup failed", slog.Any("error", err))
		return err
	}

	service := rooms.NewService(
		services.WithMetrics(provider, m),
		repository.NewGormRepository(db),
		rooms.PolicyFromConfig(cfg.Policy),
		logger,
		m,
	)

	var jobs api.JobQueue
	client, err := queue.Connect(ctx, cfg.Redis)
	if err != nil {
		logger.Warn("redis unavailable, async uploads disabled", slog.Any("error", err))
	} else {
		defer client.Close()
		jobs = queue.New(client, queue.AudioProcessingQueue, cfg.JobTTL)
	}

	server := &http.Server{
		Addr:              cfg.HTTPAddress,
		Handler:           api.NewHandler(service, jobs, logger, m).HTTPHandler(cfg.CORSAllowedOrigins),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("server listening", slog.String("address", cfg.HTTPAddress))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			logger.Error("server failed", slog.Any("error", err))
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", slog.Any("error", err))
		return err
	}

	logger.Info("server stopped")
	return nil
}
