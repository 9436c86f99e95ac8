package database

import (
	"fmt"
	"log/slog"

	"github.com/pablobfonseca/go-room-qa/config"
	"github.com/pablobfonseca/go-room-qa/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Connect opens the postgres connection pool. The caller owns the handle and
// must release it with Close.
func Connect(cfg config.DatabaseConfig, log *slog.Logger) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Info("database connected", slog.String("host", cfg.Host), slog.String("name", cfg.Name))
	return db, nil
}

// Migrate enables pgvector, creates the tables and the cosine index
func Migrate(db *gorm.DB) error {
	if err := db.Exec("CREATE EXTENSION IF NOT EXISTS vector;").Error; err != nil {
		return fmt.Errorf("failed to create vector extension: %w", err)
	}

	if err := AutoMigrate(db); err != nil {
		return err
	}

	if err := db.Exec("CREATE INDEX IF NOT EXISTS audio_chunks_embeddings_idx ON audio_chunks USING hnsw (embeddings vector_cosine_ops);").Error; err != nil {
		return fmt.Errorf("failed to create embeddings index: %w", err)
	}

	return nil
}

// AutoMigrate creates or updates the tables only. Tests run it against sqlite.
func AutoMigrate(db *gorm.DB) error {
	if db == nil {
		return fmt.Errorf("nil gorm db")
	}
	return db.AutoMigrate(
		&models.AudioChunk{},
		&models.Question{},
	)
}

func Close(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
