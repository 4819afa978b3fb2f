// Package store implements the persistence ports on Postgres via GORM.
package store

import (
	"context"
	"fmt"

	"github.com/primechat/prime-chatbot-go/internal/config"
	"github.com/primechat/prime-chatbot-go/internal/domain"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Store implements the persistence ports on a single gorm handle.
type Store struct {
	db     *gorm.DB
	logger *zap.Logger
}

// Open connects to Postgres and migrates the schema.
func Open(cfg *config.Config, logger *zap.Logger) (*Store, error) {
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=disable",
		cfg.DBHost, cfg.DBUser, cfg.DBPass, cfg.DBName, cfg.DBPort)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	if err := db.AutoMigrate(
		&domain.User{},
		&domain.Company{},
		&domain.Document{},
		&domain.Lead{},
		&domain.Conversation{},
	); err != nil {
		return nil, fmt.Errorf("migrate schema: %w", err)
	}

	logger.Info("database connected",
		zap.String("host", cfg.DBHost),
		zap.String("db", cfg.DBName),
	)

	return &Store{db: db, logger: logger}, nil
}

// NewWithDB wraps an existing gorm handle. Used by tests with sqlite or
// a transaction-scoped connection.
func NewWithDB(db *gorm.DB, logger *zap.Logger) *Store {
	return &Store{db: db, logger: logger}
}

// Ping checks the underlying connection. Used by the readiness probe.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
