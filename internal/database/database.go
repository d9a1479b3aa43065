package database

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/emilythestrangee/ai-forum/backend/internal/config"
	"github.com/emilythestrangee/ai-forum/backend/internal/logging"
	"github.com/emilythestrangee/ai-forum/backend/internal/models"
)

// Service represents a service that interacts with a database.
type Service interface {
	// Health pings the pool and reports its counters. "status" is "up"
	// or "down".
	Health(ctx context.Context) map[string]string
	Close() error
	GetDB() *gorm.DB

	// Migrate creates or updates the forum tables.
	Migrate() error
}

type service struct {
	db     *gorm.DB
	logger *zap.Logger
}

// New opens a pooled postgres connection described by cfg.
func New(cfg *config.Config, logger *zap.Logger) (Service, error) {
	dsn, err := cfg.DSN()
	if err != nil {
		return nil, err
	}
	return Open(dsn, cfg.Debug, logger)
}

// Open connects to dsn directly.
func Open(dsn string, debug bool, logger *zap.Logger) (Service, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logging.Gorm(logger, debug),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	logger.Info("✅ Database connected successfully")

	return &service{db: db, logger: logger}, nil
}

func (s *service) GetDB() *gorm.DB {
	return s.db
}

func (s *service) Migrate() error {
	err := s.db.AutoMigrate(
		&models.User{},
		&models.Post{},
		&models.Comment{},
		&models.Vote{},
	)
	if err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	s.logger.Info("✅ Database migrations completed")
	return nil
}

// healthTimeout bounds the ping when the caller has no deadline.
const healthTimeout = 10 * time.Second

func (s *service) Health(ctx context.Context) map[string]string {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, healthTimeout)
		defer cancel()
	}

	sqlDB, err := s.db.DB()
	if err != nil {
		return map[string]string{"status": "down", "error": err.Error()}
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		s.logger.Warn("database ping failed", zap.Error(err))
		return map[string]string{"status": "down", "error": err.Error()}
	}

	st := sqlDB.Stats()
	report := map[string]string{
		"status":           "up",
		"open_connections": strconv.Itoa(st.OpenConnections),
		"in_use":           strconv.Itoa(st.InUse),
		"idle":             strconv.Itoa(st.Idle),
		"wait_count":       strconv.FormatInt(st.WaitCount, 10),
		"wait_duration":    st.WaitDuration.String(),
	}
	if st.MaxOpenConnections > 0 && st.InUse >= st.MaxOpenConnections*9/10 {
		report["message"] = "pool near capacity"
	}
	return report
}

// Close closes the database connection.
func (s *service) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}

	s.logger.Info("Disconnected from database")
	return sqlDB.Close()
}
