package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/gravadigital/wishdraw-api/internal/config"
	"github.com/gravadigital/wishdraw-api/internal/logger"
	"github.com/gravadigital/wishdraw-api/internal/storage/migrations"
)

var errNilDB = errors.New("database connection is nil")

// Pool sizes the connection pool. Zero fields fall back to DefaultPool.
type Pool struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// DefaultPool is used for any field the configuration leaves at zero
var DefaultPool = Pool{
	MaxOpenConns:    25,
	MaxIdleConns:    10,
	ConnMaxLifetime: time.Hour,
}

func poolFromConfig(cfg *config.Config) Pool {
	p := Pool{
		MaxOpenConns:    cfg.DB.MaxOpenConns,
		MaxIdleConns:    cfg.DB.MaxIdleConns,
		ConnMaxLifetime: cfg.DB.ConnMaxLifetime,
	}
	if p.MaxOpenConns <= 0 {
		p.MaxOpenConns = DefaultPool.MaxOpenConns
	}
	if p.MaxIdleConns <= 0 || p.MaxIdleConns > p.MaxOpenConns {
		p.MaxIdleConns = min(DefaultPool.MaxIdleConns, p.MaxOpenConns)
	}
	if p.ConnMaxLifetime <= 0 {
		p.ConnMaxLifetime = DefaultPool.ConnMaxLifetime
	}
	return p
}

// Connect opens the PostgreSQL pool described by cfg, retrying with backoff
// while the server comes up.
func Connect(cfg *config.Config) (*gorm.DB, error) {
	log := logger.Database()

	if err := checkConnectionSettings(cfg); err != nil {
		return nil, fmt.Errorf("invalid database configuration: %w", err)
	}

	gormConfig := &gorm.Config{
		Logger: queryLogger(cfg),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
		PrepareStmt: true,
		// unique violations surface as gorm.ErrDuplicatedKey, FK violations as gorm.ErrForeignKeyViolated
		TranslateError: true,
	}

	retries := max(cfg.DB.ConnectRetries, 1)
	delay := 2 * time.Second

	var db *gorm.DB
	var err error
	for attempt := 1; attempt <= retries; attempt++ {
		db, err = gorm.Open(postgres.Open(cfg.GetDatabaseURL()), gormConfig)
		if err == nil {
			break
		}

		log.Warn("Database connection failed", "host", cfg.DB.Host, "attempt", attempt, "of", retries, "error", err)
		if attempt < retries {
			time.Sleep(delay)
			delay *= 2
		}
	}
	if err != nil {
		return nil, fmt.Errorf("connect to %s after %d attempts: %w", cfg.DB.Host, retries, err)
	}

	pool := poolFromConfig(cfg)
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}
	sqlDB.SetMaxOpenConns(pool.MaxOpenConns)
	sqlDB.SetMaxIdleConns(pool.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(pool.ConnMaxLifetime)

	if err := HealthCheck(context.Background(), db); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("database connection test failed: %w", err)
	}

	log.Info("Connected to PostgreSQL",
		"host", cfg.DB.Host,
		"database", cfg.DB.Name,
		"max_open_conns", pool.MaxOpenConns,
		"max_idle_conns", pool.MaxIdleConns)
	return db, nil
}

// queryLogger routes gorm's SQL log through the database logger. Slow
// queries are always reported; every statement only in debug gin mode.
func queryLogger(cfg *config.Config) gormLogger.Interface {
	level := gormLogger.Warn
	if cfg.Server.GinMode == "debug" {
		level = gormLogger.Info
	}

	slow := cfg.DB.SlowQuery
	if slow <= 0 {
		slow = 200 * time.Millisecond
	}

	return gormLogger.New(logger.Database().With("source", "gorm"), gormLogger.Config{
		SlowThreshold:             slow,
		LogLevel:                  level,
		IgnoreRecordNotFoundError: true,
		Colorful:                  false,
	})
}

func checkConnectionSettings(cfg *config.Config) error {
	if cfg == nil {
		return errors.New("config cannot be nil")
	}

	var errs []error
	for name, value := range map[string]string{
		"DB_HOST": cfg.DB.Host,
		"DB_PORT": cfg.DB.Port,
		"DB_NAME": cfg.DB.Name,
		"DB_USER": cfg.DB.User,
	} {
		if value == "" {
			errs = append(errs, fmt.Errorf("%s cannot be empty", name))
		}
	}
	return errors.Join(errs...)
}

// HealthCheck pings the database, bounded to five seconds
func HealthCheck(ctx context.Context, db *gorm.DB) error {
	if db == nil {
		return errNilDB
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}
	return nil
}

// AutoMigrate brings the participants and wishlist schema up to date
func AutoMigrate(db *gorm.DB) error {
	if err := HealthCheck(context.Background(), db); err != nil {
		return fmt.Errorf("database unreachable before migrations: %w", err)
	}

	started := time.Now()
	if err := migrations.RunMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	logger.Migration().Info("Schema up to date", "duration", time.Since(started))
	return nil
}

// Close releases the pool, logging what was still open
func Close(db *gorm.DB) error {
	if db == nil {
		return nil
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}

	stats := sqlDB.Stats()
	logger.Database().Debug("Closing database pool",
		"open", stats.OpenConnections,
		"in_use", stats.InUse,
		"idle", stats.Idle,
		"wait_count", stats.WaitCount)

	if err := sqlDB.Close(); err != nil {
		return fmt.Errorf("failed to close database connection: %w", err)
	}
	return nil
}
