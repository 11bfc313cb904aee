package postgres

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"gorm.io/gorm"

	"github.com/gravadigital/wishdraw-api/internal/config"
	"github.com/gravadigital/wishdraw-api/internal/domain/draw"
	"github.com/gravadigital/wishdraw-api/internal/logger"
)

// Container implements draw.Store on top of a GORM connection
type Container struct {
	db              *gorm.DB
	log             *log.Logger
	participantRepo *PostgresParticipantRepository
	wishlistRepo    *PostgresWishlistRepository
}

// NewContainer connects, migrates and health-checks a PostgreSQL store
func NewContainer(cfg *config.Config) (*Container, error) {
	log := logger.Repository("postgres_container")
	log.Info("Initializing PostgreSQL repository container...")

	db, err := Connect(cfg)
	if err != nil {
		log.Error("Failed to connect to database", "error", err)
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := AutoMigrate(db); err != nil {
		log.Error("Failed to run migrations", "error", err)
		_ = Close(db)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	container := NewContainerWithDB(db)
	if err := container.Health(context.Background()); err != nil {
		log.Error("Container health check failed", "error", err)
		_ = Close(db)
		return nil, fmt.Errorf("container health check failed: %w", err)
	}

	log.Info("PostgreSQL repository container initialized successfully")
	return container, nil
}

// NewContainerWithDB creates a container with an existing database connection
func NewContainerWithDB(db *gorm.DB) *Container {
	return &Container{
		db:              db,
		log:             logger.Repository("postgres_container"),
		participantRepo: NewPostgresParticipantRepository(db),
		wishlistRepo:    NewPostgresWishlistRepository(db),
	}
}

// Participants returns the participant repository
func (c *Container) Participants() draw.ParticipantRepository {
	return c.participantRepo
}

// Wishlists returns the wishlist repository
func (c *Container) Wishlists() draw.WishlistRepository {
	return c.wishlistRepo
}

// Atomically runs fn inside a database transaction. Conditional updates in
// the repositories block on row locks held by concurrent transactions, so a
// loser observes zero affected rows once the winner commits.
func (c *Container) Atomically(ctx context.Context, fn func(repos draw.Repositories) error) error {
	return c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewTransactionContainer(tx))
	})
}

// Health pings the database and touches each table
func (c *Container) Health(ctx context.Context) error {
	if err := HealthCheck(ctx, c.db); err != nil {
		c.log.Error("Database health check failed", "error", err)
		return fmt.Errorf("database health check failed: %w", err)
	}

	tables := []string{"participants", "wishlist_entries"}
	for _, table := range tables {
		var count int64
		if err := c.db.WithContext(ctx).Table(table).Count(&count).Error; err != nil {
			c.log.Error("Repository health check failed", "table", table, "error", err)
			return fmt.Errorf("repository %s health check failed: %w", table, err)
		}
	}
	return nil
}

// Progress reads the draw_progress view created by migration 005
func (c *Container) Progress(ctx context.Context) (draw.Progress, error) {
	var p draw.Progress
	err := c.db.WithContext(ctx).
		Raw("SELECT participants, participants_drawn, wishlists, wishlists_claimed FROM draw_progress").
		Scan(&p).Error
	if err != nil {
		return draw.Progress{}, fmt.Errorf("failed to read draw progress: %w", err)
	}
	return p, nil
}

// Close gracefully shuts down the container and closes database connections
func (c *Container) Close() error {
	c.log.Info("Closing PostgreSQL repository container...")

	if c.db == nil {
		c.log.Warn("Database connection is nil, nothing to close")
		return nil
	}

	if err := Close(c.db); err != nil {
		return fmt.Errorf("failed to close database connection: %w", err)
	}
	c.db = nil

	c.log.Info("PostgreSQL repository container closed successfully")
	return nil
}

// GetDB returns the underlying database connection
func (c *Container) GetDB() *gorm.DB {
	return c.db
}

// TransactionContainer wraps repositories in a database transaction
type TransactionContainer struct {
	participantRepo *PostgresParticipantRepository
	wishlistRepo    *PostgresWishlistRepository
}

// NewTransactionContainer creates a new transaction container
func NewTransactionContainer(tx *gorm.DB) *TransactionContainer {
	return &TransactionContainer{
		participantRepo: NewPostgresParticipantRepository(tx),
		wishlistRepo:    NewPostgresWishlistRepository(tx),
	}
}

// Participants returns the participant repository within transaction
func (tc *TransactionContainer) Participants() draw.ParticipantRepository {
	return tc.participantRepo
}

// Wishlists returns the wishlist repository within transaction
func (tc *TransactionContainer) Wishlists() draw.WishlistRepository {
	return tc.wishlistRepo
}
