package migrations

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/gravadigital/wishdraw-api/internal/logger"
)

// Migration represents a database migration
type Migration struct {
	ID   string
	Name string
	Up   func(*gorm.DB) error
	Down func(*gorm.DB) error
}

// GetMigrations returns all available migrations in order
func GetMigrations() []Migration {
	return []Migration{
		{
			ID:   "001",
			Name: "create_extensions",
			Up:   migration001Up,
			Down: migration001Down,
		},
		{
			ID:   "002",
			Name: "create_core_tables",
			Up:   migration002Up,
			Down: migration002Down,
		},
		{
			ID:   "003",
			Name: "create_indexes",
			Up:   migration003Up,
			Down: migration003Down,
		},
		{
			ID:   "004",
			Name: "create_constraints_and_triggers",
			Up:   migration004Up,
			Down: migration004Down,
		},
		{
			ID:   "005",
			Name: "create_views",
			Up:   migration005Up,
			Down: migration005Down,
		},
	}
}

// ErrNothingToRollback is returned when schema_migrations is empty
var ErrNothingToRollback = errors.New("no migrations to rollback")

// lockKey is the advisory lock taken while migrating, so API replicas that
// start together do not apply the same migration twice
const lockKey = 7_316_101

// RunMigrations applies every pending migration, each in its own transaction
func RunMigrations(db *gorm.DB) error {
	log := logger.Migration()

	return withLock(db, func(conn *gorm.DB) error {
		pending, err := Pending(conn)
		if err != nil {
			return err
		}
		if len(pending) == 0 {
			log.Debug("Schema already current")
			return nil
		}

		for _, m := range pending {
			log.Info("Applying migration", "id", m.ID, "name", m.Name)

			err := conn.Transaction(func(tx *gorm.DB) error {
				if err := m.Up(tx); err != nil {
					return fmt.Errorf("migration %s_%s: %w", m.ID, m.Name, err)
				}
				return tx.Exec("INSERT INTO schema_migrations (id, name) VALUES (?, ?)", m.ID, m.Name).Error
			})
			if err != nil {
				return err
			}
		}

		log.Info("Migrations applied", "count", len(pending))
		return nil
	})
}

// withLock runs fn on a single pooled connection holding the advisory lock
func withLock(db *gorm.DB, fn func(conn *gorm.DB) error) error {
	return db.Connection(func(conn *gorm.DB) error {
		if err := conn.Exec("SELECT pg_advisory_lock(?)", lockKey).Error; err != nil {
			return fmt.Errorf("acquire migration lock: %w", err)
		}
		defer conn.Exec("SELECT pg_advisory_unlock(?)", lockKey)

		return fn(conn)
	})
}

func createMigrationsTable(db *gorm.DB) error {
	return db.Exec(`
        CREATE TABLE IF NOT EXISTS schema_migrations (
            id VARCHAR(10) PRIMARY KEY,
            name VARCHAR(255) NOT NULL,
            applied_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
        )
    `).Error
}

func appliedIDs(db *gorm.DB) (map[string]bool, error) {
	var ids []string
	if err := db.Raw("SELECT id FROM schema_migrations").Scan(&ids).Error; err != nil {
		return nil, fmt.Errorf("read schema_migrations: %w", err)
	}

	applied := make(map[string]bool, len(ids))
	for _, id := range ids {
		applied[id] = true
	}
	return applied, nil
}

// Pending returns the migrations that have not been applied yet, in order
func Pending(db *gorm.DB) ([]Migration, error) {
	if err := createMigrationsTable(db); err != nil {
		return nil, fmt.Errorf("failed to create migrations table: %w", err)
	}

	applied, err := appliedIDs(db)
	if err != nil {
		return nil, err
	}

	var pending []Migration
	for _, m := range GetMigrations() {
		if !applied[m.ID] {
			pending = append(pending, m)
		}
	}
	return pending, nil
}

// find looks a migration up by id
func find(id string) (Migration, bool) {
	for _, m := range GetMigrations() {
		if m.ID == id {
			return m, true
		}
	}
	return Migration{}, false
}

// RollbackMigration reverts the most recently applied migration
func RollbackMigration(db *gorm.DB) error {
	log := logger.Migration()

	return withLock(db, func(conn *gorm.DB) error {
		var last []string
		err := conn.Raw("SELECT id FROM schema_migrations ORDER BY id DESC LIMIT 1").Scan(&last).Error
		if err != nil {
			return fmt.Errorf("failed to get last migration: %w", err)
		}
		if len(last) == 0 {
			return ErrNothingToRollback
		}

		m, ok := find(last[0])
		if !ok {
			return fmt.Errorf("applied migration %s is not known to this binary", last[0])
		}

		log.Info("Rolling back migration", "id", m.ID, "name", m.Name)
		return conn.Transaction(func(tx *gorm.DB) error {
			if err := m.Down(tx); err != nil {
				return fmt.Errorf("rollback %s_%s: %w", m.ID, m.Name, err)
			}
			return tx.Exec("DELETE FROM schema_migrations WHERE id = ?", m.ID).Error
		})
	})
}
