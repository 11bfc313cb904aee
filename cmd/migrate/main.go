package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/gravadigital/wishdraw-api/internal/config"
	"github.com/gravadigital/wishdraw-api/internal/logger"
	"github.com/gravadigital/wishdraw-api/internal/storage/migrations"
	"github.com/gravadigital/wishdraw-api/internal/storage/postgres"
)

func main() {
	rollback := flag.Bool("rollback", false, "Rollback the last migration")
	status := flag.Bool("status", false, "List pending migrations without applying them")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "invalid configuration:", err)
		os.Exit(1)
	}

	logger.Initialize(cfg.LogLevel)
	log := logger.Migration()

	log.Info("Starting migration process", "rollback", *rollback, "status", *status)

	db, err := postgres.Connect(cfg)
	if err != nil {
		log.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer func() {
		_ = postgres.Close(db)
	}()

	switch {
	case *status:
		pending, err := migrations.Pending(db)
		if err != nil {
			log.Error("Failed to read migration status", "error", err)
			os.Exit(1)
		}
		if len(pending) == 0 {
			fmt.Println("Database is up to date")
			return
		}
		for _, m := range pending {
			fmt.Printf("pending: %s_%s\n", m.ID, m.Name)
		}
	case *rollback:
		log.Info("Rolling back migrations...")
		if err := migrations.RollbackMigration(db); err != nil {
			log.Error("Migration rollback failed", "error", err)
			os.Exit(1)
		}
		log.Info("Migration rollback completed successfully")
	default:
		log.Info("Running migrations...")
		if err := migrations.RunMigrations(db); err != nil {
			log.Error("Migration failed", "error", err)
			os.Exit(1)
		}
		log.Info("Migrations completed successfully")
	}

	fmt.Println("Migration process completed!")
}
