package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gravadigital/wishdraw-api/internal/config"
	"github.com/gravadigital/wishdraw-api/internal/domain/draw"
	"github.com/gravadigital/wishdraw-api/internal/storage/memory"
	"github.com/gravadigital/wishdraw-api/internal/storage/postgres"
	"github.com/gravadigital/wishdraw-api/internal/storage/sqlite"
)

// StorageType represents the type of storage backend
type StorageType string

const (
	// StorageTypePostgres represents PostgreSQL storage
	StorageTypePostgres StorageType = "postgres"
	// StorageTypeSQLite represents a single-file SQLite database
	StorageTypeSQLite StorageType = "sqlite"
	// StorageTypeMemory keeps everything in process, lost on restart
	StorageTypeMemory StorageType = "memory"
)

// Factory provides a factory pattern for creating storage backends
type Factory struct {
	storageType StorageType
}

// NewFactory creates a new storage factory
func NewFactory(storageType StorageType) *Factory {
	return &Factory{
		storageType: storageType,
	}
}

// CreateStore creates a draw store based on the configured type
func (f *Factory) CreateStore(cfg *config.Config) (draw.Store, error) {
	switch f.storageType {
	case StorageTypePostgres:
		container, err := postgres.NewContainer(cfg)
		if err != nil {
			return nil, err
		}
		return container, nil
	case StorageTypeSQLite:
		path := cfg.Storage.SQLitePath
		if dir := filepath.Dir(path); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create sqlite directory: %w", err)
			}
		}
		db, err := sqlite.Open(path)
		if err != nil {
			return nil, err
		}
		return db, nil
	case StorageTypeMemory:
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", f.storageType)
	}
}

// GetSupportedTypes returns a list of supported storage types
func GetSupportedTypes() []StorageType {
	return []StorageType{
		StorageTypePostgres,
		StorageTypeSQLite,
		StorageTypeMemory,
	}
}

// ValidateStorageType validates if a storage type is supported
func ValidateStorageType(storageType string) (StorageType, error) {
	normalized := strings.ToLower(strings.TrimSpace(storageType))
	if normalized == "postgresql" {
		normalized = string(StorageTypePostgres)
	}
	st := StorageType(normalized)

	for _, supported := range GetSupportedTypes() {
		if st == supported {
			return st, nil
		}
	}

	return "", fmt.Errorf("unsupported storage type: %s. Supported types: %v", storageType, GetSupportedTypes())
}

// FromConfig returns a factory for the configured STORAGE_TYPE
func FromConfig(cfg *config.Config) (*Factory, error) {
	st, err := ValidateStorageType(cfg.Storage.Type)
	if err != nil {
		return nil, err
	}
	return NewFactory(st), nil
}
