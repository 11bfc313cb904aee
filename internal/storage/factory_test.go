package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gravadigital/wishdraw-api/internal/config"
)

func TestValidateStorageType(t *testing.T) {
	tests := []struct {
		input   string
		want    StorageType
		wantErr bool
	}{
		{"postgres", StorageTypePostgres, false},
		{"PostgreSQL", StorageTypePostgres, false},
		{" sqlite ", StorageTypeSQLite, false},
		{"memory", StorageTypeMemory, false},
		{"redis", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ValidateStorageType(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCreateStoreMemory(t *testing.T) {
	store, err := NewFactory(StorageTypeMemory).CreateStore(&config.Config{})
	require.NoError(t, err)
	defer store.Close()

	assert.NoError(t, store.Health(context.Background()))
}

func TestCreateStoreSQLiteCreatesDirectory(t *testing.T) {
	cfg := &config.Config{}
	cfg.Storage.Type = "sqlite"
	cfg.Storage.SQLitePath = filepath.Join(t.TempDir(), "nested", "wishdraw.db")

	factory, err := FromConfig(cfg)
	require.NoError(t, err)

	store, err := factory.CreateStore(cfg)
	require.NoError(t, err)
	defer store.Close()

	assert.NoError(t, store.Health(context.Background()))
	n, err := store.Participants().Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestCreateStoreUnsupported(t *testing.T) {
	_, err := NewFactory("redis").CreateStore(&config.Config{})
	assert.Error(t, err)
}

func TestCreateStoreFailureReturnsNilStore(t *testing.T) {
	cfg := &config.Config{}
	cfg.Storage.Type = "sqlite"

	store, err := NewFactory(StorageTypeSQLite).CreateStore(cfg)
	require.Error(t, err)
	// a typed nil *sqlite.Store would make this interface non-nil
	assert.True(t, store == nil, "expected a nil draw.Store, got %T", store)
}
