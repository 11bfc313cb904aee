package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("JWT_SECRET", "")
	t.Setenv("STORAGE_TYPE", "sqlite")
	t.Setenv("DRAW_MODE", "closed")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "closed", cfg.Draw.Mode)
	assert.Equal(t, 5, cfg.Draw.MaxClaimAttempts)
	assert.Equal(t, time.Hour, cfg.Auth.JWTTTL)
	assert.Equal(t, 10, cfg.Auth.BcryptCost)
	assert.Equal(t, developmentSecret, cfg.Auth.JWTSecret)
	assert.False(t, cfg.ObjectStorageEnabled())
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("STORAGE_TYPE", "memory")
	t.Setenv("DRAW_MODE", "open")
	t.Setenv("DRAW_MAX_CLAIM_ATTEMPTS", "3")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("JWT_TTL", "30m")
	t.Setenv("OBJECT_STORAGE_ENDPOINT", "localhost:9000")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "memory", cfg.Storage.Type)
	assert.Equal(t, "open", cfg.Draw.Mode)
	assert.Equal(t, 3, cfg.Draw.MaxClaimAttempts)
	assert.Equal(t, "s3cret", cfg.Auth.JWTSecret)
	assert.Equal(t, 30*time.Minute, cfg.Auth.JWTTTL)
	assert.True(t, cfg.ObjectStorageEnabled())
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		c := &Config{AppEnv: "development"}
		c.Storage.Type = "sqlite"
		c.Draw.Mode = "closed"
		c.Draw.MaxClaimAttempts = 5
		c.Auth.JWTSecret = "secret"
		c.Auth.JWTTTL = time.Hour
		return c
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"unknown storage", func(c *Config) { c.Storage.Type = "redis" }, "STORAGE_TYPE"},
		{"unknown mode", func(c *Config) { c.Draw.Mode = "chaos" }, "DRAW_MODE"},
		{"no attempts", func(c *Config) { c.Draw.MaxClaimAttempts = 0 }, "DRAW_MAX_CLAIM_ATTEMPTS"},
		{"zero ttl", func(c *Config) { c.Auth.JWTTTL = 0 }, "JWT_TTL"},
		{"production needs secret", func(c *Config) {
			c.AppEnv = "production"
			c.Auth.JWTSecret = ""
		}, "JWT_SECRET"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestGetDatabaseURL(t *testing.T) {
	c := &Config{}
	c.DB.Host = "db"
	c.DB.Port = "5432"
	c.DB.User = "santa"
	c.DB.Password = "p@ss"
	c.DB.Name = "wishdraw"
	c.DB.SSLMode = "disable"

	assert.Equal(t, "postgres://santa:p%40ss@db:5432/wishdraw?sslmode=disable", c.GetDatabaseURL())
}

func TestAllowOrigins(t *testing.T) {
	c := &Config{}
	c.CORS.AllowOrigins = "http://a.test, http://b.test,,"
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, c.AllowOrigins())
}
