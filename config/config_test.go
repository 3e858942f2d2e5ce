package config

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *DatabaseConfig {
	return &DatabaseConfig{
		Driver:   DriverPostgres,
		Host:     "localhost",
		Port:     5432,
		User:     "hierarchy",
		Password: "local-dev-password",
		DBName:   "hierarchy_service",
		SSLMode:  "disable",
	}
}

func TestDatabaseConfigValidate(t *testing.T) {
	testCases := []struct {
		name    string
		env     Environment
		mutate  func(*DatabaseConfig)
		wantErr string
	}{
		{"valid development", Development, func(c *DatabaseConfig) {}, ""},
		{"empty host", Development, func(c *DatabaseConfig) { c.Host = "" }, "Host"},
		{"port too low", Development, func(c *DatabaseConfig) { c.Port = 0 }, "Port"},
		{"port too high", Development, func(c *DatabaseConfig) { c.Port = 70000 }, "Port"},
		{"empty user", Development, func(c *DatabaseConfig) { c.User = "" }, "User"},
		{"empty password", Development, func(c *DatabaseConfig) { c.Password = "" }, "Password"},
		{"short password in production", Production, func(c *DatabaseConfig) {
			c.Password = "short"
			c.SSLMode = "require"
		}, "Password"},
		{"empty db name", Development, func(c *DatabaseConfig) { c.DBName = "" }, "DBName"},
		{"db name starts with digit", Development, func(c *DatabaseConfig) { c.DBName = "1bad" }, "DBName"},
		{"db name with hyphen", Development, func(c *DatabaseConfig) { c.DBName = "bad-name" }, "DBName"},
		{"invalid ssl mode", Development, func(c *DatabaseConfig) { c.SSLMode = "sometimes" }, "SSLMode"},
		{"ssl disabled in production", Production, func(c *DatabaseConfig) {
			c.Password = "long-enough-password"
		}, "SSLMode"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(cfg)
			err := cfg.Validate(tc.env)
			if tc.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			var vErr *ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, tc.wantErr, vErr.Field)
		})
	}
}

func TestEnvProvider(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("HS_DB_HOST", "db.internal")
	t.Setenv("HS_DB_PORT", "5433")

	p := NewEnvProvider("HS_")
	ctx := context.Background()

	assert.Equal(t, Production, p.GetEnvironment())

	host, err := p.GetString(ctx, "DB_HOST")
	require.NoError(t, err)
	assert.Equal(t, "db.internal", host)

	port, err := p.GetInt(ctx, "DB_PORT")
	require.NoError(t, err)
	assert.Equal(t, 5433, port)

	_, err = p.GetString(ctx, "DB_MISSING")
	assert.Error(t, err)
}

func TestGetStoreDriver(t *testing.T) {
	ctx := context.Background()

	t.Run("defaults to postgres", func(t *testing.T) {
		p := NewEnvProvider("")
		assert.Equal(t, DriverPostgres, GetStoreDriver(ctx, p))
	})

	t.Run("honors sqlite", func(t *testing.T) {
		t.Setenv("DB_DRIVER", "sqlite")
		p := NewEnvProvider("")
		assert.Equal(t, DriverSQLite, GetStoreDriver(ctx, p))
	})

	t.Run("honors memory", func(t *testing.T) {
		t.Setenv("DB_DRIVER", "memory")
		p := NewEnvProvider("")
		assert.Equal(t, DriverMemory, GetStoreDriver(ctx, p))
	})

	t.Run("unknown falls back to postgres", func(t *testing.T) {
		t.Setenv("DB_DRIVER", "oracle")
		p := NewEnvProvider("")
		assert.Equal(t, DriverPostgres, GetStoreDriver(ctx, p))
	})
}

func TestGetDatabaseConfig(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("DB_HOST", "localhost")
	t.Setenv("DB_PORT", "5432")
	t.Setenv("DB_USER", "hierarchy")
	t.Setenv("DB_PASSWORD", "local-dev-password")
	t.Setenv("DB_NAME", "hierarchy_service")

	p := NewEnvProvider("")
	cfg, err := GetDatabaseConfig(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, "localhost", cfg.Host)
	assert.Equal(t, 5432, cfg.Port)
	// SSL mode defaults to disable outside production
	assert.Equal(t, "disable", cfg.SSLMode)
}
