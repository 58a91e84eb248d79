package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestLoad_DefaultsAndOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DB_SQLITE_PATH", "/tmp/hexmap-test.db")
	t.Setenv("TREE_MAX_HIERARCHY_DEPTH", "12")
	t.Setenv("SERVER_READ_TIMEOUT_SECONDS", "3")
	t.Setenv("REDIS_ENABLED", "true")

	cfg, err := load()
	require.NoError(t, err)
	require.NoError(t, cfg.validate())

	assert.Equal(t, 12, cfg.Tree.MaxHierarchyDepth)
	assert.Equal(t, 5000, cfg.Tree.MaxDescendantsForOperation)
	assert.Equal(t, 100, cfg.Tree.ContentBatchSize)
	assert.Equal(t, 3*time.Second, cfg.Server.ReadTimeout)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, "hexmap:events", cfg.Redis.Channel)
	assert.Contains(t, cfg.ConnectionString(), "/tmp/hexmap-test.db")
	assert.Contains(t, cfg.ConnectionString(), "foreign_keys(1)")
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server:   ServerConfig{Port: "8080"},
			Database: DatabaseConfig{Driver: "postgres", Host: "localhost", Name: "hexmap"},
			Auth:     AuthConfig{JWTSecret: testSecret},
			RateLimit: RateLimitConfig{
				Enabled:           true,
				RequestsPerSecond: 10,
				BurstSize:         20,
			},
			Tree: DefaultTreeConfig(),
		}
	}

	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"missing secret", func(c *Config) { c.Auth.JWTSecret = "" }},
		{"short secret", func(c *Config) { c.Auth.JWTSecret = "short" }},
		{"unknown driver", func(c *Config) { c.Database.Driver = "mysql" }},
		{"sqlite without path", func(c *Config) { c.Database.Driver = "sqlite" }},
		{"postgres without host", func(c *Config) { c.Database.Host = "" }},
		{"zero depth", func(c *Config) { c.Tree.MaxHierarchyDepth = 0 }},
		{"zero batch", func(c *Config) { c.Tree.ContentBatchSize = 0 }},
		{"zero ceiling", func(c *Config) { c.Tree.MaxDescendantsForOperation = 0 }},
		{"zero rate", func(c *Config) { c.RateLimit.RequestsPerSecond = 0 }},
	}

	require.NoError(t, valid().validate())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			assert.Error(t, c.validate())
		})
	}
}
