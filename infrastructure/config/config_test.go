package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.ServerAddress)
	assert.Equal(t, StorageMemory, cfg.StorageDriver)
	assert.Equal(t, 50, cfg.History.Capacity)
	assert.True(t, cfg.History.CursorTracksAppendedOnEvict)
	assert.Equal(t, 24*time.Hour, cfg.TokenTTL)
	assert.True(t, cfg.IsDevelopment())
}

func TestLoadConfig_EnvironmentOverrides(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("SERVER_ADDRESS", ":9000")
	t.Setenv("HISTORY_CAPACITY", "3")
	t.Setenv("HISTORY_CURSOR_TRACKS_APPENDED_ON_EVICT", "false")
	t.Setenv("CACHE_TTL_SECONDS", "30")
	t.Setenv("TOKEN_TTL", "2h")
	t.Setenv("SESSION_IDLE_TIMEOUT", "5m")
	t.Setenv("STORAGE_DRIVER", "MySQL")
	t.Setenv("MYSQL_DSN", "user:pass@tcp(localhost:3306)/mindmap")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.ServerAddress)
	assert.Equal(t, 3, cfg.History.Capacity)
	assert.False(t, cfg.History.CursorTracksAppendedOnEvict)
	assert.Equal(t, 30*time.Second, cfg.CacheTTL)
	assert.Equal(t, 2*time.Hour, cfg.TokenTTL)
	assert.Equal(t, 5*time.Minute, cfg.SessionIdleTimeout)
	assert.Equal(t, StorageMySQL, cfg.StorageDriver)

	store := cfg.History.StoreConfig()
	assert.Equal(t, 3, store.Capacity)
	assert.False(t, store.CursorTracksAppendedEntryOnEvict)
}

func TestLoadConfig_FileThenEnvironment(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "mindmap.yaml", `
server_address: ":7000"
storage_driver: dynamodb
table_name: maps-from-file
token_ttl: 90m
history:
  capacity: 10
  cursor_tracks_appended_on_evict: false
`)
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("TABLE_NAME", "maps-from-env")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, path, cfg.ConfigFile)
	assert.Equal(t, ":7000", cfg.ServerAddress)
	assert.Equal(t, StorageDynamoDB, cfg.StorageDriver)
	assert.Equal(t, "maps-from-env", cfg.TableName)
	assert.Equal(t, 90*time.Minute, cfg.TokenTTL)
	assert.Equal(t, 10, cfg.History.Capacity)
	assert.False(t, cfg.History.CursorTracksAppendedOnEvict)
}

func TestLoadConfig_FileErrors(t *testing.T) {
	dir := t.TempDir()

	t.Run("missing file", func(t *testing.T) {
		t.Setenv("CONFIG_FILE", filepath.Join(dir, "absent.yaml"))
		_, err := LoadConfig()
		assert.Error(t, err)
	})

	t.Run("unknown key", func(t *testing.T) {
		t.Setenv("CONFIG_FILE", writeFile(t, dir, "typo.yaml", "histroy:\n  capacity: 3\n"))
		_, err := LoadConfig()
		assert.Error(t, err)
	})

	t.Run("empty file", func(t *testing.T) {
		t.Setenv("CONFIG_FILE", writeFile(t, dir, "empty.yaml", ""))
		cfg, err := LoadConfig()
		require.NoError(t, err)
		assert.Equal(t, 50, cfg.History.Capacity)
	})
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "defaults", mutate: func(c *Config) {}},
		{name: "zero capacity", mutate: func(c *Config) { c.History.Capacity = 0 }, wantErr: "history capacity"},
		{name: "unknown driver", mutate: func(c *Config) { c.StorageDriver = "sqlite" }, wantErr: "STORAGE_DRIVER"},
		{name: "mysql without dsn", mutate: func(c *Config) { c.StorageDriver = StorageMySQL }, wantErr: "MYSQL_DSN"},
		{name: "dynamodb without table", mutate: func(c *Config) {
			c.StorageDriver = StorageDynamoDB
			c.TableName = ""
		}, wantErr: "TABLE_NAME"},
		{name: "production without secret", mutate: func(c *Config) { c.Environment = "production" }, wantErr: "JWT_SECRET"},
		{name: "production complete", mutate: func(c *Config) {
			c.Environment = "production"
			c.JWTSecret = "s3cret"
			c.AdminPassword = "hunter2"
		}},
		{name: "sampling out of range", mutate: func(c *Config) { c.TraceSampling = 1.5 }, wantErr: "TRACE_SAMPLING"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestConfig_DomainConfig(t *testing.T) {
	cfg := Defaults()
	cfg.Environment = "production"
	cfg.History = HistoryConfig{Capacity: 7, CursorTracksAppendedOnEvict: false}

	dc := cfg.DomainConfig()
	assert.Equal(t, 7, dc.HistoryCapacity)
	assert.False(t, dc.CursorTracksAppendedEntryOnEvict)
	assert.Equal(t, 2000, dc.MaxNodesPerMap)
}

func TestLoadHistory_KeepsOmittedKeys(t *testing.T) {
	path := writeFile(t, t.TempDir(), "h.yaml", "history:\n  capacity: 4\nserver_address: \":1\"\n")

	got, err := LoadHistory(path, HistoryConfig{Capacity: 50, CursorTracksAppendedOnEvict: true})
	require.NoError(t, err)
	assert.Equal(t, HistoryConfig{Capacity: 4, CursorTracksAppendedOnEvict: true}, got)
}
