package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"otbookfix/database"
)

func validConfig() *Config {
	return &Config{
		DatabasePath:    "otbook.sqlite",
		Driver:          database.DriverMattn,
		BusyTimeout:     5 * time.Second,
		OpenRetries:     3,
		MaxOpenConns:    1,
		MaxIdleConns:    1,
		ConnMaxLifetime: 5 * time.Minute,
		LogLevel:        "info",
		LogFormat:       "console",
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig(viper.New(), "")
	require.NoError(t, err)

	assert.Equal(t, "otbook.sqlite", cfg.DatabasePath)
	assert.Equal(t, database.DriverMattn, cfg.Driver)
	assert.Equal(t, 5*time.Second, cfg.BusyTimeout)
	assert.Equal(t, 3, cfg.OpenRetries)
	assert.Equal(t, 1, cfg.MaxOpenConns)
	assert.Equal(t, "", cfg.BatchFile)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadConfig_Env(t *testing.T) {
	t.Setenv("CATALOGFIX_DATABASE_PATH", "/tmp/other.sqlite")
	t.Setenv("CATALOGFIX_DRIVER", database.DriverModernc)
	t.Setenv("CATALOGFIX_BUSY_TIMEOUT", "250ms")

	cfg, err := LoadConfig(viper.New(), "")
	require.NoError(t, err)

	assert.Equal(t, "/tmp/other.sqlite", cfg.DatabasePath)
	assert.Equal(t, database.DriverModernc, cfg.Driver)
	assert.Equal(t, 250*time.Millisecond, cfg.BusyTimeout)
}

func TestLoadConfig_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalogfix.yaml")
	content := "database_path: rehearsal.sqlite\nlog_level: debug\nbatch_file: fixes.yaml\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadConfig(viper.New(), path)
	require.NoError(t, err)

	assert.Equal(t, "rehearsal.sqlite", cfg.DatabasePath)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "fixes.yaml", cfg.BatchFile)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(viper.New(), filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestLoadConfig_Invalid(t *testing.T) {
	t.Setenv("CATALOGFIX_DRIVER", "postgres")

	_, err := LoadConfig(viper.New(), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid config")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"empty path", func(c *Config) { c.DatabasePath = "" }, "database path is required"},
		{"unknown driver", func(c *Config) { c.Driver = "mysql" }, "unknown driver"},
		{"negative timeout", func(c *Config) { c.BusyTimeout = -time.Second }, "busy timeout"},
		{"negative retries", func(c *Config) { c.OpenRetries = -1 }, "open retries"},
		{"zero open conns", func(c *Config) { c.MaxOpenConns = 0 }, "max open connections"},
		{"zero idle conns", func(c *Config) { c.MaxIdleConns = 0 }, "max idle connections must"},
		{"idle above open", func(c *Config) { c.MaxIdleConns = 2 }, "cannot be greater"},
		{"log level", func(c *Config) { c.LogLevel = "trace" }, "unknown log level"},
		{"log format", func(c *Config) { c.LogFormat = "xml" }, "unknown log format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
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

func TestDBConfig(t *testing.T) {
	cfg := validConfig()
	cfg.Driver = database.DriverModernc

	dbConfig := cfg.DBConfig()
	assert.Equal(t, database.DriverModernc, dbConfig.Driver)
	assert.Equal(t, cfg.BusyTimeout, dbConfig.BusyTimeout)
	assert.Equal(t, cfg.OpenRetries, dbConfig.OpenRetries)
	assert.Equal(t, cfg.MaxOpenConns, dbConfig.MaxOpenConns)
}
