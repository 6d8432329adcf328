package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"otbookfix/database"
)

// EnvPrefix префикс переменных окружения
const EnvPrefix = "CATALOGFIX"

// Config конфигурация утилиты корректировки каталога
type Config struct {
	// База данных
	DatabasePath string        `mapstructure:"database_path"`
	Driver       string        `mapstructure:"driver"`
	BusyTimeout  time.Duration `mapstructure:"busy_timeout"`
	OpenRetries  int           `mapstructure:"open_retries"`

	// Connection pooling
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`

	// Пакет корректировок (пусто - встроенный)
	BatchFile string `mapstructure:"batch_file"`

	// Логирование
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`
}

// SetDefaults регистрирует значения по умолчанию и привязку к окружению
func SetDefaults(v *viper.Viper) {
	v.SetDefault("database_path", "otbook.sqlite")
	v.SetDefault("driver", database.DriverMattn)
	v.SetDefault("busy_timeout", 5*time.Second)
	v.SetDefault("open_retries", 3)

	v.SetDefault("max_open_conns", 1)
	v.SetDefault("max_idle_conns", 1)
	v.SetDefault("conn_max_lifetime", 5*time.Minute)

	v.SetDefault("batch_file", "")

	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "console")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
}

// LoadConfig загружает конфигурацию: флаги, окружение, файл, значения по умолчанию.
// configFile может быть пустым.
func LoadConfig(v *viper.Viper, configFile string) (*Config, error) {
	SetDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
	}

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	// Валидация
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return config, nil
}

// Validate валидирует конфигурацию
func (c *Config) Validate() error {
	if c.DatabasePath == "" {
		return errors.New("database path is required")
	}

	if c.Driver != database.DriverMattn && c.Driver != database.DriverModernc {
		return fmt.Errorf("unknown driver %q (expected %q or %q)", c.Driver, database.DriverMattn, database.DriverModernc)
	}

	if c.BusyTimeout < 0 {
		return errors.New("busy timeout cannot be negative")
	}

	if c.OpenRetries < 0 {
		return errors.New("open retries cannot be negative")
	}

	if c.MaxOpenConns <= 0 {
		return errors.New("max open connections must be greater than 0")
	}

	if c.MaxIdleConns <= 0 {
		return errors.New("max idle connections must be greater than 0")
	}

	if c.MaxIdleConns > c.MaxOpenConns {
		return errors.New("max idle connections cannot be greater than max open connections")
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level %q", c.LogLevel)
	}

	switch c.LogFormat {
	case "console", "json":
	default:
		return fmt.Errorf("unknown log format %q", c.LogFormat)
	}

	return nil
}

// DBConfig возвращает настройки подключения к базе
func (c *Config) DBConfig() database.DBConfig {
	return database.DBConfig{
		Driver:          c.Driver,
		BusyTimeout:     c.BusyTimeout,
		OpenRetries:     c.OpenRetries,
		MaxOpenConns:    c.MaxOpenConns,
		MaxIdleConns:    c.MaxIdleConns,
		ConnMaxLifetime: c.ConnMaxLifetime,
	}
}
