package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Alijeyrad/counsel_backend/pkg/constants"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

var GlobalConf *Config

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.timeout_seconds", 30)
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.rate_limit.requests_per_minute", 120)

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.pool.max_open_conns", 25)
	v.SetDefault("database.pool.max_idle_conns", 5)
	v.SetDefault("database.pool.conn_max_lifetime_minutes", 30)

	v.SetDefault("redis.addr", "localhost:6379")

	v.SetDefault("booking.timezone", "Asia/Tehran")
	v.SetDefault("booking.day_start_hour", 9)
	v.SetDefault("booking.day_end_hour", 17)
	v.SetDefault("booking.free_sessions_per_month", 4)
	v.SetDefault("booking.student_discount_percent", 20)
	v.SetDefault("booking.cancellation_notice_hours", 24)
	v.SetDefault("booking.availability_cache_seconds", 60)
	v.SetDefault("booking.platform_fee_amount", 500000)
	v.SetDefault("booking.platform_fee_days", 30)

	v.SetDefault("authentication.session_ttl_minutes", 60*24)
	v.SetDefault("authentication.paseto.mode", "public")
	v.SetDefault("authentication.paseto.access_ttl_minutes", 60)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.output.stdout", true)

	v.SetDefault("observability.service_name", constants.AppName)
	v.SetDefault("observability.metrics.path", "/metrics")
}

func ReadConfig(configPath string) (*Config, error) {
	// A .env next to the config file is optional; real env vars still win.
	if err := godotenv.Load(filepath.Join(configPath, ".env")); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("error loading .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)
	v.SetConfigName(constants.ConfigName)
	v.SetConfigType(constants.ConfigFormat)
	v.AddConfigPath(configPath)

	// Allow env vars to override config values.
	// e.g. COUNSEL_DATABASE_HOST overrides database.host
	v.SetEnvPrefix(constants.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read the config file (optional in Docker environments)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &config, nil
}

func MustReadConfig(path string) *Config {
	config, err := ReadConfig(path)
	if err != nil {
		panic(err)
	}

	GlobalConf = config

	return config
}
