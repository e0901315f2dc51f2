package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	DriverJSON   = "json"
	DriverSQLite = "sqlite"
)

type Config struct {
	Port        int
	FrontendURL string
	Driver      string
	DBPath      string
	LogLevel    string
	LogDev      bool

	RateLimit    int
	RateWindow   time.Duration
	MaxBodyBytes int64
}

// defaultDBPath is the store location used when database.path is unset.
func defaultDBPath(driver string) string {
	if driver == DriverSQLite {
		return "database/data.db"
	}
	return "database/data.json"
}

func loadDotEnv(files ...string) error {
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// LoadConfig reads config.yaml from the working directory, then
// AMBASSADOR_* environment variables. .env.local and .env are loaded into
// the environment first when present; variables already set win. A dotenv
// file that exists but does not parse is an error.
func LoadConfig() (*Config, error) {
	if err := loadDotEnv(".env.local", ".env"); err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.SetEnvPrefix("ambassador")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("server.port", "AMBASSADOR_SERVER_PORT", "PORT")
	_ = v.BindEnv("server.frontend_url", "AMBASSADOR_SERVER_FRONTEND_URL", "FRONTEND_URL")
	_ = v.BindEnv("database.path", "AMBASSADOR_DATABASE_PATH", "DATABASE_PATH")

	v.SetDefault("server.port", 3001)
	v.SetDefault("server.frontend_url", "http://localhost:3000")
	v.SetDefault("database.driver", DriverJSON)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.dev", false)
	v.SetDefault("server.rate_limit.requests", 100)
	v.SetDefault("server.rate_limit.window", 15*time.Minute)
	v.SetDefault("server.max_body_bytes", 10<<20)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := &Config{
		Port:        v.GetInt("server.port"),
		FrontendURL: v.GetString("server.frontend_url"),
		Driver:      strings.ToLower(v.GetString("database.driver")),
		DBPath:      v.GetString("database.path"),
		LogLevel:    v.GetString("log.level"),
		LogDev:      v.GetBool("log.dev"),

		RateLimit:    v.GetInt("server.rate_limit.requests"),
		RateWindow:   v.GetDuration("server.rate_limit.window"),
		MaxBodyBytes: v.GetInt64("server.max_body_bytes"),
	}
	switch cfg.Driver {
	case DriverJSON, DriverSQLite:
	default:
		return nil, fmt.Errorf("unknown database.driver %q", cfg.Driver)
	}
	if cfg.DBPath == "" {
		cfg.DBPath = defaultDBPath(cfg.Driver)
	}
	return cfg, nil
}
