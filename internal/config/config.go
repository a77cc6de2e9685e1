package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	Addr           string        `env:"ADDR" envDefault:":8080"`
	DatabasePath   string        `env:"DATABASE_PATH" envDefault:"tournament.db"`
	MigrationsURL  string        `env:"MIGRATIONS_URL" envDefault:"file://migrations"`
	JWTSecret      string        `env:"JWT_SECRET,required,notEmpty"`
	LockWait       time.Duration `env:"LOCK_WAIT" envDefault:"5s"`
	MatchInterval  time.Duration `env:"MATCH_INTERVAL" envDefault:"30m"`
	AllowedOrigins []string      `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"*"`
	LogLevel       string        `env:"LOG_LEVEL" envDefault:"INFO"`
}

// Load reads an optional .env file and then the process environment.
// Variables already set in the environment win over the file.
func Load(files ...string) (Config, error) {
	if err := godotenv.Load(files...); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load .env: %w", err)
		}
		slog.Debug("No .env file found, using environment variables")
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if cfg.LockWait <= 0 {
		return Config{}, fmt.Errorf("parse env: LOCK_WAIT must be positive, got %s", cfg.LockWait)
	}
	if cfg.MatchInterval < 0 {
		return Config{}, fmt.Errorf("parse env: MATCH_INTERVAL must not be negative, got %s", cfg.MatchInterval)
	}
	return cfg, nil
}

// Level maps LOG_LEVEL onto a slog level. Unknown values fall back to Info.
func (c Config) Level() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(strings.TrimSpace(c.LogLevel)))); err != nil {
		return slog.LevelInfo
	}
	return level
}
