// Package config loads settings from an optional config file and the
// environment.
package config

import (
	"errors"
	"fmt"

	"github.com/spf13/viper"

	"github.com/abhisek/multiq/internal/store"
)

// Config is the resolved application configuration.
type Config struct {
	// DBPath is the SQLite database file.
	DBPath string

	// UserID identifies the local learner.
	UserID int64

	// AdminID receives admin notifications and may run admin
	// commands. Zero disables the admin surface.
	AdminID int64

	// ReminderHours are the hours of day (0-23) at which the
	// reminder sweep fires.
	ReminderHours []int

	Log LogConfig
}

// LogConfig controls the file logger. The terminal UI owns stdout, so
// logs always go to a file.
type LogConfig struct {
	Path  string
	Level string // "debug" or "info"
}

// Load reads multiq.yaml from the working directory or ~/.config/multiq,
// then applies MULTIQ_-prefixed environment overrides. A missing
// config file is fine; defaults cover everything.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("multiq")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/multiq")

	v.SetEnvPrefix("MULTIQ")
	v.AutomaticEnv()

	v.SetDefault("user_id", 1)
	v.SetDefault("admin_id", 1)
	v.SetDefault("reminder.hours", []int{10, 15, 19})
	v.SetDefault("log.level", "info")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := &Config{
		DBPath:        v.GetString("db_path"),
		UserID:        v.GetInt64("user_id"),
		AdminID:       v.GetInt64("admin_id"),
		ReminderHours: v.GetIntSlice("reminder.hours"),
		Log: LogConfig{
			Path:  v.GetString("log.path"),
			Level: v.GetString("log.level"),
		},
	}

	if cfg.DBPath == "" {
		p, err := store.DefaultDBPath()
		if err != nil {
			return nil, err
		}
		cfg.DBPath = p
	}
	if cfg.Log.Path == "" {
		cfg.Log.Path = cfg.DBPath + ".log"
	}

	for _, h := range cfg.ReminderHours {
		if h < 0 || h > 23 {
			return nil, fmt.Errorf("reminder hour %d out of range", h)
		}
	}
	return cfg, nil
}
