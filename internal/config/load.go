package config

import (
	"log/slog"
	"os"
	"strings"

	"github.com/goccy/go-yaml"
)

// Load reads a YAML config file at path. If the file does not exist, it
// logs and returns Default() rather than failing.
func Load(path string) (Config, error) {
	var cfg Config

	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			slog.Info("config file not found, using default config", "path", path)
			return Default(), nil
		}
		return cfg, err
	}

	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// NewLogger builds the process-wide slog.Logger per cfg.Logger and
// installs it via slog.SetDefault, so any package handed a nil logger
// still logs through it.
func NewLogger(cfg LoggerConfig) *slog.Logger {
	var handler slog.Handler
	opts := &slog.HandlerOptions{AddSource: true, Level: parseLevel(cfg.Level)}
	if cfg.JSON {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

func parseLevel(level string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
