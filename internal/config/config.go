// Package config holds the node-level configuration for a broker store
// node: logger setup, per-store actor tuning, and backend selection.
//
// Grounded on pkg/config/config.go's byte-for-byte pattern:
// yaml struct tags, decorative `validate` tags (never enforced by code
// in this module — validation stays a declared intent no validator
// library is wired against), and a Default() baseline a caller falls
// back to when no file exists.
package config

import "time"

// Config is the root configuration struct for a storenode process.
type Config struct {
	Logger LoggerConfig `yaml:"logger" validate:"required"`
	Server ServerConfig `yaml:"http-server" validate:"required"`
	Broker BrokerConfig `yaml:"broker" validate:"required"`
}

// LoggerConfig controls slog setup.
type LoggerConfig struct {
	Level string `yaml:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error"`
	JSON  bool   `yaml:"json"`
}

// ServerConfig covers the admin HTTP surface's listen port.
type ServerConfig struct {
	Port              int           `yaml:"port" validate:"required,min=1,max=65535"`
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout" validate:"required"`
}

// BrokerConfig groups the store subsystem's own settings.
type BrokerConfig struct {
	Store   StoreConfig   `yaml:"store" validate:"required"`
	Backend BackendConfig `yaml:"backend" validate:"required"`
}

// StoreConfig mirrors spec §6's configuration keys
// (broker.store.tick-interval, broker.store.request-timeout).
type StoreConfig struct {
	TickInterval   time.Duration `yaml:"tick-interval" validate:"required"`
	RequestTimeout time.Duration `yaml:"request-timeout" validate:"required"`
	BusBufferSize  int           `yaml:"bus-buffer-size" validate:"required,min=1"`
}

// BackendConfig selects and configures a pkg/backend implementation.
type BackendConfig struct {
	// Kind is "memory" or "sqlite".
	Kind string `yaml:"kind" validate:"required,oneof=memory sqlite"`
	// Path is the sqlite database file path; ignored for "memory".
	Path string `yaml:"path" validate:"required_if=Kind sqlite"`
}

// Default returns a baseline development config.
func Default() Config {
	return Config{
		Logger: LoggerConfig{
			Level: "INFO",
			JSON:  false,
		},
		Server: ServerConfig{
			Port:              8080,
			ReadHeaderTimeout: time.Second,
		},
		Broker: BrokerConfig{
			Store: StoreConfig{
				TickInterval:   time.Second,
				RequestTimeout: 10 * time.Second,
				BusBufferSize:  256,
			},
			Backend: BackendConfig{
				Kind: "memory",
				Path: "./data/store.db",
			},
		},
	}
}
