package config

import (
	"fmt"
	"log/slog"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Default values for the server configuration.
const (
	DefaultHost          = "127.0.0.1"
	DefaultPort          = 6379
	DefaultMaxLineBytes  = 64 * 1024
	DefaultTTL           = 60 * time.Second
	DefaultSweepInterval = time.Second
	DefaultLogLevel      = "info"
)

// Config holds the settings parsed from the YAML config file.
type Config struct {
	Server ServerConfig `yaml:"server"`
	Store  StoreConfig  `yaml:"store"`
	Log    LogConfig    `yaml:"log"`
}

// ServerConfig holds listener settings. Changing them requires a restart.
type ServerConfig struct {
	// Host is the interface the line protocol listener binds to (default 127.0.0.1).
	Host string `yaml:"host"`

	// Port is the TCP port of the line protocol listener (default 6379).
	Port int `yaml:"port"`

	// HTTPPort serves the JSON API, /metrics and the WebSocket console.
	// Zero disables the HTTP listener.
	HTTPPort int `yaml:"http_port"`

	// GRPCPort serves the gRPC health service. Zero disables it.
	GRPCPort int `yaml:"grpc_port"`

	// MaxLineBytes caps the length of one request line.
	MaxLineBytes int `yaml:"max_line_bytes"`
}

// StoreConfig controls expiry. Both fields are applied live on reload.
type StoreConfig struct {
	// DefaultTTL applies to SET/UPDATE without a TTL and to RENAME targets.
	DefaultTTL time.Duration `yaml:"default_ttl"`

	// SweepInterval is how often the sweeper purges expired keys.
	SweepInterval time.Duration `yaml:"sweep_interval"`
}

// LogConfig controls logging.
type LogConfig struct {
	// Level is one of: debug | info | warn | error.
	Level string `yaml:"level"`
}

// Addr returns the line protocol listen address as host:port.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// SlogLevel maps Level to a slog.Level.
func (l LogConfig) SlogLevel() slog.Level {
	switch strings.ToLower(l.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return defaults()
}

// Load reads and parses the config file at path.
// Missing fields are filled with defaults before validation.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("server config: read %q: %w", path, err)
	}

	cfg := defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("server config: parse yaml: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("server config: %w", err)
	}

	return cfg, nil
}

// defaults returns a Config pre-populated with default values.
func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         DefaultHost,
			Port:         DefaultPort,
			MaxLineBytes: DefaultMaxLineBytes,
		},
		Store: StoreConfig{
			DefaultTTL:    DefaultTTL,
			SweepInterval: DefaultSweepInterval,
		},
		Log: LogConfig{Level: DefaultLogLevel},
	}
}

// Validate checks cfg after flag overrides have been applied.
func Validate(cfg *Config) error {
	return validate(cfg)
}

// validate checks structural constraints on the parsed configuration.
func validate(cfg *Config) error {
	if cfg.Server.Host == "" {
		return fmt.Errorf("server.host is required")
	}
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port %d is out of range [1, 65535]", cfg.Server.Port)
	}
	if cfg.Server.HTTPPort < 0 || cfg.Server.HTTPPort > 65535 {
		return fmt.Errorf("server.http_port %d is out of range [0, 65535]", cfg.Server.HTTPPort)
	}
	if cfg.Server.GRPCPort < 0 || cfg.Server.GRPCPort > 65535 {
		return fmt.Errorf("server.grpc_port %d is out of range [0, 65535]", cfg.Server.GRPCPort)
	}
	if cfg.Server.MaxLineBytes <= 0 {
		return fmt.Errorf("server.max_line_bytes must be positive")
	}
	if cfg.Store.DefaultTTL <= 0 {
		return fmt.Errorf("store.default_ttl must be positive")
	}
	if cfg.Store.SweepInterval <= 0 {
		return fmt.Errorf("store.sweep_interval must be positive")
	}
	switch strings.ToLower(cfg.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level %q unknown: want debug|info|warn|error", cfg.Log.Level)
	}
	return nil
}
