// Package config loads the server configuration from a YAML file, a .env file
// and RAILS_ environment variables, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. RAILS_SERVER_GRPC_ADDRESS.
const EnvPrefix = "RAILS"

// Config is the complete server configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Engine   EngineConfig   `mapstructure:"engine"`
}

// ServerConfig holds the listener settings.
type ServerConfig struct {
	GRPC            GRPCConfig    `mapstructure:"grpc"`
	HTTP            HTTPConfig    `mapstructure:"http"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// GRPCConfig configures the gRPC listener.
type GRPCConfig struct {
	Address              string        `mapstructure:"address"`
	MaxConcurrentStreams int           `mapstructure:"max_concurrent_streams"`
	KeepaliveTime        time.Duration `mapstructure:"keepalive_time"`
	KeepaliveTimeout     time.Duration `mapstructure:"keepalive_timeout"`
}

// HTTPConfig configures the HTTP and websocket listener.
type HTTPConfig struct {
	Address        string        `mapstructure:"address"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
}

// DatabaseConfig configures the PostgreSQL action log. An empty URL keeps the
// log in memory.
type DatabaseConfig struct {
	URL             string        `mapstructure:"url"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
	Migrate         bool          `mapstructure:"migrate"`
}

// LoggingConfig selects the zap logger.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// MetricsConfig toggles the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// EngineConfig tunes the game engine.
type EngineConfig struct {
	DefaultVariant string `mapstructure:"default_variant"`
	VariantDir     string `mapstructure:"variant_dir"`
	ReplayDir      string `mapstructure:"replay_dir"`
	StrictChecks   bool   `mapstructure:"strict_checks"`
	MaxGames       int    `mapstructure:"max_games"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.grpc.address", ":50051")
	v.SetDefault("server.grpc.max_concurrent_streams", 100)
	v.SetDefault("server.grpc.keepalive_time", 30*time.Second)
	v.SetDefault("server.grpc.keepalive_timeout", 10*time.Second)
	v.SetDefault("server.http.address", ":8080")
	v.SetDefault("server.http.read_timeout", 15*time.Second)
	v.SetDefault("server.http.request_timeout", 30*time.Second)
	v.SetDefault("server.http.allowed_origins", []string{})
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("database.url", "")
	v.SetDefault("database.max_conns", 20)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("database.max_conn_lifetime", 30*time.Minute)
	v.SetDefault("database.max_conn_idle_time", 10*time.Minute)
	v.SetDefault("database.migrate", true)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")

	v.SetDefault("engine.default_variant", "classic")
	v.SetDefault("engine.variant_dir", "")
	v.SetDefault("engine.replay_dir", "")
	v.SetDefault("engine.strict_checks", false)
	v.SetDefault("engine.max_games", 1000)
}

// Load reads the configuration. A .env file in the working directory is
// applied to the environment first; path may be empty to run on defaults and
// environment variables alone.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("config file %s: %w", path, err)
		}
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values that would only fail later at startup.
func (c *Config) Validate() error {
	if c.Server.GRPC.Address == "" && c.Server.HTTP.Address == "" {
		return fmt.Errorf("at least one of server.grpc.address and server.http.address is required")
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid logging.level %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("invalid logging.format %q", c.Logging.Format)
	}
	if c.Database.MinConns > c.Database.MaxConns {
		return fmt.Errorf("database.min_conns (%d) exceeds database.max_conns (%d)", c.Database.MinConns, c.Database.MaxConns)
	}
	if c.Engine.MaxGames < 0 {
		return fmt.Errorf("engine.max_games must not be negative")
	}
	return nil
}

// Persistent reports whether the action log goes to PostgreSQL.
func (c DatabaseConfig) Persistent() bool {
	return strings.TrimSpace(c.URL) != ""
}
