package connector

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Drivers shipped with the connector.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMySQL    = "mysql"
)

// Config represents database connection configuration.
type Config struct {
	Driver   string            `json:"driver" yaml:"driver"`
	Dialect  string            `json:"dialect,omitempty" yaml:"dialect,omitempty"`
	Host     string            `json:"host" yaml:"host"`
	Port     int               `json:"port" yaml:"port"`
	Database string            `json:"database" yaml:"database"`
	Username string            `json:"username" yaml:"username"`
	Password string            `json:"password" yaml:"password"`
	SSLMode  string            `json:"ssl_mode" yaml:"ssl_mode"`
	Path     string            `json:"path" yaml:"path"`
	Params   map[string]string `json:"params" yaml:"params"`
	Pool     PoolConfig        `json:"pool" yaml:"pool"`

	ConnectTimeout     time.Duration `json:"connect_timeout" yaml:"connect_timeout"`
	SlowQueryThreshold time.Duration `json:"slow_query_threshold" yaml:"slow_query_threshold"`
	StatementCacheSize int           `json:"statement_cache_size" yaml:"statement_cache_size"`

	Retry *RetryConfig `json:"retry,omitempty" yaml:"retry,omitempty"`
	Log   LogConfig    `json:"log" yaml:"log"`
}

// PoolConfig defines connection pool settings.
type PoolConfig struct {
	MaxOpen     int           `json:"max_open" yaml:"max_open"`
	MaxIdle     int           `json:"max_idle" yaml:"max_idle"`
	MaxLifetime time.Duration `json:"max_lifetime" yaml:"max_lifetime"`
	MaxIdleTime time.Duration `json:"max_idle_time" yaml:"max_idle_time"`
}

// RetryConfig defines connection retry behavior.
type RetryConfig struct {
	MaxRetries int           `json:"max_retries" yaml:"max_retries"`
	BaseDelay  time.Duration `json:"base_delay" yaml:"base_delay"`
	MaxDelay   time.Duration `json:"max_delay" yaml:"max_delay"`
	Backoff    float64       `json:"backoff" yaml:"backoff"`
}

// LoadConfig reads a YAML configuration file.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig decodes a YAML configuration and validates it.
func ParseConfig(data []byte) (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// withDefaults fills in the conventional port of networked drivers and pool
// sizes.
func (c Config) withDefaults() Config {
	if c.Port == 0 {
		switch c.Driver {
		case DriverPostgres:
			c.Port = 5432
		case DriverMySQL:
			c.Port = 3306
		}
	}
	if c.Pool.MaxOpen <= 0 {
		c.Pool.MaxOpen = 10
	}
	if c.Pool.MaxIdle <= 0 {
		c.Pool.MaxIdle = 5
	}
	if c.Pool.MaxLifetime == 0 {
		c.Pool.MaxLifetime = time.Hour
	}
	if c.Pool.MaxIdleTime == 0 {
		c.Pool.MaxIdleTime = 30 * time.Minute
	}
	return c
}

// Validate checks that the configuration names a driver and enough to reach
// it.
func (c Config) Validate() error {
	switch c.Driver {
	case DriverPostgres, DriverMySQL:
		if c.Host == "" {
			return fmt.Errorf("%s: host is required", c.Driver)
		}
		if c.Port <= 0 || c.Port > 65535 {
			return fmt.Errorf("%s: invalid port: %d", c.Driver, c.Port)
		}
	case DriverSQLite:
		if c.Path == "" {
			return fmt.Errorf("sqlite: path is required")
		}
	case "":
		return fmt.Errorf("driver is required")
	default:
		if _, ok := lookup(c.Driver); !ok {
			return fmt.Errorf("unknown driver: %s", c.Driver)
		}
	}
	if c.Retry != nil && c.Retry.MaxRetries < 0 {
		return fmt.Errorf("invalid max_retries: %d", c.Retry.MaxRetries)
	}
	if c.StatementCacheSize < 0 {
		return fmt.Errorf("invalid statement_cache_size: %d", c.StatementCacheSize)
	}
	return nil
}

// DialectName returns the configured dialect, or the one matching the driver.
func (c Config) DialectName() string {
	if c.Dialect != "" {
		return c.Dialect
	}
	return c.Driver
}
