package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults mirror the reconnection behavior the original client pinned:
// ten attempts with growing backoff, ten second dial timeout.
const (
	DefaultAPIURL            = "http://localhost:5000"
	DefaultSocketURL         = "ws://localhost:5000/socket"
	DefaultRequestTimeout    = 10 * time.Second
	DefaultDialTimeout       = 10 * time.Second
	DefaultMaxReconnects     = 10
	DefaultInitialBackoff    = 500 * time.Millisecond
	DefaultMaxBackoff        = 30 * time.Second
	DefaultNotificationTTL   = 3 * time.Second
	DefaultLiveUpdateHistory = 5
)

// Duration is a time.Duration that unmarshals from YAML strings like "5s".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err == nil {
		parsed, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", s, err)
		}
		*d = Duration(parsed)
		return nil
	}

	var n int64
	if err := value.Decode(&n); err != nil {
		return fmt.Errorf("invalid duration value %q", value.Value)
	}
	*d = Duration(time.Duration(n))
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Std returns the plain time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Reconnect holds the channel reconnection policy.
type Reconnect struct {
	MaxAttempts    int      `yaml:"max_attempts"`
	InitialBackoff Duration `yaml:"initial_backoff"`
	MaxBackoff     Duration `yaml:"max_backoff"`
}

// Config holds the full client configuration.
type Config struct {
	APIURL         string    `yaml:"api_url"`
	SocketURL      string    `yaml:"socket_url"`
	AuthToken      string    `yaml:"auth_token"`
	DataDir        string    `yaml:"data_dir"`
	RequestTimeout Duration  `yaml:"request_timeout"`
	DialTimeout    Duration  `yaml:"dial_timeout"`
	Reconnect      Reconnect `yaml:"reconnect"`
	LogLevel       string    `yaml:"log_level"`
	LogJSON        bool      `yaml:"log_json"`
}

// Default returns a config populated with defaults.
func Default() *Config {
	return &Config{
		APIURL:         DefaultAPIURL,
		SocketURL:      DefaultSocketURL,
		DataDir:        defaultDataDir(),
		RequestTimeout: Duration(DefaultRequestTimeout),
		DialTimeout:    Duration(DefaultDialTimeout),
		Reconnect: Reconnect{
			MaxAttempts:    DefaultMaxReconnects,
			InitialBackoff: Duration(DefaultInitialBackoff),
			MaxBackoff:     Duration(DefaultMaxBackoff),
		},
		LogLevel: "info",
	}
}

// Load reads configuration from the given YAML file, then applies
// environment overrides. A missing file is not an error; defaults are used.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		} else {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overrides fields from POLLSYNC_* environment variables.
func (c *Config) applyEnv() {
	if v := os.Getenv("POLLSYNC_API_URL"); v != "" {
		c.APIURL = v
	}
	if v := os.Getenv("POLLSYNC_SOCKET_URL"); v != "" {
		c.SocketURL = v
	}
	if v := os.Getenv("POLLSYNC_TOKEN"); v != "" {
		c.AuthToken = v
	}
	if v := os.Getenv("POLLSYNC_DATA_DIR"); v != "" {
		c.DataDir = v
	}
	if v := os.Getenv("POLLSYNC_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("POLLSYNC_MAX_RECONNECTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Reconnect.MaxAttempts = n
		}
	}
}

// Validate checks the configuration for obvious mistakes and repairs zero
// durations so no caller ever sees an unbounded timeout.
func (c *Config) Validate() error {
	if c.APIURL == "" {
		return fmt.Errorf("api_url must not be empty")
	}
	if c.SocketURL == "" {
		return fmt.Errorf("socket_url must not be empty")
	}
	if c.Reconnect.MaxAttempts < 0 {
		return fmt.Errorf("reconnect.max_attempts must not be negative")
	}
	if c.Reconnect.InitialBackoff <= 0 {
		c.Reconnect.InitialBackoff = Duration(DefaultInitialBackoff)
	}
	if c.Reconnect.MaxBackoff < c.Reconnect.InitialBackoff {
		c.Reconnect.MaxBackoff = Duration(DefaultMaxBackoff)
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = Duration(DefaultRequestTimeout)
	}
	if c.DialTimeout <= 0 {
		c.DialTimeout = Duration(DefaultDialTimeout)
	}
	return nil
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".pollsync"
	}
	return home + "/.pollsync"
}
