package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	// RoutingPolicyStrict rejects requests for unknown or disabled chains.
	RoutingPolicyStrict = "strict"
	// RoutingPolicyLenient falls back to the default provider with a warning.
	RoutingPolicyLenient = "lenient"
)

type Config struct {
	Server     ServerConfig              `yaml:"server"`
	Database   DatabaseConfig            `yaml:"database"`
	Security   SecurityConfig            `yaml:"security"`
	Routing    RoutingConfig             `yaml:"routing"`
	Chains     []ChainConfig             `yaml:"chains"`
	Providers  map[string]ProviderConfig `yaml:"providers"`
	Cache      CacheConfig               `yaml:"cache"`
	Withdrawal WithdrawalConfig          `yaml:"withdrawal"`
	Poller     PollerConfig              `yaml:"poller"`
	WebSocket  WebSocketConfig           `yaml:"websocket"`
}

type ServerConfig struct {
	Host        string `yaml:"host"`
	Port        string `yaml:"port"`
	Environment string `yaml:"environment"`
}

type DatabaseConfig struct {
	Host            string `yaml:"host"`
	Port            string `yaml:"port"`
	User            string `yaml:"user"`
	DBName          string `yaml:"name"`
	Password        string `yaml:"password"`
	SSLMode         string `yaml:"ssl_mode"`
	MaxOpenConns    int    `yaml:"max_open_conns"`
	MaxIdleConns    int    `yaml:"max_idle_conns"`
	ConnMaxLifetime string `yaml:"conn_max_lifetime"`
}

type SecurityConfig struct {
	APIKey string `yaml:"api_key"`
}

type RoutingConfig struct {
	Policy          string `yaml:"policy"`
	DefaultProvider string `yaml:"default_provider"`
}

// ChainConfig is one entry of the static routing table. Table order is
// significant: the first enabled entry for a chain id wins.
type ChainConfig struct {
	ChainID  string   `yaml:"chain_id"`
	Name     string   `yaml:"name"`
	Provider string   `yaml:"provider"`
	Enabled  bool     `yaml:"enabled"`
	Tokens   []string `yaml:"tokens"`
}

// ProviderConfig is constructed once at startup and read-only thereafter.
type ProviderConfig struct {
	Name         string        `yaml:"-"`
	BaseURL      string        `yaml:"base_url"`
	APIKey       string        `yaml:"api_key"`
	WebhookToken string        `yaml:"webhook_token"`
	Timeout      time.Duration `yaml:"timeout"`
	Enabled      bool          `yaml:"enabled"`
}

type CacheConfig struct {
	StaleThreshold time.Duration `yaml:"stale_threshold"`
}

type WithdrawalConfig struct {
	BaseURL          string        `yaml:"base_url"`
	APIKey           string        `yaml:"api_key"`
	Timeout          time.Duration `yaml:"timeout"`
	ChainID          string        `yaml:"chain_id"`
	Currency         string        `yaml:"currency"`
	Provider         string        `yaml:"provider"`
	MaxRetries       int           `yaml:"max_retries"`
	RetryBackoffBase time.Duration `yaml:"retry_backoff_base"`
}

type PollerConfig struct {
	Enabled   bool          `yaml:"enabled"`
	Interval  time.Duration `yaml:"interval"`
	Workers   int           `yaml:"concurrent_workers"`
	BatchSize int           `yaml:"batch_size"`
}

type WebSocketConfig struct {
	ReadBufferSize  int  `yaml:"read_buffer_size"`
	WriteBufferSize int  `yaml:"write_buffer_size"`
	CheckOrigin     bool `yaml:"check_origin"`
}

func Load() (*Config, error) {
	// .env is optional outside local development.
	_ = godotenv.Load()

	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "./config.yaml"
	}

	configData, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	// Secrets are referenced as ${VAR} in the config file.
	configData = []byte(os.ExpandEnv(string(configData)))

	var config Config
	if err := yaml.Unmarshal(configData, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	config.applyDefaults()

	for name, provider := range config.Providers {
		provider.Name = name
		config.Providers[name] = provider
	}

	return &config, nil
}

func (c *Config) applyDefaults() {
	if c.Routing.Policy == "" {
		c.Routing.Policy = RoutingPolicyStrict
	}
	if c.Cache.StaleThreshold == 0 {
		c.Cache.StaleThreshold = 15 * time.Minute
	}
	if c.Withdrawal.MaxRetries == 0 {
		c.Withdrawal.MaxRetries = 3
	}
	if c.Withdrawal.RetryBackoffBase == 0 {
		c.Withdrawal.RetryBackoffBase = time.Second
	}
	if c.Withdrawal.Timeout == 0 {
		c.Withdrawal.Timeout = 30 * time.Second
	}
	if c.Poller.Interval == 0 {
		c.Poller.Interval = 5 * time.Minute
	}
	if c.Poller.Workers == 0 {
		c.Poller.Workers = 10
	}
	if c.Poller.BatchSize == 0 {
		c.Poller.BatchSize = 100
	}
	for name, provider := range c.Providers {
		if provider.Timeout == 0 {
			provider.Timeout = 30 * time.Second
			c.Providers[name] = provider
		}
	}
}
