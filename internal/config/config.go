package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"
)

// Config application configuration structure. Loaded once at startup and
// passed by value into the components that need it.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	NATS     NATSConfig     `yaml:"nats"`
	Callback CallbackConfig `yaml:"callback"`
	Orders   OrdersConfig   `yaml:"orders"`
	Tasks    TasksConfig    `yaml:"tasks"`
	Chains   ChainsConfig   `yaml:"chains"`
	Ops      OpsConfig      `yaml:"ops"`
}

// ChainsConfig per-chain node endpoints
type ChainsConfig struct {
	Ethereum ChainNodeConfig `yaml:"ethereum"`
	Tron     ChainNodeConfig `yaml:"tron"`
	Solana   ChainNodeConfig `yaml:"solana"`
}

// ChainNodeConfig one chain's node access configuration
type ChainNodeConfig struct {
	RPCURL         string `yaml:"rpc_url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// ServerConfig server configuration
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// DatabaseConfig Database configuration
type DatabaseConfig struct {
	DSN          string `yaml:"dsn"`
	MaxOpenConns int    `yaml:"max_open_conns"`
	MaxIdleConns int    `yaml:"max_idle_conns"`
}

// NATSConfig NATS message server configuration
type NATSConfig struct {
	URL           string `yaml:"url"`
	Timeout       int    `yaml:"timeout"`
	ReconnectWait int    `yaml:"reconnect_wait"`
	MaxReconnects int    `yaml:"max_reconnects"`
}

// CallbackConfig merchant webhook delivery configuration
type CallbackConfig struct {
	HTTPTimeoutSeconds int `yaml:"http_timeout_seconds"` // per-delivery timeout, default 30
	DefaultMaxRetries  int `yaml:"default_max_retries"`  // per-merchant fallback, default 3
}

// OrdersConfig order lifecycle configuration
type OrdersConfig struct {
	DepositExpirySeconds int `yaml:"deposit_expiry_seconds"` // default 1800
	AuthWindowMillis     int `yaml:"auth_window_millis"`     // signed-request timestamp window, default 300000
}

// TasksConfig background task queue configuration
type TasksConfig struct {
	Workers      int `yaml:"workers"`       // concurrent task executors, default 4
	PollSeconds  int `yaml:"poll_seconds"`  // claim loop interval, default 5
	ClaimBatch   int `yaml:"claim_batch"`   // tasks claimed per poll, default 50
	StuckMinutes int `yaml:"stuck_minutes"` // processing rows older than this are recovered, default 10
}

// OpsConfig operator API access configuration. PasswordHash is a bcrypt
// hash; TOTPSecret arms the second factor for sensitive operations.
type OpsConfig struct {
	JWTSecret       string `yaml:"jwt_secret"`
	Username        string `yaml:"username"`
	PasswordHash    string `yaml:"password_hash"`
	TOTPSecret      string `yaml:"totp_secret"`
	TokenTTLMinutes int    `yaml:"token_ttl_minutes"`
}

// Load reads the yaml configuration file, applies environment overrides
// and fills defaults. An empty path falls back to config.yaml, preferring
// config.local.yaml when present.
func Load(configPath string) (Config, error) {
	if configPath == "" {
		configPath = "config.yaml"
		if _, err := os.Stat("config.local.yaml"); err == nil {
			configPath = "config.local.yaml"
			log.Printf("🔧 Using local configuration file: config.local.yaml")
		}
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return Config{}, err
	}

	fmt.Printf("✅ [%s] Loaded configuration from %s\n", time.Now().Format("2006-01-02 15:04:05"), configPath)
	return cfg, nil
}

func overrideFromEnv(cfg *Config) {
	if dsn := os.Getenv("DATABASE_DSN"); dsn != "" {
		cfg.Database.DSN = dsn
	}

	if host := os.Getenv("SERVER_HOST"); host != "" {
		cfg.Server.Host = host
	}
	if port := os.Getenv("SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Server.Port = p
		}
	}

	if natsURL := os.Getenv("NATS_URL"); natsURL != "" {
		cfg.NATS.URL = natsURL
	}
	if natsTimeout := os.Getenv("NATS_TIMEOUT"); natsTimeout != "" {
		if t, err := strconv.Atoi(natsTimeout); err == nil {
			cfg.NATS.Timeout = t
		}
	}

	if secret := os.Getenv("OPS_JWT_SECRET"); secret != "" {
		cfg.Ops.JWTSecret = secret
	}
	if v := os.Getenv("CALLBACK_HTTP_TIMEOUT_SECONDS"); v != "" {
		if t, err := strconv.Atoi(v); err == nil {
			cfg.Callback.HTTPTimeoutSeconds = t
		}
	}
	if v := os.Getenv("DEPOSIT_EXPIRY_SECONDS"); v != "" {
		if t, err := strconv.Atoi(v); err == nil {
			cfg.Orders.DepositExpirySeconds = t
		}
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Callback.HTTPTimeoutSeconds == 0 {
		cfg.Callback.HTTPTimeoutSeconds = 30
	}
	if cfg.Callback.DefaultMaxRetries == 0 {
		cfg.Callback.DefaultMaxRetries = 3
	}
	if cfg.Orders.DepositExpirySeconds == 0 {
		cfg.Orders.DepositExpirySeconds = 1800
	}
	if cfg.Orders.AuthWindowMillis == 0 {
		cfg.Orders.AuthWindowMillis = 300000
	}
	if cfg.Tasks.Workers == 0 {
		cfg.Tasks.Workers = 4
	}
	if cfg.Tasks.PollSeconds == 0 {
		cfg.Tasks.PollSeconds = 5
	}
	if cfg.Tasks.ClaimBatch == 0 {
		cfg.Tasks.ClaimBatch = 50
	}
	if cfg.Tasks.StuckMinutes == 0 {
		cfg.Tasks.StuckMinutes = 10
	}
	if cfg.Ops.TokenTTLMinutes == 0 {
		cfg.Ops.TokenTTLMinutes = 60
	}
}

// CallbackHTTPTimeout returns the webhook delivery timeout as a duration.
func (c Config) CallbackHTTPTimeout() time.Duration {
	return time.Duration(c.Callback.HTTPTimeoutSeconds) * time.Second
}

// DepositExpiry returns the default deposit order lifetime.
func (c Config) DepositExpiry() time.Duration {
	return time.Duration(c.Orders.DepositExpirySeconds) * time.Second
}

// AuthWindow returns the accepted clock skew for signed requests.
func (c Config) AuthWindow() time.Duration {
	return time.Duration(c.Orders.AuthWindowMillis) * time.Millisecond
}
