package config

import "time"

// Config is the root configuration for a tpwatch process.
type Config struct {
	API     APIConfig     `yaml:"api"`
	Watcher WatcherConfig `yaml:"watcher"`
	Store   StoreConfig   `yaml:"store"`
	Notify  NotifyConfig  `yaml:"notify"`
	Health  HealthConfig  `yaml:"health"`
	Logging LoggingConfig `yaml:"logging"`
}

// APIConfig holds GW2 API settings.
type APIConfig struct {
	BaseURL     string        `yaml:"base_url"`
	APIKey      string        `yaml:"api_key"` // Optional; public endpoints need none
	Timeout     time.Duration `yaml:"timeout"`
	MaxRetries  int           `yaml:"max_retries"`
	RetryDelay  time.Duration `yaml:"retry_delay"`
	BatchSize   int           `yaml:"batch_size"`  // IDs per request, at most 200
	Parallelism int           `yaml:"parallelism"` // Batch requests in flight
}

// WatcherConfig holds poller scheduling settings.
type WatcherConfig struct {
	PollInterval      time.Duration `yaml:"poll_interval"`
	ThresholdInterval time.Duration `yaml:"threshold_interval"` // Poll interval for subscriber thresholds
	LogInterval       time.Duration `yaml:"log_interval"`       // Listing stats interval for -log-items
	Granularity       time.Duration `yaml:"granularity"`
}

// Store backends.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

// StoreConfig selects and configures the subscription store.
type StoreConfig struct {
	Backend  string      `yaml:"backend"`
	Postgres DBConfig    `yaml:"postgres"`
	Redis    RedisConfig `yaml:"redis"`
}

// DBConfig holds a single database connection.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// RedisConfig holds a Redis connection.
type RedisConfig struct {
	Addr      string `yaml:"addr"`
	Password  string `yaml:"password"`
	DB        int    `yaml:"db"`
	KeyPrefix string `yaml:"key_prefix"`
}

// NotifyConfig holds notification sink settings.
type NotifyConfig struct {
	LogFile         string `yaml:"log_file"`          // JSON-lines log used in alert mode
	ItemLogFile     string `yaml:"item_log_file"`     // JSON-lines log of listing stats for -log-items
	WebSocketURL    string `yaml:"websocket_url"`     // Optional push endpoint
	WebSocketAPIKey string `yaml:"websocket_api_key"` // Bearer token for the push endpoint
}

// HealthConfig holds the health endpoint settings.
type HealthConfig struct {
	Port int `yaml:"port"`
}

// LoggingConfig holds slog handler settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
}
