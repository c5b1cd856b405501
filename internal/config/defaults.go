package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultBaseURL           = "https://api.guildwars2.com"
	DefaultAPITimeout        = 30 * time.Second
	DefaultMaxRetries        = 3
	DefaultRetryDelay        = 1 * time.Second
	DefaultBatchSize         = 200
	DefaultParallelism       = 10
	DefaultPollInterval      = 30 * time.Second
	DefaultThresholdInterval = 60 * time.Second
	DefaultLogInterval       = 30 * time.Second
	DefaultGranularity       = 1 * time.Second
	DefaultBackend           = BackendMemory
	DefaultDBPort            = 5432
	DefaultDBSSLMode         = "prefer"
	DefaultMaxConns          = 10
	DefaultMinConns          = 2
	DefaultRedisAddr         = "localhost:6379"
	DefaultRedisKeyPrefix    = "tpwatch:"
	DefaultLogFile           = "new_items.log"
	DefaultItemLogFile       = "item_data.log"
	DefaultHealthPort        = 8080
	DefaultLogLevel          = "info"
	DefaultLogFormat         = "text"
)

// MaxBatchSize is the largest ids= list the GW2 API accepts.
const MaxBatchSize = 200

// ApplyDefaults fills every unset optional field.
func (c *Config) ApplyDefaults() {
	// API defaults
	if c.API.BaseURL == "" {
		c.API.BaseURL = DefaultBaseURL
	}
	if c.API.Timeout == 0 {
		c.API.Timeout = DefaultAPITimeout
	}
	if c.API.MaxRetries == 0 {
		c.API.MaxRetries = DefaultMaxRetries
	}
	if c.API.RetryDelay == 0 {
		c.API.RetryDelay = DefaultRetryDelay
	}
	if c.API.BatchSize == 0 {
		c.API.BatchSize = DefaultBatchSize
	}
	if c.API.Parallelism == 0 {
		c.API.Parallelism = DefaultParallelism
	}

	// Watcher defaults
	if c.Watcher.PollInterval == 0 {
		c.Watcher.PollInterval = DefaultPollInterval
	}
	if c.Watcher.ThresholdInterval == 0 {
		c.Watcher.ThresholdInterval = DefaultThresholdInterval
	}
	if c.Watcher.LogInterval == 0 {
		c.Watcher.LogInterval = DefaultLogInterval
	}
	if c.Watcher.Granularity == 0 {
		c.Watcher.Granularity = DefaultGranularity
	}

	// Store defaults
	if c.Store.Backend == "" {
		c.Store.Backend = DefaultBackend
	}
	applyDBDefaults(&c.Store.Postgres)
	if c.Store.Redis.Addr == "" {
		c.Store.Redis.Addr = DefaultRedisAddr
	}
	if c.Store.Redis.KeyPrefix == "" {
		c.Store.Redis.KeyPrefix = DefaultRedisKeyPrefix
	}

	// Notify defaults
	if c.Notify.LogFile == "" {
		c.Notify.LogFile = DefaultLogFile
	}
	if c.Notify.ItemLogFile == "" {
		c.Notify.ItemLogFile = DefaultItemLogFile
	}

	// Health defaults
	if c.Health.Port == 0 {
		c.Health.Port = DefaultHealthPort
	}

	// Logging defaults
	if c.Logging.Level == "" {
		c.Logging.Level = DefaultLogLevel
	}
	if c.Logging.Format == "" {
		c.Logging.Format = DefaultLogFormat
	}
}

func applyDBDefaults(db *DBConfig) {
	if db.Port == 0 {
		db.Port = DefaultDBPort
	}
	if db.SSLMode == "" {
		db.SSLMode = DefaultDBSSLMode
	}
	if db.MaxConns == 0 {
		db.MaxConns = DefaultMaxConns
	}
	if db.MinConns == 0 {
		db.MinConns = DefaultMinConns
	}
}
