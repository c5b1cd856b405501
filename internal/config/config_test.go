package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	yaml := `
api:
  base_url: https://api.example.com
  batch_size: 50
watcher:
  poll_interval: 10s
store:
  backend: postgres
  postgres:
    host: localhost
    port: 5432
    name: tpwatch
    user: testuser
    password: testpass
`
	path := writeTempFile(t, yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.API.BaseURL != "https://api.example.com" {
		t.Errorf("API.BaseURL = %q, want %q", cfg.API.BaseURL, "https://api.example.com")
	}
	if cfg.API.BatchSize != 50 {
		t.Errorf("API.BatchSize = %d, want 50", cfg.API.BatchSize)
	}
	if cfg.Watcher.PollInterval != 10*time.Second {
		t.Errorf("Watcher.PollInterval = %v, want 10s", cfg.Watcher.PollInterval)
	}
	if cfg.Store.Postgres.Host != "localhost" {
		t.Errorf("Store.Postgres.Host = %q, want %q", cfg.Store.Postgres.Host, "localhost")
	}
}

func TestLoadWithEnvSubstitution(t *testing.T) {
	t.Setenv("TEST_DB_PASSWORD", "secret123")

	yaml := `
store:
  backend: postgres
  postgres:
    host: localhost
    name: tpwatch
    user: testuser
    password: ${TEST_DB_PASSWORD}
`
	path := writeTempFile(t, yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Store.Postgres.Password != "secret123" {
		t.Errorf("Store.Postgres.Password = %q, want %q", cfg.Store.Postgres.Password, "secret123")
	}
}

func TestLoadNotifyWebSocket(t *testing.T) {
	t.Setenv("TEST_RELAY_KEY", "relay-secret")

	yaml := `
notify:
  websocket_url: wss://relay.example.com/notify
  websocket_api_key: ${TEST_RELAY_KEY}
`
	cfg, err := LoadAndValidate(writeTempFile(t, yaml))
	if err != nil {
		t.Fatalf("LoadAndValidate failed: %v", err)
	}
	if cfg.Notify.WebSocketURL != "wss://relay.example.com/notify" {
		t.Errorf("Notify.WebSocketURL = %q", cfg.Notify.WebSocketURL)
	}
	if cfg.Notify.WebSocketAPIKey != "relay-secret" {
		t.Errorf("Notify.WebSocketAPIKey = %q, want %q", cfg.Notify.WebSocketAPIKey, "relay-secret")
	}
}

func TestLoadWithDotEnv(t *testing.T) {
	const key = "TPWATCH_CONFIG_TEST_API_KEY"
	t.Cleanup(func() { os.Unsetenv(key) })

	path := writeTempFile(t, "api:\n  api_key: ${"+key+"}\n")
	envPath := filepath.Join(filepath.Dir(path), ".env")
	if err := os.WriteFile(envPath, []byte(key+"=from-dotenv\n"), 0644); err != nil {
		t.Fatalf("write .env: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.API.APIKey != "from-dotenv" {
		t.Errorf("API.APIKey = %q, want %q", cfg.API.APIKey, "from-dotenv")
	}
}

func TestLoadDotEnvDoesNotOverride(t *testing.T) {
	const key = "TPWATCH_CONFIG_TEST_OVERRIDE"
	t.Setenv(key, "from-env")

	envPath := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(envPath, []byte(key+"=from-dotenv\n"), 0644); err != nil {
		t.Fatalf("write .env: %v", err)
	}

	if err := LoadDotEnv(envPath, filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Fatalf("LoadDotEnv failed: %v", err)
	}
	if got := os.Getenv(key); got != "from-env" {
		t.Errorf("%s = %q, want %q", key, got, "from-env")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	path := writeTempFile(t, "api: [unclosed")
	if _, err := Load(path); err == nil {
		t.Error("expected error for invalid yaml")
	}
}

func TestLoadWithDefaults(t *testing.T) {
	path := writeTempFile(t, "api:\n  api_key: abc\n")

	cfg, err := LoadWithDefaults(path)
	if err != nil {
		t.Fatalf("LoadWithDefaults failed: %v", err)
	}

	// Check defaults were applied
	if cfg.API.BaseURL != DefaultBaseURL {
		t.Errorf("API.BaseURL = %q, want default %q", cfg.API.BaseURL, DefaultBaseURL)
	}
	if cfg.API.BatchSize != DefaultBatchSize {
		t.Errorf("API.BatchSize = %d, want default %d", cfg.API.BatchSize, DefaultBatchSize)
	}
	if cfg.API.RetryDelay != DefaultRetryDelay {
		t.Errorf("API.RetryDelay = %v, want default %v", cfg.API.RetryDelay, DefaultRetryDelay)
	}
	if cfg.Watcher.PollInterval != DefaultPollInterval {
		t.Errorf("Watcher.PollInterval = %v, want default %v", cfg.Watcher.PollInterval, DefaultPollInterval)
	}
	if cfg.Store.Backend != BackendMemory {
		t.Errorf("Store.Backend = %q, want default %q", cfg.Store.Backend, BackendMemory)
	}
	if cfg.Store.Postgres.Port != DefaultDBPort {
		t.Errorf("Store.Postgres.Port = %d, want default %d", cfg.Store.Postgres.Port, DefaultDBPort)
	}
	if cfg.Store.Redis.KeyPrefix != DefaultRedisKeyPrefix {
		t.Errorf("Store.Redis.KeyPrefix = %q, want default %q", cfg.Store.Redis.KeyPrefix, DefaultRedisKeyPrefix)
	}
	if cfg.Notify.LogFile != DefaultLogFile {
		t.Errorf("Notify.LogFile = %q, want default %q", cfg.Notify.LogFile, DefaultLogFile)
	}
	if cfg.Notify.ItemLogFile != DefaultItemLogFile {
		t.Errorf("Notify.ItemLogFile = %q, want default %q", cfg.Notify.ItemLogFile, DefaultItemLogFile)
	}
	if cfg.Watcher.LogInterval != DefaultLogInterval {
		t.Errorf("Watcher.LogInterval = %v, want default %v", cfg.Watcher.LogInterval, DefaultLogInterval)
	}
	if cfg.Health.Port != DefaultHealthPort {
		t.Errorf("Health.Port = %d, want default %d", cfg.Health.Port, DefaultHealthPort)
	}
}

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Errorf("Default().Validate() = %v", err)
	}
}

func TestLoadAndValidate(t *testing.T) {
	path := writeTempFile(t, "store:\n  backend: postgres\n")
	if _, err := LoadAndValidate(path); err == nil {
		t.Error("expected validation error for postgres backend without host")
	}
}

func TestValidate(t *testing.T) {
	valid := func(mutate func(*Config)) Config {
		cfg := Default()
		mutate(cfg)
		return *cfg
	}

	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{
			name:    "relative base url",
			cfg:     valid(func(c *Config) { c.API.BaseURL = "api.guildwars2.com" }),
			wantErr: `api.base_url must be an absolute url, got "api.guildwars2.com"`,
		},
		{
			name:    "batch size over limit",
			cfg:     valid(func(c *Config) { c.API.BatchSize = 201 }),
			wantErr: "api.batch_size must be between 1 and 200, got 201",
		},
		{
			name:    "negative retries",
			cfg:     valid(func(c *Config) { c.API.MaxRetries = -1 }),
			wantErr: "api.max_retries must be >= 0",
		},
		{
			name:    "negative poll interval",
			cfg:     valid(func(c *Config) { c.Watcher.PollInterval = -time.Second }),
			wantErr: "watcher.poll_interval must be positive",
		},
		{
			name:    "unknown backend",
			cfg:     valid(func(c *Config) { c.Store.Backend = "sqlite" }),
			wantErr: `store.backend must be one of memory, postgres, redis, got "sqlite"`,
		},
		{
			name: "missing postgres password",
			cfg: valid(func(c *Config) {
				c.Store.Backend = BackendPostgres
				c.Store.Postgres = DBConfig{Host: "localhost", Name: "db", User: "user", MaxConns: 5}
			}),
			wantErr: "store.postgres.password is required",
		},
		{
			name: "min_conns exceeds max_conns",
			cfg: valid(func(c *Config) {
				c.Store.Backend = BackendPostgres
				c.Store.Postgres = DBConfig{Host: "localhost", Name: "db", User: "user", Password: "pass", MaxConns: 5, MinConns: 10}
			}),
			wantErr: "store.postgres.min_conns (10) cannot exceed max_conns (5)",
		},
		{
			name: "missing redis addr",
			cfg: valid(func(c *Config) {
				c.Store.Backend = BackendRedis
				c.Store.Redis.Addr = ""
			}),
			wantErr: "store.redis.addr is required",
		},
		{
			name:    "http websocket url",
			cfg:     valid(func(c *Config) { c.Notify.WebSocketURL = "http://relay.example.com/notify" }),
			wantErr: `notify.websocket_url must be a ws:// or wss:// url, got "http://relay.example.com/notify"`,
		},
		{
			name:    "zero log interval",
			cfg:     valid(func(c *Config) { c.Watcher.LogInterval = 0 }),
			wantErr: "watcher.log_interval must be positive",
		},
		{
			name:    "valid websocket url",
			cfg:     valid(func(c *Config) { c.Notify.WebSocketURL = "wss://relay.example.com/notify" }),
			wantErr: "",
		},
		{
			name:    "bad health port",
			cfg:     valid(func(c *Config) { c.Health.Port = 70000 }),
			wantErr: "health.port must be between 1 and 65535, got 70000",
		},
		{
			name:    "bad log level",
			cfg:     valid(func(c *Config) { c.Logging.Level = "verbose" }),
			wantErr: `logging.level must be one of debug, info, warn, error, got "verbose"`,
		},
		{
			name:    "bad log format",
			cfg:     valid(func(c *Config) { c.Logging.Format = "xml" }),
			wantErr: `logging.format must be text or json, got "xml"`,
		},
		{
			name: "valid postgres config",
			cfg: valid(func(c *Config) {
				c.Store.Backend = BackendPostgres
				c.Store.Postgres = DBConfig{Host: "localhost", Name: "db", User: "user", Password: "pass", MaxConns: 10, MinConns: 2}
			}),
			wantErr: "",
		},
		{
			name:    "valid redis config",
			cfg:     valid(func(c *Config) { c.Store.Backend = BackendRedis }),
			wantErr: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() unexpected error: %v", err)
				}
			} else {
				if err == nil {
					t.Errorf("Validate() expected error containing %q, got nil", tt.wantErr)
				} else if err.Error() != tt.wantErr {
					t.Errorf("Validate() error = %q, want %q", err.Error(), tt.wantErr)
				}
			}
		})
	}
}

func writeTempFile(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	return path
}
