// Package config defines the top-level configuration for the market watcher
// and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by MARKETWATCH_* environment variables.
type Config struct {
	ESI        ESIConfig         `toml:"esi"`
	SSO        SSOConfig         `toml:"sso"`
	Postgres   PostgresConfig    `toml:"postgres"`
	Redis      RedisConfig       `toml:"redis"`
	S3         S3Config          `toml:"s3"`
	Collector  CollectorConfig   `toml:"collector"`
	Server     ServerConfig      `toml:"server"`
	Notify     NotifyConfig      `toml:"notify"`
	Structures []StructureConfig `toml:"structures"`
	LogLevel   string            `toml:"log_level"`
}

// ESIConfig holds the market API endpoint parameters.
type ESIConfig struct {
	BaseURL     string   `toml:"base_url"`
	Timeout     duration `toml:"timeout"`
	Concurrency int      `toml:"concurrency"`
}

// SSOConfig holds the OAuth application credentials plus one refresh token
// per character that grants structure-market access.
type SSOConfig struct {
	TokenURL     string            `toml:"token_url"`
	ClientID     string            `toml:"client_id"`
	ClientSecret string            `toml:"client_secret"`
	Characters   []CharacterConfig `toml:"characters"`
}

// CharacterConfig is one character's stored refresh token.
type CharacterConfig struct {
	CharacterID  int64  `toml:"character_id"`
	RefreshToken string `toml:"refresh_token"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters. Redis is optional; when
// disabled the collector falls back to process-local locking and summaries
// are computed per request.
type RedisConfig struct {
	Enabled    bool   `toml:"enabled"`
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// S3Config holds S3-compatible object storage parameters for snapshot
// archival. Optional; when disabled raw snapshots are not archived.
type S3Config struct {
	Enabled        bool   `toml:"enabled"`
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// CollectorConfig holds pass-level tunables shared by all structures.
type CollectorConfig struct {
	CommitTimeout duration `toml:"commit_timeout"`
	LockTTL       duration `toml:"lock_ttl"`
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Enabled     bool     `toml:"enabled"`
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
	APIKey      string   `toml:"api_key"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string `toml:"telegram_token"`
	TelegramChatID    string `toml:"telegram_chat_id"`
	DiscordWebhookURL string `toml:"discord_webhook_url"`
}

// StructureConfig describes one watched structure.
type StructureConfig struct {
	StructureID  int64    `toml:"structure_id"`
	CharacterID  int64    `toml:"character_id"`
	PollInterval duration `toml:"poll_interval"`
	// ExpiryWindowMinutes is the symmetric tolerance, in minutes, used when
	// deciding whether a disappeared order plausibly reached its natural
	// expiry between two observations.
	ExpiryWindowMinutes int `toml:"expiry_window_minutes"`
}

// ExpiryWindow returns the expiry tolerance as a duration.
func (s StructureConfig) ExpiryWindow() time.Duration {
	return time.Duration(s.ExpiryWindowMinutes) * time.Minute
}

// duration is a wrapper around time.Duration that supports TOML string decoding
// (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with reasonable default values.
// These match the values in config.example.toml.
func Defaults() Config {
	return Config{
		ESI: ESIConfig{
			BaseURL:     "https://esi.evetech.net/latest",
			Timeout:     duration{30 * time.Second},
			Concurrency: 8,
		},
		SSO: SSOConfig{
			TokenURL: "https://login.eveonline.com/v2/oauth/token",
		},
		Postgres: PostgresConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "marketwatch",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Enabled:    false,
			Addr:       "localhost:6379",
			DB:         0,
			PoolSize:   20,
			MaxRetries: 3,
			TLSEnabled: false,
		},
		S3: S3Config{
			Enabled:        false,
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "marketwatch-snapshots",
			UseSSL:         false,
			ForcePathStyle: true,
		},
		Collector: CollectorConfig{
			CommitTimeout: duration{2 * time.Minute},
			LockTTL:       duration{5 * time.Minute},
		},
		Server: ServerConfig{
			Enabled:     true,
			Port:        8000,
			CORSOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
		},
		LogLevel: "info",
	}
}

// defaultExpiryWindowMinutes applies when a structure block leaves the
// tolerance unset.
const defaultExpiryWindowMinutes = 10

// defaultPollInterval applies when a structure block leaves poll_interval
// unset.
const defaultPollInterval = 5 * time.Minute

// Normalize fills per-structure defaults. Called by Load after decoding.
func (c *Config) Normalize() {
	for i := range c.Structures {
		if c.Structures[i].ExpiryWindowMinutes <= 0 {
			c.Structures[i].ExpiryWindowMinutes = defaultExpiryWindowMinutes
		}
		if c.Structures[i].PollInterval.Duration <= 0 {
			c.Structures[i].PollInterval = duration{defaultPollInterval}
		}
	}
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for obviously invalid or missing values and returns a
// combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	// LogLevel
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// ESI
	if c.ESI.BaseURL == "" {
		errs = append(errs, "esi: base_url must not be empty")
	}
	if c.ESI.Concurrency < 1 {
		errs = append(errs, "esi: concurrency must be >= 1")
	}

	// SSO
	if c.SSO.ClientID == "" {
		errs = append(errs, "sso: client_id must not be empty")
	}
	if c.SSO.ClientSecret == "" {
		errs = append(errs, "sso: client_secret must not be empty")
	}
	seenChars := make(map[int64]bool)
	for i, ch := range c.SSO.Characters {
		if ch.CharacterID <= 0 {
			errs = append(errs, fmt.Sprintf("sso: characters[%d]: character_id must be positive", i))
		}
		if seenChars[ch.CharacterID] {
			errs = append(errs, fmt.Sprintf("sso: duplicate character_id %d", ch.CharacterID))
		}
		seenChars[ch.CharacterID] = true
	}

	// Postgres
	if strings.TrimSpace(c.Postgres.DSN) == "" {
		if c.Postgres.Host == "" {
			errs = append(errs, "postgres: host must not be empty (or set postgres.dsn)")
		}
		if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
			errs = append(errs, fmt.Sprintf("postgres: port must be 1-65535, got %d", c.Postgres.Port))
		}
		if c.Postgres.Database == "" {
			errs = append(errs, "postgres: database must not be empty")
		}
	}
	if c.Postgres.PoolMaxConns < 1 {
		errs = append(errs, "postgres: pool_max_conns must be >= 1")
	}
	if c.Postgres.PoolMinConns < 0 {
		errs = append(errs, "postgres: pool_min_conns must be >= 0")
	}
	if c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
		errs = append(errs, "postgres: pool_min_conns must not exceed pool_max_conns")
	}

	// Redis
	if c.Redis.Enabled {
		if c.Redis.Addr == "" {
			errs = append(errs, "redis: addr must not be empty when enabled")
		}
		if c.Redis.PoolSize < 1 {
			errs = append(errs, "redis: pool_size must be >= 1")
		}
	}

	// S3
	if c.S3.Enabled {
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty when enabled")
		}
		if c.S3.Region == "" {
			errs = append(errs, "s3: region must not be empty when enabled")
		}
	}

	// Server
	if c.Server.Enabled {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
		}
	}

	// Structures
	if len(c.Structures) == 0 {
		errs = append(errs, "structures: at least one [[structures]] block is required")
	}
	seenStructures := make(map[int64]bool)
	for i, st := range c.Structures {
		if st.StructureID <= 0 {
			errs = append(errs, fmt.Sprintf("structures[%d]: structure_id must be positive", i))
		}
		if st.CharacterID <= 0 {
			errs = append(errs, fmt.Sprintf("structures[%d]: character_id must be positive", i))
		} else if len(seenChars) > 0 && !seenChars[st.CharacterID] {
			errs = append(errs, fmt.Sprintf("structures[%d]: character_id %d has no [[sso.characters]] entry", i, st.CharacterID))
		}
		if seenStructures[st.StructureID] {
			errs = append(errs, fmt.Sprintf("structures: duplicate structure_id %d", st.StructureID))
		}
		seenStructures[st.StructureID] = true
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
