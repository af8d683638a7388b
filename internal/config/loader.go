package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies MARKETWATCH_* environment variable overrides,
// and returns the final Config. The returned Config has NOT been validated;
// the caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)
	cfg.Normalize()

	return &cfg, nil
}

// applyEnvOverrides reads well-known MARKETWATCH_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── ESI ──
	setStr(&cfg.ESI.BaseURL, "MARKETWATCH_ESI_BASE_URL")
	setDuration(&cfg.ESI.Timeout, "MARKETWATCH_ESI_TIMEOUT")
	setInt(&cfg.ESI.Concurrency, "MARKETWATCH_ESI_CONCURRENCY")

	// ── SSO ──
	setStr(&cfg.SSO.TokenURL, "MARKETWATCH_SSO_TOKEN_URL")
	setStr(&cfg.SSO.ClientID, "MARKETWATCH_SSO_CLIENT_ID")
	setStr(&cfg.SSO.ClientSecret, "MARKETWATCH_SSO_CLIENT_SECRET")

	// ── Postgres ──
	setStr(&cfg.Postgres.DSN, "MARKETWATCH_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "MARKETWATCH_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "MARKETWATCH_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "MARKETWATCH_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "MARKETWATCH_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "MARKETWATCH_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "MARKETWATCH_POSTGRES_SSLMODE")
	setInt(&cfg.Postgres.PoolMaxConns, "MARKETWATCH_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "MARKETWATCH_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "MARKETWATCH_POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	setBool(&cfg.Redis.Enabled, "MARKETWATCH_REDIS_ENABLED")
	setStr(&cfg.Redis.Addr, "MARKETWATCH_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "MARKETWATCH_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "MARKETWATCH_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "MARKETWATCH_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "MARKETWATCH_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "MARKETWATCH_REDIS_TLS_ENABLED")

	// ── S3 ──
	setBool(&cfg.S3.Enabled, "MARKETWATCH_S3_ENABLED")
	setStr(&cfg.S3.Endpoint, "MARKETWATCH_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "MARKETWATCH_S3_REGION")
	setStr(&cfg.S3.Bucket, "MARKETWATCH_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "MARKETWATCH_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "MARKETWATCH_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "MARKETWATCH_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "MARKETWATCH_S3_FORCE_PATH_STYLE")

	// ── Collector ──
	setDuration(&cfg.Collector.CommitTimeout, "MARKETWATCH_COLLECTOR_COMMIT_TIMEOUT")
	setDuration(&cfg.Collector.LockTTL, "MARKETWATCH_COLLECTOR_LOCK_TTL")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "MARKETWATCH_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "MARKETWATCH_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "MARKETWATCH_SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.APIKey, "MARKETWATCH_SERVER_API_KEY")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "MARKETWATCH_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "MARKETWATCH_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "MARKETWATCH_NOTIFY_DISCORD_WEBHOOK_URL")

	// ── Top-level ──
	setStr(&cfg.LogLevel, "MARKETWATCH_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
