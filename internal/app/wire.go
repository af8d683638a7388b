package app

import (
	"context"
	"fmt"
	"log/slog"

	s3blob "github.com/ApexLeVraiJonathan/eve-money-making-sub005/internal/blob/s3"
	"github.com/ApexLeVraiJonathan/eve-money-making-sub005/internal/cache/redis"
	"github.com/ApexLeVraiJonathan/eve-money-making-sub005/internal/config"
	"github.com/ApexLeVraiJonathan/eve-money-making-sub005/internal/domain"
	"github.com/ApexLeVraiJonathan/eve-money-making-sub005/internal/notify"
	"github.com/ApexLeVraiJonathan/eve-money-making-sub005/internal/platform/esi"
	"github.com/ApexLeVraiJonathan/eve-money-making-sub005/internal/platform/sso"
	"github.com/ApexLeVraiJonathan/eve-money-making-sub005/internal/store/postgres"
)

// Dependencies bundles every concrete dependency the application needs. It is
// constructed by Wire and torn down by the returned cleanup function.
type Dependencies struct {
	// Stores
	Snapshots  domain.SnapshotStore
	Aggregates domain.AggregateStore
	Passes     domain.PassStore

	// Optional infrastructure (nil when the feature is disabled).
	LockManager domain.LockManager
	Summaries   domain.SummaryCache
	Archiver    domain.SnapshotArchiver

	// Market access
	Tokens    domain.TokenSource
	ESIClient *esi.Client

	// Notifications
	Notifier *notify.Notifier
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that should
// be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- PostgreSQL ---
	pgClient, err := postgres.New(ctx, postgres.ClientConfig{
		DSN:      cfg.Postgres.DSN,
		Host:     cfg.Postgres.Host,
		Port:     cfg.Postgres.Port,
		Database: cfg.Postgres.Database,
		User:     cfg.Postgres.User,
		Password: cfg.Postgres.Password,
		SSLMode:  cfg.Postgres.SSLMode,
		MaxConns: cfg.Postgres.PoolMaxConns,
		MinConns: cfg.Postgres.PoolMinConns,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: postgres: %w", err)
	}
	closers = append(closers, pgClient.Close)

	if cfg.Postgres.RunMigrations {
		if err := pgClient.RunMigrations(ctx); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
		}
	}

	pool := pgClient.Pool()
	deps.Snapshots = postgres.NewSnapshotStore(pool)
	deps.Aggregates = postgres.NewAggregateStore(pool)
	deps.Passes = postgres.NewPassStore(pool)

	// --- Redis (optional) ---
	if cfg.Redis.Enabled {
		redisClient, err := redis.New(ctx, redis.Config{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })

		deps.LockManager = redis.NewLockManager(redisClient)
		deps.Summaries = redis.NewSummaryCache(redisClient)
	}

	// --- S3 blob storage (optional) ---
	if cfg.S3.Enabled {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		closers = append(closers, func() { _ = s3Client.Close() })

		deps.Archiver = s3blob.NewSnapshotArchiver(s3blob.NewWriter(s3Client))
	}

	// --- Market access ---
	creds := make([]sso.Credential, 0, len(cfg.SSO.Characters))
	for _, ch := range cfg.SSO.Characters {
		creds = append(creds, sso.Credential{
			CharacterID:  ch.CharacterID,
			RefreshToken: ch.RefreshToken,
		})
	}
	deps.Tokens = sso.New(sso.Config{
		TokenURL:     cfg.SSO.TokenURL,
		ClientID:     cfg.SSO.ClientID,
		ClientSecret: cfg.SSO.ClientSecret,
		Credentials:  creds,
	}, logger)

	deps.ESIClient = esi.NewClient(cfg.ESI.BaseURL, deps.Tokens,
		esi.WithTimeout(cfg.ESI.Timeout.Duration),
		esi.WithConcurrency(cfg.ESI.Concurrency),
		esi.WithLogger(logger),
	)

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(
			cfg.Notify.TelegramToken,
			cfg.Notify.TelegramChatID,
		))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	deps.Notifier = notify.NewNotifier(senders, logger)

	return deps, cleanup, nil
}
