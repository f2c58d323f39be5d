// Package bootstrap provides dependency initialization for the avatar API.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/avatarlab/avatar-api/internal/config"
	"github.com/avatarlab/avatar-api/internal/jobindex"
	"github.com/avatarlab/avatar-api/internal/orchestrator"
	"github.com/avatarlab/avatar-api/internal/provider"
	"github.com/avatarlab/avatar-api/internal/provider/did"
	"github.com/avatarlab/avatar-api/internal/provider/heygen"
	"github.com/avatarlab/avatar-api/internal/provider/wav2lip"
	"github.com/avatarlab/avatar-api/internal/secrets"
	"github.com/avatarlab/avatar-api/internal/storage"
	"github.com/avatarlab/avatar-api/internal/store"
)

// Dependencies holds all initialized dependencies for the HTTP server.
type Dependencies struct {
	Manager  *orchestrator.Manager
	Archiver *storage.Archiver
	Close    func()
}

// NewRegistry builds the provider registry with every supported adapter.
func NewRegistry() *provider.Registry {
	registry := provider.NewRegistry()
	registry.Register(provider.TypePhotoToVideo, func() provider.Provider { return did.New() })
	registry.Register(provider.TypeProfessionalAvatar, func() provider.Provider { return heygen.New() })
	registry.Register(provider.TypeSelfHostedLipSync, func() provider.Provider { return wav2lip.New() })
	return registry
}

// NewDependencies creates and initializes all dependencies for the
// application.
func NewDependencies(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	codec, err := initCodec(cfg, logger)
	if err != nil {
		return nil, err
	}

	st, closeStore, err := initStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	index, closeIndex := initJobIndex(cfg, logger)

	manager := orchestrator.NewManager(st, codec, NewRegistry(),
		orchestrator.WithStrategy(orchestrator.ParseStrategy(cfg.Strategy)),
		orchestrator.WithMaxRetries(cfg.MaxRetries),
		orchestrator.WithRetryDelay(cfg.RetryDelay),
		orchestrator.WithFailover(cfg.FailoverEnabled),
		orchestrator.WithJobIndex(index),
		orchestrator.WithLogger(logger),
	)

	archiver, err := initArchiver(ctx, cfg, logger)
	if err != nil {
		closeStore()
		closeIndex()
		return nil, err
	}

	return &Dependencies{
		Manager:  manager,
		Archiver: archiver,
		Close: func() {
			closeStore()
			closeIndex()
		},
	}, nil
}

// initCodec selects the credential codec. Without a key, credentials are
// stored in cleartext; acceptable only in development.
func initCodec(cfg *config.Config, logger *slog.Logger) (secrets.Codec, error) {
	if cfg.CredentialsKey == "" {
		logger.Warn("CREDENTIALS_KEY not set; provider credentials will not be encrypted at rest")
		return secrets.NoopCodec{}, nil
	}
	codec, err := secrets.NewAESCodec(cfg.CredentialsKey)
	if err != nil {
		return nil, fmt.Errorf("create credential codec: %w", err)
	}
	return codec, nil
}

// initStore selects the provider config store.
func initStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (store.Store, func(), error) {
	if !cfg.PostgresEnabled() {
		logger.Info("in-memory provider store configured")
		return store.NewMemoryStore(), func() {}, nil
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("create postgres pool: %w", err)
	}
	logger.Info("postgres provider store configured")
	return store.NewPostgresStore(pool), pool.Close, nil
}

// initJobIndex selects the job-to-provider index.
func initJobIndex(cfg *config.Config, logger *slog.Logger) (jobindex.Index, func()) {
	if !cfg.RedisEnabled() {
		logger.Info("in-process job index configured")
		return jobindex.NewMemoryIndex(cfg.JobIndexTTL), func() {}
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	logger.Info("redis job index configured",
		slog.String("addr", cfg.RedisAddr),
	)
	return jobindex.NewRedisIndex(client, cfg.JobIndexTTL), func() { _ = client.Close() }
}

// initArchiver selects the video archival back end, or nil when archival
// is disabled.
func initArchiver(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*storage.Archiver, error) {
	switch {
	case cfg.S3Enabled():
		s3Store, err := storage.NewS3Storage(ctx, storage.S3Config{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
		})
		if err != nil {
			return nil, fmt.Errorf("create S3 storage: %w", err)
		}
		logger.Info("S3 video archival configured",
			slog.String("bucket", cfg.S3Bucket),
			slog.String("region", cfg.S3Region),
		)
		return storage.NewArchiver(s3Store), nil
	case cfg.ArchiveDir != "":
		localStore, err := storage.NewLocalStorage(cfg.ArchiveDir, cfg.ArchiveBaseURL)
		if err != nil {
			return nil, fmt.Errorf("create local storage: %w", err)
		}
		logger.Info("local video archival configured",
			slog.String("dir", cfg.ArchiveDir),
		)
		return storage.NewArchiver(localStore), nil
	default:
		return nil, nil
	}
}
