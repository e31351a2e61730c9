// Package app initializes and holds long-lived application services, acting
// as a dependency injection container for the CLI commands.
package app

import (
	"context"
	"fmt"
	"io"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/banktcg/gradesync/internal/archive"
	archivegcs "github.com/banktcg/gradesync/internal/archive/gcs"
	"github.com/banktcg/gradesync/internal/clock/system"
	"github.com/banktcg/gradesync/internal/config"
	"github.com/banktcg/gradesync/internal/logging"
	"github.com/banktcg/gradesync/internal/lookup/pricecharting"
	"github.com/banktcg/gradesync/internal/metrics"
	"github.com/banktcg/gradesync/internal/notify"
	"github.com/banktcg/gradesync/internal/pricing"
	"github.com/banktcg/gradesync/internal/storage/postgres"
)

// App holds the shared, long-lived services. Initialized once at startup
// and torn down by a CLI hook after the command finishes.
type App struct {
	Cfg    config.Config
	Logger *zap.Logger
	Clock  pricing.Clock

	Catalog      pricing.CatalogStore
	Resolutions  pricing.ResolutionStore
	Observations pricing.ObservationStore
	Progress     pricing.ProgressStore
	Aggregates   pricing.AggregateStore
	Lookup       pricing.SourceLookup
	Notifier     notify.Publisher

	pool          *pgxpool.Pool
	archiveCloser io.Closer
}

// New initializes every service from configuration, failing fast if any
// critical dependency cannot be reached.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	metrics.Init()

	pool, err := postgres.NewPool(ctx, postgres.PoolConfig{
		DSN:             cfg.DB.DSN,
		MaxConns:        cfg.DB.MaxConns,
		MinConns:        cfg.DB.MinConns,
		MaxConnLifetime: cfg.DB.ConnLifetime(),
	})
	if err != nil {
		return nil, fmt.Errorf("init database: %w", err)
	}

	a := &App{
		Cfg:          cfg,
		Logger:       logger,
		Clock:        system.New(),
		Catalog:      postgres.NewCatalogStore(pool),
		Resolutions:  postgres.NewResolutionStore(pool),
		Observations: postgres.NewObservationStore(pool),
		Progress:     postgres.NewProgressStore(pool),
		Aggregates:   postgres.NewAggregateStore(pool),
		pool:         pool,
	}

	arc, err := a.buildArchive(ctx)
	if err != nil {
		pool.Close()
		return nil, err
	}
	a.Lookup = pricecharting.New(pricecharting.Config{
		BaseURL:   cfg.Lookup.BaseURL,
		UserAgent: cfg.Lookup.UserAgent,
		Timeout:   cfg.Lookup.Timeout(),
	}, arc, logger)

	notifier, err := a.buildNotifier(ctx)
	if err != nil {
		pool.Close()
		return nil, err
	}
	a.Notifier = notifier

	logger.Info("application services initialized")
	return a, nil
}

func (a *App) buildArchive(ctx context.Context) (archive.Provider, error) {
	switch a.Cfg.Archive.Provider {
	case "gcs":
		store, err := archivegcs.New(ctx, archivegcs.Config{
			Bucket: a.Cfg.Archive.Bucket,
			Prefix: a.Cfg.Archive.Prefix,
		})
		if err != nil {
			return nil, fmt.Errorf("init archive: %w", err)
		}
		a.archiveCloser = store
		a.Logger.Info("archiving raw pages to GCS", zap.String("bucket", a.Cfg.Archive.Bucket))
		return store, nil
	case "noop", "":
		return archive.NoOpProvider{}, nil
	default:
		return nil, fmt.Errorf("unknown archive provider: %s", a.Cfg.Archive.Provider)
	}
}

func (a *App) buildNotifier(ctx context.Context) (notify.Publisher, error) {
	switch a.Cfg.Notify.Provider {
	case "pubsub":
		pub, err := notify.NewPubSubPublisher(ctx, a.Cfg.Notify.ProjectID, a.Cfg.Notify.Topic, a.Logger)
		if err != nil {
			return nil, fmt.Errorf("init notifier: %w", err)
		}
		a.Logger.Info("publishing events to Pub/Sub", zap.String("topic", a.Cfg.Notify.Topic))
		return pub, nil
	case "noop", "":
		return notify.NoOpPublisher{}, nil
	default:
		return nil, fmt.Errorf("unknown notify provider: %s", a.Cfg.Notify.Provider)
	}
}

// Close gracefully shuts down all services.
func (a *App) Close() {
	a.Logger.Info("shutting down application services")
	if err := a.Notifier.Close(); err != nil {
		a.Logger.Warn("close notifier", zap.Error(err))
	}
	if a.archiveCloser != nil {
		if err := a.archiveCloser.Close(); err != nil {
			a.Logger.Warn("close archive", zap.Error(err))
		}
	}
	a.pool.Close()
	_ = a.Logger.Sync() // best-effort flush
}
