package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/redis/go-redis/v9"

	"github.com/markdave123-py/contexta-sources/internal/config"
	"github.com/markdave123-py/contexta-sources/internal/core/cursor"
	db "github.com/markdave123-py/contexta-sources/internal/core/database"
	"github.com/markdave123-py/contexta-sources/internal/core/ingestion_engine"
	objectclient "github.com/markdave123-py/contexta-sources/internal/core/object-client"
	"github.com/markdave123-py/contexta-sources/internal/core/storage"
	"github.com/markdave123-py/contexta-sources/internal/logger"
	"github.com/markdave123-py/contexta-sources/internal/metrics"
	"github.com/markdave123-py/contexta-sources/internal/services"
)

// App owns the shared backend clients and the scan service built on them.
type App struct {
	Config  *config.Config
	Metrics *metrics.Metrics
	Scans   *services.ScanService
	Server  *Server

	sessions *services.SessionStore
	closers  []func() error
}

// NewApp connects every backend the configuration names. Unconfigured backends
// stay nil and requests for them fail with a backend error.
func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	log := logger.FromContext(ctx)
	appCtx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	a := &App{Config: cfg, Metrics: metrics.New()}
	fail := func(err error) (*App, error) {
		a.Close()
		return nil, err
	}

	policy, err := cursor.ParseBatchErrorPolicy(cfg.BatchErrorPolicy)
	if err != nil {
		return nil, err
	}

	objClient, err := objectclient.NewS3Client(appCtx, cfg)
	if err != nil {
		return nil, fmt.Errorf("object client: %w", err)
	}

	sd := storage.Deps{Objects: objClient, Enricher: ingestion_engine.NewMetadataEnricher()}
	cd := cursor.Deps{Objects: objClient, Policy: policy}

	if cfg.GCSCredentialsFile != "" {
		gcs, err := objectclient.NewGCSClient(appCtx, cfg.GCSCredentialsFile)
		if err != nil {
			return fail(fmt.Errorf("blob client: %w", err))
		}
		a.closers = append(a.closers, gcs.Close)
		sd.Blobs = gcs
		log.Info("blob client ready")
	}

	if cfg.DatabaseURL != "" {
		dbClient, err := db.NewDatabaseClient(appCtx, cfg)
		if err != nil {
			return fail(err)
		}
		a.closers = append(a.closers, dbClient.Close)
		cd.Postgres = dbClient.Pool()
		log.Info("database ready")
	}

	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return fail(fmt.Errorf("parse REDIS_URL: %w", err))
		}
		rdb := redis.NewClient(opts)
		a.closers = append(a.closers, rdb.Close)
		if err := rdb.Ping(appCtx).Err(); err != nil {
			return fail(fmt.Errorf("redis ping: %w", err))
		}
		cd.Redis = rdb
		log.Info("redis ready", "addr", opts.Addr)
	}

	if cfg.BadgerPath != "" {
		bdb, err := badger.Open(badger.DefaultOptions(cfg.BadgerPath).WithReadOnly(true).WithLogger(nil))
		if err != nil {
			return fail(fmt.Errorf("open badger %s: %w", cfg.BadgerPath, err))
		}
		a.closers = append(a.closers, bdb.Close)
		cd.Badger = bdb
		log.Info("badger ready", "path", cfg.BadgerPath)
	}

	if cfg.AzureSearchEndpoint != "" {
		cd.Search = cursor.NewSearchClient(cfg.AzureSearchEndpoint, cfg.AzureSearchAPIKey)
		log.Info("search client ready", "endpoint", cfg.AzureSearchEndpoint)
	}

	a.sessions = services.NewSessionStore(cfg.SessionCapacity, cfg.SessionTTL, a.Metrics)
	a.Scans = services.NewScanService(sd, cd, a.sessions, a.Metrics, cfg.DefaultPageSize)
	a.Server = NewServer(cfg, a.Scans, a.Metrics)
	return a, nil
}

// Close ends open scan sessions, then releases clients in reverse order.
func (a *App) Close() error {
	if a.sessions != nil {
		a.sessions.Purge()
	}
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}
