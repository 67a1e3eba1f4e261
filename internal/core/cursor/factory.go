package cursor

import (
	"context"
	"errors"

	"github.com/dgraph-io/badger/v4"
	"github.com/go-resty/resty/v2"
	"github.com/redis/go-redis/v9"

	"github.com/markdave123-py/contexta-sources/internal/core"
	db "github.com/markdave123-py/contexta-sources/internal/core/database"
	"github.com/markdave123-py/contexta-sources/internal/models"
)

// Deps carries the shared backend clients. Cursors borrow them and release only
// their own per-scan resources on Close.
type Deps struct {
	Postgres db.Querier
	Objects  core.ObjectClient
	Redis    redis.UniversalClient
	Badger   *badger.DB
	Search   *resty.Client
	Policy   BatchErrorPolicy
}

// New builds the cursor for cfg.Backend.
func New(ctx context.Context, cfg models.StoreConfig, deps Deps) (core.PageCursor, error) {
	missing := func(what string) error {
		return core.NewBackendError(cfg.Backend, cfg.StoreName, errors.New(what+" not configured"))
	}

	switch cfg.Backend {
	case models.StoreMemory:
		return NewListCursor(cfg.Records, cfg.PageSize), nil
	case models.StorePgVector:
		if deps.Postgres == nil {
			return nil, missing("database")
		}
		if err := db.EnsureStoreTable(ctx, deps.Postgres, cfg.StoreName); err != nil {
			return nil, core.NewBackendError(cfg.Backend, cfg.StoreName, err)
		}
		return NewSQLCursor(deps.Postgres, cfg.StoreName, cfg.MetadataColumn, cfg.PageSize), nil
	case models.StoreS3:
		if deps.Objects == nil {
			return nil, missing("object storage client")
		}
		lister := NewS3RecordLister(deps.Objects, cfg.StoreName, cfg.Prefix)
		return NewTokenCursor(lister, cfg.Backend, "s3://"+cfg.StoreName+"/"+cfg.Prefix, cfg.PageSize), nil
	case models.StoreRedis:
		if deps.Redis == nil {
			return nil, missing("redis client")
		}
		prefix := cfg.Prefix
		if prefix == "" {
			prefix = cfg.StoreName + ":"
		}
		lister := NewRedisRecordLister(deps.Redis, prefix, cfg.MetadataColumn)
		return NewTokenCursor(lister, cfg.Backend, prefix, cfg.PageSize), nil
	case models.StoreBadger:
		if deps.Badger == nil {
			return nil, missing("badger database")
		}
		policy := deps.Policy
		if cfg.BatchErrorPolicy != "" {
			p, err := ParseBatchErrorPolicy(cfg.BatchErrorPolicy)
			if err != nil {
				return nil, err
			}
			policy = p
		}
		prefix := cfg.Prefix
		if prefix == "" {
			prefix = cfg.StoreName + ":"
		}
		return NewIteratorCursor(BadgerOpener(deps.Badger, []byte(prefix)), cfg.Backend, prefix, cfg.PageSize, policy), nil
	case models.StoreAzureSearch:
		if deps.Search == nil {
			return nil, missing("search client")
		}
		return NewRESTCursor(deps.Search, cfg.StoreName, cfg.MetadataColumn, cfg.PageSize), nil
	default:
		return nil, core.UnsupportedBackend(cfg.Backend)
	}
}

// NewSearchClient configures a resty client for an Azure AI Search service.
func NewSearchClient(endpoint, apiKey string) *resty.Client {
	return resty.New().
		SetBaseURL(endpoint).
		SetHeader("api-key", apiKey).
		SetHeader("Accept", "application/json")
}
