package storage

import (
	"context"
	"errors"

	"github.com/markdave123-py/contexta-sources/internal/core"
	"github.com/markdave123-py/contexta-sources/internal/core/ingestion_engine"
	"github.com/markdave123-py/contexta-sources/internal/models"
)

// Deps carries the shared backend clients. A nil client disables its backend.
type Deps struct {
	Objects  core.ObjectClient
	Blobs    core.BlobClient
	Enricher *ingestion_engine.MetadataEnricher
}

// New builds the iterator for cfg.Backend. The file type is resolved first, so an
// unknown tag fails before any client is used.
func New(_ context.Context, cfg models.StorageConfig, deps Deps) (core.StorageIterator, error) {
	builder, err := ingestion_engine.NewDocumentBuilder(cfg.FileType, deps.Enricher)
	if err != nil {
		return nil, err
	}

	switch cfg.Backend {
	case models.StorageLocal:
		return NewLocalIterator(cfg.Path, cfg.Include, builder)
	case models.StorageS3:
		if deps.Objects == nil {
			return nil, core.NewBackendError(cfg.Backend, cfg.ContextPath(), errors.New("object storage client not configured"))
		}
		return NewObjectIterator(deps.Objects, cfg.Bucket, cfg.Prefix, cfg.PageSize, builder), nil
	case models.StorageGCS:
		if deps.Blobs == nil {
			return nil, core.NewBackendError(cfg.Backend, cfg.ContextPath(), errors.New("blob storage client not configured"))
		}
		return NewBlobIterator(deps.Blobs, cfg.Bucket, cfg.Prefix, builder), nil
	default:
		return nil, core.UnsupportedBackend(cfg.Backend)
	}
}
