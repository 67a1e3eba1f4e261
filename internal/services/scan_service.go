package services

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/markdave123-py/contexta-sources/internal/core"
	"github.com/markdave123-py/contexta-sources/internal/core/cursor"
	db "github.com/markdave123-py/contexta-sources/internal/core/database"
	"github.com/markdave123-py/contexta-sources/internal/core/ingestion_engine"
	"github.com/markdave123-py/contexta-sources/internal/core/storage"
	"github.com/markdave123-py/contexta-sources/internal/metrics"
	"github.com/markdave123-py/contexta-sources/internal/models"
)

// ValidationError wraps a rejected scan request.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string { return "invalid request: " + e.Err.Error() }
func (e *ValidationError) Unwrap() error { return e.Err }

type ScanService struct {
	storageDeps storage.Deps
	cursorDeps  cursor.Deps
	sessions    *SessionStore
	metrics     *metrics.Metrics
	validate    *validator.Validate
	pageSize    int
}

func NewScanService(sd storage.Deps, cd cursor.Deps, sessions *SessionStore, m *metrics.Metrics, pageSize int) *ScanService {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &ScanService{
		storageDeps: sd,
		cursorDeps:  cd,
		sessions:    sessions,
		metrics:     m,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
		pageSize:    pageSize,
	}
}

func (s *ScanService) Sessions() *SessionStore {
	return s.sessions
}

// StartDocumentScan registers a document scan. No backend is contacted until
// the first page is requested, but an unknown file type is rejected here.
func (s *ScanService) StartDocumentScan(ctx context.Context, cfg models.StorageConfig) (*ScanSession, error) {
	if err := s.validate.StructCtx(ctx, cfg); err != nil {
		return nil, &ValidationError{Err: err}
	}
	if _, err := ingestion_engine.ParserFor(cfg.FileType); err != nil {
		return nil, err
	}

	open := func(ctx context.Context) (core.StorageIterator, error) {
		return storage.New(ctx, cfg, s.storageDeps)
	}
	pager := NewDocumentPager(open, cfg.Backend, s.pageSizeOr(cfg.PageSize), s.metrics)
	return s.sessions.add(KindDocuments, pager, nil), nil
}

// StartSourceScan registers a source scan. Like document scans, nothing is read
// until the first page, but the batch error policy is checked here.
func (s *ScanService) StartSourceScan(ctx context.Context, cfg models.StoreConfig) (*ScanSession, error) {
	if err := s.validate.StructCtx(ctx, cfg); err != nil {
		return nil, &ValidationError{Err: err}
	}
	if _, err := cursor.ParseBatchErrorPolicy(cfg.BatchErrorPolicy); err != nil {
		return nil, &ValidationError{Err: err}
	}

	open := func(ctx context.Context) (core.PageCursor, error) {
		return cursor.New(ctx, cfg, s.cursorDeps)
	}
	pager := NewSourcePager(open, cfg.StoreName, cfg.Backend, s.pageSizeOr(cfg.PageSize), s.metrics)
	if cfg.Backend == models.StorePgVector && s.cursorDeps.Postgres != nil {
		column := cfg.VectorColumn
		if column == "" {
			column = cursor.DefaultVectorColumn
		}
		pager.WithDimensionProbe(func(ctx context.Context) (int, error) {
			return db.VectorDimension(ctx, s.cursorDeps.Postgres, cfg.StoreName, column)
		})
	}
	return s.sessions.add(KindSources, nil, pager), nil
}

func (s *ScanService) NextPage(ctx context.Context, id string) (*ScanPage, error) {
	sess, err := s.sessions.Get(id)
	if err != nil {
		return nil, err
	}
	return sess.NextPage(ctx)
}

func (s *ScanService) Inventory(ctx context.Context, id string) (*models.SourceInventory, error) {
	sess, err := s.sessions.Get(id)
	if err != nil {
		return nil, err
	}
	return sess.Inventory(ctx)
}

func (s *ScanService) EndScan(id string) error {
	return s.sessions.Remove(id)
}

// SingleDocument fetches the one item addressed by cfg without enumerating.
func (s *ScanService) SingleDocument(ctx context.Context, cfg models.StorageConfig) (*models.Document, error) {
	if err := s.validate.StructCtx(ctx, cfg); err != nil {
		return nil, &ValidationError{Err: err}
	}
	it, err := storage.New(ctx, cfg, s.storageDeps)
	if err != nil {
		return nil, err
	}
	defer it.Close()

	doc, err := it.SingleDocument(ctx)
	if err != nil {
		return nil, fmt.Errorf("single document %s: %w", cfg.ContextPath(), err)
	}
	return doc, nil
}

func (s *ScanService) pageSizeOr(n int) int {
	if n > 0 {
		return n
	}
	return s.pageSize
}
