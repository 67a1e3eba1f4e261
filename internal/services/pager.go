package services

import (
	"context"
	"errors"

	"github.com/markdave123-py/contexta-sources/internal/core"
	"github.com/markdave123-py/contexta-sources/internal/core/aggregator"
	"github.com/markdave123-py/contexta-sources/internal/logger"
	"github.com/markdave123-py/contexta-sources/internal/metrics"
	"github.com/markdave123-py/contexta-sources/internal/models"
)

const DefaultPageSize = 50

// IteratorFactory opens the storage iterator for a scan.
type IteratorFactory func(ctx context.Context) (core.StorageIterator, error)

// CursorFactory opens the page cursor for a scan.
type CursorFactory func(ctx context.Context) (core.PageCursor, error)

// DocumentPager turns a StorageIterator into fixed-size pages. The iterator is
// opened on the first page and reused until the scan ends or the pager is closed.
type DocumentPager struct {
	open     IteratorFactory
	backend  string
	pageSize int
	metrics  *metrics.Metrics

	it     core.StorageIterator
	done   bool
	err    error
	closed bool
}

func NewDocumentPager(open IteratorFactory, backend string, pageSize int, m *metrics.Metrics) *DocumentPager {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &DocumentPager{open: open, backend: backend, pageSize: pageSize, metrics: m}
}

// NextPage fills up to pageSize documents. Blank items are skipped, parse
// failures are listed in Errors, and an empty page means the scan is over.
func (p *DocumentPager) NextPage(ctx context.Context) (*models.Page[*models.Document], error) {
	if p.closed {
		return nil, core.ErrClosed
	}
	if p.err != nil {
		return nil, p.err
	}
	page := &models.Page[*models.Document]{}
	if p.done {
		return page, nil
	}
	log := logger.FromContext(ctx).With("backend", p.backend)

	if p.it == nil {
		it, err := p.open(ctx)
		if err != nil {
			return nil, p.fail(log, err)
		}
		p.it = it
	}

	for len(page.Entries) < p.pageSize {
		ok, err := p.it.HasNext(ctx)
		if err != nil {
			return nil, p.fail(log, err)
		}
		if !ok {
			p.finish()
			break
		}

		doc, err := p.it.Next(ctx)
		switch core.Classify(err) {
		case core.SeverityNone:
			page.Entries = append(page.Entries, models.Entry[*models.Document]{Item: doc, Attributes: doc.Metadata.Map()})
			p.metrics.DocumentProduced(p.backend)
		case core.SeveritySkip:
			log.Debug("skipping blank document", "error", err)
			p.metrics.DocumentSkipped(p.backend)
		case core.SeverityItem:
			log.Warn("document failed to parse", "error", err)
			page.Errors = append(page.Errors, itemError(err))
			p.metrics.ItemFailed(p.backend)
		default:
			return nil, p.fail(log, err)
		}
	}

	p.metrics.PageServed("documents")
	return page, nil
}

func (p *DocumentPager) fail(log logger.Logger, err error) error {
	log.Error("document scan aborted", "error", err)
	p.metrics.ScanFailed(p.backend)
	p.err = err
	p.finish()
	return err
}

func (p *DocumentPager) finish() {
	p.done = true
	if p.it != nil {
		_ = p.it.Close()
		p.it = nil
	}
}

func (p *DocumentPager) Close() error {
	if p.closed {
		return nil
	}
	p.closed = true
	if p.it != nil {
		err := p.it.Close()
		p.it = nil
		return err
	}
	return nil
}

// DimensionProbe reports the embedding dimension of a store, 0 if unknown.
type DimensionProbe func(ctx context.Context) (int, error)

// SourcePager drains a PageCursor into a SourceAggregator on first use, then
// serves the resulting inventory page by page.
type SourcePager struct {
	open      CursorFactory
	storeName string
	backend   string
	pageSize  int
	metrics   *metrics.Metrics
	probe     DimensionProbe

	cursor    core.PageCursor
	inventory *models.SourceInventory
	pos       int
	err       error
	closed    bool
}

func NewSourcePager(open CursorFactory, storeName, backend string, pageSize int, m *metrics.Metrics) *SourcePager {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &SourcePager{open: open, storeName: storeName, backend: backend, pageSize: pageSize, metrics: m}
}

// WithDimensionProbe attaches a probe run once after the scan completes.
func (p *SourcePager) WithDimensionProbe(probe DimensionProbe) *SourcePager {
	p.probe = probe
	return p
}

// Inventory runs the scan if needed and returns the full inventory.
func (p *SourcePager) Inventory(ctx context.Context) (*models.SourceInventory, error) {
	if p.closed {
		return nil, core.ErrClosed
	}
	if p.err != nil {
		return nil, p.err
	}
	if p.inventory == nil {
		if err := p.scan(ctx); err != nil {
			return nil, err
		}
	}
	return p.inventory, nil
}

func (p *SourcePager) NextPage(ctx context.Context) (*models.Page[models.SourceSummary], error) {
	inv, err := p.Inventory(ctx)
	if err != nil {
		return nil, err
	}
	page := &models.Page[models.SourceSummary]{}
	end := min(p.pos+p.pageSize, len(inv.Sources))
	for _, s := range inv.Sources[p.pos:end] {
		page.Entries = append(page.Entries, models.Entry[models.SourceSummary]{Item: s, Attributes: s.Attributes})
	}
	p.pos = end
	p.metrics.PageServed("sources")
	return page, nil
}

func (p *SourcePager) scan(ctx context.Context) error {
	log := logger.FromContext(ctx).With("backend", p.backend, "path", p.storeName)

	if p.cursor == nil {
		c, err := p.open(ctx)
		if err != nil {
			return p.fail(log, err)
		}
		p.cursor = c
	}

	agg := aggregator.New(p.storeName, p.backend)
	for {
		records, err := p.cursor.Advance(ctx)
		if err != nil {
			return p.fail(log, err)
		}
		if len(records) == 0 {
			break
		}
		agg.IngestAll(records)
		p.metrics.RecordsRead(p.backend, len(records))
	}

	inv := agg.Finalize()
	if cr, ok := p.cursor.(core.CompletenessReporter); ok && !cr.Complete() {
		inv.Complete = false
		log.Warn("store scan ended early, inventory is incomplete", "sources", inv.SourceCount)
	}
	_ = p.cursor.Close()
	p.cursor = nil

	if p.probe != nil {
		dim, err := p.probe(ctx)
		if err != nil {
			log.Warn("vector dimension probe failed", "error", err)
		}
		inv.Dimension = dim
	}

	log.Info("store scanned", "sources", inv.SourceCount, "chunks", inv.ChunkCount, "complete", inv.Complete)
	p.inventory = inv
	return nil
}

func (p *SourcePager) fail(log logger.Logger, err error) error {
	log.Error("store scan aborted", "error", err)
	p.metrics.ScanFailed(p.backend)
	p.err = err
	if p.cursor != nil {
		_ = p.cursor.Close()
		p.cursor = nil
	}
	return err
}

func (p *SourcePager) Close() error {
	if p.closed {
		return nil
	}
	p.closed = true
	if p.cursor != nil {
		err := p.cursor.Close()
		p.cursor = nil
		return err
	}
	return nil
}

func itemError(err error) models.ItemError {
	var pe *core.ParseError
	if errors.As(err, &pe) {
		return models.ItemError{Key: pe.Key, Message: pe.Err.Error()}
	}
	return models.ItemError{Message: err.Error()}
}
