package cursor

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/markdave123-py/contexta-sources/internal/core"
	db "github.com/markdave123-py/contexta-sources/internal/core/database"
	"github.com/markdave123-py/contexta-sources/internal/logger"
	"github.com/markdave123-py/contexta-sources/internal/models"
)

var _ core.PageCursor = (*SQLCursor)(nil)

// SQLCursor pages a table with LIMIT/OFFSET. The offset grows by the page size
// after every query, and only a page with zero rows ends the scan, so data that
// ends exactly on a page boundary costs one extra empty query.
type SQLCursor struct {
	db       db.Querier
	table    string
	query    string
	pageSize int
	offset   int
	done     bool
	closed   bool
	release  func()
}

type SQLOption func(*SQLCursor)

// WithRelease registers a hook run once on Close.
func WithRelease(fn func()) SQLOption {
	return func(c *SQLCursor) { c.release = fn }
}

func NewSQLCursor(q db.Querier, table, column string, pageSize int, opts ...SQLOption) *SQLCursor {
	if column == "" {
		column = DefaultMetadataColumn
	}
	c := &SQLCursor{
		db:       q,
		table:    table,
		query:    fmt.Sprintf("SELECT %s FROM %s LIMIT $1 OFFSET $2", pgx.Identifier{column}.Sanitize(), db.QuoteTable(table)),
		pageSize: normalizePageSize(pageSize),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *SQLCursor) Offset() int {
	return c.offset
}

func (c *SQLCursor) Advance(ctx context.Context) ([]models.RawMetadataRecord, error) {
	if c.closed {
		return nil, core.ErrClosed
	}
	if c.done {
		return nil, nil
	}

	rows, err := c.db.Query(ctx, c.query, c.pageSize, c.offset)
	if err != nil {
		return nil, core.NewBackendError(models.StorePgVector, c.table, err)
	}
	defer rows.Close()

	log := logger.FromContext(ctx)
	page := make([]models.RawMetadataRecord, 0, c.pageSize)
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, core.NewBackendError(models.StorePgVector, c.table, err)
		}
		rec, err := decodeRecord(raw)
		if err != nil {
			log.Warn("undecodable metadata row", "backend", models.StorePgVector, "path", c.table, "offset", c.offset, "error", err)
			rec = models.RawMetadataRecord{}
		}
		page = append(page, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, core.NewBackendError(models.StorePgVector, c.table, err)
	}

	log.Debug("sql page fetched", "path", c.table, "offset", c.offset, "page_size", c.pageSize, "rows", len(page))
	c.offset += c.pageSize
	if len(page) == 0 {
		c.done = true
	}
	return page, nil
}

func (c *SQLCursor) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	if c.release != nil {
		c.release()
	}
	return nil
}

func decodeRecord(raw []byte) (models.RawMetadataRecord, error) {
	rec := models.RawMetadataRecord{}
	if len(raw) == 0 {
		return rec, nil
	}
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, err
	}
	return rec, nil
}
