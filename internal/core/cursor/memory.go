package cursor

import (
	"context"

	"github.com/markdave123-py/contexta-sources/internal/core"
	"github.com/markdave123-py/contexta-sources/internal/models"
)

var _ core.PageCursor = (*ListCursor)(nil)

// ListCursor pages over records already held in memory.
type ListCursor struct {
	records  []models.RawMetadataRecord
	pageSize int
	pos      int
	closed   bool
}

func NewListCursor(records []models.RawMetadataRecord, pageSize int) *ListCursor {
	return &ListCursor{records: records, pageSize: normalizePageSize(pageSize)}
}

func (c *ListCursor) Advance(_ context.Context) ([]models.RawMetadataRecord, error) {
	if c.closed {
		return nil, core.ErrClosed
	}
	if c.pos >= len(c.records) {
		return nil, nil
	}
	end := min(c.pos+c.pageSize, len(c.records))
	page := c.records[c.pos:end]
	c.pos = end
	return page, nil
}

func (c *ListCursor) Close() error {
	c.closed = true
	return nil
}
