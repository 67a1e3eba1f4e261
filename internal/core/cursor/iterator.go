package cursor

import (
	"context"
	"fmt"
	"strings"

	"github.com/markdave123-py/contexta-sources/internal/core"
	"github.com/markdave123-py/contexta-sources/internal/logger"
	"github.com/markdave123-py/contexta-sources/internal/models"
)

// BatchErrorPolicy decides what a failed batch fetch does to the scan.
type BatchErrorPolicy string

const (
	// PolicyStop logs the failure and ends the scan. The inventory is marked incomplete.
	PolicyStop BatchErrorPolicy = "stop"
	// PolicyPropagate returns the failure to the caller.
	PolicyPropagate BatchErrorPolicy = "propagate"
)

func ParseBatchErrorPolicy(s string) (BatchErrorPolicy, error) {
	switch BatchErrorPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", PolicyStop:
		return PolicyStop, nil
	case PolicyPropagate:
		return PolicyPropagate, nil
	default:
		return "", fmt.Errorf("unknown batch error policy %q", s)
	}
}

// QueryIterator is a backend-native forward iterator.
type QueryIterator interface {
	NextBatch(ctx context.Context, size int) ([]models.RawMetadataRecord, error)
	Close() error
}

// IteratorOpener creates the backend iterator on the first Advance.
type IteratorOpener func(ctx context.Context) (QueryIterator, error)

var (
	_ core.PageCursor           = (*IteratorCursor)(nil)
	_ core.CompletenessReporter = (*IteratorCursor)(nil)
)

// IteratorCursor pulls one batch per Advance from a vendor iterator. An empty
// batch closes the iterator. Failing to open the iterator is always fatal.
type IteratorCursor struct {
	open      IteratorOpener
	backend   string
	path      string
	batchSize int
	policy    BatchErrorPolicy

	it        QueryIterator
	done      bool
	truncated bool
	closed    bool
}

func NewIteratorCursor(open IteratorOpener, backend, path string, batchSize int, policy BatchErrorPolicy) *IteratorCursor {
	if policy == "" {
		policy = PolicyStop
	}
	return &IteratorCursor{
		open:      open,
		backend:   backend,
		path:      path,
		batchSize: normalizePageSize(batchSize),
		policy:    policy,
	}
}

func (c *IteratorCursor) Advance(ctx context.Context) ([]models.RawMetadataRecord, error) {
	if c.closed {
		return nil, core.ErrClosed
	}
	if c.done {
		return nil, nil
	}
	if c.it == nil {
		it, err := c.open(ctx)
		if err != nil {
			return nil, core.NewBackendError(c.backend, c.path, fmt.Errorf("open iterator: %w", err))
		}
		c.it = it
	}

	batch, err := c.it.NextBatch(ctx, c.batchSize)
	if err != nil {
		if c.policy == PolicyPropagate {
			return nil, core.NewBackendError(c.backend, c.path, err)
		}
		logger.FromContext(ctx).Warn("batch fetch failed, ending scan early",
			"backend", c.backend, "path", c.path, "error", err)
		c.truncated = true
		c.finish()
		return nil, nil
	}
	if len(batch) == 0 {
		c.finish()
		return nil, nil
	}
	return batch, nil
}

// Complete is false when a batch failure ended the scan under PolicyStop.
func (c *IteratorCursor) Complete() bool {
	return !c.truncated
}

func (c *IteratorCursor) finish() {
	c.done = true
	if c.it != nil {
		_ = c.it.Close()
		c.it = nil
	}
}

func (c *IteratorCursor) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	if c.it != nil {
		err := c.it.Close()
		c.it = nil
		return err
	}
	return nil
}
