package storage

import (
	"context"
	"errors"
	"strings"

	"google.golang.org/api/iterator"

	"github.com/markdave123-py/contexta-sources/internal/core"
	"github.com/markdave123-py/contexta-sources/internal/core/ingestion_engine"
	"github.com/markdave123-py/contexta-sources/internal/models"
)

var _ core.StorageIterator = (*BlobIterator)(nil)

// BlobIterator wraps the backend's forward-only listing handle. The handle is
// opened on first use and bound to a context the iterator owns, so it outlives
// the request that opened it and is released by Close.
type BlobIterator struct {
	client  core.BlobClient
	bucket  string
	prefix  string
	builder *ingestion_engine.DocumentBuilder

	handle  core.BlobHandle
	cancel  context.CancelFunc
	pending string
	peeked  bool
	done    bool
	closed  bool
}

func NewBlobIterator(client core.BlobClient, bucket, prefix string, builder *ingestion_engine.DocumentBuilder) *BlobIterator {
	return &BlobIterator{client: client, bucket: bucket, prefix: prefix, builder: builder}
}

func (it *BlobIterator) contextPath() string {
	return "gs://" + it.bucket + "/" + it.prefix
}

func (it *BlobIterator) HasNext(ctx context.Context) (bool, error) {
	if it.closed {
		return false, core.ErrClosed
	}
	if it.peeked {
		return true, nil
	}
	if it.done {
		return false, nil
	}
	if it.handle == nil {
		hctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		it.cancel = cancel
		it.handle = it.client.Objects(hctx, it.bucket, it.prefix)
	}
	for {
		name, err := it.handle.Next()
		if errors.Is(err, iterator.Done) {
			it.done = true
			return false, nil
		}
		if err != nil {
			return false, core.NewBackendError(models.StorageGCS, it.contextPath(), err)
		}
		if strings.HasSuffix(name, "/") {
			continue
		}
		it.pending = name
		it.peeked = true
		return true, nil
	}
}

func (it *BlobIterator) Next(ctx context.Context) (*models.Document, error) {
	ok, err := it.HasNext(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, core.ErrIteratorExhausted
	}
	name := it.pending
	it.pending, it.peeked = "", false

	data, err := it.client.ReadObject(ctx, it.bucket, name)
	if err != nil {
		return nil, core.NewBackendError(models.StorageGCS, "gs://"+it.bucket+"/"+name, err)
	}
	return it.builder.Build(ctx, objectItem("gs", it.bucket, name, data))
}

func (it *BlobIterator) SingleDocument(ctx context.Context) (*models.Document, error) {
	if it.closed {
		return nil, core.ErrClosed
	}
	data, err := it.client.ReadObject(ctx, it.bucket, it.prefix)
	if err != nil {
		return nil, core.NewBackendError(models.StorageGCS, it.contextPath(), err)
	}
	return it.builder.Build(ctx, objectItem("gs", it.bucket, it.prefix, data))
}

func (it *BlobIterator) Close() error {
	if it.closed {
		return nil
	}
	it.closed = true
	if it.cancel != nil {
		it.cancel()
	}
	return nil
}
