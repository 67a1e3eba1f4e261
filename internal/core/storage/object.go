package storage

import (
	"context"
	"path"

	"github.com/markdave123-py/contexta-sources/internal/core"
	"github.com/markdave123-py/contexta-sources/internal/core/ingestion_engine"
	"github.com/markdave123-py/contexta-sources/internal/logger"
	"github.com/markdave123-py/contexta-sources/internal/models"
)

const DefaultListPageSize = 1000

var _ core.StorageIterator = (*ObjectIterator)(nil)

// ObjectIterator enumerates an S3-style bucket one listing page at a time. A new
// page is requested only when the current one is drained and a continuation
// token is pending.
type ObjectIterator struct {
	client   core.ObjectClient
	bucket   string
	prefix   string
	pageSize int32
	builder  *ingestion_engine.DocumentBuilder

	keys    []string
	pos     int
	token   string
	started bool
	closed  bool
}

func NewObjectIterator(client core.ObjectClient, bucket, prefix string, pageSize int, builder *ingestion_engine.DocumentBuilder) *ObjectIterator {
	if pageSize <= 0 {
		pageSize = DefaultListPageSize
	}
	return &ObjectIterator{
		client:   client,
		bucket:   bucket,
		prefix:   prefix,
		pageSize: int32(pageSize),
		builder:  builder,
	}
}

func (it *ObjectIterator) contextPath() string {
	return "s3://" + it.bucket + "/" + it.prefix
}

func (it *ObjectIterator) HasNext(ctx context.Context) (bool, error) {
	if it.closed {
		return false, core.ErrClosed
	}
	for it.pos >= len(it.keys) {
		if it.started && it.token == "" {
			return false, nil
		}
		page, err := it.client.ListObjects(ctx, it.bucket, it.prefix, it.token, it.pageSize)
		if err != nil {
			return false, core.NewBackendError(models.StorageS3, it.contextPath(), err)
		}
		it.started = true
		it.keys = page.Keys
		it.pos = 0
		it.token = page.NextToken
		logger.FromContext(ctx).Debug("object page listed",
			"backend", models.StorageS3, "path", it.contextPath(), "keys", len(page.Keys), "more", it.token != "")
	}
	return true, nil
}

func (it *ObjectIterator) Next(ctx context.Context) (*models.Document, error) {
	ok, err := it.HasNext(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, core.ErrIteratorExhausted
	}
	key := it.keys[it.pos]
	it.pos++

	data, err := it.client.GetFile(ctx, it.bucket, key)
	if err != nil {
		return nil, core.NewBackendError(models.StorageS3, "s3://"+it.bucket+"/"+key, err)
	}
	return it.builder.Build(ctx, objectItem("s3", it.bucket, key, data))
}

// SingleDocument downloads the object whose key is the configured prefix.
func (it *ObjectIterator) SingleDocument(ctx context.Context) (*models.Document, error) {
	if it.closed {
		return nil, core.ErrClosed
	}
	data, err := it.client.DownloadFile(ctx, it.bucket, it.prefix)
	if err != nil {
		return nil, core.NewBackendError(models.StorageS3, it.contextPath(), err)
	}
	return it.builder.Build(ctx, objectItem("s3", it.bucket, it.prefix, data))
}

func (it *ObjectIterator) Close() error {
	it.closed = true
	it.keys = nil
	return nil
}

func objectItem(scheme, bucket, key string, data []byte) *models.StorageItem {
	uri := scheme + "://" + bucket + "/" + key
	dir := path.Dir(key)
	if dir == "." {
		dir = ""
	}
	return &models.StorageItem{
		Key:       key,
		Name:      path.Base(key),
		Directory: scheme + "://" + bucket + "/" + dir,
		Source:    uri,
		URL:       uri,
		Data:      data,
	}
}
