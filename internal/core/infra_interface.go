package core

import (
	"context"

	"github.com/markdave123-py/contexta-sources/internal/models"
)

// StorageIterator lazily enumerates the items at a context path of one backend.
// An instance belongs to a single scan and is not safe for concurrent use.
type StorageIterator interface {
	HasNext(ctx context.Context) (bool, error)
	// Next returns ErrIteratorExhausted once HasNext has reported false.
	Next(ctx context.Context) (*models.Document, error)
	// SingleDocument fetches the item addressed by the context path without enumerating.
	SingleDocument(ctx context.Context) (*models.Document, error)
	Close() error
}

// PageCursor advances a backend paging protocol one page at a time.
// An empty page signals exhaustion. Close is idempotent.
type PageCursor interface {
	Advance(ctx context.Context) ([]models.RawMetadataRecord, error)
	Close() error
}

// CompletenessReporter is implemented by cursors that may stop early on backend errors.
type CompletenessReporter interface {
	Complete() bool
}

// DocumentParser turns raw bytes into text.
type DocumentParser interface {
	Parse(ctx context.Context, data []byte, contentType string) (*models.ParsedContent, error)
}

// ObjectClient is the object-storage surface the iterators and cursors need.
type ObjectClient interface {
	ListObjects(ctx context.Context, bucket, prefix, token string, maxKeys int32) (*models.ObjectPage, error)
	GetFile(ctx context.Context, bucket, key string) ([]byte, error)
	DownloadFile(ctx context.Context, bucket, key string) ([]byte, error)
}

// BlobClient exposes blob storage through a forward-only listing handle.
type BlobClient interface {
	Objects(ctx context.Context, bucket, prefix string) BlobHandle
	ReadObject(ctx context.Context, bucket, name string) ([]byte, error)
}

// BlobHandle yields object names until it returns iterator.Done.
type BlobHandle interface {
	Next() (string, error)
}
