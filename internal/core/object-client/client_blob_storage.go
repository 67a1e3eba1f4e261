package objectclient

import (
	"context"
	"fmt"
	"io"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/markdave123-py/contexta-sources/internal/core"
)

var _ core.BlobClient = (*GCSClient)(nil)

type GCSClient struct {
	client *storage.Client
}

// NewGCSClient uses the credentials file when given, application default credentials otherwise.
func NewGCSClient(ctx context.Context, credentialsFile string) (*GCSClient, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("gcs client: %w", err)
	}
	return &GCSClient{client: client}, nil
}

type gcsHandle struct {
	it *storage.ObjectIterator
}

func (h *gcsHandle) Next() (string, error) {
	attrs, err := h.it.Next()
	if err != nil {
		return "", err
	}
	return attrs.Name, nil
}

// Objects returns the SDK's forward-only iterator. It ends with iterator.Done.
func (c *GCSClient) Objects(ctx context.Context, bucket, prefix string) core.BlobHandle {
	q := &storage.Query{Prefix: prefix}
	_ = q.SetAttrSelection([]string{"Name"})
	return &gcsHandle{it: c.client.Bucket(bucket).Objects(ctx, q)}
}

func (c *GCSClient) ReadObject(ctx context.Context, bucket, name string) ([]byte, error) {
	ctxGet, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	r, err := c.client.Bucket(bucket).Object(name).NewReader(ctxGet)
	if err != nil {
		return nil, fmt.Errorf("gcs read failed: %w", err)
	}
	defer r.Close()

	body, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return body, nil
}

func (c *GCSClient) Close() error {
	return c.client.Close()
}
