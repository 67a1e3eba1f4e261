package cursor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/markdave123-py/contexta-sources/internal/core"
	"github.com/markdave123-py/contexta-sources/internal/logger"
	"github.com/markdave123-py/contexta-sources/internal/models"
)

// TokenLister lists one page of records resuming from token. An empty next
// token means the listing is complete.
type TokenLister interface {
	List(ctx context.Context, token string, limit int) (records []models.RawMetadataRecord, next string, err error)
}

var _ core.PageCursor = (*TokenCursor)(nil)

// TokenCursor drives a continuation-token listing.
type TokenCursor struct {
	lister   TokenLister
	backend  string
	path     string
	pageSize int
	token    string
	done     bool
	closed   bool
}

func NewTokenCursor(lister TokenLister, backend, path string, pageSize int) *TokenCursor {
	return &TokenCursor{lister: lister, backend: backend, path: path, pageSize: normalizePageSize(pageSize)}
}

func (c *TokenCursor) Advance(ctx context.Context) ([]models.RawMetadataRecord, error) {
	if c.closed {
		return nil, core.ErrClosed
	}
	// Some backends return empty pages that still carry a token; keep going
	// so an empty result only ever means exhaustion.
	for !c.done {
		records, next, err := c.lister.List(ctx, c.token, c.pageSize)
		if err != nil {
			return nil, core.NewBackendError(c.backend, c.path, err)
		}
		c.token = next
		c.done = next == ""
		logger.FromContext(ctx).Debug("token page fetched", "backend", c.backend, "path", c.path, "records", len(records), "more", !c.done)
		if len(records) > 0 {
			return records, nil
		}
	}
	return nil, nil
}

func (c *TokenCursor) Close() error {
	c.closed = true
	return nil
}

// S3RecordLister reads stores that keep one JSON metadata object per S3 key.
type S3RecordLister struct {
	client core.ObjectClient
	bucket string
	prefix string
}

func NewS3RecordLister(client core.ObjectClient, bucket, prefix string) *S3RecordLister {
	return &S3RecordLister{client: client, bucket: bucket, prefix: prefix}
}

func (l *S3RecordLister) List(ctx context.Context, token string, limit int) ([]models.RawMetadataRecord, string, error) {
	page, err := l.client.ListObjects(ctx, l.bucket, l.prefix, token, int32(limit))
	if err != nil {
		return nil, "", err
	}
	out := make([]models.RawMetadataRecord, 0, len(page.Keys))
	for _, key := range page.Keys {
		body, err := l.client.GetFile(ctx, l.bucket, key)
		if err != nil {
			return nil, "", err
		}
		rec, err := decodeRecord(body)
		if err != nil {
			logger.FromContext(ctx).Warn("undecodable metadata object", "backend", models.StoreS3, "key", key, "error", err)
			rec = models.RawMetadataRecord{}
		}
		out = append(out, rec)
	}
	return out, page.NextToken, nil
}

// RedisRecordLister walks keys with SCAN and reads the metadata hash field of each.
// The SCAN cursor is the continuation token; zero ends the walk. SCAN may return
// a key more than once, so keys already read are dropped. One lister serves one walk.
type RedisRecordLister struct {
	client redis.UniversalClient
	match  string
	field  string
	seen   map[string]struct{}
}

func NewRedisRecordLister(client redis.UniversalClient, prefix, field string) *RedisRecordLister {
	if field == "" {
		field = DefaultMetadataColumn
	}
	return &RedisRecordLister{client: client, match: prefix + "*", field: field, seen: make(map[string]struct{})}
}

func (l *RedisRecordLister) List(ctx context.Context, token string, limit int) ([]models.RawMetadataRecord, string, error) {
	var cursor uint64
	if token != "" {
		var err error
		if cursor, err = strconv.ParseUint(token, 10, 64); err != nil {
			return nil, "", fmt.Errorf("invalid scan cursor %q: %w", token, err)
		}
	}

	keys, next, err := l.client.Scan(ctx, cursor, l.match, int64(limit)).Result()
	if err != nil {
		return nil, "", fmt.Errorf("scan: %w", err)
	}
	keys = l.unseen(keys)

	out := make([]models.RawMetadataRecord, 0, len(keys))
	if len(keys) > 0 {
		pipe := l.client.Pipeline()
		cmds := make([]*redis.StringCmd, len(keys))
		for i, key := range keys {
			cmds[i] = pipe.HGet(ctx, key, l.field)
		}
		if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
			return nil, "", fmt.Errorf("hget: %w", err)
		}
		for i, cmd := range cmds {
			raw, err := cmd.Result()
			if errors.Is(err, redis.Nil) {
				continue
			}
			if err != nil {
				return nil, "", fmt.Errorf("hget %s: %w", keys[i], err)
			}
			var rec models.RawMetadataRecord
			if err := json.Unmarshal([]byte(raw), &rec); err != nil {
				logger.FromContext(ctx).Warn("undecodable metadata hash", "backend", models.StoreRedis, "key", keys[i], "error", err)
				rec = models.RawMetadataRecord{}
			}
			out = append(out, rec)
		}
	}

	if next == 0 {
		return out, "", nil
	}
	return out, strconv.FormatUint(next, 10), nil
}

func (l *RedisRecordLister) unseen(keys []string) []string {
	fresh := keys[:0]
	for _, k := range keys {
		if _, ok := l.seen[k]; ok {
			continue
		}
		l.seen[k] = struct{}{}
		fresh = append(fresh, k)
	}
	return fresh
}
