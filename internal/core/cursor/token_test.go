package cursor

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markdave123-py/contexta-sources/internal/core"
	"github.com/markdave123-py/contexta-sources/internal/models"
)

type scriptedLister struct {
	pages  [][]models.RawMetadataRecord
	calls  int
	tokens []string
	err    error
}

func (l *scriptedLister) List(_ context.Context, token string, _ int) ([]models.RawMetadataRecord, string, error) {
	l.tokens = append(l.tokens, token)
	if l.err != nil {
		return nil, "", l.err
	}
	page := l.pages[l.calls]
	l.calls++
	if l.calls < len(l.pages) {
		return page, fmt.Sprintf("t%d", l.calls), nil
	}
	return page, "", nil
}

func records(n int) []models.RawMetadataRecord {
	out := make([]models.RawMetadataRecord, n)
	for i := range out {
		out[i] = models.RawMetadataRecord{"source": fmt.Sprintf("doc%d", i)}
	}
	return out
}

func TestTokenCursor(t *testing.T) {
	t.Run("Should follow tokens until the backend returns none", func(t *testing.T) {
		lister := &scriptedLister{pages: [][]models.RawMetadataRecord{records(100), records(100), records(37)}}
		c := NewTokenCursor(lister, "s3", "bucket", 100)

		all := drainCursor(t, c)

		assert.Len(t, all, 237)
		assert.Equal(t, 3, lister.calls)
		assert.Equal(t, []string{"", "t1", "t2"}, lister.tokens)
	})

	t.Run("Should skip empty pages that still carry a token", func(t *testing.T) {
		lister := &scriptedLister{pages: [][]models.RawMetadataRecord{records(0), records(3)}}
		c := NewTokenCursor(lister, "redis", "doc:", 10)

		page, err := c.Advance(context.Background())

		require.NoError(t, err)
		assert.Len(t, page, 3)
		assert.Equal(t, 2, lister.calls)
	})

	t.Run("Should wrap listing errors with backend context", func(t *testing.T) {
		c := NewTokenCursor(&scriptedLister{err: errors.New("throttled")}, "s3", "s3://vectors/", 10)

		_, err := c.Advance(context.Background())

		assert.EqualError(t, err, "s3 s3://vectors/: throttled")
	})
}

type jsonObjects struct {
	keys    []string
	content map[string]string
	calls   int
}

func (j *jsonObjects) ListObjects(_ context.Context, _, _, token string, maxKeys int32) (*models.ObjectPage, error) {
	j.calls++
	start := 0
	if token != "" {
		_, _ = fmt.Sscanf(token, "%d", &start)
	}
	end := min(start+int(maxKeys), len(j.keys))
	page := &models.ObjectPage{Keys: j.keys[start:end]}
	if end < len(j.keys) {
		page.NextToken = fmt.Sprint(end)
	}
	return page, nil
}

func (j *jsonObjects) GetFile(_ context.Context, _, key string) ([]byte, error) {
	return []byte(j.content[key]), nil
}

func (j *jsonObjects) DownloadFile(ctx context.Context, bucket, key string) ([]byte, error) {
	return j.GetFile(ctx, bucket, key)
}

func TestS3RecordLister(t *testing.T) {
	t.Run("Should decode one record per object", func(t *testing.T) {
		objs := &jsonObjects{content: map[string]string{}}
		for i := 0; i < 5; i++ {
			key := fmt.Sprintf("seg-%d.json", i)
			objs.keys = append(objs.keys, key)
			objs.content[key] = fmt.Sprintf(`{"source":"doc%d"}`, i%2)
		}
		objs.content["seg-4.json"] = "{broken"

		c := NewTokenCursor(NewS3RecordLister(objs, "vectors", "seg-"), models.StoreS3, "vectors", 2)
		all := drainCursor(t, c)

		require.Len(t, all, 5)
		assert.Equal(t, "doc1", all[1]["source"])
		assert.Empty(t, all[4])
		assert.Equal(t, 3, objs.calls)
	})
}

func TestRedisRecordLister(t *testing.T) {
	t.Run("Should scan matching keys and read the metadata field", func(t *testing.T) {
		mr := miniredis.RunT(t)
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		defer client.Close()

		for i := 0; i < 7; i++ {
			mr.HSet(fmt.Sprintf("doc:%d", i), "metadata", fmt.Sprintf(`{"source":"s%d","index":%d}`, i%3, i))
		}
		mr.HSet("doc:no-meta", "vector", "...")
		mr.HSet("other:1", "metadata", `{"source":"elsewhere"}`)

		c := NewTokenCursor(NewRedisRecordLister(client, "doc:", ""), models.StoreRedis, "doc:", 3)
		all := drainCursor(t, c)

		assert.Len(t, all, 7)
		for _, r := range all {
			assert.NotEqual(t, "elsewhere", r["source"])
		}
	})

	t.Run("Should read each key once when the scan repeats it", func(t *testing.T) {
		mr := miniredis.RunT(t)
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		defer client.Close()
		for i := 0; i < 4; i++ {
			mr.HSet(fmt.Sprintf("doc:%d", i), "metadata", `{"source":"s"}`)
		}
		lister := NewRedisRecordLister(client, "doc:", "")
		ctx := context.Background()

		first, _, err := lister.List(ctx, "", 100)
		require.NoError(t, err)
		again, _, err := lister.List(ctx, "", 100)
		require.NoError(t, err)

		assert.Len(t, first, 4)
		assert.Empty(t, again)
	})

	t.Run("Should reject a malformed token", func(t *testing.T) {
		mr := miniredis.RunT(t)
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		defer client.Close()

		_, _, err := NewRedisRecordLister(client, "doc:", "").List(context.Background(), "abc", 10)

		assert.ErrorContains(t, err, "invalid scan cursor")
	})

	t.Run("Should fail when the server is gone", func(t *testing.T) {
		mr := miniredis.RunT(t)
		client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
		defer client.Close()
		mr.Close()

		_, err := NewTokenCursor(NewRedisRecordLister(client, "doc:", ""), models.StoreRedis, "doc:", 3).Advance(context.Background())

		assert.True(t, core.IsBackendError(err))
	})
}
