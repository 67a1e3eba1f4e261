package services

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markdave123-py/contexta-sources/internal/core"
	"github.com/markdave123-py/contexta-sources/internal/core/cursor"
	"github.com/markdave123-py/contexta-sources/internal/core/ingestion_engine"
	"github.com/markdave123-py/contexta-sources/internal/core/storage"
	"github.com/markdave123-py/contexta-sources/internal/metrics"
	"github.com/markdave123-py/contexta-sources/internal/models"
)

func newTestService(t *testing.T) *ScanService {
	t.Helper()
	m := metrics.New()
	sessions := NewSessionStore(8, time.Minute, m)
	t.Cleanup(sessions.Purge)
	deps := storage.Deps{Enricher: ingestion_engine.NewMetadataEnricher()}
	return NewScanService(deps, cursor.Deps{}, sessions, m, 10)
}

func TestScanService(t *testing.T) {
	ctx := context.Background()

	t.Run("Should scan a local directory across pages", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("alpha"), 0o644))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "b.txt"), []byte("beta"), 0o644))
		svc := newTestService(t)

		sess, err := svc.StartDocumentScan(ctx, models.StorageConfig{
			Backend: models.StorageLocal, Path: dir, FileType: "text", PageSize: 1,
		})
		require.NoError(t, err)

		var names []string
		for {
			page, err := svc.NextPage(ctx, sess.ID)
			require.NoError(t, err)
			if !page.HasMore {
				break
			}
			doc := page.Items[0].Item.(*models.Document)
			names = append(names, doc.Metadata.GetString(models.KeyFileName))
		}
		assert.ElementsMatch(t, []string{"a.txt", "b.txt"}, names)
	})

	t.Run("Should reject an unknown file type before any I/O", func(t *testing.T) {
		svc := newTestService(t)

		_, err := svc.StartDocumentScan(ctx, models.StorageConfig{
			Backend: models.StorageLocal, Path: "/does/not/exist", FileType: "docx",
		})

		assert.ErrorIs(t, err, core.ErrUnsupportedFileType)
		assert.Zero(t, svc.Sessions().Len())
	})

	t.Run("Should reject an invalid configuration", func(t *testing.T) {
		svc := newTestService(t)

		_, err := svc.StartDocumentScan(ctx, models.StorageConfig{Backend: models.StorageS3, FileType: "text"})

		var ve *ValidationError
		assert.ErrorAs(t, err, &ve)
	})

	t.Run("Should inventory an inline store", func(t *testing.T) {
		svc := newTestService(t)
		sess, err := svc.StartSourceScan(ctx, models.StoreConfig{
			Backend:   models.StoreMemory,
			StoreName: "inline",
			Records: []models.RawMetadataRecord{
				{models.KeySource: "doc1"},
				{models.KeySource: "doc2"},
				{models.KeySource: "doc1"},
			},
		})
		require.NoError(t, err)

		inv, err := svc.Inventory(ctx, sess.ID)
		require.NoError(t, err)
		assert.Equal(t, 2, inv.SourceCount)
		assert.Equal(t, 3, inv.ChunkCount)

		page, err := svc.NextPage(ctx, sess.ID)
		require.NoError(t, err)
		assert.Len(t, page.Items, 2)
		last, err := svc.NextPage(ctx, sess.ID)
		require.NoError(t, err)
		assert.False(t, last.HasMore)
		assert.NotNil(t, last.Inventory)
	})

	t.Run("Should reject an unknown batch error policy before any page", func(t *testing.T) {
		svc := newTestService(t)

		_, err := svc.StartSourceScan(ctx, models.StoreConfig{
			Backend: models.StoreBadger, StoreName: "chunks", BatchErrorPolicy: "retry",
		})

		var ve *ValidationError
		assert.ErrorAs(t, err, &ve)
		assert.Zero(t, svc.Sessions().Len())
	})

	t.Run("Should forget a session once ended", func(t *testing.T) {
		svc := newTestService(t)
		sess, err := svc.StartSourceScan(ctx, models.StoreConfig{Backend: models.StoreMemory, StoreName: "inline"})
		require.NoError(t, err)

		require.NoError(t, svc.EndScan(sess.ID))

		_, err = svc.NextPage(ctx, sess.ID)
		assert.ErrorIs(t, err, ErrSessionNotFound)
		assert.ErrorIs(t, svc.EndScan(sess.ID), ErrSessionNotFound)
	})

	t.Run("Should read a single local file", func(t *testing.T) {
		dir := t.TempDir()
		file := filepath.Join(dir, "one.txt")
		require.NoError(t, os.WriteFile(file, []byte("only"), 0o644))
		svc := newTestService(t)

		doc, err := svc.SingleDocument(ctx, models.StorageConfig{Backend: models.StorageLocal, Path: file, FileType: "text"})

		require.NoError(t, err)
		assert.Equal(t, "only", doc.RawText)
	})
}

func TestSessionStore(t *testing.T) {
	t.Run("Should close sessions evicted by capacity", func(t *testing.T) {
		store := NewSessionStore(1, time.Minute, nil)
		it := &fakeIterator{steps: texts(2)}
		first := store.add(KindDocuments, NewDocumentPager(func(context.Context) (core.StorageIterator, error) {
			return it, nil
		}, "fake", 1, nil), nil)
		_, err := first.NextPage(context.Background())
		require.NoError(t, err)

		store.add(KindSources, nil, NewSourcePager(func(context.Context) (core.PageCursor, error) {
			return cursor.NewListCursor(nil, 1), nil
		}, "s", models.StoreMemory, 1, nil))

		_, err = store.Get(first.ID)
		assert.ErrorIs(t, err, ErrSessionNotFound)
		assert.Equal(t, 1, it.closed)
	})

	t.Run("Should keep a session alive while it is in use", func(t *testing.T) {
		store := NewSessionStore(4, 300*time.Millisecond, nil)
		t.Cleanup(store.Purge)
		sess := store.add(KindSources, nil, NewSourcePager(func(context.Context) (core.PageCursor, error) {
			return cursor.NewListCursor(nil, 1), nil
		}, "s", models.StoreMemory, 1, nil))

		for i := 0; i < 10; i++ {
			time.Sleep(100 * time.Millisecond)
			_, err := store.Get(sess.ID)
			require.NoError(t, err, "touch %d", i)
		}

		time.Sleep(600 * time.Millisecond)
		_, err := store.Get(sess.ID)
		assert.ErrorIs(t, err, ErrSessionNotFound)
	})
}
