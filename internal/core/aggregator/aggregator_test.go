package aggregator

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markdave123-py/contexta-sources/internal/models"
)

func TestSourceAggregator(t *testing.T) {
	t.Run("Should count chunks per source", func(t *testing.T) {
		agg := New("store", models.StoreMemory)
		agg.IngestAll([]models.RawMetadataRecord{
			{"source": "doc1"},
			{"source": "doc1"},
			{"source": "doc2"},
		})

		inv := agg.Finalize()

		assert.Equal(t, 2, inv.SourceCount)
		require.Len(t, inv.Sources, 2)
		assert.Equal(t, "doc1", inv.Sources[0].SourceID)
		assert.Equal(t, 2, inv.Sources[0].ChunkCount)
		assert.Equal(t, "doc2", inv.Sources[1].SourceID)
		assert.Equal(t, 1, inv.Sources[1].ChunkCount)
		assert.Equal(t, 3, inv.ChunkCount)
		assert.True(t, inv.Complete)
		assert.Equal(t, "store", inv.StoreName)
	})

	t.Run("Should keep the first value of conflicting attributes and fill gaps", func(t *testing.T) {
		agg := New("store", models.StoreMemory)
		agg.Ingest(models.RawMetadataRecord{"source": "doc1", "title": "First", "index": 0})
		agg.Ingest(models.RawMetadataRecord{"source": "doc1", "title": "Second", "author": "ada"})
		agg.Ingest(models.RawMetadataRecord{"source": "doc1", "title": ""})

		attrs := agg.Finalize().Sources[0].Attributes

		assert.Equal(t, "First", attrs["title"])
		assert.Equal(t, 0, attrs["index"])
		assert.Equal(t, "ada", attrs["author"])
	})

	t.Run("Should keep source and chunk counts consistent for random streams", func(t *testing.T) {
		rng := rand.New(rand.NewSource(42))
		for trial := 0; trial < 20; trial++ {
			agg := New("store", models.StoreMemory)
			n := rng.Intn(500)
			distinct := map[string]struct{}{}
			for i := 0; i < n; i++ {
				rec := randomRecord(rng)
				distinct[SourceIdentity(rec)] = struct{}{}
				agg.Ingest(rec)
			}

			inv := agg.Finalize()
			total := 0
			for _, s := range inv.Sources {
				total += s.ChunkCount
			}
			assert.Equal(t, len(distinct), inv.SourceCount)
			assert.Equal(t, n, total)
			assert.Equal(t, n, agg.RecordCount())
		}
	})

	t.Run("Should snapshot on finalize", func(t *testing.T) {
		agg := New("store", models.StoreMemory)
		agg.Ingest(models.RawMetadataRecord{"source": "a", "k": "v"})
		inv := agg.Finalize()
		inv.Sources[0].Attributes["k"] = "changed"

		assert.Equal(t, "v", agg.Finalize().Sources[0].Attributes["k"])
	})
}

func randomRecord(rng *rand.Rand) models.RawMetadataRecord {
	switch rng.Intn(4) {
	case 0:
		return models.RawMetadataRecord{"source": fmt.Sprintf("doc%d", rng.Intn(10))}
	case 1:
		return models.RawMetadataRecord{"source_id": fmt.Sprintf(" doc%d ", rng.Intn(10))}
	case 2:
		return models.RawMetadataRecord{"file_name": fmt.Sprintf("f%d.txt", rng.Intn(5)), "absolute_directory_path": "/data"}
	default:
		return models.RawMetadataRecord{"index": rng.Intn(3)}
	}
}

func TestSourceIdentity(t *testing.T) {
	cases := []struct {
		name string
		rec  models.RawMetadataRecord
		want string
	}{
		{"prefers source_id", models.RawMetadataRecord{"source_id": "id-1", "source": "ignored"}, "id-1"},
		{"uses source", models.RawMetadataRecord{"source": " /data/a.txt "}, "/data/a.txt"},
		{"falls back to file name and directory", models.RawMetadataRecord{"file_name": "a.txt", "absolute_directory_path": "/data/docs/"}, "/data/docs/a.txt"},
		{"joins object storage directories", models.RawMetadataRecord{"file_name": "a.txt", "absolute_directory_path": "s3://Bucket/docs"}, "s3://bucket/docs/a.txt"},
		{"uses file name alone", models.RawMetadataRecord{"file_name": "a.txt"}, "a.txt"},
		{"groups records without identity", models.RawMetadataRecord{"index": 1}, UnknownSource},
		{"stringifies non-string ids", models.RawMetadataRecord{"source_id": 42}, "42"},
	}
	for _, tc := range cases {
		t.Run("Should handle "+tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, SourceIdentity(tc.rec))
		})
	}
}

func TestNormalize(t *testing.T) {
	t.Run("Should canonicalise URLs", func(t *testing.T) {
		assert.Equal(t, "https://example.com/docs/page", Normalize("HTTPS://Example.COM/docs/page/"))
		assert.Equal(t, "https://example.com/a", Normalize("https://example.com/a#section"))
	})

	t.Run("Should clean paths", func(t *testing.T) {
		assert.Equal(t, "/data/docs/a.txt", Normalize("/data//docs/./a.txt"))
		assert.Equal(t, "C:/docs/a.txt", Normalize(`C:\docs\a.txt`))
	})

	t.Run("Should map blank ids to unknown", func(t *testing.T) {
		assert.Equal(t, UnknownSource, Normalize("   "))
	})
}
