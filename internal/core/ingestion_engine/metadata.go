package ingestion_engine

import (
	"errors"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"

	"github.com/markdave123-py/contexta-sources/internal/models"
)

// MetadataEnricher stamps origin and ingestion metadata on parsed documents.
type MetadataEnricher struct {
	now func() time.Time
}

type EnricherOption func(*MetadataEnricher)

// WithClock overrides the ingestion clock.
func WithClock(now func() time.Time) EnricherOption {
	return func(e *MetadataEnricher) { e.now = now }
}

func NewMetadataEnricher(opts ...EnricherOption) *MetadataEnricher {
	e := &MetadataEnricher{now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Enrich adds the origin keys to doc.Metadata. Existing keys are never removed;
// parser-provided keys only fill gaps.
func (e *MetadataEnricher) Enrich(doc *models.Document, item *models.StorageItem, fileType string, parsed map[string]string) error {
	if item.Name == "" {
		return errors.New("enrich: item has no file name")
	}
	if item.Source == "" {
		return errors.New("enrich: item has no source")
	}
	if doc.Metadata == nil {
		doc.Metadata = models.NewMetadata()
	}
	md := doc.Metadata
	ts := e.now().UTC()

	md.Set(models.KeyFileName, item.Name)
	md.Set(models.KeyFileType, fileType)
	md.Set(models.KeySource, item.Source)
	md.Set(models.KeyAbsoluteDirectoryPath, item.Directory)
	md.Set(models.KeyIngestionTimestamp, ts.UnixMilli())
	md.Set(models.KeyIngestionDatetime, ts.Format(time.RFC3339))

	mime := item.ContentType
	if mime == "" || mime == "application/octet-stream" {
		mime = mimetype.Detect(item.Data).String()
	}
	mime, _, _ = strings.Cut(mime, ";")
	md.Set(models.KeyMimeType, mime)
	if media, _, ok := strings.Cut(mime, "/"); ok {
		md.Set(models.KeyMediaType, media)
	}

	if item.URL != "" {
		md.Set(models.KeyURL, item.URL)
	} else if fileType == FileTypeURL {
		md.Set(models.KeyURL, item.Source)
	}

	for _, k := range []string{"Title", "title"} {
		if title := strings.TrimSpace(parsed[k]); title != "" {
			md.SetIfAbsent(models.KeyTitle, title)
			break
		}
	}
	return nil
}
