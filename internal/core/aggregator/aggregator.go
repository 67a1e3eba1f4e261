package aggregator

import (
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/markdave123-py/contexta-sources/internal/models"
)

// UnknownSource groups records that carry no usable identity.
const UnknownSource = "unknown"

// SourceAggregator folds per-chunk metadata records into one summary per source.
// It is owned by a single scan.
type SourceAggregator struct {
	storeName string
	backend   string
	order     []string
	sources   map[string]*models.SourceSummary
	records   int
	now       func() time.Time
}

func New(storeName, backend string) *SourceAggregator {
	return &SourceAggregator{
		storeName: storeName,
		backend:   backend,
		sources:   make(map[string]*models.SourceSummary),
		now:       time.Now,
	}
}

// Ingest counts rec against its source. Attributes already on the summary are
// never overwritten, so the first record seen for a source wins.
func (a *SourceAggregator) Ingest(rec models.RawMetadataRecord) {
	a.records++
	id := SourceIdentity(rec)

	summary, ok := a.sources[id]
	if !ok {
		summary = &models.SourceSummary{SourceID: id, Attributes: make(map[string]any, len(rec))}
		a.sources[id] = summary
		a.order = append(a.order, id)
	}
	summary.ChunkCount++
	for k, v := range rec {
		if _, exists := summary.Attributes[k]; !exists {
			summary.Attributes[k] = v
		}
	}
}

func (a *SourceAggregator) IngestAll(recs []models.RawMetadataRecord) {
	for _, rec := range recs {
		a.Ingest(rec)
	}
}

func (a *SourceAggregator) RecordCount() int {
	return a.records
}

// Finalize returns the sources in first-seen order. The aggregator can keep
// ingesting afterwards; each call returns a fresh snapshot.
func (a *SourceAggregator) Finalize() *models.SourceInventory {
	sources := make([]models.SourceSummary, 0, len(a.order))
	for _, id := range a.order {
		s := a.sources[id]
		attrs := make(map[string]any, len(s.Attributes))
		for k, v := range s.Attributes {
			attrs[k] = v
		}
		sources = append(sources, models.SourceSummary{SourceID: s.SourceID, Attributes: attrs, ChunkCount: s.ChunkCount})
	}
	return &models.SourceInventory{
		StoreName:   a.storeName,
		Backend:     a.backend,
		Sources:     sources,
		SourceCount: len(sources),
		ChunkCount:  a.records,
		Complete:    true,
		ScannedAt:   a.now().UTC(),
	}
}

// SourceIdentity prefers source_id, then source, then the file name joined to
// its directory.
func SourceIdentity(rec models.RawMetadataRecord) string {
	if id := stringValue(rec[models.KeySourceID]); id != "" {
		return Normalize(id)
	}
	if src := stringValue(rec[models.KeySource]); src != "" {
		return Normalize(src)
	}
	name := stringValue(rec[models.KeyFileName])
	dir := stringValue(rec[models.KeyAbsoluteDirectoryPath])
	if name == "" {
		return UnknownSource
	}
	if dir == "" {
		return Normalize(name)
	}
	if strings.Contains(dir, "://") {
		return Normalize(strings.TrimSuffix(dir, "/") + "/" + name)
	}
	return Normalize(path.Join(strings.ReplaceAll(dir, `\`, "/"), name))
}

// Normalize canonicalises a source identifier: URLs get a lowercase scheme and
// host and lose a trailing slash, paths are slash-cleaned.
func Normalize(id string) string {
	id = strings.TrimSpace(id)
	if id == "" {
		return UnknownSource
	}
	if u, err := url.Parse(id); err == nil && u.Scheme != "" && u.Host != "" {
		u.Scheme = strings.ToLower(u.Scheme)
		u.Host = strings.ToLower(u.Host)
		u.Fragment, u.RawFragment = "", ""
		out := u.String()
		if len(out) > len(u.Scheme)+3+len(u.Host) {
			out = strings.TrimSuffix(out, "/")
		}
		return out
	}
	if strings.ContainsAny(id, `/\`) {
		return path.Clean(strings.ReplaceAll(id, `\`, "/"))
	}
	return id
}

func stringValue(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(s)
	default:
		return strings.TrimSpace(fmt.Sprint(s))
	}
}
