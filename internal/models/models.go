package models

import "time"

// Well-known metadata keys shared with the vector stores.
const (
	KeyFileName              = "file_name"
	KeyFileType              = "file_type"
	KeyMediaType             = "media_type"
	KeyMimeType              = "mime_type"
	KeyAbsoluteDirectoryPath = "absolute_directory_path"
	KeyURL                   = "url"
	KeySource                = "source"
	KeySourceID              = "source_id"
	KeyTitle                 = "title"
	KeyIngestionDatetime     = "ingestion_datetime"
	KeyIngestionTimestamp    = "ingestion_timestamp"
	KeyIndex                 = "index"
)

// Document is one parsed storage item with its enriched metadata.
type Document struct {
	RawText  string    `json:"text"`
	Metadata *Metadata `json:"metadata"`
}

// ParsedContent is what a DocumentParser extracts from raw bytes.
type ParsedContent struct {
	Text string
	Meta map[string]string
}

// StorageItem is a fetched, not yet parsed, storage entry.
type StorageItem struct {
	Key         string
	Name        string
	Directory   string
	Source      string
	URL         string
	ContentType string
	Data        []byte
}

// ObjectPage is one page of an object-store listing.
type ObjectPage struct {
	Keys      []string
	NextToken string
}

// RawMetadataRecord is the backend-native metadata of one stored chunk.
type RawMetadataRecord map[string]any

type SourceSummary struct {
	SourceID   string         `json:"source_id"`
	Attributes map[string]any `json:"attributes"`
	ChunkCount int            `json:"chunk_count"`
}

// SourceInventory is the transient result of one store scan.
type SourceInventory struct {
	StoreName   string          `json:"store_name"`
	Backend     string          `json:"backend"`
	Sources     []SourceSummary `json:"sources"`
	SourceCount int             `json:"source_count"`
	ChunkCount  int             `json:"chunk_count"`
	Complete    bool            `json:"complete"`
	Dimension   int             `json:"dimension,omitempty"`
	ScannedAt   time.Time       `json:"scanned_at"`
}

type ItemError struct {
	Key     string `json:"key"`
	Message string `json:"message"`
}

type Entry[T any] struct {
	Item       T              `json:"item"`
	Attributes map[string]any `json:"attributes"`
}

// Page is one externally sized page of a scan. An empty page means the scan is over.
type Page[T any] struct {
	Entries []Entry[T]  `json:"items"`
	Errors  []ItemError `json:"errors,omitempty"`
}

func (p *Page[T]) HasMore() bool {
	return p != nil && len(p.Entries) > 0
}
