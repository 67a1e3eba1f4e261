package models

// Storage backends.
const (
	StorageLocal = "local"
	StorageS3    = "s3"
	StorageGCS   = "gcs"
)

// Vector store backends.
const (
	StoreMemory      = "memory"
	StorePgVector    = "pgvector"
	StoreS3          = "s3"
	StoreRedis       = "redis"
	StoreBadger      = "badger"
	StoreAzureSearch = "azure_search"
)

// StorageConfig selects a storage backend and the context path to enumerate.
// For object and blob storage the context path is Bucket plus Prefix.
type StorageConfig struct {
	Backend  string   `json:"backend" validate:"required,oneof=local s3 gcs"`
	Path     string   `json:"path" validate:"required_if=Backend local"`
	Bucket   string   `json:"bucket" validate:"required_unless=Backend local"`
	Prefix   string   `json:"prefix"`
	FileType string   `json:"file_type" validate:"required"`
	Include  []string `json:"include"`
	PageSize int      `json:"page_size" validate:"gte=0,lte=1000"`
}

// ContextPath renders the location a scan targets, for logs and errors.
func (c StorageConfig) ContextPath() string {
	switch c.Backend {
	case StorageLocal:
		return c.Path
	case StorageS3:
		return "s3://" + c.Bucket + "/" + c.Prefix
	case StorageGCS:
		return "gs://" + c.Bucket + "/" + c.Prefix
	default:
		return c.Path
	}
}

// StoreConfig selects a vector store and the collection whose metadata is scanned.
// StoreName is the table, index, bucket or key prefix depending on Backend.
type StoreConfig struct {
	Backend          string              `json:"backend" validate:"required,oneof=memory pgvector s3 redis badger azure_search"`
	StoreName        string              `json:"store_name" validate:"required"`
	MetadataColumn   string              `json:"metadata_column"`
	VectorColumn     string              `json:"vector_column"`
	Prefix           string              `json:"prefix"`
	PageSize         int                 `json:"page_size" validate:"gte=0,lte=1000"`
	BatchErrorPolicy string              `json:"batch_error_policy" validate:"omitempty,oneof=stop propagate"`
	Records          []RawMetadataRecord `json:"records,omitempty"`
}
