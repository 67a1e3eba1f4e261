package cursor

const (
	DefaultPageSize       = 100
	MaxPageSize           = 1000
	DefaultMetadataColumn = "metadata"
	DefaultVectorColumn   = "embedding"
)

func normalizePageSize(n int) int {
	switch {
	case n <= 0:
		return DefaultPageSize
	case n > MaxPageSize:
		return MaxPageSize
	default:
		return n
	}
}
