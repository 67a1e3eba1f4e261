package ingestion_engine

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/markdave123-py/contexta-sources/internal/core"
	"github.com/markdave123-py/contexta-sources/internal/models"
)

// File-type tags accepted by the storage scans.
const (
	FileTypeText  = "text"
	FileTypeCrawl = "crawl"
	FileTypeURL   = "url"
	FileTypeAny   = "any"
)

var _ core.DocumentParser = PlainTextParser{}

// PlainTextParser returns the bytes as text.
type PlainTextParser struct{}

func (PlainTextParser) Parse(_ context.Context, data []byte, _ string) (*models.ParsedContent, error) {
	if !utf8.Valid(data) {
		return &models.ParsedContent{Text: strings.ToValidUTF8(string(data), "�")}, nil
	}
	return &models.ParsedContent{Text: string(data)}, nil
}

// ParserFor maps a file-type tag to its parsing strategy. It performs no I/O.
func ParserFor(fileType string) (core.DocumentParser, error) {
	switch strings.ToLower(strings.TrimSpace(fileType)) {
	case FileTypeText, FileTypeCrawl, FileTypeURL:
		return PlainTextParser{}, nil
	case FileTypeAny:
		return NewDocconvExtractor(false), nil
	default:
		return nil, core.UnsupportedFileType(fileType)
	}
}
