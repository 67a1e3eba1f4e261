package ingestion_engine

import (
	"context"
	"strings"

	"github.com/markdave123-py/contexta-sources/internal/core"
	"github.com/markdave123-py/contexta-sources/internal/models"
)

// DocumentBuilder parses a fetched item and enriches the result.
// Every storage iterator funnels its items through one builder.
type DocumentBuilder struct {
	fileType string
	parser   core.DocumentParser
	enricher *MetadataEnricher
}

// NewDocumentBuilder resolves the parser for fileType up front, so an unknown
// tag fails before any backend is touched.
func NewDocumentBuilder(fileType string, enricher *MetadataEnricher) (*DocumentBuilder, error) {
	parser, err := ParserFor(fileType)
	if err != nil {
		return nil, err
	}
	if enricher == nil {
		enricher = NewMetadataEnricher()
	}
	return &DocumentBuilder{
		fileType: strings.ToLower(strings.TrimSpace(fileType)),
		parser:   parser,
		enricher: enricher,
	}, nil
}

func (b *DocumentBuilder) FileType() string {
	return b.fileType
}

// Build returns a *core.BlankDocumentError for empty text and a *core.ParseError
// when parsing or enrichment fails.
func (b *DocumentBuilder) Build(ctx context.Context, item *models.StorageItem) (*models.Document, error) {
	parsed, err := b.parser.Parse(ctx, item.Data, item.ContentType)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &core.ParseError{Key: item.Key, Err: err}
	}
	if strings.TrimSpace(parsed.Text) == "" {
		return nil, &core.BlankDocumentError{Key: item.Key}
	}

	doc := &models.Document{RawText: parsed.Text, Metadata: models.NewMetadata()}
	if err := b.enricher.Enrich(doc, item, b.fileType, parsed.Meta); err != nil {
		return nil, &core.ParseError{Key: item.Key, Err: err}
	}
	return doc, nil
}
