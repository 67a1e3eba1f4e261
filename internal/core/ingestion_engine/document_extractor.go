package ingestion_engine

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"code.sajari.com/docconv"
	"github.com/gabriel-vasile/mimetype"

	"github.com/markdave123-py/contexta-sources/internal/core"
	"github.com/markdave123-py/contexta-sources/internal/models"
)

var _ core.DocumentParser = (*DocconvExtractor)(nil)

// DocconvExtractor is the generic content-extraction parser (PDF, DOCX, HTML, ...).
type DocconvExtractor struct {
	useReadability bool
}

func NewDocconvExtractor(useReadability bool) *DocconvExtractor {
	return &DocconvExtractor{useReadability: useReadability}
}

// bareMediaType drops parameters such as charset; docconv matches the bare type only.
func bareMediaType(ct string) string {
	ct, _, _ = strings.Cut(ct, ";")
	return strings.ToLower(strings.TrimSpace(ct))
}

// Parse extracts the document body. When contentType is empty it is sniffed from data.
func (e *DocconvExtractor) Parse(ctx context.Context, data []byte, contentType string) (*models.ParsedContent, error) {
	contentType = bareMediaType(contentType)
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = bareMediaType(mimetype.Detect(data).String())
	}

	res, err := docconv.Convert(bytes.NewReader(data), contentType, e.useReadability)
	if err != nil {
		return nil, fmt.Errorf("docconv %s: %w", contentType, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return &models.ParsedContent{Text: res.Body, Meta: res.Meta}, nil
}
