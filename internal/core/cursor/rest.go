package cursor

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/go-resty/resty/v2"

	"github.com/markdave123-py/contexta-sources/internal/core"
	"github.com/markdave123-py/contexta-sources/internal/logger"
	"github.com/markdave123-py/contexta-sources/internal/models"
)

const AzureSearchAPIVersion = "2024-07-01"

type searchPage struct {
	Value    []map[string]json.RawMessage `json:"value"`
	NextLink string                       `json:"@odata.nextLink"`
}

var _ core.PageCursor = (*RESTCursor)(nil)

// RESTCursor pages an Azure AI Search index with $top/$skip, following
// @odata.nextLink whenever the service returns one. The scan ends on a page
// that has no next link and is shorter than the page size.
type RESTCursor struct {
	client   *resty.Client
	index    string
	column   string
	pageSize int
	skip     int
	nextLink string
	done     bool
	closed   bool
}

// NewRESTCursor expects client to carry the service base URL and api-key header.
func NewRESTCursor(client *resty.Client, index, column string, pageSize int) *RESTCursor {
	if column == "" {
		column = DefaultMetadataColumn
	}
	return &RESTCursor{client: client, index: index, column: column, pageSize: normalizePageSize(pageSize)}
}

func (c *RESTCursor) Advance(ctx context.Context) ([]models.RawMetadataRecord, error) {
	if c.closed {
		return nil, core.ErrClosed
	}
	// An empty page that still carries a next link is not the end of the index.
	for !c.done {
		records, err := c.fetch(ctx)
		if err != nil {
			return nil, err
		}
		if len(records) > 0 {
			return records, nil
		}
	}
	return nil, nil
}

func (c *RESTCursor) fetch(ctx context.Context) ([]models.RawMetadataRecord, error) {
	var page searchPage
	req := c.client.R().SetContext(ctx).SetResult(&page)
	var (
		resp *resty.Response
		err  error
	)
	if c.nextLink != "" {
		resp, err = req.Get(c.nextLink)
	} else {
		resp, err = req.
			SetQueryParams(map[string]string{
				"api-version": AzureSearchAPIVersion,
				"$top":        strconv.Itoa(c.pageSize),
				"$skip":       strconv.Itoa(c.skip),
				"$select":     "id," + c.column,
			}).
			Get("/indexes/" + url.PathEscape(c.index) + "/docs")
	}
	if err != nil {
		return nil, core.NewBackendError(models.StoreAzureSearch, c.index, err)
	}
	if resp.IsError() {
		return nil, core.NewBackendError(models.StoreAzureSearch, c.index,
			fmt.Errorf("search returned %d: %s", resp.StatusCode(), truncate(resp.String(), 200)))
	}

	records := make([]models.RawMetadataRecord, 0, len(page.Value))
	for _, doc := range page.Value {
		records = append(records, c.metadataOf(ctx, doc))
	}

	c.skip += c.pageSize
	c.nextLink = page.NextLink
	if page.NextLink == "" && len(page.Value) < c.pageSize {
		c.done = true
	}
	logger.FromContext(ctx).Debug("search page fetched", "path", c.index, "records", len(records), "skip", c.skip, "next_link", page.NextLink != "")
	return records, nil
}

// metadataOf accepts the metadata column as a JSON object, a JSON-encoded
// string, or a {"attributes":[{"key":..,"value":..}]} complex field.
func (c *RESTCursor) metadataOf(ctx context.Context, doc map[string]json.RawMessage) models.RawMetadataRecord {
	raw, ok := doc[c.column]
	if !ok || string(raw) == "null" {
		return models.RawMetadataRecord{}
	}

	var encoded string
	if err := json.Unmarshal(raw, &encoded); err == nil {
		raw = json.RawMessage(encoded)
	}

	var complexField struct {
		Attributes []struct {
			Key   string `json:"key"`
			Value any    `json:"value"`
		} `json:"attributes"`
	}
	if err := json.Unmarshal(raw, &complexField); err == nil && len(complexField.Attributes) > 0 {
		rec := make(models.RawMetadataRecord, len(complexField.Attributes))
		for _, a := range complexField.Attributes {
			rec[a.Key] = a.Value
		}
		return rec
	}

	rec, err := decodeRecord(raw)
	if err != nil {
		logger.FromContext(ctx).Warn("undecodable search metadata", "backend", models.StoreAzureSearch, "path", c.index, "error", err)
		return models.RawMetadataRecord{}
	}
	return rec
}

func (c *RESTCursor) Close() error {
	c.closed = true
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
