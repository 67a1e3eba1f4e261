package cursor

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markdave123-py/contexta-sources/internal/core"
	"github.com/markdave123-py/contexta-sources/internal/models"
)

type searchServer struct {
	mu       sync.Mutex
	total    int
	withLink bool
	queries  []string
	srv      *httptest.Server
}

func newSearchServer(t *testing.T, total int, withLink bool) *searchServer {
	s := &searchServer{total: total, withLink: withLink}
	s.srv = httptest.NewServer(http.HandlerFunc(s.handle))
	t.Cleanup(s.srv.Close)
	return s
}

func (s *searchServer) handle(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.queries = append(s.queries, r.URL.RawQuery)
	s.mu.Unlock()

	if r.Header.Get("api-key") != "secret" {
		w.WriteHeader(http.StatusForbidden)
		return
	}
	q := r.URL.Query()
	top, _ := strconv.Atoi(q.Get("$top"))
	skip, _ := strconv.Atoi(q.Get("$skip"))

	var value []map[string]any
	for i := skip; i < skip+top && i < s.total; i++ {
		meta, _ := json.Marshal(map[string]any{"source": "doc" + strconv.Itoa(i/3), "index": i})
		value = append(value, map[string]any{"id": strconv.Itoa(i), "metadata": string(meta)})
	}
	body := map[string]any{"value": value}
	if s.withLink && skip+top < s.total {
		next := *r.URL
		nq := next.Query()
		nq.Set("$skip", strconv.Itoa(skip+top))
		next.RawQuery = nq.Encode()
		body["@odata.nextLink"] = s.srv.URL + next.String()
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(body)
}

func TestRESTCursor(t *testing.T) {
	t.Run("Should advance skip when there is no next link", func(t *testing.T) {
		srv := newSearchServer(t, 25, false)
		c := NewRESTCursor(NewSearchClient(srv.srv.URL, "secret"), "chunks", "metadata", 10)

		all := drainCursor(t, c)

		require.Len(t, all, 25)
		assert.Equal(t, "doc0", all[0]["source"])
		assert.Len(t, srv.queries, 3)
		assert.Contains(t, srv.queries[0], "%24select=id%2Cmetadata")
		assert.Contains(t, srv.queries[2], "%24skip=20")
	})

	t.Run("Should follow next links", func(t *testing.T) {
		srv := newSearchServer(t, 25, true)
		c := NewRESTCursor(NewSearchClient(srv.srv.URL, "secret"), "chunks", "metadata", 10)

		all := drainCursor(t, c)

		assert.Len(t, all, 25)
		assert.Len(t, srv.queries, 3)
	})

	t.Run("Should need one extra call when the last page is full", func(t *testing.T) {
		srv := newSearchServer(t, 20, false)
		c := NewRESTCursor(NewSearchClient(srv.srv.URL, "secret"), "chunks", "metadata", 10)

		all := drainCursor(t, c)

		assert.Len(t, all, 20)
		assert.Len(t, srv.queries, 3)
	})

	t.Run("Should follow a next link carried by an empty page", func(t *testing.T) {
		calls := 0
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls++
			w.Header().Set("Content-Type", "application/json")
			if r.URL.Path != "/continued" {
				_, _ = w.Write([]byte(`{"value":[],"@odata.nextLink":"` + "http://" + r.Host + `/continued"}`))
				return
			}
			_, _ = w.Write([]byte(`{"value":[{"id":"1","metadata":{"source":"late.pdf"}},{"id":"2","metadata":{"source":"late.pdf"}}]}`))
		}))
		t.Cleanup(srv.Close)
		c := NewRESTCursor(NewSearchClient(srv.URL, "secret"), "chunks", "metadata", 10)

		all := drainCursor(t, c)

		require.Len(t, all, 2)
		assert.Equal(t, "late.pdf", all[0]["source"])
		assert.Equal(t, 2, calls)
	})

	t.Run("Should surface HTTP errors as backend errors", func(t *testing.T) {
		srv := newSearchServer(t, 5, false)
		c := NewRESTCursor(NewSearchClient(srv.srv.URL, "wrong"), "chunks", "metadata", 10)

		_, err := c.Advance(context.Background())

		var be *core.BackendError
		require.ErrorAs(t, err, &be)
		assert.Equal(t, models.StoreAzureSearch, be.Backend)
		assert.ErrorContains(t, err, "403")
	})
}

func TestRESTCursor_MetadataShapes(t *testing.T) {
	c := NewRESTCursor(nil, "idx", "metadata", 10)
	ctx := context.Background()

	t.Run("Should read a complex attributes field", func(t *testing.T) {
		doc := map[string]json.RawMessage{"metadata": json.RawMessage(`{"attributes":[{"key":"source","value":"a.pdf"},{"key":"index","value":"3"}]}`)}

		rec := c.metadataOf(ctx, doc)

		assert.Equal(t, models.RawMetadataRecord{"source": "a.pdf", "index": "3"}, rec)
	})

	t.Run("Should read a plain object", func(t *testing.T) {
		rec := c.metadataOf(ctx, map[string]json.RawMessage{"metadata": json.RawMessage(`{"source":"b"}`)})
		assert.Equal(t, "b", rec["source"])
	})

	t.Run("Should return an empty record for null or missing metadata", func(t *testing.T) {
		assert.Empty(t, c.metadataOf(ctx, map[string]json.RawMessage{"metadata": json.RawMessage(`null`)}))
		assert.Empty(t, c.metadataOf(ctx, map[string]json.RawMessage{"id": json.RawMessage(`"1"`)}))
	})
}
