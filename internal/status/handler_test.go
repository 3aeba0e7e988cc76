package status

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kiosk-gateway/internal/documentstore"
)

type stubLister struct {
	list *documentstore.CollectionList
	err  error
}

func (s stubLister) ListCollections(context.Context) (*documentstore.CollectionList, error) {
	return s.list, s.err
}

func serve(t *testing.T, lister CollectionLister, method, path string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	r := chi.NewRouter()
	New(lister, slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))).Register(r)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(method, path, nil))

	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return rec, out
}

func TestStatusPage(t *testing.T) {
	rec, out := serve(t, stubLister{}, http.MethodGet, "/")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, StatusActive, out["status"])
	assert.Len(t, out["features"], 4)
	endpoints, ok := out["endpoints"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, endpoints, "dispense_verification")
	assert.Contains(t, endpoints, "test_database")
}

func TestTestDatabase(t *testing.T) {
	t.Run("lists collections", func(t *testing.T) {
		lister := stubLister{list: &documentstore.CollectionList{Total: 2, Names: []string{"customers", "transactions"}}}
		rec, out := serve(t, lister, http.MethodPost, "/test-database")

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, StatusDBSuccess, out["status"])
		assert.Equal(t, 2.0, out["collections_found"])
		assert.Equal(t, []any{"customers", "transactions"}, out["collection_names"])
	})

	t.Run("empty database still reports zero", func(t *testing.T) {
		lister := stubLister{list: &documentstore.CollectionList{Total: 0, Names: []string{}}}
		_, out := serve(t, lister, http.MethodPost, "/test-database")
		assert.Equal(t, 0.0, out["collections_found"])
	})

	t.Run("backend failure is a 500", func(t *testing.T) {
		lister := stubLister{err: &documentstore.Error{Op: documentstore.OpListCollections, Status: 401, Message: "Invalid API key"}}
		rec, out := serve(t, lister, http.MethodPost, "/test-database")

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Equal(t, StatusDBError, out["status"])
		assert.Equal(t, "HTTP 401: Invalid API key", out["error"])
	})
}
