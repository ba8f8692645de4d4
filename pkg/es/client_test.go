package es

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"docflow-go/internal/config"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPurger(t *testing.T, handler http.HandlerFunc) *IndexPurger {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	client, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{srv.URL}})
	require.NoError(t, err)
	return newIndexPurger(client, "knowledge_base")
}

func TestNewIndexPurger_Disabled(t *testing.T) {
	p, err := NewIndexPurger(config.ElasticsearchConfig{})
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestDeleteByDocumentID(t *testing.T) {
	var gotPath string
	var gotQuery map[string]interface{}
	p := newTestPurger(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &gotQuery)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"deleted": 3}`))
	})

	deleted, err := p.DeleteByDocumentID(context.Background(), "doc-1")
	require.NoError(t, err)
	assert.Equal(t, int64(3), deleted)
	assert.Equal(t, "/knowledge_base/_delete_by_query", gotPath)

	term := gotQuery["query"].(map[string]interface{})["term"].(map[string]interface{})
	assert.Equal(t, "doc-1", term["document_id"])
}

func TestDeleteByDocumentID_MissingIndex(t *testing.T) {
	p := newTestPurger(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":{"type":"index_not_found_exception"}}`))
	})

	deleted, err := p.DeleteByDocumentID(context.Background(), "doc-1")
	require.NoError(t, err)
	assert.Zero(t, deleted)
}

func TestDeleteByDocumentID_ServerError(t *testing.T) {
	p := newTestPurger(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"bad"}`))
	})

	_, err := p.DeleteByDocumentID(context.Background(), "doc-1")
	assert.Error(t, err)
}
