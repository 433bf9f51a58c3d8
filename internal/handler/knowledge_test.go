package handler_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/agentforge/internal/handler"
	"github.com/sakif/agentforge/internal/model"
	"github.com/sakif/agentforge/internal/repository/sqlite"
	"github.com/sakif/agentforge/internal/service"
)

func newKnowledgeService(t *testing.T) *service.KnowledgeService {
	t.Helper()
	db, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return service.NewKnowledgeService(db.Documents(), testLogger())
}

func addDocument(t *testing.T, h *handler.KnowledgeHandler, body string) *model.Document {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/documents", bytes.NewBufferString(body))
	rr := httptest.NewRecorder()
	h.HandleAdd(rr, req)
	require.Equal(t, http.StatusCreated, rr.Code)

	var doc model.Document
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&doc))
	return &doc
}

func TestKnowledgeHandler(t *testing.T) {
	logger := testLogger()

	t.Run("add and list", func(t *testing.T) {
		h := handler.NewKnowledgeHandler(newKnowledgeService(t), logger)

		doc := addDocument(t, h, `{"content":"streamlit needs a main script","kind":"Documentation"}`)
		assert.NotEmpty(t, doc.ID)
		assert.Equal(t, "Documentation", doc.Kind)

		req := httptest.NewRequest(http.MethodGet, "/api/documents", nil)
		rr := httptest.NewRecorder()
		h.HandleList(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		var docs []model.Document
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&docs))
		assert.Len(t, docs, 1)
	})

	t.Run("search via query parameter", func(t *testing.T) {
		h := handler.NewKnowledgeHandler(newKnowledgeService(t), logger)
		addDocument(t, h, `{"content":"pandas DataFrame basics"}`)
		addDocument(t, h, `{"content":"weather api usage"}`)

		req := httptest.NewRequest(http.MethodGet, "/api/documents?q=weather", nil)
		rr := httptest.NewRecorder()
		h.HandleList(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		var docs []model.Document
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&docs))
		require.Len(t, docs, 1)
		assert.Contains(t, docs[0].Content, "weather")
	})

	t.Run("empty content", func(t *testing.T) {
		h := handler.NewKnowledgeHandler(newKnowledgeService(t), logger)

		req := httptest.NewRequest(http.MethodPost, "/api/documents", bytes.NewBufferString(`{"content":""}`))
		rr := httptest.NewRecorder()
		h.HandleAdd(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("delete", func(t *testing.T) {
		h := handler.NewKnowledgeHandler(newKnowledgeService(t), logger)
		doc := addDocument(t, h, `{"content":"delete me"}`)

		req := httptest.NewRequest(http.MethodDelete, "/api/documents/"+doc.ID, nil)
		req.SetPathValue("id", doc.ID)
		rr := httptest.NewRecorder()
		h.HandleDelete(rr, req)

		assert.Equal(t, http.StatusNoContent, rr.Code)

		req = httptest.NewRequest(http.MethodDelete, "/api/documents/"+doc.ID, nil)
		req.SetPathValue("id", doc.ID)
		rr = httptest.NewRecorder()
		h.HandleDelete(rr, req)

		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}
