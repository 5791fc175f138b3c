package http

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DRSN-tech/visual-search/internal/usecase"
	"github.com/DRSN-tech/visual-search/pkg/e"
	"github.com/DRSN-tech/visual-search/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSearchUC struct {
	res    *usecase.SearchRes
	err    error
	gotReq *usecase.SearchReq
}

func (s *stubSearchUC) Search(ctx context.Context, req *usecase.SearchReq) (*usecase.SearchRes, error) {
	s.gotReq = req
	return s.res, s.err
}

func multipartRequest(t *testing.T, fields map[string]string, fileField, fileName string, fileData []byte) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if fileField != "" {
		fw, err := w.CreateFormFile(fileField, fileName)
		require.NoError(t, err)
		_, err = fw.Write(fileData)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/search", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func okSearchRes() *usecase.SearchRes {
	return &usecase.SearchRes{
		QueryID: "q-1",
		Results: []usecase.SearchResult{
			{Product: usecase.ProductInfo{ID: "p1", Price: 100}, Similarity: 0.91, SimilarityPercentage: 91.0},
		},
		Total:     1,
		TookMs:    7,
		Timestamp: time.Now().UTC(),
	}
}

func TestSearchHandlerReturnsResults(t *testing.T) {
	uc := &stubSearchUC{res: okSearchRes()}
	handler := NewSearchHandler(uc, logger.NewSlogLogger())

	req := multipartRequest(t, map[string]string{
		"top_k":                "5",
		"similarity_threshold": "0.3",
	}, "file", "query.jpg", []byte("image bytes"))
	rec := httptest.NewRecorder()

	handler.searchSimilar(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp SearchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "q-1", resp.QueryID)
	assert.Equal(t, 1, resp.TotalResults)

	require.NotNil(t, uc.gotReq)
	assert.Equal(t, []byte("image bytes"), uc.gotReq.FileData)
	assert.Equal(t, "query.jpg", uc.gotReq.FileName)
	assert.Equal(t, 5, uc.gotReq.TopK)
	assert.Equal(t, 0.3, uc.gotReq.Threshold)
}

func TestSearchHandlerPassesImageURL(t *testing.T) {
	uc := &stubSearchUC{res: okSearchRes()}
	handler := NewSearchHandler(uc, logger.NewSlogLogger())

	req := multipartRequest(t, map[string]string{"image_url": "http://example.com/a.jpg"}, "", "", nil)
	rec := httptest.NewRecorder()

	handler.searchSimilar(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, uc.gotReq)
	assert.Empty(t, uc.gotReq.FileData)
	assert.Equal(t, "http://example.com/a.jpg", uc.gotReq.ImageURL)
}

func TestSearchHandlerRequiresMultipart(t *testing.T) {
	handler := NewSearchHandler(&stubSearchUC{}, logger.NewSlogLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/search", bytes.NewReader([]byte(`{"image_url":"x"}`)))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	handler.searchSimilar(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, e.ErrExpectedMultipart.Error(), resp.Message)
}

func TestSearchHandlerRejectsBadTopK(t *testing.T) {
	handler := NewSearchHandler(&stubSearchUC{}, logger.NewSlogLogger())

	req := multipartRequest(t, map[string]string{"top_k": "many"}, "", "", nil)
	rec := httptest.NewRecorder()

	handler.searchSimilar(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSearchHandlerMapsUsecaseErrors(t *testing.T) {
	cases := []struct {
		err  error
		code int
	}{
		{e.Wrap("SearchUseCase.Search", e.ErrNoImageProvided), http.StatusBadRequest},
		{e.Wrap("SearchUseCase.Search", e.ErrFetchFailed), http.StatusUnprocessableEntity},
		{e.Wrap("SearchUseCase.Search", e.ErrStoreUnavailable), http.StatusServiceUnavailable},
		{e.Wrap("SearchUseCase.Search", e.ErrEncodingFailed), http.StatusServiceUnavailable},
	}

	for _, tc := range cases {
		handler := NewSearchHandler(&stubSearchUC{err: tc.err}, logger.NewSlogLogger())

		req := multipartRequest(t, nil, "file", "q.jpg", []byte("img"))
		rec := httptest.NewRecorder()

		handler.searchSimilar(rec, req)
		assert.Equal(t, tc.code, rec.Code, tc.err.Error())
	}
}
