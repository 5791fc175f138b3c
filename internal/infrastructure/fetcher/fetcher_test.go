package fetcher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/DRSN-tech/visual-search/internal/cfg"
	"github.com/DRSN-tech/visual-search/pkg/e"
	"github.com/DRSN-tech/visual-search/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Сигнатуры PNG достаточно для определения типа содержимого
var pngBytes = []byte("\x89PNG\r\n\x1a\nrest of the image")

func newTestFetcher(maxRetries int, maxBytes int64) *Fetcher {
	return NewFetcher(&cfg.FetcherCfg{
		Timeout:    5 * time.Second,
		MaxRetries: maxRetries,
		MaxBytes:   maxBytes,
	}, logger.NewSlogLogger())
}

func TestFetchImageSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(pngBytes)
	}))
	defer srv.Close()

	data, err := newTestFetcher(2, 1<<20).FetchImage(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, pngBytes, data)
}

func TestFetchImageRejectsBadURLs(t *testing.T) {
	f := newTestFetcher(2, 1<<20)

	for _, raw := range []string{"", "not a url", "ftp://example.com/a.jpg", "http://"} {
		_, err := f.FetchImage(context.Background(), raw)
		assert.ErrorIs(t, err, e.ErrInvalidURL, raw)
	}
}

func TestFetchImageDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := newTestFetcher(3, 1<<20).FetchImage(context.Background(), srv.URL)
	assert.ErrorIs(t, err, e.ErrFetchFailed)
	assert.Equal(t, int32(1), calls.Load())
}

func TestFetchImageRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write(pngBytes)
	}))
	defer srv.Close()

	data, err := newTestFetcher(3, 1<<20).FetchImage(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, pngBytes, data)
	assert.Equal(t, int32(3), calls.Load())
}

func TestFetchImageGivesUpAfterMaxRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := newTestFetcher(2, 1<<20).FetchImage(context.Background(), srv.URL)
	assert.ErrorIs(t, err, e.ErrFetchFailed)
	assert.Equal(t, int32(3), calls.Load()) // первая попытка + два повтора
}

func TestFetchImageRejectsNonImageContent(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		// Заголовок врёт, содержимое — HTML
		w.Header().Set("Content-Type", "image/png")
		w.Write([]byte("<html><body>not an image</body></html>"))
	}))
	defer srv.Close()

	_, err := newTestFetcher(3, 1<<20).FetchImage(context.Background(), srv.URL)
	assert.ErrorIs(t, err, e.ErrFetchFailed)
	assert.Equal(t, int32(1), calls.Load())
}

func TestFetchImageRejectsOversizedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(pngBytes)
	}))
	defer srv.Close()

	_, err := newTestFetcher(2, 4).FetchImage(context.Background(), srv.URL)
	assert.ErrorIs(t, err, e.ErrFileTooLarge)
}

func TestFetchImageRejectsEmptyBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	_, err := newTestFetcher(2, 1<<20).FetchImage(context.Background(), srv.URL)
	assert.ErrorIs(t, err, e.ErrFetchFailed)
}
