package encoder

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DRSN-tech/visual-search/internal/cfg"
	"github.com/DRSN-tech/visual-search/internal/domain"
	"github.com/DRSN-tech/visual-search/pkg/e"
	"github.com/DRSN-tech/visual-search/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newInferenceStub(t *testing.T, dim int, embed http.HandlerFunc) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/model", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(modelInfoResponse{ModelVersion: "mobilenet_v2", Dim: dim})
	})
	mux.HandleFunc("/v1/embed", embed)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestEncoder(addr string) *Encoder {
	return NewEncoder(&cfg.EncoderCfg{
		Addr:          addr,
		MaxConcurrent: 2,
		Timeout:       5 * time.Second,
	}, logger.NewSlogLogger())
}

func testTensor() *domain.Tensor {
	return domain.NewTensor(make([]float32, 2*2*3), 2, 2, 3)
}

func TestInitHandshake(t *testing.T) {
	srv := newInferenceStub(t, 4, func(w http.ResponseWriter, r *http.Request) {})

	enc := newTestEncoder(srv.URL)
	assert.Zero(t, enc.Dim())

	require.NoError(t, enc.Init(context.Background()))
	assert.Equal(t, 4, enc.Dim())
	assert.Equal(t, "mobilenet_v2", enc.ModelVersion())
}

func TestInitFailsWhenServiceUnreachable(t *testing.T) {
	enc := newTestEncoder("http://127.0.0.1:1")
	assert.Error(t, enc.Init(context.Background()))
}

func TestInitRejectsInvalidDimension(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/model", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(modelInfoResponse{ModelVersion: "broken", Dim: 0})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	assert.Error(t, newTestEncoder(srv.URL).Init(context.Background()))
}

func TestEmbedTensor(t *testing.T) {
	srv := newInferenceStub(t, 3, func(w http.ResponseWriter, r *http.Request) {
		var req embedRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, []int{2, 2, 3}, req.Shape)
		assert.Len(t, req.Data, 12)

		json.NewEncoder(w).Encode(embedResponse{Vector: []float32{0.1, 0.2, 0.3}, ModelVersion: "mobilenet_v2"})
	})

	enc := newTestEncoder(srv.URL)
	require.NoError(t, enc.Init(context.Background()))

	res, err := enc.EmbedTensor(context.Background(), testTensor())
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, res.Vector)
	assert.Equal(t, "mobilenet_v2", res.ModelVersion)
}

func TestEmbedTensorRejectsInvalidTensor(t *testing.T) {
	srv := newInferenceStub(t, 3, func(w http.ResponseWriter, r *http.Request) {})
	enc := newTestEncoder(srv.URL)

	_, err := enc.EmbedTensor(context.Background(), nil)
	assert.ErrorIs(t, err, e.ErrEncodingFailed)

	// Данных меньше, чем заявляет форма
	_, err = enc.EmbedTensor(context.Background(), domain.NewTensor([]float32{1}, 2, 2, 3))
	assert.ErrorIs(t, err, e.ErrEncodingFailed)
}

func TestEmbedTensorServiceErrorIsEncodingFailure(t *testing.T) {
	srv := newInferenceStub(t, 3, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	enc := newTestEncoder(srv.URL)
	require.NoError(t, enc.Init(context.Background()))

	_, err := enc.EmbedTensor(context.Background(), testTensor())
	assert.ErrorIs(t, err, e.ErrEncodingFailed)
}

func TestEmbedTensorRejectsDimensionDrift(t *testing.T) {
	srv := newInferenceStub(t, 3, func(w http.ResponseWriter, r *http.Request) {
		// Сервис внезапно отвечает вектором другой размерности
		json.NewEncoder(w).Encode(embedResponse{Vector: []float32{0.1, 0.2}, ModelVersion: "mobilenet_v2"})
	})

	enc := newTestEncoder(srv.URL)
	require.NoError(t, enc.Init(context.Background()))

	_, err := enc.EmbedTensor(context.Background(), testTensor())
	assert.ErrorIs(t, err, e.ErrDimensionMismatch)
}

func TestEmbedTensorHonorsContextCancellation(t *testing.T) {
	srv := newInferenceStub(t, 3, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(embedResponse{Vector: []float32{0.1, 0.2, 0.3}})
	})

	enc := newTestEncoder(srv.URL)
	require.NoError(t, enc.Init(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := enc.EmbedTensor(ctx, testTensor())
	assert.Error(t, err)
}
