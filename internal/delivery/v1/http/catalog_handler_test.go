package http

import (
	"context"
	"encoding/json"
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

type stubCatalogUC struct {
	products   *usecase.GetProductsRes
	productErr error
	categories *usecase.GetCategoriesRes
	health     *usecase.HealthRes
	gotReq     *usecase.GetProductsReq
}

func (s *stubCatalogUC) GetProducts(ctx context.Context, req *usecase.GetProductsReq) (*usecase.GetProductsRes, error) {
	s.gotReq = req
	return s.products, s.productErr
}

func (s *stubCatalogUC) GetCategories(ctx context.Context) (*usecase.GetCategoriesRes, error) {
	return s.categories, s.productErr
}

func (s *stubCatalogUC) Health(ctx context.Context) *usecase.HealthRes {
	return s.health
}

func TestGetProductsHandler(t *testing.T) {
	uc := &stubCatalogUC{
		products: &usecase.GetProductsRes{
			Products: []usecase.ProductInfo{{ID: "p1", Price: 9999}},
			Total:    1,
		},
	}
	handler := NewCatalogHandler(uc, logger.NewSlogLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/products?category=shoes&available=true&limit=10", nil)
	rec := httptest.NewRecorder()

	handler.getProducts(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp ProductsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Total)
	require.Len(t, resp.Products, 1)
	assert.Equal(t, "99.99", resp.Products[0].Price)

	require.NotNil(t, uc.gotReq)
	assert.Equal(t, "shoes", uc.gotReq.Category)
	require.NotNil(t, uc.gotReq.Available)
	assert.True(t, *uc.gotReq.Available)
	assert.Equal(t, 10, uc.gotReq.Limit)
}

func TestGetProductsHandlerRejectsBadQuery(t *testing.T) {
	handler := NewCatalogHandler(&stubCatalogUC{}, logger.NewSlogLogger())

	for _, target := range []string{
		"/api/v1/products?available=maybe",
		"/api/v1/products?limit=ten",
		"/api/v1/products?limit=-5",
	} {
		rec := httptest.NewRecorder()
		handler.getProducts(rec, httptest.NewRequest(http.MethodGet, target, nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
	}
}

func TestGetProductsHandlerStoreUnavailable(t *testing.T) {
	handler := NewCatalogHandler(&stubCatalogUC{productErr: e.ErrStoreUnavailable}, logger.NewSlogLogger())

	rec := httptest.NewRecorder()
	handler.getProducts(rec, httptest.NewRequest(http.MethodGet, "/api/v1/products", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestGetCategoriesHandler(t *testing.T) {
	handler := NewCatalogHandler(&stubCatalogUC{
		categories: &usecase.GetCategoriesRes{Categories: []string{"All", "Shoes"}},
	}, logger.NewSlogLogger())

	rec := httptest.NewRecorder()
	handler.getCategories(rec, httptest.NewRequest(http.MethodGet, "/api/v1/categories", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var resp CategoriesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, []string{"All", "Shoes"}, resp.Categories)
}

func TestHealthHandler(t *testing.T) {
	handler := NewCatalogHandler(&stubCatalogUC{
		health: &usecase.HealthRes{
			Status:       "healthy",
			StoreLoaded:  true,
			EncoderReady: true,
			Products:     42,
			Timestamp:    time.Now().UTC(),
		},
	}, logger.NewSlogLogger())

	rec := httptest.NewRecorder()
	handler.health(rec, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, 42, resp.Products)
}
