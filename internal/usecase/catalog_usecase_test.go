package usecase

import (
	"context"
	"testing"

	"github.com/DRSN-tech/visual-search/internal/domain"
	"github.com/DRSN-tech/visual-search/pkg/e"
	"github.com/DRSN-tech/visual-search/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type catalogIndex struct {
	ready    bool
	products []domain.Product
}

func (c *catalogIndex) Search(query []float32, threshold float64, topK int) ([]RankedProduct, error) {
	return nil, nil
}

func (c *catalogIndex) Products() ([]domain.Product, error) {
	if !c.ready {
		return nil, e.ErrStoreUnavailable
	}
	return c.products, nil
}

func (c *catalogIndex) Dim() (int, error) { return 2, nil }
func (c *catalogIndex) Ready() bool       { return c.ready }

func catalogProduct(id, category string, available bool) domain.Product {
	return *domain.NewProduct(id, "product "+id, category, "acme", 100, "RUB", available, "", id+".jpg")
}

func newCatalogIndex() *catalogIndex {
	return &catalogIndex{
		ready: true,
		products: []domain.Product{
			catalogProduct("p1", "Shoes", true),
			catalogProduct("p2", "Bags", false),
			catalogProduct("p3", "shoes", true),
			catalogProduct("p4", "Watches", true),
		},
	}
}

func TestGetProductsReturnsCatalogOrder(t *testing.T) {
	uc := NewCatalogUC(newCatalogIndex(), &stubEncoder{vector: []float32{1, 0}}, logger.NewSlogLogger())

	res, err := uc.GetProducts(context.Background(), NewGetProductsReq("", nil, 0))
	require.NoError(t, err)
	require.Equal(t, 4, res.Total)
	assert.Equal(t, "p1", res.Products[0].ID)
	assert.Equal(t, "p4", res.Products[3].ID)
}

func TestGetProductsFiltersByCategoryCaseInsensitive(t *testing.T) {
	uc := NewCatalogUC(newCatalogIndex(), &stubEncoder{vector: []float32{1, 0}}, logger.NewSlogLogger())

	res, err := uc.GetProducts(context.Background(), NewGetProductsReq("SHOES", nil, 0))
	require.NoError(t, err)
	require.Equal(t, 2, res.Total)
	assert.Equal(t, "p1", res.Products[0].ID)
	assert.Equal(t, "p3", res.Products[1].ID)

	// "all" — без фильтра
	res, err = uc.GetProducts(context.Background(), NewGetProductsReq("all", nil, 0))
	require.NoError(t, err)
	assert.Equal(t, 4, res.Total)
}

func TestGetProductsFiltersByAvailability(t *testing.T) {
	uc := NewCatalogUC(newCatalogIndex(), &stubEncoder{vector: []float32{1, 0}}, logger.NewSlogLogger())

	unavailable := false
	res, err := uc.GetProducts(context.Background(), NewGetProductsReq("", &unavailable, 0))
	require.NoError(t, err)
	require.Equal(t, 1, res.Total)
	assert.Equal(t, "p2", res.Products[0].ID)
}

func TestGetProductsAppliesLimit(t *testing.T) {
	uc := NewCatalogUC(newCatalogIndex(), &stubEncoder{vector: []float32{1, 0}}, logger.NewSlogLogger())

	res, err := uc.GetProducts(context.Background(), NewGetProductsReq("", nil, 2))
	require.NoError(t, err)
	assert.Equal(t, 2, res.Total)
}

func TestGetProductsStoreUnavailable(t *testing.T) {
	uc := NewCatalogUC(&catalogIndex{ready: false}, &stubEncoder{vector: []float32{1, 0}}, logger.NewSlogLogger())

	_, err := uc.GetProducts(context.Background(), NewGetProductsReq("", nil, 0))
	assert.ErrorIs(t, err, e.ErrStoreUnavailable)
}

func TestGetCategoriesUniqueSortedWithAllFirst(t *testing.T) {
	uc := NewCatalogUC(newCatalogIndex(), &stubEncoder{vector: []float32{1, 0}}, logger.NewSlogLogger())

	res, err := uc.GetCategories(context.Background())
	require.NoError(t, err)

	// Категории различаются регистром — обе попадают в список, как в каталоге
	assert.Equal(t, []string{"All", "Bags", "Shoes", "Watches", "shoes"}, res.Categories)
}

func TestHealthStatuses(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		uc := NewCatalogUC(newCatalogIndex(), &stubEncoder{vector: []float32{1, 0}}, logger.NewSlogLogger())

		res := uc.Health(context.Background())
		assert.Equal(t, "healthy", res.Status)
		assert.True(t, res.StoreLoaded)
		assert.True(t, res.EncoderReady)
		assert.Equal(t, 4, res.Products)
	})

	t.Run("degraded without store", func(t *testing.T) {
		uc := NewCatalogUC(&catalogIndex{ready: false}, &stubEncoder{vector: []float32{1, 0}}, logger.NewSlogLogger())

		res := uc.Health(context.Background())
		assert.Equal(t, "degraded", res.Status)
		assert.False(t, res.StoreLoaded)
		assert.Zero(t, res.Products)
	})

	t.Run("degraded without encoder", func(t *testing.T) {
		uc := NewCatalogUC(newCatalogIndex(), &stubEncoder{}, logger.NewSlogLogger())

		res := uc.Health(context.Background())
		assert.Equal(t, "degraded", res.Status)
		assert.False(t, res.EncoderReady)
	})
}
