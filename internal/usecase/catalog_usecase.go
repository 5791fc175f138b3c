package usecase

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/DRSN-tech/visual-search/pkg/e"
	"github.com/DRSN-tech/visual-search/pkg/logger"
)

// CatalogUseCase отдаёт каталог из текущего снимка индекса.
// Каталог читается только из артефактов сборки: отдельного хранилища товаров нет.
type CatalogUseCase struct {
	index   VectorIndexRepository
	encoder EncoderInfra
	logger  logger.Logger
}

func NewCatalogUC(index VectorIndexRepository, encoder EncoderInfra, logger logger.Logger) *CatalogUseCase {
	return &CatalogUseCase{
		index:   index,
		encoder: encoder,
		logger:  logger,
	}
}

// GetProducts возвращает товары с фильтрацией по категории и доступности.
// Порядок — порядок каталога.
func (c *CatalogUseCase) GetProducts(ctx context.Context, req *GetProductsReq) (*GetProductsRes, error) {
	const op = "CatalogUseCase.GetProducts"

	products, err := c.index.Products()
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	category := strings.ToLower(strings.TrimSpace(req.Category))
	filterCategory := category != "" && category != "all"

	infos := make([]ProductInfo, 0, len(products))
	for _, p := range products {
		if filterCategory && strings.ToLower(p.Category) != category {
			continue
		}
		if req.Available != nil && p.Available != *req.Available {
			continue
		}

		infos = append(infos, NewProductInfo(p))
		if req.Limit > 0 && len(infos) >= req.Limit {
			break
		}
	}

	return &GetProductsRes{
		Products: infos,
		Total:    len(infos),
	}, nil
}

// GetCategories возвращает отсортированный список категорий с "All" в начале.
func (c *CatalogUseCase) GetCategories(ctx context.Context) (*GetCategoriesRes, error) {
	const op = "CatalogUseCase.GetCategories"

	products, err := c.index.Products()
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	seen := make(map[string]struct{})
	categories := make([]string, 0)
	for _, p := range products {
		if p.Category == "" {
			continue
		}
		if _, ok := seen[p.Category]; ok {
			continue
		}
		seen[p.Category] = struct{}{}
		categories = append(categories, p.Category)
	}
	sort.Strings(categories)

	return &GetCategoriesRes{
		Categories: append([]string{"All"}, categories...),
	}, nil
}

// Health сообщает готовность компонентов поиска.
func (c *CatalogUseCase) Health(ctx context.Context) *HealthRes {
	storeLoaded := c.index.Ready()

	products := 0
	if storeLoaded {
		if list, err := c.index.Products(); err == nil {
			products = len(list)
		}
	}

	status := "healthy"
	if !storeLoaded || c.encoder.Dim() == 0 {
		status = "degraded"
	}

	return &HealthRes{
		Status:       status,
		StoreLoaded:  storeLoaded,
		EncoderReady: c.encoder.Dim() > 0,
		Products:     products,
		Timestamp:    time.Now().UTC(),
	}
}
