package usecase

import "context"

type SearchUC interface {
	Search(ctx context.Context, req *SearchReq) (*SearchRes, error)
}

type CatalogUC interface {
	GetProducts(ctx context.Context, req *GetProductsReq) (*GetProductsRes, error)
	GetCategories(ctx context.Context) (*GetCategoriesRes, error)
	Health(ctx context.Context) *HealthRes
}
