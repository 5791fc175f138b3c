package usecase

import (
	"context"

	"github.com/DRSN-tech/visual-search/internal/domain"
)

// VectorIndexRepository — резидентный индекс эмбеддингов каталога.
// Реализация обязана быть безопасной для конкурентных чтений.
type VectorIndexRepository interface {
	Search(query []float32, threshold float64, topK int) ([]RankedProduct, error)
	Products() ([]domain.Product, error)
	Dim() (int, error)
	Ready() bool
}

// QueryImageRepository хранит изображения-запросы для аудита.
type QueryImageRepository interface {
	Upload(ctx context.Context, image *domain.QueryImage) (string, error)
}

// SearchCacheRepository — кэш готовых ответов поиска.
// Промах — (nil, nil); ошибки кэша не должны ронять запрос.
type SearchCacheRepository interface {
	Get(ctx context.Context, key string) (*SearchRes, error)
	Set(ctx context.Context, key string, res *SearchRes)
}
